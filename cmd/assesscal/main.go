package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"assesscal/internal/calendar"
	"assesscal/internal/config"
	appLog "assesscal/internal/log"
	"assesscal/internal/provider"
	"assesscal/internal/temporal"
	"assesscal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("assesscal starting", "version", "0.1.0")

	flags := parseFlags()

	n, err := config.LoadEnvFiles(".env", ".env.local")
	if err != nil {
		appLog.Error("failed to load .env files", err)
		os.Exit(1)
	}
	if n > 0 {
		appLog.Debug("loaded .env files", "count", n)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"day_limit", conf.DayLimit,
		"provider", conf.Provider.URL != "",
		"provider_format", conf.Provider.Format,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := provider.NewStore(newSource(conf))
	if err := store.Refresh(ctx); err != nil && flags.once {
		os.Exit(1)
	}

	if flags.once {
		if err := dump(conf, store); err != nil {
			appLog.Error("failed to write entries", err)
			os.Exit(1)
		}
		return
	}

	sched, err := provider.NewScheduler(ctx, conf.RefreshCron, store)
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if err := web.Run(ctx, conf, store); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("assesscal exiting")
}

func newSource(conf *config.Config) provider.Source {
	if conf.Provider.URL == "" {
		appLog.Info("no provider URL configured; serving an empty schedule")
		return provider.StaticSource{}
	}
	p := conf.Provider
	if p.Format == "ics" {
		return provider.NewICSSource(p.URL, p.Token, p.CacheDir, p.PastDays, p.HorizonDays)
	}
	return provider.NewHTTPSource(p.URL, p.Token, p.CacheDir)
}

// dump writes the normalized snapshot as JSON to stdout.
func dump(conf *config.Config, store *provider.Store) error {
	loc, err := temporal.LoadZone(conf.Timezone)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(calendar.NormalizeAll(store.Records(), loc))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/assesscal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh once, print normalized entries as JSON and exit")

	flag.Parse()

	return cfg
}
