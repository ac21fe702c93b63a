package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"assesscal/internal/temporal"
)

// ProviderConfig describes where assessment records come from.
type ProviderConfig struct {
	// URL is the provider endpoint returning a JSON array of records.
	// Empty means no upstream; the snapshot stays empty.
	URL string `yaml:"url" json:"url" env:"ASSESSCAL_PROVIDER_URL"`
	// CacheDir keeps the last good response for offline fallback.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"ASSESSCAL_PROVIDER_CACHE_DIR"`
	// Token, if set, is sent as a bearer token.
	Token string `yaml:"token,omitempty" json:"-" env:"ASSESSCAL_PROVIDER_TOKEN"`
	// Format is "json" (a record array) or "ics" (an iCalendar feed).
	Format string `yaml:"format" json:"format" env:"ASSESSCAL_PROVIDER_FORMAT"`
	// PastDays / HorizonDays bound recurrence expansion for "ics".
	PastDays    int `yaml:"past_days" json:"past_days" env:"ASSESSCAL_PROVIDER_PAST_DAYS"`
	HorizonDays int `yaml:"horizon_days" json:"horizon_days" env:"ASSESSCAL_PROVIDER_HORIZON_DAYS"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"ASSESSCAL_LISTEN"`

	// Timezone is the IANA timezone views render in unless a request
	// overrides it (e.g. "Europe/Madrid").
	Timezone string `yaml:"timezone" json:"timezone" env:"ASSESSCAL_TIMEZONE"`

	// WeekStart controls which weekday opens each row of the calendar grid.
	// Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start" env:"ASSESSCAL_WEEK_START"`

	// RefreshCron is a cron-style schedule (e.g. "*/5 * * * *") for
	// reloading records from the provider.
	RefreshCron string `yaml:"refresh" json:"refresh" env:"ASSESSCAL_REFRESH"`

	// DayLimit caps how many events the selected-day panel lists.
	DayLimit int `yaml:"day_limit" json:"day_limit" env:"ASSESSCAL_DAY_LIMIT"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level" env:"ASSESSCAL_LOG_LEVEL"`

	Provider ProviderConfig `yaml:"provider" json:"provider"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "UTC"
	defaultRefresh  = "*/5 * * * *"
	defaultDayLimit = 5
	defaultCacheDir = "./var/provider-cache"
	defaultFormat   = "json"
	defaultPast     = 30
	defaultHorizon  = 180
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		WeekStart:   "monday",
		RefreshCron: defaultRefresh,
		DayLimit:    defaultDayLimit,
		LogLevel:    "info",
		Provider: ProviderConfig{
			CacheDir:    defaultCacheDir,
			Format:      defaultFormat,
			PastDays:    defaultPast,
			HorizonDays: defaultHorizon,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.DayLimit <= 0 {
		c.DayLimit = defaultDayLimit
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Provider.CacheDir == "" {
		c.Provider.CacheDir = defaultCacheDir
	}
	if c.Provider.Format == "" {
		c.Provider.Format = defaultFormat
	}
	if c.Provider.PastDays <= 0 {
		c.Provider.PastDays = defaultPast
	}
	if c.Provider.HorizonDays <= 0 {
		c.Provider.HorizonDays = defaultHorizon
	}
	if c.BasicAuth != nil && *c.BasicAuth == (BasicAuthConfig{}) {
		c.BasicAuth = nil
	}
}

// Validate rejects values Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := temporal.LoadZone(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: invalid refresh schedule %q: %w", c.RefreshCron, err)
	}
	switch c.Provider.Format {
	case "json", "ics":
	default:
		return fmt.Errorf("config: unknown provider format %q", c.Provider.Format)
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "") != (c.BasicAuth.Password == "") {
		return errors.New("config: basic_auth needs both username and password")
	}
	return nil
}

// LoadEnvFiles loads whichever of files exist into the process environment.
// Variables already set are not overwritten.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load loads configuration from the given YAML path and applies
// ASSESSCAL_* environment overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - Environment variables override file values.
//   - Defaults are filled and the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".assesscal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
