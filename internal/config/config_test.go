package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_FileValuesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
listen: ":9000"
timezone: Europe/Madrid
week_start: sunday
provider:
  url: https://records.example.com/api/events
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "Europe/Madrid", cfg.Timezone)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, "https://records.example.com/api/events", cfg.Provider.URL)
	assert.Equal(t, defaultRefresh, cfg.RefreshCron)
	assert.Equal(t, defaultDayLimit, cfg.DayLimit)
	assert.Equal(t, defaultCacheDir, cfg.Provider.CacheDir)
	assert.Equal(t, "json", cfg.Provider.Format)
	assert.Equal(t, defaultHorizon, cfg.Provider.HorizonDays)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "timezone: Europe/Madrid\nday_limit: 3\n")

	t.Setenv("ASSESSCAL_TIMEZONE", "America/Bogota")
	t.Setenv("ASSESSCAL_DAY_LIMIT", "8")
	t.Setenv("ASSESSCAL_PROVIDER_URL", "http://localhost:9999/records")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", cfg.Timezone)
	assert.Equal(t, 8, cfg.DayLimit)
	assert.Equal(t, "http://localhost:9999/records", cfg.Provider.URL)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"bad yaml":     "listen: [",
		"bad timezone": "timezone: Mars/Base",
		"bad cron":     "refresh: every now and then",
		"half auth":    "basic_auth:\n  username: admin\n",
		"bad format":   "provider:\n  format: xml\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			writeFile(t, path, content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load("")
	assert.Error(t, err)
}

func TestNormalize_UnknownWeekStart(t *testing.T) {
	cfg := &Config{WeekStart: "friday"}
	cfg.Normalize()
	assert.Equal(t, "monday", cfg.WeekStart)

	cfg = &Config{WeekStart: " Sunday "}
	cfg.Normalize()
	assert.Equal(t, "sunday", cfg.WeekStart)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Kolkata"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Error(t, Save(path, nil))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "ASSESSCAL_TEST_ENV_LOAD=ok\n")
	t.Setenv("ASSESSCAL_TEST_ENV_LOAD", "")
	require.NoError(t, os.Unsetenv("ASSESSCAL_TEST_ENV_LOAD"))

	n, err := LoadEnvFiles(envPath, filepath.Join(dir, ".env.local"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ok", os.Getenv("ASSESSCAL_TEST_ENV_LOAD"))

	n, err = LoadEnvFiles(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
