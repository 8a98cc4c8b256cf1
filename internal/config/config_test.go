package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "https://worktime.bixpe.com/", cfg.Site.URL)
	assert.Equal(t, "rod", cfg.Browser.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2*time.Second, cfg.Timing.ProbeTimeout)
	assert.Equal(t, 5*time.Second, cfg.Timing.OverlayTimeout)
	assert.Equal(t, 5*time.Second, cfg.Timing.ClickTimeout)
	assert.Equal(t, "holidays.json", cfg.Files.Holidays)
	assert.Equal(t, "#Username", cfg.Site.Email[0])
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clockin.yaml")
	content := `
browser:
  driver: chromedp
  headless: false
timing:
  probe_timeout: 750ms
locators:
  actions:
    start:
      candidates: ["#new-start"]
      requires_confirmation: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("BIXPE_EMAIL", "worker@example.com")
	t.Setenv("BIXPE_PASSWORD", "secret")
	t.Setenv("CLOCKIN_FILES_DIAGNOSTICS_DIR", "/tmp/diag")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "chromedp", cfg.Browser.Driver)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 750*time.Millisecond, cfg.Timing.ProbeTimeout)
	assert.Equal(t, "/tmp/diag", cfg.Files.DiagnosticsDir)
	assert.Equal(t, "worker@example.com", cfg.Credentials.Email)
	assert.NoError(t, cfg.RequireCredentials())

	start, ok := cfg.Locators.Actions["start"]
	require.True(t, ok)
	assert.Equal(t, []string{"#new-start"}, start.Candidates)
	require.NotNil(t, start.RequiresConfirmation)
	assert.False(t, *start.RequiresConfirmation)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Browser.Driver = "selenium" }, false},
		{"empty url", func(c *Config) { c.Site.URL = "" }, false},
		{"zero probe timeout", func(c *Config) { c.Timing.ProbeTimeout = 0 }, false},
		{"negative settle", func(c *Config) { c.Timing.SettleDelay = -time.Second }, false},
		{"zero settle", func(c *Config) { c.Timing.SettleDelay = 0 }, true},
		{"zero width", func(c *Config) { c.Browser.Width = 0 }, false},
		{"advisor openai", func(c *Config) { c.Advisor.Provider = "openai" }, true},
		{"advisor unknown", func(c *Config) { c.Advisor.Provider = "llama" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredentials)

	cfg.Credentials.Email = "a@b.c"
	assert.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredentials)

	cfg.Credentials.Password = "x"
	assert.NoError(t, cfg.RequireCredentials())
}
