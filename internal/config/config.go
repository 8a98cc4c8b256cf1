package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when the account identifier or secret is not set.
var ErrMissingCredentials = errors.New("BIXPE_EMAIL and BIXPE_PASSWORD must be set")

// Config holds the whole application configuration.
type Config struct {
	Site        SiteConfig        `mapstructure:"site"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Timing      TimingConfig      `mapstructure:"timing"`
	Files       FilesConfig       `mapstructure:"files"`
	Locators    LocatorConfig     `mapstructure:"locators"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Advisor     AdvisorConfig     `mapstructure:"advisor"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
}

// SiteConfig describes the target application and its sign-in form.
type SiteConfig struct {
	URL      string   `mapstructure:"url"`
	Cookie   []string `mapstructure:"cookie"`
	Email    []string `mapstructure:"email"`
	Password []string `mapstructure:"password"`
	Submit   []string `mapstructure:"submit"`
}

// BrowserConfig controls how the browser is launched.
type BrowserConfig struct {
	Driver      string            `mapstructure:"driver"`
	Bin         string            `mapstructure:"bin"`
	Headless    bool              `mapstructure:"headless"`
	Stealth     bool              `mapstructure:"stealth"`
	Width       int               `mapstructure:"width"`
	Height      int               `mapstructure:"height"`
	UserAgent   string            `mapstructure:"user_agent"`
	Locale      string            `mapstructure:"locale"`
	ProfileDir  string            `mapstructure:"profile_dir"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
}

// GeolocationConfig is the position reported to the page.
type GeolocationConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Accuracy  float64 `mapstructure:"accuracy"`
}

// TimingConfig bounds every wait the run performs.
type TimingConfig struct {
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	OverlayTimeout    time.Duration `mapstructure:"overlay_timeout"`
	ClickTimeout      time.Duration `mapstructure:"click_timeout"`
	ConfirmWait       time.Duration `mapstructure:"confirm_wait"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	LoginIdleTimeout  time.Duration `mapstructure:"login_idle_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// FilesConfig points at the calendar inputs and the artifact directory.
type FilesConfig struct {
	Holidays       string `mapstructure:"holidays"`
	Schedule       string `mapstructure:"schedule"`
	DiagnosticsDir string `mapstructure:"diagnostics_dir"`
}

// LocatorConfig overrides the built-in candidate locator table.
// Empty values leave the built-in rows untouched.
type LocatorConfig struct {
	Actions  map[string]ActionLocators `mapstructure:"actions"`
	Overlays []string                  `mapstructure:"overlays"`
	Confirm  []string                  `mapstructure:"confirm"`
	Cancel   []string                  `mapstructure:"cancel"`
}

// ActionLocators overrides the row of a single action.
type ActionLocators struct {
	Candidates           []string `mapstructure:"candidates"`
	RequiresConfirmation *bool    `mapstructure:"requires_confirmation"`
}

// LoggerConfig holds the logging configuration.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	ServiceName string `mapstructure:"service_name"`
	AddSource   bool   `mapstructure:"add_source"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// AdvisorConfig enables a language model that proposes a locator when no
// candidate of an action resolves. Provider empty disables it.
type AdvisorConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CredentialsConfig carries the account secrets. Never logged.
type CredentialsConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Site --
	v.SetDefault("site.url", "https://worktime.bixpe.com/")
	v.SetDefault("site.cookie", []string{"#onetrust-accept-btn-handler", "button[id*='cookie']", "[class*='cookie'] button.accept"})
	v.SetDefault("site.email", []string{"#Username", `input[name="Username"]`, `input[placeholder="Email"]`, "#username"})
	v.SetDefault("site.password", []string{"#Password", `input[name="Password"]`, `input[type="password"]`})
	v.SetDefault("site.submit", []string{`button[type="submit"]`, `input[type="submit"]`})

	// -- Browser --
	v.SetDefault("browser.driver", "rod")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.width", 1280)
	v.SetDefault("browser.height", 720)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.locale", "es-ES")
	v.SetDefault("browser.geolocation.enabled", true)
	v.SetDefault("browser.geolocation.latitude", 41.651304749576475)
	v.SetDefault("browser.geolocation.longitude", -0.9345988765123099)
	v.SetDefault("browser.geolocation.accuracy", 10.0)

	// -- Timing --
	v.SetDefault("timing.probe_timeout", "2s")
	v.SetDefault("timing.overlay_timeout", "5s")
	v.SetDefault("timing.click_timeout", "5s")
	v.SetDefault("timing.confirm_wait", "3s")
	v.SetDefault("timing.settle_delay", "3s")
	v.SetDefault("timing.login_idle_timeout", "30s")
	v.SetDefault("timing.navigation_timeout", "60s")

	// -- Files --
	v.SetDefault("files.holidays", "holidays.json")
	v.SetDefault("files.schedule", "schedule.json")
	v.SetDefault("files.diagnostics_dir", "diagnostics")

	// -- Advisor --
	v.SetDefault("advisor.provider", "")
	v.SetDefault("advisor.model", "")
	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.base_url", "")
	v.SetDefault("advisor.timeout", "30s")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "clockin")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// New returns a viper instance with defaults, env bindings and, when
// path is set or clockin.yaml exists in the working directory, the config file.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("clockin")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CLOCKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The account secrets keep the names the deployment already exports.
	_ = v.BindEnv("credentials.email", "CLOCKIN_CREDENTIALS_EMAIL", "BIXPE_EMAIL")
	_ = v.BindEnv("credentials.password", "CLOCKIN_CREDENTIALS_PASSWORD", "BIXPE_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// Load builds the configuration from defaults, the optional file and the environment.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper unmarshals and validates v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefaultConfig returns the configuration with only defaults applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("browser.driver must be rod or chromedp, got %q", c.Browser.Driver)
	}
	if c.Site.URL == "" {
		return fmt.Errorf("site.url is a required configuration field")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		return fmt.Errorf("browser.width and browser.height must be positive")
	}
	timeouts := map[string]time.Duration{
		"timing.probe_timeout":      c.Timing.ProbeTimeout,
		"timing.overlay_timeout":    c.Timing.OverlayTimeout,
		"timing.click_timeout":      c.Timing.ClickTimeout,
		"timing.confirm_wait":       c.Timing.ConfirmWait,
		"timing.login_idle_timeout": c.Timing.LoginIdleTimeout,
		"timing.navigation_timeout": c.Timing.NavigationTimeout,
	}
	for key, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}
	switch c.Advisor.Provider {
	case "", "claude", "anthropic", "openai", "gpt":
	default:
		return fmt.Errorf("advisor.provider must be claude or openai, got %q", c.Advisor.Provider)
	}
	if c.Timing.SettleDelay < 0 {
		return fmt.Errorf("timing.settle_delay must not be negative")
	}
	return nil
}

// RequireCredentials reports ErrMissingCredentials when either secret is empty.
func (c *Config) RequireCredentials() error {
	if c.Credentials.Email == "" || c.Credentials.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}
