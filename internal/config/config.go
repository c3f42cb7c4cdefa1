package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ACCOUNTCHECK_BACKEND_BASE_URL.
const EnvPrefix = "ACCOUNTCHECK"

// Config represents the smoke-test configuration
type Config struct {
	Frontend    FrontendConfig    `mapstructure:"frontend"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Timing      TimingConfig      `mapstructure:"timing"`
	Selectors   SelectorsConfig   `mapstructure:"selectors"`
	Markers     MarkersConfig     `mapstructure:"markers"`
	Scan        ScanConfig        `mapstructure:"scan"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Output      OutputConfig      `mapstructure:"output"`
}

type FrontendConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	LoginPath    string `mapstructure:"login_path"`
	AccountsPath string `mapstructure:"accounts_path"`
}

type BackendConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	HealthPath   string        `mapstructure:"health_path"`
	TokenPath    string        `mapstructure:"token_path"`
	AccountsPath string        `mapstructure:"accounts_path"`
	MePath       string        `mapstructure:"me_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CredentialsConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type BrowserConfig struct {
	Driver        string `mapstructure:"driver"`
	Headless      bool   `mapstructure:"headless"`
	NoSandbox     bool   `mapstructure:"no_sandbox"`
	DisableDevShm bool   `mapstructure:"disable_dev_shm"`
	SkipInstall   bool   `mapstructure:"skip_install"`
	Bin           string `mapstructure:"bin"`
	ControlURL    string `mapstructure:"control_url"`
	SlowMo        int    `mapstructure:"slow_mo"`
}

// TimingConfig holds the fixed waits of the frontend run. None of them are
// retried.
type TimingConfig struct {
	PreflightTimeout time.Duration `mapstructure:"preflight_timeout"`
	LoginTimeout     time.Duration `mapstructure:"login_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	RenderDelay      time.Duration `mapstructure:"render_delay"`
	EditDelay        time.Duration `mapstructure:"edit_delay"`
	ElementTimeout   time.Duration `mapstructure:"element_timeout"`
}

type SelectorsConfig struct {
	Email        string `mapstructure:"email"`
	Password     string `mapstructure:"password"`
	Submit       string `mapstructure:"submit"`
	Heading      string `mapstructure:"heading"`
	EditLinkText string `mapstructure:"edit_link_text"`
	LoginSuccess string `mapstructure:"login_success"`
	TokenKey     string `mapstructure:"token_key"`
	UserKey      string `mapstructure:"user_key"`
}

// MarkersConfig lists the schema markers searched for in rendered pages.
type MarkersConfig struct {
	Content    string   `mapstructure:"content"`
	Required   []string `mapstructure:"required"`
	Forbidden  []string `mapstructure:"forbidden"`
	LegacyForm string   `mapstructure:"legacy_form"`
}

type ScanConfig struct {
	Mode string `mapstructure:"mode"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OutputConfig struct {
	ReportPath  string `mapstructure:"report_path"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("frontend.base_url", "http://localhost:4321")
	v.SetDefault("frontend.login_path", "/login")
	v.SetDefault("frontend.accounts_path", "/admin/accounts")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.health_path", "/health")
	v.SetDefault("backend.token_path", "/api/auth/token")
	v.SetDefault("backend.accounts_path", "/api/accounts")
	v.SetDefault("backend.me_path", "/api/auth/me")
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("credentials.username", "superadmin@genascope.com")
	v.SetDefault("credentials.password", "admin123")

	v.SetDefault("browser.driver", "playwright")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.disable_dev_shm", true)
	v.SetDefault("browser.skip_install", os.Getenv("PLAYWRIGHT_PREINSTALLED") == "1")
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.control_url", "")
	v.SetDefault("browser.slow_mo", 0)

	v.SetDefault("timing.preflight_timeout", 5*time.Second)
	v.SetDefault("timing.login_timeout", 10*time.Second)
	v.SetDefault("timing.poll_interval", 500*time.Millisecond)
	v.SetDefault("timing.render_delay", 3*time.Second)
	v.SetDefault("timing.edit_delay", 2*time.Second)
	v.SetDefault("timing.element_timeout", 10*time.Second)

	v.SetDefault("selectors.email", "input[type='email']")
	v.SetDefault("selectors.password", "input[type='password']")
	v.SetDefault("selectors.submit", "button[type='submit']")
	v.SetDefault("selectors.heading", "h1")
	v.SetDefault("selectors.edit_link_text", "Edit")
	v.SetDefault("selectors.login_success", "Login Successful")
	v.SetDefault("selectors.token_key", "authToken")
	v.SetDefault("selectors.user_key", "authUser")

	v.SetDefault("markers.content", "account")
	v.SetDefault("markers.required", []string{"status"})
	v.SetDefault("markers.forbidden", []string{"is_active", "domain"})
	v.SetDefault("markers.legacy_form", "active account")

	v.SetDefault("scan.mode", "source")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("output.report_path", "")
	v.SetDefault("output.metrics_path", "")
}

// Load builds the configuration from defaults, an optional YAML file,
// a .env file in the working directory, and ACCOUNTCHECK_* variables.
// An empty configFile skips the file layer.
func Load(configFile string) (*Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without consulting files or
// the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return cfg
}

// loadDotEnv copies KEY=VALUE pairs from path into the process environment.
// Variables that are already set win.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		val := v.GetString(key)
		if val == "" || os.Getenv(name) != "" {
			continue
		}
		_ = os.Setenv(name, val)
	}
}

// Validate reports every setting that would make a run meaningless.
func (c *Config) Validate() error {
	var errs []error
	if c.Frontend.BaseURL == "" {
		errs = append(errs, errors.New("frontend.base_url is required"))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	switch c.Browser.Driver {
	case "playwright", "rod":
	default:
		errs = append(errs, fmt.Errorf("browser.driver %q is not one of playwright, rod", c.Browser.Driver))
	}
	switch c.Scan.Mode {
	case "source", "text":
	default:
		errs = append(errs, fmt.Errorf("scan.mode %q is not one of source, text", c.Scan.Mode))
	}
	for _, d := range []struct {
		key string
		val time.Duration
	}{
		{"backend.timeout", c.Backend.Timeout},
		{"timing.preflight_timeout", c.Timing.PreflightTimeout},
		{"timing.login_timeout", c.Timing.LoginTimeout},
		{"timing.poll_interval", c.Timing.PollInterval},
		{"timing.element_timeout", c.Timing.ElementTimeout},
	} {
		if d.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.key))
		}
	}
	if c.Timing.RenderDelay < 0 || c.Timing.EditDelay < 0 {
		errs = append(errs, errors.New("timing delays must not be negative"))
	}
	return errors.Join(errs...)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// LoginURL returns the absolute URL of the login page
func (f FrontendConfig) LoginURL() string { return joinURL(f.BaseURL, f.LoginPath) }

// AccountsURL returns the absolute URL of the account management page
func (f FrontendConfig) AccountsURL() string { return joinURL(f.BaseURL, f.AccountsPath) }

// HealthURL returns the absolute URL of the backend health endpoint
func (b BackendConfig) HealthURL() string { return joinURL(b.BaseURL, b.HealthPath) }
