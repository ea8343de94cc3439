package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/toolstock/gls-rpa/internal/report"
)

// Config holds all application configuration
type Config struct {
	Portal    PortalConfig    `mapstructure:"portal"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Report    ReportConfig    `mapstructure:"report"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// PortalConfig holds carrier portal URLs, credentials and element ids
type PortalConfig struct {
	LoginURL     string          `mapstructure:"login_url"`
	ShipmentsURL string          `mapstructure:"shipments_url"`
	Username     string          `mapstructure:"username"`
	Password     string          `mapstructure:"password"`
	Elements     ElementIDConfig `mapstructure:"elements"`
}

// ElementIDConfig names the portal DOM element ids the driver relies on
type ElementIDConfig struct {
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	LoginButton  string `mapstructure:"login_button"`
	LoggedInURL  string `mapstructure:"logged_in_url"`
	DateFrom     string `mapstructure:"date_from"`
	DateTo       string `mapstructure:"date_to"`
	SearchButton string `mapstructure:"search_button"`
	ExportButton string `mapstructure:"export_button"`
	ResultsTable string `mapstructure:"results_table"`
}

// PathsConfig holds filesystem locations
type PathsConfig struct {
	DownloadDir string `mapstructure:"download_dir"`
	FinalDir    string `mapstructure:"final_dir"`
}

// TimeoutsConfig holds every wait bound used by the pipeline
type TimeoutsConfig struct {
	PageLoad       time.Duration `mapstructure:"page_load"`
	ElementPresent time.Duration `mapstructure:"element_present"`
	ExportButton   time.Duration `mapstructure:"export_button"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	RenameBackoff  time.Duration `mapstructure:"rename_backoff"`
	RenameAttempts int           `mapstructure:"rename_attempts"`
}

// BrowserConfig holds browser bootstrap options
type BrowserConfig struct {
	Headless      bool     `mapstructure:"headless"`
	DisableImages bool     `mapstructure:"disable_images"`
	DebuggerURL   string   `mapstructure:"debugger_url"`
	BinPath       string   `mapstructure:"bin_path"`
	SearchPaths   []string `mapstructure:"search_paths"`
	AllowDownload bool     `mapstructure:"allow_download"`
}

// DatabaseConfig holds order database connection settings
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Timeout      time.Duration `mapstructure:"timeout"`       // connect and ping
	QueryTimeout time.Duration `mapstructure:"query_timeout"` // reference query
}

// ReconcileConfig holds the reference query and join policy
type ReconcileConfig struct {
	ActiveStatuses   []int  `mapstructure:"active_statuses"`
	OrdersTable      string `mapstructure:"orders_table"`
	MarketplaceTable string `mapstructure:"marketplace_table"`
	JoinColumn       string `mapstructure:"join_column"`
	DuplicatePolicy  string `mapstructure:"duplicate_policy"`
}

// ReportConfig holds the report date offset
type ReportConfig struct {
	DaysAgo int `mapstructure:"days_ago"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	OutputPaths []string `mapstructure:"output_paths"`
	Format      string   `mapstructure:"format"`
}

// Options controls where Load looks for configuration
type Options struct {
	ConfigPath string // optional YAML file
	EnvFile    string // optional dotenv file, defaults to .env
}

// Load loads configuration from an optional dotenv file, an optional
// YAML file and environment variables, in increasing precedence.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigPath != "" {
		v.SetConfigFile(opts.ConfigPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Portal element ids
	v.SetDefault("portal.elements.username", "usuario")
	v.SetDefault("portal.elements.password", "pass")
	v.SetDefault("portal.elements.login_button", "Button1")
	v.SetDefault("portal.elements.logged_in_url", "Extranet")
	v.SetDefault("portal.elements.date_from", "fechadesde")
	v.SetDefault("portal.elements.date_to", "fechahasta")
	v.SetDefault("portal.elements.search_button", "btBuscar")
	v.SetDefault("portal.elements.export_button", "btXLS")
	v.SetDefault("portal.elements.results_table", "envios")

	// Timeouts
	v.SetDefault("timeouts.page_load", 10*time.Second)
	v.SetDefault("timeouts.element_present", 15*time.Second)
	v.SetDefault("timeouts.export_button", 5*time.Second)
	v.SetDefault("timeouts.poll_interval", 1*time.Second)
	v.SetDefault("timeouts.poll_timeout", 30*time.Second)
	v.SetDefault("timeouts.rename_backoff", 1*time.Second)
	v.SetDefault("timeouts.rename_attempts", 10)

	// Browser defaults
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.disable_images", true)
	v.SetDefault("browser.search_paths", []string{"./chrome", "./drivers/chrome"})
	v.SetDefault("browser.allow_download", true)

	// Database defaults
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.timeout", 10*time.Second)
	v.SetDefault("database.query_timeout", 2*time.Minute)

	// Reconcile defaults
	v.SetDefault("reconcile.active_statuses", []int{1, 2, 3, 6, 10, 11, 14, 15, 16, 21})
	v.SetDefault("reconcile.orders_table", "ps_orders")
	v.SetDefault("reconcile.marketplace_table", "ps_beezup_order")
	v.SetDefault("reconcile.join_column", "DptoDst")
	v.SetDefault("reconcile.duplicate_policy", "first")

	v.SetDefault("report.days_ago", 0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_paths", []string{"stdout", "logs/rpa_shipments.log"})
	v.SetDefault("logger.format", "console")
}

// bindEnvVars binds the environment contract to configuration keys
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"portal.login_url":     "URL_LOGIN",
		"portal.shipments_url": "URL_SHIPMENTS",
		"portal.username":      "USERNAME_GLS",
		"portal.password":      "PASSWORD_GLS",
		"paths.download_dir":   "PATH_DOWNLOAD_FOLDER",
		"paths.final_dir":      "PATH_FINAL_FOLDER",
		"database.host":        "HOST_DB",
		"database.port":        "PORT_DB",
		"database.name":        "DATABASE_DB",
		"database.user":        "USER_DB",
		"database.password":    "PASSWORD_DB",
		"report.days_ago":      "DAYS_AGO",
		"browser.headless":     "BROWSER_HEADLESS",
		"browser.debugger_url": "BROWSER_DEBUGGER_URL",
		"browser.bin_path":     "BROWSER_BIN_PATH",
		"logger.level":         "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Portal.LoginURL == "" {
		return fmt.Errorf("portal.login_url is required")
	}
	if c.Portal.ShipmentsURL == "" {
		return fmt.Errorf("portal.shipments_url is required")
	}

	if c.Paths.DownloadDir == "" {
		return fmt.Errorf("paths.download_dir is required")
	}
	if c.Paths.FinalDir == "" {
		return fmt.Errorf("paths.final_dir is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}

	if c.Report.DaysAgo < 0 {
		return fmt.Errorf("report.days_ago must not be negative, got %d", c.Report.DaysAgo)
	}

	t := c.Timeouts
	for name, d := range map[string]time.Duration{
		"page_load":       t.PageLoad,
		"element_present": t.ElementPresent,
		"export_button":   t.ExportButton,
		"poll_interval":   t.PollInterval,
		"poll_timeout":    t.PollTimeout,
		"rename_backoff":  t.RenameBackoff,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive", name)
		}
	}
	if t.RenameAttempts < 1 {
		return fmt.Errorf("timeouts.rename_attempts must be at least 1")
	}

	if len(c.Reconcile.ActiveStatuses) == 0 {
		return fmt.Errorf("reconcile.active_statuses must not be empty")
	}
	switch strings.ToLower(c.Reconcile.DuplicatePolicy) {
	case "first", "last":
	default:
		return fmt.Errorf("reconcile.duplicate_policy must be first or last, got %q", c.Reconcile.DuplicatePolicy)
	}

	return nil
}

// ReportDate derives the report date for a run started at now
func (c *Config) ReportDate(now time.Time) report.Date {
	return report.New(now, c.Report.DaysAgo)
}
