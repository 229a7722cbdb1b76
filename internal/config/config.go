package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Validate ValidateConfig `yaml:"validate" mapstructure:"validate"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SheetsConfig configures the spreadsheet source. When WorkbookPath is
// set, local .xlsx files stand in for the remote API.
type SheetsConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	MasterID     string `yaml:"master_id" mapstructure:"master_id"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	WorkbookPath string `yaml:"workbook_path" mapstructure:"workbook_path"`
}

// ScanConfig configures retry and pacing for the detail scan.
type ScanConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS       int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS        int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	LocationDelayMS   int     `yaml:"location_delay_ms" mapstructure:"location_delay_ms"`
}

// LocationDelay returns the inter-location pacing interval.
func (c ScanConfig) LocationDelay() time.Duration {
	return time.Duration(c.LocationDelayMS) * time.Millisecond
}

// ValidateConfig configures the validation phase.
type ValidateConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// NotifyConfig configures the downstream refresh call that runs after a
// successful import.
type NotifyConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	WaitSecs    int    `yaml:"wait_secs" mapstructure:"wait_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAINTCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key is registered here, including the empty ones:
	// viper only routes SAINTCAL_* env vars through Unmarshal for keys it
	// has seen via a default or the config file.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "saintcalendar.db")
	v.SetDefault("sheets.api_key", "")
	v.SetDefault("sheets.master_id", "")
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com/v4/spreadsheets")
	v.SetDefault("sheets.timeout_secs", 30)
	v.SetDefault("sheets.workbook_path", "")
	v.SetDefault("scan.max_attempts", 3)
	v.SetDefault("scan.base_delay_ms", 500)
	v.SetDefault("scan.max_delay_ms", 30000)
	v.SetDefault("scan.backoff_multiplier", 2.0)
	v.SetDefault("scan.location_delay_ms", 1000)
	v.SetDefault("validate.rules_path", "")
	v.SetDefault("notify.url", "")
	v.SetDefault("notify.wait_secs", 120)
	v.SetDefault("notify.max_attempts", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ValidateSource checks that a usable spreadsheet source is configured:
// either local workbooks or an API key plus master document id.
func (c *Config) ValidateSource() error {
	if c.Sheets.WorkbookPath != "" {
		return nil
	}
	if c.Sheets.APIKey == "" {
		return eris.New("config: sheets.api_key is required (or set sheets.workbook_path)")
	}
	if c.Sheets.MasterID == "" {
		return eris.New("config: sheets.master_id is required")
	}
	return nil
}

// ValidateStore checks that the configured driver is usable.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return eris.New("config: store.sqlite_path is required for the sqlite driver")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
