package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	ERaktKosh ERaktKoshConfig `yaml:"eraktkosh" mapstructure:"eraktkosh"`
	Stock     StockConfig     `yaml:"stock" mapstructure:"stock"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CacheConfig locates the hierarchy snapshot.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`

	// SeedFile is an optional YAML hierarchy imported when the snapshot is
	// empty, before falling back to a cold fetch.
	SeedFile string `yaml:"seed_file" mapstructure:"seed_file"`
}

// ERaktKoshConfig configures the stock source client.
type ERaktKoshConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	StockTimeoutSecs int     `yaml:"stock_timeout_secs" mapstructure:"stock_timeout_secs"`
	StateTimeoutSecs int     `yaml:"state_timeout_secs" mapstructure:"state_timeout_secs"`
	MaxPages         int     `yaml:"max_pages" mapstructure:"max_pages"`
	PageSize         int     `yaml:"page_size" mapstructure:"page_size"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst        int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// StockConfig configures stock queries made through the tool surface.
type StockConfig struct {
	DefaultComponent string `yaml:"default_component" mapstructure:"default_component"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("BLOODSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.path", "hierarchy.json")
	v.SetDefault("cache.seed_file", "")
	v.SetDefault("eraktkosh.base_url", "https://eraktkosh.mohfw.gov.in")
	v.SetDefault("eraktkosh.user_agent", "")
	v.SetDefault("eraktkosh.timeout_secs", 30)
	v.SetDefault("eraktkosh.stock_timeout_secs", 30)
	v.SetDefault("eraktkosh.state_timeout_secs", 20)
	v.SetDefault("eraktkosh.max_pages", 5)
	v.SetDefault("eraktkosh.page_size", 10)
	v.SetDefault("eraktkosh.concurrency", 4)
	v.SetDefault("eraktkosh.rate_limit", 2.0)
	v.SetDefault("eraktkosh.rate_burst", 4)
	v.SetDefault("eraktkosh.retry_attempts", 3)
	v.SetDefault("eraktkosh.retry_backoff_ms", 500)
	v.SetDefault("eraktkosh.breaker_threshold", 5)
	v.SetDefault("eraktkosh.breaker_reset_secs", 30)
	v.SetDefault("stock.default_component", "Packed Red Blood Cells")
	v.SetDefault("stock.timeout_secs", 90)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
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

// Validate checks the settings a command mode depends on. Modes are
// "serve", "stock", "resolve" and "hierarchy".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Cache.Path == "" {
		errs = append(errs, "cache.path is required")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateSource()...)
		errs = append(errs, c.validateStock()...)
	case "stock":
		errs = append(errs, c.validateSource()...)
		errs = append(errs, c.validateStock()...)
	case "hierarchy":
		errs = append(errs, c.validateSource()...)
	case "resolve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSource() []string {
	var errs []string
	e := c.ERaktKosh
	if e.BaseURL == "" {
		errs = append(errs, "eraktkosh.base_url is required")
	}
	if e.MaxPages < 1 || e.MaxPages > 50 {
		errs = append(errs, "eraktkosh.max_pages must be between 1 and 50")
	}
	if e.PageSize < 1 || e.PageSize > 1000 {
		errs = append(errs, "eraktkosh.page_size must be between 1 and 1000")
	}
	if e.Concurrency < 1 || e.Concurrency > 32 {
		errs = append(errs, "eraktkosh.concurrency must be between 1 and 32")
	}
	if e.RateLimit < 0 {
		errs = append(errs, "eraktkosh.rate_limit must be >= 0")
	}
	if e.RetryAttempts < 1 {
		errs = append(errs, "eraktkosh.retry_attempts must be >= 1")
	}
	return errs
}

func (c *Config) validateStock() []string {
	var errs []string
	if c.Stock.TimeoutSecs < 0 {
		errs = append(errs, "stock.timeout_secs must be >= 0")
	}
	return errs
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
