package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables redis-backed rate limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SealConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

type ActivationConfig struct {
	BaseURL       string `yaml:"base_url"` // public base URL for activation links
	CodeLength    int    `yaml:"code_length"`
	QRSize        int    `yaml:"qr_size"` // QR image size in pixels
	WebhookSecret string `yaml:"webhook_secret"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

type ReconcilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Lookback time.Duration `yaml:"lookback"`
	MinAge   time.Duration `yaml:"min_age"`
	Repair   bool          `yaml:"repair"` // false = report only
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Admin      AdminConfig      `yaml:"admin"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Seal       SealConfig       `yaml:"seal"`
	Activation ActivationConfig `yaml:"activation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets deployment secrets override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("SEAL_API_KEY"); v != "" {
		c.Seal.APIKey = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		c.Admin.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Activation.WebhookSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Admin.Port <= 0 {
		c.Admin.Port = 8081
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Seal.BaseURL == "" {
		c.Seal.BaseURL = "https://app.sealsubscriptions.com/shopify/merchant/api"
	}
	if c.Seal.Timeout <= 0 {
		c.Seal.Timeout = 15 * time.Second
	}
	if c.Seal.MaxAttempts <= 0 {
		c.Seal.MaxAttempts = 3
	}
	if c.Seal.BackoffBase <= 0 {
		c.Seal.BackoffBase = 250 * time.Millisecond
	}
	if c.Activation.CodeLength <= 0 {
		c.Activation.CodeLength = 12
	}
	if c.Activation.QRSize <= 0 {
		c.Activation.QRSize = 256
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 30
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Reconciler.Interval <= 0 {
		c.Reconciler.Interval = 5 * time.Minute
	}
	if c.Reconciler.Lookback <= 0 {
		c.Reconciler.Lookback = 24 * time.Hour
	}
	if c.Reconciler.MinAge <= 0 {
		c.Reconciler.MinAge = 15 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Activation.BaseURL == "" {
		return errors.New("activation.base_url is required")
	}
	if c.Seal.APIKey == "" && !c.Runtime.Dev {
		return errors.New("seal.api_key is required outside dev mode")
	}
	return nil
}
