package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	BaseURL        string        `yaml:"base_url"` // used for checkout_url and invoice_url
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StorageConfig struct {
	Backend  string `yaml:"backend"`   // memory | file | postgres | redis
	FilePath string `yaml:"file_path"` // file backend only
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // read-through cache TTL
}

type CheckoutConfig struct {
	SessionTTL      time.Duration `yaml:"session_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	// Retention keeps expired sessions readable (as "expired") before the sweep removes them.
	Retention     time.Duration `yaml:"retention"`
	PayRateLimit  int           `yaml:"pay_rate_limit"` // attempts per window per checkout id; 0 disables
	PayRateWindow time.Duration `yaml:"pay_rate_window"`
	// RejectExpiredMutations makes pay/cancel fail on pending sessions past expires_at. Default true.
	RejectExpiredMutations *bool `yaml:"reject_expired_mutations"`
}

type WebhookConfig struct {
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
	Endpoint     string `yaml:"endpoint"`
}

type InvoiceConfig struct {
	IssuerName string `yaml:"issuer_name"`
	Tagline    string `yaml:"tagline"`
	Support    string `yaml:"support_email"`
	Footer     string `yaml:"footer"`
}

type MerchantConfig struct {
	// APISecret signs merchant bearer tokens (HS256). Empty disables auth on session creation.
	APISecret string `yaml:"api_secret"`
}

type WorkerConfig struct {
	Count int `yaml:"count"`
	Queue int `yaml:"queue"`
	// DrainTimeout bounds how long queued webhooks and emails may run after shutdown starts.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Email    EmailConfig    `yaml:"email"`
	Invoice  InvoiceConfig  `yaml:"invoice"`
	Merchant MerchantConfig `yaml:"merchant"`
	Workers  WorkerConfig   `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// LoadConfig reads the YAML file at path, applies environment overrides and
// defaults, then validates. A missing file is allowed in dev mode.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// run on defaults
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets deployments inject secrets without editing the YAML file.
func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.BaseURL, "CHECKOUT_BASE_URL")
	set(&cfg.Storage.Backend, "CHECKOUT_STORAGE_BACKEND")
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Webhook.Secret, "WEBHOOK_SECRET")
	set(&cfg.Email.ResendAPIKey, "RESEND_API_KEY")
	set(&cfg.Merchant.APISecret, "MERCHANT_API_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.Backend == BackendFile && cfg.Storage.FilePath == "" {
		cfg.Storage.FilePath = "data/sessions.json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Checkout.SessionTTL <= 0 {
		cfg.Checkout.SessionTTL = 15 * time.Minute
	}
	if cfg.Checkout.CleanupInterval <= 0 {
		cfg.Checkout.CleanupInterval = 10 * time.Minute
	}
	if cfg.Checkout.Retention < 0 {
		cfg.Checkout.Retention = 0
	}
	if cfg.Checkout.PayRateWindow <= 0 {
		cfg.Checkout.PayRateWindow = time.Minute
	}
	if cfg.Checkout.RejectExpiredMutations == nil {
		v := true
		cfg.Checkout.RejectExpiredMutations = &v
	}
	if cfg.Webhook.Secret == "" {
		cfg.Webhook.Secret = "whsec_demo"
	}
	if cfg.Webhook.Timeout <= 0 {
		cfg.Webhook.Timeout = 10 * time.Second
	}
	if cfg.Email.From == "" {
		cfg.Email.From = "Payments <payments@resend.dev>"
	}
	if cfg.Email.Endpoint == "" {
		cfg.Email.Endpoint = "https://api.resend.com/emails"
	}
	if cfg.Invoice.IssuerName == "" {
		cfg.Invoice.IssuerName = "Hosted Checkout"
	}
	if cfg.Invoice.Footer == "" {
		cfg.Invoice.Footer = "Thank you for your business!"
	}
	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = 4
	}
	if cfg.Workers.Queue <= 0 {
		cfg.Workers.Queue = cfg.Workers.Count * 64
	}
	if cfg.Workers.DrainTimeout <= 0 {
		cfg.Workers.DrainTimeout = 30 * time.Second
	}
}

// Validate performs minimal consistency checks.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendFile:
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if c.Checkout.PayRateLimit > 0 && c.Redis.URL == "" {
		return errors.New("checkout.pay_rate_limit requires redis.url")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
