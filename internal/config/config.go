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

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// PublicURL is used to build the loopback webhook URL and 3-D Secure return links.
	PublicURL string `yaml:"public_url"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL         string        `yaml:"url"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	// TTL bounds cached user rows.
	TTL time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TTL       time.Duration `yaml:"ttl"`
}

type MockGatewayConfig struct {
	// SuccessRate is the probability of success for non-sentinel cards.
	// Values above 1 are read as a percentage (100 => 1.0). Unset means 0.85;
	// an explicit 0 means no such card succeeds outright.
	SuccessRate *float64 `yaml:"success_rate"`
	Currency    string   `yaml:"currency"`
	RedirectURL string   `yaml:"redirect_url"`
}

type PaymentConfig struct {
	Mock        MockGatewayConfig `yaml:"mock"`
	ConfirmLock time.Duration     `yaml:"confirm_lock"`
}

type WebhookConfig struct {
	Mode    string        `yaml:"mode"` // sync | http | queue
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Workers int           `yaml:"workers"`
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
	// IdempotencyTTL bounds how long a processed intent id is remembered.
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

type StripeConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

type PlanPrice struct {
	Amount int64 `yaml:"amount"`
}

type DunningConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"max_attempts"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

type BillingConfig struct {
	Currency string        `yaml:"currency"`
	Monthly  PlanPrice     `yaml:"monthly"`
	Yearly   PlanPrice     `yaml:"yearly"`
	Dunning  DunningConfig `yaml:"dunning"`
	// ExpireAfter is how long an unpaid ACTIVE row past its period end waits
	// for the renewal sweep before a read marks it EXPIRED.
	ExpireAfter time.Duration `yaml:"expire_after"`
}

type EntitlementConfig struct {
	SignalsPlans []string `yaml:"signals_plans"`
}

type SchedulerConfig struct {
	RenewalCron string `yaml:"renewal_cron"`
}

type RateLimitConfig struct {
	ConfirmPerMinute int `yaml:"confirm_per_minute"`
	// per client IP on the webhook and 3-D Secure routes
	IngressPerMinute int `yaml:"ingress_per_minute"`
	IngressBurst     int `yaml:"ingress_burst"`
}

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	Payment     PaymentConfig     `yaml:"payment"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Stripe      StripeConfig      `yaml:"stripe"`
	Billing     BillingConfig     `yaml:"billing"`
	Entitlement EntitlementConfig `yaml:"entitlement"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and validates it.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 15 * time.Second
	}
	if c.HTTP.PublicURL == "" {
		c.HTTP.PublicURL = fmt.Sprintf("http://127.0.0.1:%d", c.HTTP.Port)
	}
	c.HTTP.PublicURL = strings.TrimRight(c.HTTP.PublicURL, "/")

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
	if c.Auth.TTL <= 0 {
		c.Auth.TTL = 24 * time.Hour
	}

	rate := NormalizeRate(c.Payment.Mock.SuccessRate)
	c.Payment.Mock.SuccessRate = &rate
	if c.Payment.Mock.Currency == "" {
		c.Payment.Mock.Currency = "usd"
	}
	if c.Payment.Mock.RedirectURL == "" {
		c.Payment.Mock.RedirectURL = c.HTTP.PublicURL + "/payment-intents/3ds"
	}
	if c.Payment.ConfirmLock <= 0 {
		c.Payment.ConfirmLock = 30 * time.Second
	}

	c.Webhook.Mode = strings.ToLower(strings.TrimSpace(c.Webhook.Mode))
	if c.Webhook.Mode == "" {
		c.Webhook.Mode = "sync"
	}
	if c.Webhook.URL == "" {
		c.Webhook.URL = c.HTTP.PublicURL + "/webhooks/payment"
	}
	if c.Webhook.Workers <= 0 {
		c.Webhook.Workers = 4
	}
	if c.Webhook.Retries <= 0 {
		c.Webhook.Retries = 3
	}
	if c.Webhook.Backoff <= 0 {
		c.Webhook.Backoff = 500 * time.Millisecond
	}
	if c.Webhook.IdempotencyTTL <= 0 {
		c.Webhook.IdempotencyTTL = 7 * 24 * time.Hour
	}

	if c.Billing.Currency == "" {
		c.Billing.Currency = c.Payment.Mock.Currency
	}
	if c.Billing.Monthly.Amount <= 0 {
		c.Billing.Monthly.Amount = 4900
	}
	if c.Billing.Yearly.Amount <= 0 {
		c.Billing.Yearly.Amount = 49000
	}
	if c.Billing.Dunning.MaxAttempts <= 0 {
		c.Billing.Dunning.MaxAttempts = 3
	}
	if c.Billing.Dunning.GracePeriod <= 0 {
		c.Billing.Dunning.GracePeriod = 7 * 24 * time.Hour
	}

	if c.Billing.ExpireAfter <= 0 {
		c.Billing.ExpireAfter = 72 * time.Hour
	}

	if len(c.Entitlement.SignalsPlans) == 0 {
		c.Entitlement.SignalsPlans = []string{"MONTHLY"}
	}
	if c.Scheduler.RenewalCron == "" {
		c.Scheduler.RenewalCron = "@hourly"
	}
	if c.RateLimit.ConfirmPerMinute <= 0 {
		c.RateLimit.ConfirmPerMinute = 20
	}
	if c.RateLimit.IngressPerMinute <= 0 {
		c.RateLimit.IngressPerMinute = 600
	}
	if c.RateLimit.IngressBurst <= 0 {
		c.RateLimit.IngressBurst = 60
	}
}

func (c *Config) validate() error {
	switch c.Webhook.Mode {
	case "sync", "http", "queue":
	default:
		return fmt.Errorf("webhook.mode %q is not one of sync|http|queue", c.Webhook.Mode)
	}
	if c.Runtime.Dev {
		return nil
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

// NormalizeRate clamps a success rate into [0,1]. Nil means "use the default".
func NormalizeRate(r *float64) float64 {
	if r == nil {
		return 0.85
	}
	switch v := *r; {
	case v <= 0:
		return 0
	case v > 1:
		v = v / 100
		if v > 1 {
			v = 1
		}
		return v
	default:
		return v
	}
}

// Rate is the normalized success rate.
func (m MockGatewayConfig) Rate() float64 { return NormalizeRate(m.SuccessRate) }

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
