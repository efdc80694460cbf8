package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"

	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Primary     Primary           `koanf:"primary"`
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Processor   ProcessorConfig   `koanf:"processor"`
	Webhook     WebhookConfig     `koanf:"webhook"`
	Fulfillment FulfillmentConfig `koanf:"fulfillment"`
	Idempotency IdempotencyConfig `koanf:"idempotency"`
	Redis       RedisConfig       `koanf:"redis"`
	Events      EventsConfig      `koanf:"events"`
	Logger      LoggerConfig      `koanf:"logger"`
	Worker      WorkerConfig      `koanf:"worker"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required,min=1"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=sandbox production"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`

	// HandlerTimeout bounds a webhook request and must exceed webhook.processing_timeout.
	HandlerTimeout time.Duration `koanf:"handler_timeout" validate:"required"`
}

// DatabaseConfig is only validated when the idempotency backend is postgres.
type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type ProcessorConfig struct {
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url" validate:"omitempty,url"`
	SandboxBaseURL  string        `koanf:"sandbox_base_url" validate:"omitempty,url"`
	ConfirmPayments bool          `koanf:"confirm_payments"`
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
	MaxRetries      int           `koanf:"max_retries" validate:"min=1"`
	RetryBaseDelay  time.Duration `koanf:"retry_base_delay"`
}

type WebhookConfig struct {
	Secret            string        `koanf:"secret" validate:"required"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes" validate:"required,min=1"`
	ProcessingTimeout time.Duration `koanf:"processing_timeout" validate:"required"`
}

type FulfillmentConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout" validate:"required"`
}

type IdempotencyConfig struct {
	Backend   string        `koanf:"backend" validate:"required,oneof=postgres redis memory"`
	Lease     time.Duration `koanf:"lease" validate:"required"`
	Retention time.Duration `koanf:"retention" validate:"required"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type EventsConfig struct {
	AMQPURL  string `koanf:"amqp_url"`
	Exchange string `koanf:"exchange" validate:"required"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                 EnvSandbox,
		"server.port":                 "8080",
		"server.read_timeout":         "10s",
		"server.write_timeout":        "15s",
		"server.idle_timeout":         "60s",
		"server.handler_timeout":      "12s",
		"database.port":               5432,
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"processor.base_url":          "https://api.p100.io",
		"processor.sandbox_base_url":  "https://sandbox.p100.io",
		"processor.timeout":           "5s",
		"processor.max_retries":       2,
		"processor.retry_base_delay":  "200ms",
		"webhook.max_body_bytes":      1 << 20,
		"webhook.processing_timeout":  "8s",
		"fulfillment.timeout":         "5s",
		"idempotency.backend":         BackendPostgres,
		"idempotency.lease":           "30s",
		"idempotency.retention":       "720h",
		"events.exchange":             "webhooks",
		"logger.level":                "info",
		"logger.format":               "text",
		"worker.interval":             "1h",
		"worker.batch_size":           500,
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	if err := mainConfig.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// Validate checks every section. Database settings are skipped unless
// Postgres backs the idempotency store, and Redis must have a URL when it does.
func (c *Config) Validate() error {
	validate := validator.New()

	sections := []any{
		&c.Primary, &c.Server, &c.Processor, &c.Webhook, &c.Fulfillment,
		&c.Idempotency, &c.Events, &c.Logger, &c.Worker,
	}
	if c.Idempotency.Backend == BackendPostgres {
		sections = append(sections, &c.Database)
	}
	for _, s := range sections {
		if err := validate.Struct(s); err != nil {
			return err
		}
	}

	if c.Idempotency.Backend == BackendRedis && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required when idempotency.backend is %q", BackendRedis)
	}
	if c.Processor.ConfirmPayments && c.Processor.APIKey == "" {
		return fmt.Errorf("processor.api_key is required when processor.confirm_payments is set")
	}

	// A lease that lapses mid-dispatch lets a redelivery take the key over.
	if c.Idempotency.Lease <= c.Webhook.ProcessingTimeout {
		return fmt.Errorf("idempotency.lease (%s) must exceed webhook.processing_timeout (%s)",
			c.Idempotency.Lease, c.Webhook.ProcessingTimeout)
	}
	if c.Server.HandlerTimeout <= c.Webhook.ProcessingTimeout {
		return fmt.Errorf("server.handler_timeout (%s) must exceed webhook.processing_timeout (%s)",
			c.Server.HandlerTimeout, c.Webhook.ProcessingTimeout)
	}

	return nil
}

// ActiveBaseURL picks the processor endpoint for the deployment environment.
func (p ProcessorConfig) ActiveBaseURL(env string) string {
	if env == EnvSandbox && p.SandboxBaseURL != "" {
		return p.SandboxBaseURL
	}
	return p.BaseURL
}
