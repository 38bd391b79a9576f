package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type StorefrontConfig struct {
	Env       string `yaml:"env" env:"STOREFRONT_ENV" env-default:"local"`
	HTTP      `yaml:"http"`
	Database  `yaml:"database"`
	Gateway   `yaml:"gateway"`
	Reconcile `yaml:"reconcile"`
	Kafka     `yaml:"kafka"`
	Worker    `yaml:"worker"`
	Log       `yaml:"log"`
}

type HTTP struct {
	Addr           string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"10s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type Database struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_DSN" env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"30m"`
}

// Gateway holds the two payment gateway secrets. KeySecret signs client callbacks,
// WebhookSecret signs webhook bodies.
type Gateway struct {
	KeySecret       string `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret   string `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	SignatureHeader string `yaml:"signature_header" env:"GATEWAY_SIGNATURE_HEADER" env-default:"X-Razorpay-Signature"`
}

// Validate reports a missing secret. Without one every payment on that path is
// rejected as a bad signature.
func (g Gateway) Validate() error {
	if g.KeySecret == "" {
		return errors.New("gateway key secret is not set (RAZORPAY_KEY_SECRET)")
	}
	if g.WebhookSecret == "" {
		return errors.New("gateway webhook secret is not set (RAZORPAY_WEBHOOK_SECRET)")
	}
	return nil
}

type Reconcile struct {
	MaxRetries     uint64        `yaml:"max_retries" env:"RECONCILE_MAX_RETRIES" env-default:"3"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"RECONCILE_INITIAL_BACKOFF" env-default:"100ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"RECONCILE_MAX_BACKOFF" env-default:"2s"`
	NotifyTimeout  time.Duration `yaml:"notify_timeout" env:"RECONCILE_NOTIFY_TIMEOUT" env-default:"5s"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"order-confirmations"`
}

type Worker struct {
	Interval   time.Duration `yaml:"interval" env:"WORKER_INTERVAL" env-default:"1m"`
	PendingTTL time.Duration `yaml:"pending_ttl" env:"WORKER_PENDING_TTL" env-default:"24h"`
	BatchSize  int           `yaml:"batch_size" env:"WORKER_BATCH_SIZE" env-default:"100"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads the YAML file at path, then applies environment overrides.
// An empty path reads the environment only.
func Load(path string) (*StorefrontConfig, error) {
	var cfg StorefrontConfig
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env config: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("find config file: %w", err)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *StorefrontConfig {
	cfg, err := Load(os.Getenv("STOREFRONT_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v\n", err)
	}
	return cfg
}
