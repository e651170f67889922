package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска. Значения читаются из переменных ECOM_*.
type Config struct {
	GRPCAddr    string `envconfig:"ECOM_GRPC_ADDR" default:":50051"`
	HTTPAddr    string `envconfig:"ECOM_HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"ECOM_METRICS_ADDR" default:":9090"`

	StorageDriver       string `envconfig:"ECOM_STORAGE" default:"memory"`
	PostgresDSN         string `envconfig:"ECOM_POSTGRES_DSN"`
	PostgresAutoMigrate bool   `envconfig:"ECOM_POSTGRES_AUTO_MIGRATE" default:"true"`
	SeedData            bool   `envconfig:"ECOM_SEED_DATA" default:"true"`

	RedisAddr string        `envconfig:"ECOM_REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"ECOM_CACHE_TTL" default:"5m"`

	KafkaBrokers  []string `envconfig:"ECOM_KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"ECOM_KAFKA_TOPIC" default:"ecomstore.events"`
	KafkaDLQTopic string   `envconfig:"ECOM_KAFKA_DLQ_TOPIC" default:"ecomstore.events.dlq"`

	OutboxPollInterval time.Duration `envconfig:"ECOM_OUTBOX_POLL_INTERVAL" default:"1s"`
	OutboxBatchSize    int           `envconfig:"ECOM_OUTBOX_BATCH_SIZE" default:"100"`
	OutboxMaxAttempts  int           `envconfig:"ECOM_OUTBOX_MAX_ATTEMPTS" default:"3"`
	OutboxRetryDelay   time.Duration `envconfig:"ECOM_OUTBOX_RETRY_DELAY" default:"200ms"`

	IdempotencyCleanupInterval  time.Duration `envconfig:"ECOM_IDEMPOTENCY_CLEANUP_INTERVAL" default:"1m"`
	IdempotencyCleanupBatchSize int           `envconfig:"ECOM_IDEMPOTENCY_CLEANUP_BATCH_SIZE" default:"500"`

	HTTPRateLimit   int      `envconfig:"ECOM_HTTP_RATE_LIMIT" default:"100"`
	HTTPCORSOrigins []string `envconfig:"ECOM_HTTP_CORS_ORIGINS"`

	LogLevel  string `envconfig:"ECOM_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"ECOM_LOG_FORMAT" default:"text"`
}

// DefaultConfig возвращает значения по умолчанию, совпадающие с тегами default.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                    ":50051",
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		SeedData:                    true,
		CacheTTL:                    5 * time.Minute,
		KafkaTopic:                  "ecomstore.events",
		KafkaDLQTopic:               "ecomstore.events.dlq",
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            200 * time.Millisecond,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
		HTTPRateLimit:               100,
		LogLevel:                    "info",
		LogFormat:                   "text",
	}
}

// LoadConfig читает конфигурацию из окружения и проверяет её.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}
	cfg.KafkaBrokers = normalizeList(cfg.KafkaBrokers)
	cfg.HTTPCORSOrigins = normalizeList(cfg.HTTPCORSOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("ECOM_POSTGRES_DSN is required for %s storage", StorageDriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("ECOM_CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.HTTPRateLimit < 0 {
		return fmt.Errorf("ECOM_HTTP_RATE_LIMIT must not be negative, got %d", c.HTTPRateLimit)
	}
	return nil
}

// normalizeList убирает пробелы и пустые элементы из списка, прочитанного через запятую.
func normalizeList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
