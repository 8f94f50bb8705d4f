package app

import "time"

// Драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес REST API магазина.
	HTTPAddr string
	// MetricsAddr — адрес служебного HTTP-сервера: /metrics, /healthz, /livez.
	MetricsAddr string

	// StorageDriver — memory или postgres.
	StorageDriver string
	// PostgresDSN обязателен при StorageDriver=postgres.
	PostgresDSN string
	// PostgresAutoMigrate применяет миграции при старте.
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пусто = события не публикуются.
	KafkaBrokers string

	// Настройки outbox worker.
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// DefaultConfig возвращает конфигурацию для локальной разработки:
// in-memory хранилище и выключенный Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageMemory,
		PostgresAutoMigrate: true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     50,
		OutboxMaxAttempts:   3,
	}
}
