// Package config загружает конфигурацию хоста из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Env представляет окружение приложения
type Env string

const (
	// EnvLocal - локальное окружение (для разработки на хосте)
	EnvLocal Env = "local"
	// EnvDocker - Docker окружение (для запуска в контейнерах)
	EnvDocker Env = "docker"
)

// Config содержит конфигурацию хоста платёжного ядра
type Config struct {
	// AppEnv — окружение приложения (local/docker)
	AppEnv Env `env:"APP_ENV" envDefault:"local"`

	// LogLevel — уровень логирования (debug/info/warn/error)
	LogLevel string `env:"LOG_LEVEL"`
	// LogFormat — формат логов ("json"|"console")
	LogFormat string `env:"LOG_FORMAT"`

	// HealthAddr — адрес HTTP health endpoint
	HealthAddr string `env:"HEALTH_ADDR" envDefault:"127.0.0.1:8091"`

	// KafkaEnabled включает consumer уведомлений о статусе
	KafkaEnabled bool `env:"KAFKA_ENABLED" envDefault:"false"`
	// KafkaBrokers — список брокеров Kafka через запятую
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:19092"`
	// StatusTopic — топик событий смены статуса транзакций
	StatusTopic string `env:"STATUS_TOPIC" envDefault:"payment.status"`
	// ConsumerGroup — группа consumer-а уведомлений
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"paygate-status"`

	// RedisEnabled переключает кэш курсов с in-memory на Redis
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`
	// RedisAddr — адрес Redis для кэша курсов
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// GatewayLatency — имитируемая сетевая задержка эталонных шлюзов
	GatewayLatency time.Duration `env:"GATEWAY_LATENCY" envDefault:"50ms"`

	// ShutdownTimeout — таймаут одной shutdown функции
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.AppEnv != EnvLocal && c.AppEnv != EnvDocker {
		return fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", c.AppEnv)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
