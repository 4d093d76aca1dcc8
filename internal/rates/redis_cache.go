package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// RedisCache реализует Cache поверх Redis
// Курс хранится строкой под ключом rate:{from}:{to}, TTL задаёт Redis
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache создаёт Redis-кэш курсов
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func rateKey(from, to domain.Currency) string {
	return fmt.Sprintf("rate:%s:%s", from, to)
}

// Get возвращает закэшированный курс или ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	value, err := c.client.Get(ctx, rateKey(from, to)).Result()
	if err != nil {
		if err == redis.Nil {
			return decimal.Decimal{}, ErrCacheMiss
		}
		c.logger.Error("failed to get rate from redis",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err),
		)
		return decimal.Decimal{}, fmt.Errorf("failed to get rate: %w", err)
	}

	rate, err := decimal.NewFromString(value)
	if err != nil {
		// Повреждённое значение равносильно промаху
		c.logger.Warn("malformed rate value in redis, treating as miss",
			zap.String("value", value),
		)
		return decimal.Decimal{}, ErrCacheMiss
	}

	return rate, nil
}

// Set сохраняет курс с указанным TTL
func (c *RedisCache) Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration) error {
	err := c.client.Set(ctx, rateKey(from, to), rate.String(), ttl).Err()
	if err != nil {
		c.logger.Error("failed to set rate in redis",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to set rate: %w", err)
	}

	c.logger.Debug("rate cached in redis",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Duration("ttl", ttl),
	)
	return nil
}
