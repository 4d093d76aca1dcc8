// Package rates реализует сервис курсов конвертации валют с кэшированием.
package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

var (
	// ErrUnsupportedConversion возвращается для неизвестной пары валют
	ErrUnsupportedConversion = errors.New("unsupported currency conversion")

	// ErrCacheMiss возвращается кэшем, когда курс не закэширован или истёк
	ErrCacheMiss = errors.New("rate not found in cache")
)

// cacheTTL — время жизни закэшированного курса
const cacheTTL = 5 * time.Minute

// Service возвращает курс конвертации между валютами
type Service interface {
	GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
}

// Cache хранит курсы с TTL
// Реализации: in-memory (по умолчанию) и Redis
type Cache interface {
	// Get возвращает закэшированный курс или ErrCacheMiss
	Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)

	// Set сохраняет курс с указанным TTL
	Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration) error
}

// StaticService реализует Service поверх фиксированной таблицы курсов
// Результаты кэшируются на 5 минут; в production таблицу заменяет
// интеграция с внешним поставщиком курсов, кэш остаётся тем же
type StaticService struct {
	logger *zap.Logger
	table  map[string]decimal.Decimal
	cache  Cache
}

// DefaultTable возвращает дефолтную таблицу курсов
func DefaultTable() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		pairKey(domain.CurrencyUSD, domain.CurrencyEUR): decimal.RequireFromString("0.85"),
		pairKey(domain.CurrencyUSD, domain.CurrencyRUB): decimal.RequireFromString("90"),
		pairKey(domain.CurrencyEUR, domain.CurrencyUSD): decimal.RequireFromString("1.18"),
		pairKey(domain.CurrencyEUR, domain.CurrencyRUB): decimal.RequireFromString("100"),
		pairKey(domain.CurrencyRUB, domain.CurrencyUSD): decimal.RequireFromString("0.011"),
		pairKey(domain.CurrencyRUB, domain.CurrencyEUR): decimal.RequireFromString("0.01"),
	}
}

// NewStaticService создаёт сервис с дефолтной таблицей курсов и кэшем
func NewStaticService(logger *zap.Logger, cache Cache) *StaticService {
	return &StaticService{
		logger: logger,
		table:  DefaultTable(),
		cache:  cache,
	}
}

func pairKey(from, to domain.Currency) string {
	return fmt.Sprintf("%s:%s", from, to)
}

// GetRate возвращает курс для пары валют
// Для совпадающих валют курс равен 1; неизвестная пара — ErrUnsupportedConversion
func (s *StaticService) GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	if rate, err := s.cache.Get(ctx, from, to); err == nil {
		return rate, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		// Проблемы кэша не фатальны: идём в таблицу
		s.logger.Warn("rate cache lookup failed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err),
		)
	}

	rate, ok := s.table[pairKey(from, to)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, from, to)
	}

	if err := s.cache.Set(ctx, from, to, rate, cacheTTL); err != nil {
		s.logger.Warn("failed to cache rate",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err),
		)
	}

	return rate, nil
}
