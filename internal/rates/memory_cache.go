package rates

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// cachedRate — запись кэша с моментом истечения
type cachedRate struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// MemoryCache реализует Cache поверх map с TTL
// Истёкшие записи удаляются лениво при чтении
type MemoryCache struct {
	mu    sync.RWMutex
	rates map[string]cachedRate
	now   func() time.Time // подменяется в тестах
}

// NewMemoryCache создаёт пустой in-memory кэш курсов
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		rates: make(map[string]cachedRate),
		now:   time.Now,
	}
}

// Get возвращает закэшированный курс или ErrCacheMiss
func (c *MemoryCache) Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	key := pairKey(from, to)

	c.mu.RLock()
	entry, ok := c.rates[key]
	c.mu.RUnlock()

	if !ok {
		return decimal.Decimal{}, ErrCacheMiss
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.rates, key)
		c.mu.Unlock()
		return decimal.Decimal{}, ErrCacheMiss
	}

	return entry.rate, nil
}

// Set сохраняет курс с указанным TTL
func (c *MemoryCache) Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[pairKey(from, to)] = cachedRate{
		rate:      rate,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}
