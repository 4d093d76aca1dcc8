package validation

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// MemoryBalanceService реализует BalanceService поверх in-memory хранилища
// Используется для разработки и тестов; в production заменяется
// интеграцией с банковским ядром
type MemoryBalanceService struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal // ключ = account:currency
}

// NewMemoryBalanceService создаёт пустой in-memory сервис балансов
func NewMemoryBalanceService() *MemoryBalanceService {
	return &MemoryBalanceService{
		balances: make(map[string]decimal.Decimal),
	}
}

func balanceKey(account string, currency domain.Currency) string {
	return fmt.Sprintf("%s:%s", account, currency)
}

// SetBalance устанавливает баланс счёта в валюте
func (s *MemoryBalanceService) SetBalance(account string, amount decimal.Decimal, currency domain.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey(account, currency)] = amount
}

// HasSufficientBalance проверяет, что баланс счёта покрывает сумму
// Неизвестный счёт считается счётом с нулевым балансом
func (s *MemoryBalanceService) HasSufficientBalance(account string, amount decimal.Decimal, currency domain.Currency) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[balanceKey(account, currency)]
	if !ok {
		return false
	}
	return balance.GreaterThanOrEqual(amount)
}
