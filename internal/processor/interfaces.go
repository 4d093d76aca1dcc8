package processor

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
	"github.com/dkrasnov-dev/paygate/internal/gateway"
)

// Validator проверяет бизнес-правила платёжного запроса
// (формат счёта, лимиты по валюте, достаточность баланса).
// Не приостанавливается и не ходит в сеть
type Validator interface {
	Validate(req domain.PaymentRequest) bool
}

// GatewayRouter выбирает шлюз для запроса и ищет шлюз по имени
type GatewayRouter interface {
	SelectOptimal(ctx context.Context, req domain.PaymentRequest) (gateway.Gateway, error)
	ByName(name string) (gateway.Gateway, bool)
}

// RateService возвращает курс конвертации между валютами
type RateService interface {
	GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
}
