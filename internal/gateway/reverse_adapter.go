package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// IdempotentAdapter оборачивает современный шлюз за legacy-контрактом
// Для каждого вызова генерирует свежий transactionID/refundID, поэтому
// legacy-клиенты теряют идемпотентность. Это единственное место в системе,
// где идентификаторы синтезируются, а не приходят от вызывающего кода
type IdempotentAdapter struct {
	modern IdempotentGateway
}

// NewIdempotentAdapter создаёт адаптер современного шлюза к legacy-контракту
func NewIdempotentAdapter(modern IdempotentGateway) *IdempotentAdapter {
	return &IdempotentAdapter{modern: modern}
}

func (a *IdempotentAdapter) Name() string {
	return a.modern.Name()
}

func (a *IdempotentAdapter) GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	return a.modern.GetCommission(ctx, currency)
}

func (a *IdempotentAdapter) IsAvailable(ctx context.Context) bool {
	return a.modern.IsAvailable(ctx)
}

func (a *IdempotentAdapter) SupportsCurrency(currency domain.Currency) bool {
	return a.modern.SupportsCurrency(currency)
}

// ProcessPayment проводит платёж под свежим transactionID и сводит результат к bool
func (a *IdempotentAdapter) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (bool, error) {
	result, err := a.modern.ProcessPayment(ctx, req, uuid.NewString())
	if err != nil {
		return false, err
	}
	return result.IsSuccess, nil
}

// Refund выполняет возврат под свежим refundID и сводит результат к bool
func (a *IdempotentAdapter) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	result, err := a.modern.Refund(ctx, transactionID, amount, uuid.NewString())
	if err != nil {
		return false, err
	}
	return result.IsSuccess, nil
}
