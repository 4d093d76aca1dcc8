package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// Gateway определяет legacy-контракт платёжного шлюза
// Не предоставляет идемпотентность и запрос статуса: провайдеры, ещё не
// поддерживающие идемпотентные ключи, интегрируются через этот контракт
type Gateway interface {
	// Name возвращает уникальное имя шлюза (ключ для Router.ByName)
	Name() string

	// GetCommission возвращает комиссию шлюза для валюты, диапазон [0, 1)
	GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error)

	// IsAvailable проверяет живую доступность шлюза
	IsAvailable(ctx context.Context) bool

	// SupportsCurrency проверяет поддержку валюты (не ходит в сеть)
	SupportsCurrency(currency domain.Currency) bool

	// ProcessPayment проводит платёж; false означает отказ провайдера
	ProcessPayment(ctx context.Context, req domain.PaymentRequest) (bool, error)

	// Refund выполняет возврат по транзакции; false означает отказ провайдера
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error)
}

// IdempotentGateway определяет современный контракт платёжного шлюза
//
// Контракт идемпотентности: для пары (экземпляр шлюза, transactionID) первый
// завершившийся ProcessPayment фиксирует результат, каждый последующий вызов —
// последовательный или конкурентный — возвращает идентичный по значению
// PaymentResult, включая ProcessedAt. То же для Refund по ключу refundID.
// Новые шлюзы реализуют этот контракт напрямую
type IdempotentGateway interface {
	Name() string
	GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error)
	IsAvailable(ctx context.Context) bool
	SupportsCurrency(currency domain.Currency) bool

	// ProcessPayment проводит платёж идемпотентно по transactionID
	ProcessPayment(ctx context.Context, req domain.PaymentRequest, transactionID string) (domain.PaymentResult, error)

	// PaymentStatus возвращает зафиксированный результат платежа
	// Для неизвестного transactionID — Failed/TRANSACTION_NOT_FOUND
	PaymentStatus(ctx context.Context, transactionID string) (domain.PaymentResult, error)

	// Refund выполняет возврат идемпотентно по refundID
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (domain.RefundResult, error)

	// RefundStatus возвращает зафиксированный результат возврата
	// Для неизвестного refundID — Failed/REFUND_NOT_FOUND
	RefundStatus(ctx context.Context, refundID string) (domain.RefundResult, error)

	// CancelPayment отменяет платёж; отмена возможна только из статусов
	// Pending и Processing, иначе CANNOT_CANCEL
	CancelPayment(ctx context.Context, transactionID string) (domain.PaymentResult, error)
}
