package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus представляет статус платежа на стороне шлюза
type PaymentStatus string

const (
	PaymentPending            PaymentStatus = "PENDING"
	PaymentProcessing         PaymentStatus = "PROCESSING"
	PaymentCompleted          PaymentStatus = "COMPLETED"
	PaymentFailed             PaymentStatus = "FAILED"
	PaymentCancelled          PaymentStatus = "CANCELLED"
	PaymentRequiresAction     PaymentStatus = "REQUIRES_ACTION"
	PaymentPartiallyCompleted PaymentStatus = "PARTIALLY_COMPLETED"
)

// RefundStatus представляет статус возврата на стороне шлюза
type RefundStatus string

const (
	RefundPending           RefundStatus = "PENDING"
	RefundProcessing        RefundStatus = "PROCESSING"
	RefundCompleted         RefundStatus = "COMPLETED"
	RefundFailed            RefundStatus = "FAILED"
	RefundPartiallyRefunded RefundStatus = "PARTIALLY_REFUNDED"
)

// Коды ошибок, которые шлюзы и адаптеры записывают в результаты
const (
	ErrCodeTransactionNotFound    = "TRANSACTION_NOT_FOUND"
	ErrCodeRefundNotFound         = "REFUND_NOT_FOUND"
	ErrCodeCannotCancel           = "CANNOT_CANCEL"
	ErrCodeTemporaryError         = "TEMPORARY_ERROR"
	ErrCodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	ErrCodeUnsupportedCurrency    = "UNSUPPORTED_CURRENCY"
	ErrCodeLegacyGatewayError     = "LEGACY_GATEWAY_ERROR"
	ErrCodeLegacyGatewayException = "LEGACY_GATEWAY_EXCEPTION"
	ErrCodeNotSupported           = "NOT_SUPPORTED"
)

// PaymentResult представляет результат операции платежа на шлюзе
// Для одной пары (шлюз, transactionID) все возвращаемые результаты
// должны быть равны по значению, включая ProcessedAt
type PaymentResult struct {
	IsSuccess            bool
	GatewayTransactionID string
	Status               PaymentStatus
	ErrorCode            string
	ErrorMessage         string
	ProcessedAt          time.Time
	IsRetryable          bool
	ActualAmount         decimal.Decimal
	ProviderReference    string
}

// RefundResult представляет результат операции возврата на шлюзе
// Идемпотентен по refundID так же, как PaymentResult по transactionID
type RefundResult struct {
	IsSuccess             bool
	GatewayRefundID       string
	Status                RefundStatus
	ErrorCode             string
	ErrorMessage          string
	ProcessedAt           time.Time
	RefundedAmount        decimal.Decimal
	OriginalTransactionID string
}
