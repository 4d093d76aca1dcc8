package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// LegacyAdapter оборачивает legacy-шлюз за современным контрактом
// Идемпотентность не появляется из воздуха: адаптер лишь транслирует форму
// вызовов, повторный ProcessPayment с тем же transactionID снова уйдёт
// в провайдера. Операции статуса и отмены legacy-шлюз не поддерживает
type LegacyAdapter struct {
	legacy Gateway
}

// NewLegacyAdapter создаёт адаптер legacy-шлюза к современному контракту
func NewLegacyAdapter(legacy Gateway) *LegacyAdapter {
	return &LegacyAdapter{legacy: legacy}
}

func (a *LegacyAdapter) Name() string {
	return a.legacy.Name()
}

func (a *LegacyAdapter) GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	return a.legacy.GetCommission(ctx, currency)
}

func (a *LegacyAdapter) IsAvailable(ctx context.Context) bool {
	return a.legacy.IsAvailable(ctx)
}

func (a *LegacyAdapter) SupportsCurrency(currency domain.Currency) bool {
	return a.legacy.SupportsCurrency(currency)
}

// ProcessPayment транслирует булев результат legacy-шлюза в PaymentResult
// false → LEGACY_GATEWAY_ERROR (retryable), ошибка → LEGACY_GATEWAY_EXCEPTION (retryable)
func (a *LegacyAdapter) ProcessPayment(ctx context.Context, req domain.PaymentRequest, transactionID string) (domain.PaymentResult, error) {
	ok, err := a.legacy.ProcessPayment(ctx, req)
	if err != nil {
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentFailed,
			ErrorCode:    domain.ErrCodeLegacyGatewayException,
			ErrorMessage: err.Error(),
			ProcessedAt:  time.Now().UTC(),
			IsRetryable:  true,
		}, nil
	}
	if !ok {
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentFailed,
			ErrorCode:    domain.ErrCodeLegacyGatewayError,
			ErrorMessage: "legacy gateway rejected payment",
			ProcessedAt:  time.Now().UTC(),
			IsRetryable:  true,
		}, nil
	}

	return domain.PaymentResult{
		IsSuccess:            true,
		GatewayTransactionID: fmt.Sprintf("%s_%s", a.legacy.Name(), transactionID),
		Status:               domain.PaymentCompleted,
		ProcessedAt:          time.Now().UTC(),
		ActualAmount:         req.Amount,
	}, nil
}

// PaymentStatus не поддерживается legacy-шлюзом
func (a *LegacyAdapter) PaymentStatus(ctx context.Context, transactionID string) (domain.PaymentResult, error) {
	return notSupportedPayment(), nil
}

// Refund транслирует булев результат возврата legacy-шлюза в RefundResult
func (a *LegacyAdapter) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (domain.RefundResult, error) {
	ok, err := a.legacy.Refund(ctx, transactionID, amount)
	if err != nil {
		return domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundFailed,
			ErrorCode:             domain.ErrCodeLegacyGatewayException,
			ErrorMessage:          err.Error(),
			ProcessedAt:           time.Now().UTC(),
			OriginalTransactionID: transactionID,
		}, nil
	}
	if !ok {
		return domain.RefundResult{
			IsSuccess:             false,
			Status:                domain.RefundFailed,
			ErrorCode:             domain.ErrCodeLegacyGatewayError,
			ErrorMessage:          "legacy gateway rejected refund",
			ProcessedAt:           time.Now().UTC(),
			OriginalTransactionID: transactionID,
		}, nil
	}

	return domain.RefundResult{
		IsSuccess:             true,
		GatewayRefundID:       fmt.Sprintf("%s_%s", a.legacy.Name(), refundID),
		Status:                domain.RefundCompleted,
		ProcessedAt:           time.Now().UTC(),
		RefundedAmount:        amount,
		OriginalTransactionID: transactionID,
	}, nil
}

// RefundStatus не поддерживается legacy-шлюзом
func (a *LegacyAdapter) RefundStatus(ctx context.Context, refundID string) (domain.RefundResult, error) {
	return domain.RefundResult{
		IsSuccess:    false,
		Status:       domain.RefundFailed,
		ErrorCode:    domain.ErrCodeNotSupported,
		ErrorMessage: "legacy gateway does not support refund status lookup",
		ProcessedAt:  time.Now().UTC(),
	}, nil
}

// CancelPayment не поддерживается legacy-шлюзом
func (a *LegacyAdapter) CancelPayment(ctx context.Context, transactionID string) (domain.PaymentResult, error) {
	return notSupportedPayment(), nil
}

func notSupportedPayment() domain.PaymentResult {
	return domain.PaymentResult{
		IsSuccess:    false,
		Status:       domain.PaymentFailed,
		ErrorCode:    domain.ErrCodeNotSupported,
		ErrorMessage: "operation is not supported by legacy gateway",
		ProcessedAt:  time.Now().UTC(),
		IsRetryable:  false,
	}
}
