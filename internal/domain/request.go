package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentRequest представляет входящий запрос на платёж
// По контракту неизменяем: конвертация валюты создаёт производную копию,
// объект вызывающего кода никогда не мутируется
type PaymentRequest struct {
	Amount             decimal.Decimal
	Currency           Currency
	SourceAccount      string
	DestinationAccount string
	Metadata           map[string]string
}

// Validate проверяет, что все обязательные поля заполнены
// Бизнес-правила (формат счёта, лимиты, баланс) проверяет validation.Validator
func (r PaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", r.Amount)
	}
	if !r.Currency.IsValid() {
		return fmt.Errorf("unknown currency: %s", r.Currency)
	}
	if r.SourceAccount == "" {
		return fmt.Errorf("source account is required")
	}
	if r.DestinationAccount == "" {
		return fmt.Errorf("destination account is required")
	}
	return nil
}

// Clone возвращает глубокую копию запроса
// Копия не делит metadata с исходным запросом, поэтому снимок в журнале
// транзакций не наблюдает мутаций со стороны вызывающего кода
func (r PaymentRequest) Clone() PaymentRequest {
	clone := r
	if r.Metadata != nil {
		clone.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// WithConvertedAmount возвращает копию запроса с новой суммой и валютой
// Используется процессором при конвертации: исходный запрос остаётся нетронутым
func (r PaymentRequest) WithConvertedAmount(amount decimal.Decimal, currency Currency) PaymentRequest {
	converted := r.Clone()
	converted.Amount = amount
	converted.Currency = currency
	return converted
}
