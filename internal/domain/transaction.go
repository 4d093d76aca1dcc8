package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus представляет статус транзакции в журнале процессора
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionProcessed TransactionStatus = "PROCESSED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionRefunded  TransactionStatus = "REFUNDED"
)

// ParseTransactionStatus разбирает строку в TransactionStatus
// Возвращает ошибку для неизвестных значений (уведомления с мусором игнорируются)
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(s) {
	case TransactionPending, TransactionProcessed, TransactionFailed, TransactionRefunded:
		return TransactionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown transaction status: %s", s)
	}
}

// IsTerminal возвращает true для статусов, в которых повторный Process
// становится чистым чтением (идемпотентный replay)
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionProcessed, TransactionFailed, TransactionRefunded:
		return true
	default:
		return false
	}
}

// Transaction представляет запись журнала транзакций
// Владелец записи — процессор; все мутации полей происходят под per-id локом.
// ID задаётся вызывающим кодом и идентифицирует транзакцию на всём её
// жизненном цикле, включая идемпотентные повторы
type Transaction struct {
	ID           string
	Request      PaymentRequest
	Status       TransactionStatus
	Timestamp    time.Time
	GatewayUsed  string
	Commission   decimal.Decimal
	ErrorMessage string
}
