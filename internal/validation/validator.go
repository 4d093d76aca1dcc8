// Package validation реализует проверку бизнес-правил платёжного запроса:
// формат счёта по валюте, лимит суммы, достаточность баланса.
package validation

import (
	"regexp"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// BalanceService проверяет достаточность баланса счёта
type BalanceService interface {
	HasSufficientBalance(account string, amount decimal.Decimal, currency domain.Currency) bool
}

// Форматы счетов по валютам
var accountPatterns = map[domain.Currency]*regexp.Regexp{
	domain.CurrencyUSD: regexp.MustCompile(`^[0-9]{10}$`),
	domain.CurrencyEUR: regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,32}$`),
	domain.CurrencyRUB: regexp.MustCompile(`^[0-9]{20}$`),
}

// Максимальные суммы одного платежа по валютам
var amountLimits = map[domain.Currency]decimal.Decimal{
	domain.CurrencyUSD: decimal.NewFromInt(10_000),
	domain.CurrencyEUR: decimal.NewFromInt(8_000),
	domain.CurrencyRUB: decimal.NewFromInt(500_000),
}

// Validator проверяет платёжные запросы перед обработкой
// Состояния не имеет, безопасен для конкурентных вызовов
type Validator struct {
	logger   *zap.Logger
	balances BalanceService
}

// New создаёт Validator с сервисом балансов
func New(logger *zap.Logger, balances BalanceService) *Validator {
	return &Validator{
		logger:   logger,
		balances: balances,
	}
}

// Validate проверяет запрос: положительная сумма в пределах лимита валюты,
// формат обоих счетов и достаточность баланса счёта-источника
func (v *Validator) Validate(req domain.PaymentRequest) bool {
	if !req.Amount.IsPositive() {
		v.logger.Debug("validation rejected: non-positive amount",
			zap.String("amount", req.Amount.String()),
		)
		return false
	}

	limit, ok := amountLimits[req.Currency]
	if !ok {
		v.logger.Debug("validation rejected: unknown currency",
			zap.String("currency", req.Currency.String()),
		)
		return false
	}
	if req.Amount.GreaterThan(limit) {
		v.logger.Debug("validation rejected: amount exceeds currency limit",
			zap.String("amount", req.Amount.String()),
			zap.String("limit", limit.String()),
		)
		return false
	}

	pattern := accountPatterns[req.Currency]
	if !pattern.MatchString(req.SourceAccount) || !pattern.MatchString(req.DestinationAccount) {
		v.logger.Debug("validation rejected: account format mismatch",
			zap.String("currency", req.Currency.String()),
		)
		return false
	}

	if !v.balances.HasSufficientBalance(req.SourceAccount, req.Amount, req.Currency) {
		v.logger.Debug("validation rejected: insufficient balance",
			zap.String("account", req.SourceAccount),
		)
		return false
	}

	return true
}
