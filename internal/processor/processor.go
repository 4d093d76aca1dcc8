// Package processor владеет жизненным циклом транзакций: журнал, per-id
// взаимное исключение, идемпотентные process/refund, приём уведомлений.
package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
	"github.com/dkrasnov-dev/paygate/internal/retry"
)

var (
	// ErrCannotRefund возвращается, когда транзакция отсутствует
	// или её статус не Processed
	ErrCannotRefund = errors.New("transaction cannot be refunded")

	// ErrGatewayNotFound возвращается, когда шлюз транзакции
	// больше не зарегистрирован в роутере
	ErrGatewayNotFound = errors.New("gateway not found")

	// errGatewayRejected — внутренняя ошибка-обёртка для false от legacy-шлюза,
	// чтобы политика повторов видела отказ как повторяемую неудачу
	errGatewayRejected = errors.New("gateway rejected payment")
)

const validationFailedMessage = "Validation failed"

// Processor координирует обработку платежей: при конкурентных дубликатах
// с одним transactionID фактическая работа выполняется не более одного раза,
// остальные вызовы наблюдают терминальное состояние.
// Журнал транзакций живёт в памяти процесса
type Processor struct {
	logger    *zap.Logger
	validator Validator
	router    GatewayRouter
	rates     RateService
	retry     *retry.Policy

	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	locks        *lockTable
}

// New создаёт Processor с коллабораторами и политикой повторов
func New(logger *zap.Logger, validator Validator, router GatewayRouter, rates RateService, retryPolicy *retry.Policy) *Processor {
	return &Processor{
		logger:       logger,
		validator:    validator,
		router:       router,
		rates:        rates,
		retry:        retryPolicy,
		transactions: make(map[string]*domain.Transaction),
		locks:        newLockTable(),
	}
}

// Process обрабатывает платёж идемпотентно по transactionID
//
// Под per-id локом: читает-или-создаёт запись журнала; терминальная запись
// возвращается как есть (replay — без валидации, конвертации и шлюза);
// иначе валидация, опциональная конвертация в targetCurrency (пустая
// targetCurrency — без конвертации), выбор оптимального шлюза и вызов
// ProcessPayment через политику повторов.
// Запрос вызывающего кода не мутируется: журнал работает со снимком
func (p *Processor) Process(ctx context.Context, req domain.PaymentRequest, transactionID string, targetCurrency domain.Currency) (*domain.Transaction, error) {
	release, err := p.locks.acquire(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, created := p.readOrInsert(transactionID, req)

	if tx.Status.IsTerminal() {
		p.logger.Debug("idempotent replay, returning recorded transaction",
			zap.String("transaction_id", transactionID),
			zap.String("status", string(tx.Status)),
		)
		return tx, nil
	}

	if created {
		p.logger.Info("transaction created",
			zap.String("transaction_id", transactionID),
			zap.String("currency", tx.Request.Currency.String()),
			zap.String("amount", tx.Request.Amount.String()),
		)
	}

	// Валидация; отказ терминален для транзакции, но не ошибка для вызывающего
	if !p.validator.Validate(tx.Request) {
		tx.Status = domain.TransactionFailed
		tx.ErrorMessage = validationFailedMessage
		p.logger.Warn("validation failed",
			zap.String("transaction_id", transactionID),
		)
		return tx, nil
	}

	// Конвертация валюты: сумма умножается на курс, журнал хранит
	// конвертированные значения
	if targetCurrency != "" && targetCurrency != tx.Request.Currency {
		rate, rerr := p.rates.GetRate(ctx, tx.Request.Currency, targetCurrency)
		if rerr != nil {
			tx.Status = domain.TransactionFailed
			tx.ErrorMessage = rerr.Error()
			return tx, rerr
		}
		tx.Request = tx.Request.WithConvertedAmount(tx.Request.Amount.Mul(rate), targetCurrency)
		p.logger.Info("currency converted",
			zap.String("transaction_id", transactionID),
			zap.String("currency", targetCurrency.String()),
			zap.String("amount", tx.Request.Amount.String()),
		)
	}

	gw, err := p.router.SelectOptimal(ctx, tx.Request)
	if err != nil {
		tx.Status = domain.TransactionFailed
		tx.ErrorMessage = err.Error()
		return tx, err
	}

	commission, err := gw.GetCommission(ctx, tx.Request.Currency)
	if err != nil {
		tx.Status = domain.TransactionFailed
		tx.ErrorMessage = err.Error()
		return tx, nil
	}

	// GatewayUsed и Commission фиксируются до выхода статуса из Pending
	tx.GatewayUsed = gw.Name()
	tx.Commission = commission

	err = p.retry.Do(ctx, func(ctx context.Context) error {
		ok, perr := gw.ProcessPayment(ctx, tx.Request)
		if perr != nil {
			return perr
		}
		if !ok {
			return errGatewayRejected
		}
		return nil
	})

	switch {
	case err == nil:
		tx.Status = domain.TransactionProcessed
		p.logger.Info("payment processed",
			zap.String("transaction_id", transactionID),
			zap.String("gateway", tx.GatewayUsed),
		)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Отмена: транзакция остаётся в текущем статусе, ошибка уходит наружу
		p.logger.Warn("payment cancelled by caller",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		return tx, err
	case errors.Is(err, errGatewayRejected):
		tx.Status = domain.TransactionFailed
		p.logger.Warn("payment rejected by gateway",
			zap.String("transaction_id", transactionID),
			zap.String("gateway", tx.GatewayUsed),
		)
	default:
		tx.Status = domain.TransactionFailed
		tx.ErrorMessage = err.Error()
		p.logger.Error("payment failed",
			zap.String("transaction_id", transactionID),
			zap.String("gateway", tx.GatewayUsed),
			zap.Error(err),
		)
	}

	return tx, nil
}

// readOrInsert атомарно читает или создаёт запись журнала
// Новая запись публикуется в журнал уже с установленными ID и Timestamp
func (p *Processor) readOrInsert(transactionID string, req domain.PaymentRequest) (*domain.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tx, ok := p.transactions[transactionID]; ok {
		return tx, false
	}

	tx := &domain.Transaction{
		ID:        transactionID,
		Request:   req.Clone(),
		Status:    domain.TransactionPending,
		Timestamp: time.Now().UTC(),
	}
	p.transactions[transactionID] = tx
	return tx, true
}

// Refund выполняет возврат по транзакции в статусе Processed
// Возврат сериализуется тем же per-id локом, что и Process.
// true от шлюза — статус Refunded; false — запись не меняется;
// ошибка шлюза уходит наружу без изменения состояния
func (p *Processor) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*domain.Transaction, error) {
	release, err := p.locks.acquire(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	p.mu.RLock()
	tx, ok := p.transactions[transactionID]
	p.mu.RUnlock()
	if !ok || tx.Status != domain.TransactionProcessed {
		return nil, ErrCannotRefund
	}

	gw, ok := p.router.ByName(tx.GatewayUsed)
	if !ok {
		return nil, ErrGatewayNotFound
	}

	refunded, err := gw.Refund(ctx, transactionID, amount)
	if err != nil {
		return nil, err
	}
	if !refunded {
		p.logger.Warn("refund rejected by gateway",
			zap.String("transaction_id", transactionID),
			zap.String("gateway", tx.GatewayUsed),
		)
		return tx, nil
	}

	tx.Status = domain.TransactionRefunded
	p.logger.Info("transaction refunded",
		zap.String("transaction_id", transactionID),
		zap.String("amount", amount.String()),
	)
	return tx, nil
}

// HandleNotification применяет внеполосное обновление статуса от провайдера
// Внешняя истина авторитетна: это единственный путь, которым терминальная
// запись может сменить статус. Неизвестная транзакция или нераспознанный
// статус игнорируются, остаётся только запись в лог
func (p *Processor) HandleNotification(ctx context.Context, transactionID, status string) {
	p.mu.RLock()
	tx, ok := p.transactions[transactionID]
	p.mu.RUnlock()
	if !ok {
		p.logger.Info("notification for unknown transaction ignored",
			zap.String("transaction_id", transactionID),
			zap.String("status", status),
		)
		return
	}

	parsed, err := domain.ParseTransactionStatus(status)
	if err != nil {
		p.logger.Info("notification with unknown status ignored",
			zap.String("transaction_id", transactionID),
			zap.String("status", status),
		)
		return
	}

	release, err := p.locks.acquire(ctx, transactionID)
	if err != nil {
		p.logger.Warn("notification dropped, lock acquisition cancelled",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		return
	}
	defer release()

	previous := tx.Status
	tx.Status = parsed
	// Прежний статус фиксируется в логе для аудита
	p.logger.Info("transaction status overridden by notification",
		zap.String("transaction_id", transactionID),
		zap.String("previous_status", string(previous)),
		zap.String("new_status", string(parsed)),
	)
}

// GetTransaction возвращает запись журнала по ID
func (p *Processor) GetTransaction(transactionID string) (*domain.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.transactions[transactionID]
	return tx, ok
}

// Cleanup освобождает per-id локи терминальных транзакций
// Записи журнала сохраняются. Безопасен конкурентно с Process/Refund:
// захваченный или ожидаемый лок не удаляется
func (p *Processor) Cleanup() int {
	p.mu.RLock()
	terminal := make([]string, 0, len(p.transactions))
	for id, tx := range p.transactions {
		if tx.Status.IsTerminal() {
			terminal = append(terminal, id)
		}
	}
	p.mu.RUnlock()

	removed := 0
	for _, id := range terminal {
		if p.locks.removeIfIdle(id) {
			removed++
		}
	}

	if removed > 0 {
		p.logger.Debug("cleanup released transaction locks",
			zap.Int("removed", removed),
		)
	}
	return removed
}
