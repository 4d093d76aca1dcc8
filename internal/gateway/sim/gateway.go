// Package sim содержит эталонную in-memory реализацию идемпотентного шлюза.
// Используется как референс современного контракта и как модель в тестах:
// имитирует сетевые задержки и распределение исходов реального провайдера.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// Пороги распределения исходов ProcessPayment
const (
	completedThreshold = 0.85 // [0.00, 0.85) — успех
	temporaryThreshold = 0.95 // [0.85, 0.95) — временная ошибка (retryable)
	// [0.95, 1.00) — недостаток средств (не retryable)

	availabilityProbability = 0.95

	defaultLatency = 50 * time.Millisecond
)

// Gateway реализует IdempotentGateway поверх in-memory хранилища
// Результаты фиксируются по transactionID/refundID: повторные вызовы,
// последовательные или конкурентные, возвращают закэшированный результат
type Gateway struct {
	name       string
	commission decimal.Decimal
	currencies map[domain.Currency]struct{}
	latency    time.Duration

	mu                sync.RWMutex
	processedPayments map[string]domain.PaymentResult
	processedRefunds  map[string]domain.RefundResult

	locksMu      sync.Mutex
	paymentLocks map[string]*sync.Mutex
	refundLocks  map[string]*sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// New создаёт шлюз с заданным именем, фиксированной комиссией и набором валют
// Источник случайности сеется текущим временем
func New(name string, commission decimal.Decimal, currencies ...domain.Currency) *Gateway {
	return NewWithSource(name, commission, rand.NewSource(time.Now().UnixNano()), defaultLatency, currencies...)
}

// NewWithSource создаёт шлюз с явным источником случайности и задержкой
// Используется в тестах, чтобы зафиксировать распределение исходов и не ждать
func NewWithSource(name string, commission decimal.Decimal, src rand.Source, latency time.Duration, currencies ...domain.Currency) *Gateway {
	supported := make(map[domain.Currency]struct{}, len(currencies))
	for _, c := range currencies {
		supported[c] = struct{}{}
	}
	return &Gateway{
		name:              name,
		commission:        commission,
		currencies:        supported,
		latency:           latency,
		processedPayments: make(map[string]domain.PaymentResult),
		processedRefunds:  make(map[string]domain.RefundResult),
		paymentLocks:      make(map[string]*sync.Mutex),
		refundLocks:       make(map[string]*sync.Mutex),
		rnd:               rand.New(src),
	}
}

func (g *Gateway) Name() string {
	return g.name
}

// GetCommission возвращает фиксированную комиссию шлюза
func (g *Gateway) GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	if err := g.sleep(ctx); err != nil {
		return decimal.Decimal{}, err
	}
	return g.commission, nil
}

// IsAvailable имитирует проверку доступности провайдера (true с вероятностью 0.95)
func (g *Gateway) IsAvailable(ctx context.Context) bool {
	if err := g.sleep(ctx); err != nil {
		return false
	}
	return g.sample() < availabilityProbability
}

func (g *Gateway) SupportsCurrency(currency domain.Currency) bool {
	_, ok := g.currencies[currency]
	return ok
}

// ProcessPayment проводит платёж идемпотентно по transactionID
// Double-checked lookup: читаем кэш до и после захвата per-id лока,
// симуляция выполняется ровно один раз на transactionID
func (g *Gateway) ProcessPayment(ctx context.Context, req domain.PaymentRequest, transactionID string) (domain.PaymentResult, error) {
	// Быстрый путь: результат уже зафиксирован
	if result, ok := g.cachedPayment(transactionID); ok {
		return result, nil
	}

	lock := g.paymentLock(transactionID)
	lock.Lock()
	defer lock.Unlock()

	// Перечитываем под локом: конкурент мог успеть зафиксировать результат
	if result, ok := g.cachedPayment(transactionID); ok {
		return result, nil
	}

	if err := g.sleep(ctx); err != nil {
		return domain.PaymentResult{}, err
	}

	result := g.simulatePayment(req, transactionID)

	g.mu.Lock()
	g.processedPayments[transactionID] = result
	g.mu.Unlock()

	return result, nil
}

// simulatePayment вычисляет исход платежа
// Неподдерживаемая валюта отсекается до расходования сэмпла случайности
func (g *Gateway) simulatePayment(req domain.PaymentRequest, transactionID string) domain.PaymentResult {
	if !g.SupportsCurrency(req.Currency) {
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentFailed,
			ErrorCode:    domain.ErrCodeUnsupportedCurrency,
			ErrorMessage: fmt.Sprintf("currency %s is not supported by %s", req.Currency, g.name),
			ProcessedAt:  time.Now().UTC(),
			IsRetryable:  false,
		}
	}

	roll := g.sample()
	switch {
	case roll < completedThreshold:
		actual := req.Amount.Sub(req.Amount.Mul(g.commission)).RoundBank(2)
		return domain.PaymentResult{
			IsSuccess:            true,
			GatewayTransactionID: fmt.Sprintf("%s_%s", g.name, transactionID),
			Status:               domain.PaymentCompleted,
			ProcessedAt:          time.Now().UTC(),
			ActualAmount:         actual,
			ProviderReference:    fmt.Sprintf("ref_%s", uuid.NewString()),
		}
	case roll < temporaryThreshold:
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentFailed,
			ErrorCode:    domain.ErrCodeTemporaryError,
			ErrorMessage: "temporary provider error, retry later",
			ProcessedAt:  time.Now().UTC(),
			IsRetryable:  true,
		}
	default:
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentFailed,
			ErrorCode:    domain.ErrCodeInsufficientFunds,
			ErrorMessage: "insufficient funds on source account",
			ProcessedAt:  time.Now().UTC(),
			IsRetryable:  false,
		}
	}
}

// PaymentStatus возвращает зафиксированный результат платежа
func (g *Gateway) PaymentStatus(ctx context.Context, transactionID string) (domain.PaymentResult, error) {
	if err := g.sleep(ctx); err != nil {
		return domain.PaymentResult{}, err
	}

	if result, ok := g.cachedPayment(transactionID); ok {
		return result, nil
	}

	return domain.PaymentResult{
		IsSuccess:    false,
		Status:       domain.PaymentFailed,
		ErrorCode:    domain.ErrCodeTransactionNotFound,
		ErrorMessage: fmt.Sprintf("transaction %s is not known to %s", transactionID, g.name),
		ProcessedAt:  time.Now().UTC(),
		IsRetryable:  false,
	}, nil
}

// Refund выполняет возврат идемпотентно по refundID
// Та же дисциплина double-checked lookup, что и у ProcessPayment
func (g *Gateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, refundID string) (domain.RefundResult, error) {
	if result, ok := g.cachedRefund(refundID); ok {
		return result, nil
	}

	lock := g.refundLock(refundID)
	lock.Lock()
	defer lock.Unlock()

	if result, ok := g.cachedRefund(refundID); ok {
		return result, nil
	}

	if err := g.sleep(ctx); err != nil {
		return domain.RefundResult{}, err
	}

	result := domain.RefundResult{
		IsSuccess:             true,
		GatewayRefundID:       fmt.Sprintf("%s_%s", g.name, refundID),
		Status:                domain.RefundCompleted,
		ProcessedAt:           time.Now().UTC(),
		RefundedAmount:        amount.RoundBank(2),
		OriginalTransactionID: transactionID,
	}

	g.mu.Lock()
	g.processedRefunds[refundID] = result
	g.mu.Unlock()

	return result, nil
}

// RefundStatus возвращает зафиксированный результат возврата
func (g *Gateway) RefundStatus(ctx context.Context, refundID string) (domain.RefundResult, error) {
	if err := g.sleep(ctx); err != nil {
		return domain.RefundResult{}, err
	}

	if result, ok := g.cachedRefund(refundID); ok {
		return result, nil
	}

	return domain.RefundResult{
		IsSuccess:    false,
		Status:       domain.RefundFailed,
		ErrorCode:    domain.ErrCodeRefundNotFound,
		ErrorMessage: fmt.Sprintf("refund %s is not known to %s", refundID, g.name),
		ProcessedAt:  time.Now().UTC(),
	}, nil
}

// CancelPayment отменяет платёж, если он ещё не достиг терминального статуса
// Симулируемые платежи фиксируются сразу, поэтому отмена возможна только
// для Pending/Processing; иначе — CANNOT_CANCEL с текущим статусом
func (g *Gateway) CancelPayment(ctx context.Context, transactionID string) (domain.PaymentResult, error) {
	if err := g.sleep(ctx); err != nil {
		return domain.PaymentResult{}, err
	}

	lock := g.paymentLock(transactionID)
	lock.Lock()
	defer lock.Unlock()

	current, ok := g.cachedPayment(transactionID)
	if !ok {
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       domain.PaymentFailed,
			ErrorCode:    domain.ErrCodeTransactionNotFound,
			ErrorMessage: fmt.Sprintf("transaction %s is not known to %s", transactionID, g.name),
			ProcessedAt:  time.Now().UTC(),
		}, nil
	}

	if current.Status != domain.PaymentPending && current.Status != domain.PaymentProcessing {
		return domain.PaymentResult{
			IsSuccess:    false,
			Status:       current.Status,
			ErrorCode:    domain.ErrCodeCannotCancel,
			ErrorMessage: fmt.Sprintf("payment in status %s cannot be cancelled", current.Status),
			ProcessedAt:  time.Now().UTC(),
		}, nil
	}

	cancelled := current
	cancelled.IsSuccess = false
	cancelled.Status = domain.PaymentCancelled
	cancelled.ProcessedAt = time.Now().UTC()

	g.mu.Lock()
	g.processedPayments[transactionID] = cancelled
	g.mu.Unlock()

	return cancelled, nil
}

func (g *Gateway) cachedPayment(transactionID string) (domain.PaymentResult, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	result, ok := g.processedPayments[transactionID]
	return result, ok
}

func (g *Gateway) cachedRefund(refundID string) (domain.RefundResult, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	result, ok := g.processedRefunds[refundID]
	return result, ok
}

// paymentLock возвращает per-id лок для transactionID (создаёт при первом обращении)
func (g *Gateway) paymentLock(transactionID string) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	lock, ok := g.paymentLocks[transactionID]
	if !ok {
		lock = &sync.Mutex{}
		g.paymentLocks[transactionID] = lock
	}
	return lock
}

// refundLock возвращает per-id лок для refundID (создаёт при первом обращении)
func (g *Gateway) refundLock(refundID string) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	lock, ok := g.refundLocks[refundID]
	if !ok {
		lock = &sync.Mutex{}
		g.refundLocks[refundID] = lock
	}
	return lock
}

// sample возвращает число из [0, 1); rand.Rand не потокобезопасен, поэтому под мьютексом
func (g *Gateway) sample() float64 {
	g.rndMu.Lock()
	defer g.rndMu.Unlock()
	return g.rnd.Float64()
}

// sleep имитирует сетевую задержку с учётом отмены контекста
func (g *Gateway) sleep(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
