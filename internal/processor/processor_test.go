package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
	"github.com/dkrasnov-dev/paygate/internal/gateway"
	"github.com/dkrasnov-dev/paygate/internal/rates"
	"github.com/dkrasnov-dev/paygate/internal/retry"
	"github.com/dkrasnov-dev/paygate/internal/router"
	"github.com/dkrasnov-dev/paygate/internal/validation"
)

// MockSleeper реализует retry.Sleeper для тестов (не ждёт реального времени)
type MockSleeper struct{}

func (m *MockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// countingGateway реализует gateway.Gateway и считает вызовы ProcessPayment
type countingGateway struct {
	name        string
	commissions map[domain.Currency]decimal.Decimal
	available   bool
	// processFn получает порядковый номер вызова начиная с 1
	processFn   func(call int32) (bool, error)
	refundFn    func() (bool, error)
	calls       atomic.Int32
	refundCalls atomic.Int32
}

func (g *countingGateway) Name() string { return g.name }

func (g *countingGateway) GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	return g.commissions[currency], nil
}

func (g *countingGateway) IsAvailable(ctx context.Context) bool { return g.available }

func (g *countingGateway) SupportsCurrency(currency domain.Currency) bool {
	_, ok := g.commissions[currency]
	return ok
}

func (g *countingGateway) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (bool, error) {
	call := g.calls.Add(1)
	if g.processFn != nil {
		return g.processFn(call)
	}
	return true, nil
}

func (g *countingGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	g.refundCalls.Add(1)
	if g.refundFn != nil {
		return g.refundFn()
	}
	return true, nil
}

func newGatewayA() *countingGateway {
	return &countingGateway{
		name:      "GatewayA",
		available: true,
		commissions: map[domain.Currency]decimal.Decimal{
			domain.CurrencyUSD: decimal.RequireFromString("0.01"),
			domain.CurrencyEUR: decimal.RequireFromString("0.02"),
		},
	}
}

func newGatewayB() *countingGateway {
	return &countingGateway{
		name:      "GatewayB",
		available: true,
		commissions: map[domain.Currency]decimal.Decimal{
			domain.CurrencyEUR: decimal.RequireFromString("0.015"),
			domain.CurrencyRUB: decimal.RequireFromString("0.025"),
		},
	}
}

// newTestProcessor собирает процессор с реальными коллабораторами:
// валидатор с демо-балансами, статичные курсы, роутер над переданными шлюзами
func newTestProcessor(gateways ...gateway.Gateway) *Processor {
	logger := zap.NewNop()

	balances := validation.NewMemoryBalanceService()
	balances.SetBalance("1234567890", decimal.NewFromInt(50_000), domain.CurrencyUSD)
	validator := validation.New(logger, balances)

	rateService := rates.NewStaticService(logger, rates.NewMemoryCache())
	retryPolicy := retry.NewWithSleeper(logger, 3, &MockSleeper{})

	return New(logger, validator, router.New(logger, gateways...), rateService, retryPolicy)
}

func usdRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		Amount:             decimal.NewFromInt(100),
		Currency:           domain.CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
		Metadata:           map[string]string{},
	}
}

func TestProcessor_Process_ValidUSDPayment(t *testing.T) {
	gatewayA := newGatewayA()
	p := newTestProcessor(gatewayA, newGatewayB())

	tx, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	assert.Equal(t, "t1", tx.ID)
	assert.Equal(t, domain.TransactionProcessed, tx.Status)
	assert.Equal(t, "GatewayA", tx.GatewayUsed)
	assert.True(t, tx.Commission.Equal(decimal.RequireFromString("0.01")),
		"expected commission 0.01, got %s", tx.Commission)
	assert.Equal(t, int32(1), gatewayA.calls.Load())
}

func TestProcessor_Process_IdempotentReplay(t *testing.T) {
	gatewayA := newGatewayA()
	p := newTestProcessor(gatewayA)

	first, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	second, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	// Повторный вызов возвращает ту же запись с тем же timestamp,
	// дополнительной работы на шлюзе нет
	assert.Same(t, first, second)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, int32(1), gatewayA.calls.Load())
}

func TestProcessor_Process_ConcurrentDuplicates(t *testing.T) {
	gatewayA := newGatewayA()
	p := newTestProcessor(gatewayA)

	const workers = 10

	var wg sync.WaitGroup
	results := make([]*domain.Transaction, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Process(context.Background(), usdRequest(), "t2", "")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Фактическая работа выполнена ровно один раз,
	// все вызовы наблюдают одну и ту же запись
	assert.Equal(t, int32(1), gatewayA.calls.Load())
	for _, tx := range results {
		assert.Same(t, results[0], tx)
		assert.Equal(t, domain.TransactionProcessed, tx.Status)
	}
}

func TestProcessor_Process_RetryOnTransientFailure(t *testing.T) {
	gatewayA := newGatewayA()
	gatewayA.processFn = func(call int32) (bool, error) {
		if call < 3 {
			return false, errors.New("connection reset")
		}
		return true, nil
	}
	p := newTestProcessor(gatewayA)

	tx, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	// Две неудачи, успех на третьей попытке
	assert.Equal(t, domain.TransactionProcessed, tx.Status)
	assert.Equal(t, int32(3), gatewayA.calls.Load())
}

func TestProcessor_Process_FailsAfterExhaustedRetries(t *testing.T) {
	gatewayA := newGatewayA()
	gatewayA.processFn = func(call int32) (bool, error) {
		return false, errors.New("provider down")
	}
	p := newTestProcessor(gatewayA)

	tx, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	// Первая попытка + 3 повтора, ошибка записана в транзакцию
	assert.Equal(t, domain.TransactionFailed, tx.Status)
	assert.Equal(t, "provider down", tx.ErrorMessage)
	assert.Equal(t, int32(4), gatewayA.calls.Load())
}

func TestProcessor_Process_FailsOnFinalRejection(t *testing.T) {
	// false от шлюза ретраится и в итоге даёт Failed без текста исключения
	gatewayA := newGatewayA()
	gatewayA.processFn = func(call int32) (bool, error) {
		return false, nil
	}
	p := newTestProcessor(gatewayA)

	tx, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionFailed, tx.Status)
	assert.Empty(t, tx.ErrorMessage)
	assert.Equal(t, int32(4), gatewayA.calls.Load())
}

func TestProcessor_Process_CurrencyConversion(t *testing.T) {
	gatewayA := newGatewayA()
	gatewayB := newGatewayB()
	p := newTestProcessor(gatewayA, gatewayB)

	req := usdRequest()
	tx, err := p.Process(context.Background(), req, "t1", domain.CurrencyEUR)
	require.NoError(t, err)

	// 100 USD * 0.85 = 85 EUR; шлюз выбран для EUR (GatewayB дешевле)
	assert.Equal(t, domain.TransactionProcessed, tx.Status)
	assert.Equal(t, domain.CurrencyEUR, tx.Request.Currency)
	assert.True(t, tx.Request.Amount.Equal(decimal.RequireFromString("85")),
		"expected 85, got %s", tx.Request.Amount)
	assert.Equal(t, "GatewayB", tx.GatewayUsed)

	// Запрос вызывающего кода не изменился
	assert.Equal(t, domain.CurrencyUSD, req.Currency)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(100)))
}

func TestProcessor_Process_UnsupportedConversion(t *testing.T) {
	p := newTestProcessor(newGatewayA())

	// RUB → USD есть в таблице, а USD → XXX нет: ошибка уходит наружу,
	// транзакция становится Failed
	tx, err := p.Process(context.Background(), usdRequest(), "t1", domain.Currency("XXX"))
	assert.ErrorIs(t, err, rates.ErrUnsupportedConversion)
	require.NotNil(t, tx)
	assert.Equal(t, domain.TransactionFailed, tx.Status)
}

func TestProcessor_Process_NoGatewayAvailable(t *testing.T) {
	gatewayA := newGatewayA()
	gatewayA.available = false
	p := newTestProcessor(gatewayA)

	tx, err := p.Process(context.Background(), usdRequest(), "t1", "")
	assert.ErrorIs(t, err, router.ErrNoGatewayAvailable)
	require.NotNil(t, tx)
	assert.Equal(t, domain.TransactionFailed, tx.Status)
	assert.Equal(t, int32(0), gatewayA.calls.Load())
}

func TestProcessor_Process_ValidatorRejection(t *testing.T) {
	gatewayA := newGatewayA()
	p := newTestProcessor(gatewayA)

	req := usdRequest()
	req.Amount = decimal.Zero

	tx, err := p.Process(context.Background(), req, "t1", "")
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionFailed, tx.Status)
	assert.Equal(t, "Validation failed", tx.ErrorMessage)
	// До шлюза дело не дошло
	assert.Equal(t, int32(0), gatewayA.calls.Load())
	assert.Empty(t, tx.GatewayUsed)
}

func TestProcessor_Process_CancellationLeavesPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gatewayA := newGatewayA()
	gatewayA.processFn = func(call int32) (bool, error) {
		cancel() // отмена во время вызова шлюза
		return false, errors.New("interrupted")
	}
	p := newTestProcessor(gatewayA)

	tx, err := p.Process(ctx, usdRequest(), "t1", "")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, tx)

	// Транзакция остаётся в текущем статусе, повторов нет
	assert.Equal(t, domain.TransactionPending, tx.Status)
	assert.Equal(t, int32(1), gatewayA.calls.Load())
}

func TestProcessor_Refund(t *testing.T) {
	gatewayA := newGatewayA()
	p := newTestProcessor(gatewayA)

	_, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	t.Run("successful refund", func(t *testing.T) {
		tx, err := p.Refund(context.Background(), "t1", decimal.NewFromInt(50))
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionRefunded, tx.Status)
		assert.Equal(t, int32(1), gatewayA.refundCalls.Load())
	})

	t.Run("refund of refunded transaction fails", func(t *testing.T) {
		_, err := p.Refund(context.Background(), "t1", decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrCannotRefund)
	})

	t.Run("refund of unknown transaction fails", func(t *testing.T) {
		_, err := p.Refund(context.Background(), "missing", decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrCannotRefund)
	})
}

func TestProcessor_Refund_GatewayRejects(t *testing.T) {
	gatewayA := newGatewayA()
	gatewayA.refundFn = func() (bool, error) { return false, nil }
	p := newTestProcessor(gatewayA)

	_, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	// false от шлюза: запись не меняется
	tx, err := p.Refund(context.Background(), "t1", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionProcessed, tx.Status)
}

// stubRouter реализует GatewayRouter с пустым ByName
// для проверки ErrGatewayNotFound
type stubRouter struct {
	gw gateway.Gateway
}

func (r *stubRouter) SelectOptimal(ctx context.Context, req domain.PaymentRequest) (gateway.Gateway, error) {
	return r.gw, nil
}

func (r *stubRouter) ByName(name string) (gateway.Gateway, bool) { return nil, false }

func TestProcessor_Refund_GatewayNotFound(t *testing.T) {
	logger := zap.NewNop()

	balances := validation.NewMemoryBalanceService()
	balances.SetBalance("1234567890", decimal.NewFromInt(50_000), domain.CurrencyUSD)

	p := New(logger,
		validation.New(logger, balances),
		&stubRouter{gw: newGatewayA()},
		rates.NewStaticService(logger, rates.NewMemoryCache()),
		retry.NewWithSleeper(logger, 3, &MockSleeper{}),
	)

	_, err := p.Process(context.Background(), usdRequest(), "t1", "")
	require.NoError(t, err)

	// Шлюз транзакции исчез из пула
	_, err = p.Refund(context.Background(), "t1", decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrGatewayNotFound)
}

func TestProcessor_HandleNotification(t *testing.T) {
	p := newTestProcessor(newGatewayA())
	ctx := context.Background()

	_, err := p.Process(ctx, usdRequest(), "t1", "")
	require.NoError(t, err)

	t.Run("valid status overrides terminal record", func(t *testing.T) {
		p.HandleNotification(ctx, "t1", string(domain.TransactionRefunded))

		tx, ok := p.GetTransaction("t1")
		require.True(t, ok)
		assert.Equal(t, domain.TransactionRefunded, tx.Status)
	})

	t.Run("unknown status is ignored", func(t *testing.T) {
		p.HandleNotification(ctx, "t1", "EXPLODED")

		tx, _ := p.GetTransaction("t1")
		assert.Equal(t, domain.TransactionRefunded, tx.Status)
	})

	t.Run("unknown transaction is ignored", func(t *testing.T) {
		p.HandleNotification(ctx, "missing", string(domain.TransactionFailed))

		_, ok := p.GetTransaction("missing")
		assert.False(t, ok)
	})
}

func TestProcessor_Cleanup(t *testing.T) {
	p := newTestProcessor(newGatewayA())
	ctx := context.Background()

	_, err := p.Process(ctx, usdRequest(), "t1", "")
	require.NoError(t, err)
	_, err = p.Process(ctx, usdRequest(), "t2", "")
	require.NoError(t, err)

	// Локи обеих терминальных транзакций освобождаются,
	// записи журнала сохраняются
	removed := p.Cleanup()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, p.locks.size())

	_, ok := p.GetTransaction("t1")
	assert.True(t, ok)

	// Повторный replay после cleanup работает: лок пересоздаётся
	tx, err := p.Process(ctx, usdRequest(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionProcessed, tx.Status)
}
