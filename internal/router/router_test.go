package router

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkrasnov-dev/paygate/internal/domain"
)

// mockGateway реализует gateway.Gateway для тестов роутера
type mockGateway struct {
	name        string
	commissions map[domain.Currency]decimal.Decimal
	available   bool
}

func (g *mockGateway) Name() string { return g.name }

func (g *mockGateway) GetCommission(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	c, ok := g.commissions[currency]
	if !ok {
		return decimal.Decimal{}, errors.New("commission not configured")
	}
	return c, nil
}

func (g *mockGateway) IsAvailable(ctx context.Context) bool { return g.available }

func (g *mockGateway) SupportsCurrency(currency domain.Currency) bool {
	_, ok := g.commissions[currency]
	return ok
}

func (g *mockGateway) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (bool, error) {
	return true, nil
}

func (g *mockGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	return true, nil
}

func commissionTable(pairs map[domain.Currency]string) map[domain.Currency]decimal.Decimal {
	table := make(map[domain.Currency]decimal.Decimal, len(pairs))
	for currency, value := range pairs {
		table[currency] = decimal.RequireFromString(value)
	}
	return table
}

func requestIn(currency domain.Currency) domain.PaymentRequest {
	return domain.PaymentRequest{
		Amount:             decimal.NewFromInt(100),
		Currency:           currency,
		SourceAccount:      "src",
		DestinationAccount: "dst",
	}
}

func TestRouter_SelectOptimal(t *testing.T) {
	ctx := context.Background()

	gatewayA := &mockGateway{
		name:      "GatewayA",
		available: true,
		commissions: commissionTable(map[domain.Currency]string{
			domain.CurrencyUSD: "0.01",
			domain.CurrencyEUR: "0.02",
		}),
	}
	gatewayB := &mockGateway{
		name:      "GatewayB",
		available: true,
		commissions: commissionTable(map[domain.Currency]string{
			domain.CurrencyEUR: "0.015",
			domain.CurrencyRUB: "0.025",
		}),
	}

	r := New(zap.NewNop(), gatewayA, gatewayB)

	t.Run("EUR routes to cheaper GatewayB", func(t *testing.T) {
		gw, err := r.SelectOptimal(ctx, requestIn(domain.CurrencyEUR))
		require.NoError(t, err)
		assert.Equal(t, "GatewayB", gw.Name())
	})

	t.Run("USD routes to GatewayA", func(t *testing.T) {
		gw, err := r.SelectOptimal(ctx, requestIn(domain.CurrencyUSD))
		require.NoError(t, err)
		assert.Equal(t, "GatewayA", gw.Name())
	})

	t.Run("unknown currency fails with ErrNoGatewayAvailable", func(t *testing.T) {
		gw, err := r.SelectOptimal(ctx, requestIn(domain.Currency("XXX")))
		assert.ErrorIs(t, err, ErrNoGatewayAvailable)
		assert.Nil(t, gw)
	})
}

func TestRouter_SelectOptimal_SkipsUnavailable(t *testing.T) {
	// GatewayA дешевле, но недоступен: выбор падает на GatewayB
	gatewayA := &mockGateway{
		name:        "GatewayA",
		available:   false,
		commissions: commissionTable(map[domain.Currency]string{domain.CurrencyUSD: "0.01"}),
	}
	gatewayB := &mockGateway{
		name:        "GatewayB",
		available:   true,
		commissions: commissionTable(map[domain.Currency]string{domain.CurrencyUSD: "0.03"}),
	}

	r := New(zap.NewNop(), gatewayA, gatewayB)

	gw, err := r.SelectOptimal(context.Background(), requestIn(domain.CurrencyUSD))
	require.NoError(t, err)
	assert.Equal(t, "GatewayB", gw.Name())
}

func TestRouter_SelectOptimal_TieBreakByRegistrationOrder(t *testing.T) {
	// При равных комиссиях выигрывает зарегистрированный раньше
	gatewayA := &mockGateway{
		name:        "GatewayA",
		available:   true,
		commissions: commissionTable(map[domain.Currency]string{domain.CurrencyUSD: "0.02"}),
	}
	gatewayB := &mockGateway{
		name:        "GatewayB",
		available:   true,
		commissions: commissionTable(map[domain.Currency]string{domain.CurrencyUSD: "0.02"}),
	}

	r := New(zap.NewNop(), gatewayA, gatewayB)

	gw, err := r.SelectOptimal(context.Background(), requestIn(domain.CurrencyUSD))
	require.NoError(t, err)
	assert.Equal(t, "GatewayA", gw.Name())
}

func TestRouter_SelectOptimal_AllUnavailable(t *testing.T) {
	gatewayA := &mockGateway{
		name:        "GatewayA",
		available:   false,
		commissions: commissionTable(map[domain.Currency]string{domain.CurrencyUSD: "0.01"}),
	}

	r := New(zap.NewNop(), gatewayA)

	_, err := r.SelectOptimal(context.Background(), requestIn(domain.CurrencyUSD))
	assert.ErrorIs(t, err, ErrNoGatewayAvailable)
}

func TestRouter_ByName(t *testing.T) {
	gatewayA := &mockGateway{
		name:        "GatewayA",
		available:   true,
		commissions: commissionTable(map[domain.Currency]string{domain.CurrencyUSD: "0.01"}),
	}

	r := New(zap.NewNop(), gatewayA)

	t.Run("exact match", func(t *testing.T) {
		gw, ok := r.ByName("GatewayA")
		assert.True(t, ok)
		assert.Equal(t, "GatewayA", gw.Name())
	})

	t.Run("absent name", func(t *testing.T) {
		gw, ok := r.ByName("GatewayZ")
		assert.False(t, ok)
		assert.Nil(t, gw)
	})
}
