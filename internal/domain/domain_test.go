package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRequest_Clone(t *testing.T) {
	original := PaymentRequest{
		Amount:             decimal.NewFromInt(100),
		Currency:           CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
		Metadata:           map[string]string{"order": "42"},
	}

	clone := original.Clone()
	clone.Metadata["order"] = "mutated"

	// Метаданные не разделяются между копией и оригиналом
	assert.Equal(t, "42", original.Metadata["order"])
}

func TestPaymentRequest_WithConvertedAmount(t *testing.T) {
	original := PaymentRequest{
		Amount:             decimal.NewFromInt(100),
		Currency:           CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
	}

	converted := original.WithConvertedAmount(decimal.NewFromInt(85), CurrencyEUR)

	assert.True(t, converted.Amount.Equal(decimal.NewFromInt(85)))
	assert.Equal(t, CurrencyEUR, converted.Currency)
	assert.Equal(t, original.SourceAccount, converted.SourceAccount)

	// Оригинал не мутируется
	assert.True(t, original.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, CurrencyUSD, original.Currency)
}

func TestPaymentRequest_Validate(t *testing.T) {
	valid := PaymentRequest{
		Amount:             decimal.NewFromInt(100),
		Currency:           CurrencyUSD,
		SourceAccount:      "1234567890",
		DestinationAccount: "0987654321",
	}

	assert.NoError(t, valid.Validate())

	t.Run("non-positive amount", func(t *testing.T) {
		req := valid
		req.Amount = decimal.Zero
		assert.Error(t, req.Validate())
	})

	t.Run("unknown currency", func(t *testing.T) {
		req := valid
		req.Currency = Currency("GBP")
		assert.Error(t, req.Validate())
	})

	t.Run("missing accounts", func(t *testing.T) {
		req := valid
		req.SourceAccount = ""
		assert.Error(t, req.Validate())

		req = valid
		req.DestinationAccount = ""
		assert.Error(t, req.Validate())
	})
}

func TestParseCurrency(t *testing.T) {
	for _, s := range []string{"USD", "EUR", "RUB"} {
		c, err := ParseCurrency(s)
		require.NoError(t, err)
		assert.Equal(t, s, c.String())
	}

	_, err := ParseCurrency("usd")
	assert.Error(t, err)
}

func TestParseTransactionStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "PROCESSED", "FAILED", "REFUNDED"} {
		status, err := ParseTransactionStatus(s)
		require.NoError(t, err)
		assert.Equal(t, TransactionStatus(s), status)
	}

	_, err := ParseTransactionStatus("CHARGEBACK")
	assert.Error(t, err)
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, TransactionPending.IsTerminal())
	assert.True(t, TransactionProcessed.IsTerminal())
	assert.True(t, TransactionFailed.IsTerminal())
	assert.True(t, TransactionRefunded.IsTerminal())
}
