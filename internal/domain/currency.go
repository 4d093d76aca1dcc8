package domain

import "fmt"

// Currency представляет валюту платежа
// Закрытый набор значений, расширяется добавлением констант
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyRUB Currency = "RUB"
)

// ParseCurrency разбирает строку в Currency
// Возвращает ошибку, если валюта не входит в поддерживаемый набор
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyUSD, CurrencyEUR, CurrencyRUB:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("unknown currency: %s", s)
	}
}

// IsValid проверяет, что валюта входит в поддерживаемый набор
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyRUB:
		return true
	default:
		return false
	}
}

func (c Currency) String() string {
	return string(c)
}
