package normalize

import (
	"math"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
)

// FallbackRateNote is attached to conversions that used the static table.
const FallbackRateNote = "Using approximate exchange rates"

var fallbackRates = map[[2]string]float64{
	{"USD", "EUR"}: 0.85,
	{"EUR", "USD"}: 1.18,
	{"USD", "GBP"}: 0.73,
	{"GBP", "USD"}: 1.37,
	{"USD", "JPY"}: 110.0,
	{"JPY", "USD"}: 0.0091,
	{"USD", "INR"}: 75.0,
	{"INR", "USD"}: 0.013,
	{"EUR", "GBP"}: 0.86,
	{"GBP", "EUR"}: 1.16,
	{"USD", "CAD"}: 1.25,
	{"CAD", "USD"}: 0.80,
	{"USD", "AUD"}: 1.35,
	{"AUD", "USD"}: 0.74,
}

// SameCurrency reports whether two codes name the same currency.
func SameCurrency(from, to string) bool {
	return strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to))
}

// Currency converts amount using the live rates in res, falling back to the
// static table. Same-currency conversions never consult res.
func Currency(res provider.Result, amount float64, from, to string) domain.CurrencyConversion {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if SameCurrency(from, to) {
		return domain.CurrencyConversion{
			OriginalAmount:  amount,
			FromCurrency:    from,
			ToCurrency:      to,
			ConvertedAmount: amount,
			ExchangeRate:    1.0,
			Source:          domain.CurrencySourceIdentity,
		}
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if f := res.Decode(&payload); f == nil {
		if rate, ok := payload.Rates[to]; ok && rate > 0 {
			return conversion(amount, from, to, rate, domain.CurrencySourceLive)
		}
	}
	return FallbackCurrency(amount, from, to)
}

// FallbackCurrency converts using the static rate table. Pairs missing from
// the table use the inverse of the reverse pair, or 1.0 as a last resort.
func FallbackCurrency(amount float64, from, to string) domain.CurrencyConversion {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if SameCurrency(from, to) {
		return Currency(provider.Result{}, amount, from, to)
	}
	rate, ok := fallbackRates[[2]string{from, to}]
	if !ok {
		if reverse, ok := fallbackRates[[2]string{to, from}]; ok {
			rate = 1 / reverse
		} else {
			rate = 1.0
		}
	}
	c := conversion(amount, from, to, rate, domain.CurrencySourceFallback)
	c.Note = FallbackRateNote
	c.IsSynthetic = true
	return c
}

// CurrencyConversion re-validates an already canonical value.
func CurrencyConversion(c domain.CurrencyConversion) domain.CurrencyConversion {
	c.FromCurrency = strings.ToUpper(c.FromCurrency)
	c.ToCurrency = strings.ToUpper(c.ToCurrency)
	if SameCurrency(c.FromCurrency, c.ToCurrency) {
		c.ConvertedAmount = c.OriginalAmount
		c.ExchangeRate = 1.0
		c.Source = domain.CurrencySourceIdentity
		return c
	}
	c.ConvertedAmount = round(c.ConvertedAmount, 2)
	c.ExchangeRate = round(c.ExchangeRate, 4)
	if c.Source == "" {
		c.Source = domain.CurrencySourceFallback
	}
	return c
}

func conversion(amount float64, from, to string, rate float64, source domain.CurrencySource) domain.CurrencyConversion {
	return domain.CurrencyConversion{
		OriginalAmount:  amount,
		FromCurrency:    from,
		ToCurrency:      to,
		ConvertedAmount: round(amount*rate, 2),
		ExchangeRate:    round(rate, 4),
		Source:          source,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
