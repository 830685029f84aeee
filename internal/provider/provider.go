package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -package=aggregate_test -destination=../aggregate/mock_fetchers_test.go -source=provider.go PriceFetcher,RateFetcher

// Currency is an ISO 4217 code as used by the upstream providers.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	BRL Currency = "BRL"
	GBP Currency = "GBP"
	AUD Currency = "AUD"
)

// QuoteCurrencies are the fiat currencies every quote is converted into, in
// the order they are requested from the rates provider.
var QuoteCurrencies = []Currency{EUR, BRL, GBP, AUD}

// QuoteCurrencyList renders QuoteCurrencies as a comma-separated list.
func QuoteCurrencyList() string {
	codes := make([]string, 0, len(QuoteCurrencies))
	for _, c := range QuoteCurrencies {
		codes = append(codes, string(c))
	}
	return strings.Join(codes, ",")
}

// RateTable maps a currency to its multiplier relative to USD.
type RateTable map[Currency]decimal.Decimal

// Validate reports the first quote currency missing from the table.
// A partial table is never usable.
func (t RateTable) Validate() error {
	for _, c := range QuoteCurrencies {
		if _, ok := t[c]; !ok {
			return &RateMissingError{Currency: c}
		}
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a cryptocurrency symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSymbol reports whether s is a non-empty run of ASCII letters and digits.
func ValidSymbol(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// PriceFetcher resolves the current USD price of a symbol.
type PriceFetcher interface {
	FetchUSDPrice(ctx context.Context, symbol, apiKey string) (decimal.Decimal, error)
}

// RateFetcher resolves USD exchange rates for QuoteCurrencies.
type RateFetcher interface {
	FetchRates(ctx context.Context, apiKey string) (RateTable, error)
}
