// Package app wires the upstream clients and the aggregator from config.
package app

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cryptoquote/internal/aggregate"
	"cryptoquote/internal/config"
	"cryptoquote/internal/httpx"
	"cryptoquote/internal/metrics"
	"cryptoquote/internal/provider/coinmarketcap"
	"cryptoquote/internal/provider/exchangerates"
)

// Components are the long-lived objects shared by the binaries.
type Components struct {
	Credentials aggregate.Credentials
	Prices      *coinmarketcap.Client
	Rates       *exchangerates.Client
	Quotes      *aggregate.Service
}

// Build creates the clients and the aggregator. m may be nil.
func Build(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	newHTTP := func(upstream string) *httpx.Client {
		return httpx.New(cfg.Upstream.Timeout,
			httpx.WithUserAgent(cfg.Upstream.UserAgent),
			httpx.WithRoundTripper(func(next http.RoundTripper) http.RoundTripper {
				return m.InstrumentUpstream(upstream, next)
			}),
		)
	}

	prices, err := coinmarketcap.NewClient(
		coinmarketcap.WithBaseURL(cfg.CoinMarketCap.BaseURL),
		coinmarketcap.WithHTTPClient(newHTTP(coinmarketcap.Name)),
		coinmarketcap.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "coinmarketcap client")
	}

	rates, err := exchangerates.NewClient(
		exchangerates.WithBaseURL(cfg.ExchangeRates.BaseURL),
		exchangerates.WithHTTPClient(newHTTP(exchangerates.Name)),
		exchangerates.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "exchangerates client")
	}

	creds := cfg.Credentials()
	if creds.CoinMarketCapAPIKey == "" || creds.ExchangeRatesAPIKey == "" {
		logger.Warn("API keys missing; quote requests will fail until configured",
			zap.Bool("coinmarketcap_key_set", creds.CoinMarketCapAPIKey != ""),
			zap.Bool("exchangerates_key_set", creds.ExchangeRatesAPIKey != ""))
	}

	quotes := aggregate.New(creds, prices, rates,
		aggregate.WithLogger(logger),
		aggregate.WithSequentialFetch(!cfg.Upstream.ConcurrentFetch),
	)

	return &Components{Credentials: creds, Prices: prices, Rates: rates, Quotes: quotes}, nil
}
