package aggregate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cryptoquote/internal/provider"
)

// Credentials are the upstream API keys, resolved once at startup.
type Credentials struct {
	CoinMarketCapAPIKey string
	ExchangeRatesAPIKey string
}

// validate names every missing key by its configuration name.
func (c Credentials) validate() error {
	var missing []string
	if c.CoinMarketCapAPIKey == "" {
		missing = append(missing, "CoinMarketCapApiKey")
	}
	if c.ExchangeRatesAPIKey == "" {
		missing = append(missing, "ExchangeRatesApiKey")
	}
	if len(missing) > 0 {
		return errors.WithMessagef(provider.ErrMissingConfiguration, "API key(s) not configured: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Quote is the value of one unit of a cryptocurrency in USD and every quote
// currency.
type Quote struct {
	Symbol string          `json:"-"`
	USD    decimal.Decimal `json:"usd"`
	EUR    decimal.Decimal `json:"eur"`
	BRL    decimal.Decimal `json:"brl"`
	GBP    decimal.Decimal `json:"gbp"`
	AUD    decimal.Decimal `json:"aud"`
}

// MarshalJSON writes the amounts as JSON numbers with full precision.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		USD json.Number `json:"usd"`
		EUR json.Number `json:"eur"`
		BRL json.Number `json:"brl"`
		GBP json.Number `json:"gbp"`
		AUD json.Number `json:"aud"`
	}{
		USD: json.Number(q.USD.String()),
		EUR: json.Number(q.EUR.String()),
		BRL: json.Number(q.BRL.String()),
		GBP: json.Number(q.GBP.String()),
		AUD: json.Number(q.AUD.String()),
	})
}

// In returns the amount for currency and whether the quote carries it.
func (q Quote) In(currency provider.Currency) (decimal.Decimal, bool) {
	switch currency {
	case provider.USD:
		return q.USD, true
	case provider.EUR:
		return q.EUR, true
	case provider.BRL:
		return q.BRL, true
	case provider.GBP:
		return q.GBP, true
	case provider.AUD:
		return q.AUD, true
	}
	return decimal.Decimal{}, false
}

// Service combines a USD price with exchange rates into a Quote.
type Service struct {
	creds      Credentials
	prices     provider.PriceFetcher
	rates      provider.RateFetcher
	logger     *zap.Logger
	sequential bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.Named("aggregate")
		}
	}
}

// WithSequentialFetch fetches the price and then the rates instead of both at
// once.
func WithSequentialFetch(sequential bool) Option {
	return func(s *Service) {
		s.sequential = sequential
	}
}

// New returns a Service using the given fetchers.
func New(creds Credentials, prices provider.PriceFetcher, rates provider.RateFetcher, opts ...Option) *Service {
	s := &Service{
		creds:  creds,
		prices: prices,
		rates:  rates,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuote returns the current quote for symbol. Either a complete Quote is
// returned or an error of exactly one provider failure kind.
func (s *Service) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	normalized := provider.NormalizeSymbol(symbol)
	if !provider.ValidSymbol(normalized) {
		return Quote{}, errors.Wrapf(provider.ErrInvalidSymbol, "%q", symbol)
	}
	if err := s.creds.validate(); err != nil {
		s.logger.Warn("quote rejected", zap.String("symbol", normalized), zap.Error(err))
		return Quote{}, err
	}
	if ctx.Err() != nil {
		return Quote{}, provider.Cancelled(ctx)
	}

	var (
		usd   decimal.Decimal
		rates provider.RateTable
		err   error
	)
	if s.sequential {
		usd, rates, err = s.fetchSequential(ctx, normalized)
	} else {
		usd, rates, err = s.fetchConcurrent(ctx, normalized)
	}
	if err == nil && ctx.Err() != nil {
		err = provider.Cancelled(ctx)
	}
	if err == nil {
		err = rates.Validate()
	}
	if err != nil {
		s.logger.Warn("quote failed",
			zap.String("symbol", normalized),
			zap.String("kind", provider.Kind(err)),
			zap.Error(err))
		return Quote{}, err
	}

	quote := Quote{
		Symbol: normalized,
		USD:    usd,
		EUR:    usd.Mul(rates[provider.EUR]),
		BRL:    usd.Mul(rates[provider.BRL]),
		GBP:    usd.Mul(rates[provider.GBP]),
		AUD:    usd.Mul(rates[provider.AUD]),
	}
	s.logger.Debug("quote computed", zap.String("symbol", normalized), zap.Stringer("usd", usd))
	return quote, nil
}

func (s *Service) fetchSequential(ctx context.Context, symbol string) (decimal.Decimal, provider.RateTable, error) {
	usd, err := s.prices.FetchUSDPrice(ctx, symbol, s.creds.CoinMarketCapAPIKey)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	rates, err := s.rates.FetchRates(ctx, s.creds.ExchangeRatesAPIKey)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	return usd, rates, nil
}

// fetchConcurrent runs both fetches at once. The first failure cancels the
// other fetch and is the one reported.
func (s *Service) fetchConcurrent(ctx context.Context, symbol string) (decimal.Decimal, provider.RateTable, error) {
	var (
		usd   decimal.Decimal
		rates provider.RateTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		usd, err = s.prices.FetchUSDPrice(gctx, symbol, s.creds.CoinMarketCapAPIKey)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = s.rates.FetchRates(gctx, s.creds.ExchangeRatesAPIKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Decimal{}, nil, err
	}
	return usd, rates, nil
}
