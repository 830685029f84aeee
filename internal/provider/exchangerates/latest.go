package exchangerates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cryptoquote/internal/provider"
)

const (
	maxBodySize   = 1 << 20
	maxLoggedBody = 4 << 10
)

var _ provider.RateFetcher = (*Client)(nil)

// latestResponse is the /v1/latest payload. On failure the provider may
// answer 200 with success=false and an error object instead of rates.
// Member names are matched case-sensitively.
type latestResponse struct {
	Success *bool
	Error   *apiError
	Base    string
	Date    string
	Rates   map[string]*decimal.Decimal
}

func (r *latestResponse) UnmarshalJSON(data []byte) error {
	return provider.DecodeObject(data, map[string]any{
		"success": &r.Success,
		"error":   &r.Error,
		"base":    &r.Base,
		"date":    &r.Date,
		"rates":   &r.Rates,
	})
}

type apiError struct {
	Code json.RawMessage
	Type string
	Info string
}

func (e *apiError) UnmarshalJSON(data []byte) error {
	return provider.DecodeObject(data, map[string]any{
		"code": &e.Code,
		"type": &e.Type,
		"info": &e.Info,
	})
}

// FetchRates retrieves the USD multipliers for provider.QuoteCurrencies.
// The table is complete or the call fails.
func (c *Client) FetchRates(ctx context.Context, apiKey string) (provider.RateTable, error) {
	if apiKey == "" {
		return nil, errors.WithMessage(provider.ErrMissingConfiguration, "ExchangeRatesApiKey is empty")
	}

	// The symbols list goes out with literal commas, as documented by the provider.
	endpoint := fmt.Sprintf("%s/v1/latest?access_key=%s&symbols=%s",
		c.baseURL, url.QueryEscape(apiKey), provider.QuoteCurrencyList())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.TransportError(ctx, Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, provider.TransportError(ctx, Name, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("latest rates request failed",
			zap.Int("status", res.StatusCode),
			zap.String("error_info", errorInfo(body)))
		return nil, &provider.UpstreamError{Provider: Name, StatusCode: res.StatusCode}
	}

	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("decoding latest rates response",
			zap.Error(err),
			zap.ByteString("body", truncate(body)))
		return nil, &provider.MalformedResponseError{Provider: Name, Body: body, Err: err}
	}

	if payload.Rates == nil {
		fields := []zap.Field{}
		if payload.Error != nil {
			fields = append(fields, zap.String("error_type", payload.Error.Type), zap.String("error_info", payload.Error.Info))
		}
		c.logger.Warn("rates missing from response", fields...)
		return nil, errors.WithMessage(provider.ErrRatesUnavailable, "exchange rates missing from the API response")
	}

	table := make(provider.RateTable, len(provider.QuoteCurrencies))
	for _, currency := range provider.QuoteCurrencies {
		rate := payload.Rates[string(currency)]
		if rate == nil {
			c.logger.Warn("exchange rate not found in response", zap.String("currency", string(currency)))
			return nil, &provider.RateMissingError{Currency: currency}
		}
		table[currency] = *rate
	}

	return table, nil
}

// errorInfo extracts error.info from an error body, if any.
func errorInfo(body []byte) string {
	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == nil {
		return ""
	}
	return payload.Error.Info
}

func truncate(body []byte) []byte {
	if len(body) > maxLoggedBody {
		return body[:maxLoggedBody]
	}
	return body
}
