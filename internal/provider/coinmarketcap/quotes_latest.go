package coinmarketcap

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
	maxBodySize   = 4 << 20
	maxLoggedBody = 4 << 10
)

var _ provider.PriceFetcher = (*Client)(nil)

// quotesLatestResponse mirrors the subset of /v1/cryptocurrency/quotes/latest
// we read. Every level is optional so a missing segment is detected
// explicitly instead of surfacing as a zero price.
//
//	{
//	  "status": {"error_code": 0, "error_message": null},
//	  "data": {"BTC": {"quote": {"USD": {"price": 50000.12}}}}
//	}
//
// Member names are matched case-sensitively at every level.
type quotesLatestResponse struct {
	Status *apiStatus
	Data   map[string]*cryptoEntry
}

func (r *quotesLatestResponse) UnmarshalJSON(data []byte) error {
	return provider.DecodeObject(data, map[string]any{
		"status": &r.Status,
		"data":   &r.Data,
	})
}

type apiStatus struct {
	ErrorCode    int
	ErrorMessage string
}

func (s *apiStatus) UnmarshalJSON(data []byte) error {
	return provider.DecodeObject(data, map[string]any{
		"error_code":    &s.ErrorCode,
		"error_message": &s.ErrorMessage,
	})
}

type cryptoEntry struct {
	Quote map[string]*quoteEntry
}

func (e *cryptoEntry) UnmarshalJSON(data []byte) error {
	return provider.DecodeObject(data, map[string]any{"quote": &e.Quote})
}

type quoteEntry struct {
	Price *decimal.Decimal
}

func (q *quoteEntry) UnmarshalJSON(data []byte) error {
	return provider.DecodeObject(data, map[string]any{"price": &q.Price})
}

// usdPrice walks data.<symbol>.quote.USD.price.
func (r *quotesLatestResponse) usdPrice(symbol string) (decimal.Decimal, bool) {
	entry := r.Data[symbol]
	if entry == nil {
		return decimal.Decimal{}, false
	}
	usd := entry.Quote[string(provider.USD)]
	if usd == nil || usd.Price == nil {
		return decimal.Decimal{}, false
	}
	return *usd.Price, true
}

// FetchUSDPrice retrieves the latest USD price for symbol.
func (c *Client) FetchUSDPrice(ctx context.Context, symbol, apiKey string) (decimal.Decimal, error) {
	symbol = provider.NormalizeSymbol(symbol)
	if apiKey == "" {
		return decimal.Zero, errors.WithMessage(provider.ErrMissingConfiguration, "CoinMarketCapApiKey is empty")
	}

	query := url.Values{}
	query.Set("symbol", symbol)

	endpoint := fmt.Sprintf("%s/v1/cryptocurrency/quotes/latest?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "creating request")
	}
	req.Header = c.header.Clone()
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, provider.TransportError(ctx, Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return decimal.Zero, provider.TransportError(ctx, Name, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn("quotes request failed",
			zap.String("symbol", symbol),
			zap.Int("status", res.StatusCode),
			zap.String("error_message", statusMessage(body)))
		return decimal.Zero, &provider.UpstreamError{Provider: Name, StatusCode: res.StatusCode}
	}

	var payload quotesLatestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("decoding quotes response",
			zap.String("symbol", symbol),
			zap.Error(err),
			zap.ByteString("body", truncate(body)))
		return decimal.Zero, &provider.MalformedResponseError{Provider: Name, Body: body, Err: err}
	}

	price, ok := payload.usdPrice(symbol)
	if !ok {
		fields := []zap.Field{zap.String("symbol", symbol)}
		if payload.Status != nil && payload.Status.ErrorMessage != "" {
			fields = append(fields, zap.String("error_message", payload.Status.ErrorMessage))
		}
		c.logger.Warn("price data not found in response", fields...)
		return decimal.Zero, errors.Wrapf(provider.ErrPriceNotFound, "price data for %s not found in the API response", symbol)
	}
	if price.IsNegative() {
		c.logger.Warn("negative price in response", zap.String("symbol", symbol), zap.Stringer("price", price))
		return decimal.Zero, errors.Wrapf(provider.ErrPriceNotFound, "invalid price for %s", symbol)
	}

	return price, nil
}

// statusMessage extracts status.error_message from an error body, if any.
func statusMessage(body []byte) string {
	var payload quotesLatestResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Status == nil {
		return ""
	}
	return payload.Status.ErrorMessage
}

func truncate(body []byte) []byte {
	if len(body) > maxLoggedBody {
		return body[:maxLoggedBody]
	}
	return body
}
