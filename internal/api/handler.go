package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cryptoquote/internal/aggregate"
	"cryptoquote/internal/metrics"
	"cryptoquote/internal/provider"
)

// Quoter produces a quote for a symbol.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (aggregate.Quote, error)
}

const (
	msgUpstream  = "error communicating with external API"
	msgMalformed = "there is a problem, please try again later"
	msgCancelled = "request cancelled"
	msgInternal  = "internal server error"
)

// QuoteHandler serves GET .../{symbol}.
type QuoteHandler struct {
	quoter  Quoter
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewQuoteHandler(quoter Quoter, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *QuoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteHandler{quoter: quoter, timeout: timeout, logger: logger, metrics: m}
}

func (h *QuoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbol := provider.NormalizeSymbol(mux.Vars(r)["symbol"])

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	quote, err := h.quoter.GetQuote(ctx, symbol)
	if err != nil {
		status, message := StatusFor(err)
		kind := provider.Kind(err)
		h.metrics.QuoteFailed(kind)
		h.logger.Info("quote request failed",
			zap.String("symbol", symbol),
			zap.String("kind", kind),
			zap.Int("status", status),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		WriteErrorResponse(w, r, status, message, h.logger)
		return
	}

	WriteResponse(w, r, http.StatusOK, quote, h.logger)
}

// StatusFor maps a quote failure to the HTTP status and the message shown to
// the client. Upstream bodies and URLs never appear in the message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrCancelled):
		return http.StatusGatewayTimeout, msgCancelled
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		var upstream *provider.UpstreamError
		if errors.As(err, &upstream) && upstream.Provider != "" {
			return http.StatusServiceUnavailable, msgUpstream + ": " + upstream.Provider
		}
		return http.StatusServiceUnavailable, msgUpstream
	case errors.Is(err, provider.ErrMalformedResponse):
		return http.StatusInternalServerError, msgMalformed
	case errors.Is(err, provider.ErrInvalidSymbol):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, provider.ErrPriceNotFound),
		errors.Is(err, provider.ErrRatesUnavailable),
		errors.Is(err, provider.ErrRateMissing),
		errors.Is(err, provider.ErrMissingConfiguration):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
