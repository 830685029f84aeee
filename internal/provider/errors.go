package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

// Failure kinds. Every error returned by a fetcher or the aggregator matches
// exactly one of these with errors.Is.
var (
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrMalformedResponse    = errors.New("malformed upstream response")
	ErrPriceNotFound        = errors.New("price not found")
	ErrRatesUnavailable     = errors.New("exchange rates not found")
	ErrRateMissing          = errors.New("exchange rate missing")
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrCancelled            = errors.New("operation cancelled")
	ErrInvalidSymbol        = errors.New("invalid symbol")
)

// UpstreamError is returned when a provider answers with a non-2xx status or
// cannot be reached at all (StatusCode is 0 then).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s unreachable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }
func (e *UpstreamError) Unwrap() error        { return e.Err }

// MalformedResponseError keeps the raw body for diagnostics. Body is
// absent from Error() so it never reaches an API caller.
type MalformedResponseError struct {
	Provider string
	Body     []byte
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Provider, e.Err)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }
func (e *MalformedResponseError) Unwrap() error        { return e.Err }

// RateMissingError names the currency absent from a rates payload.
type RateMissingError struct {
	Currency Currency
}

func (e *RateMissingError) Error() string {
	return fmt.Sprintf("exchange rate for %s not found", e.Currency)
}

func (e *RateMissingError) Is(target error) bool { return target == ErrRateMissing }

type cancelledError struct {
	cause error
}

func (e *cancelledError) Error() string        { return fmt.Sprintf("%v: %v", ErrCancelled, e.cause) }
func (e *cancelledError) Is(target error) bool { return target == ErrCancelled }
func (e *cancelledError) Unwrap() error        { return e.cause }

// Cancelled converts a context failure into the Cancelled kind. The context
// error stays reachable through errors.Is.
func Cancelled(ctx context.Context) error {
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	return &cancelledError{cause: cause}
}

// TransportError classifies an error from performing a request or reading its
// body. It is Cancelled when the caller's context is done and
// UpstreamUnavailable otherwise, client timeouts included. The request URL is
// dropped since it may carry an API key.
func TransportError(ctx context.Context, providerName string, err error) error {
	if ctx.Err() != nil {
		return Cancelled(ctx)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return &UpstreamError{Provider: providerName, Err: err}
}

// Kind returns a short stable label for the failure kind of err, used for
// logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrPriceNotFound):
		return "price_not_found"
	case errors.Is(err, ErrRatesUnavailable):
		return "rates_unavailable"
	case errors.Is(err, ErrRateMissing):
		return "rate_missing"
	case errors.Is(err, ErrMissingConfiguration):
		return "missing_configuration"
	case errors.Is(err, ErrInvalidSymbol):
		return "invalid_symbol"
	default:
		return "internal"
	}
}
