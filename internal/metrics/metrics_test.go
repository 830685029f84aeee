package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"cryptoquote/internal/metrics"
)

func scrape(t *testing.T, g prometheus.Gatherer) string {
	t.Helper()

	rec := httptest.NewRecorder()
	metrics.Handler(g).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNew_RegistersOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	// Assert: a second registration on the same registry is rejected
	_, err = metrics.New(reg)
	require.Error(t, err)
}

func TestObserveRequest(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.ObserveRequest("/cryptoquote/{symbol}", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest("/cryptoquote/{symbol}", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("/cryptoquote/{symbol}", http.StatusNotFound, time.Millisecond)
	m.QuoteFailed("price_not_found")

	body := scrape(t, reg)
	require.Contains(t, body, `cryptoquote_http_requests_total{code="200",route="/cryptoquote/{symbol}"} 2`)
	require.Contains(t, body, `cryptoquote_http_requests_total{code="404",route="/cryptoquote/{symbol}"} 1`)
	require.Contains(t, body, `cryptoquote_http_request_duration_seconds_count{route="/cryptoquote/{symbol}"} 3`)
	require.Contains(t, body, `cryptoquote_quote_failures_total{kind="price_not_found"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveRequest("/", http.StatusOK, time.Second)
		m.QuoteFailed("internal")
	})
	require.Equal(t, http.DefaultTransport, m.InstrumentUpstream("x", http.DefaultTransport))
}

func TestInstrumentUpstream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	client := &http.Client{Transport: m.InstrumentUpstream("coinmarketcap", http.DefaultTransport)}
	res, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = res.Body.Close()

	body := scrape(t, reg)
	require.Contains(t, body, `cryptoquote_upstream_requests_total{code="429",upstream="coinmarketcap"} 1`)
	require.Contains(t, body, `cryptoquote_upstream_request_duration_seconds_count{upstream="coinmarketcap"} 1`)
}
