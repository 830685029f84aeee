// Package api exposes quotes over HTTP.
package api

import (
	"compress/gzip"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"cryptoquote/internal/metrics"
)

// Config holds the HTTP surface settings.
type Config struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	// MetricsPath is where MetricsHandler is mounted. Nothing is mounted when
	// MetricsHandler is nil.
	MetricsPath    string
	MetricsHandler http.Handler
}

// NewHandler builds the router with all middlewares applied.
func NewHandler(cfg Config, quoter Quoter, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter().StrictSlash(true)
	router.Use(withObservability(logger, m))

	quotes := NewQuoteHandler(quoter, cfg.RequestTimeout, logger, m)
	router.Handle("/cryptoquote/{symbol}", quotes).Methods(http.MethodGet)
	router.Handle("/api/v1/quotes/{symbol}", quotes).Methods(http.MethodGet)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet, http.MethodHead)

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, cfg.MetricsHandler).Methods(http.MethodGet)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteErrorResponse(w, r, http.StatusNotFound, "not found", logger)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed", logger)
	})

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
	)

	// Compression wraps recovery so a recovered error body is compressed too.
	compressed := handlers.CompressHandlerLevel(recoverPanic(logger)(router), gzip.BestSpeed)

	return cors(withRequestID(compressed))
}
