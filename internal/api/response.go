package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Err string `json:"error"`
}

func WriteResponse(w http.ResponseWriter, r *http.Request, status int, response any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(response); err != nil {
		logger.Error("write response error", zap.Stringer("url", r.URL), zap.Int("status", status), zap.Error(err))
	}
}

func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string, logger *zap.Logger) {
	WriteResponse(w, r, status, ErrorResponse{Err: message}, logger)
}
