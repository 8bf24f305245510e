package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/billing"
	"github.com/philipparndt/modelforge/internal/chat"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/transform"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeUnauthorized   = "UNAUTHORIZED"
	codeForbidden      = "FORBIDDEN"
	codeNotFound       = "NOT_FOUND"
	codeUnprocessable  = "UNPROCESSABLE"
	codeRateLimited    = "RATE_LIMITED"
	codeUnavailable    = "SERVICE_UNAVAILABLE"
	codeInternal       = "INTERNAL_ERROR"
)

// Response is the envelope of every JSON answer
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data, Timestamp: time.Now()})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response{
		Success:   false,
		Error:     &ErrorInfo{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

// classify maps domain errors onto a status and error code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, gallery.ErrNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, billing.ErrNoCustomer):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, gallery.ErrUnsupportedFormat),
		errors.Is(err, gallery.ErrInvalidModel),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, gallery.ErrReadOnly),
		errors.Is(err, billing.ErrForeign):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, operation.ErrNotImplemented),
		errors.Is(err, geometry.ErrEmptyMesh),
		errors.Is(err, transform.ErrTooComplex):
		return http.StatusUnprocessableEntity, codeUnprocessable
	case errors.Is(err, billing.ErrDisabled):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
