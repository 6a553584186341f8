package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/fjod/storefront/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromCtx(r.Context()).Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts a service error to an HTTP response. Causes of
// unclassified errors are logged and never sent to the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		httpStatus int
		code       string
		message    = err.Error()
	)

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		httpStatus, code = http.StatusBadRequest, "invalid_request"
	case apperr.KindNotFound:
		httpStatus, code = http.StatusNotFound, "not_found"
	case apperr.KindRegionUnavailable:
		httpStatus, code = http.StatusUnprocessableEntity, "region_unavailable"
	case apperr.KindConflict:
		httpStatus, code = http.StatusConflict, "conflict"
	default:
		logger.FromCtx(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
		switch {
		case errors.Is(err, circuitbreaker.ErrUnavailable):
			httpStatus, code, message = http.StatusServiceUnavailable, "service_unavailable", "service temporarily unavailable"
		case errors.Is(err, context.DeadlineExceeded):
			httpStatus, code, message = http.StatusGatewayTimeout, "timeout", "request timed out"
		default:
			httpStatus, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
		}
	}

	respondError(w, r, httpStatus, code, message)
}

// decodeJSON reads a JSON body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
