package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, r, logger, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "conflict", "message": "username already taken", "fields": ["username"]}
//
// The one exception is a rejected registration, which returns the full
// validation result ({"result": false, "reason": [...], "password": [...]})
// so the client can show every problem at once.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/account-service/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string   `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string   `json:"message"` // Human-readable description
	Fields  []string `json:"fields,omitempty"`
}

// StatusClientClosedRequest is the non-standard 499 used when the client
// disconnects before the response is ready.
const StatusClientClosedRequest = 499

// MessageResponse is the body of a successful mutation with nothing to return.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body; once Encode writes, any
// header change is silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps the apperror taxonomy to HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer returns apperror values (possibly wrapped); errors.As
// walks the chain to find the *AppError for the message. Anything that is
// not an AppError is a store or crypto failure: it is logged here with the
// request id and the client only sees a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := statusFor(appErr)

		if appErr.Details != nil {
			writeJSON(w, status, appErr.Details)
			return
		}
		fields := appErr.Fields
		if len(fields) == 0 && appErr.Field != "" {
			fields = []string{appErr.Field}
		}
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Fields:  fields,
		})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{
			Error:   "timeout",
			Message: "Request timed out",
		})
		return
	}

	// The client hung up; nobody reads this body, so it is not an error.
	if errors.Is(err, context.Canceled) {
		logger.Info("request canceled by client",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		)
		writeJSON(w, StatusClientClosedRequest, ErrorResponse{
			Error:   "canceled",
			Message: "Request canceled",
		})
		return
	}

	// NEVER expose internal error details to the client: the raw message
	// might contain SQL or file paths.
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
