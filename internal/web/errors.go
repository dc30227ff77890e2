package web

// errors.go maps pipeline errors to JSON error bodies.
//
// The technical error is logged with the request id; the client gets the
// core.MapError message and code.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownTable), errors.Is(err, core.ErrTableMissing):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTableEmpty), errors.Is(err, core.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrRuleConfig):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message with statusFor(err).
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
