// internal/app/features/errors/errors.go
//
// Package errors renders API errors as JSON. Workflow errors carry an
// apperr kind that selects the status code; anything else is a 500.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Status maps an error kind to its HTTP status.
func Status(err error) int {
	switch {
	case stderrors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case stderrors.Is(err, apperr.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the error payload: {"detail": "...", "<field>": [...]}.
func Body(e *apperr.Error) map[string]any {
	out := map[string]any{"detail": e.Msg}
	for _, k := range e.FieldNames() {
		out[k] = e.Fields[k]
	}
	return out
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ErrorLogger renders errors and logs the ones operators should see.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorLogger{log: log}
}

// Respond renders err. Classified errors are shown to the caller as is;
// external failures are logged, everything else goes to LogServerError.
func (l *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e, ok := apperr.As(err)
	if !ok {
		l.LogServerError(w, r, msg, err, "An unexpected error occurred.")
		return
	}
	status := Status(err)
	if status == http.StatusBadGateway {
		l.log.Warn(msg, l.fields(r, err)...)
	}
	WriteJSON(w, status, Body(e))
}

// LogServerError logs err and answers 500 with userMsg.
func (l *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	l.log.Error(msg, l.fields(r, err)...)
	WriteJSON(w, http.StatusInternalServerError, map[string]any{"detail": userMsg})
}

func (l *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
}
