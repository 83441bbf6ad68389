package errorhandler

import (
	"log/slog"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(error) error

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(err)
	}
	return err
}

// Classify returns a short label for a turn-fatal error.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errors.ErrTransport):
		return "transport"
	case errors.Is(err, errors.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, errors.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// LogFatal records the error class and passes the error on unchanged.
func LogFatal(logger *slog.Logger) ErrorHandlerFunc {
	return func(err error) error {
		logger.Warn("turn aborted", "class", Classify(err), "error", err)
		return err
	}
}
