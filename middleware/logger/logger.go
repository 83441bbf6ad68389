package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/pinecone/middleware"
	"github.com/sweetpotato0/pinecone/pkg/logging"
)

// TurnLogger logs the start and outcome of every agent turn
type TurnLogger struct {
	logger   *slog.Logger
	maxInput int
}

// NewTurnLogger creates a turn logging middleware. A nil logger uses the
// process logger.
func NewTurnLogger(logger *slog.Logger) *TurnLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &TurnLogger{logger: logger, maxInput: 200}
}

// Name returns the middleware name
func (m *TurnLogger) Name() string {
	return "TurnLogger"
}

// Execute logs the request and the response or error
func (m *TurnLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	start := time.Now()
	m.logger.Info("turn started", "agent", ctx.Agent, "sender", ctx.Sender, "input", preview(ctx.Input, m.maxInput))

	err := next(ctx)
	elapsed := time.Since(start)
	if err != nil {
		m.logger.Error("turn failed", "agent", ctx.Agent, "duration_ms", elapsed.Milliseconds(), "error", err)
		return err
	}

	attrs := []any{"agent", ctx.Agent, "duration_ms", elapsed.Milliseconds()}
	if ctx.Response != nil {
		attrs = append(attrs, "output_chars", len(ctx.Response.Content))
	}
	m.logger.Info("turn completed", attrs...)
	return nil
}

func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
