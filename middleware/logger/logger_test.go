package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/middleware"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestTurnLogger(t *testing.T) {
	t.Run("logs request and response", func(t *testing.T) {
		l, buf := newBufferLogger()
		mw := NewTurnLogger(l)

		ctx := &middleware.Context{Agent: "finder", Input: "list files"}
		err := mw.Execute(ctx, func(c *middleware.Context) error {
			c.Response = message.NewMessage(message.RoleAssistant, "done")
			return nil
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "turn started") || !strings.Contains(out, "turn completed") {
			t.Errorf("missing log lines: %s", out)
		}
		if !strings.Contains(out, "agent=finder") {
			t.Errorf("missing agent attribute: %s", out)
		}
	})

	t.Run("logs and returns errors", func(t *testing.T) {
		l, buf := newBufferLogger()
		mw := NewTurnLogger(l)

		want := errors.New("boom")
		err := mw.Execute(&middleware.Context{}, func(c *middleware.Context) error { return want })

		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
		if !strings.Contains(buf.String(), "turn failed") {
			t.Errorf("missing failure log: %s", buf.String())
		}
	})

	t.Run("nil logger falls back to process logger", func(t *testing.T) {
		mw := NewTurnLogger(nil)
		if err := mw.Execute(&middleware.Context{}, func(c *middleware.Context) error { return nil }); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
