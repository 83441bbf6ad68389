package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func tracing(name string, trace *[]string, err error) Middleware {
	return Func{Label: name, Fn: func(ctx *Context, next Handler) error {
		*trace = append(*trace, name+">")
		if err != nil {
			return err
		}
		e := next(ctx)
		*trace = append(*trace, "<"+name)
		return e
	}}
}

func TestChainOrder(t *testing.T) {
	var trace []string
	chain := NewChain(tracing("outer", &trace, nil), nil, tracing("inner", &trace, nil))

	if chain.Len() != 2 {
		t.Fatalf("expected nil middleware to be skipped, got %d", chain.Len())
	}
	if got := strings.Join(chain.Names(), ","); got != "outer,inner" {
		t.Errorf("unexpected names %s", got)
	}

	err := chain.Execute(NewContext(context.Background()), func(*Context) error {
		trace = append(trace, "turn")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(trace, " "); got != "outer> inner> turn <inner <outer" {
		t.Errorf("unexpected order %q", got)
	}
}

func TestChainEmpty(t *testing.T) {
	ran := false
	if err := NewChain().Execute(&Context{}, func(*Context) error { ran = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("final handler was not executed")
	}
}

func TestChainShortCircuit(t *testing.T) {
	var trace []string
	boom := errors.New("rejected")
	chain := NewChain(tracing("guard", &trace, boom), tracing("after", &trace, nil))

	ran := false
	err := chain.Execute(&Context{}, func(*Context) error { ran = true; return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("expected guard error, got %v", err)
	}
	if ran || len(trace) != 1 {
		t.Errorf("turn must not run after a rejection, trace %v", trace)
	}
}

func TestChainSeesResponse(t *testing.T) {
	var sender string
	chain := NewChain(Func{Label: "peek", Fn: func(ctx *Context, next Handler) error {
		sender = ctx.Sender
		return next(ctx)
	}})
	ctx := NewContext(context.Background())
	ctx.Sender = "director"
	_ = chain.Execute(ctx, func(*Context) error { return nil })
	if sender != "director" {
		t.Errorf("expected sender director, got %q", sender)
	}
}

func TestContextFallback(t *testing.T) {
	if (&Context{}).Context() == nil {
		t.Error("zero Context should fall back to background context")
	}
}
