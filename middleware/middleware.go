// Package middleware wraps an agent turn (input recorded, tool loop run,
// answer produced) with pluggable behaviour such as logging and validation.
package middleware

import (
	"context"

	"github.com/sweetpotato0/pinecone/message"
)

// Context carries one turn through the chain.
type Context struct {
	Agent  string // agent handling the turn
	Sender string // who sent Input
	Input  string

	// Messages is the transcript snapshot once Input has been recorded.
	Messages []*message.Message
	// Response is the final assistant message; nil until the turn succeeds.
	Response *message.Message
	Error    error

	ctx context.Context
}

// NewContext starts a turn context bound to ctx.
func NewContext(ctx context.Context) *Context {
	return &Context{ctx: ctx}
}

// Context returns the request context, never nil.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Middleware intercepts a turn. Implementations call next to continue;
// returning without calling it short-circuits the turn.
type Middleware interface {
	Name() string
	Execute(ctx *Context, next Handler) error
}

// Handler continues the chain.
type Handler func(*Context) error

// Func adapts a plain function to Middleware.
type Func struct {
	Label string
	Fn    func(ctx *Context, next Handler) error
}

func (f Func) Name() string { return f.Label }

func (f Func) Execute(ctx *Context, next Handler) error { return f.Fn(ctx, next) }

// Chain runs middlewares in registration order around a final handler.
type Chain struct {
	middlewares []Middleware
}

// NewChain builds a chain, skipping nil entries.
func NewChain(middlewares ...Middleware) *Chain {
	c := &Chain{}
	for _, m := range middlewares {
		c.Add(m)
	}
	return c
}

// Add appends m. Nil is ignored.
func (c *Chain) Add(m Middleware) *Chain {
	if m != nil {
		c.middlewares = append(c.middlewares, m)
	}
	return c
}

// Len returns the number of middlewares.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Names lists middleware names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.middlewares))
	for i, m := range c.middlewares {
		names[i] = m.Name()
	}
	return names
}

// Execute wraps final with every middleware, outermost first.
func (c *Chain) Execute(ctx *Context, final Handler) error {
	h := final
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		m, next := c.middlewares[i], h
		h = func(ctx *Context) error { return m.Execute(ctx, next) }
	}
	return h(ctx)
}
