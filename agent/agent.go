package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/middleware"
	"github.com/sweetpotato0/pinecone/pkg/logging"
	"github.com/sweetpotato0/pinecone/pkg/telemetry"
	"github.com/sweetpotato0/pinecone/tool"
	"github.com/sweetpotato0/pinecone/transcript"
)

// DefaultMaxIterations bounds the model/tool rounds of a single turn.
const DefaultMaxIterations = 10

// LLMClient defines the interface for LLM providers
type LLMClient interface {
	// Generate performs one non-streaming model round-trip
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// TokenCounter estimates prompt sizes for debug logging.
type TokenCounter interface {
	CountTokens(text string) int
}

// MessageCounter is a TokenCounter that also accounts for chat framing.
type MessageCounter interface {
	TokenCounter
	CountMessages(msgs []*message.Message) int
}

// Agent drives one LLM through a bounded tool-calling loop over its own transcript.
type Agent struct {
	name                 string
	systemPrompt         string
	responseInstructions string
	model                string
	maxIterations        int
	llm                  LLMClient
	tools                *tool.Registry
	transcript           *transcript.Transcript
	middlewares          *middleware.Chain
	tokens               TokenCounter
	logger               *slog.Logger
	tracer               trace.Tracer
}

// Option is a function that configures an Agent
type Option func(*Agent)

// WithName sets the agent name
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithSystemPrompt sets the system prompt
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = strings.TrimSpace(prompt)
	}
}

// WithResponseInstructions sets a trailing system message sent after the transcript
func WithResponseInstructions(text string) Option {
	return func(a *Agent) {
		a.responseInstructions = strings.TrimSpace(text)
	}
}

// WithModel sets the model name passed to the provider
func WithModel(model string) Option {
	return func(a *Agent) {
		a.model = model
	}
}

// WithMaxIterations sets the maximum iterations for tool calling
func WithMaxIterations(max int) Option {
	return func(a *Agent) {
		a.maxIterations = max
	}
}

// WithProvider sets the LLM provider
func WithProvider(provider LLMClient) Option {
	return func(a *Agent) {
		a.llm = provider
	}
}

// WithTools binds the agent's tool registry
func WithTools(registry *tool.Registry) Option {
	return func(a *Agent) {
		if registry != nil {
			a.tools = registry
		}
	}
}

// WithTokenCounter enables prompt size logging
func WithTokenCounter(counter TokenCounter) Option {
	return func(a *Agent) {
		a.tokens = counter
	}
}

// WithMiddleware adds a middleware to the agent
func WithMiddleware(m middleware.Middleware) Option {
	return func(a *Agent) {
		a.middlewares.Add(m)
	}
}

// WithMiddlewares sets the middleware chain
func WithMiddlewares(middlewares ...middleware.Middleware) Option {
	return func(a *Agent) {
		a.middlewares = middleware.NewChain(middlewares...)
	}
}

// New creates a new agent with the given options
func New(opts ...Option) *Agent {
	emptyTools, _ := tool.NewRegistry()
	agent := &Agent{
		name:          "agent",
		systemPrompt:  "You are a helpful AI assistant.",
		maxIterations: DefaultMaxIterations,
		tools:         emptyTools,
		transcript:    transcript.New(),
		middlewares:   middleware.NewChain(),
		tracer:        telemetry.Tracer("agent"),
	}

	for _, opt := range opts {
		opt(agent)
	}
	if agent.maxIterations <= 0 {
		agent.maxIterations = DefaultMaxIterations
	}
	agent.logger = logging.WithComponent("agent").With("agent", agent.name)

	return agent
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

// SystemPrompt returns the immutable system prompt
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// Tools returns the bound tool registry
func (a *Agent) Tools() *tool.Registry {
	return a.tools
}

// MaxIterations returns the per-turn iteration budget
func (a *Agent) MaxIterations() int {
	return a.maxIterations
}

// AddMessage appends messages to the transcript
func (a *Agent) AddMessage(msgs ...*message.Message) {
	a.transcript.Append(msgs...)
}

// GetMessages returns a snapshot of the transcript
func (a *Agent) GetMessages() []*message.Message {
	return a.transcript.Messages()
}

// Reset clears the transcript. The system prompt and tools are kept.
func (a *Agent) Reset() {
	a.transcript.Clear()
}

// Handle records input from sender and runs the agent until it produces a
// final answer. An empty sender defaults to "system".
func (a *Agent) Handle(ctx context.Context, input, sender string) (string, error) {
	if sender == "" {
		sender = string(message.RoleSystem)
	}

	mwCtx := middleware.NewContext(ctx)
	mwCtx.Agent = a.name
	mwCtx.Sender = sender
	mwCtx.Input = input

	err := a.middlewares.Execute(mwCtx, func(mwCtx *middleware.Context) error {
		a.transcript.Append(message.NewNamedMessage(message.RoleUser, sender, input))
		mwCtx.Messages = a.transcript.Messages()

		reply, err := a.Complete(mwCtx.Context())
		if err != nil {
			mwCtx.Error = err
			return err
		}
		mwCtx.Response = message.Clone(reply)
		return nil
	})
	if err != nil {
		return "", err
	}
	if mwCtx.Response == nil {
		return "", fmt.Errorf("agent %s: no response generated", a.name)
	}
	return mwCtx.Response.Content, nil
}

// Complete runs the tool loop against the current transcript without adding
// input. It returns the final assistant message.
func (a *Agent) Complete(ctx context.Context) (reply *message.Message, err error) {
	if a.llm == nil {
		return nil, fmt.Errorf("agent %s: %w: no LLM provider configured", a.name, errors.ErrInvalidInput)
	}

	ctx, span := a.tracer.Start(ctx, "agent.complete", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.Int("agent.max_iterations", a.maxIterations),
	))
	defer func() { telemetry.End(span, err) }()

	for i := 0; i < a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := &GenerateRequest{
			Model:    a.model,
			Messages: a.buildPrompt(),
			Tools:    a.tools.Schemas(),
		}
		a.logPrompt(ctx, i, req)

		resp, err := a.llm.Generate(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("agent %s: %w: %w", a.name, errors.ErrTransport, err)
		}
		if resp == nil || resp.Message == nil {
			return nil, fmt.Errorf("agent %s: %w: empty response", a.name, errors.ErrTransport)
		}
		// A reply that arrives after the deadline is dropped, not recorded.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply := resp.Message
		reply.Role = message.RoleAssistant
		reply.Name = a.name
		for j := range reply.ToolCalls {
			if reply.ToolCalls[j].ID == "" {
				reply.ToolCalls[j].ID = message.NewID()
			}
		}
		a.transcript.Append(reply)

		if len(reply.ToolCalls) == 0 {
			span.SetAttributes(attribute.Int("agent.iterations", i+1))
			return reply, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.runTools(ctx, reply.ToolCalls); err != nil {
			return nil, err
		}
	}

	a.logger.Warn("iteration budget exhausted", "max_iterations", a.maxIterations)
	return nil, fmt.Errorf("agent %s: %w (max %d iterations)", a.name, errors.ErrBudgetExceeded, a.maxIterations)
}

// runTools executes calls strictly in issue order. Tool failures become
// transcript text; only cancellation aborts the turn.
func (a *Agent) runTools(ctx context.Context, calls []message.ToolCall) error {
	for _, call := range calls {
		t, ok := a.tools.Resolve(call)
		if !ok {
			a.logger.Warn("unknown tool requested", "tool", call.Name)
			a.transcript.Append(message.NewToolResponseMessage(call.ID, call.Name,
				fmt.Sprintf("Unknown tool '%s'", call.Name)))
			continue
		}

		result, err := a.execTool(ctx, t, call)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			a.logger.Info("tool returned error", "tool", t.Name, "error", err)
			result = fmt.Sprintf("ToolError: %v", err)
		}
		a.transcript.Append(message.NewToolResponseMessage(call.ID, t.Name, result))
	}
	return nil
}

func (a *Agent) execTool(ctx context.Context, t *tool.Tool, call message.ToolCall) (result string, err error) {
	ctx, span := a.tracer.Start(ctx, "agent.tool", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.String("tool.name", t.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer func() { telemetry.End(span, err) }()

	return t.Execute(ctx, call.Args)
}

// buildPrompt assembles system prompt, transcript and trailing instructions.
func (a *Agent) buildPrompt() []*message.Message {
	history := a.transcript.Messages()
	msgs := make([]*message.Message, 0, len(history)+2)
	if a.systemPrompt != "" {
		msgs = append(msgs, message.NewMessage(message.RoleSystem, a.systemPrompt))
	}
	msgs = append(msgs, history...)
	if a.responseInstructions != "" {
		msgs = append(msgs, message.NewMessage(message.RoleSystem, a.responseInstructions))
	}
	return msgs
}

func (a *Agent) logPrompt(ctx context.Context, iteration int, req *GenerateRequest) {
	if !a.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []any{"iteration", iteration, "messages", len(req.Messages), "tools", len(req.Tools)}
	switch counter := a.tokens.(type) {
	case nil:
	case MessageCounter:
		attrs = append(attrs, "prompt_tokens", counter.CountMessages(req.Messages))
	default:
		total := 0
		for _, m := range req.Messages {
			total += counter.CountTokens(m.Content)
		}
		attrs = append(attrs, "prompt_tokens", total)
	}
	a.logger.DebugContext(ctx, "calling model", attrs...)
}
