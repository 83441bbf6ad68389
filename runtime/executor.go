package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/pkg/logging"
)

// Request captures the inputs required to execute a turn.
type Request struct {
	Input  string
	Sender string
}

// TurnResult captures the outcome of a single executor run.
type TurnResult struct {
	Agent       string
	Output      string
	Messages    []*message.Message // messages appended during this turn
	LastMessage *message.Message
	Duration    time.Duration
}

// Executor defines the contract for runtime executors.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*TurnResult, error)
}

// AgentExecutor runs turns against a long-lived agent. The agent keeps its
// transcript between turns.
type AgentExecutor struct {
	agent  *agent.Agent
	logger *slog.Logger
}

// NewAgentExecutor constructs a new runtime executor backed by ag.
func NewAgentExecutor(ag *agent.Agent) *AgentExecutor {
	if ag == nil {
		panic("runtime: agent cannot be nil")
	}
	return &AgentExecutor{
		agent:  ag,
		logger: logging.WithComponent("executor").With("agent", ag.Name()),
	}
}

// Agent returns the wrapped agent.
func (e *AgentExecutor) Agent() *agent.Agent {
	return e.agent
}

// Execute delivers the request input to the agent and runs it to a final answer.
func (e *AgentExecutor) Execute(ctx context.Context, req *Request) (*TurnResult, error) {
	if req == nil {
		return nil, fmt.Errorf("runtime: %w: request cannot be nil", errors.ErrInvalidInput)
	}
	if req.Input == "" {
		return nil, fmt.Errorf("runtime: %w: input cannot be empty", errors.ErrInvalidInput)
	}
	return e.run(ctx, "turn", func(ctx context.Context) (string, error) {
		return e.agent.Handle(ctx, req.Input, req.Sender)
	})
}

// Resume runs the agent against messages already delivered to its
// transcript, without adding input.
func (e *AgentExecutor) Resume(ctx context.Context) (*TurnResult, error) {
	return e.run(ctx, "resume", func(ctx context.Context) (string, error) {
		reply, err := e.agent.Complete(ctx)
		if err != nil {
			return "", err
		}
		return reply.Content, nil
	})
}

func (e *AgentExecutor) run(ctx context.Context, mode string, fn func(context.Context) (string, error)) (*TurnResult, error) {
	before := len(e.agent.GetMessages())
	e.logger.Debug("executor running", "mode", mode, "history", before)

	start := time.Now()
	output, err := fn(ctx)
	duration := time.Since(start)
	if err != nil {
		e.logger.Error("executor run failed", "mode", mode, "error", err, "duration_ms", duration.Milliseconds())
		return nil, err
	}
	e.logger.Debug("executor run completed", "mode", mode, "duration_ms", duration.Milliseconds())

	all := e.agent.GetMessages()
	var added []*message.Message
	if before <= len(all) {
		added = message.CloneMessages(all[before:])
	}
	var last *message.Message
	if len(added) > 0 {
		last = message.Clone(added[len(added)-1])
	}

	return &TurnResult{
		Agent:       e.agent.Name(),
		Output:      output,
		Messages:    added,
		LastMessage: last,
		Duration:    duration,
	}, nil
}
