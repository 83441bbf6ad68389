package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/pkg/logging"
	"github.com/sweetpotato0/pinecone/pkg/telemetry"
	"github.com/sweetpotato0/pinecone/runner"
	"github.com/sweetpotato0/pinecone/runtime"
	"github.com/sweetpotato0/pinecone/tool/builtin"
)

const (
	// DefaultTimeout bounds each member's completion during a broadcast.
	DefaultTimeout = 300 * time.Second

	// DefaultSender names the author of broadcast requests.
	DefaultSender = "director"

	// EmptyReply stands in for a member that answered with no text.
	EmptyReply = "<empty>"
)

// Reply is one member's outcome in a broadcast.
type Reply struct {
	Agent    string
	Content  string // real answer or a sentinel
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Text returns the reply as it appears in transcripts and aggregates.
func (r Reply) Text() string {
	if strings.TrimSpace(r.Content) == "" {
		return EmptyReply
	}
	return r.Content
}

// Orchestrator owns a named, ordered set of sub-agents and broadcasts
// requests to them.
type Orchestrator struct {
	mu      sync.RWMutex
	order   []string
	members map[string]*runtime.AgentExecutor

	publishMu sync.Mutex
	sender    string
	timeout   time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTimeout sets the per-member completion timeout.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithSender sets the name broadcast requests are attributed to.
func WithSender(name string) OrchestratorOption {
	return func(o *Orchestrator) {
		if name != "" {
			o.sender = name
		}
	}
}

// NewOrchestrator creates an orchestrator with no members.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		members: make(map[string]*runtime.AgentExecutor),
		sender:  DefaultSender,
		timeout: DefaultTimeout,
		logger:  logging.WithComponent("orchestrator"),
		tracer:  telemetry.Tracer("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register adds sub-agents in order. Names must be unique and must not
// collide with the audience keyword.
func (o *Orchestrator) Register(agents ...*agent.Agent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, ag := range agents {
		if ag == nil || ag.Name() == "" {
			return fmt.Errorf("orchestrator: %w: agent must have a name", errors.ErrInvalidInput)
		}
		name := ag.Name()
		if name == builtin.AudienceAll {
			return fmt.Errorf("orchestrator: %w: %q is reserved", errors.ErrInvalidInput, name)
		}
		if _, exists := o.members[name]; exists {
			return fmt.Errorf("orchestrator: agent %s: %w", name, errors.ErrAlreadyExists)
		}
		o.members[name] = runtime.NewAgentExecutor(ag)
		o.order = append(o.order, name)
	}
	return nil
}

// Members returns sub-agent names in registration order.
func (o *Orchestrator) Members() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.order...)
}

// Agent returns the named sub-agent.
func (o *Orchestrator) Agent(name string) (*agent.Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	exec, ok := o.members[name]
	if !ok {
		return nil, false
	}
	return exec.Agent(), true
}

// Timeout returns the per-member completion timeout.
func (o *Orchestrator) Timeout() time.Duration {
	return o.timeout
}

// Reset clears every sub-agent transcript.
func (o *Orchestrator) Reset() {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, name := range o.order {
		o.members[name].Agent().Reset()
	}
}

// Resolve expands an audience into member names: "all" yields every member
// in registration order, anything else must be an exact member name.
func (o *Orchestrator) Resolve(audience string) ([]string, error) {
	audience = strings.TrimSpace(audience)
	o.mu.RLock()
	defer o.mu.RUnlock()

	if audience == builtin.AudienceAll {
		if len(o.order) == 0 {
			return nil, fmt.Errorf("orchestrator: %w", errors.ErrEmptyAudience)
		}
		return append([]string(nil), o.order...), nil
	}
	if _, ok := o.members[audience]; !ok {
		return nil, fmt.Errorf("orchestrator: %w %q", errors.ErrUnknownAgent, audience)
	}
	return []string{audience}, nil
}

// Publish broadcasts request and returns the aggregated replies. It
// implements builtin.Publisher.
func (o *Orchestrator) Publish(ctx context.Context, audience, request string) (string, error) {
	replies, err := o.Broadcast(ctx, audience, request)
	if err != nil {
		return "", err
	}
	return Aggregate(replies), nil
}

// Broadcast delivers request to every member, completes the audience
// concurrently, then shares each reply with every other member. Replies are
// returned in resolution order.
//
// A member that times out is abandoned, not stopped: its completion may
// keep running and appending to its own transcript after the sentinel has
// been recorded.
func (o *Orchestrator) Broadcast(ctx context.Context, audience, request string) (replies []Reply, err error) {
	names, err := o.Resolve(audience)
	if err != nil {
		return nil, err
	}

	o.publishMu.Lock()
	defer o.publishMu.Unlock()

	ctx, span := o.tracer.Start(ctx, "orchestrator.publish", trace.WithAttributes(
		attribute.String("publish.audience", audience),
		attribute.StringSlice("publish.members", names),
		attribute.Int64("publish.timeout_ms", o.timeout.Milliseconds()),
	))
	defer func() { telemetry.End(span, err) }()

	o.mu.RLock()
	all := make([]*runtime.AgentExecutor, 0, len(o.order))
	for _, name := range o.order {
		all = append(all, o.members[name])
	}
	targets := make([]*runtime.AgentExecutor, 0, len(names))
	for _, name := range names {
		targets = append(targets, o.members[name])
	}
	o.mu.RUnlock()

	// fan-out to every member, addressed or not
	for _, exec := range all {
		exec.Agent().AddMessage(message.NewNamedMessage(message.RoleUser, o.sender, request))
	}

	tasks := make([]*runner.Task, 0, len(targets))
	for _, exec := range targets {
		tasks = append(tasks, &runner.Task{
			ID: exec.Agent().Name(),
			Run: func(ctx context.Context) (string, error) {
				ctx, memberSpan := o.tracer.Start(ctx, "orchestrator.member",
					trace.WithAttributes(attribute.String("agent.name", exec.Agent().Name())))
				result, err := exec.Resume(ctx)
				telemetry.End(memberSpan, err)
				if err != nil {
					return "", err
				}
				return result.Output, nil
			},
		})
	}

	results := runner.NewParallelRunner(len(tasks), o.timeout).RunParallel(ctx, tasks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	replies = make([]Reply, len(results))
	for i, res := range results {
		reply := Reply{
			Agent:    res.TaskID,
			Content:  res.Output,
			Err:      res.Error,
			TimedOut: res.TimedOut,
			Duration: res.Duration,
		}
		switch {
		case res.TimedOut:
			reply.Content = TimeoutSentinel(o.timeout)
		case res.Error != nil:
			reply.Content = ErrorSentinel(res.Error)
		}
		o.logger.Info("member replied",
			"agent", reply.Agent,
			"duration_ms", reply.Duration.Milliseconds(),
			"timed_out", reply.TimedOut,
			"error", reply.Err)
		replies[i] = reply
	}

	// fan-in: each reply goes to every member except its author
	for _, reply := range replies {
		for _, exec := range all {
			if exec.Agent().Name() == reply.Agent {
				continue
			}
			exec.Agent().AddMessage(message.NewNamedMessage(message.RoleUser, reply.Agent, reply.Text()))
		}
	}

	return replies, nil
}

// Aggregate renders replies as "[name]\n<reply>" sections separated by a
// blank line.
func Aggregate(replies []Reply) string {
	sections := make([]string, 0, len(replies))
	for _, r := range replies {
		sections = append(sections, fmt.Sprintf("[%s]\n%s", r.Agent, r.Text()))
	}
	return strings.Join(sections, "\n\n")
}

// TimeoutSentinel is the reply recorded for a member that ran out of time.
func TimeoutSentinel(d time.Duration) string {
	return "<timeout after " + strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s>"
}

// ErrorSentinel is the reply recorded for a member whose completion failed.
func ErrorSentinel(err error) string {
	return fmt.Sprintf("<error: %v>", err)
}
