package session

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/message"
)

type llmFunc func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error)

func (f llmFunc) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	return f(ctx, req)
}

func answer(text string) *agent.GenerateResponse {
	return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, text)}
}

// replyAfter answers text after delay, giving up early if ctx ends.
func replyAfter(text string, delay time.Duration) llmFunc {
	return func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
		select {
		case <-time.After(delay):
			return answer(text), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func newMember(name string, llm agent.LLMClient) *agent.Agent {
	return agent.New(
		agent.WithName(name),
		agent.WithSystemPrompt("You are "+name),
		agent.WithProvider(llm),
	)
}

func newTeam(t *testing.T, timeout time.Duration, finder, reader agent.LLMClient) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(WithTimeout(timeout))
	require.NoError(t, o.Register(newMember("finder", finder), newMember("reader", reader)))
	return o
}

func transcriptOf(t *testing.T, o *Orchestrator, name string) []*message.Message {
	t.Helper()
	ag, ok := o.Agent(name)
	require.True(t, ok)
	return ag.GetMessages()
}

func TestPublishAllOrderAndFanIn(t *testing.T) {
	o := newTeam(t, time.Second,
		replyAfter("found a.md", 40*time.Millisecond),
		replyAfter("a.md says hi", 0))

	out, err := o.Publish(context.Background(), "all", "summarize the docs")
	require.NoError(t, err)
	assert.Equal(t, "[finder]\nfound a.md\n\n[reader]\na.md says hi", out)

	finder := transcriptOf(t, o, "finder")
	require.Len(t, finder, 3)
	assert.Equal(t, "director", finder[0].Name)
	assert.Equal(t, "summarize the docs", finder[0].Content)
	assert.Equal(t, message.RoleAssistant, finder[1].Role)
	assert.Equal(t, "reader", finder[2].Name)
	assert.Equal(t, "a.md says hi", finder[2].Content)

	reader := transcriptOf(t, o, "reader")
	require.Len(t, reader, 3)
	assert.Equal(t, "finder", reader[2].Name)
	assert.Equal(t, "found a.md", reader[2].Content)

	for _, m := range finder {
		if m.Role == message.RoleUser {
			assert.NotEqual(t, "finder", m.Name, "member received its own reply")
		}
	}
}

func TestPublishRunsMembersConcurrently(t *testing.T) {
	o := newTeam(t, time.Second,
		replyAfter("a", 100*time.Millisecond),
		replyAfter("b", 100*time.Millisecond))

	start := time.Now()
	_, err := o.Publish(context.Background(), "all", "go")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 190*time.Millisecond)
}

func TestPublishSingleMemberStillFansOutToAll(t *testing.T) {
	var finderCalls int32
	finder := llmFunc(func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
		atomic.AddInt32(&finderCalls, 1)
		return answer("should not run"), nil
	})
	o := newTeam(t, time.Second, finder, replyAfter("read it", 0))

	out, err := o.Publish(context.Background(), "reader", "read a.md")
	require.NoError(t, err)
	assert.Equal(t, "[reader]\nread it", out)
	assert.Zero(t, atomic.LoadInt32(&finderCalls))

	finderMsgs := transcriptOf(t, o, "finder")
	require.Len(t, finderMsgs, 2)
	assert.Equal(t, "read a.md", finderMsgs[0].Content)
	assert.Equal(t, "reader", finderMsgs[1].Name)
	assert.Equal(t, "read it", finderMsgs[1].Content)

	assert.Len(t, transcriptOf(t, o, "reader"), 2)
}

func TestPublishTimeoutIsIsolated(t *testing.T) {
	o := newTeam(t, 50*time.Millisecond,
		replyAfter("too late", time.Second),
		replyAfter("on time", 0))

	out, err := o.Publish(context.Background(), "all", "hurry")
	require.NoError(t, err)
	assert.Equal(t, "[finder]\n<timeout after 0.05s>\n\n[reader]\non time", out)

	reader := transcriptOf(t, o, "reader")
	last := reader[len(reader)-1]
	assert.Equal(t, "finder", last.Name)
	assert.Equal(t, "<timeout after 0.05s>", last.Content)
}

func TestPublishAbandonsUncooperativeMember(t *testing.T) {
	stuck := llmFunc(func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
		time.Sleep(300 * time.Millisecond)
		return answer("ignored my deadline"), nil
	})
	o := newTeam(t, 30*time.Millisecond, stuck, replyAfter("fine", 0))

	start := time.Now()
	replies, err := o.Broadcast(context.Background(), "all", "go")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	require.Len(t, replies, 2)
	assert.True(t, replies[0].TimedOut)
	assert.True(t, errors.Is(replies[0].Err, errors.ErrTimeout))
	assert.Equal(t, "fine", replies[1].Content)

	// Once the stuck call returns, its reply must not reach finder's transcript.
	time.Sleep(400 * time.Millisecond)
	for _, msg := range transcriptOf(t, o, "finder") {
		assert.NotEqual(t, message.RoleAssistant, msg.Role, "late reply recorded: %q", msg.Content)
	}
}

func TestPublishErrorSentinel(t *testing.T) {
	broken := llmFunc(func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
		return nil, fmt.Errorf("connection refused")
	})
	o := newTeam(t, time.Second, broken, replyAfter("ok", 0))

	replies, err := o.Broadcast(context.Background(), "all", "go")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.True(t, errors.Is(replies[0].Err, errors.ErrTransport))
	assert.True(t, strings.HasPrefix(replies[0].Content, "<error: "))
	assert.Contains(t, replies[0].Content, "connection refused")
	assert.Equal(t, "ok", replies[1].Content)
}

func TestPublishEmptyReply(t *testing.T) {
	o := newTeam(t, time.Second, replyAfter("  ", 0), replyAfter("something", 0))

	out, err := o.Publish(context.Background(), "all", "go")
	require.NoError(t, err)
	assert.Equal(t, "[finder]\n<empty>\n\n[reader]\nsomething", out)

	reader := transcriptOf(t, o, "reader")
	assert.Equal(t, "<empty>", reader[len(reader)-1].Content)
}

func TestPublishAudienceErrors(t *testing.T) {
	o := newTeam(t, time.Second, replyAfter("a", 0), replyAfter("b", 0))

	_, err := o.Publish(context.Background(), "writer", "go")
	assert.True(t, errors.Is(err, errors.ErrUnknownAgent))
	assert.Empty(t, transcriptOf(t, o, "finder"), "rejected publish must not fan out")

	_, err = NewOrchestrator().Publish(context.Background(), "all", "go")
	assert.True(t, errors.Is(err, errors.ErrEmptyAudience))
}

func TestRegisterRejectsBadMembers(t *testing.T) {
	o := NewOrchestrator()
	require.NoError(t, o.Register(newMember("finder", replyAfter("", 0))))

	err := o.Register(newMember("finder", replyAfter("", 0)))
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))

	err = o.Register(newMember("all", replyAfter("", 0)))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	assert.Equal(t, []string{"finder"}, o.Members())
}

func TestOrchestratorReset(t *testing.T) {
	o := newTeam(t, time.Second, replyAfter("a", 0), replyAfter("b", 0))
	_, err := o.Publish(context.Background(), "all", "go")
	require.NoError(t, err)

	o.Reset()
	assert.Empty(t, transcriptOf(t, o, "finder"))
	assert.Empty(t, transcriptOf(t, o, "reader"))
}

func TestTimeoutSentinel(t *testing.T) {
	assert.Equal(t, "<timeout after 300s>", TimeoutSentinel(300*time.Second))
	assert.Equal(t, "<timeout after 1.5s>", TimeoutSentinel(1500*time.Millisecond))
}
