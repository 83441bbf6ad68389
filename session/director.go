package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/runtime"
	"github.com/sweetpotato0/pinecone/tool"
	"github.com/sweetpotato0/pinecone/tool/builtin"
)

// UserSender names the human side of the master conversation.
const UserSender = "user"

// Director is the user-facing front of a team: it runs the director agent,
// lets it publish to the orchestrator's members, and keeps the master
// conversation.
type Director struct {
	exec         *runtime.AgentExecutor
	orchestrator *Orchestrator
	chat         *Conversation
}

// NewDirector builds the director agent from spec. The agent gets the
// publish tool bound to orch; spec.Tools defaults to just that tool.
func NewDirector(orch *Orchestrator, llm agent.LLMClient, spec runtime.AgentSpec, opts ...agent.Option) (*Director, error) {
	if orch == nil {
		return nil, fmt.Errorf("director: orchestrator is required")
	}
	if spec.Name == "" {
		spec.Name = orch.sender
	}
	if len(spec.Tools) == 0 {
		spec.Tools = []string{builtin.PublishToolName}
	}

	d := &Director{
		orchestrator: orch,
		chat:         NewConversation(),
	}

	publish, err := builtin.NewPublish(&recordingPublisher{director: d, name: spec.Name})
	if err != nil {
		return nil, err
	}
	catalog, err := tool.NewRegistry(publish)
	if err != nil {
		return nil, err
	}
	ag, err := runtime.Build(spec, catalog, llm, opts...)
	if err != nil {
		return nil, err
	}
	d.exec = runtime.NewAgentExecutor(ag)
	return d, nil
}

// Agent returns the director agent.
func (d *Director) Agent() *agent.Agent {
	return d.exec.Agent()
}

// Orchestrator returns the orchestrator the director publishes to.
func (d *Director) Orchestrator() *Orchestrator {
	return d.orchestrator
}

// Conversation returns the master conversation.
func (d *Director) Conversation() *Conversation {
	return d.chat
}

// Process handles one user message and returns the director's answer.
func (d *Director) Process(ctx context.Context, text string) (string, error) {
	d.chat.Append(ChatEntry{Sender: UserSender, Content: text})

	result, err := d.exec.Execute(ctx, &runtime.Request{Input: text, Sender: UserSender})
	if err != nil {
		return "", err
	}
	d.chat.Append(ChatEntry{Sender: d.exec.Agent().Name(), Content: result.Output})
	return result.Output, nil
}

// History renders the master conversation.
func (d *Director) History() string {
	return d.chat.Render()
}

// Reset clears the master conversation, every sub-agent and the director.
func (d *Director) Reset() {
	d.chat.Clear()
	d.orchestrator.Reset()
	d.exec.Agent().Reset()
}

// recordingPublisher forwards publishes to the orchestrator and mirrors
// them into the master conversation.
type recordingPublisher struct {
	director *Director
	name     string
}

func (p *recordingPublisher) Members() []string {
	return p.director.orchestrator.Members()
}

func (p *recordingPublisher) Publish(ctx context.Context, audience, request string) (string, error) {
	replies, err := p.director.orchestrator.Broadcast(ctx, audience, request)
	if err != nil {
		return "", err
	}

	p.director.chat.Append(ChatEntry{Sender: p.name, Target: strings.TrimSpace(audience), Content: request})
	for _, r := range replies {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		p.director.chat.Append(ChatEntry{Sender: r.Agent, Content: r.Content})
	}
	return Aggregate(replies), nil
}
