package runtime

import (
	"fmt"

	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/prompt"
	"github.com/sweetpotato0/pinecone/tool"
)

// AgentSpec captures the immutable configuration for building an agent.
type AgentSpec struct {
	Name                 string   `yaml:"name"`
	Description          string   `yaml:"description"`
	SystemPrompt         string   `yaml:"system_prompt"`
	ResponseInstructions string   `yaml:"response_instructions"`
	Model                string   `yaml:"model"`
	MaxIterations        int      `yaml:"max_iterations"`
	Tools                []string `yaml:"tools"`
}

// Validate ensures the spec is well formed before building an agent.
func (s AgentSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("runtime: %w: agent spec name is required", errors.ErrInvalidInput)
	}
	if s.SystemPrompt == "" {
		return fmt.Errorf("runtime: %w: agent %s: system prompt is required", errors.ErrInvalidInput, s.Name)
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("runtime: %w: agent %s: max iterations must not be negative", errors.ErrInvalidInput, s.Name)
	}
	seen := make(map[string]bool, len(s.Tools))
	for _, name := range s.Tools {
		if seen[name] {
			return fmt.Errorf("runtime: %w: agent %s: tool %q listed twice", errors.ErrInvalidInput, s.Name, name)
		}
		seen[name] = true
	}
	return nil
}

// HasTool reports whether the spec binds the named tool.
func (s AgentSpec) HasTool(name string) bool {
	for _, t := range s.Tools {
		if t == name {
			return true
		}
	}
	return false
}

// Build constructs an agent from spec. Its tools are picked from catalog in
// the order the spec lists them; every name must exist in the catalog. The
// system prompt ends with a listing of the bound tools.
func Build(spec AgentSpec, catalog *tool.Registry, llm agent.LLMClient, opts ...agent.Option) (*agent.Agent, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if llm == nil {
		return nil, fmt.Errorf("runtime: %w: agent %s: llm client is required", errors.ErrInvalidInput, spec.Name)
	}

	bound, err := tool.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, name := range spec.Tools {
		var t *tool.Tool
		var ok bool
		if catalog != nil {
			t, ok = catalog.Get(name)
		}
		if !ok {
			return nil, fmt.Errorf("runtime: agent %s: %w %q", spec.Name, errors.ErrUnknownTool, name)
		}
		if err := bound.Register(t); err != nil {
			return nil, fmt.Errorf("runtime: agent %s: %w", spec.Name, err)
		}
	}

	base := []agent.Option{
		agent.WithName(spec.Name),
		agent.WithSystemPrompt(prompt.WithToolListing(spec.SystemPrompt, bound.List())),
		agent.WithResponseInstructions(spec.ResponseInstructions),
		agent.WithModel(spec.Model),
		agent.WithMaxIterations(spec.MaxIterations),
		agent.WithProvider(llm),
		agent.WithTools(bound),
	}
	return agent.New(append(base, opts...)...), nil
}
