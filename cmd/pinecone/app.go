package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/config"
	"github.com/sweetpotato0/pinecone/contrib/provider/claude"
	"github.com/sweetpotato0/pinecone/contrib/provider/gemini"
	"github.com/sweetpotato0/pinecone/contrib/provider/ollama"
	"github.com/sweetpotato0/pinecone/contrib/provider/openai"
	"github.com/sweetpotato0/pinecone/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/pinecone/middleware/errorhandler"
	"github.com/sweetpotato0/pinecone/middleware/logger"
	"github.com/sweetpotato0/pinecone/middleware/validator"
	"github.com/sweetpotato0/pinecone/pkg/logging"
	"github.com/sweetpotato0/pinecone/prompt"
	"github.com/sweetpotato0/pinecone/runtime"
	"github.com/sweetpotato0/pinecone/sandbox"
	"github.com/sweetpotato0/pinecone/session"
	"github.com/sweetpotato0/pinecone/tool"
	"github.com/sweetpotato0/pinecone/tool/builtin"
)

// maxInputChars bounds a single user message.
const maxInputChars = 20000

// defaultAgents are the sub-agents used when the configuration names none.
var defaultAgents = []runtime.AgentSpec{
	{Name: "finder", Description: "locates files", Tools: []string{builtin.ShellToolName}},
	{Name: "reader", Description: "reads files", Tools: []string{builtin.ReadToolName}},
}

// team is everything a running session needs.
type team struct {
	director *session.Director
	close    func()
}

// newLLM picks the configured provider.
func newLLM(ctx context.Context, cfg config.LLMConfig) (agent.LLMClient, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case config.ProviderOllama:
		p, err := ollama.New(&ollama.Config{
			Host:        cfg.Host,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	case config.ProviderOpenAI:
		return openai.New(&openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), noop, nil
	case config.ProviderClaude:
		return claude.New(&claude.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), noop, nil
	case config.ProviderGemini:
		p, err := gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, noop, err
		}
		return p, func() { _ = p.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newSandbox(cfg *config.Config) (*sandbox.Sandbox, error) {
	return sandbox.New(cfg.Root)
}

// newCatalog builds every tool a sub-agent may be given.
func newCatalog(cfg *config.Config, sb *sandbox.Sandbox) (*tool.Registry, error) {
	shell, err := builtin.NewShell(builtin.ShellConfig{
		Sandbox:         sb,
		AllowedCommands: cfg.Shell.AllowedCommands,
		Timeout:         cfg.Shell.Timeout,
		MaxOutputChars:  cfg.Shell.MaxOutputChars,
	})
	if err != nil {
		return nil, err
	}
	read, err := builtin.NewRead(builtin.ReadConfig{Sandbox: sb, MaxChars: cfg.Read.MaxChars})
	if err != nil {
		return nil, err
	}
	return tool.NewRegistry(shell, read)
}

// renderPrompt fills a spec's system prompt. A spec without one uses the
// built-in template of the same name.
func renderPrompt(prompts *prompt.Manager, spec runtime.AgentSpec, vars prompt.Vars) (string, error) {
	if spec.SystemPrompt != "" {
		return prompt.Render(spec.Name, spec.SystemPrompt, vars)
	}
	return prompts.Render(spec.Name, vars)
}

// buildTeam wires sandbox, tools, sub-agents, orchestrator and director.
func buildTeam(cfg *config.Config, llm agent.LLMClient, counter agent.TokenCounter) (*team, error) {
	sb, err := newSandbox(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := newCatalog(cfg, sb)
	if err != nil {
		return nil, err
	}

	prompts := prompt.NewDefaultManager()
	var common []agent.Option
	if counter != nil {
		common = append(common, agent.WithTokenCounter(counter))
	}

	specs := cfg.Agents
	if len(specs) == 0 {
		specs = defaultAgents
	}

	orch := session.NewOrchestrator(session.WithTimeout(cfg.Timeout), session.WithSender(prompt.Director))
	for _, spec := range specs {
		text, err := renderPrompt(prompts, spec, prompt.Vars{"Name": spec.Name, "Root": sb.Root()})
		if err != nil {
			return nil, fmt.Errorf("agent %s prompt: %w", spec.Name, err)
		}
		spec.SystemPrompt = text
		if spec.MaxIterations == 0 {
			spec.MaxIterations = cfg.MaxIterations
		}
		if spec.Model == "" {
			spec.Model = cfg.LLM.Model
		}
		ag, err := runtime.Build(spec, catalog, llm, common...)
		if err != nil {
			return nil, err
		}
		if err := orch.Register(ag); err != nil {
			return nil, err
		}
	}

	directorPrompt, err := prompts.Render(prompt.Director, prompt.Vars{
		"Name":    prompt.Director,
		"Root":    sb.Root(),
		"Members": orch.Members(),
	})
	if err != nil {
		return nil, err
	}

	log := logging.WithComponent("director")
	director, err := session.NewDirector(orch, llm, runtime.AgentSpec{
		Name:          prompt.Director,
		SystemPrompt:  directorPrompt,
		Model:         cfg.LLM.Model,
		MaxIterations: cfg.MaxIterations,
	}, append(common, agent.WithMiddlewares(
		errorhandler.NewErrorHandler(errorhandler.LogFatal(log)),
		logger.NewTurnLogger(log),
		validator.NewInputValidator(validator.NonEmpty(maxInputChars)),
		validator.NewResponseFilter(validator.Filters(validator.StripReasoning, validator.TrimResponse)),
	))...)
	if err != nil {
		return nil, err
	}

	return &team{director: director, close: func() {}}, nil
}

// newTeam resolves the provider and tokenizer, then builds the team.
func newTeam(ctx context.Context, cfg *config.Config) (*team, error) {
	llm, closeLLM, err := newLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	var counter agent.TokenCounter
	if logging.Logger().Enabled(ctx, slog.LevelDebug) {
		if tok, err := tiktoken.NewTiktokenTokenizer(cfg.LLM.Model); err == nil {
			counter = tok
		} else {
			logging.WithComponent("cli").Debug("token counting disabled", "error", err)
		}
	}

	t, err := buildTeam(cfg, llm, counter)
	if err != nil {
		closeLLM()
		return nil, err
	}
	t.close = closeLLM
	return t, nil
}
