package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sweetpotato0/pinecone/config"
	"github.com/sweetpotato0/pinecone/pkg/logging"
	"github.com/sweetpotato0/pinecone/pkg/telemetry"
)

var version = "dev"

// CLI is the command line surface.
type CLI struct {
	Config    string        `short:"c" help:"YAML configuration file." type:"path"`
	Root      string        `help:"Workspace root the tools are confined to."`
	Provider  string        `help:"LLM provider (ollama, openai, claude, gemini)."`
	Model     string        `help:"Model name."`
	Host      string        `help:"Ollama host."`
	Timeout   time.Duration `help:"Per-agent broadcast timeout."`
	MaxSteps  int           `help:"Tool-loop iteration budget per turn."`
	LogLevel  string        `help:"Log level (debug, info, warn, error)." default:"warn" env:"PINECONE_LOG_LEVEL"`
	LogFormat string        `help:"Log format (text, json)." default:"text" enum:"text,json" env:"PINECONE_LOG_FORMAT"`
	Trace     bool          `help:"Export OpenTelemetry traces."`

	Chat    ChatCmd    `cmd:"" default:"withargs" help:"Start the interactive session."`
	Ask     AskCmd     `cmd:"" help:"Ask one question and exit."`
	Tools   ToolsCmd   `cmd:"" help:"Print the sub-agent tool schemas as JSON."`
	Version VersionCmd `cmd:"" help:"Print the version."`
}

// ChatCmd runs the REPL.
type ChatCmd struct {
	NoBanner bool `help:"Skip the welcome banner."`
}

// AskCmd answers a single question.
type AskCmd struct {
	Question []string `arg:"" help:"Question for the director."`
}

// ToolsCmd lists tool schemas.
type ToolsCmd struct{}

// VersionCmd prints the version.
type VersionCmd struct{}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("pinecone"),
		kong.Description("A director agent and its sub-agents investigating a local workspace."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

// load resolves configuration from file, environment and flags.
func (c *CLI) load() (*config.Config, error) {
	logging.SetLogger(logging.New(os.Stderr, c.LogLevel, c.LogFormat))

	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Root != "" {
		cfg.Root = c.Root
	}
	if c.Provider != "" {
		cfg.LLM.Provider = c.Provider
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if c.Host != "" {
		cfg.LLM.Host = c.Host
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.MaxSteps > 0 {
		cfg.MaxIterations = c.MaxSteps
	}
	if c.Trace {
		cfg.Trace.Enabled = true
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// start loads configuration, tracing and the team.
func (c *CLI) start(ctx context.Context) (*team, func(), error) {
	cfg, err := c.load()
	if err != nil {
		return nil, nil, err
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Trace.ServiceName,
		ServiceVersion: version,
		Disable:        !cfg.Trace.Enabled,
		Endpoint:       cfg.Trace.Endpoint,
		SampleRatio:    cfg.Trace.SampleRatio,
		Logger:         logging.WithComponent("telemetry"),
	})
	if err != nil {
		return nil, nil, err
	}

	t, err := newTeam(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	stop := func() {
		t.close()
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logging.WithComponent("telemetry").Warn("shutdown failed", "error", err)
		}
	}
	return t, stop, nil
}

func (cmd *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	t, stop, err := cli.start(ctx)
	if err != nil {
		return err
	}
	defer stop()

	r := newREPL(t.director, os.Stdin, os.Stdout)
	if !cmd.NoBanner {
		r.banner()
	}
	return r.run(ctx)
}

func (cmd *AskCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	t, stop, err := cli.start(ctx)
	if err != nil {
		return err
	}
	defer stop()

	answer, err := t.director.Process(ctx, strings.Join(cmd.Question, " "))
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func (cmd *ToolsCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	sb, err := newSandbox(cfg)
	if err != nil {
		return err
	}
	catalog, err := newCatalog(cfg, sb)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(catalog.Schemas())
}

func (cmd *VersionCmd) Run() error {
	fmt.Printf("pinecone %s\n", version)
	return nil
}
