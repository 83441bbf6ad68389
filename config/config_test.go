package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/runtime"
)

var envVars = []string{
	"PINECONE_ROOT", "PINECONE_PROVIDER", "PINECONE_MODEL", "OLLAMA_HOST",
	"PINECONE_BASE_URL", "PINECONE_API_KEY", "PINECONE_MAX_STEPS",
	"PINECONE_MAX_TOOL_CHARS", "PINECONE_TEMPERATURE", "PINECONE_TIMEOUT",
	"PINECONE_SHELL_TIMEOUT", "PINECONE_ALLOWED_COMMANDS", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pinecone.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderOllama || cfg.LLM.Model != "gpt-oss:20b" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.MaxIterations)
	}
	if cfg.Timeout != 300*time.Second {
		t.Errorf("Timeout = %s, want 300s", cfg.Timeout)
	}
	if !filepath.IsAbs(cfg.Root) {
		t.Errorf("Root should be absolute, got %s", cfg.Root)
	}
	if len(cfg.Shell.AllowedCommands) != 2 {
		t.Errorf("unexpected allow-list %v", cfg.Shell.AllowedCommands)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("WORKSPACE_DIR", root)

	path := writeFile(t, `
root: ${WORKSPACE_DIR}
max_iterations: 6
timeout: 45s
llm:
  provider: ollama
  model: llama3.1
  host: gpu-box:11434
shell:
  allowed_commands: [ls, find, rg]
  timeout: 10s
agents:
  - name: finder
    system_prompt: Find things.
    tools: [shell]
`)

	t.Setenv("PINECONE_MODEL", "qwen3")
	t.Setenv("PINECONE_TIMEOUT", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != root {
		t.Errorf("Root = %s, want %s", cfg.Root, root)
	}
	if cfg.MaxIterations != 6 {
		t.Errorf("MaxIterations = %d, want 6", cfg.MaxIterations)
	}
	if cfg.LLM.Model != "qwen3" {
		t.Errorf("env should override model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Host != "gpu-box:11434" {
		t.Errorf("Host = %s", cfg.LLM.Host)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %s, want 90s", cfg.Timeout)
	}
	if cfg.Shell.Timeout != 10*time.Second {
		t.Errorf("Shell.Timeout = %s, want 10s", cfg.Shell.Timeout)
	}
	if len(cfg.Shell.AllowedCommands) != 3 {
		t.Errorf("AllowedCommands = %v", cfg.Shell.AllowedCommands)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].Name != "finder" || cfg.Agents[0].Tools[0] != "shell" {
		t.Errorf("unexpected agents %+v", cfg.Agents)
	}
}

func TestLoadBadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINECONE_MAX_STEPS", "many")

	_, err := Load("")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "llm: [unclosed"))
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProviderAPIKeyFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINECONE_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-ant-test" {
		t.Fatalf("APIKey = %q", cfg.LLM.APIKey)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "cohere"
	cfg.MaxIterations = 0
	cfg.Shell.AllowedCommands = nil
	cfg.Agents = []runtime.AgentSpec{{Name: "finder"}, {Name: "finder"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	for _, field := range []string{"llm.provider", "max_iterations", "shell.allowed_commands", "agents[1].name"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s:\n%v", field, err)
		}
	}
}

func TestValidateRemoteProviderNeedsKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = ProviderOpenAI
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing api key error")
	}
	cfg.LLM.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetDuration(t *testing.T) {
	var d time.Duration
	t.Setenv("X_DURATION", "2m")
	if err := setDuration(&d, "X_DURATION"); err != nil || d != 2*time.Minute {
		t.Fatalf("got %s, %v", d, err)
	}
	t.Setenv("X_DURATION", "1.5")
	if err := setDuration(&d, "X_DURATION"); err != nil || d != 1500*time.Millisecond {
		t.Fatalf("got %s, %v", d, err)
	}
	t.Setenv("X_DURATION", "soon")
	if err := setDuration(&d, "X_DURATION"); err == nil {
		t.Fatal("expected error")
	}
}
