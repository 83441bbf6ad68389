// Package config loads runtime settings. Sources are applied in order:
// built-in defaults, an optional YAML file, .env files, then PINECONE_*
// environment variables. Command-line flags are applied by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/runtime"
	"github.com/sweetpotato0/pinecone/tool/builtin"
)

// Supported LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Providers lists every supported provider name.
var Providers = []string{ProviderOllama, ProviderOpenAI, ProviderClaude, ProviderGemini}

// Config is the complete application configuration.
type Config struct {
	Root          string        `yaml:"root"`
	MaxIterations int           `yaml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout"` // per sub-agent during a broadcast

	LLM   LLMConfig   `yaml:"llm"`
	Shell ShellConfig `yaml:"shell"`
	Read  ReadConfig  `yaml:"read"`
	Trace TraceConfig `yaml:"trace"`

	// Agents replaces the built-in sub-agents when set.
	Agents []runtime.AgentSpec `yaml:"agents"`
}

// LLMConfig selects and configures the model endpoint.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Host        string  `yaml:"host"` // ollama only
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ShellConfig configures the shell tool.
type ShellConfig struct {
	AllowedCommands []string      `yaml:"allowed_commands"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxOutputChars  int           `yaml:"max_output_chars"`
}

// ReadConfig configures the read tool.
type ReadConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// TraceConfig configures OpenTelemetry export.
type TraceConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root:          ".",
		MaxIterations: 10,
		Timeout:       300 * time.Second,
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			Model:       "gpt-oss:20b",
			Temperature: 0.1,
			MaxTokens:   4096,
		},
		Shell: ShellConfig{
			AllowedCommands: append([]string(nil), builtin.DefaultAllowedCommands...),
			Timeout:         30 * time.Second,
			MaxOutputChars:  4000,
		},
		Read: ReadConfig{MaxChars: 4000},
		Trace: TraceConfig{
			ServiceName: "pinecone",
			SampleRatio: 1,
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (if not
// empty), .env files and the environment, then validates it.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env.local then .env from the working directory.
// Variables already set in the environment win.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config %s: %w: %w", path, errors.ErrInvalidInput, err)
	}
	return nil
}

// ApplyEnv overrides fields from PINECONE_* variables and provider
// specific credentials.
func (c *Config) ApplyEnv() error {
	setString(&c.Root, "PINECONE_ROOT")
	setString(&c.LLM.Provider, "PINECONE_PROVIDER")
	setString(&c.LLM.Model, "PINECONE_MODEL")
	setString(&c.LLM.Host, "OLLAMA_HOST")
	setString(&c.LLM.BaseURL, "PINECONE_BASE_URL")
	setString(&c.LLM.APIKey, "PINECONE_API_KEY")

	if err := setInt(&c.MaxIterations, "PINECONE_MAX_STEPS"); err != nil {
		return err
	}
	if err := setInt(&c.Read.MaxChars, "PINECONE_MAX_TOOL_CHARS"); err != nil {
		return err
	}
	if err := setInt(&c.Shell.MaxOutputChars, "PINECONE_MAX_TOOL_CHARS"); err != nil {
		return err
	}
	if err := setFloat(&c.LLM.Temperature, "PINECONE_TEMPERATURE"); err != nil {
		return err
	}
	if err := setDuration(&c.Timeout, "PINECONE_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Shell.Timeout, "PINECONE_SHELL_TIMEOUT"); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("PINECONE_ALLOWED_COMMANDS")); v != "" {
		c.Shell.AllowedCommands = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	setString(&c.Trace.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKey(c.LLM.Provider)
	}
	return nil
}

// Normalize resolves the root to an absolute path and tidies string fields.
func (c *Config) Normalize() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.Root == "" {
		c.Root = "."
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", c.Root, err)
	}
	c.Root = abs
	return nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	v := NewValidator()
	v.RequireNonEmpty("root", c.Root)
	v.ValidateRange("max_iterations", c.MaxIterations, 1, 100)
	v.RequirePositiveDuration("timeout", c.Timeout)

	v.ValidateOneOf("llm.provider", c.LLM.Provider, Providers...)
	v.RequireNonEmpty("llm.model", c.LLM.Model)
	v.ValidateFloatRange("llm.temperature", c.LLM.Temperature, 0, 2)
	v.RequirePositive("llm.max_tokens", c.LLM.MaxTokens)
	if c.LLM.Provider != ProviderOllama {
		v.RequireNonEmpty("llm.api_key", c.LLM.APIKey)
	}

	v.ValidateCommandNames("shell.allowed_commands", c.Shell.AllowedCommands)
	v.RequirePositiveDuration("shell.timeout", c.Shell.Timeout)
	v.RequirePositive("shell.max_output_chars", c.Shell.MaxOutputChars)
	v.RequirePositive("read.max_chars", c.Read.MaxChars)
	if c.Trace.Enabled {
		v.ValidateFloatRange("trace.sample_ratio", c.Trace.SampleRatio, 0, 1)
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, spec := range c.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		v.RequireNonEmpty(field+".name", spec.Name)
		if seen[spec.Name] {
			v.Fail(field+".name", fmt.Sprintf("duplicate agent %q", spec.Name))
		}
		seen[spec.Name] = true
		if spec.MaxIterations < 0 {
			v.RequirePositive(field+".max_iterations", spec.MaxIterations)
		}
	}
	return v.Error()
}

func providerKey(provider string) string {
	var names []string
	switch provider {
	case ProviderOpenAI:
		names = []string{"OPENAI_API_KEY"}
	case ProviderClaude:
		names = []string{"ANTHROPIC_API_KEY"}
	case ProviderGemini:
		names = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w: %q is not an integer", name, errors.ErrInvalidInput, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w: %q is not a number", name, errors.ErrInvalidInput, v)
	}
	*dst = f
	return nil
}

// setDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func setDuration(dst *time.Duration, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w: %q is not a duration", name, errors.ErrInvalidInput, v)
	}
	*dst = d
	return nil
}
