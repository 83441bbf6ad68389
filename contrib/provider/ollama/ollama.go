package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/contrib/provider"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/tool"
)

// DefaultHost is used when neither the config nor OLLAMA_HOST name one.
const DefaultHost = "http://127.0.0.1:11434"

// Config holds Ollama provider configuration
type Config struct {
	Host        string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// DefaultConfig returns default Ollama configuration
func DefaultConfig() *Config {
	return &Config{
		Model:   "llama3.1",
		Timeout: 5 * time.Minute,
	}
}

// Provider implements agent.LLMClient against a local Ollama server.
type Provider struct {
	config *Config
	client *ollama.Client
}

// New creates an Ollama provider.
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "llama3.1"
	}

	u, err := url.Parse(ResolveHost(config.Host))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", config.Host, err)
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	return &Provider{
		config: config,
		client: ollama.NewClient(u, httpClient),
	}, nil
}

// ResolveHost picks the server address and makes sure it carries a scheme.
func ResolveHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	}
	if host == "" {
		host = DefaultHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// Generate implements agent.LLMClient interface
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    model,
		Messages: convertMessages(req.Messages),
		Stream:   &stream,
		Tools:    tools,
	}
	if p.config.Temperature > 0 {
		chatReq.Options = map[string]any{"temperature": p.config.Temperature}
	}

	var (
		content strings.Builder
		calls   []message.ToolCall
		last    ollama.ChatResponse
	)
	err = p.client.Chat(ctx, chatReq, func(resp ollama.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		for _, tc := range resp.Message.ToolCalls {
			calls = append(calls, message.ToolCall{
				Name: tc.Function.Name,
				Args: decodeArguments(tc.Function.Arguments),
			})
		}
		last = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &agent.GenerateResponse{
		Message:    provider.Normalize(content.String(), calls),
		DoneReason: last.DoneReason,
	}, nil
}

func convertMessages(msgs []*message.Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(msgs))
	for _, msg := range msgs {
		m := ollama.Message{Role: string(msg.Role), Content: provider.RenderContent(msg)}
		if msg.Role == message.RoleTool {
			m.ToolName = msg.Name
		}
		for _, call := range msg.ToolCalls {
			var tc ollama.ToolCall
			tc.Function.Name = call.Name
			if err := remarshal(call.Args, &tc.Function.Arguments); err != nil {
				continue
			}
			m.ToolCalls = append(m.ToolCalls, tc)
		}
		out = append(out, m)
	}
	return out
}

func convertTools(schemas []tool.Schema) (ollama.Tools, error) {
	if len(schemas) == 0 {
		return nil, nil
	}
	out := make(ollama.Tools, 0, len(schemas))
	for _, s := range schemas {
		var t ollama.Tool
		def := map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        s.Name,
				"description": s.Description,
				"parameters":  s.Parameters,
			},
		}
		if err := remarshal(def, &t); err != nil {
			return nil, fmt.Errorf("convert tool %s: %w", s.Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeArguments(v any) map[string]any {
	args := map[string]any{}
	if err := remarshal(v, &args); err != nil {
		return map[string]any{}
	}
	return args
}

// remarshal copies src into dst through JSON so callers stay independent of
// the concrete argument types used by the api package.
func remarshal(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
