package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/contrib/provider"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/tool"
	"google.golang.org/api/option"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:    apiKey,
		Model:     "gemini-1.5-flash",
		MaxTokens: 2048,
	}
}

// Provider implements agent.LLMClient for Google Gemini
type Provider struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini provider. The client holds a connection; call
// Close when done.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Generate implements agent.LLMClient interface
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	name := req.Model
	if name == "" {
		name = p.config.Model
	}
	model := p.client.GenerativeModel(name)
	if p.config.Temperature > 0 {
		model.SetTemperature(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(p.config.MaxTokens)
	}

	system, rest := provider.SplitSystem(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: convertTools(req.Tools)}}
	}

	contents := convertMessages(rest)
	if len(contents) == 0 {
		return nil, errors.New("gemini: no conversation to send")
	}

	chat := model.StartChat()
	chat.History = contents[:len(contents)-1]
	resp, err := chat.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini: empty response")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	var calls []message.ToolCall
	for _, part := range cand.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			calls = append(calls, message.ToolCall{Name: v.Name, Args: v.Args})
		case *genai.FunctionCall:
			calls = append(calls, message.ToolCall{Name: v.Name, Args: v.Args})
		}
	}

	return &agent.GenerateResponse{
		Message:    provider.Normalize(text.String(), calls),
		DoneReason: strings.ToLower(cand.FinishReason.String()),
	}, nil
}

// convertMessages maps the transcript onto Gemini contents. Function
// responses are sent with the user role; consecutive same-role turns are
// merged.
func convertMessages(msgs []*message.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	appendParts := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleUser:
			appendParts("user", genai.Text(provider.RenderContent(msg)))
		case message.RoleAssistant:
			parts := make([]genai.Part, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
			}
			appendParts("model", parts...)
		case message.RoleTool:
			appendParts("user", genai.FunctionResponse{
				Name:     msg.Name,
				Response: map[string]any{"content": msg.Content},
			})
		}
	}
	return out
}

func convertTools(schemas []tool.Schema) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  convertSchema(s.Parameters),
		})
	}
	return out
}

func convertSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	schema := &genai.Schema{}
	typ, _ := m["type"].(string)
	switch typ {
	case "object":
		schema.Type = genai.TypeObject
	case "array":
		schema.Type = genai.TypeArray
	case "integer":
		schema.Type = genai.TypeInteger
	case "number":
		schema.Type = genai.TypeNumber
	case "boolean":
		schema.Type = genai.TypeBoolean
	default:
		schema.Type = genai.TypeString
	}
	schema.Description, _ = m["description"].(string)

	if props, ok := m["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				schema.Properties[name] = convertSchema(sub)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		schema.Items = convertSchema(items)
	}
	schema.Required = stringSlice(m["required"])
	schema.Enum = stringSlice(m["enum"])
	return schema
}

func stringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
