package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/contrib/provider"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/tool"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:    apiKey,
		BaseURL:   baseURL,
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4096,
	}
}

// Provider implements agent.LLMClient for Claude
type Provider struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider using official SDK
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("", "")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithAuthToken(""),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
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

	system, rest := provider.SplitSystem(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  convertMessages(rest),
		MaxTokens: p.config.MaxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	apiMessage, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	var text strings.Builder
	calls := make([]message.ToolCall, 0)
	for _, content := range apiMessage.Content {
		switch content.Type {
		case "text":
			text.WriteString(content.Text)
		case "tool_use":
			calls = append(calls, message.ToolCall{
				ID:   content.ID,
				Name: content.Name,
				Args: provider.DecodeArgs(content.Input),
			})
		}
	}

	return &agent.GenerateResponse{
		Message:    provider.Normalize(text.String(), calls),
		DoneReason: string(apiMessage.StopReason),
	}, nil
}

// convertMessages maps the transcript onto Claude's alternating turns.
// Tool results travel as user content, and consecutive turns of the same
// role are merged into one message.
func convertMessages(msgs []*message.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	appendBlocks := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleUser:
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(provider.RenderContent(msg)))
		case message.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args := call.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks...)
		case message.RoleTool:
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolID, msg.Content, false))
		}
	}
	return out
}

func convertTools(schemas []tool.Schema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: s.Parameters["properties"],
		}
		if required := requiredFields(s.Parameters["required"]); len(required) > 0 {
			inputSchema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return out
}

func requiredFields(v any) []string {
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
	default:
		var out []string
		if raw, err := json.Marshal(val); err == nil {
			_ = json.Unmarshal(raw, &out)
		}
		return out
	}
}
