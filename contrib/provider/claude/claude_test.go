package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/pinecone/agent"
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/tool"
)

func TestConvertMessagesMergesToolResults(t *testing.T) {
	call := message.NewToolCallMessage("checking", []message.ToolCall{
		{ID: "tu_1", Name: "read", Args: map[string]any{"path": "a.md"}},
		{ID: "tu_2", Name: "read", Args: map[string]any{"path": "b.md"}},
	})
	msgs := []*message.Message{
		message.NewNamedMessage(message.RoleUser, "director", "summarize"),
		call,
		message.NewToolResponseMessage("tu_1", "read", "A"),
		message.NewToolResponseMessage("tu_2", "read", "B"),
		message.NewNamedMessage(message.RoleUser, "finder", "also c.md"),
	}

	out := convertMessages(msgs)
	require.Len(t, out, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	assert.Len(t, out[1].Content, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	require.Len(t, out[2].Content, 3)
	assert.NotNil(t, out[2].Content[0].OfToolResult)
	assert.NotNil(t, out[2].Content[1].OfToolResult)
	require.NotNil(t, out[2].Content[2].OfText)
	assert.Equal(t, "finder: also c.md", out[2].Content[2].OfText.Text)
}

func TestConvertTools(t *testing.T) {
	out := convertTools([]tool.Schema{{
		Name:        "read",
		Description: "read files",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []any{"path"},
		},
	}})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfTool)
	assert.Equal(t, "read", out[0].OfTool.Name)
	assert.Equal(t, []string{"path"}, out[0].OfTool.InputSchema.Required)
}

func TestGenerateParsesToolUse(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [
				{"type": "text", "text": "reading"},
				{"type": "tool_use", "id": "tu_1", "name": "read", "input": {"path": "a.md"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 3, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	p := New(&Config{APIKey: "test", BaseURL: srv.URL + "/", Model: "claude-test"})
	resp, err := p.Generate(context.Background(), &agent.GenerateRequest{
		Messages: []*message.Message{
			message.NewMessage(message.RoleSystem, "system text"),
			message.NewMessage(message.RoleUser, "read a.md"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "reading", resp.Message.Content)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "tu_1", resp.Message.ToolCalls[0].ID)
	assert.Equal(t, "a.md", resp.Message.ToolCalls[0].Args["path"])
	assert.Equal(t, "tool_use", resp.DoneReason)

	system, _ := body["system"].([]any)
	require.Len(t, system, 1)
	msgs, _ := body["messages"].([]any)
	assert.Len(t, msgs, 1)
}
