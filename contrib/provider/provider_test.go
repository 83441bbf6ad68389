package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/pinecone/message"
)

func TestParseInline(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		ok        bool
		content   string
		callNames []string
	}{
		{
			name:      "nested function shape",
			text:      `{"content": "checking", "tool_calls": [{"function": {"name": "shell", "arguments": "{\"cmd\": \"ls\"}"}}]}`,
			ok:        true,
			content:   "checking",
			callNames: []string{"shell"},
		},
		{
			name:      "flat shape",
			text:      `{"tool_calls": [{"name": "read", "arguments": {"path": "a.md"}}]}`,
			ok:        true,
			callNames: []string{"read"},
		},
		{
			name:      "fenced",
			text:      "```json\n{\"content\": \"\", \"tool_calls\": [{\"name\": \"read\"}]}\n```",
			ok:        true,
			callNames: []string{"read"},
		},
		{
			name:    "content only envelope",
			text:    `{"content": " final answer "}`,
			ok:      true,
			content: "final answer",
		},
		{name: "plain text", text: "the answer is 42"},
		{name: "unrelated object", text: `{"answer": 42}`},
		{name: "broken json", text: `{"content": "x", "tool_calls": [}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, calls, ok := ParseInline(tt.text)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.content, content)
			names := make([]string, 0, len(calls))
			for _, c := range calls {
				names = append(names, c.Name)
			}
			if len(tt.callNames) == 0 {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tt.callNames, names)
			}
		})
	}
}

func TestConvertCallArguments(t *testing.T) {
	call, ok := ConvertCall(map[string]any{"function": map[string]any{"name": "shell", "arguments": `{"cmd":"ls -la"}`}})
	require.True(t, ok)
	assert.Equal(t, "ls -la", call.Args["cmd"])

	call, ok = ConvertCall(map[string]any{"name": "shell", "arguments": "not json"})
	require.True(t, ok)
	assert.Empty(t, call.Args)

	_, ok = ConvertCall(map[string]any{"arguments": "{}"})
	assert.False(t, ok)
}

func TestDecodeArgs(t *testing.T) {
	assert.Equal(t, "x", DecodeArgs(json.RawMessage(`{"a":"x"}`))["a"])
	assert.Empty(t, DecodeArgs(nil))
	assert.Empty(t, DecodeArgs(42))
}

func TestNormalizeAssignsIDs(t *testing.T) {
	msg := Normalize("", []message.ToolCall{{Name: "read"}, {ID: "keep", Name: "shell"}})
	require.Len(t, msg.ToolCalls, 2)
	assert.NotEmpty(t, msg.ToolCalls[0].ID)
	assert.NotNil(t, msg.ToolCalls[0].Args)
	assert.Equal(t, "keep", msg.ToolCalls[1].ID)
	assert.Equal(t, message.RoleAssistant, msg.Role)
}

func TestNormalizePrefersNativeCalls(t *testing.T) {
	text := `{"tool_calls": [{"name": "read"}]}`
	msg := Normalize(text, []message.ToolCall{{ID: "n1", Name: "shell"}})
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "shell", msg.ToolCalls[0].Name)
	assert.Equal(t, text, msg.Content)
}

func TestRenderContent(t *testing.T) {
	assert.Equal(t, "hi", RenderContent(message.NewMessage(message.RoleUser, "hi")))
	assert.Equal(t, "finder: found it", RenderContent(message.NewNamedMessage(message.RoleUser, "finder", "found it")))
	assert.Equal(t, "out", RenderContent(message.NewToolResponseMessage("c", "shell", "out")))
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]*message.Message{
		message.NewMessage(message.RoleSystem, "a"),
		message.NewMessage(message.RoleUser, "u"),
		message.NewMessage(message.RoleSystem, "b"),
	})
	assert.Equal(t, "a\nb", system)
	require.Len(t, rest, 1)
	assert.Equal(t, "u", rest[0].Content)
}
