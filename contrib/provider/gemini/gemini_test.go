package gemini

import (
	"context"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/pinecone/message"
)

func TestConvertMessages(t *testing.T) {
	msgs := []*message.Message{
		message.NewNamedMessage(message.RoleUser, "director", "find configs"),
		message.NewToolCallMessage("", []message.ToolCall{{ID: "c1", Name: "shell", Args: map[string]any{"cmd": "ls"}}}),
		message.NewToolResponseMessage("c1", "shell", "a.yaml"),
		message.NewNamedMessage(message.RoleUser, "reader", "also check b"),
	}

	out := convertMessages(msgs)
	require.Len(t, out, 3)
	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, genai.Text("director: find configs"), out[0].Parts[0])
	assert.Equal(t, "model", out[1].Role)
	require.Len(t, out[1].Parts, 1)
	call, ok := out[1].Parts[0].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "shell", call.Name)

	assert.Equal(t, "user", out[2].Role)
	require.Len(t, out[2].Parts, 2)
	resp, ok := out[2].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "shell", resp.Name)
	assert.Equal(t, "a.yaml", resp.Response["content"])
}

func TestConvertSchema(t *testing.T) {
	s := convertSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documents": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"limit":     map[string]any{"type": "integer", "description": "max"},
		},
		"required": []any{"documents"},
	})
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"documents"}, s.Required)
	require.Contains(t, s.Properties, "documents")
	assert.Equal(t, genai.TypeArray, s.Properties["documents"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["documents"].Items.Type)
	assert.Equal(t, genai.TypeInteger, s.Properties["limit"].Type)
	assert.Nil(t, convertSchema(nil))
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), &Config{})
	require.Error(t, err)
}
