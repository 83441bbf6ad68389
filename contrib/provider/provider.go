// Package provider holds the response normalization shared by every LLM
// adapter. Models either return structured tool calls or embed a JSON
// envelope {"content": ..., "tool_calls": [...]} in their text; both are
// reduced to message.ToolCall here, once, before the agent sees them.
package provider

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sweetpotato0/pinecone/message"
)

var (
	jsonBlockRe = regexp.MustCompile(`(?s)(\{.*\})`)
	fenceRe     = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\n?(.*?)\\s*```$")
)

// Normalize builds the assistant message for a model reply. Native tool
// calls win; otherwise the content is checked for an inline envelope.
func Normalize(content string, native []message.ToolCall) *message.Message {
	content = strings.TrimSpace(content)
	calls := native
	if len(calls) == 0 {
		if text, inline, ok := ParseInline(content); ok {
			content, calls = text, inline
		}
	}
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = message.NewID()
		}
		if calls[i].Args == nil {
			calls[i].Args = map[string]any{}
		}
	}
	return message.NewToolCallMessage(content, calls)
}

// ParseInline extracts an inline {"content", "tool_calls"} envelope from
// model text. ok is false when the text is not such an envelope.
func ParseInline(text string) (content string, calls []message.ToolCall, ok bool) {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return "", nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		block := jsonBlockRe.FindString(text)
		if block == "" || json.Unmarshal([]byte(block), &payload) != nil {
			return "", nil, false
		}
	}

	_, hasContent := payload["content"]
	rawCalls, hasCalls := payload["tool_calls"]
	if !hasContent && !hasCalls {
		return "", nil, false
	}

	if s, isString := payload["content"].(string); isString {
		content = strings.TrimSpace(s)
	}
	if list, isList := rawCalls.([]any); isList {
		for _, item := range list {
			raw, isMap := item.(map[string]any)
			if !isMap {
				continue
			}
			if call, converted := ConvertCall(raw); converted {
				calls = append(calls, call)
			}
		}
	}
	return content, calls, true
}

// ConvertCall accepts both {"function": {"name", "arguments"}} and the flat
// {"name", "arguments"} call shapes. Arguments may be an object or a JSON
// string; anything unparsable becomes an empty argument map.
func ConvertCall(raw map[string]any) (message.ToolCall, bool) {
	if raw == nil {
		return message.ToolCall{}, false
	}
	function, _ := raw["function"].(map[string]any)

	name, _ := function["name"].(string)
	if name == "" {
		name, _ = raw["name"].(string)
	}
	if name == "" {
		return message.ToolCall{}, false
	}

	argsRaw, present := function["arguments"]
	if !present || argsRaw == nil {
		argsRaw = raw["arguments"]
	}

	id, _ := raw["id"].(string)
	return message.ToolCall{ID: id, Name: name, Args: DecodeArgs(argsRaw)}, true
}

// DecodeArgs turns a loosely typed arguments value into an argument map.
func DecodeArgs(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case string:
		var args map[string]any
		if err := json.Unmarshal([]byte(val), &args); err != nil || args == nil {
			return map[string]any{}
		}
		return args
	case json.RawMessage:
		return DecodeArgs(string(val))
	case []byte:
		return DecodeArgs(string(val))
	default:
		return map[string]any{}
	}
}

// RenderContent returns the text a provider should send for msg. User
// messages relayed from another agent keep their sender visible.
func RenderContent(msg *message.Message) string {
	if msg.Role != message.RoleUser || msg.Name == "" || msg.Name == string(message.RoleUser) {
		return msg.Content
	}
	return msg.Name + ": " + msg.Content
}

// SplitSystem separates system messages, joined by newlines, from the
// conversation. Providers with a dedicated system field use it.
func SplitSystem(msgs []*message.Message) (string, []*message.Message) {
	var system []string
	rest := make([]*message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n"), rest
}
