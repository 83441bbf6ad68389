package message

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents a single entry in an agent transcript
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Name      string         `json:"name,omitempty"` // Sender tag: user, director, agent or tool name
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	ToolID    string         `json:"tool_id,omitempty"` // Correlates a tool response with its call
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToolCall represents a tool invocation request issued by the model
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// NewNamedMessage creates a message attributed to a sender.
func NewNamedMessage(role Role, name, content string) *Message {
	msg := NewMessage(role, content)
	msg.Name = name
	return msg
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			cloned.ToolCalls[i] = cloneToolCall(tc)
		}
	}
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

func cloneToolCall(call ToolCall) ToolCall {
	cloned := ToolCall{
		ID:   call.ID,
		Name: call.Name,
	}
	if call.Args != nil {
		cloned.Args = make(map[string]any, len(call.Args))
		for k, v := range call.Args {
			cloned.Args[k] = v
		}
	}
	return cloned
}

// NewToolCallMessage creates an assistant message carrying tool calls
func NewToolCallMessage(content string, toolCalls []ToolCall) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.ToolCalls = toolCalls
	return msg
}

// NewToolResponseMessage creates a tool response message for the call identified by toolID
func NewToolResponseMessage(toolID, toolName, content string) *Message {
	msg := NewMessage(RoleTool, content)
	msg.ToolID = toolID
	msg.Name = toolName
	return msg
}

// NewID returns a fresh identifier for messages and tool calls.
func NewID() string {
	return uuid.NewString()
}
