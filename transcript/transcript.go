package transcript

import (
	"sync"

	"github.com/sweetpotato0/pinecone/message"
)

// Transcript is the ordered conversation log owned by one agent.
// Messages are only ever appended; Clear empties the log for a reset.
// The mutex covers the case where an abandoned completion is still
// appending while the orchestrator fans replies in.
type Transcript struct {
	mu       sync.RWMutex
	messages []*message.Message
}

// New creates an empty transcript
func New() *Transcript {
	return &Transcript{
		messages: make([]*message.Message, 0),
	}
}

// Append adds messages to the end of the transcript
func (t *Transcript) Append(msgs ...*message.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, msg := range msgs {
		if msg != nil {
			t.messages = append(t.messages, msg)
		}
	}
}

// Messages returns a snapshot of the transcript in insertion order
func (t *Transcript) Messages() []*message.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*message.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the last message or nil if empty
func (t *Transcript) Last() *message.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// ByRole returns all messages with the specified role
func (t *Transcript) ByRole(role message.Role) []*message.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]*message.Message, 0)
	for _, msg := range t.messages {
		if msg.Role == role {
			result = append(result, msg)
		}
	}
	return result
}

// Clear removes all messages
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = make([]*message.Message, 0)
}

// Len returns the current number of messages
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
