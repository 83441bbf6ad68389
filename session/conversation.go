package session

import (
	"strings"
	"sync"
	"time"
)

// ChatEntry is one line of the master conversation. Target is set for
// requests the director addressed to a sub-agent.
type ChatEntry struct {
	Sender    string
	Target    string
	Content   string
	CreatedAt time.Time
}

// String renders the entry as "sender[->target]: content".
func (e ChatEntry) String() string {
	prefix := e.Sender
	if e.Target != "" {
		prefix += "->" + e.Target
	}
	return prefix + ": " + e.Content
}

// Conversation is the user-facing log of everything said across agents.
type Conversation struct {
	mu      sync.Mutex
	entries []ChatEntry
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append records an entry.
func (c *Conversation) Append(entry ChatEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

// Entries returns a copy of the log.
func (c *Conversation) Entries() []ChatEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatEntry(nil), c.entries...)
}

// Len returns the number of entries.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Render returns one line per entry, or "<empty>" for an empty log.
func (c *Conversation) Render() string {
	entries := c.Entries()
	if len(entries) == 0 {
		return EmptyReply
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}
