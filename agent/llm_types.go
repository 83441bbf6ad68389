package agent

import (
	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/tool"
)

// GenerateRequest bundles inputs for one model round-trip.
type GenerateRequest struct {
	Model    string
	Messages []*message.Message
	Tools    []tool.Schema
}

// GenerateResponse captures the normalized model reply. Tool calls found
// either natively or inline in the content are already in Message.ToolCalls.
type GenerateResponse struct {
	Message    *message.Message
	DoneReason string
}
