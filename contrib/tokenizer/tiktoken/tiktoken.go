// Package tiktoken counts prompt tokens for agent debug logging.
package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/sweetpotato0/pinecone/message"
)

// FallbackEncoding is used for models tiktoken does not know, which covers
// most local and non-OpenAI models.
const FallbackEncoding = "cl100k_base"

// Chat framing overhead, per the OpenAI chat format.
const (
	tokensPerMessage = 3
	tokensPerName    = 1
	replyPriming     = 3
)

// Tokenizer counts tokens with one tiktoken encoding.
type Tokenizer struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// NewTiktokenTokenizer resolves name as a model, then as an encoding name,
// then falls back to FallbackEncoding.
func NewTiktokenTokenizer(name string) (*Tokenizer, error) {
	if enc, err := tiktoken.EncodingForModel(name); err == nil {
		return &Tokenizer{enc: enc, encoding: name}, nil
	}
	for _, encoding := range []string{name, FallbackEncoding} {
		if enc, err := tiktoken.GetEncoding(encoding); err == nil {
			return &Tokenizer{enc: enc, encoding: encoding}, nil
		}
	}
	enc, err := tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{enc: enc, encoding: FallbackEncoding}, nil
}

// Encoding names the model or encoding the tokenizer was resolved from.
func (t *Tokenizer) Encoding() string {
	return t.encoding
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens implements agent.TokenCounter.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// CountMessages estimates a whole chat prompt, including role framing,
// sender names and tool-call arguments.
func (t *Tokenizer) CountMessages(msgs []*message.Message) int {
	total := replyPriming
	for _, m := range msgs {
		total += tokensPerMessage + t.CountTokens(string(m.Role)) + t.CountTokens(m.Content)
		if m.Name != "" {
			total += tokensPerName + t.CountTokens(m.Name)
		}
		for _, call := range m.ToolCalls {
			total += t.CountTokens(call.Name)
			for k, v := range call.Args {
				total += t.CountTokens(k)
				if s, ok := v.(string); ok {
					total += t.CountTokens(s)
				}
			}
		}
	}
	return total
}

// DecodeIds turns token ids back into text.
func (t *Tokenizer) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}
