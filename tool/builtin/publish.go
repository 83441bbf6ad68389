package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/tool"
)

// PublishToolName is the registered name of the broadcast tool
const PublishToolName = "publish"

// AudienceAll addresses every registered sub-agent.
const AudienceAll = "all"

// Publisher broadcasts a request to a set of sub-agents and returns the
// aggregated replies.
type Publisher interface {
	Publish(ctx context.Context, audience, request string) (string, error)
	Members() []string
}

type publishArgs struct {
	Agent   string `json:"agent" jsonschema:"required,description=Sub-agent name or all"`
	Message string `json:"message" jsonschema:"required,description=Request to send"`
}

// NewPublish builds the tool the director uses to address its sub-agents.
func NewPublish(p Publisher) (*tool.Tool, error) {
	if p == nil {
		return nil, fmt.Errorf("publish tool: publisher is required")
	}
	targets := append([]string{AudienceAll}, p.Members()...)

	return &tool.Tool{
		Name: PublishToolName,
		Description: fmt.Sprintf(
			"Send a request to other agents and collect their replies. Arguments: "+
				`{"agent": "%s", "message": "text"}.`, strings.Join(targets, "|")),
		InputSchema: tool.MustSchemaFor[publishArgs](),
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			audience := firstString(args, "agent", "audience", "target")
			request := firstString(args, "message", "request")
			if audience == "" {
				return "", tool.Errorf(nil, "agent is required (one of %s)", strings.Join(targets, ", "))
			}
			if request == "" {
				return "", tool.Errorf(nil, "message is required")
			}

			out, err := p.Publish(ctx, audience, request)
			if err != nil {
				if errors.Is(err, errors.ErrUnknownAgent) || errors.Is(err, errors.ErrEmptyAudience) {
					return "", tool.Errorf(errors.ErrInvalidInput, "%v (expected one of %s)", err, strings.Join(targets, ", "))
				}
				return "", err
			}
			return out, nil
		},
	}, nil
}
