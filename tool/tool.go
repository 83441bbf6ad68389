package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sweetpotato0/pinecone/message"
	"github.com/sweetpotato0/pinecone/pkg/logging"
)

// Parameter defines a tool parameter
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // string, number, boolean, object, array
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Enum        []string    `json:"enum,omitempty"`
	Items       string      `json:"items,omitempty"` // element type for arrays
	Default     interface{} `json:"default,omitempty"`
}

// Tool represents a callable tool/function
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	// InputSchema, when set, replaces the schema derived from Parameters.
	InputSchema map[string]interface{}                                        `json:"input_schema,omitempty"`
	Handler     func(context.Context, map[string]interface{}) (string, error) `json:"-"`
}

// Schema is the provider-neutral tool description sent to the model.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Execute runs the tool with given arguments
func (t *Tool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.Handler == nil {
		return "", Errorf(nil, "tool %s has no handler", t.Name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	if err := t.ValidateArgs(args); err != nil {
		return "", err
	}

	return t.Handler(ctx, args)
}

// ValidateArgs validates the provided arguments against the tool's parameters
func (t *Tool) ValidateArgs(args map[string]interface{}) error {
	for _, param := range t.Parameters {
		if param.Required {
			if _, ok := args[param.Name]; !ok {
				return Errorf(nil, "missing required parameter: %s", param.Name)
			}
		}
	}
	return nil
}

// Schema returns the provider-neutral description of the tool
func (t *Tool) Schema() Schema {
	params := t.InputSchema
	if params == nil {
		params = t.parametersSchema()
	}
	return Schema{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

func (t *Tool) parametersSchema() map[string]interface{} {
	properties := make(map[string]interface{})
	required := make([]string, 0)

	for _, param := range t.Parameters {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		if param.Type == "array" {
			items := param.Items
			if items == "" {
				items = "string"
			}
			prop["items"] = map[string]interface{}{"type": items}
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// ToJSONSchema returns the tool definition in the OpenAI function format
func (t *Tool) ToJSONSchema() map[string]interface{} {
	s := t.Schema()
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        s.Name,
			"description": s.Description,
			"parameters":  s.Parameters,
		},
	}
}

// Registry is the closed set of tools bound to one agent.
// Tools keep their registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates a new tool registry
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]*Tool),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Schemas returns the schema of every tool in registration order
func (r *Registry) Schemas() []Schema {
	tools := r.List()
	schemas := make([]Schema, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

// Validate checks that every name refers to a registered tool.
func (r *Registry) Validate(names ...string) error {
	for _, name := range names {
		if _, ok := r.Get(name); !ok {
			return fmt.Errorf("tool %q is not registered", name)
		}
	}
	return nil
}

// Resolve maps a model-issued call onto a registered tool.
// Lookup order: exact name, then the only registered tool, then a
// "name" or "tool" argument naming a registered tool.
func (r *Registry) Resolve(call message.ToolCall) (*Tool, bool) {
	if t, ok := r.Get(call.Name); ok {
		return t, true
	}

	r.mu.RLock()
	if len(r.order) == 1 {
		t := r.tools[r.order[0]]
		r.mu.RUnlock()
		logging.WithComponent("tools").Warn("tool name mismatch, using sole registered tool",
			"requested", call.Name, "resolved", t.Name)
		return t, true
	}
	r.mu.RUnlock()

	for _, key := range []string{"name", "tool"} {
		alias, ok := call.Args[key].(string)
		if !ok || alias == "" {
			continue
		}
		if t, ok := r.Get(alias); ok {
			logging.WithComponent("tools").Warn("tool resolved through argument alias",
				"requested", call.Name, "resolved", t.Name, "key", key)
			return t, true
		}
		// The first alias key present decides the lookup.
		return nil, false
	}
	return nil, false
}

// MarshalJSON customizes JSON marshaling for Registry
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Schemas())
}
