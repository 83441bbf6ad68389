// Package prompt renders agent system prompts from text/template sources
// and formats the tool listing appended to them.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/tool"
)

// Vars are the values a template can reference.
type Vars = map[string]any

// Template is a parsed prompt. Referencing a variable that is not in Vars
// is a render error rather than "<no value>".
type Template struct {
	Name    string
	Content string
	tmpl    *template.Template
}

// NewTemplate parses content.
func NewTemplate(name, content string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	return &Template{Name: name, Content: content, tmpl: tmpl}, nil
}

// Render executes the template and trims surrounding whitespace.
func (t *Template) Render(vars Vars) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("prompt %s: %w", t.Name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Render parses and renders content in one step.
func Render(name, content string, vars Vars) (string, error) {
	t, err := NewTemplate(name, content)
	if err != nil {
		return "", err
	}
	return t.Render(vars)
}

// Manager is a concurrency-safe set of named templates.
type Manager struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{templates: make(map[string]*Template)}
}

// Register adds content under name. Names are unique.
func (m *Manager) Register(name, content string) error {
	if name == "" {
		return fmt.Errorf("prompt: %w: empty name", errors.ErrInvalidInput)
	}
	t, err := NewTemplate(name, content)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[name]; ok {
		return fmt.Errorf("prompt %s: %w", name, errors.ErrAlreadyExists)
	}
	m.templates[name] = t
	return nil
}

// Override replaces or adds the template under name.
func (m *Manager) Override(name, content string) error {
	t, err := NewTemplate(name, content)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.templates[name] = t
	m.mu.Unlock()
	return nil
}

// Get returns the template registered under name.
func (m *Manager) Get(name string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[name]
	if !ok {
		return nil, fmt.Errorf("prompt %s: %w", name, errors.ErrNotFound)
	}
	return t, nil
}

// Render renders the template registered under name.
func (m *Manager) Render(name string, vars Vars) (string, error) {
	t, err := m.Get(name)
	if err != nil {
		return "", err
	}
	return t.Render(vars)
}

// List returns the registered names, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolListing describes tools the way agents expect to see them at the end
// of their system prompt.
func ToolListing(tools []*tool.Tool) string {
	if len(tools) == 0 {
		return "No tools are available."
	}
	var b strings.Builder
	b.WriteString("Available tools (use the exact name shown when making tool calls):")
	for _, t := range tools {
		fmt.Fprintf(&b, "\n- %s: %s", t.Name, t.Description)
	}
	return b.String()
}

// WithToolListing joins a system prompt and the listing for tools with a
// blank line, skipping an empty prompt.
func WithToolListing(system string, tools []*tool.Tool) string {
	listing := ToolListing(tools)
	if s := strings.TrimSpace(system); s != "" {
		return s + "\n\n" + listing
	}
	return listing
}
