package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// ExecutorFunc runs a tool with prepared, validated arguments and returns
// the observation text fed back to the reasoning loop.
type ExecutorFunc func(ctx context.Context, args Args) (string, error)

// Tool is one callable exposed to the reasoning loop.
type Tool struct {
	Name        string
	Description string
	Params      *openapi3.Schema
	// TextParam receives the whole payload when the model passes free text
	// instead of a JSON object.
	TextParam string
	Exec      ExecutorFunc
}

// Required lists the mandatory parameter names.
func (t Tool) Required() []string {
	if t.Params == nil {
		return nil
	}
	return append([]string(nil), t.Params.Required...)
}

// Registry stores tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders every tool as prompt text.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.Names() {
		t, _ := r.Get(name)
		fmt.Fprintf(&b, "%s: %s\n  Parameters: %s\n", t.Name, t.Description, describeSchema(t.Params))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Prepare maps decoded model arguments onto a tool's parameters. text is the
// free-text payload when the model did not send key/value pairs.
func (r *Registry) Prepare(name string, args map[string]any, text string) (Args, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("no tool registered for %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if t.TextParam != "" {
		switch {
		case len(args) == 0 && text != "":
			args = map[string]any{t.TextParam: text}
		case len(args) > 0 && !knowsAny(t.Params, args):
			args = map[string]any{t.TextParam: foldArgs(args)}
		}
	}
	return Args(prepareArgs(t.Params, args)), nil
}

func knowsAny(s *openapi3.Schema, args map[string]any) bool {
	if s == nil {
		return true
	}
	for name := range args {
		if _, ok := s.Properties[name]; ok {
			return true
		}
	}
	return false
}

// foldArgs turns arguments under unexpected keys into the text payload: a
// lone string value is used as is, anything else is re-encoded as JSON.
func foldArgs(args map[string]any) string {
	if len(args) == 1 {
		for _, v := range args {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(b)
}

// Execute validates args against the tool schema and runs the tool.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (string, error) {
	if name == "" {
		return "", fmt.Errorf("tool name is required")
	}
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("no tool registered for %s", name)
	}
	if err := validateArgs(t.Params, args); err != nil {
		return "", err
	}
	return t.Exec(ctx, args)
}
