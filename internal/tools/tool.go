// Package tools defines the search tools exposed to the model and the
// manager that registers, dispatches and tracks them.
//
// Tools are declarative: each carries a Definition (name, description and a
// JSON-schema style parameter description) and an Execute method that takes
// loosely-typed arguments and returns a string for the model. Execution
// failures surface as strings wherever the model could act on them; Go errors
// are reserved for conditions the caller substitutes on the model's behalf.
package tools

import (
	"context"
	"fmt"
	"sync"
)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	// Parameters maps argument names to JSON-schema style property
	// descriptions ({"type": ..., "description": ...}).
	Parameters map[string]map[string]any
	Required   []string
}

// Tool is a capability the model can invoke by name.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// sourceTracker is implemented by tools that record citation sources during
// execution. The manager aggregates and resets them.
type sourceTracker interface {
	LastSources() []string
	LastSourceLinks() []string
	ResetSources()
}

// Manager holds registered tools and dispatches executions.
type Manager struct {
	mu    sync.Mutex
	tools map[string]Tool
	order []string
}

// NewManager creates an empty tool manager.
func NewManager() *Manager {
	return &Manager{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a second tool under the same name is an
// error; definitions are reported in registration order.
func (m *Manager) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	m.tools[name] = t
	m.order = append(m.order, name)
	return nil
}

// Definitions returns all tool definitions in registration order.
func (m *Manager) Definitions() []Definition {
	m.mu.Lock()
	defer m.mu.Unlock()
	defs := make([]Definition, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}
	return defs
}

// ExecuteTool dispatches to a registered tool. An unknown tool name degrades
// to a string the model can read, not an error.
func (m *Manager) ExecuteTool(ctx context.Context, name string, args map[string]any) (string, error) {
	m.mu.Lock()
	t, ok := m.tools[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}
	return t.Execute(ctx, args)
}

// LastSources returns the citation labels and parallel links recorded by the
// most recent tool executions, aggregated across tracking tools in
// registration order.
func (m *Manager) LastSources() (sources, links []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.order {
		if tr, ok := m.tools[name].(sourceTracker); ok {
			sources = append(sources, tr.LastSources()...)
			links = append(links, tr.LastSourceLinks()...)
		}
	}
	return sources, links
}

// ResetSources clears recorded sources on all tracking tools. Called by the
// facade after each query so sources never leak across queries.
func (m *Manager) ResetSources() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.order {
		if tr, ok := m.tools[name].(sourceTracker); ok {
			tr.ResetSources()
		}
	}
}
