package tools

import (
	"strings"
	"sync"

	"github.com/2P3-io/ScriptOn/pkg/providers"
)

// NormalizeToolName lowercases a tool name and strips separators so that
// variants like "ExecPython", "exec-python" and "exec_python" all collapse
// to the same key. Models routinely mangle tool names this way.
func NormalizeToolName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get looks up a tool by exact name first, then by normalized name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tool, ok := r.tools[name]; ok {
		return tool, true
	}

	normalized := NormalizeToolName(name)
	for registered, tool := range r.tools {
		if NormalizeToolName(registered) == normalized {
			return tool, true
		}
	}
	return nil, false
}

// Definitions returns the catalog in registration order, in the wire form
// the completion API expects.
func (r *ToolRegistry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}
