// Package tools holds the tool inventory and the executor that dispatches
// LLM-emitted tool calls against it.
package tools

import (
	"log/slog"
	"sort"
	"sync"

	"concierge/pkg/api"
)

// Registry is the process-wide name→tool inventory. Registration happens
// at startup; reads are concurrent and lock-light afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]api.Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]api.Tool)}
}

// Register stores a tool. Re-registering a name is last-write-wins with a
// warning, which keeps hot-reload of tool sets simple.
func (r *Registry) Register(tool api.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Descriptor.Name]; exists {
		slog.Warn("tool re-registered, replacing previous handler", "tool", tool.Descriptor.Name)
	}
	r.tools[tool.Descriptor.Name] = tool
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

func (r *Registry) ByName(name string) (api.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// ByDomain returns tools whose domain is in the set. Untagged tools are
// always included.
func (r *Registry) ByDomain(domains []string) []api.Tool {
	inSet := make(map[string]bool, len(domains))
	for _, d := range domains {
		inSet[d] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []api.Tool
	for _, t := range r.tools {
		if t.Descriptor.Domain == "" || inSet[t.Descriptor.Domain] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor.Name < out[j].Descriptor.Name
	})
	return out
}

// AllNames returns every registered name, sorted.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllDescriptors returns every descriptor, sorted by name.
func (r *Registry) AllDescriptors() []api.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
