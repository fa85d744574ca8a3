package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds loaded prompts keyed by ID.
type Registry struct {
	prompts map[string]*PromptTemplate
	mu      sync.RWMutex
}

var (
	globalRegistry *Registry
	once           sync.Once
)

// NewRegistry returns a registry preloaded with the embedded prompts.
func NewRegistry() *Registry {
	r := &Registry{prompts: make(map[string]*PromptTemplate)}
	if err := r.loadEmbedded(); err != nil {
		// The embedded files are part of the build; failing here is a packaging bug.
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return r
}

// Get returns the process-wide registry.
func Get() *Registry {
	once.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Register adds or replaces a prompt template.
func (r *Registry) Register(pt *PromptTemplate) error {
	if pt.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[pt.ID] = pt
	return nil
}

// GetPrompt retrieves a prompt by ID
func (r *Registry) GetPrompt(id string) (*PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.prompts[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

// Render returns the system prompt and the rendered user prompt of id.
func (r *Registry) Render(id string, ctx *PromptExecutionContext) (system string, user string, err error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	if ctx == nil {
		ctx = NewContext()
	}
	for _, v := range pt.Variables {
		if _, ok := ctx.Variables[v.Name]; ok {
			continue
		}
		if v.Required && v.Default == "" {
			return "", "", fmt.Errorf("prompt %s: missing required variable %s", id, v.Name)
		}
		ctx.Set(v.Name, v.Default)
	}
	user, err = RenderUserPrompt(pt, ctx)
	if err != nil {
		return "", "", err
	}
	return pt.SystemPrompt, user, nil
}

// ListPrompts returns all registered prompt IDs, sorted.
func (r *Registry) ListPrompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered prompts
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}
