package stream

import (
	"log/slog"
	"sync"

	"github.com/jacentio/arbor/changes"
)

// Committer applies named mutations. *contentnode.Module implements it.
type Committer interface {
	Commit(name changes.Mutation, payload changes.Record) bool
}

type registration struct {
	namespace string
	listeners changes.Listeners
	committer Committer
}

// Router dispatches changes to the modules registered for them.
type Router struct {
	mu      sync.RWMutex
	modules []registration
	logger  *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Register adds a module under namespace. Registering a namespace twice
// replaces the earlier registration.
//
// The slice is never modified in place: Apply iterates a snapshot taken
// under the read lock.
func (r *Router) Register(namespace string, listeners changes.Listeners, c Committer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg := registration{namespace: namespace, listeners: listeners, committer: c}
	modules := make([]registration, 0, len(r.modules)+1)
	replaced := false
	for _, m := range r.modules {
		if m.namespace == namespace {
			m = reg
			replaced = true
		}
		modules = append(modules, m)
	}
	if !replaced {
		modules = append(modules, reg)
	}
	r.modules = modules
}

// Namespaces returns the registered namespaces in registration order.
func (r *Router) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.modules))
	for i, m := range r.modules {
		out[i] = m.namespace
	}
	return out
}

// Apply commits c to every module with a route for its table and kind and
// returns how many mutations ran. Changes nobody listens for are dropped.
func (r *Router) Apply(c changes.Change) int {
	r.mu.RLock()
	modules := r.modules
	r.mu.RUnlock()

	applied := 0
	for _, m := range modules {
		mutation, ok := m.listeners.Lookup(c.Table, c.Type)
		if !ok {
			continue
		}
		if !m.committer.Commit(mutation, c.Payload()) {
			r.logger.Warn("mutation not handled",
				"mutation", m.namespace+"/"+string(mutation),
				"key", c.Key,
			)
			continue
		}
		r.logger.Debug("applied change",
			"mutation", m.namespace+"/"+string(mutation),
			"key", c.Key,
			"rev", c.Rev,
		)
		applied++
	}
	if applied == 0 {
		r.logger.Debug("no listener for change", "table", c.Table, "type", c.Type, "key", c.Key)
	}
	return applied
}
