package contentnode

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/jacentio/arbor/changes"
	"github.com/jacentio/arbor/session"
	"github.com/jacentio/arbor/store"
)

// ExpandedNodesKey is the session storage key holding the expanded set.
const ExpandedNodesKey = "expandedNodes"

// persistTimeout bounds a write of the expanded set to session storage.
const persistTimeout = 2 * time.Second

// Backend is the persistence a Module writes through. *store.Store
// implements it.
type Backend interface {
	Get(ctx context.Context, id string) (*store.Node, error)
	ListChannel(ctx context.Context, channelID string) ([]*store.Node, error)
	Create(ctx context.Context, node *store.Node) error
	Update(ctx context.Context, id string, mods changes.Record, expectedVersion int64) error
	Move(ctx context.Context, in store.MoveInput) error
	Delete(ctx context.Context, id string, opts store.DeleteOptions) error
}

var _ Backend = (*store.Store)(nil)

// Module is the in-memory content node store.
type Module struct {
	backend Backend
	session session.Storage
	logger  *slog.Logger

	persistMu sync.Mutex

	mu            sync.RWMutex
	contentNodes  map[string]changes.Record
	treeNodes     map[string]TreeNode
	expandedNodes map[string]bool
}

// New creates a Module and restores the expanded set from sess.
// backend and sess may be nil: without a backend actions fail with
// ErrNoBackend, without a session the expanded set is neither restored
// nor persisted.
func New(ctx context.Context, backend Backend, sess session.Storage, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Module{
		backend:      backend,
		session:      sess,
		logger:       logger,
		contentNodes: make(map[string]changes.Record),
		treeNodes:    make(map[string]TreeNode),
	}
	m.expandedNodes = m.restoreExpanded(ctx)
	return m
}

// restoreExpanded reads the expanded set. Missing, unreadable or malformed
// data yields an empty set.
func (m *Module) restoreExpanded(ctx context.Context) map[string]bool {
	expanded := make(map[string]bool)
	if m.session == nil {
		return expanded
	}

	blob, ok, err := m.session.Get(ctx, ExpandedNodesKey)
	if err != nil {
		m.logger.Debug("failed to read expanded nodes", "error", err)
		return expanded
	}
	if !ok || blob == "" {
		return expanded
	}

	var raw map[string]any
	if err := sonic.UnmarshalString(blob, &raw); err != nil {
		m.logger.Debug("ignoring malformed expanded nodes", "error", err)
		return expanded
	}
	for id, v := range raw {
		if truthy(v) {
			expanded[id] = true
		}
	}
	return expanded
}

// truthy follows JSON truthiness: false, 0, "" and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

// persistExpanded writes the current expanded set to session storage.
// Writes are serialized and always carry the latest set. Failures are
// logged.
func (m *Module) persistExpanded() {
	if m.session == nil {
		return
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.RLock()
	blob := m.encodeExpanded()
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.session.Set(ctx, ExpandedNodesKey, blob); err != nil {
		m.logger.Warn("failed to persist expanded nodes", "error", err)
	}
}

// encodeExpanded must be called with m.mu held for reading.
func (m *Module) encodeExpanded() string {
	blob, err := sonic.MarshalString(m.expandedNodes)
	if err != nil {
		// map[string]bool always encodes
		m.logger.Error("failed to encode expanded nodes", "error", err)
		return "{}"
	}
	return blob
}

// State is a point-in-time copy of a Module's state.
type State struct {
	ContentNodes  map[string]changes.Record
	TreeNodes     map[string]TreeNode
	ExpandedNodes map[string]bool
}

// Snapshot copies the module state.
func (m *Module) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		ContentNodes:  make(map[string]changes.Record, len(m.contentNodes)),
		TreeNodes:     make(map[string]TreeNode, len(m.treeNodes)),
		ExpandedNodes: make(map[string]bool, len(m.expandedNodes)),
	}
	for id, r := range m.contentNodes {
		s.ContentNodes[id] = r.Clone()
	}
	for id, n := range m.treeNodes {
		s.TreeNodes[id] = n
	}
	for id := range m.expandedNodes {
		s.ExpandedNodes[id] = true
	}
	return s
}
