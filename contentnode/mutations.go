package contentnode

import (
	"github.com/jacentio/arbor/changes"
)

// Mutation names.
const (
	AddContentNodeMutation    changes.Mutation = "ADD_CONTENTNODE"
	UpdateContentNodeMutation changes.Mutation = "UPDATE_CONTENTNODE"
	RemoveContentNodeMutation changes.Mutation = "REMOVE_CONTENTNODE"
	AddTreeNodeMutation       changes.Mutation = "ADD_TREENODE"
	UpdateTreeNodeMutation    changes.Mutation = "UPDATE_TREENODE"
	RemoveTreeNodeMutation    changes.Mutation = "REMOVE_TREENODE"
	SetExpansionMutation      changes.Mutation = "SET_EXPANSION"
	ToggleExpansionMutation   changes.Mutation = "TOGGLE_EXPANSION"
)

// Listeners routes change records for this module's tables to mutations.
var Listeners = changes.Listeners{
	changes.ContentNode: {
		changes.Created: AddContentNodeMutation,
		changes.Updated: UpdateContentNodeMutation,
		changes.Deleted: RemoveContentNodeMutation,
	},
	changes.Tree: {
		changes.Created: AddTreeNodeMutation,
		changes.Updated: UpdateTreeNodeMutation,
		changes.Deleted: RemoveTreeNodeMutation,
	},
}

// Commit applies the named mutation to payload. It returns false when the
// name is not one of this module's mutations.
//
// SET_EXPANSION reads "id" and "expanded"; TOGGLE_EXPANSION reads "id".
func (m *Module) Commit(name changes.Mutation, payload changes.Record) bool {
	switch name {
	case AddContentNodeMutation:
		m.AddContentNode(payload)
	case UpdateContentNodeMutation:
		m.MergeContentNode(payload)
	case RemoveContentNodeMutation:
		m.RemoveContentNode(payload.ID())
	case AddTreeNodeMutation:
		m.AddTreeNode(payload)
	case UpdateTreeNodeMutation:
		m.MergeTreeNode(payload)
	case RemoveTreeNodeMutation:
		m.RemoveTreeNode(payload.ID())
	case SetExpansionMutation:
		expanded, _ := payload["expanded"].(bool)
		m.SetExpansion(payload.ID(), expanded)
	case ToggleExpansionMutation:
		m.ToggleExpansion(payload.ID())
	default:
		return false
	}
	return true
}

// AddContentNode stores r under its id, replacing any existing record.
// Records without an id are ignored.
func (m *Module) AddContentNode(r changes.Record) {
	id := r.ID()
	if id == "" {
		m.logger.Debug("ignoring content node without id")
		return
	}
	m.mu.Lock()
	m.contentNodes[id] = r.Clone()
	m.mu.Unlock()
}

// MergeContentNode merges r onto the record with the same id. An update
// for a node that is not loaded does nothing.
func (m *Module) MergeContentNode(r changes.Record) {
	id := r.ID()
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.contentNodes[id]
	if !ok {
		return
	}
	for k, v := range r {
		existing[k] = v
	}
}

// RemoveContentNode deletes the record for id.
func (m *Module) RemoveContentNode(id string) {
	m.mu.Lock()
	delete(m.contentNodes, id)
	m.mu.Unlock()
}

// AddTreeNode stores the tree node decoded from r, replacing any existing one.
func (m *Module) AddTreeNode(r changes.Record) {
	n, ok := treeNodeFrom(r)
	if !ok {
		m.logger.Debug("ignoring tree node without id")
		return
	}
	m.mu.Lock()
	m.treeNodes[n.ID] = n
	m.mu.Unlock()
}

// MergeTreeNode applies the fields present in r to the tree node with the
// same id. An update for a node that is not loaded does nothing.
func (m *Module) MergeTreeNode(r changes.Record) {
	id := r.ID()
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.treeNodes[id]
	if !ok {
		return
	}
	n.apply(r)
	m.treeNodes[id] = n
}

// RemoveTreeNode deletes the tree node for id.
func (m *Module) RemoveTreeNode(id string) {
	m.mu.Lock()
	delete(m.treeNodes, id)
	m.mu.Unlock()
}

// SetExpansion marks id expanded or collapsed and persists the expanded set.
func (m *Module) SetExpansion(id string, expanded bool) {
	if id == "" {
		return
	}
	m.mu.Lock()
	if expanded {
		m.expandedNodes[id] = true
	} else {
		delete(m.expandedNodes, id)
	}
	m.mu.Unlock()

	m.persistExpanded()
}

// ToggleExpansion flips the expansion of id and persists the expanded set.
func (m *Module) ToggleExpansion(id string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	if m.expandedNodes[id] {
		delete(m.expandedNodes, id)
	} else {
		m.expandedNodes[id] = true
	}
	m.mu.Unlock()

	m.persistExpanded()
}
