package contentnode

import (
	"sort"

	"github.com/jacentio/arbor/changes"
)

// ContentNode returns a copy of the record for id.
func (m *Module) ContentNode(id string) (changes.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.contentNodes[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// ContentNodes returns copies of the loaded records among ids, in order.
func (m *Module) ContentNodes(ids []string) []changes.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]changes.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.contentNodes[id]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// TreeNode returns the tree node for id.
func (m *Module) TreeNode(id string) (TreeNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.treeNodes[id]
	return n, ok
}

// TreeNodeChildren returns the children of parentID ordered by sort order.
// An empty parentID returns the roots.
func (m *Module) TreeNodeChildren(parentID string) []TreeNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.children(parentID)
}

// children must be called with m.mu held.
func (m *Module) children(parentID string) []TreeNode {
	var out []TreeNode
	for _, n := range m.treeNodes {
		if n.Parent == parentID {
			out = append(out, n)
		}
	}
	sortTreeNodes(out)
	return out
}

// ContentNodeChildren returns the records of the loaded children of
// parentID in tree order.
func (m *Module) ContentNodeChildren(parentID string) []changes.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []changes.Record
	for _, n := range m.children(parentID) {
		if r, ok := m.contentNodes[n.ID]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// HasChildren reports whether any loaded tree node sits under id.
func (m *Module) HasChildren(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.treeNodes {
		if n.Parent == id {
			return true
		}
	}
	return false
}

// Ancestors returns the loaded ancestors of id, root first. The walk stops
// at the first parent that is not loaded.
func (m *Module) Ancestors(id string) []TreeNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ancestors(id)
}

// ancestors must be called with m.mu held.
func (m *Module) ancestors(id string) []TreeNode {
	n, ok := m.treeNodes[id]
	if !ok {
		return nil
	}
	var out []TreeNode
	seen := map[string]bool{id: true}
	for n.Parent != "" && !seen[n.Parent] {
		parent, ok := m.treeNodes[n.Parent]
		if !ok {
			break
		}
		seen[parent.ID] = true
		out = append(out, parent)
		n = parent
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// isDescendant reports whether id sits anywhere under ancestorID. Must be
// called with m.mu held.
func (m *Module) isDescendant(id, ancestorID string) bool {
	for _, a := range m.ancestors(id) {
		if a.ID == ancestorID {
			return true
		}
	}
	return false
}

// descendants returns every loaded node under id, breadth first. Must be
// called with m.mu held.
func (m *Module) descendants(id string) []TreeNode {
	var out []TreeNode
	queue := []string{id}
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range m.children(parent) {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out
}

// IsExpanded reports whether id is in the expanded set.
func (m *Module) IsExpanded(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expandedNodes[id]
}

// ExpandedNodes returns the expanded ids in sorted order.
func (m *Module) ExpandedNodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.expandedNodes))
	for id := range m.expandedNodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsVisible reports whether every loaded ancestor of id is expanded.
// Nodes that are not loaded are not visible.
func (m *Module) IsVisible(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.treeNodes[id]; !ok {
		return false
	}
	for _, a := range m.ancestors(id) {
		if !m.expandedNodes[a.ID] {
			return false
		}
	}
	return true
}

// FilterTreeNodes returns the tree nodes matching f ordered by sort order.
func (m *Module) FilterTreeNodes(f TreeFilter) []TreeNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TreeNode
	for _, n := range m.treeNodes {
		if f.match(n) {
			out = append(out, n)
		}
	}
	sortTreeNodes(out)
	return out
}
