package contentnode

import (
	"context"
	"fmt"

	"github.com/jacentio/arbor/changes"
	"github.com/jacentio/arbor/store"
)

// load commits the content and tree records of node.
func (m *Module) load(node *store.Node) {
	m.AddContentNode(node.ContentNodeRecord())
	m.AddTreeNode(node.TreeRecord())
}

// LoadContentNode fetches id from the backend and adds it to the module.
func (m *Module) LoadContentNode(ctx context.Context, id string) (changes.Record, error) {
	if m.backend == nil {
		return nil, ErrNoBackend
	}
	node, err := m.backend.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load content node %s: %w", id, err)
	}
	m.load(node)
	return node.ContentNodeRecord(), nil
}

// LoadTree fetches one of a channel's trees and adds its nodes to the
// module. A channel holds a main tree and a trash tree; the trash tree's
// root carries a truthy "trash" attribute. A channel without the
// requested tree loads nothing.
func (m *Module) LoadTree(ctx context.Context, channelID string, trash bool) ([]TreeNode, error) {
	if channelID == "" {
		return nil, ErrMissingChannel
	}
	if m.backend == nil {
		return nil, ErrNoBackend
	}

	nodes, err := m.backend.ListChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", channelID, err)
	}

	var root *store.Node
	for _, n := range nodes {
		if n.Parent == "" && truthy(n.Attrs["trash"]) == trash {
			root = n
			break
		}
	}
	if root == nil {
		m.logger.Debug("channel has no such tree", "channel_id", channelID, "trash", trash)
		return nil, nil
	}

	var out []TreeNode
	for _, n := range nodes {
		if n.TreeID != root.TreeID {
			continue
		}
		m.load(n)
		if tn, ok := treeNodeFrom(n.TreeRecord()); ok {
			out = append(out, tn)
		}
	}
	sortTreeNodes(out)

	m.logger.Debug("loaded tree", "channel_id", channelID, "trash", trash, "nodes", len(out))
	return out, nil
}

// CreateInput describes a new content node.
type CreateInput struct {
	// Parent is the id of a loaded node. Empty creates a root, which
	// requires ChannelID.
	Parent string

	// ChannelID defaults to the parent's channel.
	ChannelID string

	Attrs changes.Record
}

// CreateContentNode creates a node as the last child of in.Parent and adds
// it to the module. It returns the new node's id.
func (m *Module) CreateContentNode(ctx context.Context, in CreateInput) (string, error) {
	if m.backend == nil {
		return "", ErrNoBackend
	}

	node := &store.Node{
		Parent:    in.Parent,
		ChannelID: in.ChannelID,
		Attrs:     in.Attrs.Clone(),
		SortOrder: 1,
	}

	if in.Parent != "" {
		m.mu.RLock()
		parent, ok := m.treeNodes[in.Parent]
		siblings := m.children(in.Parent)
		m.mu.RUnlock()
		if !ok {
			return "", ErrNotFound
		}
		if node.ChannelID == "" {
			node.ChannelID = parent.ChannelID
		}
		node.TreeID = parent.TreeID
		if len(siblings) > 0 {
			node.SortOrder = siblings[len(siblings)-1].SortOrder + 1
		}
	}
	if node.ChannelID == "" {
		return "", ErrMissingChannel
	}

	if err := m.backend.Create(ctx, node); err != nil {
		return "", fmt.Errorf("create content node: %w", err)
	}
	m.load(node)

	m.logger.Debug("created content node", "id", node.ID, "parent", node.Parent)
	return node.ID, nil
}

// UpdateContentNode writes mods to the backend and merges them onto the
// loaded record.
func (m *Module) UpdateContentNode(ctx context.Context, id string, mods changes.Record) error {
	if m.backend == nil {
		return ErrNoBackend
	}
	node, err := m.backend.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("update content node %s: %w", id, err)
	}
	if err := m.backend.Update(ctx, id, mods, node.Version); err != nil {
		return fmt.Errorf("update content node %s: %w", id, err)
	}

	payload := mods.Clone()
	if payload == nil {
		payload = changes.Record{}
	}
	payload["id"] = id
	m.MergeContentNode(payload)
	return nil
}

// DeleteContentNode deletes id and its subtree. The backend cascades the
// delete; the module drops every loaded descendant right away.
func (m *Module) DeleteContentNode(ctx context.Context, id string) error {
	if m.backend == nil {
		return ErrNoBackend
	}
	if err := m.backend.Delete(ctx, id, store.DeleteOptions{Cascade: true}); err != nil {
		return fmt.Errorf("delete content node %s: %w", id, err)
	}

	m.mu.Lock()
	removed := append(m.descendants(id), TreeNode{ID: id})
	for _, n := range removed {
		delete(m.contentNodes, n.ID)
		delete(m.treeNodes, n.ID)
	}
	m.mu.Unlock()

	m.logger.Debug("deleted content node", "id", id, "removed", len(removed))
	return nil
}

// MoveContentNode moves id to position relative to target. An empty
// position means FirstChild. Both nodes must be loaded.
func (m *Module) MoveContentNode(ctx context.Context, id, target string, position Position) error {
	if m.backend == nil {
		return ErrNoBackend
	}
	if target == "" {
		return ErrTargetRequired
	}
	if position == "" {
		position = FirstChild
	}
	if !position.Valid() {
		return ErrInvalidPosition
	}

	m.mu.RLock()
	node, ok := m.treeNodes[id]
	targetNode, targetOK := m.treeNodes[target]
	var (
		p       placement
		err     error
		treeID  *int
		subtree []TreeNode
	)
	switch {
	case !ok:
		err = ErrNotFound
	case !targetOK:
		err = ErrTargetNotFound
	case target == id:
		err = ErrInvalidMove
	default:
		p, err = place(id, targetNode, position, m.children)
		if err == nil && (p.Parent == id || m.isDescendant(p.Parent, id)) {
			err = ErrInvalidMove
		}
		if err == nil {
			if parent, ok := m.treeNodes[p.Parent]; ok && parent.TreeID != node.TreeID {
				treeID = &parent.TreeID
				subtree = m.descendants(id)
			}
		}
	}
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	current, err := m.backend.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("move content node %s: %w", id, err)
	}
	err = m.backend.Move(ctx, store.MoveInput{
		ID:              id,
		OldParent:       current.Parent,
		NewParent:       p.Parent,
		SortOrder:       p.SortOrder,
		ExpectedVersion: current.Version,
		ChannelID:       node.ChannelID,
		TreeID:          treeID,
	})
	if err != nil {
		return fmt.Errorf("move content node %s: %w", id, err)
	}

	moved := changes.Record{"id": id, "parent": p.Parent, "sort_order": p.SortOrder}
	if treeID != nil {
		moved["tree_id"] = float64(*treeID)
		for _, d := range subtree {
			m.MergeTreeNode(changes.Record{"id": d.ID, "tree_id": float64(*treeID)})
		}
	}
	m.MergeTreeNode(moved)
	m.MergeContentNode(changes.Record{"id": id, "parent": p.Parent})

	m.logger.Debug("moved content node", "id", id, "parent", p.Parent, "sort_order", p.SortOrder)
	return nil
}
