package contentnode

import (
	"sort"

	"github.com/jacentio/arbor/changes"
)

// TreeNode is a node's position in the channel tree.
type TreeNode struct {
	ID        string
	TreeID    int
	Parent    string
	SortOrder float64
	Rght      int
	ChannelID string
}

// treeNodeFrom decodes a tree record. Records without an id are rejected.
func treeNodeFrom(r changes.Record) (TreeNode, bool) {
	id := r.ID()
	if id == "" {
		return TreeNode{}, false
	}
	n := TreeNode{ID: id}
	n.apply(r)
	return n, true
}

// apply sets the fields present in r.
func (n *TreeNode) apply(r changes.Record) {
	if v, ok := r["parent"]; ok {
		n.Parent, _ = v.(string)
	}
	if v, ok := number(r["sort_order"]); ok {
		n.SortOrder = v
	} else if v, ok := number(r["lft"]); ok {
		n.SortOrder = v
	}
	if v, ok := number(r["tree_id"]); ok {
		n.TreeID = int(v)
	}
	if v, ok := number(r["rght"]); ok {
		n.Rght = int(v)
	}
	if v, ok := r["channel_id"].(string); ok {
		n.ChannelID = v
	}
}

// Record encodes n as a tree record.
func (n TreeNode) Record() changes.Record {
	r := changes.Record{
		"id":         n.ID,
		"tree_id":    float64(n.TreeID),
		"sort_order": n.SortOrder,
		"rght":       float64(n.Rght),
	}
	if n.Parent != "" {
		r["parent"] = n.Parent
	}
	if n.ChannelID != "" {
		r["channel_id"] = n.ChannelID
	}
	return r
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// sortTreeNodes orders nodes by sort order, then id.
func sortTreeNodes(nodes []TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// TreeFilter selects tree nodes. Nil fields match everything.
type TreeFilter struct {
	// Parent matches nodes directly under this parent ("" for roots).
	Parent *string

	// MaxLft matches nodes whose sort order is <= MaxLft.
	MaxLft *float64

	// MinRght matches nodes whose rght is >= MinRght.
	MinRght *int
}

func (f TreeFilter) match(n TreeNode) bool {
	if f.Parent != nil && n.Parent != *f.Parent {
		return false
	}
	if f.MaxLft != nil && n.SortOrder > *f.MaxLft {
		return false
	}
	if f.MinRght != nil && n.Rght < *f.MinRght {
		return false
	}
	return true
}

// Position places a moved node relative to its target.
type Position string

// Move positions.
const (
	FirstChild Position = "first-child"
	LastChild  Position = "last-child"
	Left       Position = "left"
	Right      Position = "right"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	switch p {
	case FirstChild, LastChild, Left, Right:
		return true
	}
	return false
}

// placement is where a move puts a node.
type placement struct {
	Parent    string
	SortOrder float64
}

// place computes the new parent and sort order of node id when moved to
// position relative to target. siblingsOf returns the ordered children of
// a parent.
func place(id string, target TreeNode, position Position, siblingsOf func(parent string) []TreeNode) (placement, error) {
	var parent string
	switch position {
	case FirstChild, LastChild:
		parent = target.ID
	case Left, Right:
		if target.Parent == "" {
			return placement{}, ErrInvalidMove
		}
		parent = target.Parent
	default:
		return placement{}, ErrInvalidPosition
	}

	var siblings []TreeNode
	for _, s := range siblingsOf(parent) {
		if s.ID != id {
			siblings = append(siblings, s)
		}
	}

	p := placement{Parent: parent, SortOrder: 1}
	if len(siblings) == 0 {
		return p, nil
	}

	switch position {
	case FirstChild:
		p.SortOrder = siblings[0].SortOrder - 1
	case LastChild:
		p.SortOrder = siblings[len(siblings)-1].SortOrder + 1
	case Left, Right:
		i := indexOf(siblings, target.ID)
		if position == Left {
			if i == 0 {
				p.SortOrder = target.SortOrder - 1
			} else {
				p.SortOrder = (siblings[i-1].SortOrder + target.SortOrder) / 2
			}
		} else {
			if i == len(siblings)-1 {
				p.SortOrder = target.SortOrder + 1
			} else {
				p.SortOrder = (target.SortOrder + siblings[i+1].SortOrder) / 2
			}
		}
	}
	return p, nil
}

func indexOf(nodes []TreeNode, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
