// Package changes defines the change records produced by the change feed and
// the dispatch tables that route them to store mutations.
package changes

import (
	"fmt"
	"strconv"
	"time"
)

// Table identifies a persisted table whose records are tracked by the change feed.
type Table string

// Known tables.
const (
	ContentNode Table = "contentnode"
	Tree        Table = "tree"
	File        Table = "file"
	Channel     Table = "channel"
)

// Tables returns every known table.
func Tables() []Table {
	return []Table{ContentNode, Tree, File, Channel}
}

// ParseTable maps a table name to a Table.
func ParseTable(s string) (Table, bool) {
	for _, t := range Tables() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ChangeType is the kind of change applied to a record.
type ChangeType int

// Change kinds, numbered as they are stored in the changes table.
const (
	Created ChangeType = iota + 1
	Updated
	Deleted
)

// ChangeTypes returns every change kind.
func ChangeTypes() []ChangeType {
	return []ChangeType{Created, Updated, Deleted}
}

func (c ChangeType) String() string {
	switch c {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return "unknown(" + strconv.Itoa(int(c)) + ")"
}

// Valid reports whether c is one of the known change kinds.
func (c ChangeType) Valid() bool {
	return c >= Created && c <= Deleted
}

// ParseChangeType accepts either the stored number ("1") or the name ("created").
func ParseChangeType(s string) (ChangeType, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		c := ChangeType(n)
		return c, c.Valid()
	}
	for _, c := range ChangeTypes() {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Mutation names a state mutation on a store module.
type Mutation string

// Record holds the opaque attributes of an entity.
type Record map[string]any

// ID returns the record's "id" attribute, or "" if absent or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Change is a single entry of the changes table.
type Change struct {
	// Rev is the unique revision id of the change.
	Rev string

	// Table is the table the changed record belongs to.
	Table Table

	// Type is the kind of change.
	Type ChangeType

	// Key is the id of the changed record.
	Key string

	// Obj is the full record for created changes.
	Obj Record

	// Mods holds the changed attributes for updated changes.
	Mods Record

	// ChannelID scopes the change to a channel (may be empty).
	ChannelID string

	// CreatedAt is when the change was recorded.
	CreatedAt time.Time
}

// Payload returns the record a mutation for this change should receive.
// Created changes carry the full object, updated changes their modifications,
// and deleted changes only the id.
func (c Change) Payload() Record {
	var p Record
	switch c.Type {
	case Created:
		p = c.Obj.Clone()
	case Updated:
		p = c.Mods.Clone()
	}
	if p == nil {
		p = Record{}
	}
	p["id"] = c.Key
	return p
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s %s", c.Table, c.Type, c.Key)
}
