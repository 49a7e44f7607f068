package changes_test

import (
	"testing"

	"github.com/jacentio/arbor/changes"
)

func TestParseChangeType(t *testing.T) {
	tests := []struct {
		in   string
		want changes.ChangeType
		ok   bool
	}{
		{"1", changes.Created, true},
		{"2", changes.Updated, true},
		{"3", changes.Deleted, true},
		{"created", changes.Created, true},
		{"deleted", changes.Deleted, true},
		{"4", 0, false},
		{"0", 0, false},
		{"moved", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := changes.ParseChangeType(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseChangeType(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseChangeType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	for _, table := range changes.Tables() {
		got, ok := changes.ParseTable(string(table))
		if !ok || got != table {
			t.Errorf("ParseTable(%q) = %q, %v", table, got, ok)
		}
	}
	if _, ok := changes.ParseTable("assessmentitem"); ok {
		t.Error("expected unknown table to be rejected")
	}
}

func TestChangeType_String(t *testing.T) {
	if changes.Updated.String() != "updated" {
		t.Errorf("expected 'updated', got %q", changes.Updated.String())
	}
	if changes.ChangeType(9).String() != "unknown(9)" {
		t.Errorf("unexpected string for invalid kind: %q", changes.ChangeType(9).String())
	}
}

func TestChange_Payload(t *testing.T) {
	t.Run("created carries obj", func(t *testing.T) {
		c := changes.Change{
			Table: changes.ContentNode,
			Type:  changes.Created,
			Key:   "x",
			Obj:   changes.Record{"title": "A"},
		}
		p := c.Payload()
		if p.ID() != "x" || p["title"] != "A" {
			t.Errorf("unexpected payload %v", p)
		}
		if _, ok := c.Obj["id"]; ok {
			t.Error("payload must not mutate the change's obj")
		}
	})

	t.Run("updated carries mods", func(t *testing.T) {
		c := changes.Change{
			Type: changes.Updated,
			Key:  "x",
			Obj:  changes.Record{"title": "ignored"},
			Mods: changes.Record{"title": "B"},
		}
		p := c.Payload()
		if p["title"] != "B" || p.ID() != "x" {
			t.Errorf("unexpected payload %v", p)
		}
	})

	t.Run("deleted carries only id", func(t *testing.T) {
		c := changes.Change{
			Type: changes.Deleted,
			Key:  "x",
			Obj:  changes.Record{"title": "A"},
		}
		p := c.Payload()
		if len(p) != 1 || p.ID() != "x" {
			t.Errorf("unexpected payload %v", p)
		}
	})
}

func TestRecord_ID(t *testing.T) {
	if (changes.Record{"id": 42}).ID() != "" {
		t.Error("non-string id should read as empty")
	}
	if changes.Record(nil).ID() != "" {
		t.Error("nil record should read as empty")
	}
	if changes.Record(nil).Clone() != nil {
		t.Error("clone of nil should be nil")
	}
}

func TestListeners_Lookup(t *testing.T) {
	l := changes.Listeners{}
	l.Register(changes.ContentNode, changes.Created, "ADD_CONTENTNODE")

	m, ok := l.Lookup(changes.ContentNode, changes.Created)
	if !ok || m != "ADD_CONTENTNODE" {
		t.Errorf("expected ADD_CONTENTNODE, got %q %v", m, ok)
	}

	if _, ok := l.Lookup(changes.ContentNode, changes.Deleted); ok {
		t.Error("expected no route for unregistered kind")
	}
	if _, ok := l.Lookup(changes.File, changes.Created); ok {
		t.Error("expected no route for unregistered table")
	}
	if _, ok := l.Lookup(changes.Table("bogus"), changes.ChangeType(42)); ok {
		t.Error("expected no route for unknown table and kind")
	}

	var nilTable changes.Listeners
	if _, ok := nilTable.Lookup(changes.Tree, changes.Created); ok {
		t.Error("expected no route from nil table")
	}
}

func TestListeners_Routes(t *testing.T) {
	l := changes.Listeners{}
	l.Register(changes.Tree, changes.Deleted, "C")
	l.Register(changes.ContentNode, changes.Updated, "B")
	l.Register(changes.ContentNode, changes.Created, "A")

	routes := l.Routes()
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(routes))
	}
	want := []changes.Mutation{"A", "B", "C"}
	for i, r := range routes {
		if r.Mutation != want[i] {
			t.Errorf("route %d: expected %q, got %q", i, want[i], r.Mutation)
		}
	}
	if !l.Handles(changes.Tree) || l.Handles(changes.Channel) {
		t.Error("unexpected Handles result")
	}
}
