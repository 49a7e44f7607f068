package contentnode

import (
	"context"
	"errors"
	"sync"

	"github.com/jacentio/arbor/changes"
	"github.com/jacentio/arbor/store"
)

// fakeBackend is an in-memory Backend.
type fakeBackend struct {
	mu      sync.Mutex
	nodes   map[string]*store.Node
	err     error
	created []*store.Node
	updates []changes.Record
	moves   []store.MoveInput
	deletes []string
}

func newFakeBackend(nodes ...*store.Node) *fakeBackend {
	f := &fakeBackend{nodes: make(map[string]*store.Node)}
	for _, n := range nodes {
		if n.Version == 0 {
			n.Version = 1
		}
		f.nodes[n.ID] = n
	}
	return f
}

func (f *fakeBackend) Get(_ context.Context, id string) (*store.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.nodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *fakeBackend) ListChannel(_ context.Context, channelID string) ([]*store.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*store.Node
	for _, n := range f.nodes {
		if n.ChannelID == channelID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeBackend) Create(_ context.Context, node *store.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if node.ID == "" {
		node.ID = store.NewID()
	}
	node.Version = 1
	cp := *node
	f.nodes[node.ID] = &cp
	f.created = append(f.created, &cp)
	return nil
}

func (f *fakeBackend) Update(_ context.Context, id string, mods changes.Record, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n, ok := f.nodes[id]
	if !ok || n.Version != expectedVersion {
		return store.ErrConcurrentModification
	}
	if n.Attrs == nil {
		n.Attrs = changes.Record{}
	}
	for k, v := range mods {
		n.Attrs[k] = v
	}
	n.Version++
	f.updates = append(f.updates, mods)
	return nil
}

func (f *fakeBackend) Move(_ context.Context, in store.MoveInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n, ok := f.nodes[in.ID]
	if !ok || n.Version != in.ExpectedVersion {
		return store.ErrConcurrentModification
	}
	n.Parent = in.NewParent
	n.SortOrder = in.SortOrder
	n.Version++
	if in.TreeID != nil {
		n.TreeID = *in.TreeID
	}
	f.moves = append(f.moves, in)
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, id string, _ store.DeleteOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.nodes, id)
	f.deletes = append(f.deletes, id)
	return nil
}

var errBoom = errors.New("boom")

// failingStorage fails every operation.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) { return "", false, errBoom }
func (failingStorage) Set(context.Context, string, string) error         { return errBoom }
func (failingStorage) Delete(context.Context, string) error              { return errBoom }
