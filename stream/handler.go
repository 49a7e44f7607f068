// Package stream consumes DynamoDB streams: the changes table stream feeds
// registered in-memory modules, and the content node table stream drives
// cascade deletes.
package stream

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jacentio/arbor/changes"
	"github.com/jacentio/arbor/store"
)

// ErrNoRouter is returned by HandleChanges on a handler built without a router.
var ErrNoRouter = errors.New("arbor: stream handler has no router")

// Store is the persistence the cascade handler writes through.
// *store.Store implements it.
type Store interface {
	QueryAllChildren(ctx context.Context, parentID string) ([]store.ChildRef, error)
	SetTTL(ctx context.Context, id string, ttl int64) error
	SetRelationshipTTL(ctx context.Context, childID, parentID string, ttl int64) error
	RecordChange(ctx context.Context, c changes.Change) error
}

var _ Store = (*store.Store)(nil)

// Handler processes DynamoDB stream events.
type Handler struct {
	store  Store
	router *Router
	logger *slog.Logger
}

// NewHandler creates a stream handler. s is needed for cascade deletes,
// router for applying changes; either may be nil when unused.
func NewHandler(s Store, router *Router, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		router: router,
		logger: logger,
	}
}
