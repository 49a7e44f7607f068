package store

import "errors"

var (
	// ErrParentNotFound is returned when the parent node doesn't exist or is deleted.
	ErrParentNotFound = errors.New("arbor: parent node not found")

	// ErrNotFound is returned when a node doesn't exist or is deleted (has TTL <= now).
	ErrNotFound = errors.New("arbor: node not found")

	// ErrAlreadyExists is returned when creating a node with an existing ID.
	ErrAlreadyExists = errors.New("arbor: node already exists")

	// ErrHasChildren is returned when deleting a node with active children.
	ErrHasChildren = errors.New("arbor: node has active children")

	// ErrConcurrentModification is returned when optimistic lock fails (version mismatch).
	ErrConcurrentModification = errors.New("arbor: node was modified concurrently")
)
