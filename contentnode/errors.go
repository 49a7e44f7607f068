package contentnode

import "errors"

var (
	// ErrNotFound is returned when an action names a node that is not loaded.
	ErrNotFound = errors.New("arbor: content node not loaded")

	// ErrNoBackend is returned by actions on a module built without a backend.
	ErrNoBackend = errors.New("arbor: module has no backend")

	// ErrMissingChannel is returned when a tree is requested without a channel id.
	ErrMissingChannel = errors.New("arbor: channel_id is required")

	// ErrTargetRequired is returned when a move names no target node.
	ErrTargetRequired = errors.New("arbor: a target content node must be specified")

	// ErrTargetNotFound is returned when a move's target node is not loaded.
	ErrTargetNotFound = errors.New("arbor: target content node does not exist")

	// ErrInvalidPosition is returned for a move position outside the known set.
	ErrInvalidPosition = errors.New("arbor: invalid node position")

	// ErrInvalidMove is returned when a node would become its own ancestor,
	// or a sibling of a root.
	ErrInvalidMove = errors.New("arbor: invalid move")
)
