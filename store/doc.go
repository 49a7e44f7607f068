// Package store persists content nodes, their tree edges and the change
// records that feed in-memory replicas, on DynamoDB.
//
// Every write runs as a single transaction that also appends to the changes
// table, so a subscriber reading that table's stream sees exactly the writes
// that committed.
//
// # Tables
//
//   - content nodes: hash key "id", GSI on "channel_id"
//   - tree edges: hash key "pk" (sharded parent id), range key "child_ref"
//   - changes: hash key "rev", stream enabled with NEW_IMAGE
//
// Deletes are soft: a node gets a "ttl" attribute set to now and DynamoDB
// removes it later. A stream handler on the content node table propagates
// the TTL to children (see package stream).
//
// # Configuration
//
// Use [DefaultConfig] for small channels (NumShards=1, single queries).
// Increase NumShards for topics with very many children:
//
//	cfg := store.DefaultConfig()
//	cfg.NumShards = 16
//
// # Errors
//
//   - [ErrNotFound] - node doesn't exist or is deleted
//   - [ErrParentNotFound] - parent validation failed
//   - [ErrAlreadyExists] - node with ID already exists
//   - [ErrHasChildren] - cannot delete node with children
//   - [ErrConcurrentModification] - optimistic lock failed
package store
