// Package shard computes partition keys for the tree relationship table.
package shard

import (
	"fmt"
	"hash/fnv"
)

// RelationshipPK computes the sharded partition key for a parent -> child edge.
// With numShards=1, all edges of a parent go to shard "00".
// With numShards>1, edges are spread across shards by a hash of the child id.
func RelationshipPK(parentID, childID string, numShards int) string {
	if numShards <= 1 {
		return PK(parentID, 0)
	}
	h := fnv.New32a()
	h.Write([]byte(childID))
	return PK(parentID, int(h.Sum32()%uint32(numShards)))
}

// PK returns the partition key of one shard of a parent's edges.
func PK(parentID string, shard int) string {
	return fmt.Sprintf("%s#%02x", parentID, shard)
}

// All returns the partition keys of every shard of a parent's edges.
func All(parentID string, numShards int) []string {
	if numShards < 1 {
		numShards = 1
	}
	pks := make([]string, numShards)
	for i := range pks {
		pks[i] = PK(parentID, i)
	}
	return pks
}
