package store

import "time"

// Config holds configuration for the Store.
type Config struct {
	// ContentNodeTable is the table holding content nodes and their tree position.
	// Default: "arbor_contentnodes"
	ContentNodeTable string

	// ChannelIndex is the GSI on ContentNodeTable keyed by channel_id.
	// Default: "channel_id-index"
	ChannelIndex string

	// RelationshipTable is the name of the parent -> child edge table.
	// Default: "arbor_tree"
	RelationshipTable string

	// ChangesTable is the change-tracking table read by the change feed.
	// Its stream must be enabled with NEW_IMAGE.
	// Default: "arbor_changes"
	ChangesTable string

	// ChangeRetention is how long change records live before TTL removes them.
	// Default: 7 days
	ChangeRetention time.Duration

	// NumShards is the number of shards for the relationship table.
	// Higher values spread the children of a large topic across partitions
	// at the cost of a parallel query per shard when listing children.
	// Default: 1 (no sharding, single query)
	// Max: 256
	NumShards int
}

// DefaultConfig returns sensible defaults for small channels.
func DefaultConfig() Config {
	return Config{
		ContentNodeTable:  "arbor_contentnodes",
		ChannelIndex:      "channel_id-index",
		RelationshipTable: "arbor_tree",
		ChangesTable:      "arbor_changes",
		ChangeRetention:   7 * 24 * time.Hour,
		NumShards:         1,
	}
}

// validate fills empty fields with defaults and clamps NumShards.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.ContentNodeTable == "" {
		c.ContentNodeTable = def.ContentNodeTable
	}
	if c.ChannelIndex == "" {
		c.ChannelIndex = def.ChannelIndex
	}
	if c.RelationshipTable == "" {
		c.RelationshipTable = def.RelationshipTable
	}
	if c.ChangesTable == "" {
		c.ChangesTable = def.ChangesTable
	}
	if c.ChangeRetention <= 0 {
		c.ChangeRetention = def.ChangeRetention
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > 256 {
		c.NumShards = 256
	}
}
