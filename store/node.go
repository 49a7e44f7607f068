package store

import (
	"context"
	"encoding/hex"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/jacentio/arbor/changes"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Node is a stored content node: its attributes plus its position in the tree.
type Node struct {
	ID        string         `dynamodbav:"id"`
	Parent    string         `dynamodbav:"parent,omitempty"`
	ChannelID string         `dynamodbav:"channel_id,omitempty"`
	TreeID    int            `dynamodbav:"tree_id"`
	SortOrder float64        `dynamodbav:"sort_order"`
	Rght      int            `dynamodbav:"rght"`
	Attrs     changes.Record `dynamodbav:"attrs"`

	// Managed fields.
	Version   int64  `dynamodbav:"version"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
	TTL       int64  `dynamodbav:"ttl,omitempty"`
}

// ContentNodeRecord returns the node's attributes as a contentnode record.
func (n *Node) ContentNodeRecord() changes.Record {
	r := n.Attrs.Clone()
	if r == nil {
		r = changes.Record{}
	}
	r["id"] = n.ID
	if n.Parent != "" {
		r["parent"] = n.Parent
	}
	if n.ChannelID != "" {
		r["channel_id"] = n.ChannelID
	}
	return r
}

// TreeRecord returns the node's position as a tree record.
func (n *Node) TreeRecord() changes.Record {
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

// ChildRef is an edge from a parent to one of its children.
type ChildRef struct {
	// ID is the child's node id.
	ID string

	// ShardPK is the relationship table partition key (for TTL updates).
	ShardPK string
}

// QueryInput defines parameters for querying nodes.
type QueryInput struct {
	// IndexName is the optional GSI/LSI to query.
	IndexName string

	// KeyConditionExpression is the DynamoDB key condition.
	KeyConditionExpression string

	// FilterExpression is an optional filter (TTL filter is automatically merged).
	FilterExpression string

	// ExpressionAttributeNames maps expression attribute name placeholders.
	ExpressionAttributeNames map[string]string

	// ExpressionAttributeValues maps expression attribute value placeholders.
	ExpressionAttributeValues map[string]any

	// Limit is the maximum number of items to return (0 = no limit).
	Limit int32
}

// NewID returns a fresh node id: a random UUID as 32 hex characters.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
