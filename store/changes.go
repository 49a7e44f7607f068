package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/arbor/changes"
)

// changeItem is the changes table layout.
type changeItem struct {
	Rev       string         `dynamodbav:"rev"`
	Table     string         `dynamodbav:"table"`
	Type      int            `dynamodbav:"type"`
	Key       string         `dynamodbav:"key"`
	Obj       map[string]any `dynamodbav:"obj,omitempty"`
	Mods      map[string]any `dynamodbav:"mods,omitempty"`
	ChannelID string         `dynamodbav:"channel_id,omitempty"`
	CreatedAt string         `dynamodbav:"created_at"`
	TTL       int64          `dynamodbav:"ttl,omitempty"`
}

// EncodeChange converts a change to a changes table item. A missing Rev or
// CreatedAt is filled in. ttl of 0 leaves the record without expiry.
func EncodeChange(c changes.Change, ttl int64) (map[string]types.AttributeValue, error) {
	if c.Rev == "" {
		c.Rev = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	item := changeItem{
		Rev:       c.Rev,
		Table:     string(c.Table),
		Type:      int(c.Type),
		Key:       c.Key,
		Obj:       c.Obj,
		Mods:      c.Mods,
		ChannelID: c.ChannelID,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		TTL:       ttl,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return av, nil
}

// DecodeChange converts a changes table item back to a change.
// Unknown tables or change kinds are reported as errors.
func DecodeChange(av map[string]types.AttributeValue) (changes.Change, error) {
	var item changeItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return changes.Change{}, fmt.Errorf("unmarshal change: %w", err)
	}

	table, ok := changes.ParseTable(item.Table)
	if !ok {
		return changes.Change{}, fmt.Errorf("unknown table %q", item.Table)
	}
	kind := changes.ChangeType(item.Type)
	if !kind.Valid() {
		return changes.Change{}, fmt.Errorf("unknown change type %d", item.Type)
	}
	if item.Key == "" {
		return changes.Change{}, fmt.Errorf("change %s has no key", item.Rev)
	}

	c := changes.Change{
		Rev:       item.Rev,
		Table:     table,
		Type:      kind,
		Key:       item.Key,
		Obj:       item.Obj,
		Mods:      item.Mods,
		ChannelID: item.ChannelID,
	}
	if item.CreatedAt != "" {
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, item.CreatedAt)
	}
	return c, nil
}

// changeTTL returns the expiry for change records written now.
func (s *Store) changeTTL(now time.Time) int64 {
	return now.Add(s.config.ChangeRetention).Unix()
}

// changePut builds the transaction item appending c to the changes table.
func (s *Store) changePut(c changes.Change, now time.Time) (types.TransactWriteItem, error) {
	c.CreatedAt = now
	item, err := EncodeChange(c, s.changeTTL(now))
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.config.ChangesTable),
			Item:      item,
		},
	}, nil
}

// RecordChange appends a single change outside of any transaction.
// Used by the cascade handler for nodes deleted by TTL propagation.
func (s *Store) RecordChange(ctx context.Context, c changes.Change) error {
	now := time.Now()
	c.CreatedAt = now
	item, err := EncodeChange(c, s.changeTTL(now))
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.ChangesTable),
		Item:      item,
	})
	return err
}
