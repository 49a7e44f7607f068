package stream

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/arbor/changes"
)

// HandleCascadeDelete processes content node table stream events and
// propagates a newly set TTL to the node's tree children.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleCascadeDelete(ctx context.Context, event events.DynamoDBEvent) error {
	for i := range event.Records {
		record := &event.Records[i]
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single content node stream record.
func (h *Handler) processRecord(ctx context.Context, record *events.DynamoDBEventRecord) error {
	// Only process MODIFY events where TTL was added
	if record.EventName != "MODIFY" {
		return nil
	}

	oldTTL := getNumberAttr(record.Change.OldImage, "ttl")
	newTTL := getNumberAttr(record.Change.NewImage, "ttl")

	// Only process when TTL is newly set (was absent/0, now present)
	if oldTTL != 0 || newTTL == 0 {
		return nil
	}

	id := getStringAttr(record.Change.NewImage, "id")
	parent := getStringAttr(record.Change.NewImage, "parent")
	channelID := getStringAttr(record.Change.NewImage, "channel_id")
	if id == "" {
		h.logger.Warn("skipping cascade for record without id", "eventID", record.EventID)
		return nil
	}

	h.logger.Info("processing cascade delete",
		"id", id,
		"parent", parent,
		"ttl", newTTL,
	)

	// 1. Query all children (including already-deleted ones - idempotent)
	children, err := h.store.QueryAllChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("query children: %w", err)
	}

	h.logger.Info("found children to cascade",
		"id", id,
		"childCount", len(children),
	)

	// 2. Set same TTL on all children (triggers their cascade via stream)
	//    and tell subscribers they are gone.
	for _, child := range children {
		if err := h.store.SetTTL(ctx, child.ID, newTTL); err != nil {
			h.logger.Warn("failed to set TTL on child",
				"child", child.ID,
				"error", err,
			)
			// Continue - idempotent, will retry
			continue
		}
		for _, table := range []changes.Table{changes.ContentNode, changes.Tree} {
			c := changes.Change{Table: table, Type: changes.Deleted, Key: child.ID, ChannelID: channelID}
			if err := h.store.RecordChange(ctx, c); err != nil {
				h.logger.Warn("failed to record cascaded delete",
					"child", child.ID,
					"table", table,
					"error", err,
				)
			}
		}
	}

	// 3. Set TTL on this node's edge from its parent
	if parent != "" {
		if err := h.store.SetRelationshipTTL(ctx, id, parent, newTTL); err != nil {
			h.logger.Warn("failed to set relationship TTL",
				"id", id,
				"parent", parent,
				"error", err,
			)
		}
	}

	h.logger.Info("cascade delete completed",
		"id", id,
		"childrenProcessed", len(children),
	)

	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts an integer attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}
