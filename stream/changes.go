package stream

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/arbor/store"
)

// HandleChanges applies changes table stream events to the router.
// Only INSERT records carry changes; malformed records are skipped.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	if h.router == nil {
		return ErrNoRouter
	}

	applied := 0
	for _, record := range event.Records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if record.EventName != "INSERT" {
			continue
		}
		c, err := store.DecodeChange(FromEventImage(record.Change.NewImage))
		if err != nil {
			h.logger.Warn("skipping malformed change",
				"eventID", record.EventID,
				"error", err,
			)
			continue
		}
		applied += h.router.Apply(c)
	}

	h.logger.Debug("handled change batch",
		"records", len(event.Records),
		"applied", applied,
	)
	return nil
}
