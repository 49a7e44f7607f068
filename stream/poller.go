package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/jacentio/arbor/store"
)

// StreamsAPI is the subset of the DynamoDB Streams client the poller uses.
type StreamsAPI interface {
	DescribeStream(ctx context.Context, params *dynamodbstreams.DescribeStreamInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, params *dynamodbstreams.GetShardIteratorInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, params *dynamodbstreams.GetRecordsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error)
}

var _ StreamsAPI = (*dynamodbstreams.Client)(nil)

// PollerConfig configures a Poller.
type PollerConfig struct {
	// StreamARN is the changes table stream.
	StreamARN string

	// Interval is the pause between polls.
	// Default: 1s
	Interval time.Duration

	// Limit caps records fetched per shard per poll.
	// Default: 100, max 1000
	Limit int32
}

// DefaultPollerConfig returns the default poller configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: time.Second,
		Limit:    100,
	}
}

func (c *PollerConfig) validate() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Limit <= 0 {
		c.Limit = 100
	}
	if c.Limit > 1000 {
		c.Limit = 1000
	}
}

// Poller reads the changes table stream outside Lambda and applies new
// changes to a router. Shards open at startup are read from their latest
// record. When a shard closes, its children are read from their first
// record so no change written after the split is lost.
type Poller struct {
	client    StreamsAPI
	router    *Router
	config    PollerConfig
	logger    *slog.Logger
	iterators map[string]*string

	// finished holds shards read to their end.
	finished map[string]bool

	// orphaned holds finished shards whose children have not been listed yet.
	orphaned map[string]bool
}

// NewPoller creates a poller. Call Run to start it.
func NewPoller(client StreamsAPI, router *Router, config PollerConfig, logger *slog.Logger) *Poller {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:    client,
		router:    router,
		config:    config,
		logger:    logger,
		iterators: make(map[string]*string),
		finished:  make(map[string]bool),
		orphaned:  make(map[string]bool),
	}
}

// Run polls until ctx is cancelled. It returns nil on cancellation and the
// error otherwise.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting stream poller", "stream", p.config.StreamARN)
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			p.logger.Info("stream poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll reads each open shard once and returns how many mutations ran.
// The stream is described again when no shard is open or a finished shard
// is still waiting for its children to appear.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	if len(p.iterators) == 0 || len(p.orphaned) > 0 {
		if err := p.openShards(ctx); err != nil {
			return 0, err
		}
	}

	applied := 0
	for shardID, iterator := range p.iterators {
		out, err := p.client.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{
			ShardIterator: iterator,
			Limit:         aws.Int32(p.config.Limit),
		})
		if err != nil {
			var expired *streamtypes.ExpiredIteratorException
			var trimmed *streamtypes.TrimmedDataAccessException
			if errors.As(err, &expired) || errors.As(err, &trimmed) {
				p.logger.Warn("dropping shard iterator", "shard", shardID, "error", err)
				delete(p.iterators, shardID)
				continue
			}
			return applied, fmt.Errorf("get records %s: %w", shardID, err)
		}

		for _, record := range out.Records {
			applied += p.apply(record)
		}

		if out.NextShardIterator == nil {
			p.logger.Debug("shard closed", "shard", shardID)
			delete(p.iterators, shardID)
			p.finished[shardID] = true
			p.orphaned[shardID] = true
			continue
		}
		p.iterators[shardID] = out.NextShardIterator
	}
	return applied, nil
}

// openShards lists the stream and opens every shard not yet tracked:
// children of finished shards at TRIM_HORIZON, other open shards at LATEST.
// Closed shards whose parent was never read are skipped.
func (p *Poller) openShards(ctx context.Context) error {
	var startShard *string
	for {
		out, err := p.client.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{
			StreamArn:             aws.String(p.config.StreamARN),
			ExclusiveStartShardId: startShard,
		})
		if err != nil {
			return fmt.Errorf("describe stream: %w", err)
		}
		desc := out.StreamDescription
		if desc == nil {
			return nil
		}

		for _, shard := range desc.Shards {
			if err := p.openShard(ctx, shard); err != nil {
				return err
			}
		}

		if desc.LastEvaluatedShardId == nil {
			break
		}
		startShard = desc.LastEvaluatedShardId
	}

	p.logger.Debug("opened shards", "count", len(p.iterators))
	return nil
}

func (p *Poller) openShard(ctx context.Context, shard streamtypes.Shard) error {
	if shard.ShardId == nil {
		return nil
	}
	id := *shard.ShardId
	if _, ok := p.iterators[id]; ok || p.finished[id] {
		return nil
	}

	parent := aws.ToString(shard.ParentShardId)
	closed := shard.SequenceNumberRange != nil && shard.SequenceNumberRange.EndingSequenceNumber != nil

	var from streamtypes.ShardIteratorType
	switch {
	case parent != "" && p.finished[parent]:
		from = streamtypes.ShardIteratorTypeTrimHorizon
	case closed:
		return nil
	default:
		from = streamtypes.ShardIteratorTypeLatest
	}

	it, err := p.client.GetShardIterator(ctx, &dynamodbstreams.GetShardIteratorInput{
		StreamArn:         aws.String(p.config.StreamARN),
		ShardId:           shard.ShardId,
		ShardIteratorType: from,
	})
	if err != nil {
		return fmt.Errorf("get shard iterator %s: %w", id, err)
	}
	if it.ShardIterator == nil {
		return nil
	}
	p.iterators[id] = it.ShardIterator
	if parent != "" {
		delete(p.orphaned, parent)
	}
	p.logger.Debug("opened shard", "shard", id, "parent", parent, "from", from)
	return nil
}

// apply decodes one stream record and routes it.
func (p *Poller) apply(record streamtypes.Record) int {
	if record.EventName != streamtypes.OperationTypeInsert || record.Dynamodb == nil {
		return 0
	}
	c, err := store.DecodeChange(FromStreamImage(record.Dynamodb.NewImage))
	if err != nil {
		p.logger.Warn("skipping malformed change",
			"eventID", aws.ToString(record.EventID),
			"error", err,
		)
		return 0
	}
	return p.router.Apply(c)
}
