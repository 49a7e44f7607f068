package stream_test

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/jacentio/arbor/changes"
	"github.com/jacentio/arbor/store"
)

// fakeStore records cascade calls.
type fakeStore struct {
	mu         sync.Mutex
	children   map[string][]store.ChildRef
	queryErr   error
	ttlErr     map[string]error
	ttls       map[string]int64
	edges      []string
	recorded   []changes.Change
	recordErr  error
	queriedFor []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		children: make(map[string][]store.ChildRef),
		ttlErr:   make(map[string]error),
		ttls:     make(map[string]int64),
	}
}

func (f *fakeStore) QueryAllChildren(_ context.Context, parentID string) ([]store.ChildRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queriedFor = append(f.queriedFor, parentID)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.children[parentID], nil
}

func (f *fakeStore) SetTTL(_ context.Context, id string, ttl int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ttlErr[id]; err != nil {
		return err
	}
	f.ttls[id] = ttl
	return nil
}

func (f *fakeStore) SetRelationshipTTL(_ context.Context, childID, parentID string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, parentID+">"+childID)
	return nil
}

func (f *fakeStore) RecordChange(_ context.Context, c changes.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, c)
	return nil
}

// recordingCommitter collects committed mutations.
type recordingCommitter struct {
	mu       sync.Mutex
	commits  []string
	payloads []changes.Record
	reject   bool
}

func (r *recordingCommitter) Commit(name changes.Mutation, payload changes.Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.commits = append(r.commits, string(name))
	r.payloads = append(r.payloads, payload)
	return true
}

// changeImage encodes c the way the changes table stores it.
func changeImage(c changes.Change) map[string]types.AttributeValue {
	item, err := store.EncodeChange(c, 0)
	if err != nil {
		panic(err)
	}
	return item
}

// toEventImage converts DynamoDB attribute values to the Lambda event form.
func toEventImage(image map[string]types.AttributeValue) map[string]events.DynamoDBAttributeValue {
	out := make(map[string]events.DynamoDBAttributeValue, len(image))
	for k, v := range image {
		out[k] = toEventValue(v)
	}
	return out
}

func toEventValue(v types.AttributeValue) events.DynamoDBAttributeValue {
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return events.NewStringAttribute(t.Value)
	case *types.AttributeValueMemberN:
		return events.NewNumberAttribute(t.Value)
	case *types.AttributeValueMemberB:
		return events.NewBinaryAttribute(t.Value)
	case *types.AttributeValueMemberBOOL:
		return events.NewBooleanAttribute(t.Value)
	case *types.AttributeValueMemberL:
		list := make([]events.DynamoDBAttributeValue, len(t.Value))
		for i, item := range t.Value {
			list[i] = toEventValue(item)
		}
		return events.NewListAttribute(list)
	case *types.AttributeValueMemberM:
		return events.NewMapAttribute(toEventImage(t.Value))
	}
	return events.NewNullAttribute()
}

// toStreamImage converts DynamoDB attribute values to the Streams form.
func toStreamImage(image map[string]types.AttributeValue) map[string]streamtypes.AttributeValue {
	out := make(map[string]streamtypes.AttributeValue, len(image))
	for k, v := range image {
		out[k] = toStreamValue(v)
	}
	return out
}

func toStreamValue(v types.AttributeValue) streamtypes.AttributeValue {
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return &streamtypes.AttributeValueMemberS{Value: t.Value}
	case *types.AttributeValueMemberN:
		return &streamtypes.AttributeValueMemberN{Value: t.Value}
	case *types.AttributeValueMemberB:
		return &streamtypes.AttributeValueMemberB{Value: t.Value}
	case *types.AttributeValueMemberBOOL:
		return &streamtypes.AttributeValueMemberBOOL{Value: t.Value}
	case *types.AttributeValueMemberL:
		list := make([]streamtypes.AttributeValue, len(t.Value))
		for i, item := range t.Value {
			list[i] = toStreamValue(item)
		}
		return &streamtypes.AttributeValueMemberL{Value: list}
	case *types.AttributeValueMemberM:
		return &streamtypes.AttributeValueMemberM{Value: toStreamImage(t.Value)}
	}
	return &streamtypes.AttributeValueMemberNULL{Value: true}
}
