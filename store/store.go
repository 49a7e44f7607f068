package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/changes"
	"github.com/jacentio/arbor/internal/shard"
)

// Store persists content nodes on DynamoDB and records every write in the changes table.
type Store struct {
	client API
	config Config
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the validated configuration.
func (s *Store) Config() Config {
	return s.config
}

func (s *Store) relationshipPK(parentID, childID string) string {
	return shard.RelationshipPK(parentID, childID, s.config.NumShards)
}

func (s *Store) nodeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": stringAttr(id)}
}

func (s *Store) parentCheck(parentID string, now time.Time) types.TransactWriteItem {
	return types.TransactWriteItem{
		ConditionCheck: &types.ConditionCheck{
			TableName:                 aws.String(s.config.ContentNodeTable),
			Key:                       s.nodeKey(parentID),
			ConditionExpression:       aws.String(liveAt(now).nodeExists()),
			ExpressionAttributeNames:  liveAt(now).names(nil),
			ExpressionAttributeValues: liveAt(now).values(nil),
		},
	}
}

func (s *Store) edgePut(parentID, childID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.config.RelationshipTable),
			Item: map[string]types.AttributeValue{
				"pk":         stringAttr(s.relationshipPK(parentID, childID)),
				"child_ref":  stringAttr(childID),
				"parent_ref": stringAttr(parentID),
			},
		},
	}
}

func (s *Store) edgeDelete(parentID, childID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(s.config.RelationshipTable),
			Key: map[string]types.AttributeValue{
				"pk":        stringAttr(s.relationshipPK(parentID, childID)),
				"child_ref": stringAttr(childID),
			},
		},
	}
}

// Create creates a node, validating its parent and recording the
// contentnode and tree created changes in the same transaction.
// An empty node.ID is replaced with NewID().
func (s *Store) Create(ctx context.Context, node *Node) error {
	now := time.Now()
	nowISO := now.UTC().Format(time.RFC3339)

	if node.ID == "" {
		node.ID = NewID()
	}
	if node.Attrs == nil {
		node.Attrs = changes.Record{}
	}
	node.Version = 1
	node.CreatedAt = nowISO
	node.UpdatedAt = nowISO
	node.TTL = 0

	var items []types.TransactWriteItem
	parentCheckIndex := -1

	// 1. Parent must exist and not be deleted
	if node.Parent != "" {
		parentCheckIndex = len(items)
		items = append(items, s.parentCheck(node.Parent, now))
	}

	// 2. The node itself
	item, err := attributevalue.MarshalMap(node)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	nodePutIndex := len(items)
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.config.ContentNodeTable),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	})

	// 3. Edge from the parent
	if node.Parent != "" {
		items = append(items, s.edgePut(node.Parent, node.ID))
	}

	// 4. Change records
	for _, c := range []changes.Change{
		{Table: changes.ContentNode, Type: changes.Created, Key: node.ID, Obj: node.ContentNodeRecord(), ChannelID: node.ChannelID},
		{Table: changes.Tree, Type: changes.Created, Key: node.ID, Obj: node.TreeRecord(), ChannelID: node.ChannelID},
	} {
		put, err := s.changePut(c, now)
		if err != nil {
			return err
		}
		items = append(items, put)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapTransactionError(err, map[int]error{
		parentCheckIndex: ErrParentNotFound,
		nodePutIndex:     ErrAlreadyExists,
	})
}

// Get retrieves a node by id, returning ErrNotFound if deleted or missing.
func (s *Store) Get(ctx context.Context, id string) (*Node, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.ContentNodeTable),
		Key:       s.nodeKey(id),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil || IsDeleted(result.Item) {
		return nil, ErrNotFound
	}
	return unmarshalNode(result.Item)
}

// Query queries the content node table with automatic TTL filtering.
func (s *Store) Query(ctx context.Context, input QueryInput) ([]*Node, error) {
	l := liveAt(time.Now())

	values, err := attributevalue.MarshalMap(input.ExpressionAttributeValues)
	if err != nil {
		return nil, fmt.Errorf("marshal expression values: %w", err)
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.ContentNodeTable),
		KeyConditionExpression:    aws.String(input.KeyConditionExpression),
		FilterExpression:          aws.String(l.and(input.FilterExpression)),
		ExpressionAttributeNames:  l.names(input.ExpressionAttributeNames),
		ExpressionAttributeValues: l.values(values),
	}
	if input.IndexName != "" {
		queryInput.IndexName = aws.String(input.IndexName)
	}
	if input.Limit > 0 {
		queryInput.Limit = aws.Int32(input.Limit)
	}

	var nodes []*Node
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			node, err := unmarshalNode(raw)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// ListChannel returns every live node of a channel ordered by sort order.
func (s *Store) ListChannel(ctx context.Context, channelID string) ([]*Node, error) {
	nodes, err := s.Query(ctx, QueryInput{
		IndexName:                 s.config.ChannelIndex,
		KeyConditionExpression:    "#channel_id = :channel_id",
		ExpressionAttributeNames:  map[string]string{"#channel_id": "channel_id"},
		ExpressionAttributeValues: map[string]any{":channel_id": channelID},
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].SortOrder < nodes[j].SortOrder
	})
	return nodes, nil
}

// managedFields are never written through Update.
var managedFields = map[string]bool{
	"id": true, "parent": true, "channel_id": true, "tree_id": true,
	"sort_order": true, "rght": true, "version": true,
	"created_at": true, "updated_at": true, "ttl": true,
}

// Update sets node attributes with optimistic locking and records a
// contentnode updated change carrying mods.
// Tree fields in mods are ignored; use Move to reposition a node.
func (s *Store) Update(ctx context.Context, id string, mods changes.Record, expectedVersion int64) error {
	now := time.Now()

	exprNames := map[string]string{
		"#updated_at": "updated_at",
		"#version":    "version",
		"#ttl":        "ttl",
	}
	exprValues := map[string]types.AttributeValue{
		":updated_at":       stringAttr(now.UTC().Format(time.RFC3339)),
		":one":              numberAttr(1),
		":expected_version": numberAttr(expectedVersion),
	}

	// Sorted for a stable expression
	keys := make([]string, 0, len(mods))
	for k := range mods {
		if !managedFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	setClauses := make([]string, 0, len(keys)+2)
	applied := changes.Record{}
	for i, k := range keys {
		av, err := attributevalue.Marshal(mods[k])
		if err != nil {
			return fmt.Errorf("marshal %s: %w", k, err)
		}
		nameKey := fmt.Sprintf("#a%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("#attrs.%s = %s", nameKey, valueKey))
		applied[k] = mods[k]
	}
	if len(keys) > 0 {
		exprNames["#attrs"] = "attrs"
	}
	setClauses = append(setClauses, "#updated_at = :updated_at", "#version = #version + :one")

	change, err := s.changePut(changes.Change{
		Table: changes.ContentNode,
		Type:  changes.Updated,
		Key:   id,
		Mods:  applied,
	}, now)
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                 aws.String(s.config.ContentNodeTable),
					Key:                       s.nodeKey(id),
					UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
					ConditionExpression:       aws.String("#version = :expected_version AND attribute_not_exists(#ttl)"),
					ExpressionAttributeNames:  exprNames,
					ExpressionAttributeValues: exprValues,
				},
			},
			change,
		},
	})
	return mapTransactionError(err, map[int]error{0: ErrConcurrentModification})
}

// MoveInput describes a change of a node's tree position.
type MoveInput struct {
	ID              string
	OldParent       string
	NewParent       string
	SortOrder       float64
	ExpectedVersion int64
	ChannelID       string

	// TreeID, when set, moves the node and all of its descendants into
	// that tree.
	TreeID *int
}

// Move repositions a node under NewParent at SortOrder, replacing its tree
// edge and recording a tree updated change.
func (s *Store) Move(ctx context.Context, in MoveInput) error {
	now := time.Now()
	var items []types.TransactWriteItem

	parentCheckIndex := -1
	if in.NewParent != "" {
		parentCheckIndex = len(items)
		items = append(items, s.parentCheck(in.NewParent, now))
	}

	setExpr := "SET #sort_order = :sort_order, #updated_at = :updated_at, #version = #version + :one"
	exprValues := map[string]types.AttributeValue{
		":sort_order":       &types.AttributeValueMemberN{Value: strconv.FormatFloat(in.SortOrder, 'f', -1, 64)},
		":updated_at":       stringAttr(now.UTC().Format(time.RFC3339)),
		":one":              numberAttr(1),
		":expected_version": numberAttr(in.ExpectedVersion),
	}
	exprNames := map[string]string{
		"#sort_order": "sort_order",
		"#updated_at": "updated_at",
		"#version":    "version",
		"#parent":     "parent",
		"#ttl":        "ttl",
	}
	var removeExpr string
	if in.NewParent != "" {
		setExpr += ", #parent = :parent"
		exprValues[":parent"] = stringAttr(in.NewParent)
	} else {
		removeExpr = " REMOVE #parent"
	}
	if in.TreeID != nil {
		setExpr += ", #tree_id = :tree_id"
		exprNames["#tree_id"] = "tree_id"
		exprValues[":tree_id"] = numberAttr(int64(*in.TreeID))
	}

	nodeUpdateIndex := len(items)
	items = append(items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:        aws.String(s.config.ContentNodeTable),
			Key:              s.nodeKey(in.ID),
			UpdateExpression: aws.String(setExpr + removeExpr),
			ConditionExpression: aws.String(
				"#version = :expected_version AND attribute_not_exists(#ttl)"),
			ExpressionAttributeNames:  exprNames,
			ExpressionAttributeValues: exprValues,
		},
	})

	if in.OldParent != in.NewParent {
		if in.OldParent != "" {
			items = append(items, s.edgeDelete(in.OldParent, in.ID))
		}
		if in.NewParent != "" {
			items = append(items, s.edgePut(in.NewParent, in.ID))
		}
	}

	mods := changes.Record{"sort_order": in.SortOrder}
	if in.NewParent != "" {
		mods["parent"] = in.NewParent
	}
	if in.TreeID != nil {
		mods["tree_id"] = float64(*in.TreeID)
	}
	change, err := s.changePut(changes.Change{
		Table:     changes.Tree,
		Type:      changes.Updated,
		Key:       in.ID,
		Mods:      mods,
		ChannelID: in.ChannelID,
	}, now)
	if err != nil {
		return err
	}
	items = append(items, change)

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err := mapTransactionError(err, map[int]error{
		parentCheckIndex: ErrParentNotFound,
		nodeUpdateIndex:  ErrConcurrentModification,
	}); err != nil {
		return err
	}

	if in.TreeID != nil {
		return s.retree(ctx, in.ID, *in.TreeID, in.ChannelID)
	}
	return nil
}

// retree moves every descendant of rootID into treeID, recording a tree
// updated change for each. It runs after the move has committed, walking
// the relationship table breadth first; an error leaves the rest of the
// subtree in its old tree.
func (s *Store) retree(ctx context.Context, rootID string, treeID int, channelID string) error {
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := s.QueryAllChildren(ctx, parent)
		if err != nil {
			return fmt.Errorf("retree %s: %w", rootID, err)
		}
		for _, child := range children {
			if child.ID == "" || seen[child.ID] {
				continue
			}
			seen[child.ID] = true

			if err := s.setTreeID(ctx, child.ID, treeID); err != nil {
				return fmt.Errorf("retree %s: %w", child.ID, err)
			}
			err := s.RecordChange(ctx, changes.Change{
				Table:     changes.Tree,
				Type:      changes.Updated,
				Key:       child.ID,
				Mods:      changes.Record{"tree_id": float64(treeID)},
				ChannelID: channelID,
			})
			if err != nil {
				return fmt.Errorf("retree %s: %w", child.ID, err)
			}
			queue = append(queue, child.ID)
		}
	}
	return nil
}

// setTreeID sets a node's tree without recording a change.
// A node that no longer exists is skipped.
func (s *Store) setTreeID(ctx context.Context, id string, treeID int) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.config.ContentNodeTable),
		Key:                 s.nodeKey(id),
		UpdateExpression:    aws.String("SET #tree_id = :tree_id, #updated_at = :updated_at, #version = #version + :one"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#tree_id":    "tree_id",
			"#updated_at": "updated_at",
			"#version":    "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tree_id":    numberAttr(int64(treeID)),
			":updated_at": stringAttr(time.Now().UTC().Format(time.RFC3339)),
			":one":        numberAttr(1),
		},
	})
	return ignoreConditionFailed(err)
}

// DeleteOptions configures delete behavior.
type DeleteOptions struct {
	// Cascade enables cascading delete of children via TTL.
	Cascade bool

	// OrphanProtect fails the delete if active children exist.
	OrphanProtect bool
}

// Delete marks a node deleted by setting its TTL and records the
// contentnode and tree deleted changes. Deleting a node that is already
// deleted succeeds without recording anything.
func (s *Store) Delete(ctx context.Context, id string, opts DeleteOptions) error {
	if opts.OrphanProtect && !opts.Cascade {
		hasChildren, err := s.HasActiveChildren(ctx, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return ErrHasChildren
		}
	}

	now := time.Now()
	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:           aws.String(s.config.ContentNodeTable),
				Key:                 s.nodeKey(id),
				UpdateExpression:    aws.String("SET #ttl = :now, #version = #version + :one"),
				ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(#ttl)"),
				ExpressionAttributeNames: map[string]string{
					"#ttl":     "ttl",
					"#version": "version",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": numberAttr(now.Unix()),
					":one": numberAttr(1),
				},
			},
		},
	}
	for _, table := range []changes.Table{changes.ContentNode, changes.Tree} {
		put, err := s.changePut(changes.Change{Table: table, Type: changes.Deleted, Key: id}, now)
		if err != nil {
			return err
		}
		items = append(items, put)
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	// Missing or already deleted
	if errors.Is(mapTransactionError(err, map[int]error{0: ErrNotFound}), ErrNotFound) {
		return nil
	}
	return err
}

// HasActiveChildren checks if a node has any active (non-deleted) children.
func (s *Store) HasActiveChildren(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	pks := shard.All(id, s.config.NumShards)

	// Fast path for single shard (default)
	if len(pks) == 1 {
		return s.shardHasActive(ctx, pks[0], now)
	}

	// Multi-shard fan-out with early cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan struct{}, 1)
	errs := make(chan error, len(pks))
	var wg sync.WaitGroup

	for _, pk := range pks {
		wg.Add(1)
		go func(pk string) {
			defer wg.Done()
			ok, err := s.shardHasActive(ctx, pk, now)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				select {
				case found <- struct{}{}:
					cancel()
				default:
				}
			}
		}(pk)
	}

	wg.Wait()
	close(errs)

	select {
	case <-found:
		return true, nil
	default:
	}
	for err := range errs {
		if !errors.Is(err, context.Canceled) {
			return false, err
		}
	}
	return false, nil
}

// shardHasActive pages through one shard until a live edge turns up.
// Limit is not used: it applies before the filter and would hide live
// edges behind expired ones.
func (s *Store) shardHasActive(ctx context.Context, pk string, now time.Time) (bool, error) {
	l := liveAt(now)
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.RelationshipTable),
		KeyConditionExpression:    aws.String("pk = :pk"),
		FilterExpression:          aws.String(l.filter()),
		ExpressionAttributeNames:  l.names(nil),
		ExpressionAttributeValues: l.values(map[string]types.AttributeValue{":pk": stringAttr(pk)}),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, err
		}
		if len(page.Items) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// QueryAllChildren returns all children of a node (including deleted ones).
// This is used by cascade delete to propagate TTL to all children.
func (s *Store) QueryAllChildren(ctx context.Context, parentID string) ([]ChildRef, error) {
	pks := shard.All(parentID, s.config.NumShards)
	if len(pks) == 1 {
		return s.queryShardChildren(ctx, pks[0])
	}

	var (
		mu       sync.Mutex
		children []ChildRef
		wg       sync.WaitGroup
	)
	errs := make(chan error, len(pks))

	for _, pk := range pks {
		wg.Add(1)
		go func(pk string) {
			defer wg.Done()
			refs, err := s.queryShardChildren(ctx, pk)
			if err != nil {
				errs <- fmt.Errorf("shard %s: %w", pk, err)
				return
			}
			mu.Lock()
			children = append(children, refs...)
			mu.Unlock()
		}(pk)
	}

	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return nil, err
	}
	return children, nil
}

func (s *Store) queryShardChildren(ctx context.Context, pk string) ([]ChildRef, error) {
	var children []ChildRef
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.RelationshipTable),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(pk),
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			ref := ChildRef{ShardPK: pk}
			if v, ok := item["child_ref"].(*types.AttributeValueMemberS); ok {
				ref.ID = v.Value
			}
			children = append(children, ref)
		}
	}
	return children, nil
}

// SetTTL sets the TTL of a node without recording a change.
// Used by cascade delete, which records the change itself.
// A node that already has a TTL is left alone.
func (s *Store) SetTTL(ctx context.Context, id string, ttl int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.config.ContentNodeTable),
		Key:                 s.nodeKey(id),
		UpdateExpression:    aws.String("SET #ttl = :ttl, #version = #version + :one"),
		ConditionExpression: aws.String("attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: map[string]string{
			"#ttl":     "ttl",
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": numberAttr(ttl),
			":one": numberAttr(1),
		},
	})
	return ignoreConditionFailed(err)
}

// SetRelationshipTTL sets TTL on the edge from parentID to childID.
func (s *Store) SetRelationshipTTL(ctx context.Context, childID, parentID string, ttl int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.config.RelationshipTable),
		Key: map[string]types.AttributeValue{
			"pk":        stringAttr(s.relationshipPK(parentID, childID)),
			"child_ref": stringAttr(childID),
		},
		UpdateExpression:         aws.String("SET #ttl = :ttl"),
		ConditionExpression:      aws.String("attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": numberAttr(ttl),
		},
	})
	return ignoreConditionFailed(err)
}

// ignoreConditionFailed treats a failed condition (already has TTL) as success.
func ignoreConditionFailed(err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil
	}
	return err
}

// mapTransactionError maps the first failed condition of a cancelled
// transaction to the error registered for its item index. A failed
// condition on an unregistered index is returned unchanged.
func mapTransactionError(err error, byIndex map[int]error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				if mapped, ok := byIndex[i]; ok {
					return mapped
				}
				return err
			}
		}
	}
	return err
}

// unmarshalNode converts a DynamoDB item to a Node.
func unmarshalNode(raw map[string]types.AttributeValue) (*Node, error) {
	var node Node
	if err := attributevalue.UnmarshalMap(raw, &node); err != nil {
		return nil, fmt.Errorf("unmarshal node: %w", err)
	}
	return &node, nil
}
