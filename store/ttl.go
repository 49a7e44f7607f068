package store

import (
	"maps"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Soft-deleted items carry a ttl attribute (epoch seconds) that DynamoDB
// expires later. Until then every read must skip items with ttl <= now.

// expiry returns the item's ttl and whether it has a valid one.
func expiry(item map[string]types.AttributeValue) (int64, bool) {
	n, ok := item["ttl"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	ttl, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return ttl, true
}

// IsDeleted reports whether item is soft deleted as of now.
func IsDeleted(item map[string]types.AttributeValue) bool {
	ttl, ok := expiry(item)
	return ok && ttl <= time.Now().Unix()
}

// live is the "not deleted at now" predicate as expression fragments.
type live struct {
	now time.Time
}

func liveAt(now time.Time) live {
	return live{now: now}
}

// filter is the predicate; it references #ttl and :now.
func (l live) filter() string {
	return "(attribute_not_exists(#ttl) OR #ttl > :now)"
}

// and combines the predicate with another filter.
func (l live) and(expr string) string {
	if expr == "" {
		return l.filter()
	}
	return "(" + expr + ") AND " + l.filter()
}

// nodeExists is the condition for a node that exists and is live.
func (l live) nodeExists() string {
	return "attribute_exists(id) AND " + l.filter()
}

// names returns extra with #ttl added.
func (l live) names(extra map[string]string) map[string]string {
	out := map[string]string{"#ttl": "ttl"}
	maps.Copy(out, extra)
	return out
}

// values returns extra with :now added.
func (l live) values(extra map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{":now": numberAttr(l.now.Unix())}
	maps.Copy(out, extra)
	return out
}

func numberAttr(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func stringAttr(s string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: s}
}
