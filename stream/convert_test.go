package stream_test

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/jacentio/arbor/stream"
)

func TestFromEventImage_Scalars(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id":      events.NewStringAttribute("test-id"),
		"version": events.NewNumberAttribute("42"),
		"data":    events.NewBinaryAttribute([]byte{0x01, 0x02}),
		"flag":    events.NewBooleanAttribute(true),
		"nothing": events.NewNullAttribute(),
	}

	result := stream.FromEventImage(image)
	if len(result) != 5 {
		t.Fatalf("expected 5 attributes, got %d", len(result))
	}
	if v, ok := result["id"].(*types.AttributeValueMemberS); !ok || v.Value != "test-id" {
		t.Error("expected string id")
	}
	if v, ok := result["version"].(*types.AttributeValueMemberN); !ok || v.Value != "42" {
		t.Error("expected number version")
	}
	if v, ok := result["data"].(*types.AttributeValueMemberB); !ok || len(v.Value) != 2 {
		t.Error("expected binary data")
	}
	if v, ok := result["flag"].(*types.AttributeValueMemberBOOL); !ok || !v.Value {
		t.Error("expected bool flag")
	}
	if _, ok := result["nothing"].(*types.AttributeValueMemberNULL); !ok {
		t.Error("expected null")
	}
}

func TestFromEventImage_Sets(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"ss": events.NewStringSetAttribute([]string{"a", "b"}),
		"ns": events.NewNumberSetAttribute([]string{"1", "2"}),
		"bs": events.NewBinarySetAttribute([][]byte{{0x01}}),
	}

	result := stream.FromEventImage(image)
	if v, ok := result["ss"].(*types.AttributeValueMemberSS); !ok || len(v.Value) != 2 {
		t.Error("expected string set")
	}
	if v, ok := result["ns"].(*types.AttributeValueMemberNS); !ok || v.Value[1] != "2" {
		t.Error("expected number set")
	}
	if v, ok := result["bs"].(*types.AttributeValueMemberBS); !ok || len(v.Value) != 1 {
		t.Error("expected binary set")
	}
}

func TestFromEventImage_Nested(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"obj": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"title": events.NewStringAttribute("Intro"),
			"tags": events.NewListAttribute([]events.DynamoDBAttributeValue{
				events.NewStringAttribute("x"),
				events.NewNumberAttribute("1"),
			}),
		}),
	}

	result := stream.FromEventImage(image)
	obj, ok := result["obj"].(*types.AttributeValueMemberM)
	if !ok {
		t.Fatal("expected map")
	}
	if v, ok := obj.Value["title"].(*types.AttributeValueMemberS); !ok || v.Value != "Intro" {
		t.Error("expected nested title")
	}
	tags, ok := obj.Value["tags"].(*types.AttributeValueMemberL)
	if !ok || len(tags.Value) != 2 {
		t.Fatal("expected nested list of 2")
	}
	if v, ok := tags.Value[1].(*types.AttributeValueMemberN); !ok || v.Value != "1" {
		t.Error("expected number in list")
	}
}

func TestFromEventImage_Empty(t *testing.T) {
	for _, image := range []map[string]events.DynamoDBAttributeValue{nil, {}} {
		result := stream.FromEventImage(image)
		if result == nil || len(result) != 0 {
			t.Errorf("expected empty non-nil map, got %v", result)
		}
	}
}

func TestFromStreamImage(t *testing.T) {
	image := map[string]streamtypes.AttributeValue{
		"id":   &streamtypes.AttributeValueMemberS{Value: "n1"},
		"n":    &streamtypes.AttributeValueMemberN{Value: "1.5"},
		"b":    &streamtypes.AttributeValueMemberBOOL{Value: true},
		"null": &streamtypes.AttributeValueMemberNULL{Value: true},
		"ss":   &streamtypes.AttributeValueMemberSS{Value: []string{"a"}},
		"obj": &streamtypes.AttributeValueMemberM{Value: map[string]streamtypes.AttributeValue{
			"list": &streamtypes.AttributeValueMemberL{Value: []streamtypes.AttributeValue{
				&streamtypes.AttributeValueMemberS{Value: "x"},
			}},
		}},
	}

	result := stream.FromStreamImage(image)
	if len(result) != 6 {
		t.Fatalf("expected 6 attributes, got %d", len(result))
	}
	if v, ok := result["n"].(*types.AttributeValueMemberN); !ok || v.Value != "1.5" {
		t.Error("expected number")
	}
	obj, ok := result["obj"].(*types.AttributeValueMemberM)
	if !ok {
		t.Fatal("expected map")
	}
	list, ok := obj.Value["list"].(*types.AttributeValueMemberL)
	if !ok || len(list.Value) != 1 {
		t.Fatal("expected nested list")
	}
	if v, ok := list.Value[0].(*types.AttributeValueMemberS); !ok || v.Value != "x" {
		t.Error("expected string in nested list")
	}
}
