// Package config loads settings for the arbor binaries from a YAML file,
// an optional .env file and ARBOR_* environment variables, in that order
// of increasing precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/arbor/session"
	"github.com/jacentio/arbor/store"
	"github.com/jacentio/arbor/stream"
)

// EnvPrefix prefixes every environment override, e.g. ARBOR_STORE_NUM_SHARDS.
const EnvPrefix = "ARBOR"

// Config is the binaries' configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" envconfig:"LOG"`
	AWS     AWSConfig     `yaml:"aws" envconfig:"AWS"`
	Store   StoreConfig   `yaml:"store" envconfig:"STORE"`
	Stream  StreamConfig  `yaml:"stream" envconfig:"STREAM"`
	Session SessionConfig `yaml:"session" envconfig:"SESSION"`

	// ChannelID is the channel arbor-sync keeps in memory.
	ChannelID string `yaml:"channel_id" envconfig:"CHANNEL_ID"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" envconfig:"LEVEL"`

	// Format is text or json.
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// AWSConfig overrides the SDK defaults.
type AWSConfig struct {
	Region string `yaml:"region" envconfig:"REGION"`

	// Endpoint points DynamoDB and Streams at a local emulator.
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`
}

// StoreConfig mirrors store.Config.
type StoreConfig struct {
	ContentNodeTable  string        `yaml:"contentnode_table" envconfig:"CONTENTNODE_TABLE"`
	ChannelIndex      string        `yaml:"channel_index" envconfig:"CHANNEL_INDEX"`
	RelationshipTable string        `yaml:"relationship_table" envconfig:"RELATIONSHIP_TABLE"`
	ChangesTable      string        `yaml:"changes_table" envconfig:"CHANGES_TABLE"`
	ChangeRetention   time.Duration `yaml:"change_retention" envconfig:"CHANGE_RETENTION"`
	NumShards         int           `yaml:"num_shards" envconfig:"NUM_SHARDS"`
}

// StreamConfig mirrors stream.PollerConfig.
type StreamConfig struct {
	ARN      string        `yaml:"arn" envconfig:"ARN"`
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"`
	Limit    int32         `yaml:"limit" envconfig:"LIMIT"`
}

// SessionConfig locates session storage. An empty RedisURL keeps the
// session in memory.
type SessionConfig struct {
	RedisURL string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	ID       string        `yaml:"id" envconfig:"ID"`
	TTL      time.Duration `yaml:"ttl" envconfig:"TTL"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	sc := store.DefaultConfig()
	pc := stream.DefaultPollerConfig()
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			ContentNodeTable:  sc.ContentNodeTable,
			ChannelIndex:      sc.ChannelIndex,
			RelationshipTable: sc.RelationshipTable,
			ChangesTable:      sc.ChangesTable,
			ChangeRetention:   sc.ChangeRetention,
			NumShards:         sc.NumShards,
		},
		Stream: StreamConfig{
			Interval: pc.Interval,
			Limit:    pc.Limit,
		},
		Session: SessionConfig{
			ID:  "default",
			TTL: session.DefaultTTL,
		},
	}
}

// Load reads path (skipped when empty), then the env files (".env" when
// none are given; missing files are ignored), then ARBOR_* variables.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// StoreConfig converts to the store's configuration.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		ContentNodeTable:  c.Store.ContentNodeTable,
		ChannelIndex:      c.Store.ChannelIndex,
		RelationshipTable: c.Store.RelationshipTable,
		ChangesTable:      c.Store.ChangesTable,
		ChangeRetention:   c.Store.ChangeRetention,
		NumShards:         c.Store.NumShards,
	}
}

// PollerConfig converts to the stream poller's configuration.
func (c *Config) PollerConfig() stream.PollerConfig {
	return stream.PollerConfig{
		StreamARN: c.Stream.ARN,
		Interval:  c.Stream.Interval,
		Limit:     c.Stream.Limit,
	}
}

// Logger builds a logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if c.Log.Level != "" {
		if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
}

// LoadAWS loads the SDK configuration from the default chain, applying
// the configured region.
func (c *Config) LoadAWS(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.AWS.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// DynamoDB returns a DynamoDB client honouring the configured endpoint.
func (c *Config) DynamoDB(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.AWS.Endpoint)
		}
	})
}

// DynamoDBStreams returns a Streams client honouring the configured endpoint.
func (c *Config) DynamoDBStreams(cfg aws.Config) *dynamodbstreams.Client {
	return dynamodbstreams.NewFromConfig(cfg, func(o *dynamodbstreams.Options) {
		if c.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.AWS.Endpoint)
		}
	})
}
