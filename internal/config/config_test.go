package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Store.ContentNodeTable != "arbor_contentnodes" || c.Store.NumShards != 1 {
		t.Errorf("unexpected store defaults %+v", c.Store)
	}
	if c.Stream.Interval != time.Second || c.Stream.Limit != 100 {
		t.Errorf("unexpected stream defaults %+v", c.Stream)
	}
	if c.Session.TTL != 40*time.Minute || c.Session.ID != "default" {
		t.Errorf("unexpected session defaults %+v", c.Session)
	}
}

func TestLoad_NoFile(t *testing.T) {
	c, err := Load("", noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Store.ChangesTable != "arbor_changes" {
		t.Errorf("expected defaults, got %+v", c.Store)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "arbor.yaml", `
log:
  level: debug
  format: json
store:
  contentnode_table: nodes
  num_shards: 8
  change_retention: 48h
stream:
  arn: arn:aws:dynamodb:eu-west-1:1:table/changes/stream/x
  interval: 250ms
session:
  redis_url: redis://localhost:6379/0
channel_id: ch1
`)

	c, err := Load(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Log.Level != "debug" || c.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", c.Log)
	}
	if c.Store.ContentNodeTable != "nodes" || c.Store.NumShards != 8 || c.Store.ChangeRetention != 48*time.Hour {
		t.Errorf("unexpected store config %+v", c.Store)
	}
	if c.Store.ChangesTable != "arbor_changes" {
		t.Error("unset fields must keep their defaults")
	}
	if c.Stream.Interval != 250*time.Millisecond || !strings.HasSuffix(c.Stream.ARN, "stream/x") {
		t.Errorf("unexpected stream config %+v", c.Stream)
	}
	if c.ChannelID != "ch1" || c.Session.RedisURL == "" {
		t.Errorf("unexpected config %+v", c)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "arbor.yaml", "store:\n  num_shards: 8\nchannel_id: from-yaml\n")
	t.Setenv("ARBOR_STORE_NUM_SHARDS", "16")
	t.Setenv("ARBOR_CHANNEL_ID", "from-env")
	t.Setenv("ARBOR_STREAM_INTERVAL", "2s")

	c, err := Load(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Store.NumShards != 16 || c.ChannelID != "from-env" || c.Stream.Interval != 2*time.Second {
		t.Errorf("expected env overrides, got %+v", c)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "test.env", "ARBOR_SESSION_ID=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("ARBOR_SESSION_ID") })

	c, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Session.ID != "from-dotenv" {
		t.Errorf("expected session id from .env, got %q", c.Session.ID)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t)); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := writeFile(t, "bad.yaml", "store: [unclosed")
	if _, err := Load(bad, noEnvFile(t)); err == nil {
		t.Error("expected error for malformed YAML")
	}

	t.Setenv("ARBOR_STORE_NUM_SHARDS", "many")
	if _, err := Load("", noEnvFile(t)); err == nil {
		t.Error("expected error for non-numeric override")
	}
}

func TestConversions(t *testing.T) {
	c := Default()
	c.Store.NumShards = 4
	c.Stream.ARN = "arn"

	if sc := c.StoreConfig(); sc.NumShards != 4 || sc.ContentNodeTable != c.Store.ContentNodeTable {
		t.Errorf("unexpected store config %+v", sc)
	}
	if pc := c.PollerConfig(); pc.StreamARN != "arn" || pc.Limit != 100 {
		t.Errorf("unexpected poller config %+v", pc)
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name    string
		log     LogConfig
		wantErr bool
		check   func(string) bool
	}{
		{"text", LogConfig{Level: "info", Format: "text"}, false, func(s string) bool { return strings.Contains(s, "msg=hello") }},
		{"json", LogConfig{Level: "debug", Format: "json"}, false, func(s string) bool { return strings.Contains(s, `"msg":"hello"`) }},
		{"filtered", LogConfig{Level: "error"}, false, func(s string) bool { return s == "" }},
		{"bad level", LogConfig{Level: "loud"}, true, nil},
		{"bad format", LogConfig{Format: "xml"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Log = tt.log

			var buf bytes.Buffer
			logger, err := c.Logger(&buf)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Logger: %v", err)
			}
			logger.Info("hello")
			if !tt.check(buf.String()) {
				t.Errorf("unexpected output %q", buf.String())
			}
		})
	}
}

func TestLoadAWS(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	c := Default()
	c.AWS.Region = "eu-west-1"
	c.AWS.Endpoint = "http://localhost:8000"

	cfg, err := c.LoadAWS(context.Background())
	if err != nil {
		t.Fatalf("LoadAWS: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Errorf("expected region eu-west-1, got %q", cfg.Region)
	}

	if got := c.DynamoDB(cfg).Options().BaseEndpoint; got == nil || *got != c.AWS.Endpoint {
		t.Errorf("expected dynamodb endpoint override, got %v", got)
	}
	if got := c.DynamoDBStreams(cfg).Options().BaseEndpoint; got == nil || *got != c.AWS.Endpoint {
		t.Errorf("expected streams endpoint override, got %v", got)
	}

	c.AWS.Endpoint = ""
	if got := c.DynamoDB(cfg).Options().BaseEndpoint; got != nil {
		t.Errorf("expected default endpoint, got %q", *got)
	}
}
