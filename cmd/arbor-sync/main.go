// Command arbor-sync keeps one channel's tree in memory and applies the
// changes table stream to it until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacentio/arbor/contentnode"
	"github.com/jacentio/arbor/internal/config"
	"github.com/jacentio/arbor/session"
	"github.com/jacentio/arbor/store"
	"github.com/jacentio/arbor/stream"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	trash := flag.Bool("trash", false, "load the channel's trash tree")
	flag.Parse()

	if err := run(*configPath, *trash); err != nil {
		fmt.Fprintln(os.Stderr, "arbor-sync:", err)
		os.Exit(1)
	}
}

func run(configPath string, trash bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if cfg.Stream.ARN == "" {
		return fmt.Errorf("stream.arn is required")
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := cfg.LoadAWS(ctx)
	if err != nil {
		return err
	}

	sess, closeSession, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSession()

	s := store.New(cfg.DynamoDB(awsCfg), cfg.StoreConfig())
	module := contentnode.New(ctx, s, sess, logger)

	nodes, err := module.LoadTree(ctx, cfg.ChannelID, trash)
	if err != nil {
		return fmt.Errorf("load tree: %w", err)
	}
	logger.Info("tree loaded",
		"channel", cfg.ChannelID,
		"nodes", len(nodes),
		"expanded", len(module.ExpandedNodes()))

	router := stream.NewRouter(logger)
	router.Register("contentNode", contentnode.Listeners, module)

	poller := stream.NewPoller(cfg.DynamoDBStreams(awsCfg), router, cfg.PollerConfig(), logger)
	return poller.Run(ctx)
}

// openSession returns Redis session storage when configured, memory otherwise.
func openSession(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	if cfg.Session.RedisURL == "" {
		return session.NewMemoryStorage(), func() {}, nil
	}
	r, err := session.NewRedisStorage(ctx, cfg.Session.RedisURL, cfg.Session.ID)
	if err != nil {
		return nil, nil, err
	}
	return r.WithTTL(cfg.Session.TTL), func() { _ = r.Close() }, nil
}
