// Command arbor-cascade is the Lambda handler attached to the content node
// table stream. It propagates soft deletes to the children of deleted nodes.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/arbor/internal/config"
	"github.com/jacentio/arbor/store"
	"github.com/jacentio/arbor/stream"
)

func main() {
	cfg, err := config.Load(os.Getenv("ARBOR_CONFIG"))
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		slog.Error("build logger", "error", err)
		os.Exit(1)
	}

	awsCfg, err := cfg.LoadAWS(context.Background())
	if err != nil {
		logger.Error("load aws config", "error", err)
		os.Exit(1)
	}

	s := store.New(cfg.DynamoDB(awsCfg), cfg.StoreConfig())
	h := stream.NewHandler(s, nil, logger)
	lambda.Start(h.HandleCascadeDelete)
}
