package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/yuuki999/ai-line-bot/internal/integrations/pinecone"
)

const (
	embeddingDimension = 1024
	readyPollInterval  = 5 * time.Second
)

// indexinit creates the serverless vector index if it does not exist and waits
// until it is ready to serve, then prints the data-plane host.
func main() {
	var (
		name    = flag.String("name", os.Getenv("PINECONE_INDEX_NAME"), "index name")
		cloud   = flag.String("cloud", "aws", "serverless cloud provider")
		region  = flag.String("region", "us-east-1", "serverless region")
		timeout = flag.Duration("timeout", 5*time.Minute, "how long to wait for the index to become ready")
	)
	flag.Parse()

	if *name == "" {
		slog.Error("index name is required (-name or PINECONE_INDEX_NAME)")
		os.Exit(1)
	}
	apiKey := os.Getenv("PINECONE_API_KEY")
	if apiKey == "" {
		slog.Error("required environment variable is not set", "key", "PINECONE_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := pinecone.NewClient(apiKey)
	if err != nil {
		slog.Error("failed to create pinecone client", "err", err)
		os.Exit(1)
	}

	desc, err := client.DescribeIndex(ctx, *name)
	switch {
	case errors.Is(err, pinecone.ErrIndexNotFound):
		slog.Info("creating index", "name", *name, "dimension", embeddingDimension, "cloud", *cloud, "region", *region)
		if err := client.CreateIndex(ctx, *name, embeddingDimension, *cloud, *region); err != nil {
			slog.Error("failed to create index", "err", err)
			os.Exit(1)
		}
	case err != nil:
		slog.Error("failed to describe index", "err", err)
		os.Exit(1)
	default:
		slog.Info("index already exists", "name", *name, "ready", desc.Status.Ready)
	}

	desc, err = waitReady(ctx, client, *name)
	if err != nil {
		slog.Error("index did not become ready", "err", err)
		os.Exit(1)
	}
	slog.Info("index is ready", "name", desc.Name, "host", desc.Host)
}

func waitReady(ctx context.Context, client *pinecone.Client, name string) (pinecone.IndexDescription, error) {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		desc, err := client.DescribeIndex(ctx, name)
		if err != nil && !errors.Is(err, pinecone.ErrIndexNotFound) {
			return pinecone.IndexDescription{}, err
		}
		if err == nil && desc.Status.Ready {
			return desc, nil
		}
		slog.Info("waiting for index", "name", name, "state", desc.Status.State)

		select {
		case <-ctx.Done():
			return pinecone.IndexDescription{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
