package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yuuki999/ai-line-bot/internal/integrations/bedrock"
	"github.com/yuuki999/ai-line-bot/internal/integrations/pinecone"
	"github.com/yuuki999/ai-line-bot/internal/repository"
	"github.com/yuuki999/ai-line-bot/internal/retrieval"
)

// ingest loads a document, splits it into line chunks, embeds each chunk and
// upserts the vectors into a Pinecone namespace. Re-running ingests fresh
// vectors under new IDs; it never overwrites earlier ones.
func main() {
	var (
		file      = flag.String("file", "", "local document to ingest (takes precedence over -bucket/-key)")
		bucket    = flag.String("bucket", os.Getenv("DOCS_BUCKET"), "S3 bucket holding the document")
		key       = flag.String("key", os.Getenv("DOCS_KEY"), "S3 key of the document")
		namespace = flag.String("namespace", os.Getenv("PINECONE_NAMESPACE"), "Pinecone namespace to upsert into")
		batchSize = flag.Int("batch", 100, "vectors per upsert request")
	)
	flag.Parse()

	ctx := context.Background()

	embedModelID := envStr("BEDROCK_EMBED_MODEL_ID", "amazon.titan-embed-text-v2:0")
	apiKey := mustEnv("PINECONE_API_KEY")
	indexHost := mustEnv("PINECONE_INDEX_HOST")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	document, err := loadDocument(ctx, cfg, *file, *bucket, *key)
	if err != nil {
		slog.Error("failed to load document", "err", err)
		os.Exit(1)
	}

	bedrockClient, err := bedrock.New(awsbedrock.NewFromConfig(cfg), embedModelID, embedModelID, 0)
	if err != nil {
		slog.Error("failed to create bedrock client", "err", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.NewClient(apiKey, pinecone.WithIndexHost(indexHost))
	if err != nil {
		slog.Error("failed to create pinecone client", "err", err)
		os.Exit(1)
	}

	chunks := retrieval.NewChunks(document)
	if len(chunks) == 0 {
		slog.Error("document produced no chunks")
		os.Exit(1)
	}
	slog.Info("ingesting document", "chunks", len(chunks), "namespace", *namespace)

	vectors := make([]pinecone.Vector, 0, *batchSize)
	upserted := 0
	for _, chunk := range chunks {
		embedding, err := bedrockClient.Embed(ctx, chunk.Content)
		if err != nil {
			slog.Error("failed to embed chunk", "id", chunk.ID, "err", err)
			os.Exit(1)
		}
		vectors = append(vectors, pinecone.Vector{
			ID:       chunk.ID,
			Values:   embedding,
			Metadata: map[string]string{"content": chunk.Content},
		})
		if len(vectors) >= *batchSize {
			if err := pineconeClient.Upsert(ctx, *namespace, vectors); err != nil {
				slog.Error("failed to upsert batch", "err", err)
				os.Exit(1)
			}
			upserted += len(vectors)
			vectors = vectors[:0]
		}
	}
	if len(vectors) > 0 {
		if err := pineconeClient.Upsert(ctx, *namespace, vectors); err != nil {
			slog.Error("failed to upsert batch", "err", err)
			os.Exit(1)
		}
		upserted += len(vectors)
	}

	slog.Info("ingestion complete", "vectors", upserted)
}

func loadDocument(ctx context.Context, cfg aws.Config, file, bucket, key string) (string, error) {
	if file != "" {
		buf, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(buf), nil
	}
	if bucket == "" || key == "" {
		return "", errors.New("either -file or -bucket/-key is required")
	}
	store, err := repository.NewDocumentStore(awss3.NewFromConfig(cfg), bucket, key)
	if err != nil {
		return "", err
	}
	return store.Load(ctx)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
