package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/yuuki999/ai-line-bot/handler"
	"github.com/yuuki999/ai-line-bot/internal/integrations/bedrock"
	"github.com/yuuki999/ai-line-bot/internal/integrations/line"
	"github.com/yuuki999/ai-line-bot/internal/integrations/paramstore"
	"github.com/yuuki999/ai-line-bot/internal/integrations/pinecone"
	"github.com/yuuki999/ai-line-bot/internal/integrations/sheets"
	"github.com/yuuki999/ai-line-bot/internal/repository"
	"github.com/yuuki999/ai-line-bot/internal/retrieval"
	"github.com/yuuki999/ai-line-bot/internal/usecase"
)

const (
	defaultModelID      = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	defaultEmbedModelID = "amazon.titan-embed-text-v2:0"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	modelID := envStr("BEDROCK_MODEL_ID", defaultModelID)
	embedModelID := envStr("BEDROCK_EMBED_MODEL_ID", defaultEmbedModelID)
	maxTokens := envInt("BEDROCK_MAX_TOKENS", 1000)
	contextBudget := envInt("PROMPT_CONTEXT_BUDGET", 8000)
	topK := envInt("TOP_K", 5)
	threshold := envFloat("SCORE_THRESHOLD", 0.05)

	sheetID := mustEnv("GOOGLE_SHEET_ID")
	paramPrefix := os.Getenv("PARAM_PREFIX")

	pineconeHost := os.Getenv("PINECONE_INDEX_HOST")
	pineconeNamespace := os.Getenv("PINECONE_NAMESPACE")
	docsBucket := os.Getenv("DOCS_BUCKET")
	docsKey := os.Getenv("DOCS_KEY")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Secrets: environment wins, SSM is the fallback ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	secrets := paramstore.NewResolver(ssmClient, paramPrefix)

	channelSecret, err := secrets.Secret(ctx, os.Getenv("LINE_CHANNEL_SECRET"), "line-channel-secret")
	if err != nil {
		slog.Error("failed to resolve channel secret", "err", err)
		os.Exit(1)
	}
	accessToken, err := secrets.Secret(ctx, os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"), "line-channel-access-token")
	if err != nil {
		slog.Error("failed to resolve channel access token", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	bedrockClient, err := bedrock.New(awsbedrock.NewFromConfig(cfg), modelID, embedModelID, maxTokens)
	if err != nil {
		slog.Error("failed to create bedrock client", "err", err)
		os.Exit(1)
	}

	lineClient, err := line.NewClient(accessToken)
	if err != nil {
		slog.Error("failed to create line client", "err", err)
		os.Exit(1)
	}

	auditLogger, err := newAuditLogger(ctx, secrets, sheetID)
	if err != nil {
		slog.Error("failed to create audit logger", "err", err)
		os.Exit(1)
	}

	// ---- Answer service: vector mode when an index host is configured,
	// document mode when a reference document is, plain completion otherwise ----
	opts := []usecase.Option{usecase.WithContextBudget(contextBudget)}
	switch {
	case pineconeHost != "":
		apiKey, err := secrets.Secret(ctx, os.Getenv("PINECONE_API_KEY"), "pinecone-api-key")
		if err != nil {
			slog.Error("failed to resolve pinecone api key", "err", err)
			os.Exit(1)
		}
		pineconeClient, err := pinecone.NewClient(apiKey, pinecone.WithIndexHost(pineconeHost))
		if err != nil {
			slog.Error("failed to create pinecone client", "err", err)
			os.Exit(1)
		}
		retriever, err := retrieval.NewRetriever(bedrockClient, pineconeClient, pineconeNamespace, topK, threshold)
		if err != nil {
			slog.Error("failed to create retriever", "err", err)
			os.Exit(1)
		}
		opts = append(opts, usecase.WithRetriever(retriever))
		slog.Info("answer mode: vector search", "namespace", pineconeNamespace, "topK", topK)

	case docsBucket != "" && docsKey != "":
		docs, err := repository.NewDocumentStore(awss3.NewFromConfig(cfg), docsBucket, docsKey)
		if err != nil {
			slog.Error("failed to create document store", "err", err)
			os.Exit(1)
		}
		opts = append(opts, usecase.WithDocumentLoader(docs))
		slog.Info("answer mode: reference document", "bucket", docsBucket, "key", docsKey)

	default:
		slog.Info("answer mode: plain completion")
	}

	answerService, err := usecase.NewAnswerService(bedrockClient, opts...)
	if err != nil {
		slog.Error("failed to create answer service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(answerService, lineClient, lineClient, auditLogger, channelSecret)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func newAuditLogger(ctx context.Context, secrets *paramstore.Resolver, sheetID string) (*sheets.Logger, error) {
	credentials, err := secrets.Secret(ctx, os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"), "google-service-account-json")
	if err != nil {
		return nil, err
	}
	api, err := sheets.NewGoogleAPI(ctx, []byte(credentials))
	if err != nil {
		return nil, err
	}
	opts := []sheets.Option{}
	if r := os.Getenv("GOOGLE_SHEET_RANGE"); r != "" {
		opts = append(opts, sheets.WithRange(r))
	}
	return sheets.NewLogger(api, sheetID, opts...)
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

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
