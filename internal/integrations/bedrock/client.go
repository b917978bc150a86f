package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicVersion = "bedrock-2023-05-31"

// bedrockAPI is the minimal Bedrock Runtime interface required by Client.
// *bedrockruntime.Client from aws-sdk-go-v2 satisfies this interface.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// completionRequest is the Anthropic-on-Bedrock message request shape.
type completionRequest struct {
	AnthropicVersion string              `json:"anthropic_version"`
	MaxTokens        int                 `json:"max_tokens"`
	Messages         []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionResponse is the minimal response shape; the generated text is the
// first content element.
type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// embeddingRequest is the Titan text-embedding request shape.
type embeddingRequest struct {
	InputText string `json:"inputText"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// GenerationError reports a structurally unexpected model response. Raw
// carries the response body for diagnosis.
type GenerationError struct {
	Raw string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("bedrock: unexpected response shape, missing content: %s", e.Raw)
}

// Client invokes hosted models for text completion and embedding.
type Client struct {
	api          bedrockAPI
	modelID      string
	embedModelID string
	maxTokens    int
}

// New creates a Client. modelID is the completion model, embedModelID the
// embedding variant; maxTokens bounds generated output.
func New(api bedrockAPI, modelID, embedModelID string, maxTokens int) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("bedrock: model id must not be empty")
	}
	if strings.TrimSpace(embedModelID) == "" {
		return nil, errors.New("bedrock: embedding model id must not be empty")
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Client{
		api:          api,
		modelID:      modelID,
		embedModelID: embedModelID,
		maxTokens:    maxTokens,
	}, nil
}

// Complete sends a single-turn prompt and returns the generated text.
// Transport errors propagate unchanged; a response without content is a
// *GenerationError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("bedrock: prompt must not be empty")
	}

	body, err := json.Marshal(completionRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Messages:         []completionMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal completion request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke completion model: %w", err)
	}

	var payload completionResponse
	if decErr := json.Unmarshal(out.Body, &payload); decErr != nil {
		return "", fmt.Errorf("bedrock: decode completion response: %w", decErr)
	}
	if len(payload.Content) == 0 || payload.Content[0].Text == "" {
		return "", &GenerationError{Raw: string(out.Body)}
	}
	return payload.Content[0].Text, nil
}

// Embed converts text into a fixed-dimension vector using the embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("bedrock: embedding input must not be empty")
	}

	body, err := json.Marshal(embeddingRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("bedrock: marshal embedding request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.embedModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: invoke embedding model: %w", err)
	}

	var payload embeddingResponse
	if decErr := json.Unmarshal(out.Body, &payload); decErr != nil {
		return nil, fmt.Errorf("bedrock: decode embedding response: %w", decErr)
	}
	if len(payload.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock: embedding response missing vector: %s", string(out.Body))
	}
	return payload.Embedding, nil
}
