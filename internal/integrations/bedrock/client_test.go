package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal bedrockAPI stub recording the last request.
type fakeAPI struct {
	out     *bedrockruntime.InvokeModelOutput
	err     error
	lastIn  *bedrockruntime.InvokeModelInput
	perCall func(in *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
}

func (f *fakeAPI) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastIn = in
	if f.perCall != nil {
		return f.perCall(in)
	}
	return f.out, f.err
}

func newTestClient(t *testing.T, api bedrockAPI) *Client {
	t.Helper()
	c, err := New(api, "anthropic.claude-3-5-sonnet-20240620-v1:0", "amazon.titan-embed-text-v2:0", 1000)
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "model", "embed-model", 1000)
	require.Error(t, err)

	_, err = New(&fakeAPI{}, " ", "embed-model", 1000)
	require.Error(t, err)

	_, err = New(&fakeAPI{}, "model", "", 1000)
	require.Error(t, err)
}

func TestNew_DefaultMaxTokens(t *testing.T) {
	c, err := New(&fakeAPI{}, "model", "embed-model", 0)
	require.NoError(t, err)
	require.Equal(t, 1000, c.maxTokens)
}

// ---------------------------------------------------------------------------
// Complete
// ---------------------------------------------------------------------------

func TestComplete_HappyPath(t *testing.T) {
	api := &fakeAPI{out: &bedrockruntime.InvokeModelOutput{
		Body: []byte(`{"content":[{"type":"text","text":"generated answer"}]}`),
	}}
	c := newTestClient(t, api)

	got, err := c.Complete(context.Background(), "Question: hi\n\nAnswer:")
	require.NoError(t, err)
	require.Equal(t, "generated answer", got)

	require.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", *api.lastIn.ModelId)

	var req completionRequest
	require.NoError(t, json.Unmarshal(api.lastIn.Body, &req))
	require.Equal(t, "bedrock-2023-05-31", req.AnthropicVersion)
	require.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	require.Equal(t, "user", req.Messages[0].Role)
}

func TestComplete_MissingContent(t *testing.T) {
	api := &fakeAPI{out: &bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[]}`)}}
	c := newTestClient(t, api)

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.Contains(t, genErr.Raw, `"content":[]`)
}

func TestComplete_ServiceError(t *testing.T) {
	api := &fakeAPI{err: errors.New("throttled")}
	c := newTestClient(t, api)

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "throttled")
}

func TestComplete_EmptyPrompt(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	_, err := c.Complete(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "prompt")
}

// ---------------------------------------------------------------------------
// Embed
// ---------------------------------------------------------------------------

func TestEmbed_HappyPath(t *testing.T) {
	api := &fakeAPI{out: &bedrockruntime.InvokeModelOutput{
		Body: []byte(`{"embedding":[0.1,0.2,0.3]}`),
	}}
	c := newTestClient(t, api)

	vec, err := c.Embed(context.Background(), "some chunk")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	require.Equal(t, "amazon.titan-embed-text-v2:0", *api.lastIn.ModelId)

	var req embeddingRequest
	require.NoError(t, json.Unmarshal(api.lastIn.Body, &req))
	require.Equal(t, "some chunk", req.InputText)
}

func TestEmbed_EmptyInput(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	_, err := c.Embed(context.Background(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestEmbed_MissingVector(t *testing.T) {
	api := &fakeAPI{out: &bedrockruntime.InvokeModelOutput{Body: []byte(`{}`)}}
	c := newTestClient(t, api)

	_, err := c.Embed(context.Background(), "chunk")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing vector")
}

func TestEmbed_ServiceError(t *testing.T) {
	api := &fakeAPI{err: errors.New("service unavailable")}
	c := newTestClient(t, api)

	_, err := c.Embed(context.Background(), "chunk")
	require.Error(t, err)
	require.Contains(t, err.Error(), "service unavailable")
}
