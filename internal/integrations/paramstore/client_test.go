package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeSSM is a minimal ssmAPI stub.
type fakeSSM struct {
	out     *ssm.GetParameterOutput
	err     error
	gotName string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if in.Name != nil {
		f.gotName = *in.Name
	}
	return f.out, f.err
}

func paramOutput(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: &value}}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeSSM{out: paramOutput("secret-value")}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), "/ai-line-bot/channel-secret")
	require.NoError(t, err)
	require.Equal(t, "secret-value", v)
	require.Equal(t, "/ai-line-bot/channel-secret", api.gotName)
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeSSM{})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "  ")
	require.Error(t, err)
}

func TestGetParameter_MissingValue(t *testing.T) {
	c, err := New(&fakeSSM{out: &ssm.GetParameterOutput{}})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_APIError(t *testing.T) {
	c, err := New(&fakeSSM{err: errors.New("access denied")})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

type stubGetter struct {
	vals  map[string]string
	calls int
}

func (s *stubGetter) GetParameter(_ context.Context, name string) (string, error) {
	s.calls++
	v, ok := s.vals[name]
	if !ok {
		return "", errors.New("parameter not found: " + name)
	}
	return v, nil
}

func TestResolver_EnvValueWins(t *testing.T) {
	g := &stubGetter{vals: map[string]string{"/ai-line-bot/channel-secret": "from-ssm"}}
	r := NewResolver(g, "/ai-line-bot")

	v, err := r.Secret(context.Background(), "from-env", "channel-secret")
	require.NoError(t, err)
	require.Equal(t, "from-env", v)
	require.Zero(t, g.calls, "SSM must not be consulted when env value is set")
}

func TestResolver_FallsBackToSSM(t *testing.T) {
	g := &stubGetter{vals: map[string]string{"/ai-line-bot/channel-secret": "from-ssm"}}
	r := NewResolver(g, "/ai-line-bot/")

	v, err := r.Secret(context.Background(), "", "channel-secret")
	require.NoError(t, err)
	require.Equal(t, "from-ssm", v)
}

func TestResolver_NoGetterConfigured(t *testing.T) {
	r := NewResolver(nil, "")
	_, err := r.Secret(context.Background(), "", "channel-secret")
	require.Error(t, err)
	require.Contains(t, err.Error(), "channel-secret")
}

func TestResolver_EmptyResolvedValue(t *testing.T) {
	g := &stubGetter{vals: map[string]string{"/ai-line-bot/channel-secret": "  "}}
	r := NewResolver(g, "/ai-line-bot")
	_, err := r.Secret(context.Background(), "", "channel-secret")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty value")
}
