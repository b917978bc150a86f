package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter. Consumers should depend on
// this interface rather than the concrete *Client so they remain testable
// without real AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for decrypted parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// Resolver resolves startup secrets: an explicit value (from the environment)
// wins; otherwise the secret is fetched from SSM under the configured prefix.
// All secrets resolve once at initialization so missing values fail fast.
type Resolver struct {
	getter Getter
	prefix string
}

// NewResolver creates a Resolver over getter. getter may be nil when every
// secret is expected from the environment; prefix is required otherwise.
func NewResolver(getter Getter, prefix string) *Resolver {
	return &Resolver{
		getter: getter,
		prefix: strings.TrimRight(strings.TrimSpace(prefix), "/"),
	}
}

// Secret returns envValue when non-empty, otherwise the SSM parameter
// prefix+"/"+name.
func (r *Resolver) Secret(ctx context.Context, envValue, name string) (string, error) {
	if v := strings.TrimSpace(envValue); v != "" {
		return v, nil
	}
	if r == nil || r.getter == nil {
		return "", fmt.Errorf("paramstore: secret %q not set and no parameter store configured", name)
	}
	if r.prefix == "" {
		return "", fmt.Errorf("paramstore: secret %q not set and parameter prefix is empty", name)
	}
	v, err := r.getter.GetParameter(ctx, r.prefix+"/"+name)
	if err != nil {
		return "", fmt.Errorf("paramstore: resolve secret %q: %w", name, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("paramstore: secret %q resolved to an empty value", name)
	}
	return v, nil
}
