package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxDocumentBytes bounds the reference document read; larger objects fail
// rather than blowing the prompt budget downstream.
const maxDocumentBytes = 10 << 20

// s3API is the minimal S3 interface required by DocumentStore.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DocumentStore reads the static reference document used when the relay runs
// in document mode. The object is fetched once per process and reused.
type DocumentStore struct {
	api    s3API
	bucket string
	key    string

	once sync.Once
	doc  string
	err  error
}

// NewDocumentStore creates a DocumentStore for one bucket/key pair.
func NewDocumentStore(api s3API, bucket, key string) (*DocumentStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("repository: bucket must not be empty")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("repository: key must not be empty")
	}
	return &DocumentStore{api: api, bucket: bucket, key: key}, nil
}

// Load returns the document text, fetching it on the first call and caching
// the result (or the failure) for the process lifetime.
func (s *DocumentStore) Load(ctx context.Context) (string, error) {
	s.once.Do(func() {
		s.doc, s.err = s.fetch(ctx)
	})
	return s.doc, s.err
}

func (s *DocumentStore) fetch(ctx context.Context) (string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return "", fmt.Errorf("repository: get object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(out.Body, maxDocumentBytes+1))
	if err != nil {
		return "", fmt.Errorf("repository: read object body: %w", err)
	}
	if len(buf) > maxDocumentBytes {
		return "", fmt.Errorf("repository: document s3://%s/%s exceeds %d bytes", s.bucket, s.key, maxDocumentBytes)
	}
	return string(buf), nil
}
