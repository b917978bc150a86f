package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yuuki999/ai-line-bot/internal/domain"
)

const (
	defaultTopK      = 5
	defaultThreshold = 0.05
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index queries a namespaced similarity index.
type Index interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.RetrievalMatch, error)
}

// Retriever embeds a query and returns the nearest stored chunks above the
// score threshold, ordered by descending score. Zero matches is a normal
// outcome, not an error.
type Retriever struct {
	embedder  Embedder
	index     Index
	namespace string
	topK      int
	threshold float64
}

// NewRetriever creates a Retriever over embedder and index for one namespace.
func NewRetriever(embedder Embedder, index Index, namespace string, topK int, threshold float64) (*Retriever, error) {
	if embedder == nil {
		return nil, errors.New("retrieval: embedder must not be nil")
	}
	if index == nil {
		return nil, errors.New("retrieval: index must not be nil")
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, errors.New("retrieval: namespace must not be empty")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		namespace: namespace,
		topK:      topK,
		threshold: threshold,
	}, nil
}

// Retrieve returns the matches for query scoring at or above the threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.RetrievalMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("retrieval: query must not be empty")
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, r.namespace, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query index: %w", err)
	}

	filtered := make([]domain.RetrievalMatch, 0, len(matches))
	for _, m := range matches {
		if m.Score >= r.threshold {
			filtered = append(filtered, m)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered, nil
}
