package retrieval

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yuuki999/ai-line-bot/internal/domain"
)

// Split divides a document into line-delimited chunks, dropping lines that
// are empty or whitespace-only. Line content is kept as-is.
func Split(document string) []string {
	lines := strings.Split(document, "\n")
	chunks := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunks = append(chunks, line)
	}
	return chunks
}

// NewChunks splits document and pairs each chunk with a generated unique
// identifier. Embeddings are attached later at ingestion time.
func NewChunks(document string) []domain.Chunk {
	parts := Split(document)
	chunks := make([]domain.Chunk, 0, len(parts))
	for _, content := range parts {
		chunks = append(chunks, domain.Chunk{
			ID:      uuid.NewString(),
			Content: content,
		})
	}
	return chunks
}
