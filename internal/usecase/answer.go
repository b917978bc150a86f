package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/yuuki999/ai-line-bot/internal/domain"
)

// CompletionClient generates text from a single-turn prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever returns similarity matches for a query, highest score
// first. An empty result is a normal outcome.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.RetrievalMatch, error)
}

// DocumentLoader returns the static reference document used in document mode.
type DocumentLoader interface {
	Load(ctx context.Context) (string, error)
}

// AnswerService produces one answer per user question. Depending on
// configuration it augments the prompt with vector-search context, with a
// static reference document, or with nothing (pure model call).
type AnswerService struct {
	llm           CompletionClient
	retriever     ContextRetriever
	docs          DocumentLoader
	contextBudget int
}

type Option func(*AnswerService)

// WithRetriever enables vector mode. Takes precedence over a document loader.
func WithRetriever(r ContextRetriever) Option {
	return func(s *AnswerService) {
		s.retriever = r
	}
}

// WithDocumentLoader enables document mode.
func WithDocumentLoader(d DocumentLoader) Option {
	return func(s *AnswerService) {
		s.docs = d
	}
}

// WithContextBudget caps the context block at n characters.
func WithContextBudget(n int) Option {
	return func(s *AnswerService) {
		s.contextBudget = n
	}
}

// NewAnswerService creates an AnswerService around the completion client.
func NewAnswerService(llm CompletionClient, opts ...Option) (*AnswerService, error) {
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	s := &AnswerService{
		llm:           llm,
		contextBudget: defaultContextBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Answer runs the retrieval-augmented pipeline for one question and returns
// the generated text. A retrieval or generation failure aborts only this
// question; the caller isolates it from sibling events.
func (s *AnswerService) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", newError(ErrorInvalidInput, "empty_question", nil)
	}

	prompt, err := s.buildAnswerPrompt(ctx, question)
	if err != nil {
		return "", err
	}

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", newError(ErrorGeneration, "completion_error", err)
	}
	return answer, nil
}

func (s *AnswerService) buildAnswerPrompt(ctx context.Context, question string) (string, error) {
	switch {
	case s.retriever != nil:
		matches, err := s.retriever.Retrieve(ctx, question)
		if err != nil {
			return "", newError(ErrorRetrieval, "vector_search_error", err)
		}
		return buildPrompt(buildContext(matches, s.contextBudget), question), nil

	case s.docs != nil:
		doc, err := s.docs.Load(ctx)
		if err != nil {
			return "", newError(ErrorRetrieval, "reference_document_error", err)
		}
		if strings.TrimSpace(doc) == "" {
			return buildPrompt(noContextSentinel, question), nil
		}
		return buildPrompt(truncateContext(doc, s.contextBudget), question), nil

	default:
		// Pure model call: the user text is forwarded as-is.
		return question, nil
	}
}
