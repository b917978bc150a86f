package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuuki999/ai-line-bot/internal/domain"
)

// noContextSentinel stands in for the context block when retrieval produced
// nothing usable; the model must still be invoked.
const noContextSentinel = "No relevant information was found."

const defaultContextBudget = 8000

// buildContext joins match contents with blank-line separators under a
// character budget. Matches are consumed in the given order (highest score
// first); the first overflowing match is truncated to the remaining budget
// and the rest are dropped, so truncation is deterministic.
func buildContext(matches []domain.RetrievalMatch, budget int) string {
	if len(matches) == 0 {
		return noContextSentinel
	}
	if budget <= 0 {
		budget = defaultContextBudget
	}

	var b strings.Builder
	remaining := budget
	for _, m := range matches {
		content := m.Content
		if content == "" {
			continue
		}
		sep := 0
		if b.Len() > 0 {
			sep = 2
		}
		if len(content)+sep > remaining {
			cut := truncateAtRuneBoundary(content, remaining-sep)
			if cut == "" {
				break
			}
			if sep > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(cut)
			break
		}
		if sep > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(content)
		remaining -= len(content) + sep
	}

	if b.Len() == 0 {
		return noContextSentinel
	}
	return b.String()
}

// buildPrompt composes the fixed template: context block, question, answer cue.
func buildPrompt(contextBlock, question string) string {
	return fmt.Sprintf(
		"Use the following context to answer the question.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		contextBlock,
		question,
	)
}

// truncateContext bounds a raw document used as the context block.
func truncateContext(doc string, budget int) string {
	if budget <= 0 {
		budget = defaultContextBudget
	}
	return truncateAtRuneBoundary(doc, budget)
}

// truncateAtRuneBoundary cuts s to at most n bytes without splitting a
// multibyte rune mid-sequence.
func truncateAtRuneBoundary(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
