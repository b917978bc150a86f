package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_DropsBlankLines(t *testing.T) {
	doc := "first line\n\n   \nsecond line\nthird line\n"
	require.Equal(t, []string{"first line", "second line", "third line"}, Split(doc))
}

func TestSplit_KeepsLineContentAsIs(t *testing.T) {
	doc := "  indented line  \nplain"
	got := Split(doc)
	require.Equal(t, "  indented line  ", got[0])
}

func TestSplit_EmptyDocument(t *testing.T) {
	require.Empty(t, Split(""))
	require.Empty(t, Split("\n\n\n"))
}

func TestNewChunks_UniqueIDs(t *testing.T) {
	chunks := NewChunks("one\ntwo\nthree")
	require.Len(t, chunks, 3)

	seen := map[string]bool{}
	for _, c := range chunks {
		require.NotEmpty(t, c.ID)
		require.False(t, seen[c.ID], "duplicate chunk id %s", c.ID)
		seen[c.ID] = true
		require.Nil(t, c.Embedding)
	}
	require.Equal(t, "one", chunks[0].Content)
}
