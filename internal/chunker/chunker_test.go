package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	c := New(100, 20)

	assert.Empty(t, c.Split(nil))
	assert.Empty(t, c.Split([]Page{}))
	assert.Empty(t, c.Split([]Page{{Text: "   \n\t  "}}))
}

func TestSplitSingleSmallPage(t *testing.T) {
	c := New(1000, 100)

	chunks := c.Split([]Page{{Text: "This is a short document that fits in one chunk."}})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "This is a short document that fits in one chunk.", chunks[0].Text)
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha beta gamma delta ", 4)
	para2 := strings.Repeat("epsilon zeta eta theta ", 4)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	c := New(len(para1)+10, 0)
	chunks := c.Split([]Page{{Text: text}})

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.TrimSpace(para1), chunks[0].Text)
}

func TestSplitPreservesContent(t *testing.T) {
	lines := []string{
		"The quick brown fox jumps over the lazy dog.",
		"Pack my box with five dozen liquor jugs.",
		"How vexingly quick daft zebras jump!",
		"Sphinx of black quartz, judge my vow.",
	}
	text := strings.Join(lines, "\n")

	c := New(60, 0)
	chunks := c.Split([]Page{{Text: text}})
	require.NotEmpty(t, chunks)

	var joined strings.Builder
	for _, ch := range chunks {
		joined.WriteString(ch.Text)
		joined.WriteString("\n")
	}
	for _, line := range lines {
		assert.Contains(t, joined.String(), line, "no source line may be lost")
	}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplitCharacterFallbackOverlap(t *testing.T) {
	// No separators at all forces character-level slicing, where the overlap
	// contract is exact: each chunk's tail reappears as the next chunk's head.
	text := strings.Repeat("abcdefghij", 10) // 100 chars, no spaces
	c := New(30, 5)

	chunks := c.Split([]Page{{Text: text}})
	require.GreaterOrEqual(t, len(chunks), 3)

	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i].Text[len(chunks[i].Text)-5:]
		head := chunks[i+1].Text[:5]
		assert.Equal(t, tail, head, "chunk %d overlap mismatch", i)
	}
}

func TestSplitDropsShortSegments(t *testing.T) {
	// Paragraphs under 10 chars are dropped, the long one survives.
	text := "ab\n\ncd\n\nthis paragraph is long enough to keep around"
	c := New(30, 0)

	chunks := c.Split([]Page{{Text: text}})
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "this paragraph"))
	for _, ch := range chunks {
		assert.GreaterOrEqual(t, len(ch.Text), MinChunkChars)
	}
}

func TestSplitFallbackChunkForShortText(t *testing.T) {
	// Every segment is under the minimum, but the source is non-empty: exactly
	// one chunk carrying the full trimmed text must come back.
	c := New(4, 0)
	chunks := c.Split([]Page{{Text: "  one two  "}})

	require.Len(t, chunks, 1)
	assert.Equal(t, "one two", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitCarriesPageMetadata(t *testing.T) {
	pages := []Page{
		{Text: strings.Repeat("first section text. ", 5), Metadata: map[string]string{"section": "one"}},
		{Text: strings.Repeat("second section text. ", 5), Metadata: map[string]string{"section": "two"}},
	}
	c := New(80, 0)

	chunks := c.Split(pages)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "one", chunks[0].Metadata["section"])
	assert.Equal(t, "two", chunks[len(chunks)-1].Metadata["section"])
}

func TestNewClampsBadOverlap(t *testing.T) {
	c := New(20, 20)
	text := strings.Repeat("x", 100)

	chunks := c.Split([]Page{{Text: text}})
	require.NotEmpty(t, chunks)

	total := 0
	for _, ch := range chunks {
		total += len(ch.Text)
	}
	assert.Equal(t, 100, total, "clamped overlap must not duplicate content")
}
