package chunker

import (
	"strings"
)

// MinChunkChars is the smallest segment worth indexing. Shorter segments are
// noise (stray headings, page numbers) and are dropped before embedding.
const MinChunkChars = 10

// pageSeparator joins decoded pages so that a page boundary is always a
// paragraph boundary for the splitter.
const pageSeparator = "\n\n"

// separators is the boundary priority when cutting a segment: paragraph,
// line, sentence, word. If none occurs inside the window the cut falls back
// to a plain character split.
var separators = []string{"\n\n", "\n", ". ", " "}

// Page is one decoded page or section of a source document.
type Page struct {
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded slice of document text ready for embedding.
type Chunk struct {
	Index    int
	Text     string
	Metadata map[string]string
}

// Chunker splits decoded document text into overlapping segments of roughly
// chunkSize characters.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. Overlap larger than or equal to chunkSize is
// clamped to zero so the window always advances.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split concatenates the page texts in order and cuts the result into
// segments close to the configured size, carrying the configured overlap
// from the tail of each segment into the head of the next. Segments shorter
// than MinChunkChars after trimming are dropped. If nothing survives but the
// source text is non-empty, a single chunk with the full trimmed text is
// emitted so non-empty input is never silently discarded.
func (c *Chunker) Split(pages []Page) []Chunk {
	joined, offsets := joinPages(pages)
	text := strings.TrimSpace(joined)
	if text == "" {
		return nil
	}
	// Offsets below are relative to the trimmed text.
	lead := strings.Index(joined, text)

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := c.cut(text, start)
		segment := strings.TrimSpace(text[start:end])
		if len(segment) >= MinChunkChars {
			chunks = append(chunks, Chunk{
				Index:    len(chunks),
				Text:     segment,
				Metadata: metadataAt(pages, offsets, lead+start),
			})
		}
		if end >= len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	if len(chunks) == 0 {
		meta := map[string]string{}
		if len(pages) > 0 && pages[0].Metadata != nil {
			meta = pages[0].Metadata
		}
		return []Chunk{{Index: 0, Text: text, Metadata: meta}}
	}
	return chunks
}

// cut returns the exclusive end offset of the segment starting at start,
// preferring the highest-priority separator occurring inside the window.
func (c *Chunker) cut(text string, start int) int {
	end := start + c.chunkSize
	if end >= len(text) {
		return len(text)
	}
	window := text[start:end]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i + len(sep)
		}
	}
	return end
}

// joinPages concatenates page texts with the page separator and records the
// start offset of each page in the joined string.
func joinPages(pages []Page) (string, []int) {
	var b strings.Builder
	offsets := make([]int, len(pages))
	for i, p := range pages {
		if i > 0 {
			b.WriteString(pageSeparator)
		}
		offsets[i] = b.Len()
		b.WriteString(p.Text)
	}
	return b.String(), offsets
}

// metadataAt returns the metadata of the page containing the given offset of
// the joined text.
func metadataAt(pages []Page, offsets []int, offset int) map[string]string {
	meta := map[string]string{}
	for i := len(pages) - 1; i >= 0; i-- {
		if offset >= offsets[i] {
			if pages[i].Metadata != nil {
				meta = pages[i].Metadata
			}
			break
		}
	}
	return meta
}
