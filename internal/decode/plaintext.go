package decode

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// decodePlainText emits the whole file as a single page. Form feeds are the
// only in-band page marker plain text carries; when present they split the
// file into numbered pages.
func decodePlainText(data []byte) ([]Page, error) {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		meta := map[string]string{"format": "text"}
		if len(parts) > 1 {
			meta["page"] = strconv.Itoa(i + 1)
		}
		pages = append(pages, Page{Text: part, Metadata: meta})
	}
	return pages, nil
}
