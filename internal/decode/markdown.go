package decode

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// decodeMarkdown splits a markdown document into one page per H1/H2 section,
// tagging each page with its header path so section context survives
// chunking. A document without headings decodes to a single page.
func decodeMarkdown(data []byte) ([]Page, error) {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	doc := md.Parser().Parse(text.NewReader(data))

	tree, err := toc.Inspect(doc, data,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect markdown sections: %w", err)
	}

	if len(tree.Items) == 0 {
		body := strings.TrimSpace(string(data))
		if body == "" {
			return nil, nil
		}
		return []Page{{Text: body, Metadata: map[string]string{"format": "markdown"}}}, nil
	}

	var pages []Page
	collectSections(doc, data, tree.Items, nil, &pages)
	return pages, nil
}

// collectSections walks the table of contents and emits a page per section,
// bounded by the next heading of the same or higher level.
func collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, pages *[]Page) {
	for i, item := range items {
		path := append(ancestors, string(item.Title))

		heading := headingByID(doc, string(item.ID))
		if heading == nil || heading.Lines().Len() == 0 {
			continue
		}

		start := heading.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil && next.Lines().Len() > 0 {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, heading, heading.(*ast.Heading).Level)
		}

		body := sectionText(source, start, end)
		if strings.TrimSpace(body) != "" {
			*pages = append(*pages, Page{
				Text: body,
				Metadata: map[string]string{
					"format":  "markdown",
					"section": strings.Join(path, " > "),
				},
			})
		}

		if len(item.Items) > 0 {
			collectSections(doc, source, item.Items, path, pages)
		}
	}
}

// headingByID finds the heading node carrying an auto-generated id.
func headingByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if v, ok := n.AttributeString("id"); ok && string(v.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a higher
// level; the zero segment means "to end of document".
func nextBoundary(root ast.Node, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passed := false
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passed {
			if n == current {
				passed = true
			}
			return ast.WalkContinue, nil
		}
		if h := n.(*ast.Heading); h.Level <= level && h.Lines().Len() > 0 {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if boundary != nil {
		return boundary.Lines().At(0)
	}
	return text.Segment{}
}

// sectionText slices the source between the start segment and the boundary.
func sectionText(source []byte, start, end text.Segment) string {
	if end.Start == 0 && end.Stop == 0 {
		return strings.TrimSpace(string(source[start.Start:]))
	}
	return strings.TrimSpace(string(source[start.Start:end.Start]))
}
