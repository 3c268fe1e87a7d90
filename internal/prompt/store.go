// Package prompt holds the prompt templates, organized by language and
// group, and renders them by name. Wording changes never touch
// orchestration logic.
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"
)

//go:embed templates
var templateFS embed.FS

// DefaultLanguage is the fallback locale when the primary language has no
// template for a group.
const DefaultLanguage = "en"

// Store renders named templates from embedded locale files.
type Store struct {
	primary string
	groups  map[string]*template.Template // "<lang>/<group>"
}

// NewStore parses every embedded template. primaryLang selects the preferred
// locale; lookups fall back to DefaultLanguage.
func NewStore(primaryLang string) (*Store, error) {
	if primaryLang == "" {
		primaryLang = DefaultLanguage
	}
	s := &Store{primary: primaryLang, groups: map[string]*template.Template{}}

	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return err
		}
		// templates/<lang>/<group>.tmpl
		rel := strings.TrimPrefix(p, "templates/")
		lang := path.Dir(rel)
		group := strings.TrimSuffix(path.Base(rel), ".tmpl")

		tmpl, err := template.ParseFS(templateFS, p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		s.groups[lang+"/"+group] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Render executes the named template of a group with the given variables,
// trying the primary language first and falling back to the default.
func (s *Store) Render(group, name string, vars map[string]any) (string, error) {
	tmpl := s.groups[s.primary+"/"+group]
	if tmpl == nil || tmpl.Lookup(name) == nil {
		tmpl = s.groups[DefaultLanguage+"/"+group]
	}
	if tmpl == nil || tmpl.Lookup(name) == nil {
		return "", fmt.Errorf("prompt: template %s/%s not found", group, name)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, vars); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", group, name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
