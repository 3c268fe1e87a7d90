// Package decode turns raw file bytes into ordered (text, metadata) pages
// for chunking. Decoders are registered per file extension; OCR and other
// heavyweight engines join through the same Decoder interface.
package decode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedType is returned when no decoder is registered for a file's
// extension.
var ErrUnsupportedType = errors.New("decode: unsupported file type")

// Page is one decoded page or section of a document.
type Page struct {
	Text     string
	Metadata map[string]string
}

// Decoder converts raw bytes into pages given the file extension.
type Decoder interface {
	Decode(data []byte, extension string) ([]Page, error)
}

// DecodeFunc adapts a plain function to a per-extension decoder.
type DecodeFunc func(data []byte) ([]Page, error)

// Registry dispatches to a decoder by normalized file extension.
type Registry struct {
	decoders map[string]DecodeFunc
}

// NewRegistry creates a registry with the built-in plaintext and markdown
// decoders registered.
func NewRegistry() *Registry {
	r := &Registry{decoders: map[string]DecodeFunc{}}
	r.Register(".txt", decodePlainText)
	r.Register(".md", decodeMarkdown)
	r.Register(".markdown", decodeMarkdown)
	return r
}

// Register adds or replaces the decoder for an extension.
func (r *Registry) Register(extension string, fn DecodeFunc) {
	r.decoders[normalizeExt(extension)] = fn
}

// Decode runs the decoder registered for the extension.
func (r *Registry) Decode(data []byte, extension string) ([]Page, error) {
	fn, ok := r.decoders[normalizeExt(extension)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, extension)
	}
	return fn(data)
}

// ExtensionOf returns the normalized extension of a file id, empty when the
// id has none.
func ExtensionOf(fileID string) string {
	i := strings.LastIndex(fileID, ".")
	if i < 0 || i == len(fileID)-1 {
		return ""
	}
	return normalizeExt(fileID[i:])
}

func normalizeExt(extension string) string {
	extension = strings.ToLower(strings.TrimSpace(extension))
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return extension
}
