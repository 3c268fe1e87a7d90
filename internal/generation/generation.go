// Package generation defines the text-generation surface the retrieval
// orchestrator delegates to.
package generation

import (
	"context"
	"errors"
)

// Chat roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("generation: empty response")

// Turn is one message of a chat history. Histories are built once per
// request and never mutated by backends.
type Turn struct {
	Role    string
	Content string
}

// Backend produces an answer for a prompt given a seed chat history.
type Backend interface {
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)

	// ProcessText applies the provider's input truncation; retrieval uses it
	// on document text so prompts stay inside the provider budget.
	ProcessText(text string) string
}
