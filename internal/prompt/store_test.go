package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSystemPrompt(t *testing.T) {
	store, err := NewStore("en")
	require.NoError(t, err)

	out, err := store.Render("rag", "system_prompt", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "based ONLY on the documents provided")
}

func TestRenderDocumentPrompt(t *testing.T) {
	store, err := NewStore("en")
	require.NoError(t, err)

	out, err := store.Render("rag", "document_prompt", map[string]any{
		"doc_num":    3,
		"chunk_text": "the chunk body",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "## Document No: 3")
	assert.Contains(t, out, "### Content: the chunk body")
}

func TestRenderUserQuestionPrompt(t *testing.T) {
	store, err := NewStore("en")
	require.NoError(t, err)

	out, err := store.Render("rag", "user_question_prompt", map[string]any{
		"user_query": "what is the refund policy?",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "## User Question:")
	assert.Contains(t, out, "what is the refund policy?")
}

func TestRenderFallsBackToDefaultLanguage(t *testing.T) {
	store, err := NewStore("de")
	require.NoError(t, err)

	out, err := store.Render("rag", "footer_prompt", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "## Answer:")
}

func TestRenderUnknownTemplate(t *testing.T) {
	store, err := NewStore("en")
	require.NoError(t, err)

	_, err = store.Render("rag", "nope", nil)
	assert.Error(t, err)

	_, err = store.Render("missing_group", "system_prompt", nil)
	assert.Error(t, err)
}
