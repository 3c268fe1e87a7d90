package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// OpenAIBackend generates answers through the OpenAI chat completions API.
type OpenAIBackend struct {
	client        *openai.Client
	model         string
	maxInputChars int
	maxTokens     int64
	temperature   float64
}

// NewOpenAIBackend creates a chat backend. Zero limits pick defaults that
// match the embedding side's input budget.
func NewOpenAIBackend(client *openai.Client, model string, maxInputChars, maxTokens int, temperature float64) *OpenAIBackend {
	if maxInputChars <= 0 {
		maxInputChars = 1000
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &OpenAIBackend{
		client:        client,
		model:         model,
		maxInputChars: maxInputChars,
		maxTokens:     int64(maxTokens),
		temperature:   temperature,
	}
}

// ProcessText truncates text to the provider input budget and trims it.
func (b *OpenAIBackend) ProcessText(text string) string {
	runes := []rune(text)
	if len(runes) > b.maxInputChars {
		runes = runes[:b.maxInputChars]
	}
	return strings.TrimSpace(string(runes))
}

// Generate sends the history followed by the prompt as the final user turn
// and returns the model's text. The history slice is not modified.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               b.model,
		MaxCompletionTokens: openai.Int(b.maxTokens),
		Temperature:         openai.Float(b.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
