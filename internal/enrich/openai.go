// Package enrich holds the LLM-backed enrichment hooks. Today only subject
// suggestion is implemented; deeper idea enrichment (solution overview,
// feasibility, personas) advances the status lifecycle and lives outside this
// pipeline.
package enrich

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ideaengine/internal/models"
)

const suggestTimeout = 30 * time.Second

type OpenAISuggester struct {
	client *openai.Client
	model  string
}

// NewOpenAISuggester returns nil when OPENAI_API_KEY is unset, which disables
// the LLM fallback entirely.
func NewOpenAISuggester() *OpenAISuggester {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAISuggester{client: openai.NewClient(apiKey), model: model}
}

// SuggestSubject asks the model to pick one subject from the fixed taxonomy.
// Anything outside the taxonomy is returned as-is and rejected by the caller.
func (s *OpenAISuggester) SuggestSubject(ctx context.Context, title, problem string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	subjects := make([]string, 0, len(models.AllSubjects))
	for _, subject := range models.AllSubjects {
		subjects = append(subjects, string(subject))
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   8,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You categorize business pain points. Reply with exactly one of: " +
					strings.Join(subjects, ", ") + ". Reply with the category name only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Title: %s\nProblem: %s", title, problem),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("[Enrich] chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("[Enrich] empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
