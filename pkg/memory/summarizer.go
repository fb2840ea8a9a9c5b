package memory

import (
	"context"
	"fmt"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/model"
)

const summarizerInstructions = "You are a conversation summarizer."

const summaryPrompt = "You are summarizing a conversation history for context compaction. " +
	"Create a dense, comprehensive summary of the following conversation that preserves:\n" +
	"- Key decisions and outcomes\n" +
	"- Important requests, alerts, or findings\n" +
	"- Current state of any ongoing tasks\n" +
	"- Any instructions or preferences the user expressed\n\n" +
	"Be thorough but concise. This summary will replace the original messages.\n\n" +
	"CONVERSATION TO SUMMARIZE:\n"

// NewModelSummarizer builds a Summarizer on top of a model provider. The
// summarization call carries no tools and no session history of its own.
func NewModelSummarizer(provider model.Provider, modelName string) Summarizer {
	return SummarizerFunc(func(ctx context.Context, text string) (string, error) {
		messages := []model.Message{{
			Role:    domain.RoleUser,
			Content: []model.Content{{Type: domain.ContentTypeText, Text: summaryPrompt + text}},
		}}

		msg, err := provider.Generate(ctx, modelName, summarizerInstructions, messages, nil)
		if err != nil {
			return "", fmt.Errorf("calling model for summary: %w", err)
		}
		summary := msg.Text()
		if summary == "" {
			return "", fmt.Errorf("model returned empty summary")
		}
		return summary, nil
	})
}
