package internal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultChatModel    = "anthropic/claude-3.5-sonnet"
	DefaultUtilityModel = "anthropic/claude-3.5-haiku"
)

// Summarizer produces a single completed text for a list of messages
type Summarizer interface {
	Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error)
}

// StreamingSummarizer additionally delivers a completion as incremental chunks.
// Usage, when known, is attached to the last chunk.
type StreamingSummarizer interface {
	Summarizer
	Stream(ctx context.Context, messages []ChatMessage, model string, fn func(Chunk) error) error
}

// Completion is a finished response
type Completion struct {
	Text  string
	Usage *TokenUsage
}

// Chunk is one fragment of a streamed response
type Chunk struct {
	Text  string
	Usage *TokenUsage
}

const (
	titlePrompt = "Generate a concise 3-7 word title for this conversation. " +
		"Only respond with the title, nothing else."

	memoryPrompt = "You are extracting important information from a conversation to save as memories. " +
		"Extract: user preferences, ongoing projects, important context, and key facts. " +
		"Format as markdown. Be concise. Only add new information not already in existing memories."

	compactPrompt = "Summarize this conversation concisely, preserving key information, " +
		"decisions, and context. Format as a narrative summary."
)

// GenerateTitle asks the summarizer for a short conversation title
func GenerateTitle(ctx context.Context, s Summarizer, conversation, model string) (string, error) {
	res, err := s.Complete(ctx, []ChatMessage{
		{Role: RoleSystem, Content: titlePrompt},
		{Role: RoleUser, Content: "Conversation:\n\n" + conversation},
	}, model)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(res.Text)
	title = strings.Trim(title, `"`)
	title = strings.Trim(title, `'`)
	return title, nil
}

// ExtractMemories asks the summarizer for facts not already in existing
func ExtractMemories(ctx context.Context, s Summarizer, conversation, existing, model string) (string, error) {
	res, err := s.Complete(ctx, []ChatMessage{
		{Role: RoleSystem, Content: memoryPrompt},
		{Role: RoleUser, Content: fmt.Sprintf(
			"Existing memories:\n\n%s\n\nNew conversation:\n\n%s\n\nExtract new important information to add to memories:",
			existing, conversation)},
	}, model)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// Summarize condenses a conversation history for compaction
func Summarize(ctx context.Context, s Summarizer, history, model string) (string, error) {
	res, err := s.Complete(ctx, []ChatMessage{
		{Role: RoleSystem, Content: compactPrompt},
		{Role: RoleUser, Content: "Conversation to summarize:\n\n" + history},
	}, model)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// BuildContext assembles the messages sent for a new user message: system
// prompt, memories, compact context, prior turns, then the message itself.
func BuildContext(systemPrompt, memories string, rec *ChatRecord, userMessage string) []ChatMessage {
	var msgs []ChatMessage
	if systemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	if memories != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: "# Relevant Memories\n\n" + memories})
	}
	if rec != nil {
		if rec.CompactContext != "" {
			msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: "# Previous Context\n\n" + rec.CompactContext})
		}
		for _, turn := range rec.Turns() {
			msgs = append(msgs, ChatMessage{Role: turn.Role, Content: turn.Content})
		}
	}
	return append(msgs, ChatMessage{Role: RoleUser, Content: userMessage})
}

// CollectStream drains a streaming call into a Completion, passing each
// chunk to onChunk when it is non-nil.
func CollectStream(ctx context.Context, s StreamingSummarizer, messages []ChatMessage, model string, onChunk func(Chunk)) (*Completion, error) {
	var b strings.Builder
	var usage *TokenUsage
	err := s.Stream(ctx, messages, model, func(c Chunk) error {
		b.WriteString(c.Text)
		if c.Usage != nil {
			usage = c.Usage
		}
		if onChunk != nil {
			onChunk(c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Completion{Text: b.String(), Usage: usage}, nil
}

func compactHeading(at time.Time) string {
	return fmt.Sprintf("**Summary (generated %s)**", at.Format("2006-01-02 15:04"))
}
