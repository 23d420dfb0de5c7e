package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/iksnae/prattle/internal"
)

const defaultMaxTokens = 4096

// AnthropicConfig configures the Anthropic client
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	MaxTokens  int64
	HTTPClient *http.Client
}

// Anthropic is a StreamingSummarizer backed by the Anthropic Messages API.
// System messages are joined into the request's system prompt.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropic creates a client
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{client: anthropic.NewClient(opts...), maxTokens: maxTokens}
}

// Complete implements internal.Summarizer
func (a *Anthropic) Complete(ctx context.Context, messages []internal.ChatMessage, model string) (*internal.Completion, error) {
	msg, err := a.client.Messages.New(ctx, a.params(messages, model))
	if err != nil {
		return nil, a.fail(model, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return &internal.Completion{
		Text: b.String(),
		Usage: &internal.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// Stream implements internal.StreamingSummarizer
func (a *Anthropic) Stream(ctx context.Context, messages []internal.ChatMessage, model string, fn func(internal.Chunk) error) error {
	stream := a.client.Messages.NewStreaming(ctx, a.params(messages, model))
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return a.fail(model, err)
		}
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
				if err := fn(internal.Chunk{Text: text.Text}); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return a.fail(model, err)
	}
	return fn(internal.Chunk{Usage: &internal.TokenUsage{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
	}})
}

func (a *Anthropic) params(messages []internal.ChatMessage, model string) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var conv []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case internal.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case internal.RoleAssistant:
			conv = append(conv, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  conv,
	}
}

func (a *Anthropic) fail(model string, err error) error {
	return &internal.SummarizerError{Provider: "anthropic", Model: model, Err: fmt.Errorf("messages: %w", err)}
}
