package internal

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FakeSummarizer is a scripted Summarizer for tests. Reply, when set, computes
// the response from the request; otherwise Text is returned.
type FakeSummarizer struct {
	Text  string
	Usage *TokenUsage
	Err   error
	Reply func(messages []ChatMessage, model string) string

	// Gate, when non-nil, blocks every call until it is closed or the
	// context is done. Started receives one value per call that reaches it.
	Gate    chan struct{}
	Started chan struct{}

	mu    sync.Mutex
	calls []FakeCall
}

// FakeCall records one request made to a FakeSummarizer
type FakeCall struct {
	Messages []ChatMessage
	Model    string
}

// Complete implements Summarizer
func (f *FakeSummarizer) Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Messages: messages, Model: model})
	f.mu.Unlock()

	if f.Gate != nil {
		if f.Started != nil {
			f.Started <- struct{}{}
		}
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	text := f.Text
	if f.Reply != nil {
		text = f.Reply(messages, model)
	}
	return &Completion{Text: text, Usage: f.Usage}, nil
}

// Stream implements StreamingSummarizer by splitting the response on spaces
func (f *FakeSummarizer) Stream(ctx context.Context, messages []ChatMessage, model string, fn func(Chunk) error) error {
	res, err := f.Complete(ctx, messages, model)
	if err != nil {
		return err
	}
	words := strings.SplitAfter(res.Text, " ")
	for i, w := range words {
		chunk := Chunk{Text: w}
		if i == len(words)-1 {
			chunk.Usage = res.Usage
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Calls returns the requests received so far
func (f *FakeSummarizer) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// FakeClock is a settable time source
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock stopped at t
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SetClock replaces the store's time source
func (s *ChatStore) SetClock(now func() time.Time) {
	s.now = now
}

// SetClock replaces the throttle's time source
func (t *UpdateThrottle) SetClock(now func() time.Time) {
	t.now = now
}

// SetClock replaces the compactor's time source
func (c *Compactor) SetClock(now func() time.Time) {
	c.now = now
}

// CreateTestRecord builds a record with the given turns already serialized
func CreateTestRecord(chatID, title string, turns ...Turn) *ChatRecord {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		ts := turn.Timestamp
		if ts == "" {
			ts = "2024-01-01 00:00:00 UTC"
		}
		b.WriteString(FormatTurn(turn.Role, turn.Content, ts))
		if turn.TokenInfo != "" {
			b.WriteString("\n*" + turn.TokenInfo + "*\n")
		}
	}
	now := FormatTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return &ChatRecord{
		Metadata: ChatMetadata{
			ChatID:   chatID,
			Title:    title,
			Created:  now,
			Modified: now,
			Model:    DefaultChatModel,
		},
		FullHistory: strings.TrimRight(b.String(), "\n"),
	}
}
