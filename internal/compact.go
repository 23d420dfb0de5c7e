package internal

import (
	"context"
	"strings"
	"time"
)

// Compactor folds a chat's history into a new compact context block
type Compactor struct {
	store      *ChatStore
	summarizer Summarizer
	now        func() time.Time
}

// NewCompactor wires a compactor to a store and a summarizer
func NewCompactor(store *ChatStore, summarizer Summarizer) *Compactor {
	return &Compactor{store: store, summarizer: summarizer, now: time.Now}
}

// Compact summarizes the full history and installs the summary as the
// compact context. The previous compact block, if any, is appended to the
// history under the superseded-context marker. User and assistant turns are
// never removed. An empty model uses the chat's own model.
func (c *Compactor) Compact(ctx context.Context, chatID, model string) error {
	rec, err := c.store.Load(chatID, "")
	if err != nil {
		return err
	}
	if model == "" {
		model = rec.Metadata.Model
	}

	summary, err := Summarize(ctx, c.summarizer, rec.FullHistory, model)
	if err != nil {
		return err
	}

	if old := strings.TrimSpace(rec.CompactContext); old != "" {
		rec.FullHistory = strings.TrimRight(rec.FullHistory, "\n") +
			"\n\n" + SupersededMarker + "\n" + Escape(old) + "\n"
	}
	rec.CompactContext = compactHeading(c.now()) + "\n\n" + summary

	if _, err := c.store.Save(rec); err != nil {
		return err
	}
	LogInfo("Compacted chat %s", chatID)
	return nil
}
