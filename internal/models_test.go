package internal

import (
	"testing"
	"time"
)

func TestTokenUsage_TotalTokens(t *testing.T) {
	u := TokenUsage{PromptTokens: 120, CompletionTokens: 30}
	if got := u.TotalTokens(); got != 150 {
		t.Errorf("TotalTokens() = %d, want 150", got)
	}
}

func TestMetadataPatch_Apply(t *testing.T) {
	title, folder := "Renamed", "archive"
	meta := ChatMetadata{ChatID: "c1", Title: "Old", Model: "m1", Folder: "work"}

	MetadataPatch{Title: &title, Folder: &folder}.apply(&meta)

	want := ChatMetadata{ChatID: "c1", Title: "Renamed", Model: "m1", Folder: "archive"}
	if meta != want {
		t.Errorf("apply() = %+v, want %+v", meta, want)
	}
}

func TestChatMetadata_Timestamps(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	tests := []struct {
		name string
		ts   string
		want time.Time
	}{
		{name: "formatted", ts: FormatTimestamp(at), want: at},
		{name: "empty", ts: "", want: time.Time{}},
		{name: "garbage", ts: "yesterday", want: time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := ChatMetadata{Created: tt.ts, Modified: tt.ts}
			if got := meta.CreatedAt(); !got.Equal(tt.want) {
				t.Errorf("CreatedAt() = %v, want %v", got, tt.want)
			}
			if got := meta.ModifiedAt(); !got.Equal(tt.want) {
				t.Errorf("ModifiedAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 1, 1, 2, 0, 0, 0, local)
	if got, want := FormatTimestamp(at), "2024-01-01T00:00:00.000000Z"; got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}
