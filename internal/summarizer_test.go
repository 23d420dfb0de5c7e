package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain", "Go Concurrency Patterns", "Go Concurrency Patterns"},
		{"double quoted", "\"Go Concurrency\"", "Go Concurrency"},
		{"single quoted with space", "  'Go Concurrency'\n", "Go Concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateTitle(context.Background(), &FakeSummarizer{Text: tt.reply}, "conv", "m")
			if err != nil {
				t.Fatalf("GenerateTitle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GenerateTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMemoriesIncludesExisting(t *testing.T) {
	fake := &FakeSummarizer{Text: " - new fact \n"}
	got, err := ExtractMemories(context.Background(), fake, "the conversation", "- old fact", "m")
	if err != nil {
		t.Fatalf("ExtractMemories() error = %v", err)
	}
	if got != "- new fact" {
		t.Errorf("ExtractMemories() = %q, want %q", got, "- new fact")
	}
	prompt := fake.Calls()[0].Messages[1].Content
	if !strings.Contains(prompt, "- old fact") || !strings.Contains(prompt, "the conversation") {
		t.Errorf("prompt = %q", prompt)
	}
	if fake.Calls()[0].Messages[0].Role != RoleSystem {
		t.Error("first message is not the system prompt")
	}
}

func TestSummarizePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	if _, err := Summarize(context.Background(), &FakeSummarizer{Err: wantErr}, "h", "m"); !errors.Is(err, wantErr) {
		t.Errorf("Summarize() error = %v, want %v", err, wantErr)
	}
}

func TestBuildContext(t *testing.T) {
	rec := CreateTestRecord("id", "t",
		Turn{Role: RoleUser, Content: "earlier question"},
		Turn{Role: RoleAssistant, Content: "earlier answer"},
	)
	rec.CompactContext = "summary"

	msgs := BuildContext("be helpful", "- likes Go", rec, "new question")
	wantRoles := []Role{RoleSystem, RoleSystem, RoleSystem, RoleUser, RoleAssistant, RoleUser}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("BuildContext() returned %d messages, want %d", len(msgs), len(wantRoles))
	}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, role)
		}
	}
	if msgs[1].Content != "# Relevant Memories\n\n- likes Go" {
		t.Errorf("memories message = %q", msgs[1].Content)
	}
	if msgs[2].Content != "# Previous Context\n\nsummary" {
		t.Errorf("context message = %q", msgs[2].Content)
	}
	if msgs[5].Content != "new question" {
		t.Errorf("last message = %q", msgs[5].Content)
	}

	bare := BuildContext("", "", nil, "hi")
	if len(bare) != 1 || bare[0].Role != RoleUser {
		t.Errorf("BuildContext() without extras = %+v", bare)
	}
}

func TestCollectStream(t *testing.T) {
	fake := &FakeSummarizer{Text: "one two three", Usage: &TokenUsage{PromptTokens: 1, CompletionTokens: 3}}

	var chunks []string
	res, err := CollectStream(context.Background(), fake, nil, "m", func(c Chunk) {
		chunks = append(chunks, c.Text)
	})
	if err != nil {
		t.Fatalf("CollectStream() error = %v", err)
	}
	if res.Text != "one two three" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(chunks) != 3 {
		t.Errorf("chunks = %v, want 3", chunks)
	}
	if res.Usage == nil || res.Usage.TotalTokens() != 4 {
		t.Errorf("Usage = %+v", res.Usage)
	}
}
