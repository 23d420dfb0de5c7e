package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/prattle/internal"
)

func TestHealthcheckCommand(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		setup  func(t *testing.T, home string)
		want   []string
	}{
		{
			name: "empty home without key",
			want: []string{"No settings file", "No API key", "No chats yet", "no API key is configured"},
		},
		{
			name:   "chats and key",
			apiKey: "sk-test",
			setup: func(t *testing.T, home string) {
				newChat(t, home)
				newChat(t, home)
			},
			want: []string{"API key configured", "Found 2 chat(s)", "Health check passed"},
		},
		{
			name:   "corrupt chat file",
			apiKey: "sk-test",
			setup: func(t *testing.T, home string) {
				newChat(t, home)
				path := filepath.Join(home, "chats", "broken.md")
				if err := os.WriteFile(path, []byte("---\n: [unclosed\n---\n"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			want: []string{"Found 1 chat(s)", "1 chat file(s) could not be parsed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENROUTER_API_KEY", tt.apiKey)
			home := newTestHome(t)
			if tt.setup != nil {
				tt.setup(t, home)
			}

			out := mustRun(t, home, "healthcheck", "--details")
			for _, w := range append(tt.want, "Log level: info") {
				if !strings.Contains(out, w) {
					t.Errorf("healthcheck output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestStateCommand(t *testing.T) {
	home := newTestHome(t)

	out := mustRun(t, home, "state", "--schema")
	for _, w := range []string{"throttle_titles", "throttle_memory", "chat_index", "chat_id", "[PRIMARY KEY]", "none recorded", "never"} {
		if !strings.Contains(out, w) {
			t.Errorf("state output missing %q:\n%s", w, out)
		}
	}

	state, err := internal.OpenStateDB(filepath.Join(home, "state.db"))
	if err != nil {
		t.Fatalf("OpenStateDB() error = %v", err)
	}
	now := time.Now()
	err = state.SaveThrottle(internal.ThrottleSnapshot{
		Titles:           []internal.TitleState{{ChatID: "chat-abc", LastUpdate: now, LastMessageCount: 4}},
		LastMemoryUpdate: now.Add(-time.Hour),
	})
	state.Close()
	if err != nil {
		t.Fatalf("SaveThrottle() error = %v", err)
	}

	out = mustRun(t, home, "state")
	for _, w := range []string{"chat-abc", "(1 rows)", " in ", "next due now"} {
		if !strings.Contains(out, w) {
			t.Errorf("state output missing %q:\n%s", w, out)
		}
	}
}

func TestDueIn(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{at: now.Add(-time.Second), want: "now"},
		{at: now, want: "now"},
		{at: now.Add(90 * time.Second), want: "in 1m30s"},
	}
	for _, tt := range tests {
		if got := dueIn(tt.at, now); !strings.Contains(got, tt.want) {
			t.Errorf("dueIn(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestRelativeDate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero", t: time.Time{}, want: "—"},
		{name: "recent", t: now.Add(-time.Hour), want: "Today"},
		{name: "old", t: time.Date(2001, 2, 3, 4, 5, 6, 0, time.Local), want: "2001-02-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relativeDate(tt.t, now); !strings.Contains(got, tt.want) {
				t.Errorf("relativeDate() = %q, want %q", got, tt.want)
			}
		})
	}
}
