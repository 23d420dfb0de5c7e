package internal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/prattle/testutil"
)

func TestMemoryStore_ReadAllMissing(t *testing.T) {
	m := NewMemoryStore(filepath.Join(testutil.CreateTempDir(t), "context", "memories.md"))
	content, err := m.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if content != "" {
		t.Errorf("ReadAll() = %q, want empty", content)
	}
}

func TestMemoryStore_AppendIsAdditive(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "context", "memories.md")
	testutil.WriteRawFixture(t, path, "# Memories\n\nhand written")
	m := NewMemoryStore(path)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	if err := m.Append("- likes tea", at); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := m.Append("- uses vim", at.Add(time.Hour)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	content := testutil.ReadFile(t, path)
	want := "# Memories\n\nhand written" +
		"\n\n---\n**Updated: 2024-05-01 09:30:00**\n\n- likes tea\n" +
		"\n\n---\n**Updated: 2024-05-01 10:30:00**\n\n- uses vim\n"
	if content != want {
		t.Errorf("memories file =\n%q\nwant\n%q", content, want)
	}
}

func TestMemoryStore_Load(t *testing.T) {
	m := NewMemoryStore(filepath.Join(testutil.CreateTempDir(t), "memories.md"))
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, fact := range []string{"first", "second", "third"} {
		if err := m.Append(fact, at); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	tests := []struct {
		name       string
		max        int
		contains   []string
		notContain []string
	}{
		{"all", 0, []string{"first", "second", "third"}, nil},
		{"last two", 2, []string{"second", "third"}, []string{"first"}},
		{"last one", 1, []string{"third"}, []string{"first", "second"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Load(tt.max)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Load(%d) missing %q", tt.max, s)
				}
			}
			for _, s := range tt.notContain {
				if strings.Contains(got, s) {
					t.Errorf("Load(%d) contains %q", tt.max, s)
				}
			}
		})
	}
}
