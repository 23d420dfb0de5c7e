package internal

import (
	"os"
	"sort"
	"strings"
)

const (
	// MaxSearchResults bounds how many matching chats are displayed
	MaxSearchResults = 10
	// MaxMatchesPerChat bounds the matching lines kept per chat
	MaxMatchesPerChat = 3

	maxMatchLineLength = 100
)

// SearchMatch is one matching line inside a chat file
type SearchMatch struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchResult is a chat containing the query
type SearchResult struct {
	Path     string        `json:"path"`
	ChatID   string        `json:"chat_id"`
	Title    string        `json:"title"`
	Modified string        `json:"modified"`
	Matches  []SearchMatch `json:"matches"`
}

// Search does a case-insensitive substring match over every chat file.
// Results are ordered most recently modified first. Unreadable or corrupt
// files are logged and skipped.
func (s *ChatStore) Search(query string) ([]SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	paths, err := s.ChatFiles(ListOptions{})
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			LogWarn("Error searching file %s: %v", path, err)
			continue
		}
		content := string(data)
		if !strings.Contains(strings.ToLower(content), needle) {
			continue
		}
		rec, err := ParseRecord(content, path)
		if err != nil {
			LogWarn("Error searching file %s: %v", path, err)
			continue
		}
		results = append(results, SearchResult{
			Path:     path,
			ChatID:   rec.Metadata.ChatID,
			Title:    rec.Metadata.Title,
			Modified: rec.Metadata.Modified,
			Matches:  matchingLines(content, needle),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Modified > results[j].Modified
	})
	return results, nil
}

func matchingLines(content, needle string) []SearchMatch {
	var matches []SearchMatch
	for i, line := range strings.Split(content, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		text := strings.TrimSpace(Unescape(line))
		if r := []rune(text); len(r) > maxMatchLineLength {
			text = string(r[:maxMatchLineLength])
		}
		matches = append(matches, SearchMatch{Line: i + 1, Text: text})
		if len(matches) == MaxMatchesPerChat {
			break
		}
	}
	return matches
}
