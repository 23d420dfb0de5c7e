package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// Markers that structure a chat file. A content line starting with any of
// them is escaped before it is written.
const (
	UserHeader        = "## User"
	AssistantHeader   = "## Assistant"
	CompactMarker     = "# --- COMPACT CONTEXT ---"
	FullHistoryMarker = "# --- FULL HISTORY ---"
	SupersededMarker  = "<!-- Previous compact context -->"
)

// breakChar is inserted right after the first character of a marker.
const breakChar = "\u200b"

var escapedMarkers = []string{
	UserHeader,
	AssistantHeader,
	CompactMarker,
	FullHistoryMarker,
	SupersededMarker,
}

var (
	headerPattern    = regexp.MustCompile("^## (User|Assistant) `?\\[([^\\]]+)\\]`?\\s*$")
	tokenInfoPattern = regexp.MustCompile(`^\*(💬 .*tokens.*)\*\s*$`)
)

// Escape neutralizes lines that would be read back as structure.
//
// A line of the form <first char><n break chars><rest of marker> gets one
// more break char. Unescape removes one from lines with n >= 1, so
// Unescape(Escape(s)) == s even when s already contains break chars.
// Text in the middle of a line is never touched.
func Escape(content string) string {
	return mapLines(content, func(line string) string {
		if _, ok := matchMarker(line); ok {
			return line[:1] + breakChar + line[1:]
		}
		return line
	})
}

// Unescape reverses Escape
func Unescape(content string) string {
	return mapLines(content, func(line string) string {
		if n, ok := matchMarker(line); ok && n > 0 {
			return line[:1] + line[1+len(breakChar):]
		}
		return line
	})
}

// matchMarker reports whether line is a marker with n break chars after its
// first character.
func matchMarker(line string) (int, bool) {
	for _, marker := range escapedMarkers {
		if !strings.HasPrefix(line, marker[:1]) {
			continue
		}
		tail := line[1:]
		n := 0
		for strings.HasPrefix(tail, breakChar) {
			tail = tail[len(breakChar):]
			n++
		}
		if strings.HasPrefix(tail, marker[1:]) {
			return n, true
		}
	}
	return 0, false
}

func mapLines(s string, fn func(string) string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = fn(line)
	}
	return strings.Join(lines, "\n")
}

// FormatTurn renders a turn header followed by the escaped content
func FormatTurn(role Role, content, timestamp string) string {
	return fmt.Sprintf("## %s `[%s]`\n\n%s\n", roleLabel(role), timestamp, Escape(content))
}

// FormatTokenUsage renders token and cost accounting for display
func FormatTokenUsage(usage TokenUsage, model string) string {
	modelPart := ""
	if model != "" {
		modelPart = " • 🤖 " + model
	}
	return fmt.Sprintf("💬 %d tokens (%d prompt + %d completion) • 💰 $%.6f%s",
		usage.TotalTokens(), usage.PromptTokens, usage.CompletionTokens, usage.Cost, modelPart)
}

// FormatTokenLine renders the annotation line stored after an assistant turn
func FormatTokenLine(usage TokenUsage, model string) string {
	return "*" + FormatTokenUsage(usage, model) + "*"
}

func roleLabel(role Role) string {
	if role == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// ParseHistory splits serialized history into turns.
//
// Lines are fed through a two-state tokenizer: outside a turn, text is
// ignored; inside a turn, text accumulates until the next header, a
// superseded-context marker, or the end of input. Turns whose content is
// empty are dropped.
func ParseHistory(text string) []Turn {
	var tz historyTokenizer
	if text == "" {
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		tz.feed(line)
	}
	tz.flush()
	return tz.turns
}

// MessageCount returns the number of user turns in a serialized history
func MessageCount(history string) int {
	count := 0
	for _, turn := range ParseHistory(history) {
		if turn.Role == RoleUser {
			count++
		}
	}
	return count
}

type historyTokenizer struct {
	turns   []Turn
	current *Turn
	body    []string
}

func (tz *historyTokenizer) feed(line string) {
	if m := headerPattern.FindStringSubmatch(line); m != nil {
		tz.flush()
		role := RoleUser
		if m[1] == "Assistant" {
			role = RoleAssistant
		}
		tz.current = &Turn{Role: role, Timestamp: m[2]}
		return
	}
	if strings.TrimRight(line, " \t\r") == SupersededMarker {
		tz.flush()
		return
	}
	if tz.current != nil {
		tz.body = append(tz.body, line)
	}
}

func (tz *historyTokenizer) flush() {
	if tz.current == nil {
		return
	}
	turn := *tz.current
	body := trimBlankLines(tz.body)
	tz.current = nil
	tz.body = nil

	if turn.Role == RoleAssistant && len(body) > 0 {
		if m := tokenInfoPattern.FindStringSubmatch(body[len(body)-1]); m != nil {
			turn.TokenInfo = m[1]
			body = trimBlankLines(body[:len(body)-1])
		}
	}

	turn.Content = Unescape(strings.Join(body, "\n"))
	if strings.TrimSpace(turn.Content) == "" {
		return
	}
	tz.turns = append(tz.turns, turn)
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
