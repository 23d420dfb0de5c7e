package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/prattle/internal"
)

// MarkdownExporter exports chats as a readable Markdown transcript.
// Unlike the chat file itself it carries no frontmatter and cannot be read back.
type MarkdownExporter struct{}

// Export exports a chat to Markdown format
func (e *MarkdownExporter) Export(rec *internal.ChatRecord, w io.Writer) error {
	turns := rec.Turns()
	meta := rec.Metadata

	title := meta.Title
	if title == "" {
		title = meta.ChatID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Chat:** %s  \n", meta.ChatID)
	if meta.Model != "" {
		_, _ = fmt.Fprintf(w, "**Model:** %s  \n", meta.Model)
	}
	if meta.Folder != "" {
		_, _ = fmt.Fprintf(w, "**Folder:** %s  \n", meta.Folder)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(turns))

	if rec.CompactContext != "" {
		_, _ = fmt.Fprintf(w, "## Summary\n\n%s\n\n", rec.CompactContext)
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, turn := range turns {
		timestamp := ""
		if turn.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", turn.Timestamp)
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", turn.Role, timestamp, escapeMarkdown(turn.Content))
		if turn.TokenInfo != "" {
			_, _ = fmt.Fprintf(w, "*%s*\n\n", turn.TokenInfo)
		}

		if i < len(turns)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes bold markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
