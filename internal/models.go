package internal

import (
	"time"
)

// TimestampLayout is the layout of the created/modified frontmatter fields.
// The fixed fraction width keeps lexical and chronological order aligned.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// TurnTimestampLayout is the layout used inside turn headers.
const TurnTimestampLayout = "2006-01-02 15:04:05 UTC"

// Role identifies the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMetadata is the frontmatter block of a chat file
type ChatMetadata struct {
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	Title    string `json:"title" yaml:"title"`
	Created  string `json:"created" yaml:"created"`
	Modified string `json:"modified" yaml:"modified"`
	Model    string `json:"model" yaml:"model"`
	Folder   string `json:"folder" yaml:"folder"` // empty means top-level
}

// CreatedAt returns the parsed creation time
func (m ChatMetadata) CreatedAt() time.Time {
	return parseTimestamp(m.Created)
}

// ModifiedAt returns the parsed modification time
func (m ChatMetadata) ModifiedAt() time.Time {
	return parseTimestamp(m.Modified)
}

// MetadataPatch names the metadata fields to change; nil fields are left alone.
type MetadataPatch struct {
	Title  *string
	Model  *string
	Folder *string
}

func (p MetadataPatch) apply(m *ChatMetadata) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Model != nil {
		m.Model = *p.Model
	}
	if p.Folder != nil {
		m.Folder = *p.Folder
	}
}

// ChatRecord is one persisted conversation.
// FullHistory holds the serialized turn sequence with contents already escaped.
type ChatRecord struct {
	Metadata       ChatMetadata
	CompactContext string
	FullHistory    string

	// Path is the file the record was read from or last written to.
	Path string
}

// Turns parses the full history into typed turns
func (r *ChatRecord) Turns() []Turn {
	return ParseHistory(r.FullHistory)
}

// Turn is one role-tagged message within a conversation's history
type Turn struct {
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	TokenInfo string `json:"token_info,omitempty" yaml:"token_info,omitempty"`
}

// TokenUsage carries token and cost accounting for one completion
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// TotalTokens returns prompt plus completion tokens
func (u TokenUsage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// ChatMessage is a role-tagged message sent to the completion service
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange is a completed user/assistant round trip ready to be appended
type Exchange struct {
	User      string
	Assistant string
	Usage     *TokenUsage
	Model     string
	At        time.Time
}

// FormatTimestamp renders t in the frontmatter layout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// parseTimestamp parses a frontmatter timestamp, returning the zero time on failure
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
