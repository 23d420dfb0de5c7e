package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/prattle/internal"
)

// JSONLExporter exports chats in JSONL format (one turn per line)
type JSONLExporter struct{}

// Export exports a chat to JSONL format
func (e *JSONLExporter) Export(rec *internal.ChatRecord, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, turn := range rec.Turns() {
		obj := map[string]interface{}{
			"chat_id": rec.Metadata.ChatID,
			"role":    turn.Role,
			"content": turn.Content,
		}
		if turn.Timestamp != "" {
			obj["timestamp"] = turn.Timestamp
		}
		if turn.TokenInfo != "" {
			obj["token_info"] = turn.TokenInfo
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
