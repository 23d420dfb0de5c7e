package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/prattle/internal"
)

// JSONExporter exports chats in JSON format (pretty-printed)
type JSONExporter struct{}

// Export exports a chat to JSON format
func (e *JSONExporter) Export(rec *internal.ChatRecord, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(NewDocument(rec))
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
