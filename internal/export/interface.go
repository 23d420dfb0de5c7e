package export

import (
	"fmt"
	"io"

	"github.com/iksnae/prattle/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(rec *internal.ChatRecord, w io.Writer) error
	Extension() string
}

// Document is the structured form of a chat written by the json and yaml exporters
type Document struct {
	internal.ChatMetadata `yaml:",inline"`
	CompactContext        string          `json:"compact_context,omitempty" yaml:"compact_context,omitempty"`
	Turns                 []internal.Turn `json:"turns" yaml:"turns"`
}

// NewDocument parses rec's history into a Document
func NewDocument(rec *internal.ChatRecord) Document {
	turns := rec.Turns()
	if turns == nil {
		turns = []internal.Turn{}
	}
	return Document{
		ChatMetadata:   rec.Metadata,
		CompactContext: rec.CompactContext,
		Turns:          turns,
	}
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}
