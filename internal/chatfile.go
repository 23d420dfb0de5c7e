package internal

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatRecord serializes a record: frontmatter, compact context section,
// full history section, in that order.
func FormatRecord(rec *ChatRecord) (string, error) {
	frontmatter, err := marshalFrontmatter(&rec.Metadata)
	if err != nil {
		return "", &ParseError{Source: "frontmatter", Key: rec.Metadata.ChatID, Err: err}
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(frontmatter)
	b.WriteString("---\n\n")
	b.WriteString(CompactMarker + "\n")
	b.WriteString(Escape(rec.CompactContext))
	b.WriteString("\n\n")
	b.WriteString(FullHistoryMarker + "\n")
	b.WriteString(rec.FullHistory)
	b.WriteString("\n")
	return b.String(), nil
}

// marshalFrontmatter double-quotes values that a plain or block scalar would
// not reproduce exactly, such as a title with a leading newline.
func marshalFrontmatter(meta *ChatMetadata) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(meta); err != nil {
		return nil, err
	}
	for i := 1; i < len(node.Content); i += 2 {
		v := node.Content[i]
		if v.Kind == yaml.ScalarNode && v.Tag == "!!str" && needsQuoting(v.Value) {
			v.Style = yaml.DoubleQuotedStyle
		}
	}
	return yaml.Marshal(&node)
}

func needsQuoting(s string) bool {
	return strings.ContainsAny(s, "\n\r\t") || strings.TrimSpace(s) != s
}

// ParseRecord parses the content of a chat file. key identifies the source
// in error messages.
//
// When either section marker is missing, the whole body is used as both the
// compact context and the full history. Files written by this package
// always carry both markers.
func ParseRecord(content, key string) (*ChatRecord, error) {
	front, body, ok := splitFrontmatter(content)
	if !ok {
		return nil, &ParseError{Source: "frontmatter", Key: key, Err: errors.New("missing frontmatter block")}
	}

	var meta ChatMetadata
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return nil, &ParseError{Source: "frontmatter", Key: key, Err: err}
	}
	if meta.ChatID == "" {
		return nil, &ParseError{Source: "frontmatter", Key: key, Err: errors.New("missing chat_id")}
	}

	rec := &ChatRecord{Metadata: meta}
	compactAt := indexMarkerLine(body, CompactMarker)
	fullAt := indexMarkerLine(body, FullHistoryMarker)
	if compactAt >= 0 && fullAt > compactAt {
		rec.CompactContext = Unescape(strings.TrimSpace(body[compactAt+len(CompactMarker) : fullAt]))
		rec.FullHistory = strings.TrimSpace(body[fullAt+len(FullHistoryMarker):])
	} else {
		LogDebug("Chat file %s has no section markers, using body for both sections", key)
		rec.CompactContext = Unescape(strings.TrimSpace(body))
		rec.FullHistory = strings.TrimSpace(body)
	}
	return rec, nil
}

// splitFrontmatter returns the text between the opening "---" line and the
// next line consisting only of "---", plus everything after it.
func splitFrontmatter(content string) (front, body string, ok bool) {
	nl := strings.IndexByte(content, '\n')
	if nl < 0 || strings.TrimRight(content[:nl], " \r") != "---" {
		return "", "", false
	}
	pos := nl + 1
	for pos <= len(content) {
		end := len(content)
		next := strings.IndexByte(content[pos:], '\n')
		if next >= 0 {
			end = pos + next
		}
		if strings.TrimRight(content[pos:end], " \r") == "---" {
			front = content[nl+1 : pos]
			if end < len(content) {
				body = content[end+1:]
			}
			return front, body, true
		}
		if next < 0 {
			break
		}
		pos = end + 1
	}
	return "", "", false
}

// indexMarkerLine returns the offset of marker when it occupies a whole line.
func indexMarkerLine(body, marker string) int {
	offset := 0
	for offset <= len(body) {
		i := strings.Index(body[offset:], marker)
		if i < 0 {
			return -1
		}
		at := offset + i
		end := at + len(marker)
		startsLine := at == 0 || body[at-1] == '\n'
		endsLine := end == len(body) || body[end] == '\n' || body[end] == '\r'
		if startsLine && endsLine {
			return at
		}
		offset = end
	}
	return -1
}
