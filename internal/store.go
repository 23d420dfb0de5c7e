package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatFileExt is the extension of chat files
const ChatFileExt = ".md"

// ChatStore manages one markdown file per conversation under a base directory.
// Files live at <base>/<chat_id>.md or <base>/<folder>/<chat_id>.md.
//
// The store performs no ordering between concurrent saves of the same chat;
// callers serialize writes per conversation.
type ChatStore struct {
	basePath string
	now      func() time.Time
	newID    func() string
}

// ListOptions selects which chats List returns.
// The zero value lists every chat recursively.
type ListOptions struct {
	Folder       string // restrict to this folder subtree
	TopLevelOnly bool   // only chats outside any folder
}

// NewChatStore creates the base directory if needed
func NewChatStore(basePath string) (*ChatStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, &StorageError{Path: basePath, Op: "create", Err: err}
	}
	return &ChatStore{
		basePath: basePath,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// BasePath returns the chats directory
func (s *ChatStore) BasePath() string {
	return s.basePath
}

// Create writes a new chat with empty history and returns its id
func (s *ChatStore) Create(title, model, folder string) (string, error) {
	dir, err := s.folderDir(folder)
	if err != nil {
		return "", err
	}
	chatID := s.newID()
	path := filepath.Join(dir, chatID+ChatFileExt)

	now := FormatTimestamp(s.now())
	rec := &ChatRecord{
		Metadata: ChatMetadata{
			ChatID:   chatID,
			Title:    title,
			Created:  now,
			Modified: now,
			Model:    model,
			Folder:   folder,
		},
	}
	if err := s.write(path, rec); err != nil {
		return "", err
	}
	LogDebug("Created chat %s at %s", chatID, path)
	return chatID, nil
}

// Load reads a chat. When it is not at the location implied by folder, every
// folder is scanned for it. Returns ErrNotFound when the scan fails or when
// the frontmatter cannot be parsed.
func (s *ChatStore) Load(chatID, folder string) (*ChatRecord, error) {
	path, err := s.pathFor(chatID, folder)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		found, ok := s.findChatFile(chatID)
		if !ok {
			return nil, fmt.Errorf("load %s: %w", chatID, ErrNotFound)
		}
		path = found
	}

	rec, err := s.ReadFile(path)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			LogWarn("Failed to parse chat file %s: %v", path, err)
			return nil, fmt.Errorf("load %s: %v: %w", chatID, err, ErrNotFound)
		}
		return nil, err
	}
	return rec, nil
}

// ReadFile reads and parses the chat file at path
func (s *ChatStore) ReadFile(path string) (*ChatRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	rec, err := ParseRecord(string(data), path)
	if err != nil {
		return nil, err
	}
	rec.Path = path
	return rec, nil
}

// Save stamps the modification time and writes the record to the location
// implied by its folder. A file found elsewhere is moved there first, then
// overwritten.
func (s *ChatStore) Save(rec *ChatRecord) (string, error) {
	chatID := rec.Metadata.ChatID
	target, err := s.pathFor(chatID, rec.Metadata.Folder)
	if err != nil {
		return "", err
	}
	rec.Metadata.Modified = FormatTimestamp(s.now())

	old := rec.Path
	if old == "" || !fileExists(old) {
		old, _ = s.findChatFile(chatID)
	}
	if old != "" && old != target {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", &StorageError{Path: target, Op: "move", Err: err}
		}
		if err := os.Rename(old, target); err != nil {
			return "", &StorageError{Path: old, Op: "move", Err: err}
		}
		LogDebug("Moved chat %s from %s to %s", chatID, old, target)
	}

	if err := s.write(target, rec); err != nil {
		return "", err
	}
	rec.Path = target
	return target, nil
}

// PatchMetadata changes only the named metadata fields
func (s *ChatStore) PatchMetadata(chatID string, patch MetadataPatch) error {
	rec, err := s.Load(chatID, "")
	if err != nil {
		return err
	}
	patch.apply(&rec.Metadata)
	_, err = s.Save(rec)
	return err
}

// Move relocates a chat into folder ("" for top-level)
func (s *ChatStore) Move(chatID, folder string) error {
	if _, err := s.pathFor(chatID, folder); err != nil {
		return err
	}
	return s.PatchMetadata(chatID, MetadataPatch{Folder: &folder})
}

// Delete removes a chat file permanently
func (s *ChatStore) Delete(chatID string) error {
	path, ok := s.findChatFile(chatID)
	if !ok {
		return fmt.Errorf("delete %s: %w", chatID, ErrNotFound)
	}
	if err := os.Remove(path); err != nil {
		return &StorageError{Path: path, Op: "delete", Err: err}
	}
	LogInfo("Deleted chat %s", chatID)
	return nil
}

// Clear empties the compact context and history but keeps the metadata
func (s *ChatStore) Clear(chatID string) error {
	rec, err := s.Load(chatID, "")
	if err != nil {
		return err
	}
	rec.CompactContext = ""
	rec.FullHistory = ""
	_, err = s.Save(rec)
	return err
}

// Branch copies a chat into a new one and returns the new id
func (s *ChatStore) Branch(chatID string) (string, error) {
	rec, err := s.Load(chatID, "")
	if err != nil {
		return "", err
	}
	newID, err := s.Create(rec.Metadata.Title+" (branch)", rec.Metadata.Model, rec.Metadata.Folder)
	if err != nil {
		return "", err
	}
	branch, err := s.Load(newID, rec.Metadata.Folder)
	if err != nil {
		return "", err
	}
	branch.CompactContext = rec.CompactContext
	branch.FullHistory = rec.FullHistory
	if _, err := s.Save(branch); err != nil {
		return "", err
	}
	return newID, nil
}

// AppendExchange adds a user turn and an assistant turn to the history,
// followed by the token annotation line when usage is known.
func (s *ChatStore) AppendExchange(chatID string, ex Exchange) error {
	rec, err := s.Load(chatID, "")
	if err != nil {
		return err
	}
	at := ex.At
	if at.IsZero() {
		at = s.now()
	}
	ts := at.UTC().Format(TurnTimestampLayout)

	var b strings.Builder
	if strings.TrimSpace(rec.FullHistory) != "" {
		b.WriteString(rec.FullHistory)
		b.WriteString("\n\n")
	}
	b.WriteString(FormatTurn(RoleUser, ex.User, ts))
	b.WriteString("\n")
	b.WriteString(FormatTurn(RoleAssistant, ex.Assistant, ts))
	if ex.Usage != nil {
		b.WriteString("\n")
		b.WriteString(FormatTokenLine(*ex.Usage, ex.Model))
		b.WriteString("\n")
	}
	rec.FullHistory = b.String()

	_, err = s.Save(rec)
	return err
}

// List returns chat metadata, most recently modified first. Files that fail
// to parse are logged and skipped.
func (s *ChatStore) List(opts ListOptions) ([]ChatMetadata, error) {
	paths, err := s.ChatFiles(opts)
	if err != nil {
		return nil, err
	}

	chats := make([]ChatMetadata, 0, len(paths))
	for _, path := range paths {
		rec, err := s.ReadFile(path)
		if err != nil {
			LogWarn("Skipping chat file %s: %v", path, err)
			continue
		}
		chats = append(chats, rec.Metadata)
	}
	SortByModified(chats)
	return chats, nil
}

// SortByModified orders chats most recently modified first
func SortByModified(chats []ChatMetadata) {
	sort.SliceStable(chats, func(i, j int) bool {
		ti, tj := chats[i].ModifiedAt(), chats[j].ModifiedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return chats[i].Modified > chats[j].Modified
	})
}

// ChatFiles returns the paths of the chat files selected by opts
func (s *ChatStore) ChatFiles(opts ListOptions) ([]string, error) {
	if opts.TopLevelOnly {
		entries, err := os.ReadDir(s.basePath)
		if err != nil {
			return nil, &StorageError{Path: s.basePath, Op: "read", Err: err}
		}
		var paths []string
		for _, entry := range entries {
			if !entry.IsDir() && isChatFile(entry.Name()) {
				paths = append(paths, filepath.Join(s.basePath, entry.Name()))
			}
		}
		return paths, nil
	}

	root := s.basePath
	if opts.Folder != "" {
		dir, err := s.folderDir(opts.Folder)
		if err != nil {
			return nil, err
		}
		root = dir
	}
	if !fileExists(root) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			LogWarn("Skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isChatFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Path: root, Op: "read", Err: err}
	}
	return paths, nil
}

// findChatFile locates <chatID>.md anywhere under the base directory
func (s *ChatStore) findChatFile(chatID string) (string, bool) {
	if chatID == "" {
		return "", false
	}
	name := chatID + ChatFileExt
	var found string
	_ = filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

func (s *ChatStore) pathFor(chatID, folder string) (string, error) {
	dir, err := s.folderDir(folder)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, chatID+ChatFileExt), nil
}

func (s *ChatStore) folderDir(folder string) (string, error) {
	if folder == "" {
		return s.basePath, nil
	}
	clean := filepath.Clean(folder)
	if filepath.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", folder, ErrInvalidFolder)
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *ChatStore) write(path string, rec *ChatRecord) error {
	content, err := FormatRecord(rec)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	rec.Path = path
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".chat-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func isChatFile(name string) bool {
	return strings.HasSuffix(name, ChatFileExt) && !strings.HasPrefix(name, ".")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
