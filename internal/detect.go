package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the default data directory
const HomeEnvVar = "PRATTLE_HOME"

// DataPaths holds the locations of everything prattle persists
type DataPaths struct {
	Home         string // data directory
	ChatsDir     string // one markdown file per chat, folders as subdirectories
	ContextDir   string // shared context files
	MemoriesFile string // append-only memories
	PromptFile   string // optional system prompt
	StateDB      string // sqlite state: throttle bookkeeping and chat index
	SettingsFile string // default settings location
}

// DefaultHome returns $PRATTLE_HOME, or ~/.prattle when it is unset
func DefaultHome() (string, error) {
	if env := os.Getenv(HomeEnvVar); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".prattle"), nil
}

// DetectDataPaths lays out the data directory rooted at home.
// An empty home uses DefaultHome.
func DetectDataPaths(home string) (DataPaths, error) {
	if home == "" {
		var err error
		home, err = DefaultHome()
		if err != nil {
			return DataPaths{}, err
		}
	}
	contextDir := filepath.Join(home, "context")
	return DataPaths{
		Home:         home,
		ChatsDir:     filepath.Join(home, "chats"),
		ContextDir:   contextDir,
		MemoriesFile: filepath.Join(contextDir, "memories.md"),
		PromptFile:   filepath.Join(contextDir, "prompt.md"),
		StateDB:      filepath.Join(home, "state.db"),
		SettingsFile: filepath.Join(home, "settings.yaml"),
	}, nil
}

// EnsureDirs creates the data directories
func (p DataPaths) EnsureDirs() error {
	for _, dir := range []string{p.Home, p.ChatsDir, p.ContextDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &StorageError{Path: dir, Op: "create", Err: err}
		}
	}
	return nil
}

// SystemPrompt returns the content of the prompt file, or "" when absent
func (p DataPaths) SystemPrompt() (string, error) {
	data, err := os.ReadFile(p.PromptFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &StorageError{Path: p.PromptFile, Op: "read", Err: err}
	}
	return string(data), nil
}

// StateDBExists checks if the state database has been created
func (p DataPaths) StateDBExists() bool {
	_, err := os.Stat(p.StateDB)
	return err == nil
}
