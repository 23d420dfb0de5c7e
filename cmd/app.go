package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/prattle/internal"
	"github.com/iksnae/prattle/internal/llm"
)

// newSummarizer builds the completion client for the configured provider
var newSummarizer = llm.New

// app is the state shared by the commands of one invocation
type app struct {
	paths    internal.DataPaths
	settings internal.Settings
	store    *internal.ChatStore
	memories *internal.MemoryStore
	state    *internal.StateDB

	summarizer internal.StreamingSummarizer
	throttle   *internal.UpdateThrottle
}

// openApp resolves the data directory, loads settings and opens the stores
func openApp() (*app, error) {
	paths, err := internal.DetectDataPaths(homeDir)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	settings, err := internal.LoadSettings(settingsFile(paths))
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	store, err := internal.NewChatStore(paths.ChatsDir)
	if err != nil {
		return nil, err
	}

	state, err := internal.OpenStateDB(paths.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	return &app{
		paths:    paths,
		settings: settings,
		store:    store,
		memories: internal.NewMemoryStore(paths.MemoriesFile),
		state:    state,
	}, nil
}

func settingsFile(paths internal.DataPaths) string {
	if configPath != "" {
		return configPath
	}
	return paths.SettingsFile
}

// client returns the completion client, creating it on first use
func (a *app) client() (internal.StreamingSummarizer, error) {
	if a.summarizer == nil {
		s, err := newSummarizer(a.settings)
		if err != nil {
			return nil, err
		}
		a.summarizer = s
	}
	return a.summarizer, nil
}

// updates returns the throttle restored from the state database. s may be
// nil when only the bookkeeping is touched.
func (a *app) updates(s internal.Summarizer) *internal.UpdateThrottle {
	if a.throttle == nil {
		a.throttle = internal.NewUpdateThrottle(a.settings.ThrottleConfig(), s, a.memories)
		a.state.LoadThrottleInto(a.throttle)
	}
	return a.throttle
}

// resolveChatID accepts a full chat id or an unambiguous prefix of one
func (a *app) resolveChatID(arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("empty chat id")
	}
	chats, err := a.store.List(internal.ListOptions{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, c := range chats {
		if c.ChatID == arg {
			return arg, nil
		}
		if strings.HasPrefix(c.ChatID, arg) {
			matches = append(matches, c.ChatID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", arg, internal.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("chat id prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}

// close persists throttle bookkeeping and closes the state database
func (a *app) close() {
	if a.throttle != nil {
		if err := a.state.SaveThrottle(a.throttle.Snapshot()); err != nil {
			internal.LogWarn("Failed to save throttle state: %v", err)
		}
	}
	if err := a.state.Close(); err != nil {
		internal.LogWarn("Failed to close state database: %v", err)
	}
}
