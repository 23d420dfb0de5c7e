package internal

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Providers understood by the llm package
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Interval bounds in seconds
const (
	minUpdateInterval       = 60
	maxTitleUpdateInterval  = 3600
	maxMemoryUpdateInterval = 7200
	maxMemoryEntriesLimit   = 100
)

// Settings is the user configuration read from settings.yaml.
// Intervals are in seconds.
type Settings struct {
	DefaultModel         string `yaml:"default_model"`
	UtilityModel         string `yaml:"utility_model"`
	Provider             string `yaml:"provider"`
	APIKey               string `yaml:"api_key,omitempty"`
	TitleUpdateInterval  int    `yaml:"title_update_interval"`
	MemoryUpdateInterval int    `yaml:"memory_update_interval"`
	MaxMemoryEntries     int    `yaml:"max_memory_entries"`
	MaxTitleCache        int    `yaml:"max_title_cache"`
	UserName             string `yaml:"user_name"`
	AssistantName        string `yaml:"assistant_name"`
}

// DefaultSettings returns the settings used when no file exists
func DefaultSettings() Settings {
	return Settings{
		DefaultModel:         DefaultChatModel,
		UtilityModel:         DefaultUtilityModel,
		Provider:             ProviderOpenRouter,
		TitleUpdateInterval:  int(DefaultTitleUpdateInterval / time.Second),
		MemoryUpdateInterval: int(DefaultMemoryUpdateInterval / time.Second),
		MaxMemoryEntries:     DefaultMaxMemoryEntries,
		MaxTitleCache:        DefaultMaxTitleCache,
		UserName:             "You",
		AssistantName:        "Assistant",
	}
}

// LoadSettings reads path over the defaults. A missing file is not an error.
// The result is normalized and the API key falls back to the environment.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		LogDebug("No settings file at %s, using defaults", path)
	case err != nil:
		return s, &StorageError{Path: path, Op: "read", Err: err}
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, &ParseError{Source: "settings", Key: path, Err: err}
		}
	}
	s.Normalize()
	if s.APIKey == "" {
		s.APIKey = APIKeyFromEnv(s.Provider)
	}
	return s, nil
}

// Normalize fills empty fields with defaults and clamps numeric fields
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.DefaultModel == "" {
		s.DefaultModel = def.DefaultModel
	}
	if s.UtilityModel == "" {
		s.UtilityModel = def.UtilityModel
	}
	if s.Provider == "" {
		s.Provider = def.Provider
	}
	if s.UserName == "" {
		s.UserName = def.UserName
	}
	if s.AssistantName == "" {
		s.AssistantName = def.AssistantName
	}
	s.TitleUpdateInterval = clamp(s.TitleUpdateInterval, minUpdateInterval, maxTitleUpdateInterval)
	s.MemoryUpdateInterval = clamp(s.MemoryUpdateInterval, minUpdateInterval, maxMemoryUpdateInterval)
	s.MaxMemoryEntries = clamp(s.MaxMemoryEntries, 1, maxMemoryEntriesLimit)
	if s.MaxTitleCache < 1 {
		s.MaxTitleCache = 1
	}
}

// ThrottleConfig converts the settings into throttle configuration
func (s Settings) ThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		TitleInterval:   time.Duration(s.TitleUpdateInterval) * time.Second,
		MemoryInterval:  time.Duration(s.MemoryUpdateInterval) * time.Second,
		MaxTitleEntries: s.MaxTitleCache,
		UtilityModel:    s.UtilityModel,
	}
}

// WriteDefaultSettings writes the default settings to path unless it exists.
// It reports whether a file was written.
func WriteDefaultSettings(path string) (bool, error) {
	if fileExists(path) {
		return false, nil
	}
	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return false, &ParseError{Source: "settings", Key: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, &StorageError{Path: path, Op: "create", Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, &StorageError{Path: path, Op: "write", Err: err}
	}
	return true, nil
}

// APIKeyEnvVar names the environment variable holding provider's credential
func APIKeyEnvVar(provider string) string {
	if provider == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENROUTER_API_KEY"
}

// APIKeyFromEnv returns the credential for provider from the environment
func APIKeyFromEnv(provider string) string {
	return os.Getenv(APIKeyEnvVar(provider))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
