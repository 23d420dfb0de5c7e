package internal

import (
	"container/list"
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTitleUpdateInterval  = 300 * time.Second
	DefaultMemoryUpdateInterval = 600 * time.Second
	DefaultMaxTitleCache        = 100
)

// ThrottleConfig controls how often titles and memories are regenerated
type ThrottleConfig struct {
	TitleInterval   time.Duration
	MemoryInterval  time.Duration
	MaxTitleEntries int
	UtilityModel    string // used when a call passes no model
}

// TitleState is the bookkeeping kept for one chat
type TitleState struct {
	ChatID           string
	LastUpdate       time.Time
	LastMessageCount int
}

// ThrottleSnapshot is the persistable part of the throttle.
// Titles are ordered least recently touched first. Removed lists chats
// reset since the last Restore, and MaxTitles is the LRU capacity.
type ThrottleSnapshot struct {
	Titles           []TitleState
	Removed          []string
	MaxTitles        int
	LastMemoryUpdate time.Time
}

// UpdateThrottle decides when titles and memories are due for regeneration
// and keeps at most one regeneration in flight per chat title and one for
// memories. Title bookkeeping is an LRU bounded by MaxTitleEntries.
// It is safe for concurrent use.
type UpdateThrottle struct {
	cfg        ThrottleConfig
	summarizer Summarizer
	memories   *MemoryStore
	now        func() time.Time

	mu             sync.Mutex
	titles         map[string]*list.Element
	lru            *list.List // front is least recently touched
	titlesInFlight map[string]int
	removed        map[string]struct{}

	lastMemoryUpdate time.Time
	memoryInFlight   int
}

// NewUpdateThrottle creates a throttle with empty state. memories may be nil,
// in which case extracted memories are returned but not stored.
func NewUpdateThrottle(cfg ThrottleConfig, summarizer Summarizer, memories *MemoryStore) *UpdateThrottle {
	if cfg.TitleInterval <= 0 {
		cfg.TitleInterval = DefaultTitleUpdateInterval
	}
	if cfg.MemoryInterval <= 0 {
		cfg.MemoryInterval = DefaultMemoryUpdateInterval
	}
	if cfg.MaxTitleEntries <= 0 {
		cfg.MaxTitleEntries = DefaultMaxTitleCache
	}
	if cfg.UtilityModel == "" {
		cfg.UtilityModel = DefaultUtilityModel
	}
	return &UpdateThrottle{
		cfg:            cfg,
		summarizer:     summarizer,
		memories:       memories,
		now:            time.Now,
		titles:         make(map[string]*list.Element),
		lru:            list.New(),
		titlesInFlight: make(map[string]int),
		removed:        make(map[string]struct{}),
	}
}

// ShouldUpdateTitle reports whether a chat's title is due.
// The first exchange always is; otherwise there must be new messages since
// the last update and the title interval must have elapsed.
func (t *UpdateThrottle) ShouldUpdateTitle(chatID string, messageCount int, force bool) bool {
	if force || messageCount == 1 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var state TitleState
	if el, ok := t.titles[chatID]; ok {
		state = *el.Value.(*TitleState)
	}
	if messageCount == state.LastMessageCount {
		return false
	}
	if !state.LastUpdate.IsZero() && t.now().Sub(state.LastUpdate) < t.cfg.TitleInterval {
		return false
	}
	return true
}

// UpdateTitle generates a new title. It returns "" without calling the
// summarizer when another update for the same chat is in flight, unless
// force is set. Bookkeeping is only updated on success; the in-flight mark
// is always released.
func (t *UpdateThrottle) UpdateTitle(ctx context.Context, chatID, conversation string, messageCount int, model string, force bool) (string, error) {
	t.mu.Lock()
	if t.titlesInFlight[chatID] > 0 && !force {
		t.mu.Unlock()
		LogDebug("Title update for %s already in flight", chatID)
		return "", nil
	}
	t.titlesInFlight[chatID]++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.titlesInFlight[chatID] <= 1 {
			delete(t.titlesInFlight, chatID)
		} else {
			t.titlesInFlight[chatID]--
		}
		t.mu.Unlock()
	}()

	title, err := GenerateTitle(ctx, t.summarizer, conversation, t.model(model))
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.touchLocked(TitleState{ChatID: chatID, LastUpdate: t.now(), LastMessageCount: messageCount})
	t.mu.Unlock()
	return title, nil
}

// Reset forgets a chat's title bookkeeping
func (t *UpdateThrottle) Reset(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.titles[chatID]; ok {
		t.lru.Remove(el)
		delete(t.titles, chatID)
	}
	t.removed[chatID] = struct{}{}
}

// TitleInFlight reports whether a title update is running for chatID
func (t *UpdateThrottle) TitleInFlight(chatID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.titlesInFlight[chatID] > 0
}

// TrackedTitles returns how many chats have title bookkeeping
func (t *UpdateThrottle) TrackedTitles() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}

// ShouldUpdateMemories reports whether the memories file is due
func (t *UpdateThrottle) ShouldUpdateMemories(force bool) bool {
	if force {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.memoryInFlight > 0 {
		return false
	}
	if t.lastMemoryUpdate.IsZero() {
		return true
	}
	return t.now().Sub(t.lastMemoryUpdate) >= t.cfg.MemoryInterval
}

// UpdateMemories extracts new memories and appends them to the memory store.
// Same single-flight rules as UpdateTitle, with one global flag.
func (t *UpdateThrottle) UpdateMemories(ctx context.Context, conversation, existing, model string, force bool) (string, error) {
	t.mu.Lock()
	if t.memoryInFlight > 0 && !force {
		t.mu.Unlock()
		LogDebug("Memory update already in flight")
		return "", nil
	}
	t.memoryInFlight++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.memoryInFlight--
		t.mu.Unlock()
	}()

	extracted, err := ExtractMemories(ctx, t.summarizer, conversation, existing, t.model(model))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(extracted) != "" && t.memories != nil {
		if err := t.memories.Append(extracted, t.now()); err != nil {
			return "", err
		}
	}

	t.mu.Lock()
	t.lastMemoryUpdate = t.now()
	t.mu.Unlock()
	return extracted, nil
}

// Snapshot copies the bookkeeping; in-flight marks are not included
func (t *UpdateThrottle) Snapshot() ThrottleSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := ThrottleSnapshot{MaxTitles: t.cfg.MaxTitleEntries, LastMemoryUpdate: t.lastMemoryUpdate}
	for el := t.lru.Front(); el != nil; el = el.Next() {
		snap.Titles = append(snap.Titles, *el.Value.(*TitleState))
	}
	for id := range t.removed {
		snap.Removed = append(snap.Removed, id)
	}
	sort.Strings(snap.Removed)
	return snap
}

// Restore replaces the bookkeeping with snap, keeping its LRU order and
// evicting beyond capacity. In-flight marks are left alone.
func (t *UpdateThrottle) Restore(snap ThrottleSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.titles = make(map[string]*list.Element)
	t.removed = make(map[string]struct{})
	t.lru.Init()
	for _, state := range snap.Titles {
		t.touchLocked(state)
	}
	t.lastMemoryUpdate = snap.LastMemoryUpdate
}

// touchLocked records state as most recently used and evicts the least
// recently used entries beyond capacity.
func (t *UpdateThrottle) touchLocked(state TitleState) {
	delete(t.removed, state.ChatID)
	if el, ok := t.titles[state.ChatID]; ok {
		*el.Value.(*TitleState) = state
		t.lru.MoveToBack(el)
	} else {
		s := state
		t.titles[state.ChatID] = t.lru.PushBack(&s)
	}
	for t.lru.Len() > t.cfg.MaxTitleEntries {
		oldest := t.lru.Front()
		t.lru.Remove(oldest)
		delete(t.titles, oldest.Value.(*TitleState).ChatID)
	}
}

func (t *UpdateThrottle) model(model string) string {
	if model != "" {
		return model
	}
	return t.cfg.UtilityModel
}
