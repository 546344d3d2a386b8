package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-voicechat/pkg/snapshot"
)

// SnapshotKey is the well-known key the conversation list is stored under.
const SnapshotKey = "chats"

const snapshotVersion = 1

// storeData is the JSON structure of the snapshot.
type storeData struct {
	Version       int            `json:"version"`
	UpdatedAt     string         `json:"updated_at"`
	Conversations []Conversation `json:"conversations"`
}

// Store is the ordered conversation list with an active selection.
// Every mutation persists the full snapshot before returning.
type Store struct {
	storage snapshot.Storage
	key     string
	logger  *slog.Logger

	mu       sync.RWMutex
	convs    []*Conversation
	index    map[string]int
	activeID string

	now   func() time.Time
	newID func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSnapshotKey overrides SnapshotKey.
func WithSnapshotKey(key string) StoreOption {
	return func(s *Store) { s.key = key }
}

// WithStoreLogger sets the structured logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator replaces uuid generation, for deterministic tests.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// NewStore loads the snapshot from storage. A missing or corrupt snapshot
// yields an empty store; the problem is logged, not returned.
func NewStore(ctx context.Context, storage snapshot.Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		key:     SnapshotKey,
		logger:  slog.Default(),
		index:   make(map[string]int),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "chat.store")

	if err := s.load(ctx); err != nil {
		s.logger.Warn("starting with empty conversation list", "error", err)
	}
	return s
}

func (s *Store) load(ctx context.Context) error {
	data, err := s.storage.Load(ctx, s.key)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	convs, err := decodeSnapshot(data)
	if err != nil {
		return &PersistenceError{Op: "decode", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range convs {
		if c.ID == "" {
			continue
		}
		if _, dup := s.index[c.ID]; dup {
			continue
		}
		c := c.Clone()
		if c.Title == "" {
			c.Title = DefaultTitle
		}
		s.index[c.ID] = len(s.convs)
		s.convs = append(s.convs, &c)
	}
	if len(s.convs) > 0 {
		s.activeID = s.convs[0].ID
	}
	s.logger.Debug("snapshot loaded", "conversations", len(s.convs), "backend", s.storage.Name())
	return nil
}

// decodeSnapshot accepts the versioned envelope and a bare array of conversations.
func decodeSnapshot(data []byte) ([]Conversation, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var convs []Conversation
		if err := json.Unmarshal(data, &convs); err != nil {
			return nil, err
		}
		return convs, nil
	}
	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return stored.Conversations, nil
}

// persist writes the snapshot. Caller holds s.mu.
func (s *Store) persist(ctx context.Context) error {
	convs := make([]Conversation, len(s.convs))
	for i, c := range s.convs {
		convs[i] = *c
	}
	data, err := json.MarshalIndent(storeData{
		Version:       snapshotVersion,
		UpdatedAt:     s.now().Format(time.RFC3339),
		Conversations: convs,
	}, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.logger.Warn("snapshot save failed", "error", err)
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.convs))
	for i, c := range s.convs {
		s.index[c.ID] = i
	}
}

// List returns copies of all conversations in order.
func (s *Store) List() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// Get returns a copy of the conversation with id.
func (s *Store) Get(id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return s.convs[i].Clone(), nil
}

// Create appends a new empty conversation and makes it active.
// The returned conversation is valid even when the error is a PersistenceError.
func (s *Store) Create(ctx context.Context) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Conversation{
		ID:        s.newID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: s.now().UTC(),
	}
	s.index[c.ID] = len(s.convs)
	s.convs = append(s.convs, c)
	s.activeID = c.ID

	return c.Clone(), s.persist(ctx)
}

// Delete removes a conversation. Deleting the active one selects the first
// remaining conversation, or none.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	s.convs = append(s.convs[:i], s.convs[i+1:]...)
	s.reindex()

	if s.activeID == id {
		s.activeID = ""
		if len(s.convs) > 0 {
			s.activeID = s.convs[0].ID
		}
	}
	return s.persist(ctx)
}

// Select makes id the active conversation.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return ErrNotFound
	}
	s.activeID = id
	return nil
}

// ActiveID returns the active conversation id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active conversation.
func (s *Store) Active() (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[s.activeID]
	if !ok {
		return Conversation{}, false
	}
	return s.convs[i].Clone(), true
}

// Append adds messages to the end of a conversation.
func (s *Store) Append(ctx context.Context, id string, msgs ...Message) (Conversation, error) {
	return s.update(ctx, id, func(c *Conversation) {
		c.Messages = append(c.Messages, msgs...)
	})
}

// Rename sets a conversation title.
func (s *Store) Rename(ctx context.Context, id, title string) (Conversation, error) {
	return s.update(ctx, id, func(c *Conversation) {
		c.Title = title
	})
}

func (s *Store) update(ctx context.Context, id string, fn func(*Conversation)) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	next := s.convs[i].Clone()
	fn(&next)
	s.convs[i] = &next

	return next.Clone(), s.persist(ctx)
}

// TitleLength is how many characters of the first user message become the title.
const TitleLength = 30

// commitExchange appends a user message and its reply in one snapshot write.
// A default-titled conversation receiving its first message is retitled.
func (s *Store) commitExchange(ctx context.Context, id string, user, reply Message) (Conversation, error) {
	return s.update(ctx, id, func(c *Conversation) {
		first := len(c.Messages) == 0
		c.Messages = append(c.Messages, user, reply)
		if first && c.Title == DefaultTitle {
			c.Title = Preview(user.Content, TitleLength)
		}
	})
}
