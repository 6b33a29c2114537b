package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// Versioned keys of the persisted collections.
const (
	KeyAssignments   = "pedagosys_assignments_v12_class_filtered"
	KeyGrades        = "pedagosys_grades_v4"
	KeyAnnouncements = "pedagosys_announcements"
	KeyLibraryPosts  = "pedagosys_library_posts_v5"
	KeyUsers         = "pedagosys_users"
	KeyClassSessions = "pedagosys_online_classes_v1"
	KeyAILastRunDate = "pedagosys_ai_last_run_date_v12"
)

// DefaultMaxPayloadBytes bounds a single persisted collection.
const DefaultMaxPayloadBytes = 5 * 1024 * 1024

// Backend is a durable key/value store of raw payloads.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Identifiable records can be merged by id.
type Identifiable interface {
	RecordID() string
}

// RecordStore persists JSON encoded collections on a Backend.
type RecordStore struct {
	backend    Backend
	maxPayload int
	logger     *zap.Logger

	mu            sync.RWMutex
	onSaveFailure func(key string)
}

// NewRecordStore wraps backend. A non-positive maxPayload applies the default.
func NewRecordStore(backend Backend, maxPayload int, logger *zap.Logger) *RecordStore {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{backend: backend, maxPayload: maxPayload, logger: logger}
}

// OnSaveFailure registers a hook invoked with the key of every failed save.
func (s *RecordStore) OnSaveFailure(fn func(key string)) {
	s.mu.Lock()
	s.onSaveFailure = fn
	s.mu.Unlock()
}

// Close releases the backend.
func (s *RecordStore) Close() error {
	return s.backend.Close()
}

func (s *RecordStore) saveFailed(key string) {
	s.mu.RLock()
	fn := s.onSaveFailure
	s.mu.RUnlock()
	if fn != nil {
		fn(key)
	}
}

// Load reads the collection stored under key. Absent, unreadable and corrupt
// payloads all yield an empty slice.
func Load[T any](ctx context.Context, store *RecordStore, key string) []T {
	raw, ok, err := store.backend.Get(ctx, key)
	if err != nil {
		store.logger.Warn("record collection unreadable", zap.String("key", key), zap.Error(err))
		return []T{}
	}
	if !ok || len(raw) == 0 {
		store.logger.Debug("record collection absent", zap.String("key", key))
		return []T{}
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		store.logger.Warn("record collection corrupt", zap.String("key", key), zap.Int("bytes", len(raw)), zap.Error(err))
		return []T{}
	}
	if records == nil {
		return []T{}
	}
	return records
}

// Save writes records under key.
func Save[T any](ctx context.Context, store *RecordStore, key string, records []T) error {
	if records == nil {
		records = []T{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		store.saveFailed(key)
		return appErrors.Wrap(fmt.Errorf("marshal %s: %w", key, err), appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	return store.put(ctx, key, payload)
}

// LoadValue reads a scalar setting stored under key.
func LoadValue[T any](ctx context.Context, store *RecordStore, key string) (T, bool) {
	var value T
	raw, ok, err := store.backend.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			store.logger.Warn("setting unreadable", zap.String("key", key), zap.Error(err))
		}
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		store.logger.Warn("setting corrupt", zap.String("key", key), zap.Error(err))
		return value, false
	}
	return value, true
}

// SaveValue writes a scalar setting under key.
func SaveValue[T any](ctx context.Context, store *RecordStore, key string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		store.saveFailed(key)
		return appErrors.Wrap(fmt.Errorf("marshal %s: %w", key, err), appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	return store.put(ctx, key, payload)
}

func (s *RecordStore) put(ctx context.Context, key string, payload []byte) error {
	if len(payload) > s.maxPayload {
		s.saveFailed(key)
		s.logger.Warn("record collection exceeds payload limit",
			zap.String("key", key), zap.Int("bytes", len(payload)), zap.Int("limit", s.maxPayload))
		return appErrors.ErrPayloadTooLarge
	}
	if err := s.backend.Put(ctx, key, payload); err != nil {
		s.saveFailed(key)
		s.logger.Error("record collection save failed", zap.String("key", key), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	return nil
}

// Upsert returns a copy of records where updated replaces the element with
// the same id, or is appended when none matches. Order is preserved.
func Upsert[T Identifiable](records []T, updated T) []T {
	out := make([]T, 0, len(records)+1)
	replaced := false
	for _, record := range records {
		if record.RecordID() == updated.RecordID() {
			out = append(out, updated)
			replaced = true
			continue
		}
		out = append(out, record)
	}
	if !replaced {
		out = append(out, updated)
	}
	return out
}

// Remove returns a copy of records without the element identified by id.
func Remove[T Identifiable](records []T, id string) []T {
	out := make([]T, 0, len(records))
	for _, record := range records {
		if record.RecordID() != id {
			out = append(out, record)
		}
	}
	return out
}

// Collection mirrors one persisted key in memory. Writers are serialised and
// every mutation is saved straight away.
type Collection[T Identifiable] struct {
	store *RecordStore
	key   string

	mu    sync.RWMutex
	items []T
}

// NewCollection loads key from store.
func NewCollection[T Identifiable](ctx context.Context, store *RecordStore, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key, items: Load[T](ctx, store, key)}
}

// Key returns the persisted key.
func (c *Collection[T]) Key() string { return c.key }

// All returns a snapshot of the collection.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the record with id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Mutate applies fn to a snapshot, installs the result and saves it. When fn
// fails nothing changes. When the save fails the new state stays in memory
// and the save error is returned alongside it.
func (c *Collection[T]) Mutate(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]T, len(c.items))
	copy(snapshot, c.items)
	next, err := fn(snapshot)
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = []T{}
	}
	c.items = next

	out := make([]T, len(next))
	copy(out, next)
	return out, Save(ctx, c.store, c.key, next)
}

// Upsert merges record into the collection.
func (c *Collection[T]) Upsert(ctx context.Context, record T) error {
	_, err := c.Mutate(ctx, func(items []T) ([]T, error) {
		return Upsert(items, record), nil
	})
	return err
}

// Remove deletes the record with id.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	_, err := c.Mutate(ctx, func(items []T) ([]T, error) {
		return Remove(items, id), nil
	})
	return err
}
