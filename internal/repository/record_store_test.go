package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type memoryBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	putErr  error
	putKeys []string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (m *memoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryBackend) Put(ctx context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = append([]byte(nil), payload...)
	m.putKeys = append(m.putKeys, key)
	return nil
}

func (m *memoryBackend) Close() error { return nil }

type record struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

func (r record) RecordID() string { return r.ID }

func TestLoadAbsentAndCorrupt(t *testing.T) {
	backend := newMemoryBackend()
	store := NewRecordStore(backend, 0, nil)
	ctx := context.Background()

	assert.Equal(t, []record{}, Load[record](ctx, store, "missing"))

	backend.data["broken"] = []byte("{not json")
	assert.Equal(t, []record{}, Load[record](ctx, store, "broken"))

	backend.data["null"] = []byte("null")
	assert.Equal(t, []record{}, Load[record](ctx, store, "null"))

	backend.getErr = errors.New("disk gone")
	assert.Equal(t, []record{}, Load[record](ctx, store, "missing"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewRecordStore(newMemoryBackend(), 0, nil)
	ctx := context.Background()

	in := []record{{ID: "1", Value: "a"}, {ID: "2", Value: "b"}}
	require.NoError(t, Save(ctx, store, "k", in))
	assert.Equal(t, in, Load[record](ctx, store, "k"))
}

func TestSavePayloadTooLarge(t *testing.T) {
	var failed []string
	store := NewRecordStore(newMemoryBackend(), 16, nil)
	store.OnSaveFailure(func(key string) { failed = append(failed, key) })

	err := Save(context.Background(), store, "k", []record{{ID: "1", Value: strings.Repeat("x", 64)}})
	assert.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)
	assert.Equal(t, "cannot save: payload too large", appErrors.FromError(err).Message)
	assert.Equal(t, []string{"k"}, failed)
}

func TestSaveBackendFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.putErr = errors.New("read-only")
	store := NewRecordStore(backend, 0, nil)

	err := Save(context.Background(), store, "k", []record{{ID: "1"}})
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
}

func TestUpsertIsPureAndOrdered(t *testing.T) {
	in := []record{{ID: "1", Value: "a"}, {ID: "2", Value: "b"}, {ID: "3", Value: "c"}}

	replaced := Upsert(in, record{ID: "2", Value: "B"})
	assert.Equal(t, []record{{ID: "1", Value: "a"}, {ID: "2", Value: "B"}, {ID: "3", Value: "c"}}, replaced)
	assert.Equal(t, "b", in[1].Value)

	appended := Upsert(in, record{ID: "4", Value: "d"})
	assert.Len(t, appended, 4)
	assert.Equal(t, "4", appended[3].ID)
	assert.Len(t, in, 3)

	twice := Upsert(Upsert(in, record{ID: "2", Value: "B"}), record{ID: "2", Value: "B"})
	assert.Equal(t, replaced, twice)
}

func TestRemove(t *testing.T) {
	in := []record{{ID: "1"}, {ID: "2"}}
	assert.Equal(t, []record{{ID: "2"}}, Remove(in, "1"))
	assert.Equal(t, in, Remove(in, "missing"))
	assert.Len(t, in, 2)
}

func TestCollectionKeepsStateWhenSaveFails(t *testing.T) {
	backend := newMemoryBackend()
	store := NewRecordStore(backend, 0, nil)
	ctx := context.Background()
	coll := NewCollection[record](ctx, store, "k")

	require.NoError(t, coll.Upsert(ctx, record{ID: "1", Value: "a"}))

	backend.putErr = errors.New("quota exceeded")
	err := coll.Upsert(ctx, record{ID: "2", Value: "b"})
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	assert.Len(t, coll.All(), 2)

	fresh := NewCollection[record](ctx, store, "k")
	assert.Len(t, fresh.All(), 1)
}

func TestCollectionMutateErrorLeavesStateUntouched(t *testing.T) {
	store := NewRecordStore(newMemoryBackend(), 0, nil)
	ctx := context.Background()
	coll := NewCollection[record](ctx, store, "k")
	require.NoError(t, coll.Upsert(ctx, record{ID: "1"}))

	boom := errors.New("boom")
	_, err := coll.Mutate(ctx, func(items []record) ([]record, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := coll.Find("1")
	assert.True(t, ok)
}

func TestCollectionConcurrentUpserts(t *testing.T) {
	store := NewRecordStore(newMemoryBackend(), 0, nil)
	ctx := context.Background()
	coll := NewCollection[record](ctx, store, "k")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = coll.Upsert(ctx, record{ID: string(rune('a' + i))})
		}(i)
	}
	wg.Wait()
	assert.Len(t, coll.All(), 20)
	assert.Len(t, Load[record](ctx, store, "k"), 20)
}

func TestLoadAndSaveValue(t *testing.T) {
	store := NewRecordStore(newMemoryBackend(), 0, nil)
	ctx := context.Background()

	_, ok := LoadValue[string](ctx, store, KeyAILastRunDate)
	assert.False(t, ok)

	require.NoError(t, SaveValue(ctx, store, KeyAILastRunDate, "2024-09-05"))
	got, ok := LoadValue[string](ctx, store, KeyAILastRunDate)
	assert.True(t, ok)
	assert.Equal(t, "2024-09-05", got)
}
