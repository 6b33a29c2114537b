package repository

import (
	"context"
	"sync"
)

// SettingRepository stores scalar values such as the generator's last run date.
type SettingRepository struct {
	store *RecordStore
	mu    sync.Mutex
}

// NewSettingRepository builds a setting repository.
func NewSettingRepository(store *RecordStore) *SettingRepository {
	return &SettingRepository{store: store}
}

// LastGenerationDate returns the YYYY-MM-DD of the last exercise generation.
func (r *SettingRepository) LastGenerationDate(ctx context.Context) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LoadValue[string](ctx, r.store, KeyAILastRunDate)
}

// SetLastGenerationDate records date as the last successful generation.
func (r *SettingRepository) SetLastGenerationDate(ctx context.Context, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return SaveValue(ctx, r.store, KeyAILastRunDate, date)
}
