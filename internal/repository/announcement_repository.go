package repository

import (
	"context"
	"sort"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// AnnouncementRepository persists announcements.
type AnnouncementRepository struct {
	items *Collection[models.Announcement]
}

// NewAnnouncementRepository loads the announcement collection.
func NewAnnouncementRepository(ctx context.Context, store *RecordStore) *AnnouncementRepository {
	return &AnnouncementRepository{items: NewCollection[models.Announcement](ctx, store, KeyAnnouncements)}
}

// List returns announcements, newest first.
func (r *AnnouncementRepository) List(ctx context.Context) ([]models.Announcement, error) {
	items := r.items.All()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, nil
}

// FindByID returns one announcement.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	item, ok := r.items.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	return &item, nil
}

// Create stores a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement models.Announcement) error {
	return r.items.Upsert(ctx, announcement)
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	return r.items.Remove(ctx, id)
}
