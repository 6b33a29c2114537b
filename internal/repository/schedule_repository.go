package repository

import (
	"context"
	"sort"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// ScheduleRepository persists the online class timetable.
type ScheduleRepository struct {
	items *Collection[models.ClassSession]
}

// NewScheduleRepository loads the timetable collection.
func NewScheduleRepository(ctx context.Context, store *RecordStore) *ScheduleRepository {
	return &ScheduleRepository{items: NewCollection[models.ClassSession](ctx, store, KeyClassSessions)}
}

// List returns sessions matching filter ordered by weekday then start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSession, error) {
	all := r.items.All()
	out := make([]models.ClassSession, 0, len(all))
	for _, s := range all {
		if filter.Day != "" && s.Day != filter.Day {
			continue
		}
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := models.WeekdayIndex(out[i].Day), models.WeekdayIndex(out[j].Day)
		if di != dj {
			return di < dj
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// FindByID returns one session.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	item, ok := r.items.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class session not found")
	}
	return &item, nil
}

// Create stores a new session. check runs under the collection lock against
// the current sessions and aborts the insert when it fails.
func (r *ScheduleRepository) Create(ctx context.Context, session models.ClassSession, check func([]models.ClassSession) error) error {
	_, err := r.items.Mutate(ctx, func(items []models.ClassSession) ([]models.ClassSession, error) {
		if check != nil {
			if err := check(items); err != nil {
				return nil, err
			}
		}
		return Upsert(items, session), nil
	})
	return err
}

// Delete removes a session.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	return r.items.Remove(ctx, id)
}
