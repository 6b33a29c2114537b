package repository

import (
	"context"
	"sort"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// AssignmentRepository persists assignments together with their submissions and comments.
type AssignmentRepository struct {
	items *Collection[models.Assignment]
}

// NewAssignmentRepository loads the assignment collection.
func NewAssignmentRepository(ctx context.Context, store *RecordStore) *AssignmentRepository {
	return &AssignmentRepository{items: NewCollection[models.Assignment](ctx, store, KeyAssignments)}
}

// List returns every assignment, newest first.
func (r *AssignmentRepository) List(ctx context.Context) ([]models.Assignment, error) {
	items := r.items.All()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// All returns assignments in stored order.
func (r *AssignmentRepository) All(ctx context.Context) ([]models.Assignment, error) {
	return r.items.All(), nil
}

// FindByID returns one assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	item, ok := r.items.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return &item, nil
}

// Save upserts assignment.
func (r *AssignmentRepository) Save(ctx context.Context, assignment models.Assignment) error {
	return r.items.Upsert(ctx, assignment)
}

// Update loads assignment id, applies fn and saves the result. The returned
// assignment reflects memory even when persisting failed.
func (r *AssignmentRepository) Update(ctx context.Context, id string, fn func(models.Assignment) (models.Assignment, error)) (*models.Assignment, error) {
	var updated models.Assignment
	_, err := r.items.Mutate(ctx, func(items []models.Assignment) ([]models.Assignment, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			next, err := fn(items[i])
			if err != nil {
				return nil, err
			}
			updated = next
			return Upsert(items, next), nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	})
	if updated.ID == "" {
		return nil, err
	}
	return &updated, err
}

// Prepend stores new assignments ahead of the existing ones.
func (r *AssignmentRepository) Prepend(ctx context.Context, assignments ...models.Assignment) error {
	_, err := r.items.Mutate(ctx, func(items []models.Assignment) ([]models.Assignment, error) {
		out := make([]models.Assignment, 0, len(items)+len(assignments))
		out = append(out, assignments...)
		return append(out, items...), nil
	})
	return err
}
