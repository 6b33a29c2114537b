package repository

import (
	"context"

	"github.com/noah-isme/pedagosys-api/internal/models"
)

// GradeRepository persists one grade record per student.
type GradeRepository struct {
	items *Collection[models.GradeRecord]
}

// NewGradeRepository loads the grade collection.
func NewGradeRepository(ctx context.Context, store *RecordStore) *GradeRepository {
	return &GradeRepository{items: NewCollection[models.GradeRecord](ctx, store, KeyGrades)}
}

// FindByStudent returns the student's record, or an empty one.
func (r *GradeRepository) FindByStudent(ctx context.Context, studentID string) (models.GradeRecord, error) {
	if record, ok := r.items.Find(studentID); ok {
		return record, nil
	}
	return models.GradeRecord{ID: studentID, StudentID: studentID}, nil
}

// ListByStudents returns the records of studentIDs keyed by student.
func (r *GradeRepository) ListByStudents(ctx context.Context, studentIDs []string) (map[string]models.GradeRecord, error) {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	out := make(map[string]models.GradeRecord, len(studentIDs))
	for _, record := range r.items.All() {
		if _, ok := wanted[record.StudentID]; ok {
			out[record.StudentID] = record
		}
	}
	return out, nil
}

// Update applies fn to the student's record (created when missing) and saves it.
func (r *GradeRepository) Update(ctx context.Context, studentID string, fn func(models.GradeRecord) (models.GradeRecord, error)) (models.GradeRecord, error) {
	var updated models.GradeRecord
	_, err := r.items.Mutate(ctx, func(items []models.GradeRecord) ([]models.GradeRecord, error) {
		current := models.GradeRecord{ID: studentID, StudentID: studentID}
		for _, item := range items {
			if item.ID == studentID {
				current = item
				break
			}
		}
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		updated = next
		return Upsert(items, next), nil
	})
	return updated, err
}
