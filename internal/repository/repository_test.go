package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

func TestAssignmentRepositoryUpdateAndPrepend(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(newMemoryBackend(), 0, nil)
	repo := NewAssignmentRepository(ctx, store)

	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, models.Assignment{ID: "a1", CreatedAt: base}))
	require.NoError(t, repo.Prepend(ctx, models.Assignment{ID: "ai1", AuthorID: models.AITutorID, CreatedAt: base.Add(time.Hour)}))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ai1", all[0].ID)

	updated, err := repo.Update(ctx, "a1", func(a models.Assignment) (models.Assignment, error) {
		return a.WithSubmission(models.Submission{StudentID: "s1"}), nil
	})
	require.NoError(t, err)
	assert.Len(t, updated.Submissions, 1)

	_, err = repo.Update(ctx, "missing", func(a models.Assignment) (models.Assignment, error) { return a, nil })
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	reloaded := NewAssignmentRepository(ctx, store)
	found, err := reloaded.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, found.Submissions, 1)
}

func TestAssignmentRepositoryUpdateReturnsStateOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()
	repo := NewAssignmentRepository(ctx, NewRecordStore(backend, 0, nil))
	require.NoError(t, repo.Save(ctx, models.Assignment{ID: "a1"}))

	backend.putErr = errors.New("full")
	updated, err := repo.Update(ctx, "a1", func(a models.Assignment) (models.Assignment, error) {
		a.Title = "changed"
		return a, nil
	})
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	require.NotNil(t, updated)
	assert.Equal(t, "changed", updated.Title)
}

func TestUserRepositoryRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(ctx, NewRecordStore(newMemoryBackend(), 0, nil))

	require.NoError(t, repo.Create(ctx, models.User{ID: "u1", Username: "an"}))
	assert.ErrorIs(t, repo.Create(ctx, models.User{ID: "u2", Username: "AN"}), appErrors.ErrConflict)

	user, err := repo.FindByUsername(ctx, "An")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	role := models.RoleStudent
	require.NoError(t, repo.Create(ctx, models.User{ID: "u3", Username: "chi", Role: role, ClassName: "10.5"}))
	students, err := repo.List(ctx, models.UserFilter{Role: &role, ClassName: "10.5"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestGradeRepositoryCreatesMissingRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewGradeRepository(ctx, NewRecordStore(newMemoryBackend(), 0, nil))

	record, err := repo.FindByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", record.ID)

	_, err = repo.Update(ctx, "s1", func(g models.GradeRecord) (models.GradeRecord, error) {
		g.ScoresBySemester = map[models.Semester]map[string]models.PeriodScore{
			models.SemesterOne: {"Toán": {Regular: []*float64{nil}}},
		}
		return g, nil
	})
	require.NoError(t, err)

	records, err := repo.ListByStudents(ctx, []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPostRepositoryCategoryFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(ctx, NewRecordStore(newMemoryBackend(), 0, nil))
	now := time.Now()
	require.NoError(t, repo.Create(ctx, models.LibraryPost{ID: "p1", Category: "Toán", Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, models.LibraryPost{ID: "p2", Category: "Văn", Timestamp: now}))
	require.NoError(t, repo.Create(ctx, models.LibraryPost{ID: "p3", Category: "toán", Timestamp: now}))

	posts, err := repo.List(ctx, models.PostFilter{Category: "Toán"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p3", posts[0].ID)

	require.NoError(t, repo.Delete(ctx, "p3"))
	_, err = repo.FindByID(ctx, "p3")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSettingRepositoryLastGenerationDate(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepository(NewRecordStore(newMemoryBackend(), 0, nil))

	_, ok := repo.LastGenerationDate(ctx)
	assert.False(t, ok)

	require.NoError(t, repo.SetLastGenerationDate(ctx, "2024-09-05"))
	last, ok := repo.LastGenerationDate(ctx)
	assert.True(t, ok)
	assert.Equal(t, "2024-09-05", last)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []models.LeaderboardEntry
	assert.ErrorIs(t, repo.Get(context.Background(), "leaderboard:ai", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "leaderboard:ai", dest, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "leaderboard:ai"))
	assert.False(t, repo.Enabled())
}

func TestScheduleRepositoryOrdersByWeekdayThenStart(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(newMemoryBackend(), 0, nil)
	repo := NewScheduleRepository(ctx, store)

	require.NoError(t, repo.Create(ctx, models.ClassSession{ID: "c1", Day: "Thứ 4", StartTime: "14:00", TeacherID: "t1"}, nil))
	require.NoError(t, repo.Create(ctx, models.ClassSession{ID: "c2", Day: "Thứ 2", StartTime: "10:00", TeacherID: "t2"}, nil))
	require.NoError(t, repo.Create(ctx, models.ClassSession{ID: "c3", Day: "Thứ 2", StartTime: "08:00", TeacherID: "t1"}, nil))

	all, err := repo.List(ctx, models.ScheduleFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"c3", "c2", "c1"}, ids)

	mine, err := repo.List(ctx, models.ScheduleFilter{TeacherID: "t1", Day: "Thứ 4"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].ID)

	blocked := errors.New("slot taken")
	err = repo.Create(ctx, models.ClassSession{ID: "c4", Day: "Thứ 2"}, func([]models.ClassSession) error { return blocked })
	assert.ErrorIs(t, err, blocked)
	_, err = repo.FindByID(ctx, "c4")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "c2"))
	reloaded := NewScheduleRepository(ctx, store)
	all, err = reloaded.List(ctx, models.ScheduleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
