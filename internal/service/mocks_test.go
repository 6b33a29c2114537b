package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

var testNow = time.Date(2024, 9, 5, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

var (
	teacherViewer = models.Viewer{ID: "t1", Name: "Cô Lan", Role: models.RoleTeacher}
	adminViewer   = models.Viewer{ID: "a1", Name: "Quản trị", Role: models.RoleAdmin}
	studentViewer = models.Viewer{ID: "s1", Name: "Nguyễn Văn An", Role: models.RoleStudent, ClassName: "10.1"}
)

type mockAssignmentRepo struct {
	mu        sync.Mutex
	items     []models.Assignment
	saveErr   error
	updates   int
	prepended []models.Assignment
}

func (m *mockAssignmentRepo) List(ctx context.Context) ([]models.Assignment, error) {
	return m.All(ctx)
}

func (m *mockAssignmentRepo) All(ctx context.Context) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Assignment, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
}

func (m *mockAssignmentRepo) Save(ctx context.Context, assignment models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == assignment.ID {
			m.items[i] = assignment
			return m.saveErr
		}
	}
	m.items = append(m.items, assignment)
	return m.saveErr
}

func (m *mockAssignmentRepo) Update(ctx context.Context, id string, fn func(models.Assignment) (models.Assignment, error)) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}
		next, err := fn(m.items[i])
		if err != nil {
			return nil, err
		}
		m.items[i] = next
		m.updates++
		return &next, m.saveErr
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
}

func (m *mockAssignmentRepo) Prepend(ctx context.Context, assignments ...models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepended = append(m.prepended, assignments...)
	m.items = append(append([]models.Assignment{}, assignments...), m.items...)
	return m.saveErr
}

func (m *mockAssignmentRepo) submission(id, studentID string) (models.Submission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.ID == id {
			return a.SubmissionFor(studentID)
		}
	}
	return models.Submission{}, false
}

type mockUserRepo struct {
	mu      sync.Mutex
	users   []models.User
	saveErr error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.ClassName != "" && u.ClassName != filter.ClassName {
			continue
		}
		if filter.Approved != nil && u.IsApproved != *filter.Approved {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
	}
	m.users = append(m.users, user)
	return m.saveErr
}

func (m *mockUserRepo) Update(ctx context.Context, id string, fn func(models.User) (models.User, error)) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID != id {
			continue
		}
		next, err := fn(m.users[i])
		if err != nil {
			return nil, err
		}
		m.users[i] = next
		return &next, m.saveErr
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (m *mockUserRepo) Count(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func quizFixture(id string, duration *int) models.Assignment {
	return models.Assignment{
		ID:          id,
		AuthorID:    models.AITutorID,
		AuthorName:  models.AITutorName,
		Title:       "[Thi Thử] Toán Học - Tốc độ",
		Audience:    models.EveryoneAudience(),
		Deadline:    testNow.Add(48 * time.Hour),
		CreatedAt:   testNow.Add(-time.Hour),
		Submissions: []models.Submission{},
		Comments:    []models.Comment{},
		QuizConfig: &models.QuizConfig{
			TotalQuestions:  4,
			DurationMinutes: duration,
			AnswerKey:       map[int]string{1: "A", 2: "B", 3: "C", 4: "D"},
		},
	}
}
