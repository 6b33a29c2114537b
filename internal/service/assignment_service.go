package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/visibility"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context) ([]models.Assignment, error)
	All(ctx context.Context) ([]models.Assignment, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Save(ctx context.Context, assignment models.Assignment) error
	Update(ctx context.Context, id string, fn func(models.Assignment) (models.Assignment, error)) (*models.Assignment, error)
}

// generationTrigger starts the daily exercise generation when due.
type generationTrigger interface {
	TriggerDaily(ctx context.Context, viewer models.Viewer)
}

var validChoices = map[string]struct{}{"A": {}, "B": {}, "C": {}, "D": {}}

// AssignmentService manages homework, quizzes and their discussion.
type AssignmentService struct {
	repo        assignmentRepository
	leaderboard *LeaderboardService
	generator   generationTrigger
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewAssignmentService wires the assignment service. generator may be nil.
func NewAssignmentService(repo assignmentRepository, leaderboard *LeaderboardService, generator generationTrigger, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:        repo,
		leaderboard: leaderboard,
		generator:   generator,
		validator:   newValidator(validate),
		logger:      logger,
		now:         systemClock,
	}
}

// List returns the assignments viewer may see, newest first. Privileged
// viewers also kick off the daily exercise generation.
func (s *AssignmentService) List(ctx context.Context, viewer models.Viewer, filter models.AssignmentFilter) ([]models.AssignmentView, error) {
	if s.generator != nil && viewer.Role.IsPrivileged() {
		s.generator.TriggerDaily(ctx, viewer)
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]models.AssignmentView, 0, len(all))
	for _, a := range visibility.FilterVisible(all, viewer) {
		switch filter.Source {
		case models.SourceAI:
			if !a.IsAutoAuthored() {
				continue
			}
		case models.SourceTeacher:
			if a.IsAutoAuthored() {
				continue
			}
		}
		if filter.ClassName != "" && viewer.Role.IsElevated() && !targetsClass(a, filter.ClassName) {
			continue
		}
		views = append(views, s.view(a, viewer, now))
	}
	return views, nil
}

func targetsClass(a models.Assignment, className string) bool {
	return a.Audience.Kind == models.AudienceAll || (a.Audience.Kind == models.AudienceClass && a.Audience.Value == className)
}

// Get returns one assignment if viewer may see it.
func (s *AssignmentService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.AssignmentView, error) {
	a, err := s.visible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	view := s.view(*a, viewer, s.now())
	return &view, nil
}

func (s *AssignmentService) visible(ctx context.Context, viewer models.Viewer, id string) (*models.Assignment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.IsVisible(*a, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return a, nil
}

func (s *AssignmentService) view(a models.Assignment, viewer models.Viewer, now time.Time) models.AssignmentView {
	_, submitted := a.SubmissionFor(viewer.ID)
	return models.AssignmentView{
		Assignment:   a.Redacted(viewer),
		IsLocked:     a.IsLocked(now),
		HasSubmitted: submitted,
	}
}

// Create publishes a teacher assignment.
func (s *AssignmentService) Create(ctx context.Context, viewer models.Viewer, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := requirePrivileged(viewer, "only teachers can create assignments"); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid assignment payload")
	}
	now := s.now()
	if !req.Deadline.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be in the future")
	}

	assignment := models.Assignment{
		ID:             uuid.NewString(),
		AuthorID:       viewer.ID,
		AuthorName:     viewer.Name,
		Title:          req.Title,
		Body:           req.Body,
		Audience:       models.ParseTargetAudience(req.TargetAudience),
		Deadline:       req.Deadline.UTC(),
		CreatedAt:      now,
		Submissions:    []models.Submission{},
		Comments:       []models.Comment{},
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	}
	if req.Quiz != nil {
		cfg, err := buildQuizConfig(*req.Quiz)
		if err != nil {
			return nil, err
		}
		assignment.QuizConfig = cfg
	}

	err := s.repo.Save(ctx, assignment)
	if err != nil && !persistenceOnly(err) {
		return nil, err
	}
	s.leaderboard.Invalidate(ctx)
	s.logger.Info("assignment created", zap.String("assignment_id", assignment.ID), zap.String("author_id", viewer.ID))
	return &assignment, err
}

func buildQuizConfig(req models.CreateQuizRequest) (*models.QuizConfig, error) {
	key := make(map[int]string, len(req.AnswerKey))
	for q, choice := range req.AnswerKey {
		if q < 1 || q > req.TotalQuestions {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("answer key question %d out of range", q))
		}
		choice = strings.ToUpper(strings.TrimSpace(choice))
		if _, ok := validChoices[choice]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("answer key choice %q must be A-D", choice))
		}
		key[q] = choice
	}
	if len(key) != req.TotalQuestions {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer key must cover every question")
	}
	return &models.QuizConfig{
		TotalQuestions:  req.TotalQuestions,
		DurationMinutes: req.DurationMinutes,
		AnswerKey:       key,
	}, nil
}

// Comment appends a comment to a visible assignment.
func (s *AssignmentService) Comment(ctx context.Context, viewer models.Viewer, id string, req models.CommentRequest) (*models.Comment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid comment payload")
	}
	if _, err := s.visible(ctx, viewer, id); err != nil {
		return nil, err
	}
	comment := models.Comment{
		ID:         uuid.NewString(),
		UserID:     viewer.ID,
		UserName:   viewer.Name,
		UserAvatar: viewer.AvatarURL,
		UserRole:   viewer.Role,
		Content:    req.Content,
		Timestamp:  s.now(),
	}
	updated, err := s.repo.Update(ctx, id, func(a models.Assignment) (models.Assignment, error) {
		return a.WithComment(comment), nil
	})
	if updated == nil {
		return nil, err
	}
	return &comment, err
}

// RecordSubmission stores sub on the assignment, replacing the student's
// earlier submission.
func (s *AssignmentService) RecordSubmission(ctx context.Context, assignmentID string, sub models.Submission) (*models.Assignment, error) {
	updated, err := s.repo.Update(ctx, assignmentID, func(a models.Assignment) (models.Assignment, error) {
		return a.WithSubmission(sub), nil
	})
	if updated != nil {
		s.leaderboard.Invalidate(ctx)
	}
	if err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		s.logger.Warn("submission not persisted", zap.String("assignment_id", assignmentID), zap.String("student_id", sub.StudentID), zap.Error(err))
	}
	return updated, err
}

// Authored lists the assignments a teacher grades: admins see every
// teacher-made assignment, teachers only their own.
func (s *AssignmentService) Authored(ctx context.Context, viewer models.Viewer) ([]models.Assignment, error) {
	if err := requirePrivileged(viewer, "only teachers can review submissions"); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Assignment, 0)
	for _, a := range all {
		if a.IsAutoAuthored() {
			continue
		}
		if viewer.Role.IsElevated() || a.AuthorID == viewer.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Leaderboard returns the ranking over generated quizzes.
func (s *AssignmentService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return s.leaderboard.Get(ctx)
}
