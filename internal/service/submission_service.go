package service

import (
	"context"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/pedagosys-api/internal/gradebook"
	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

const (
	remoteTarget         = "backend"
	fallbackAvatar       = "https://ui-avatars.com/api/?name=HS"
	fallbackUploadedName = "bai_nop"
)

type gradingBackend interface {
	UploadSubmission(ctx context.Context, assignmentID, studentID, fileName string, file io.Reader) (*models.RemoteSubmission, error)
	GradeSubmission(ctx context.Context, submissionID string, req models.GradeSubmissionRequest) (*models.RemoteSubmission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.RemoteSubmission, error)
	ListUsers(ctx context.Context) ([]models.RemoteUser, error)
	FileURL(path string) string
}

type submissionAssignments interface {
	Get(ctx context.Context, viewer models.Viewer, id string) (*models.AssignmentView, error)
	RecordSubmission(ctx context.Context, assignmentID string, sub models.Submission) (*models.Assignment, error)
	Authored(ctx context.Context, viewer models.Viewer) ([]models.Assignment, error)
}

// SubmissionService relays file hand-ins and grading to the remote backend.
type SubmissionService struct {
	backend     gradingBackend
	assignments submissionAssignments
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewSubmissionService wires the submission relay.
func NewSubmissionService(backend gradingBackend, assignments submissionAssignments, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		backend:     backend,
		assignments: assignments,
		metrics:     metrics,
		validator:   newValidator(validate),
		logger:      logger,
		now:         systemClock,
	}
}

// Upload hands in a file and records the submission on the assignment.
// A later upload replaces the student's earlier one.
func (s *SubmissionService) Upload(ctx context.Context, viewer models.Viewer, assignmentID string, file Upload) (*models.Submission, error) {
	view, err := s.assignments.Get(ctx, viewer, assignmentID)
	if err != nil {
		return nil, err
	}
	if view.IsLocked {
		return nil, appErrors.ErrAssignmentLocked
	}
	if view.QuizConfig != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quizzes are submitted through the quiz attempt")
	}
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = fallbackUploadedName
	}

	remote, err := s.backend.UploadSubmission(ctx, assignmentID, viewer.ID, name, file.Reader)
	if err != nil {
		s.metrics.RecordRemoteError(remoteTarget)
		s.logger.Warn("submission upload failed", zap.String("assignment_id", assignmentID), zap.String("student_id", viewer.ID), zap.Error(err))
		return nil, err
	}

	submission := models.Submission{
		StudentID:     viewer.ID,
		StudentName:   viewer.Name,
		StudentAvatar: viewer.AvatarURL,
		SubmittedAt:   s.now(),
		FileRef:       s.backend.FileURL(remote.FileURL),
		FileName:      remote.FileName,
		RemoteID:      remote.ID,
	}
	if submission.FileName == "" {
		submission.FileName = name
	}
	if !remote.SubmittedAt.IsZero() {
		submission.SubmittedAt = remote.SubmittedAt.UTC()
	}
	updated, err := s.assignments.RecordSubmission(ctx, assignmentID, submission)
	if updated == nil {
		return nil, err
	}
	return &submission, err
}

// Grade stores a score and feedback on a remote submission.
func (s *SubmissionService) Grade(ctx context.Context, viewer models.Viewer, submissionID string, req models.GradeSubmissionRequest) (*models.RemoteSubmission, error) {
	if err := requirePrivileged(viewer, "only teachers can grade submissions"); err != nil {
		return nil, err
	}
	if err := gradebook.ValidateScore(req.Score); err != nil {
		return nil, err
	}
	req.Feedback = strings.TrimSpace(req.Feedback)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid grade payload")
	}
	graded, err := s.backend.GradeSubmission(ctx, submissionID, req)
	if err != nil {
		s.metrics.RecordRemoteError(remoteTarget)
		return nil, err
	}
	s.logger.Info("submission graded", zap.String("submission_id", submissionID), zap.String("teacher_id", viewer.ID))
	return graded, nil
}

// ListForAssignment returns the remote submissions of an assignment joined
// with student details and filtered by grading status.
func (s *SubmissionService) ListForAssignment(ctx context.Context, viewer models.Viewer, assignmentID string, status models.GradeStatus) ([]models.EnrichedSubmission, error) {
	if err := requirePrivileged(viewer, "only teachers can review submissions"); err != nil {
		return nil, err
	}

	var (
		submissions []models.RemoteSubmission
		users       []models.RemoteUser
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		submissions, err = s.backend.ListByAssignment(gctx, assignmentID)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.backend.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordRemoteError(remoteTarget)
		return nil, err
	}

	byID := make(map[string]models.RemoteUser, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]models.EnrichedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		switch status {
		case models.GradeStatusGraded:
			if !sub.Graded() {
				continue
			}
		case models.GradeStatusUngraded:
			if sub.Graded() {
				continue
			}
		}
		sub.FileURL = s.backend.FileURL(sub.FileURL)
		enriched := models.EnrichedSubmission{
			RemoteSubmission: sub,
			StudentName:      sub.StudentID,
			StudentAvatar:    fallbackAvatar,
		}
		if u, ok := byID[sub.StudentID]; ok {
			if u.Name != "" {
				enriched.StudentName = u.Name
			}
			if u.AvatarURL != "" {
				enriched.StudentAvatar = u.AvatarURL
			}
			enriched.ClassName = u.ClassName
		}
		out = append(out, enriched)
	}
	return out, nil
}

// TeacherAssignments lists the assignments whose submissions viewer grades.
func (s *SubmissionService) TeacherAssignments(ctx context.Context, viewer models.Viewer) ([]models.Assignment, error) {
	return s.assignments.Authored(ctx, viewer)
}
