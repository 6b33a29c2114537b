package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/quiz"
	"github.com/noah-isme/pedagosys-api/internal/visibility"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type quizAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, id string, fn func(models.Assignment) (models.Assignment, error)) (*models.Assignment, error)
}

type quizSession struct {
	attempt *quiz.Attempt
	timer   *quiz.Timer
	config  models.QuizConfig
	viewer  models.Viewer
}

// QuizServiceOptions tunes the countdown of timed attempts.
type QuizServiceOptions struct {
	Clock        quiz.Clock
	TickInterval time.Duration
}

// QuizService keeps one attempt per student and drives timed attempts to
// automatic submission.
type QuizService struct {
	repo        quizAssignmentRepository
	leaderboard *LeaderboardService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	clock       quiz.Clock
	interval    time.Duration

	mu       sync.Mutex
	sessions map[string]*quizSession
}

// NewQuizService constructs the attempt manager.
func NewQuizService(repo quizAssignmentRepository, leaderboard *LeaderboardService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts QuizServiceOptions) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = quiz.RealClock{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &QuizService{
		repo:        repo,
		leaderboard: leaderboard,
		metrics:     metrics,
		validator:   newValidator(validate),
		logger:      logger,
		clock:       opts.Clock,
		interval:    opts.TickInterval,
		sessions:    make(map[string]*quizSession),
	}
}

// Start opens an attempt for viewer, abandoning any attempt they left open.
func (s *QuizService) Start(ctx context.Context, viewer models.Viewer, assignmentID string) (*models.AttemptStatus, error) {
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !visibility.IsVisible(*assignment, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	attempt, err := quiz.Start(*assignment, viewer, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.sessions[viewer.ID]; ok {
		s.dropLocked(viewer.ID, previous)
	}
	sess := &quizSession{attempt: attempt, config: *assignment.QuizConfig, viewer: viewer}
	s.sessions[viewer.ID] = sess
	if attempt.Timed() {
		studentID, attemptID := viewer.ID, attempt.ID
		sess.timer = quiz.NewTimer(s.clock, s.interval, func() bool {
			return s.tick(studentID, attemptID)
		})
	}
	s.publishActiveLocked()

	s.logger.Info("quiz attempt started",
		zap.String("assignment_id", assignmentID),
		zap.String("student_id", viewer.ID),
		zap.Bool("timed", attempt.Timed()),
	)
	status := attempt.Snapshot()
	return &status, nil
}

// Answer records one choice on the open attempt.
func (s *QuizService) Answer(ctx context.Context, viewer models.Viewer, assignmentID string, req models.AnswerRequest) (*models.AttemptStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid answer payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(viewer.ID, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := sess.attempt.Answer(req.Question, req.Choice); err != nil {
		return nil, err
	}
	status := sess.attempt.Snapshot()
	return &status, nil
}

// Submit finalises the attempt by hand. Submitting twice returns the stored
// result flagged as already submitted.
func (s *QuizService) Submit(ctx context.Context, viewer models.Viewer, assignmentID string) (*models.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(viewer.ID, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.finalizeLocked(ctx, sess, false)
}

// Abandon discards the open attempt without scoring it.
func (s *QuizService) Abandon(ctx context.Context, viewer models.Viewer, assignmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[viewer.ID]
	if !ok || sess.attempt.AssignmentID != assignmentID {
		return nil
	}
	s.dropLocked(viewer.ID, sess)
	s.publishActiveLocked()
	s.logger.Info("quiz attempt abandoned", zap.String("assignment_id", assignmentID), zap.String("student_id", viewer.ID))
	return nil
}

// Status reports the attempt state of viewer on assignmentID, falling back
// to the stored submission once the session is gone.
func (s *QuizService) Status(ctx context.Context, viewer models.Viewer, assignmentID string) (*models.AttemptStatus, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[viewer.ID]; ok && sess.attempt.AssignmentID == assignmentID {
		status := sess.attempt.Snapshot()
		s.mu.Unlock()
		return &status, nil
	}
	s.mu.Unlock()

	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !visibility.IsVisible(*assignment, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if assignment.QuizConfig == nil {
		return nil, appErrors.ErrNotAQuiz
	}
	status := models.AttemptStatus{
		AssignmentID:   assignmentID,
		State:          models.AttemptNotStarted,
		TotalQuestions: assignment.QuizConfig.TotalQuestions,
		Answers:        map[int]string{},
	}
	if sub, ok := assignment.SubmissionFor(viewer.ID); ok {
		status.State = models.AttemptSubmitted
		status.StartedAt = sub.SubmittedAt
		status.Score = sub.Score
	}
	return &status, nil
}

// Close stops every countdown. Open attempts are abandoned.
func (s *QuizService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		s.dropLocked(id, sess)
	}
	s.publishActiveLocked()
}

func (s *QuizService) tick(studentID, attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[studentID]
	if !ok || sess.attempt.ID != attemptID || sess.attempt.State() != models.AttemptInProgress {
		return false
	}
	if !sess.attempt.Tick() {
		return true
	}
	s.expireLocked(sess)
	return false
}

func (s *QuizService) expireLocked(sess *quizSession) {
	result, err := s.finalizeLocked(context.Background(), sess, true)
	if result == nil {
		s.logger.Error("quiz auto-submit failed",
			zap.String("assignment_id", sess.attempt.AssignmentID),
			zap.String("student_id", sess.viewer.ID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("quiz auto-submitted",
		zap.String("assignment_id", sess.attempt.AssignmentID),
		zap.String("student_id", sess.viewer.ID),
		zap.Float64("score", result.Score),
	)
}

// finalizeLocked stores the submission before the attempt turns SUBMITTED.
// A failed lookup leaves the attempt running; a failed save still finalises
// and returns the save error alongside the result.
func (s *QuizService) finalizeLocked(ctx context.Context, sess *quizSession, auto bool) (*models.SubmitResult, error) {
	switch sess.attempt.State() {
	case models.AttemptSubmitted:
		status := sess.attempt.Snapshot()
		return &models.SubmitResult{Status: status, Score: derefScore(status.Score), AlreadySubmitted: true}, nil
	case models.AttemptInProgress:
	default:
		return nil, appErrors.ErrAttemptNotActive
	}

	now := s.clock.Now()
	answers := sess.attempt.Snapshot().Answers
	score := quiz.ScoreAttempt(answers, sess.config.AnswerKey, sess.config.TotalQuestions)
	submission := models.Submission{
		StudentID:     sess.viewer.ID,
		StudentName:   sess.viewer.Name,
		StudentAvatar: sess.viewer.AvatarURL,
		SubmittedAt:   now,
		Score:         &score,
	}
	updated, err := s.repo.Update(ctx, sess.attempt.AssignmentID, func(a models.Assignment) (models.Assignment, error) {
		return a.WithSubmission(submission), nil
	})
	if updated == nil {
		return nil, err
	}

	if sess.timer != nil {
		sess.timer.Stop()
	}
	result, _ := sess.attempt.Finalize(sess.config, auto, now)
	mode := SubmissionManual
	if auto {
		mode = SubmissionAuto
	}
	s.metrics.RecordQuizSubmission(mode)
	s.leaderboard.Invalidate(ctx)
	s.publishActiveLocked()

	return &models.SubmitResult{Status: sess.attempt.Snapshot(), Score: result.Score}, err
}

func (s *QuizService) lookupLocked(studentID, assignmentID string) (*quizSession, error) {
	sess, ok := s.sessions[studentID]
	if !ok || sess.attempt.AssignmentID != assignmentID {
		return nil, appErrors.ErrAttemptNotFound
	}
	return sess, nil
}

func (s *QuizService) dropLocked(studentID string, sess *quizSession) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.attempt.Abandon()
	delete(s.sessions, studentID)
}

func (s *QuizService) publishActiveLocked() {
	active := 0
	for _, sess := range s.sessions {
		if sess.attempt.State() == models.AttemptInProgress {
			active++
		}
	}
	s.metrics.SetActiveAttempts(active)
}

func derefScore(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
