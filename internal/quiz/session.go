package quiz

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// Result is the outcome of a finalised attempt.
type Result struct {
	Score         float64
	Auto          bool
	SubmittedAt   time.Time
	TotalAnswered int
}

// Attempt is a single student's pass through a quiz. Transitions are pure and
// never touch the clock; the Timer drives Tick from outside.
type Attempt struct {
	ID           string
	AssignmentID string
	StudentID    string
	StartedAt    time.Time

	total     int
	answers   map[int]string
	remaining *int
	state     models.AttemptState
	result    *Result
}

// Start validates that viewer may take the quiz and opens an attempt.
func Start(assignment models.Assignment, viewer models.Viewer, now time.Time) (*Attempt, error) {
	if assignment.QuizConfig == nil || assignment.QuizConfig.TotalQuestions <= 0 {
		return nil, appErrors.ErrNotAQuiz
	}
	if assignment.IsLocked(now) {
		return nil, appErrors.ErrAssignmentLocked
	}
	if _, ok := assignment.SubmissionFor(viewer.ID); ok {
		return nil, appErrors.ErrAlreadySubmitted
	}

	attempt := &Attempt{
		ID:           uuid.NewString(),
		AssignmentID: assignment.ID,
		StudentID:    viewer.ID,
		StartedAt:    now,
		total:        assignment.QuizConfig.TotalQuestions,
		answers:      make(map[int]string),
		state:        models.AttemptInProgress,
	}
	if assignment.QuizConfig.Timed() {
		seconds := *assignment.QuizConfig.DurationMinutes * 60
		attempt.remaining = &seconds
	}
	return attempt, nil
}

// State returns the current lifecycle stage.
func (a *Attempt) State() models.AttemptState { return a.state }

// Timed reports whether the attempt counts down.
func (a *Attempt) Timed() bool { return a.remaining != nil }

// Answer records choice for question, replacing any previous choice.
func (a *Attempt) Answer(question int, choice string) error {
	if a.state != models.AttemptInProgress {
		return appErrors.ErrAttemptNotActive
	}
	if question < 1 || question > a.total {
		return appErrors.ErrInvalidQuestion
	}
	choice = strings.ToUpper(strings.TrimSpace(choice))
	if choice == "" {
		return appErrors.Clone(appErrors.ErrValidation, "choice is required")
	}
	a.answers[question] = choice
	return nil
}

// Tick consumes one second and reports whether time just ran out.
func (a *Attempt) Tick() bool {
	if a.state != models.AttemptInProgress || a.remaining == nil || *a.remaining <= 0 {
		return false
	}
	*a.remaining--
	return *a.remaining == 0
}

// Finalize scores the attempt and closes it. Later calls return the stored
// result and false.
func (a *Attempt) Finalize(config models.QuizConfig, auto bool, now time.Time) (Result, bool) {
	if a.result != nil {
		return *a.result, false
	}
	result := Result{
		Score:         ScoreAttempt(a.answers, config.AnswerKey, config.TotalQuestions),
		Auto:          auto,
		SubmittedAt:   now,
		TotalAnswered: len(a.answers),
	}
	a.result = &result
	a.state = models.AttemptSubmitted
	return result, true
}

// Abandon drops an in-progress attempt without scoring.
func (a *Attempt) Abandon() {
	if a.state == models.AttemptInProgress {
		a.state = models.AttemptNotStarted
	}
}

// Snapshot renders the attempt for clients.
func (a *Attempt) Snapshot() models.AttemptStatus {
	answers := make(map[int]string, len(a.answers))
	for k, v := range a.answers {
		answers[k] = v
	}
	status := models.AttemptStatus{
		AttemptID:      a.ID,
		AssignmentID:   a.AssignmentID,
		State:          a.state,
		TotalQuestions: a.total,
		Answers:        answers,
		StartedAt:      a.StartedAt,
	}
	if a.remaining != nil {
		remaining := *a.remaining
		status.RemainingSeconds = &remaining
	}
	if a.result != nil {
		score := a.result.Score
		status.Score = &score
		status.AutoSubmitted = a.result.Auto
	}
	return status
}
