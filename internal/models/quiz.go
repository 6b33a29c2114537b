package models

import "time"

// AttemptState is the lifecycle stage of a quiz attempt.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "NOT_STARTED"
	AttemptInProgress AttemptState = "IN_PROGRESS"
	AttemptSubmitted  AttemptState = "SUBMITTED"
)

// AttemptStatus is the client-facing snapshot of a quiz attempt.
type AttemptStatus struct {
	AttemptID        string         `json:"attempt_id"`
	AssignmentID     string         `json:"assignment_id"`
	State            AttemptState   `json:"state"`
	TotalQuestions   int            `json:"total_questions"`
	Answers          map[int]string `json:"answers"`
	RemainingSeconds *int           `json:"remaining_seconds"`
	StartedAt        time.Time      `json:"started_at"`
	AutoSubmitted    bool           `json:"auto_submitted"`
	Score            *float64       `json:"score,omitempty"`
}

// AnswerRequest selects a choice for one question.
type AnswerRequest struct {
	Question int    `json:"question" validate:"required,min=1"`
	Choice   string `json:"choice" validate:"required,max=1"`
}

// SubmitResult reports the outcome of finalising an attempt.
type SubmitResult struct {
	Status           AttemptStatus `json:"status"`
	Score            float64       `json:"score"`
	AlreadySubmitted bool          `json:"already_submitted"`
}

// LeaderboardEntry aggregates a student's scores on generated quizzes.
type LeaderboardEntry struct {
	StudentID     string  `json:"student_id"`
	StudentName   string  `json:"student_name"`
	StudentAvatar string  `json:"student_avatar"`
	TotalScore    float64 `json:"total_score"`
}
