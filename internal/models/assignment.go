package models

import "time"

// AITutorID marks assignments produced by the exercise generator.
const (
	AITutorID   = "ai_tutor"
	AITutorName = "AI Tutor"
)

// QuizConfig turns an assignment into a multiple-choice quiz.
type QuizConfig struct {
	TotalQuestions  int            `json:"total_questions"`
	DurationMinutes *int           `json:"duration_minutes"`
	AnswerKey       map[int]string `json:"answer_key,omitempty"`
}

// Timed reports whether attempts count down.
func (q QuizConfig) Timed() bool {
	return q.DurationMinutes != nil && *q.DurationMinutes > 0
}

// Submission is one student's hand-in for an assignment.
type Submission struct {
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	StudentAvatar string    `json:"student_avatar"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Score         *float64  `json:"score,omitempty"`
	FileRef       string    `json:"file_ref,omitempty"`
	FileName      string    `json:"file_name,omitempty"`
	RemoteID      string    `json:"remote_id,omitempty"`
}

// Comment is a discussion entry under an assignment.
type Comment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar"`
	UserRole   UserRole  `json:"user_role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Assignment is homework or a quiz published to an audience.
type Assignment struct {
	ID             string       `json:"id"`
	AuthorID       string       `json:"author_id"`
	AuthorName     string       `json:"author_name"`
	Title          string       `json:"title"`
	Body           string       `json:"body"`
	Audience       Audience     `json:"audience"`
	Deadline       time.Time    `json:"deadline"`
	CreatedAt      time.Time    `json:"created_at"`
	Submissions    []Submission `json:"submissions"`
	Comments       []Comment    `json:"comments"`
	QuizConfig     *QuizConfig  `json:"quiz_config,omitempty"`
	AttachmentURL  string       `json:"attachment_url,omitempty"`
	AttachmentName string       `json:"attachment_name,omitempty"`
}

// RecordID implements repository.Identifiable.
func (a Assignment) RecordID() string { return a.ID }

// Scope exposes the targeting data used by the visibility filter.
func (a Assignment) Scope() (Audience, string) { return a.Audience, a.AuthorID }

// IsAutoAuthored reports whether the generator created the assignment.
func (a Assignment) IsAutoAuthored() bool { return a.AuthorID == AITutorID }

// IsLocked reports whether the deadline has passed.
func (a Assignment) IsLocked(now time.Time) bool { return now.After(a.Deadline) }

// SubmissionFor returns the submission of studentID, if any.
func (a Assignment) SubmissionFor(studentID string) (Submission, bool) {
	for _, sub := range a.Submissions {
		if sub.StudentID == studentID {
			return sub, true
		}
	}
	return Submission{}, false
}

// WithSubmission returns a copy where sub replaces the student's previous
// submission or is appended when none exists.
func (a Assignment) WithSubmission(sub Submission) Assignment {
	subs := make([]Submission, 0, len(a.Submissions)+1)
	replaced := false
	for _, existing := range a.Submissions {
		if existing.StudentID == sub.StudentID {
			subs = append(subs, sub)
			replaced = true
			continue
		}
		subs = append(subs, existing)
	}
	if !replaced {
		subs = append(subs, sub)
	}
	a.Submissions = subs
	return a
}

// WithComment returns a copy with comment appended.
func (a Assignment) WithComment(comment Comment) Assignment {
	comments := make([]Comment, 0, len(a.Comments)+1)
	comments = append(comments, a.Comments...)
	a.Comments = append(comments, comment)
	return a
}

// Redacted hides the answer key and the other students' work from a student.
func (a Assignment) Redacted(viewer Viewer) Assignment {
	if viewer.Role.IsPrivileged() {
		return a
	}
	if a.QuizConfig != nil {
		cfg := *a.QuizConfig
		cfg.AnswerKey = nil
		a.QuizConfig = &cfg
	}
	own := make([]Submission, 0, 1)
	if sub, ok := a.SubmissionFor(viewer.ID); ok {
		own = append(own, sub)
	}
	a.Submissions = own
	return a
}

// AssignmentSource filters the assignment list tabs.
type AssignmentSource string

const (
	SourceAll     AssignmentSource = ""
	SourceTeacher AssignmentSource = "teacher"
	SourceAI      AssignmentSource = "ai"
)

// AssignmentFilter narrows list results.
type AssignmentFilter struct {
	Source    AssignmentSource
	ClassName string
}

// CreateAssignmentRequest is the teacher form for a new assignment.
type CreateAssignmentRequest struct {
	Title          string             `json:"title" validate:"required,max=200"`
	Body           string             `json:"body" validate:"max=20000"`
	TargetAudience string             `json:"target_audience" validate:"required,max=16"`
	Deadline       time.Time          `json:"deadline" validate:"required"`
	Quiz           *CreateQuizRequest `json:"quiz" validate:"omitempty"`
	AttachmentURL  string             `json:"attachment_url" validate:"omitempty,max=1024"`
	AttachmentName string             `json:"attachment_name" validate:"omitempty,max=255"`
}

// CreateQuizRequest attaches a quiz to an assignment.
type CreateQuizRequest struct {
	TotalQuestions  int            `json:"total_questions" validate:"required,min=1,max=200"`
	DurationMinutes *int           `json:"duration_minutes" validate:"omitempty,min=1,max=600"`
	AnswerKey       map[int]string `json:"answer_key" validate:"required"`
}

// CommentRequest posts a comment.
type CommentRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// AssignmentView is an assignment prepared for one viewer.
type AssignmentView struct {
	Assignment
	IsLocked     bool `json:"is_locked"`
	HasSubmitted bool `json:"has_submitted"`
}
