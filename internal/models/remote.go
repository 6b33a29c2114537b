package models

import "time"

// RemoteSubmission is a hand-in stored by the grading backend.
type RemoteSubmission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignmentId"`
	StudentID    string    `json:"studentId"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	FileURL      string    `json:"fileUrl"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Score        *float64  `json:"score"`
	Feedback     string    `json:"feedback"`
}

// Graded reports whether a score has been recorded.
func (r RemoteSubmission) Graded() bool { return r.Score != nil }

// RemoteUser is the backend's view of an account.
type RemoteUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	ClassName string `json:"className"`
}

// EnrichedSubmission joins a remote submission with student details.
type EnrichedSubmission struct {
	RemoteSubmission
	StudentName   string `json:"studentName"`
	StudentAvatar string `json:"studentAvatar"`
	ClassName     string `json:"className"`
}

// GradeStatus filters the teacher submission list.
type GradeStatus string

const (
	GradeStatusAll      GradeStatus = "ALL"
	GradeStatusGraded   GradeStatus = "GRADED"
	GradeStatusUngraded GradeStatus = "UNGRADED"
)

// GradeSubmissionRequest records a score and feedback remotely.
type GradeSubmissionRequest struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback" validate:"max=4000"`
}
