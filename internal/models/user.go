package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleTeacher   UserRole = "TEACHER"
	RoleStudent   UserRole = "STUDENT"
	RoleDeveloper UserRole = "DEVELOPER"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleDeveloper:
		return true
	}
	return false
}

// IsElevated reports whether the role bypasses audience and ownership checks.
func (r UserRole) IsElevated() bool {
	return r == RoleAdmin || r == RoleDeveloper
}

// IsPrivileged reports whether the role may author content and grade work.
func (r UserRole) IsPrivileged() bool {
	return r.IsElevated() || r == RoleTeacher
}

// User represents an account stored in the users collection.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Role         UserRole  `json:"role"`
	AvatarURL    string    `json:"avatar_url"`
	Reputation   int       `json:"reputation"`
	IsApproved   bool      `json:"is_approved"`
	Bio          string    `json:"bio,omitempty"`
	Nickname     string    `json:"nickname,omitempty"`
	JobTitle     string    `json:"job_title,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	School       string    `json:"school,omitempty"`
	SchoolYear   string    `json:"school_year,omitempty"`
	Workplace    string    `json:"workplace,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordID implements repository.Identifiable.
func (u User) RecordID() string { return u.ID }

// Public strips credentials before a user leaves the API.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Viewer returns the session view of the user.
func (u User) Viewer() Viewer {
	return Viewer{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, Role: u.Role, ClassName: u.ClassName}
}

// Viewer is the authenticated caller passed into every core operation.
type Viewer struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatar_url"`
	Role      UserRole `json:"role"`
	ClassName string   `json:"class_name,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	ClassName string
	Approved  *bool
	Search    string
}

// RegisterRequest creates a pending account.
type RegisterRequest struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Username  string   `json:"username" validate:"required,min=3,max=64"`
	Password  string   `json:"password" validate:"required,min=6"`
	Role      UserRole `json:"role" validate:"required,oneof=TEACHER STUDENT"`
	ClassName string   `json:"class_name" validate:"omitempty,max=16"`
	Subject   string   `json:"subject" validate:"omitempty,max=64"`
}

// UpdateProfileRequest edits personal details of the caller.
type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,max=512"`
	Bio         *string `json:"bio" validate:"omitempty,max=1000"`
	Nickname    *string `json:"nickname" validate:"omitempty,max=64"`
	JobTitle    *string `json:"job_title" validate:"omitempty,max=120"`
	Subject     *string `json:"subject" validate:"omitempty,max=64"`
	ClassName   *string `json:"class_name" validate:"omitempty,max=16"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
	School      *string `json:"school" validate:"omitempty,max=200"`
	SchoolYear  *string `json:"school_year" validate:"omitempty,max=32"`
	Workplace   *string `json:"workplace" validate:"omitempty,max=200"`
}
