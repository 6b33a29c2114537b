package models

import "time"

// AttachmentType distinguishes inline images from downloadable files.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
)

// LibraryComment is a reply under a library post.
type LibraryComment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// LibraryPost is a shared document in the digital library feed.
type LibraryPost struct {
	ID               string           `json:"id"`
	AuthorID         string           `json:"author_id"`
	AuthorName       string           `json:"author_name"`
	AuthorAvatar     string           `json:"author_avatar"`
	AuthorRole       UserRole         `json:"author_role"`
	AuthorReputation int              `json:"author_reputation"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Timestamp        time.Time        `json:"timestamp"`
	Likes            int              `json:"likes"`
	LikedBy          []string         `json:"liked_by"`
	Tags             []string         `json:"tags"`
	Category         string           `json:"category"`
	Comments         []LibraryComment `json:"comments"`
	AttachmentURL    string           `json:"attachment_url,omitempty"`
	AttachmentName   string           `json:"attachment_name,omitempty"`
	AttachmentType   AttachmentType   `json:"attachment_type,omitempty"`
}

// RecordID implements repository.Identifiable.
func (p LibraryPost) RecordID() string { return p.ID }

// LikedByUser reports whether userID already liked the post.
func (p LibraryPost) LikedByUser(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// PostFilter narrows the feed.
type PostFilter struct {
	Category string
}

// CreatePostRequest captures post fields.
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"max=200"`
	Content  string   `json:"content" validate:"max=20000"`
	Category string   `json:"category" validate:"omitempty,max=64"`
	Tags     []string `json:"tags" validate:"max=10,dive,max=32"`
}
