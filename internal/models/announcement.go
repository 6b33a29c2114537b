package models

import "time"

// ColorThemes are the card palettes assigned to new announcements.
var ColorThemes = []string{"blue", "green", "purple", "orange", "pink", "teal"}

// Announcement represents a notice published to an audience.
type Announcement struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorRole   UserRole  `json:"author_role"`
	Timestamp    time.Time `json:"timestamp"`
	Audience     Audience  `json:"audience"`
	ExternalLink string    `json:"external_link,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	ColorTheme   string    `json:"color_theme"`
}

// RecordID implements repository.Identifiable.
func (a Announcement) RecordID() string { return a.ID }

// Scope exposes the targeting data used by the visibility filter.
func (a Announcement) Scope() (Audience, string) { return a.Audience, a.AuthorID }

// CreateAnnouncementRequest captures announcement fields.
type CreateAnnouncementRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Content      string   `json:"content" validate:"required"`
	Audience     Audience `json:"audience" validate:"required"`
	ExternalLink string   `json:"external_link" validate:"omitempty,url"`
	ImageURL     string   `json:"image_url" validate:"omitempty,max=1024"`
}
