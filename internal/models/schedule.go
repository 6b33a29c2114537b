package models

import "time"

// Weekdays lists the timetable columns in display order.
var Weekdays = []string{"Thứ 2", "Thứ 3", "Thứ 4", "Thứ 5", "Thứ 6", "Thứ 7", "Chủ Nhật"}

// WeekdayIndex returns the position of day in Weekdays, or -1.
func WeekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

// ClassSession is one online lesson on the weekly timetable.
type ClassSession struct {
	ID          string    `json:"id"`
	Day         string    `json:"day"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Subject     string    `json:"subject"`
	Topic       string    `json:"topic"`
	MeetLink    string    `json:"meet_link"`
	TeacherID   string    `json:"teacher_id"`
	TeacherName string    `json:"teacher_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordID implements repository.Identifiable.
func (s ClassSession) RecordID() string { return s.ID }

// Overlaps reports whether both sessions share a day and their time ranges intersect.
func (s ClassSession) Overlaps(other ClassSession) bool {
	return s.Day == other.Day && s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// ScheduleFilter narrows the timetable listing.
type ScheduleFilter struct {
	Day       string
	TeacherID string
}

// CreateClassSessionRequest describes a new timetable entry. An empty meet
// link is generated.
type CreateClassSessionRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Subject   string `json:"subject" validate:"required,max=100"`
	Topic     string `json:"topic" validate:"omitempty,max=200"`
	MeetLink  string `json:"meet_link" validate:"omitempty,url"`
}

// ScheduleConflict describes the session a new entry collides with.
type ScheduleConflict struct {
	SessionID string `json:"session_id"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Subject   string `json:"subject"`
}

// ScheduleConflictError is returned when a teacher is already teaching in the slot.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
