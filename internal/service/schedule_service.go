package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

const meetLinkAlphabet = "abcdefghijklmnopqrstuvwxyz"

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSession, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	Create(ctx context.Context, session models.ClassSession, check func([]models.ClassSession) error) error
	Delete(ctx context.Context, id string) error
}

// ScheduleService manages the weekly online class timetable.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock

	randMu sync.Mutex
	random *rand.Rand
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:      repo,
		validator: newValidator(validate),
		logger:    logger,
		now:       systemClock,
		random:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// List returns the timetable, ordered by weekday then start time.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSession, error) {
	if filter.Day != "" && models.WeekdayIndex(filter.Day) < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day")
	}
	return s.repo.List(ctx, filter)
}

// Create schedules a session taught by viewer. A teacher cannot hold two
// overlapping sessions on the same day.
func (s *ScheduleService) Create(ctx context.Context, viewer models.Viewer, req models.CreateClassSessionRequest) (*models.ClassSession, error) {
	if err := requirePrivileged(viewer, "only teachers can schedule classes"); err != nil {
		return nil, err
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Topic = strings.TrimSpace(req.Topic)
	req.MeetLink = strings.TrimSpace(req.MeetLink)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid class session payload")
	}
	if models.WeekdayIndex(req.Day) < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day")
	}
	start, end := clockTime(req.StartTime), clockTime(req.EndTime)
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if req.MeetLink == "" {
		req.MeetLink = s.meetLink()
	}

	session := models.ClassSession{
		ID:          uuid.NewString(),
		Day:         req.Day,
		StartTime:   start,
		EndTime:     end,
		Subject:     req.Subject,
		Topic:       req.Topic,
		MeetLink:    req.MeetLink,
		TeacherID:   viewer.ID,
		TeacherName: viewer.Name,
		CreatedAt:   s.now(),
	}
	err := s.repo.Create(ctx, session, func(existing []models.ClassSession) error {
		for _, other := range existing {
			if other.TeacherID == session.TeacherID && other.Overlaps(session) {
				return wrapScheduleConflict(other)
			}
		}
		return nil
	})
	if err != nil && !persistenceOnly(err) {
		return nil, err
	}
	s.logger.Info("class session scheduled",
		zap.String("session_id", session.ID),
		zap.String("teacher_id", viewer.ID),
		zap.String("day", session.Day),
		zap.String("start", session.StartTime),
	)
	return &session, err
}

// Delete cancels a session. Only its teacher or an elevated role may.
func (s *ScheduleService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if session.TeacherID != viewer.ID && !viewer.Role.IsElevated() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the teacher can cancel this class")
	}
	return s.repo.Delete(ctx, id)
}

func (s *ScheduleService) meetLink() string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	segment := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = meetLinkAlphabet[s.random.Intn(len(meetLinkAlphabet))]
		}
		return string(b)
	}
	return fmt.Sprintf("https://meet.google.com/%s-%s-%s", segment(3), segment(4), segment(3))
}

// clockTime normalises a validated HH:MM value so "8:00" sorts before "10:00".
func clockTime(v string) string {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return v
	}
	return t.Format("15:04")
}

func wrapScheduleConflict(existing models.ClassSession) error {
	message := "teacher already has a class in this slot"
	domainErr := &models.ScheduleConflictError{
		Message: message,
		Conflict: models.ScheduleConflict{
			SessionID: existing.ID,
			Day:       existing.Day,
			StartTime: existing.StartTime,
			EndTime:   existing.EndTime,
			Subject:   existing.Subject,
		},
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}
