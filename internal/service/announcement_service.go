package service

import (
	"context"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/visibility"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

const announcementSummaryRunes = 80

type announcementRepository interface {
	List(ctx context.Context) ([]models.Announcement, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	storage   attachmentStorage
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock

	randMu sync.Mutex
	random *rand.Rand
}

// NewAnnouncementService constructs the service. storage may be nil when
// image uploads are disabled.
func NewAnnouncementService(repo announcementRepository, storage attachmentStorage, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:      repo,
		storage:   storage,
		validator: newValidator(validate),
		logger:    logger,
		now:       systemClock,
		random:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// List returns announcements visible to viewer, newest first.
func (s *AnnouncementService) List(ctx context.Context, viewer models.Viewer) ([]models.Announcement, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return visibility.FilterVisible(items, viewer), nil
}

// Create publishes an announcement with an optional cover image.
func (s *AnnouncementService) Create(ctx context.Context, viewer models.Viewer, req models.CreateAnnouncementRequest, image *Upload) (*models.Announcement, error) {
	if err := requirePrivileged(viewer, "only teachers can publish announcements"); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid announcement payload")
	}
	if !req.Audience.Complete() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "audience value is required for role or class targeting")
	}

	announcement := models.Announcement{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Summary:      truncateRunes(req.Content, announcementSummaryRunes, "…"),
		Content:      req.Content,
		AuthorID:     viewer.ID,
		AuthorName:   viewer.Name,
		AuthorRole:   viewer.Role,
		Timestamp:    s.now(),
		Audience:     req.Audience,
		ExternalLink: req.ExternalLink,
		ImageURL:     req.ImageURL,
		ColorTheme:   s.pickTheme(),
	}
	if image != nil && s.storage != nil {
		stored, err := s.storage.SaveUpload("announcements/"+announcement.ID, image.Name, image.Reader)
		if err != nil {
			return nil, uploadError(err)
		}
		if !stored.IsImage() {
			_ = s.storage.DeleteDir("announcements/" + announcement.ID)
			return nil, appErrors.Clone(appErrors.ErrValidation, "announcement image must be an image")
		}
		announcement.ImageURL = stored.Path
	}

	err := s.repo.Create(ctx, announcement)
	if err != nil && !persistenceOnly(err) {
		return nil, err
	}
	s.logger.Info("announcement published", zap.String("announcement_id", announcement.ID), zap.String("audience", string(announcement.Audience.Kind)))
	return &announcement, err
}

// Delete removes an announcement. Only its author or an elevated role may.
func (s *AnnouncementService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if announcement.AuthorID != viewer.ID && !viewer.Role.IsElevated() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete this announcement")
	}
	err = s.repo.Delete(ctx, id)
	if err != nil && !persistenceOnly(err) {
		return err
	}
	if s.storage != nil {
		if cleanupErr := s.storage.DeleteDir("announcements/" + id); cleanupErr != nil {
			s.logger.Warn("announcement image cleanup failed", zap.String("announcement_id", id), zap.Error(cleanupErr))
		}
	}
	return err
}

// OpenImage returns the uploaded cover image of an announcement visible to viewer.
func (s *AnnouncementService) OpenImage(ctx context.Context, viewer models.Viewer, id string) (*os.File, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.IsVisible(*announcement, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	prefix := "announcements/" + id + "/"
	if s.storage == nil || !strings.HasPrefix(announcement.ImageURL, prefix) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement has no uploaded image")
	}
	file, err := s.storage.Open(announcement.ImageURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "image not found")
	}
	return file, nil
}

func (s *AnnouncementService) pickTheme() string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return models.ColorThemes[s.random.Intn(len(models.ColorThemes))]
}
