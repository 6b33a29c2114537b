package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Create(ctx context.Context, user models.User) error
	Update(ctx context.Context, id string, fn func(models.User) (models.User, error)) (*models.User, error)
	Count(ctx context.Context) int
}

// UserService handles registration, approval and profile management.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: newValidator(validate), logger: logger, now: systemClock}
}

// Register creates an account awaiting approval.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid registration payload")
	}
	if req.Role == models.RoleStudent && strings.TrimSpace(req.ClassName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_name is required for students")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
		AvatarURL:    defaultAvatar(req.Name),
		ClassName:    strings.TrimSpace(req.ClassName),
		Subject:      req.Subject,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if !persistenceOnly(err) {
			return nil, err
		}
		public := user.Public()
		return &public, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	public := user.Public()
	return &public, nil
}

// Bootstrap seeds an approved developer account when no users exist yet.
func (s *UserService) Bootstrap(ctx context.Context, name, username, password string) error {
	if username == "" || password == "" || s.repo.Count(ctx) > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleDeveloper,
		AvatarURL:    defaultAvatar(name),
		IsApproved:   true,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}
	s.logger.Info("bootstrap account created", zap.String("username", username))
	return nil
}

// List returns users visible to viewer. Students only see approved classmates.
func (s *UserService) List(ctx context.Context, viewer models.Viewer, filter models.UserFilter) ([]models.User, error) {
	if !viewer.Role.IsPrivileged() {
		approved := true
		filter.Approved = &approved
		filter.ClassName = viewer.ClassName
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// Approve activates a pending account. Only elevated viewers may approve.
func (s *UserService) Approve(ctx context.Context, viewer models.Viewer, id string) (*models.User, error) {
	if !viewer.Role.IsElevated() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can approve accounts")
	}
	updated, err := s.repo.Update(ctx, id, func(u models.User) (models.User, error) {
		u.IsApproved = true
		return u, nil
	})
	if updated == nil {
		return nil, err
	}
	s.logger.Info("user approved", zap.String("user_id", id), zap.String("approved_by", viewer.ID))
	public := updated.Public()
	return &public, err
}

// UpdateProfile edits the viewer's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, viewer models.Viewer, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid profile payload")
	}
	updated, err := s.repo.Update(ctx, viewer.ID, func(u models.User) (models.User, error) {
		applyProfile(&u, req)
		return u, nil
	})
	if updated == nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, err
	}
	public := updated.Public()
	return &public, err
}

func applyProfile(u *models.User, req models.UpdateProfileRequest) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.Name, req.Name)
	set(&u.AvatarURL, req.AvatarURL)
	set(&u.Bio, req.Bio)
	set(&u.Nickname, req.Nickname)
	set(&u.JobTitle, req.JobTitle)
	set(&u.Subject, req.Subject)
	set(&u.PhoneNumber, req.PhoneNumber)
	set(&u.School, req.School)
	set(&u.SchoolYear, req.SchoolYear)
	set(&u.Workplace, req.Workplace)
	// students cannot move themselves to another class
	if req.ClassName != nil && u.Role != models.RoleStudent {
		u.ClassName = strings.TrimSpace(*req.ClassName)
	}
}
