package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/storage"
)

const (
	postTitleRunes   = 50
	defaultPostTitle = "Tài liệu chia sẻ"
	defaultCategory  = "OTHER"
)

type postRepository interface {
	List(ctx context.Context, filter models.PostFilter) ([]models.LibraryPost, error)
	FindByID(ctx context.Context, id string) (*models.LibraryPost, error)
	Create(ctx context.Context, post models.LibraryPost) error
	Update(ctx context.Context, id string, fn func(models.LibraryPost) (models.LibraryPost, error)) (*models.LibraryPost, error)
	Delete(ctx context.Context, id string) error
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type downloadSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string) (storage.DownloadClaims, error)
}

// DownloadLink is a time-limited attachment URL token.
type DownloadLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	FileName  string    `json:"file_name"`
}

// PostService runs the digital library feed.
type PostService struct {
	repo      postRepository
	users     userFinder
	storage   attachmentStorage
	signer    downloadSigner
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewPostService wires the library feed.
func NewPostService(repo postRepository, users userFinder, storage attachmentStorage, signer downloadSigner, validate *validator.Validate, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		repo:      repo,
		users:     users,
		storage:   storage,
		signer:    signer,
		validator: newValidator(validate),
		logger:    logger,
		now:       systemClock,
	}
}

// List returns the feed, newest first.
func (s *PostService) List(ctx context.Context, filter models.PostFilter) ([]models.LibraryPost, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one post.
func (s *PostService) Get(ctx context.Context, id string) (*models.LibraryPost, error) {
	return s.repo.FindByID(ctx, id)
}

// Create shares a post. A post needs a title, content or an attachment.
func (s *PostService) Create(ctx context.Context, viewer models.Viewer, req models.CreatePostRequest, attachment *Upload) (*models.LibraryPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid post payload")
	}
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" && content == "" && attachment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "post needs a title, content or attachment")
	}
	if title == "" {
		title = defaultPostTitle
		if content != "" {
			title = truncateRunes(content, postTitleRunes, "") + "..."
		}
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = defaultCategory
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	post := models.LibraryPost{
		ID:           "post_" + uuid.NewString(),
		AuthorID:     viewer.ID,
		AuthorName:   viewer.Name,
		AuthorAvatar: viewer.AvatarURL,
		AuthorRole:   viewer.Role,
		Title:        title,
		Content:      content,
		Timestamp:    s.now(),
		LikedBy:      []string{},
		Tags:         tags,
		Category:     category,
		Comments:     []models.LibraryComment{},
	}
	if author, err := s.users.FindByID(ctx, viewer.ID); err == nil {
		post.AuthorReputation = author.Reputation
	}
	if attachment != nil {
		if s.storage == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attachments are disabled")
		}
		stored, err := s.storage.SaveUpload(postDir(post.ID), attachment.Name, attachment.Reader)
		if err != nil {
			return nil, uploadError(err)
		}
		post.AttachmentURL = stored.Path
		post.AttachmentName = stored.Name
		post.AttachmentType = models.AttachmentFile
		if stored.IsImage() {
			post.AttachmentType = models.AttachmentImage
		}
	}

	err := s.repo.Create(ctx, post)
	if err != nil && !persistenceOnly(err) {
		return nil, err
	}
	s.logger.Info("library post created", zap.String("post_id", post.ID), zap.String("author_id", viewer.ID), zap.Bool("attachment", attachment != nil))
	return &post, err
}

// ToggleLike adds or removes viewer's like.
func (s *PostService) ToggleLike(ctx context.Context, viewer models.Viewer, id string) (*models.LibraryPost, error) {
	return s.repo.Update(ctx, id, func(post models.LibraryPost) (models.LibraryPost, error) {
		likedBy := make([]string, 0, len(post.LikedBy)+1)
		if post.LikedByUser(viewer.ID) {
			for _, uid := range post.LikedBy {
				if uid != viewer.ID {
					likedBy = append(likedBy, uid)
				}
			}
			post.Likes--
		} else {
			likedBy = append(likedBy, post.LikedBy...)
			likedBy = append(likedBy, viewer.ID)
			post.Likes++
		}
		if post.Likes < 0 {
			post.Likes = 0
		}
		post.LikedBy = likedBy
		return post, nil
	})
}

// Comment appends viewer's reply.
func (s *PostService) Comment(ctx context.Context, viewer models.Viewer, id string, req models.CommentRequest) (*models.LibraryComment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid comment payload")
	}
	comment := models.LibraryComment{
		ID:         uuid.NewString(),
		UserID:     viewer.ID,
		UserName:   viewer.Name,
		UserAvatar: viewer.AvatarURL,
		Content:    req.Content,
		Timestamp:  s.now(),
	}
	updated, err := s.repo.Update(ctx, id, func(post models.LibraryPost) (models.LibraryPost, error) {
		comments := make([]models.LibraryComment, 0, len(post.Comments)+1)
		comments = append(comments, post.Comments...)
		post.Comments = append(comments, comment)
		return post, nil
	})
	if updated == nil {
		return nil, err
	}
	return &comment, err
}

// Delete removes a post and its attachment. Only the author or an elevated
// role may delete.
func (s *PostService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != viewer.ID && !viewer.Role.IsElevated() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete this post")
	}
	err = s.repo.Delete(ctx, id)
	if err != nil && !persistenceOnly(err) {
		return err
	}
	if s.storage != nil && post.AttachmentURL != "" {
		if cleanupErr := s.storage.DeleteDir(postDir(id)); cleanupErr != nil {
			s.logger.Warn("post attachment cleanup failed", zap.String("post_id", id), zap.Error(cleanupErr))
		}
	}
	return err
}

// DownloadLink signs a token for the post's attachment.
func (s *PostService) DownloadLink(ctx context.Context, id string) (*DownloadLink, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AttachmentURL == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post has no attachment")
	}
	token, expiresAt, err := s.signer.Generate(post.ID, post.AttachmentURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &DownloadLink{Token: token, ExpiresAt: expiresAt, FileName: post.AttachmentName}, nil
}

// OpenDownload resolves a signed token to the stored file.
func (s *PostService) OpenDownload(ctx context.Context, token string) (*os.File, string, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	post, err := s.repo.FindByID(ctx, claims.OwnerID)
	if err != nil {
		return nil, "", err
	}
	if post.AttachmentURL != claims.Path {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "attachment not found")
	}
	return file, post.AttachmentName, nil
}

func postDir(id string) string { return "posts/" + id }
