package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/storage"
)

type mockPostRepo struct {
	mu    sync.Mutex
	items []models.LibraryPost
}

func (m *mockPostRepo) List(ctx context.Context, filter models.PostFilter) ([]models.LibraryPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LibraryPost{}
	for _, p := range m.items {
		if filter.Category == "" || strings.EqualFold(p.Category, filter.Category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*models.LibraryPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
}

func (m *mockPostRepo) Create(ctx context.Context, post models.LibraryPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]models.LibraryPost{post}, m.items...)
	return nil
}

func (m *mockPostRepo) Update(ctx context.Context, id string, fn func(models.LibraryPost) (models.LibraryPost, error)) (*models.LibraryPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			next, err := fn(m.items[i])
			if err != nil {
				return nil, err
			}
			m.items[i] = next
			return &next, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
}

func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "post not found")
}

func newPostFixture(t *testing.T) (*PostService, *mockPostRepo) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), 1024, nil)
	require.NoError(t, err)
	users := &mockUserRepo{users: []models.User{{ID: studentViewer.ID, Name: studentViewer.Name, Reputation: 42}}}
	repo := &mockPostRepo{}
	svc := NewPostService(repo, users, store, storage.NewSignedURLSigner("secret", time.Hour), nil, nil)
	svc.now = fixedClock
	return svc, repo
}

func TestPostServiceCreateTitleFallbacks(t *testing.T) {
	svc, _ := newPostFixture(t)
	ctx := context.Background()

	long := strings.Repeat("Tổng hợp công thức ", 5)
	post, err := svc.Create(ctx, studentViewer, models.CreatePostRequest{Content: long}, nil)
	require.NoError(t, err)
	assert.Equal(t, []rune(long)[:50], []rune(strings.TrimSuffix(post.Title, "..."))[:50])
	assert.True(t, strings.HasSuffix(post.Title, "..."))
	assert.Equal(t, 42, post.AuthorReputation)
	assert.Equal(t, "OTHER", post.Category)

	withFile, err := svc.Create(ctx, studentViewer, models.CreatePostRequest{}, &Upload{Name: "notes.txt", Reader: strings.NewReader("plain text")})
	require.NoError(t, err)
	assert.Equal(t, "Tài liệu chia sẻ", withFile.Title)
	assert.Equal(t, models.AttachmentFile, withFile.AttachmentType)
	assert.Equal(t, "notes.txt", withFile.AttachmentName)

	image, err := svc.Create(ctx, studentViewer, models.CreatePostRequest{Title: "Sơ đồ"}, &Upload{Name: "map.png", Reader: bytes.NewReader(pngBytes)})
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentImage, image.AttachmentType)

	_, err = svc.Create(ctx, studentViewer, models.CreatePostRequest{Content: "   "}, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPostServiceToggleLikeAndComment(t *testing.T) {
	svc, _ := newPostFixture(t)
	ctx := context.Background()
	post, err := svc.Create(ctx, teacherViewer, models.CreatePostRequest{Title: "Đề cương"}, nil)
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, studentViewer, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)
	assert.True(t, liked.LikedByUser(studentViewer.ID))

	unliked, err := svc.ToggleLike(ctx, studentViewer, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.Likes)
	assert.Empty(t, unliked.LikedBy)

	comment, err := svc.Comment(ctx, studentViewer, post.ID, models.CommentRequest{Content: "Cảm ơn cô"})
	require.NoError(t, err)
	stored, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, comment.ID, stored.Comments[0].ID)

	_, err = svc.ToggleLike(ctx, studentViewer, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPostServiceDownloadAndDelete(t *testing.T) {
	svc, repo := newPostFixture(t)
	ctx := context.Background()
	post, err := svc.Create(ctx, studentViewer, models.CreatePostRequest{Title: "Ghi chú"}, &Upload{Name: "notes.txt", Reader: strings.NewReader("plain text")})
	require.NoError(t, err)

	link, err := svc.DownloadLink(ctx, post.ID)
	require.NoError(t, err)
	file, name, err := svc.OpenDownload(ctx, link.Token)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "plain text", string(content))
	assert.Equal(t, "notes.txt", name)

	_, _, err = svc.OpenDownload(ctx, "forged.token")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, teacherViewer, post.ID), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, studentViewer, post.ID))
	assert.Empty(t, repo.items)

	_, _, err = svc.OpenDownload(ctx, link.Token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
