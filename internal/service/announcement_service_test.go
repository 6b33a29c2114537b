package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/storage"
)

type mockAnnouncementRepo struct {
	mu    sync.Mutex
	items []models.Announcement
}

func (m *mockAnnouncementRepo) List(ctx context.Context) ([]models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Announcement{}, m.items...), nil
}

func (m *mockAnnouncementRepo) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
}

func (m *mockAnnouncementRepo) Create(ctx context.Context, a models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]models.Announcement{a}, m.items...)
	return nil
}

func (m *mockAnnouncementRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.items[:0]
	for _, a := range m.items {
		if a.ID != id {
			out = append(out, a)
		}
	}
	m.items = out
	return nil
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestAnnouncementServiceCreate(t *testing.T) {
	repo := &mockAnnouncementRepo{}
	store, err := storage.NewLocalStorage(t.TempDir(), 1024, nil)
	require.NoError(t, err)
	svc := NewAnnouncementService(repo, store, nil, nil)
	svc.now = fixedClock

	content := strings.Repeat("Thông báo lịch thi học kỳ. ", 10)
	created, err := svc.Create(context.Background(), teacherViewer, models.CreateAnnouncementRequest{
		Title:    "Lịch thi",
		Content:  content,
		Audience: models.RoleAudience(models.RoleStudent),
	}, &Upload{Name: "cover.png", Reader: bytes.NewReader(pngBytes)})
	require.NoError(t, err)

	assert.Equal(t, 81, utf8.RuneCountInString(created.Summary))
	assert.True(t, strings.HasSuffix(created.Summary, "…"))
	assert.Contains(t, models.ColorThemes, created.ColorTheme)
	assert.Equal(t, "announcements/"+created.ID+"/cover.png", created.ImageURL)
	assert.Equal(t, testNow, created.Timestamp)

	short, err := svc.Create(context.Background(), adminViewer, models.CreateAnnouncementRequest{
		Title: "Nghỉ lễ", Content: "Nghỉ 2/9", Audience: models.EveryoneAudience(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nghỉ 2/9", short.Summary)
}

func TestAnnouncementServiceCreateValidation(t *testing.T) {
	svc := NewAnnouncementService(&mockAnnouncementRepo{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, teacherViewer, models.CreateAnnouncementRequest{
		Title: "Họp lớp", Content: "Tối nay", Audience: models.Audience{Kind: models.AudienceClass},
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, teacherViewer, models.CreateAnnouncementRequest{
		Title: "  ", Content: "Tối nay", Audience: models.EveryoneAudience(),
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, studentViewer, models.CreateAnnouncementRequest{
		Title: "Họp lớp", Content: "Tối nay", Audience: models.EveryoneAudience(),
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAnnouncementServiceListAndDelete(t *testing.T) {
	repo := &mockAnnouncementRepo{items: []models.Announcement{
		{ID: "a1", AuthorID: teacherViewer.ID, Audience: models.ClassAudience("10.1")},
		{ID: "a2", AuthorID: teacherViewer.ID, Audience: models.RoleAudience(models.RoleTeacher)},
		{ID: "a3", AuthorID: "t2", Audience: models.EveryoneAudience()},
	}}
	svc := NewAnnouncementService(repo, nil, nil, nil)
	ctx := context.Background()

	visible, err := svc.List(ctx, studentViewer)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "a1", visible[0].ID)
	assert.Equal(t, "a3", visible[1].ID)

	assert.ErrorIs(t, svc.Delete(ctx, teacherViewer, "a3"), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, teacherViewer, "a1"))
	require.NoError(t, svc.Delete(ctx, adminViewer, "a3"))
	assert.ErrorIs(t, svc.Delete(ctx, adminViewer, "a3"), appErrors.ErrNotFound)
	assert.Len(t, repo.items, 1)
}

func TestAnnouncementServiceOpenImage(t *testing.T) {
	repo := &mockAnnouncementRepo{}
	store, err := storage.NewLocalStorage(t.TempDir(), 1024, nil)
	require.NoError(t, err)
	svc := NewAnnouncementService(repo, store, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, teacherViewer, models.CreateAnnouncementRequest{
		Title: "Họp GV", Content: "Phòng hội đồng", Audience: models.RoleAudience(models.RoleTeacher),
	}, &Upload{Name: "cover.png", Reader: bytes.NewReader(pngBytes)})
	require.NoError(t, err)

	file, err := svc.OpenImage(ctx, teacherViewer, created.ID)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = svc.OpenImage(ctx, studentViewer, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	linked, err := svc.Create(ctx, teacherViewer, models.CreateAnnouncementRequest{
		Title: "Tin", Content: "Xem ảnh", Audience: models.EveryoneAudience(), ImageURL: "https://example.com/a.png",
	}, nil)
	require.NoError(t, err)
	_, err = svc.OpenImage(ctx, studentViewer, linked.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
