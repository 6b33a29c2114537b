package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

func newAuthFixture(t *testing.T, approved bool) (*AuthService, *mockUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("matkhau123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockUserRepo{users: []models.User{{
		ID:           "s1",
		Name:         "Nguyễn Văn An",
		Username:     "an.nguyen",
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		ClassName:    "10.1",
		IsApproved:   approved,
	}}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "pedagosys"})
	svc.now = fixedClock
	return svc, repo
}

func TestAuthServiceLoginIssuesViewerClaims(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "an.nguyen", Password: "matkhau123"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Empty(t, resp.User.PasswordHash)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Viewer{ID: "s1", Name: "Nguyễn Văn An", Role: models.RoleStudent, ClassName: "10.1"}, claims.Viewer())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _ := newAuthFixture(t, false)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "an.nguyen", Password: "sai"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "khong.co", Password: "matkhau123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "an.nguyen", Password: "matkhau123"})
	assert.ErrorIs(t, err, appErrors.ErrPendingApproval)

	_, err = svc.Login(ctx, models.LoginRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateTokenExpiry(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "an.nguyen", Password: "matkhau123"})
	require.NoError(t, err)

	svc.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
