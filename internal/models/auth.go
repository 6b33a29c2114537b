package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        User      `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	ClassName string   `json:"class_name,omitempty"`
	jwt.RegisteredClaims
}

// Viewer rebuilds the caller from token claims.
func (c *JWTClaims) Viewer() Viewer {
	return Viewer{ID: c.UserID, Name: c.Name, AvatarURL: c.AvatarURL, Role: c.Role, ClassName: c.ClassName}
}
