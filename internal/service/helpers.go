package service

import (
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func invalid(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func requirePrivileged(viewer models.Viewer, message string) error {
	if !viewer.Role.IsPrivileged() {
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return nil
}

// persistenceOnly reports whether err is a failed save after memory was updated.
func persistenceOnly(err error) bool {
	return errors.Is(err, appErrors.ErrPersistence) || errors.Is(err, appErrors.ErrPayloadTooLarge)
}

// truncateRunes cuts s to n runes and appends suffix when shortened.
func truncateRunes(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + suffix
}

func newValidator(v *validator.Validate) *validator.Validate {
	if v != nil {
		return v
	}
	return validator.New()
}

func defaultAvatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(strings.TrimSpace(name))
}
