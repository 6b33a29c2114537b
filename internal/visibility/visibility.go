// Package visibility decides which audience-targeted records a viewer may see.
package visibility

import "github.com/noah-isme/pedagosys-api/internal/models"

// Scoped is implemented by records that target an audience.
type Scoped interface {
	Scope() (audience models.Audience, authorID string)
}

// IsVisible reports whether viewer may see item. Elevated viewers and the
// author always see it.
func IsVisible(item Scoped, viewer models.Viewer) bool {
	audience, authorID := item.Scope()
	if viewer.Role.IsElevated() || (authorID != "" && authorID == viewer.ID) {
		return true
	}
	switch audience.Kind {
	case models.AudienceAll:
		return true
	case models.AudienceRole:
		return audience.Value == string(viewer.Role)
	case models.AudienceClass:
		return viewer.ClassName != "" && audience.Value == viewer.ClassName
	}
	return false
}

// FilterVisible keeps the items viewer may see, preserving order.
func FilterVisible[T Scoped](items []T, viewer models.Viewer) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if IsVisible(item, viewer) {
			out = append(out, item)
		}
	}
	return out
}
