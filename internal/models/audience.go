package models

import "strings"

// AudienceKind selects how an audience value is matched.
type AudienceKind string

const (
	AudienceAll   AudienceKind = "ALL"
	AudienceRole  AudienceKind = "ROLE"
	AudienceClass AudienceKind = "CLASS"
)

// Audience targets content at everyone, one role or one class.
type Audience struct {
	Kind  AudienceKind `json:"kind" validate:"required,oneof=ALL ROLE CLASS"`
	Value string       `json:"value,omitempty"`
}

// EveryoneAudience targets all viewers.
func EveryoneAudience() Audience { return Audience{Kind: AudienceAll} }

// RoleAudience targets viewers holding role.
func RoleAudience(role UserRole) Audience { return Audience{Kind: AudienceRole, Value: string(role)} }

// ClassAudience targets viewers enrolled in className.
func ClassAudience(className string) Audience {
	return Audience{Kind: AudienceClass, Value: className}
}

// ParseTargetAudience maps the assignment form value, "ALL" or a class id.
func ParseTargetAudience(target string) Audience {
	target = strings.TrimSpace(target)
	if target == "" || strings.EqualFold(target, string(AudienceAll)) {
		return EveryoneAudience()
	}
	return ClassAudience(target)
}

// Complete reports whether scoped kinds carry a value.
func (a Audience) Complete() bool {
	switch a.Kind {
	case AudienceAll:
		return true
	case AudienceRole:
		return UserRole(a.Value).Valid()
	case AudienceClass:
		return strings.TrimSpace(a.Value) != ""
	}
	return false
}
