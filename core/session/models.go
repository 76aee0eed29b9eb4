package session

import (
	"time"

	"github.com/trezcool/eadtoolz/core"
)

// Role is the access role stored on a principal's role record.
type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"

	// DefaultRole is silently granted to principals signing in without a role record.
	DefaultRole = RoleStudent
)

// Roles lists every known role, highest privilege first.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Principal is an authenticated identity, as reported by the auth provider.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// State is an immutable snapshot of a client's session.
// A nil Principal with IsResolving unset means signed out.
type State struct {
	Principal   *Principal `json:"principal"`
	Role        Role       `json:"role,omitempty"`
	IsResolving bool       `json:"is_resolving"`
}

// SignedIn reports whether s holds a resolved principal.
func (s State) SignedIn() bool {
	return s.Principal != nil && !s.IsResolving
}

// Role record fields
const (
	FieldRole      = "role"
	FieldEmail     = "email"
	FieldName      = "name"
	FieldBio       = "bio"
	FieldPhone     = "phone"
	FieldAvatarURL = "avatar_url"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// NewRoleRecord returns the default role record of a principal signing in for the first time.
func NewRoleRecord(p Principal, now time.Time) core.Document {
	doc := core.Document{
		FieldEmail:     p.Email,
		FieldRole:      string(DefaultRole),
		FieldCreatedAt: now.UTC(),
	}
	if p.DisplayName != "" {
		doc[FieldName] = p.DisplayName
	}
	if p.AvatarURL != "" {
		doc[FieldAvatarURL] = p.AvatarURL
	}
	return doc
}

// RecordRole returns the role stored on doc, verbatim.
// A missing, empty or non-string role is DefaultRole.
func RecordRole(doc core.Document) Role {
	if role := Role(doc.String(FieldRole)); role != "" {
		return role
	}
	return DefaultRole
}
