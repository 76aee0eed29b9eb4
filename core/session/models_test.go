package session

import (
	"testing"
	"time"

	"github.com/trezcool/eadtoolz/core"
)

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleTeacher, true},
		{RoleStudent, true},
		{"", false},
		{"Admin", false},
		{"superuser", false},
	}
	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v; want %v", tt.role, got, tt.want)
		}
	}
}

func TestNewRoleRecord(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("WAT", 3600))
	doc := NewRoleRecord(Principal{ID: "p1", Email: "p1@test.cd"}, now)

	if got := RecordRole(doc); got != RoleStudent {
		t.Errorf("RecordRole() = %q; want %q", got, RoleStudent)
	}
	if got := doc.Time(FieldCreatedAt); !got.Equal(now) || got.Location() != time.UTC {
		t.Errorf("created_at = %v; want %v in UTC", got, now)
	}
	if _, ok := doc[FieldName]; ok {
		t.Error("name must be omitted when the principal has no display name")
	}
}

func TestRecordRole(t *testing.T) {
	tests := []struct {
		name string
		doc  core.Document
		want Role
	}{
		{name: "stored role", doc: core.Document{FieldRole: "teacher"}, want: RoleTeacher},
		{name: "unknown role is kept", doc: core.Document{FieldRole: "superuser"}, want: "superuser"},
		{name: "no role", doc: core.Document{FieldEmail: "p1@test.cd"}, want: DefaultRole},
		{name: "empty role", doc: core.Document{FieldRole: ""}, want: DefaultRole},
		{name: "non-string role", doc: core.Document{FieldRole: 42}, want: DefaultRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordRole(tt.doc); got != tt.want {
				t.Errorf("RecordRole() = %q; want %q", got, tt.want)
			}
		})
	}
}
