package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/profile"
	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/storage/database/inmem"
	"github.com/trezcool/eadtoolz/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	store := inmemdb.NewRecordStore(inmemdb.Open())
	svc := profile.NewService(store, testutil.NewValidator())

	created := time.Date(2021, 1, 10, 9, 0, 0, 0, time.UTC)
	_, err := store.CreateIfAbsent(ctx, core.CollectionUsers, "t1", session.NewRoleRecord(session.Principal{ID: "t1", Email: "teacher@test.cd"}, created))
	require.NoError(t, err)
	testutil.SetRole(t, store, "t1", session.RoleTeacher)

	t.Run("get", func(t *testing.T) {
		p, err := svc.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "teacher@test.cd", p.Email)
		assert.Equal(t, session.RoleTeacher, p.Role)
		assert.Equal(t, created, p.CreatedAt)

		_, err = svc.Get(ctx, "nobody")
		assert.Equal(t, profile.ErrNotFound, err)
	})

	tests := []struct {
		name       string
		id         string
		upd        profile.Update
		wantErr    error
		wantFields []string
	}{
		{name: "missing name", id: "t1", upd: profile.Update{Bio: "hi"}, wantFields: []string{"name"}},
		{name: "blank name", id: "t1", upd: profile.Update{Name: "   "}, wantFields: []string{"name"}},
		{name: "bad avatar", id: "t1", upd: profile.Update{Name: "Ted", AvatarURL: "not a url"}, wantFields: []string{"avatar_url"}},
		{name: "unknown principal", id: "nobody", upd: profile.Update{Name: "Ted"}, wantErr: profile.ErrNotFound},
		{name: "valid", id: "t1", upd: profile.Update{Name: " Ted ", Bio: "Maths", Phone: "+243 81 000 0000", AvatarURL: "https://cdn.test/ted.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Update(ctx, tt.id, tt.upd)
			switch {
			case tt.wantFields != nil:
				var fields []string
				if vErr, ok := err.(*core.ValidationError); assert.True(t, ok, "err = %v", err) {
					for _, f := range vErr.Fields {
						fields = append(fields, f.Field)
					}
				}
				assert.Equal(t, tt.wantFields, fields)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, "Ted", p.Name)
				assert.Equal(t, "Maths", p.Bio)
				assert.Equal(t, session.RoleTeacher, p.Role, "role is not editable")
				assert.Equal(t, "teacher@test.cd", p.Email)
				assert.False(t, p.UpdatedAt.IsZero())
			}
		})
	}
}
