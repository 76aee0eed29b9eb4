package logsvc

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/tests"
)

func TestRollbarLogger_prepare(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), testutil.NewConfig())
	logger.Enable(false)

	err := errors.New("boom")
	extras := map[string]interface{}{"path": "/admin"}
	ada := session.Principal{ID: "ada", Email: "ada@test.cd", DisplayName: "Ada"}
	bob := session.Principal{ID: "bob", Email: "bob@test.cd", DisplayName: "Bob"}

	personOf := func(t *testing.T, args []interface{}) *rollbar.Person {
		t.Helper()
		var found *rollbar.Person
		for _, arg := range args {
			if ctx, ok := arg.(context.Context); ok {
				p, ok := rollbar.PersonFromContext(ctx)
				require.True(t, ok)
				require.Nil(t, found, "a single context per item")
				found = p
			}
		}
		return found
	}

	tests := []struct {
		name       string
		args       []interface{}
		wantArgs   []interface{}
		wantPerson *rollbar.Person
	}{
		{name: "no principal", args: []interface{}{err, extras}, wantArgs: []interface{}{"msg", err, extras}},
		{name: "nil principal", args: []interface{}{err, (*session.Principal)(nil)}, wantArgs: []interface{}{"msg", err}},
		{
			name:       "principal",
			args:       []interface{}{err, ada},
			wantArgs:   []interface{}{"msg", err},
			wantPerson: &rollbar.Person{Id: "ada", Username: "Ada", Email: "ada@test.cd"},
		},
		{
			name:       "first principal wins",
			args:       []interface{}{&bob, err, ada},
			wantArgs:   []interface{}{"msg", err},
			wantPerson: &rollbar.Person{Id: "bob", Username: "Bob", Email: "bob@test.cd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := logger.prepare("msg", tt.args)
			assert.Equal(t, tt.wantPerson, personOf(t, got))

			var rest []interface{}
			for _, arg := range got {
				if _, ok := arg.(context.Context); !ok {
					rest = append(rest, arg)
				}
			}
			assert.Equal(t, tt.wantArgs, rest)
		})
	}

	t.Run("items do not share a person", func(t *testing.T) {
		assert.NotNil(t, personOf(t, logger.prepare("msg", []interface{}{ada})))
		assert.Nil(t, personOf(t, logger.prepare("msg", nil)))
	})

	t.Run("prints", func(t *testing.T) {
		buf.Reset()
		logger.Warn("careful", ada)
		assert.Contains(t, buf.String(), "WARN: careful")
	})
}
