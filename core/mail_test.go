package core_test

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core"
	testutil "github.com/trezcool/eadtoolz/tests"
)

func TestParseEmailTemplates(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	require.NoError(t, core.ParseEmailTemplates(conf, logger))
	assert.False(t, logger.Has("ERROR", "parsing email template"))

	msg := core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@test.cd"}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct{ Name, UID, Token string }{Name: "Ada", UID: "uid42", Token: "tok-en"},
	}
	require.NoError(t, msg.Render())
	assert.True(t, msg.HasContent())

	tests := []struct {
		name    string
		content string
	}{
		{name: "text", content: msg.TextContent},
		{name: "html", content: msg.HTMLContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// base layout
			assert.Contains(t, tt.content, "Hi Ada,")
			assert.Contains(t, tt.content, "The "+conf.AppName+" team")
			// content block
			assert.Contains(t, tt.content, conf.FrontendBaseURL+"/password-reset/uid42/tok-en")
		})
	}
}
