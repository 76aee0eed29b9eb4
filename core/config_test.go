package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENV", "")

		conf := NewConfig()
		assert.Equal(t, "DEV", conf.Env)
		assert.True(t, conf.Debug)
		assert.False(t, conf.TestMode)
		assert.Equal(t, EngineMemory, conf.Database.Engine)
		assert.Equal(t, 5*time.Second, conf.Session.ResolveTimeout)
		assert.Equal(t, "localhost:5432", conf.Database.Address())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ENV", "test")
		t.Setenv("TEST_DEBUG", "false")
		t.Setenv("TEST_DATABASE_ENGINE", "Mongo")
		t.Setenv("TEST_DATABASE_PORT", "27017")
		t.Setenv("TEST_SESSION_RESOLVETIMEOUT", "250ms")
		t.Setenv("TEST_FRONTENDBASEURL", "https://eadtoolz.test/")

		conf := NewConfig()
		assert.Equal(t, "TEST", conf.Env)
		assert.False(t, conf.Debug)
		assert.True(t, conf.TestMode)
		assert.Equal(t, EngineMongo, conf.Database.Engine)
		assert.Equal(t, 27017, conf.Database.Port)
		assert.Equal(t, 250*time.Millisecond, conf.Session.ResolveTimeout)
		assert.Equal(t, "https://eadtoolz.test", conf.FrontendBaseURL)
	})
}
