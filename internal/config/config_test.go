package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "SESSION_LAST_VIEW_KEY", "SESSION_PERMANENT_KEY", "SESSION_TTL", "RELOAD_INTERVAL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, DefaultLastViewKey, cfg.Session.LastViewKey)
	assert.Equal(t, DefaultPermanentKey, cfg.Session.PermanentKey)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval)
	assert.False(t, cfg.AnalyticsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_LAST_VIEW_KEY", "seen_today")
	t.Setenv("SESSION_TTL", "3600")
	t.Setenv("RELOAD_INTERVAL", "1m")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")
	t.Setenv("ANALYTICS_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, "seen_today", cfg.Session.LastViewKey)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, time.Minute, cfg.ReloadInterval)
	assert.Equal(t, 0.25, cfg.TracingSampleRate)
	assert.True(t, cfg.AnalyticsEnabled)
}

func TestEnvHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, time.Second, envDuration("X_DUR", time.Second))
}
