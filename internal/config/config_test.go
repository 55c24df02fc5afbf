package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colabwize/api/internal/quota"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8787", cfg.Addr)
	assert.Equal(t, quota.PlanFree, cfg.DefaultPlan)
	assert.Equal(t, 24*time.Hour, cfg.BypassTTL)
	assert.Equal(t, 60*time.Second, cfg.AuditTimeout)
	assert.False(t, cfg.Production())
	assert.Empty(t, cfg.MeiliURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("DEFAULT_PLAN", "researcher")
	t.Setenv("AUDIT_TIMEOUT_SECONDS", "5")
	t.Setenv("BYPASS_TTL_HOURS", "2")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MEILI_URL", "http://meili:7700")
	t.Setenv("REDIS_URL", "redis://redis:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, quota.PlanResearcher, cfg.DefaultPlan)
	assert.Equal(t, 5*time.Second, cfg.AuditTimeout)
	assert.Equal(t, 2*time.Hour, cfg.BypassTTL)
	assert.True(t, cfg.Production())
	assert.Equal(t, "http://meili:7700", cfg.MeiliURL)
	assert.Equal(t, "redis://redis:6379/0", cfg.RedisURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("DEFAULT_PLAN", "platinum")
	_, err := Load()
	assert.ErrorIs(t, err, quota.ErrUnknownPlan)

	t.Setenv("DEFAULT_PLAN", "free")
	t.Setenv("AUDIT_TIMEOUT_SECONDS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadSMTP(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "quota@colabwize.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, "587", cfg.SMTPPort)
	assert.Equal(t, "quota@colabwize.test", cfg.SMTPFrom)
}
