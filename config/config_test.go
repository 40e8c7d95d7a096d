package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/admissions")
	t.Setenv("AUTH_JWT_SECRET", "dev-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 168*time.Hour, cfg.Admission.OfferValidity)
	assert.Equal(t, 500, cfg.Admission.MaxTake)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 5*time.Second, cfg.Observability.HealthCheckTimeout)
	assert.True(t, cfg.Features.Enabled(FeatureLeaderboardCache))
	assert.False(t, cfg.Features.Enabled(FeatureSlackArchive))
}

func TestLoad_DatabaseFromParts(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "dev-secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db:5432/admissions?sslmode=disable", cfg.Database.URL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMISSION_OFFER_VALIDITY", "72h")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_DISABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, cfg.Admission.OfferValidity)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.Redis.Disabled)
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "short")
	t.Setenv("ADMISSION_OFFER_VALIDITY", "0s")
	t.Setenv("HTTP_PORT", "70000")
	t.Setenv("FEATURE_SLACK_ARCHIVE", "true")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL")
	assert.Contains(t, msg, "at least 32 bytes")
	assert.Contains(t, msg, "ADMISSION_OFFER_VALIDITY")
	assert.Contains(t, msg, "HTTP_PORT")
	assert.Contains(t, msg, "SLACK_BOT_TOKEN")
}

func TestLoadWorker(t *testing.T) {
	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.URL)

	t.Setenv("FEATURE_SLACK_ARCHIVE", "1")
	_, err = LoadWorker()
	assert.Error(t, err)

	t.Setenv("SLACK_BOT_TOKEN", "xoxb-1")
	cfg, err = LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "xoxb-1", cfg.Slack.BotToken)
}
