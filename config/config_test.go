package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/botf_test")
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30m")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.IsProduction())

	every, err := cfg.SweepEvery()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, every)
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	assert.Equal(t, ErrMissingDatabaseURL, err)
}

func TestLoadConfig_RejectsBadSweepInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/botf_test")
	t.Setenv("SWEEP_INTERVAL", "hourly")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/botf_test")
	t.Setenv("ENV", "production")

	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_SECRET", "cookie-key")
	_, err := LoadConfig()
	assert.EqualError(t, err, "JWT_SECRET is required in production")

	t.Setenv("JWT_SECRET", "jwt-key")
	t.Setenv("SESSION_SECRET", DevSessionSecret)
	_, err = LoadConfig()
	assert.EqualError(t, err, "SESSION_SECRET must be set in production")

	t.Setenv("SESSION_SECRET", "cookie-key")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRecoveryPolicy_Defaults(t *testing.T) {
	policy, err := LoadRecoveryPolicy("")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRecoveryPolicy(), policy)
}

func TestLoadRecoveryPolicy_OverridesOnlyGivenFields(t *testing.T) {
	path := writePolicy(t, `
abandonment:
  from: 2h
  to: 48h
expire_after: 120h
discount_percentage: 15
`)

	policy, err := LoadRecoveryPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, models.Window{From: 2 * time.Hour, To: 48 * time.Hour}, policy.Abandonment)
	assert.Equal(t, 120*time.Hour, policy.ExpireAfter)
	assert.Equal(t, 15, policy.DiscountPercentage)
	assert.Equal(t, models.DefaultRecoveryPolicy().SecondReminder, policy.SecondReminder)
	assert.Equal(t, 3, policy.DiscountSequence)
}

func TestLoadRecoveryPolicy_RejectsInvalidWindows(t *testing.T) {
	path := writePolicy(t, `
third_reminder:
  from: 96h
  to: 72h
`)

	_, err := LoadRecoveryPolicy(path)
	assert.Error(t, err)
}

func TestLoadRecoveryPolicy_MissingFile(t *testing.T) {
	_, err := LoadRecoveryPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
