package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"opt-eligibility/internal/eligibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ==========================
// Loader Tests
// ==========================

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "app:\n  name: opt-check\n"))
	require.NoError(t, err)

	assert.Equal(t, "opt-check", cfg.App.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ":8000", cfg.Server.Address())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Camunda.Enabled)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, "info", cfg.Logging.Level)

	policy, err := cfg.Rules.Policy()
	require.NoError(t, err)
	assert.Equal(t, eligibility.DefaultPolicy().DateWindow, policy.DateWindow)
	assert.Equal(t, eligibility.DefaultPolicy().UnemploymentCaps, policy.UnemploymentCaps)
	assert.Equal(t, eligibility.DefaultPolicy().ExtensionDegrees, policy.ExtensionDegrees)
	assert.True(t, policy.StemGating)
	assert.False(t, policy.PreCompletionRequiresFutureEnd)
}

func TestLoadFromFile_RulesSection(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
rules:
  date_window:
    past_days: 30
    future_days: 180
  unemployment_caps:
    Pre: 90
    Post: 90
    STEM: 120
  extension_degrees: [Master, PhD]
  pre_completion_requires_future_end: true
  timezone: America/New_York
`))
	require.NoError(t, err)

	policy, err := cfg.Rules.Policy()
	require.NoError(t, err)
	assert.Equal(t, eligibility.DateWindow{PastDays: 30, FutureDays: 180}, policy.DateWindow)
	assert.Equal(t, 120, policy.Cap(eligibility.StageStemExtension))
	assert.Equal(t, []eligibility.DegreeLevel{eligibility.DegreeMaster, eligibility.DegreePhD}, policy.ExtensionDegrees)
	assert.True(t, policy.PreCompletionRequiresFutureEnd)
	assert.Equal(t, "America/New_York", policy.Location.String())
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("REDIS_HOST_FOR_TEST", "cache:6379")

	cfg, err := LoadFromFile(writeConfig(t, `
database:
  redis:
    address: ${REDIS_HOST_FOR_TEST}
`))
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "cache:6379", cfg.Database.Redis.Address)
	assert.Equal(t, 60*time.Second, GetDuration(cfg.RateLimit.Window))
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "camunda enabled without broker",
			body: "camunda:\n  enabled: true\n",
		},
		{
			name: "rate limit without redis",
			body: "rate_limit:\n  enabled: true\n",
		},
		{
			name: "unknown stage cap",
			body: "rules:\n  unemployment_caps:\n    pre: 90\n    post: 90\n    stem: 150\n    cap: 10\n",
		},
		{
			name: "unknown extension degree",
			body: "rules:\n  extension_degrees: [Associate]\n",
		},
		{
			name: "missing window bound",
			body: "rules:\n  date_window:\n    past_days: 0\n",
		},
		{
			name: "bad timezone",
			body: "rules:\n  timezone: Mars/Olympus\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_RepositoryConfig(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "")
	t.Setenv("REDIS_PASSWORD", "")

	cfg, err := LoadFromFile(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Empty(t, cfg.Database.Redis.Password, "unset variables expand to empty strings")
	assert.True(t, IsWorkerEnabled(cfg, "check-opt-eligibility"))
	assert.Equal(t, 20, GetWorkerConfig(cfg, "check-opt-eligibility").MaxJobsActive)

	policy, err := cfg.Rules.Policy()
	require.NoError(t, err)
	defaults := eligibility.DefaultPolicy()
	assert.Equal(t, defaults.DateWindow, policy.DateWindow)
	assert.Equal(t, defaults.UnemploymentCaps, policy.UnemploymentCaps)
	assert.Equal(t, defaults.ExtensionDegrees, policy.ExtensionDegrees)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// ==========================
// Helper Tests
// ==========================

func TestRulesConfig_PolicyMissingCap(t *testing.T) {
	rules := RulesConfig{
		DateWindow:       DateWindowConfig{PastDays: 60, FutureDays: 365},
		UnemploymentCaps: map[string]int{"pre": 90, "post": 90},
		ExtensionDegrees: []string{"Master"},
	}

	_, err := rules.Policy()
	assert.ErrorIs(t, err, eligibility.ErrPolicyMisconfigured)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"check-opt-eligibility": {Enabled: false, MaxJobsActive: 2, Timeout: 1000},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "check-opt-eligibility").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "check-opt-eligibility"))
	assert.True(t, IsWorkerEnabled(cfg, "other"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "other").Timeout)
}
