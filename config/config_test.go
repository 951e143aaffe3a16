package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/scy"

	"github.com/mechapengu/postpilot/config"
	"github.com/mechapengu/postpilot/policy"
)

// clearEnv blanks every variable the loader consults so the surrounding
// shell cannot leak values into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"XAI_API_KEY", "FAL_KEY",
		"TWITTER_API_KEY", "TWITTER_API_SECRET", "TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_TOKEN_SECRET",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_APPROVAL", "TEST_MODE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "grok-4", cfg.XAI.Model)
	assert.Equal(t, "https://api.x.ai/v1", cfg.XAI.BaseURL)
	assert.Equal(t, "fal-ai/flux-pro", cfg.Fal.Model)
	assert.Equal(t, policy.ModeRequired, cfg.Approval.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Approval.Timeout)
	assert.Equal(t, time.Hour, cfg.Schedule.SleepMin)
	assert.Equal(t, 3*time.Hour, cfg.Schedule.SleepMax)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ErrorBackoff)
	assert.Equal(t, 3, cfg.Schedule.HistoryContext)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Contains(t, cfg.PendingURL(), "pending_drafts.json")
	assert.Contains(t, cfg.HistoryURL(), "history.json")
}

func TestLoadTOMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "postpilot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
dry_run = true
log_level = "debug"

[xai]
api_key = "file-xai-key"
model = "grok-3"

[telegram]
token = "file-token"
chat_id = 4242

[approval]
mode = "optional"
timeout = "90m"

[schedule]
sleep_min = "10m"
sleep_max = "20m"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-xai-key", cfg.XAI.APIKey)
	assert.Equal(t, "grok-3", cfg.XAI.Model)
	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, int64(4242), cfg.Telegram.ChatID)
	assert.Equal(t, policy.ModeOptional, cfg.Approval.Mode)
	assert.Equal(t, 90*time.Minute, cfg.Approval.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.SleepMin)
	assert.Equal(t, 20*time.Minute, cfg.Schedule.SleepMax)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 30*time.Second, cfg.Schedule.ErrorBackoff, "dry run shortens the default error backoff")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTPILOT_XAI__API_KEY", "env-xai-key")
	t.Setenv("POSTPILOT_APPROVAL__MODE", "disabled")
	t.Setenv("POSTPILOT_TELEGRAM__CHAT_ID", "77")
	t.Setenv("POSTPILOT_DRY_RUN", "true")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-xai-key", cfg.XAI.APIKey)
	assert.Equal(t, policy.ModeDisabled, cfg.Approval.Mode)
	assert.Equal(t, int64(77), cfg.Telegram.ChatID)
	assert.True(t, cfg.DryRun)
}

func TestLegacyEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("XAI_API_KEY", "legacy-xai")
	t.Setenv("FAL_KEY", "legacy-fal")
	t.Setenv("TWITTER_API_KEY", "ck")
	t.Setenv("TWITTER_API_SECRET", "cs")
	t.Setenv("TWITTER_ACCESS_TOKEN", "at")
	t.Setenv("TWITTER_ACCESS_TOKEN_SECRET", "as")
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy-token")
	t.Setenv("TELEGRAM_CHAT_ID", "99")
	t.Setenv("TELEGRAM_APPROVAL", "false")
	t.Setenv("TEST_MODE", "true")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "legacy-xai", cfg.XAI.APIKey)
	assert.Equal(t, "legacy-fal", cfg.Fal.APIKey)
	assert.Equal(t, "ck", cfg.X.APIKey)
	assert.Equal(t, "cs", cfg.X.APISecret)
	assert.Equal(t, "at", cfg.X.AccessToken)
	assert.Equal(t, "as", cfg.X.AccessTokenSecret)
	assert.Equal(t, "legacy-token", cfg.Telegram.Token)
	assert.Equal(t, int64(99), cfg.Telegram.ChatID)
	assert.Equal(t, policy.ModeDisabled, cfg.Approval.Mode)
	assert.True(t, cfg.DryRun)
	require.NoError(t, cfg.Validate())
}

func TestConfiguredValuesWinOverLegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("XAI_API_KEY", "legacy-xai")
	t.Setenv("POSTPILOT_XAI__API_KEY", "explicit-xai")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit-xai", cfg.XAI.APIKey)
}

func TestEnvExpressionExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_VAULTED_KEY", "expanded-secret")
	path := filepath.Join(t.TempDir(), "postpilot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[xai]
api_key = "${env.MY_VAULTED_KEY}"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.XAI.APIKey)
}

func TestValidateReportsAllProblemsAtOnce(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, fragment := range []string{
		"xai.api_key", "fal.api_key",
		"x.api_key", "x.api_secret", "x.access_token", "x.access_token_secret",
		"telegram.token", "telegram.chat_id",
	} {
		assert.ErrorContains(t, err, fragment)
	}
}

func TestValidateDryRunSkipsPublisherCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTPILOT_DRY_RUN", "true")
	t.Setenv("POSTPILOT_APPROVAL__MODE", "disabled")
	t.Setenv("XAI_API_KEY", "k1")
	t.Setenv("FAL_KEY", "k2")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvalidMode(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Approval.Mode = "sometimes"

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "sometimes")
}

func TestLoadSecretsOverridesCredentials(t *testing.T) {
	clearEnv(t)
	dest := filepath.Join(t.TempDir(), "credentials.enc")
	resource := scy.NewResource(nil, dest, "blowfish://default")
	payload := `{"XAI_API_KEY":"vault-xai","TELEGRAM_BOT_TOKEN":"vault-token","TELEGRAM_CHAT_ID":"1001"}`
	require.NoError(t, scy.New().Store(context.Background(), scy.NewSecret(payload, resource)))

	cfg := &config.Config{SecretsURL: dest, SecretsKey: "blowfish://default"}
	cfg.XAI.APIKey = "will-be-replaced"
	require.NoError(t, cfg.LoadSecrets(context.Background()))

	assert.Equal(t, "vault-xai", cfg.XAI.APIKey)
	assert.Equal(t, "vault-token", cfg.Telegram.Token)
	assert.Equal(t, int64(1001), cfg.Telegram.ChatID)
}

func TestLoadSecretsNoopWithoutURL(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, cfg.LoadSecrets(context.Background()))
}
