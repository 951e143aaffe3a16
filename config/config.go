// Package config loads and validates the bot configuration. Values are
// layered: built-in defaults, then an optional TOML file, then POSTPILOT_*
// environment overrides, then the legacy flat environment variables the
// original deployment used (XAI_API_KEY, FAL_KEY, TWITTER_*, TELEGRAM_*).
// String values may embed ${env.KEY} references which are expanded on load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/viant/afs/url"

	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/service/generator/xai"
	"github.com/mechapengu/postpilot/service/imaging/fal"
)

// EnvPrefix marks environment overrides; a double underscore separates
// sections, e.g. POSTPILOT_XAI__API_KEY sets xai.api_key.
const EnvPrefix = "POSTPILOT_"

// XAI configures the text generation client.
type XAI struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// Fal configures the image synthesis client.
type Fal struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// XCredentials holds the OAuth1 credential set for posting to X.
type XCredentials struct {
	APIKey            string `koanf:"api_key"`
	APISecret         string `koanf:"api_secret"`
	AccessToken       string `koanf:"access_token"`
	AccessTokenSecret string `koanf:"access_token_secret"`
}

// Telegram identifies the review bot and the reviewer chat.
type Telegram struct {
	Token  string `koanf:"token"`
	ChatID int64  `koanf:"chat_id"`
}

// Approval selects the gating mode and the review window.
type Approval struct {
	Mode    string        `koanf:"mode"`
	Timeout time.Duration `koanf:"timeout"`
}

// Schedule holds the posting loop timings.
type Schedule struct {
	SleepMin       time.Duration `koanf:"sleep_min"`
	SleepMax       time.Duration `koanf:"sleep_max"`
	ErrorBackoff   time.Duration `koanf:"error_backoff"`
	HistoryContext int           `koanf:"history_context"`
}

// Storage locates the persisted documents. Dir accepts any afs URL; plain
// paths address the local file system.
type Storage struct {
	Dir         string `koanf:"dir"`
	PendingFile string `koanf:"pending_file"`
	HistoryFile string `koanf:"history_file"`
}

// Config is the complete bot configuration.
type Config struct {
	XAI      XAI          `koanf:"xai"`
	Fal      Fal          `koanf:"fal"`
	X        XCredentials `koanf:"x"`
	Telegram Telegram     `koanf:"telegram"`
	Approval Approval     `koanf:"approval"`
	Schedule Schedule     `koanf:"schedule"`
	Storage  Storage      `koanf:"storage"`

	// PersonaURL points at an optional persona YAML; empty keeps the
	// compiled-in default.
	PersonaURL string `koanf:"persona_url"`

	// SecretsURL points at an optional scy-encrypted credential resource
	// merged over the loaded configuration; SecretsKey is its decryption
	// key, e.g. blowfish://default.
	SecretsURL string `koanf:"secrets_url"`
	SecretsKey string `koanf:"secrets_key"`

	// DryRun swaps the publisher for a recording no-op and shortens the
	// error backoff.
	DryRun bool `koanf:"dry_run"`

	LogLevel string `koanf:"log_level"`
}

// Load builds the configuration from defaults, the TOML file at configPath
// (when empty the default locations are probed) and the environment.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	_ = k.Load(confmap.Provider(map[string]interface{}{
		"xai.model":                xai.DefaultModel,
		"xai.base_url":             xai.DefaultBaseURL,
		"fal.model":                fal.DefaultModel,
		"schedule.history_context": 3,
		"storage.dir":              ".",
		"storage.pending_file":     "pending_drafts.json",
		"storage.history_file":     "history.json",
		"log_level":                "info",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else {
		for _, candidate := range []string{"./postpilot.toml", "$HOME/.postpilot.toml"} {
			candidate = os.ExpandEnv(candidate)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if err := k.Load(file.Provider(candidate), toml.Parser()); err == nil {
				break
			}
		}
	}

	_ = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)

	expandValues(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyLegacyEnv()
	cfg.normalize()
	return cfg, nil
}

// expandValues rewrites every string value, resolving ${env.KEY} references.
func expandValues(k *koanf.Koanf) {
	expanded := map[string]interface{}{}
	for key, value := range k.All() {
		if s, ok := value.(string); ok && strings.Contains(s, "${env.") {
			expanded[key] = ExpandEnv(s)
		}
	}
	if len(expanded) > 0 {
		_ = k.Load(confmap.Provider(expanded, "."), nil)
	}
}

// applyLegacyEnv fills still-empty fields from the flat environment variable
// names the original deployment used, so an existing .env keeps working.
func (c *Config) applyLegacyEnv() {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
			}
		}
	}
	setIfEmpty(&c.XAI.APIKey, "XAI_API_KEY")
	setIfEmpty(&c.Fal.APIKey, "FAL_KEY")
	setIfEmpty(&c.X.APIKey, "TWITTER_API_KEY")
	setIfEmpty(&c.X.APISecret, "TWITTER_API_SECRET")
	setIfEmpty(&c.X.AccessToken, "TWITTER_ACCESS_TOKEN")
	setIfEmpty(&c.X.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")
	setIfEmpty(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	if c.Telegram.ChatID == 0 {
		if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				c.Telegram.ChatID = id
			}
		}
	}
	if c.Approval.Mode == "" {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("TELEGRAM_APPROVAL"))) {
		case "true":
			c.Approval.Mode = policy.ModeRequired
		case "false":
			c.Approval.Mode = policy.ModeDisabled
		}
	}
	if !c.DryRun && strings.EqualFold(strings.TrimSpace(os.Getenv("TEST_MODE")), "true") {
		c.DryRun = true
	}
}

// normalize applies the duration defaults, which depend on DryRun and
// therefore cannot live in the static default map.
func (c *Config) normalize() {
	if c.Approval.Mode == "" {
		c.Approval.Mode = policy.ModeRequired
	}
	if c.Approval.Timeout <= 0 {
		c.Approval.Timeout = policy.DefaultTimeout
	}
	if c.Schedule.SleepMin <= 0 {
		c.Schedule.SleepMin = time.Hour
	}
	if c.Schedule.SleepMax <= 0 {
		c.Schedule.SleepMax = 3 * time.Hour
	}
	if c.Schedule.ErrorBackoff <= 0 {
		c.Schedule.ErrorBackoff = 5 * time.Minute
		if c.DryRun {
			c.Schedule.ErrorBackoff = 30 * time.Second
		}
	}
	if c.Schedule.HistoryContext <= 0 {
		c.Schedule.HistoryContext = 3
	}
}

// Policy builds the approval policy from the configured mode and timeout.
func (c *Config) Policy() (*policy.Policy, error) {
	return policy.New(c.Approval.Mode, c.Approval.Timeout)
}

// PendingURL locates the pending drafts document.
func (c *Config) PendingURL() string {
	return url.Join(c.Storage.Dir, c.Storage.PendingFile)
}

// HistoryURL locates the published history document.
func (c *Config) HistoryURL() string {
	return url.Join(c.Storage.Dir, c.Storage.HistoryFile)
}

// Validate reports every missing or inconsistent setting at once so a fresh
// deployment can be fixed in one pass instead of one failure at a time.
func (c *Config) Validate() error {
	var problems []string
	if c.XAI.APIKey == "" {
		problems = append(problems, "xai.api_key (env XAI_API_KEY)")
	}
	if c.Fal.APIKey == "" {
		problems = append(problems, "fal.api_key (env FAL_KEY)")
	}
	if !c.DryRun {
		if c.X.APIKey == "" {
			problems = append(problems, "x.api_key (env TWITTER_API_KEY)")
		}
		if c.X.APISecret == "" {
			problems = append(problems, "x.api_secret (env TWITTER_API_SECRET)")
		}
		if c.X.AccessToken == "" {
			problems = append(problems, "x.access_token (env TWITTER_ACCESS_TOKEN)")
		}
		if c.X.AccessTokenSecret == "" {
			problems = append(problems, "x.access_token_secret (env TWITTER_ACCESS_TOKEN_SECRET)")
		}
	}
	pol, err := c.Policy()
	if err != nil {
		problems = append(problems, err.Error())
	}
	if pol.RequiresReview() {
		if c.Telegram.Token == "" {
			problems = append(problems, "telegram.token (env TELEGRAM_BOT_TOKEN)")
		}
		if c.Telegram.ChatID == 0 {
			problems = append(problems, "telegram.chat_id (env TELEGRAM_CHAT_ID)")
		}
	} else if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		problems = append(problems, "telegram.chat_id (env TELEGRAM_CHAT_ID)")
	}
	if c.Schedule.SleepMax < c.Schedule.SleepMin {
		problems = append(problems, fmt.Sprintf("schedule: sleep_max %v below sleep_min %v", c.Schedule.SleepMax, c.Schedule.SleepMin))
	}
	if len(problems) > 0 {
		return fmt.Errorf("missing or invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
