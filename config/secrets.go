package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/scy"
	"github.com/viant/toolbox"
)

// LoadSecrets decrypts the scy resource named by SecretsURL (using
// SecretsKey, e.g. blowfish://default) and merges the revealed values over
// the configuration. The document keys mirror the legacy environment
// variable names, so one credential file can seed either mechanism. Secret
// values take precedence over file and environment values.
func (c *Config) LoadSecrets(ctx context.Context) error {
	if c.SecretsURL == "" {
		return nil
	}
	resource := scy.NewResource(nil, c.SecretsURL, c.SecretsKey)
	secret, err := scy.New().Load(ctx, resource)
	if err != nil {
		return fmt.Errorf("failed to load secrets from %s: %w", c.SecretsURL, err)
	}

	values := map[string]interface{}{}
	if !secret.IsPlain && secret.Target != nil {
		if err := toolbox.DefaultConverter.AssignConverted(&values, secret.Target); err != nil {
			return fmt.Errorf("failed to convert secret data: %w", err)
		}
		values = toolbox.DeleteEmptyKeys(values)
	} else if err := json.Unmarshal([]byte(secret.String()), &values); err != nil {
		return fmt.Errorf("secrets resource %s is not a JSON object: %w", c.SecretsURL, err)
	}
	c.applySecrets(values)
	return nil
}

func (c *Config) applySecrets(values map[string]interface{}) {
	lookup := make(map[string]string, len(values))
	for key, value := range values {
		if s, ok := value.(string); ok {
			lookup[strings.ToUpper(key)] = s
		}
	}
	set := func(dst *string, key string) {
		if v, ok := lookup[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.XAI.APIKey, "XAI_API_KEY")
	set(&c.Fal.APIKey, "FAL_KEY")
	set(&c.X.APIKey, "TWITTER_API_KEY")
	set(&c.X.APISecret, "TWITTER_API_SECRET")
	set(&c.X.AccessToken, "TWITTER_ACCESS_TOKEN")
	set(&c.X.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")
	set(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	if v, ok := lookup["TELEGRAM_CHAT_ID"]; ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && id != 0 {
			c.Telegram.ChatID = id
		}
	}
}
