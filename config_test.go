package accounts_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironmentDefaults(t *testing.T) {
	cfg, err := accounts.LoadConfigFromEnvironment(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "qid", cfg.Cookie.Name)
	assert.Equal(t, "localhost", cfg.Cookie.Domain)
	assert.Equal(t, "/", cfg.Cookie.Path)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, "Strict", cfg.Cookie.SameSite)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "go-accounts", cfg.Session.Issuer)
	assert.Equal(t, 24*time.Hour, cfg.Confirmation.TTL)
	assert.Equal(t, "http://localhost:3000/user/confirm", cfg.Confirmation.LinkBaseURL)
	assert.Equal(t, "accounts:confirm", cfg.Confirmation.KeyPrefix)
	assert.Equal(t, 12, cfg.Password.Cost)
	assert.Equal(t, accounts.NotificationBestEffort, cfg.Registration.NotificationPolicy)

	// no signing key yet
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFromEnvironmentOverrides(t *testing.T) {
	cfg, err := accounts.LoadConfigFromEnvironment(map[string]string{
		"ACCOUNTS_COOKIE_NAME":                "sid",
		"ACCOUNTS_COOKIE_SECURE":              "true",
		"ACCOUNTS_SESSION_SIGNING_KEY":        testSigningKey,
		"ACCOUNTS_SESSION_TTL":                "90m",
		"ACCOUNTS_CONFIRMATION_TTL":           "1h",
		"ACCOUNTS_CONFIRMATION_LINK_BASE_URL": "https://app.example.com/confirm/",
		"ACCOUNTS_PASSWORD_COST":              "10",
		"ACCOUNTS_NOTIFICATION_POLICY":        "strict",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sid", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, 90*time.Minute, cfg.Session.TTL)
	assert.Equal(t, time.Hour, cfg.Confirmation.TTL)
	assert.Equal(t, "https://app.example.com/confirm", cfg.Confirmation.LinkBaseURL)
	assert.Equal(t, 10, cfg.Password.Cost)
	assert.Equal(t, accounts.NotificationStrict, cfg.Registration.NotificationPolicy)
}

func TestConfigSameSiteNoneWithSecure(t *testing.T) {
	cfg := testConfig()
	cfg.Cookie.SameSite = "None"
	cfg.Cookie.Secure = true
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvironmentRejectsGarbage(t *testing.T) {
	_, err := accounts.LoadConfigFromEnvironment(map[string]string{
		"ACCOUNTS_SESSION_TTL": "soon",
	})
	require.Error(t, err)
	assert.True(t, accounts.IsValidationError(err))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*accounts.Config)
	}{
		{"short signing key", func(c *accounts.Config) { c.Session.SigningKey = "short" }},
		{"bad same site", func(c *accounts.Config) { c.Cookie.SameSite = "Sometimes" }},
		{"empty cookie name", func(c *accounts.Config) { c.Cookie.Name = "" }},
		{"cost too high", func(c *accounts.Config) { c.Password.Cost = 40 }},
		{"unknown policy", func(c *accounts.Config) { c.Registration.NotificationPolicy = "maybe" }},
		{"zero confirmation ttl", func(c *accounts.Config) { c.Confirmation.TTL = 0 }},
		{"same site none without secure", func(c *accounts.Config) { c.Cookie.SameSite = "None" }},
	}

	require.NoError(t, testConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, accounts.IsValidationError(err))
		})
	}
}
