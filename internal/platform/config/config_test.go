package config_test

import (
	"testing"
	"time"

	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWithEnv(t *testing.T, env map[string]string) (*config.Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return config.LoadConfig()
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiryDuration)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiryDuration)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.NotEqual(t, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	assert.True(t, cfg.IsTrustedProvider("google"))
	assert.False(t, cfg.IsTrustedProvider("facebook"))
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"JWT_ACCESS_EXPIRY_DURATION":  "soon",
		"JWT_REFRESH_EXPIRY_DURATION": "72h",
	})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiryDuration)
	assert.Equal(t, 72*time.Hour, cfg.JWTRefreshExpiryDuration)
}

func TestLoadConfig_ListsAndProviders(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"OAUTH_TRUSTED_PROVIDERS": "google, facebook",
		"CORS_ALLOWED_ORIGINS":    "https://app.example.com, https://admin.example.com",
		"FACEBOOK_CLIENT_ID":      "fb-id",
		"FACEBOOK_CLIENT_SECRET":  "fb-secret",
		"FRONTEND_BASE_URL":       "https://app.example.com/",
	})
	require.NoError(t, err)
	assert.True(t, cfg.IsTrustedProvider("Facebook"))
	assert.True(t, cfg.FacebookEnabled())
	assert.Equal(t, "https://app.example.com", cfg.FrontendBaseURL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("production without secrets", func(t *testing.T) {
		_, err := loadWithEnv(t, map[string]string{"IS_PRODUCTION": "true"})
		assert.Error(t, err)
	})

	t.Run("unknown store driver", func(t *testing.T) {
		_, err := loadWithEnv(t, map[string]string{"STORE_DRIVER": "sqlite"})
		assert.Error(t, err)
	})

	t.Run("postgres without url", func(t *testing.T) {
		_, err := loadWithEnv(t, map[string]string{"STORE_DRIVER": "postgres"})
		assert.Error(t, err)
	})

	t.Run("bad block key", func(t *testing.T) {
		_, err := loadWithEnv(t, map[string]string{"OAUTH_STATE_BLOCK_KEY": "short"})
		assert.Error(t, err)
	})
}
