package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfigFile(t, `
server:
  port: 9090
  host: "127.0.0.1"

metering:
  freeLimit: 5
  creditsPerPurchase: 20

storage:
  backend: "s3"
  s3Bucket: "profiles-test"

news:
  cacheTTL: "30m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5, cfg.Metering.FreeLimit)
	assert.Equal(t, 20, cfg.Metering.CreditsPerPurchase)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "profiles-test", cfg.Storage.S3Bucket)
	assert.Equal(t, 30*time.Minute, cfg.News.CacheTTL)
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file falls back to defaults")

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Metering.FreeLimit)
	assert.Equal(t, 10, cfg.Metering.CreditsPerPurchase)
	assert.Equal(t, 3, cfg.Metering.MaxEditRounds)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "./user_configs", cfg.Storage.LocalPath)
	assert.Equal(t, "en", cfg.News.Language)
	assert.Equal(t, "au", cfg.News.Country)
	assert.Equal(t, time.Hour, cfg.News.CacheTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("GEMINI_API_KEY", "gm-test")
	t.Setenv("NEWS_API_KEY", "news-test")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("DATABASE_URL", "postgres://test@localhost:5432/jobagent")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gm-test", cfg.Gemini.APIKey)
	assert.Equal(t, "news-test", cfg.News.APIKey)
	assert.Equal(t, "sk_test", cfg.Stripe.SecretKey)
	assert.Equal(t, "postgres://test@localhost:5432/jobagent", cfg.Database.URL)
}
