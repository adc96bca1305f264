package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, 30, cfg.Upstream.RequestsPerMinute)
	require.Equal(t, 3, cfg.Upstream.MaxRetryAttempts)
	require.Equal(t, 30*time.Second, cfg.Upstream.BreakerBreakDuration)
	require.Equal(t, time.Second, cfg.Upstream.BaseRetryDelay())
	require.Equal(t, 30*time.Second, cfg.Upstream.Timeout())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9090"
upstream:
  model: "sshleifer/distilbart-cnn-12-6"
  requestsPerMinute: 12
  breakerBreakDuration: 45s
article:
  cache:
    ttl: 5m
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("UPSTREAM_REQUESTS_PER_MINUTE", "20")
	t.Setenv("UPSTREAM_API_TOKEN", "hf_secret")
	t.Setenv("ARTICLE_CACHE_ENABLED", "true")
	t.Setenv("ARTICLE_CACHE_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Address)
	require.Equal(t, "sshleifer/distilbart-cnn-12-6", cfg.Upstream.Model)
	require.Equal(t, 20, cfg.Upstream.RequestsPerMinute)
	require.Equal(t, "hf_secret", cfg.Upstream.APIToken)
	require.Equal(t, 45*time.Second, cfg.Upstream.BreakerBreakDuration)
	require.True(t, cfg.Article.Cache.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Article.Cache.TTL)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{
			name:    "zero requests per minute",
			mutate:  func(c *Config) { c.Upstream.RequestsPerMinute = 0 },
			wantErr: "upstream.requestsPerMinute must be positive",
		},
		{
			name:    "negative requests per minute",
			mutate:  func(c *Config) { c.Upstream.RequestsPerMinute = -5 },
			wantErr: "upstream.requestsPerMinute must be positive",
		},
		{
			name:    "too many attempts",
			mutate:  func(c *Config) { c.Upstream.MaxRetryAttempts = 11 },
			wantErr: "upstream.maxRetryAttempts must be between 1 and 10",
		},
		{
			name:    "cache without addr",
			mutate:  func(c *Config) { c.Article.Cache.Enabled = true },
			wantErr: "article.cache.addr cannot be empty when the cache is enabled",
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.Upstream.Model = " " },
			wantErr: "upstream.model cannot be empty",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
