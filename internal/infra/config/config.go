package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Summary  SummaryConfig  `yaml:"summary"`
	Article  ArticleConfig  `yaml:"article"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string        `yaml:"address"      env:"HTTP_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  env:"HTTP_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"HTTP_WRITE_TIMEOUT"`
}

// LogConfig selects level and encoding of the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// UpstreamConfig describes the hosted inference endpoint and the resilience
// policy wrapped around it.
type UpstreamConfig struct {
	BaseURL                 string        `yaml:"baseUrl"                 env:"UPSTREAM_BASE_URL"`
	Model                   string        `yaml:"model"                   env:"UPSTREAM_MODEL"`
	APIToken                string        `yaml:"apiToken"                env:"UPSTREAM_API_TOKEN"`
	RequestsPerMinute       int           `yaml:"requestsPerMinute"       env:"UPSTREAM_REQUESTS_PER_MINUTE"`
	TimeoutSeconds          int           `yaml:"timeoutSeconds"          env:"UPSTREAM_TIMEOUT_SECONDS"`
	MaxRetryAttempts        int           `yaml:"maxRetryAttempts"        env:"UPSTREAM_MAX_RETRY_ATTEMPTS"`
	BaseRetryDelayMs        int           `yaml:"baseRetryDelayMs"        env:"UPSTREAM_BASE_RETRY_DELAY_MS"`
	BreakerFailureThreshold int           `yaml:"breakerFailureThreshold" env:"UPSTREAM_BREAKER_FAILURE_THRESHOLD"`
	BreakerBreakDuration    time.Duration `yaml:"breakerBreakDuration"    env:"UPSTREAM_BREAKER_BREAK_DURATION"`
	ProbeText               string        `yaml:"probeText"               env:"UPSTREAM_PROBE_TEXT"`
}

// Timeout is the per-attempt deadline.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// BaseRetryDelay is the first backoff delay.
func (u UpstreamConfig) BaseRetryDelay() time.Duration {
	return time.Duration(u.BaseRetryDelayMs) * time.Millisecond
}

// SummaryConfig defines the input budget for the summarizer domain.
type SummaryConfig struct {
	MaxInputTokens    int    `yaml:"maxInputTokens"    env:"SUMMARY_MAX_INPUT_TOKENS"`
	TokenizerEncoding string `yaml:"tokenizerEncoding" env:"SUMMARY_TOKENIZER_ENCODING"`
}

// ArticleConfig controls URL content extraction.
type ArticleConfig struct {
	UserAgent    string             `yaml:"userAgent"    env:"ARTICLE_USER_AGENT"`
	Timeout      time.Duration      `yaml:"timeout"      env:"ARTICLE_TIMEOUT"`
	MaxBodyBytes int64              `yaml:"maxBodyBytes" env:"ARTICLE_MAX_BODY_BYTES"`
	Cache        ArticleCacheConfig `yaml:"cache"`
}

// ArticleCacheConfig contains connection information for the extraction cache.
type ArticleCacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"ARTICLE_CACHE_ENABLED"`
	Addr    string        `yaml:"addr"    env:"ARTICLE_CACHE_ADDR"`
	TTL     time.Duration `yaml:"ttl"     env:"ARTICLE_CACHE_TTL"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `yaml:"path"    env:"METRICS_PATH"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// applyEnvOverrides only touches fields whose variable is set.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env overrides: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 3 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Upstream: UpstreamConfig{
			BaseURL:                 "https://api-inference.huggingface.co",
			Model:                   "facebook/bart-large-cnn",
			RequestsPerMinute:       30,
			TimeoutSeconds:          30,
			MaxRetryAttempts:        3,
			BaseRetryDelayMs:        1000,
			BreakerFailureThreshold: 5,
			BreakerBreakDuration:    30 * time.Second,
			ProbeText:               "This is a short connection test. The summarization service sends this text to check that the hosted model answers requests.",
		},
		Summary: SummaryConfig{
			MaxInputTokens:    900,
			TokenizerEncoding: "cl100k_base",
		},
		Article: ArticleConfig{
			UserAgent:    "Mozilla/5.0 (compatible; ai-summarizer/1.0)",
			Timeout:      15 * time.Second,
			MaxBodyBytes: 5 << 20,
			Cache: ArticleCacheConfig{
				Enabled: false,
				Addr:    "",
				TTL:     30 * time.Minute,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return errors.New("upstream.baseUrl cannot be empty")
	}
	if strings.TrimSpace(c.Upstream.Model) == "" {
		return errors.New("upstream.model cannot be empty")
	}
	if c.Upstream.RequestsPerMinute <= 0 {
		return errors.New("upstream.requestsPerMinute must be positive")
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return errors.New("upstream.timeoutSeconds must be positive")
	}
	if c.Upstream.MaxRetryAttempts <= 0 || c.Upstream.MaxRetryAttempts > 10 {
		return errors.New("upstream.maxRetryAttempts must be between 1 and 10")
	}
	if c.Upstream.BaseRetryDelayMs < 0 {
		return errors.New("upstream.baseRetryDelayMs cannot be negative")
	}
	if c.Upstream.BreakerFailureThreshold <= 0 {
		return errors.New("upstream.breakerFailureThreshold must be positive")
	}
	if c.Upstream.BreakerBreakDuration <= 0 {
		return errors.New("upstream.breakerBreakDuration must be positive")
	}
	if strings.TrimSpace(c.Upstream.ProbeText) == "" {
		return errors.New("upstream.probeText cannot be empty")
	}
	if c.Summary.MaxInputTokens <= 0 {
		return errors.New("summary.maxInputTokens must be positive")
	}
	if c.Article.Timeout <= 0 {
		return errors.New("article.timeout must be positive")
	}
	if c.Article.MaxBodyBytes <= 0 {
		return errors.New("article.maxBodyBytes must be positive")
	}
	if c.Article.Cache.TTL < 0 {
		return errors.New("article.cache.ttl cannot be negative")
	}
	if c.Article.Cache.Enabled && strings.TrimSpace(c.Article.Cache.Addr) == "" {
		return errors.New("article.cache.addr cannot be empty when the cache is enabled")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
