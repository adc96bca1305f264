package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
	"github.com/yanqian/ai-summarizer/internal/infra/article"
	"github.com/yanqian/ai-summarizer/internal/infra/articlecache"
	"github.com/yanqian/ai-summarizer/internal/infra/config"
	"github.com/yanqian/ai-summarizer/internal/infra/llm/huggingface"
	"github.com/yanqian/ai-summarizer/internal/infra/resilience"
	"github.com/yanqian/ai-summarizer/internal/infra/tokenizer"
	"github.com/yanqian/ai-summarizer/pkg/metrics"
)

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRecorder(cfg *config.Config, reg *prometheus.Registry) *metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewRecorder(reg)
}

func provideRateLimiter(cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*resilience.RateLimiter, error) {
	log := logger.With("component", "resilience.ratelimiter")
	return resilience.NewRateLimiter(resilience.RateLimiterConfig{
		RequestsPerMinute: cfg.Upstream.RequestsPerMinute,
		OnWait: func(waited time.Duration) {
			log.Debug("waited for upstream permit", "wait_ms", waited.Milliseconds())
			recorder.LimiterWait(waited)
		},
	})
}

func provideRetry(cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*resilience.Retry, error) {
	log := logger.With("component", "resilience.retry")
	return resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: cfg.Upstream.MaxRetryAttempts,
		BaseDelay:   cfg.Upstream.BaseRetryDelay(),
		OnRetry: func(attempt int, last resilience.HTTPResult, delay time.Duration) {
			log.Warn("retrying upstream call",
				"attempt", attempt,
				"status", last.StatusCode,
				"error", last.Err,
				"delay_ms", delay.Milliseconds(),
			)
			recorder.UpstreamRetry()
		},
	})
}

func provideBreaker(cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*resilience.Breaker, error) {
	log := logger.With("component", "resilience.breaker")
	breakFor := cfg.Upstream.BreakerBreakDuration
	return resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "huggingface",
		FailureThreshold: uint32(cfg.Upstream.BreakerFailureThreshold),
		BreakDuration:    breakFor,
		OnStateChange: func(from, to resilience.State) {
			switch to {
			case resilience.StateOpen:
				log.Warn("circuit opened", "from", from.String(), "break_for", breakFor.String())
			case resilience.StateHalfOpen:
				log.Info("circuit half-open, probing upstream")
			case resilience.StateClosed:
				log.Info("circuit closed", "from", from.String())
			}
			recorder.BreakerTransition(from.String(), to.String(), int(to))
		},
	})
}

func provideHuggingFaceClient(
	cfg *config.Config,
	limiter *resilience.RateLimiter,
	retry *resilience.Retry,
	breaker *resilience.Breaker,
	logger *slog.Logger,
	recorder *metrics.Recorder,
) (*huggingface.Client, error) {
	if strings.TrimSpace(cfg.Upstream.APIToken) == "" {
		logger.Warn("upstream api token not set, calling inference api anonymously")
	}
	return huggingface.NewClient(huggingface.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		Model:     cfg.Upstream.Model,
		APIToken:  cfg.Upstream.APIToken,
		Timeout:   cfg.Upstream.Timeout(),
		ProbeText: cfg.Upstream.ProbeText,
	}, limiter, retry, breaker, logger, recorder)
}

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		MaxInputTokens:  cfg.Summary.MaxInputTokens,
		ArticleCacheTTL: cfg.Article.Cache.TTL,
	}
}

func provideArticleExtractor(cfg *config.Config, logger *slog.Logger) *article.Extractor {
	return article.NewExtractor(article.Config{
		UserAgent:    cfg.Article.UserAgent,
		Timeout:      cfg.Article.Timeout,
		MaxBodyBytes: cfg.Article.MaxBodyBytes,
	}, logger)
}

func provideTruncator(cfg *config.Config, logger *slog.Logger) *tokenizer.Truncator {
	return tokenizer.NewTruncator(cfg.Summary.TokenizerEncoding, cfg.Summary.MaxInputTokens, logger)
}

func provideArticleCache(cfg *config.Config, logger *slog.Logger) summarizer.ArticleCache {
	if cfg.Article.Cache.Enabled {
		opt, err := buildValkeyOptions(cfg.Article.Cache.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return articlecache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return articlecache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
		} else {
			logger.Info("article valkey cache enabled", "addr", cfg.Article.Cache.Addr)
			return articlecache.NewValkeyStore(client, "article")
		}
	}
	return articlecache.NewMemoryStore()
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
