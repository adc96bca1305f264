//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/ai-summarizer/internal/bootstrap"
	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
	"github.com/yanqian/ai-summarizer/internal/infra/article"
	"github.com/yanqian/ai-summarizer/internal/infra/config"
	"github.com/yanqian/ai-summarizer/internal/infra/llm/huggingface"
	"github.com/yanqian/ai-summarizer/internal/infra/tokenizer"
	httpiface "github.com/yanqian/ai-summarizer/internal/interface/http"
	"github.com/yanqian/ai-summarizer/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRegistry,
		provideRecorder,
		provideRateLimiter,
		provideRetry,
		provideBreaker,
		provideHuggingFaceClient,
		provideSummaryConfig,
		provideArticleExtractor,
		provideArticleCache,
		provideTruncator,
		summarizer.NewService,
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		wire.Bind(new(summarizer.Client), new(*huggingface.Client)),
		wire.Bind(new(summarizer.Extractor), new(*article.Extractor)),
		wire.Bind(new(summarizer.Truncator), new(*tokenizer.Truncator)),
		httpiface.NewSummaryHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
