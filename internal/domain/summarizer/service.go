package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"mvdan.cc/xurls/v2"

	"github.com/yanqian/ai-summarizer/internal/infra/llm/huggingface"
	apperrors "github.com/yanqian/ai-summarizer/pkg/errors"
)

const (
	CodeInvalidInput     = "invalid_input"
	CodeExtractionFailed = "extraction_failed"
	CodeCancelled        = "cancelled"
	CodeInternal         = "internal_error"
)

// Service exposes summarization capabilities.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
	Status(ctx context.Context) StatusReport
	TestConnection(ctx context.Context) bool
}

// Client is the resilient upstream model client.
type Client interface {
	SummarizeText(ctx context.Context, text string) huggingface.Result
	TestConnection(ctx context.Context) bool
	GetStatus(ctx context.Context) huggingface.Status
}

// Extractor pulls readable content out of a web page.
type Extractor interface {
	Extract(ctx context.Context, url string) (Article, error)
}

// ArticleCache keeps extracted articles keyed by URL.
type ArticleCache interface {
	Get(ctx context.Context, url string) (Article, bool, error)
	Save(ctx context.Context, article Article, ttl time.Duration) error
}

// Truncator bounds the input to the model's budget.
type Truncator interface {
	Truncate(text string) (string, bool)
}

type service struct {
	cfg       Config
	client    Client
	extractor Extractor
	cache     ArticleCache
	truncator Truncator
	urlRe     *regexp.Regexp
	logger    *slog.Logger
}

// NewService is a wire provider for the summarizer domain. cache and
// truncator may be nil.
func NewService(
	cfg Config,
	client Client,
	extractor Extractor,
	cache ArticleCache,
	truncator Truncator,
	logger *slog.Logger,
) (Service, error) {
	urlRe, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return nil, fmt.Errorf("compile url matcher: %w", err)
	}
	return &service{
		cfg:       cfg,
		client:    client,
		extractor: extractor,
		cache:     cache,
		truncator: truncator,
		urlRe:     urlRe,
		logger:    logger.With("component", "summarizer.service"),
	}, nil
}

func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	text := normalize(req.Text)
	link := strings.TrimSpace(req.URL)
	if link == "" && s.isSingleURL(text) {
		link = text
	}

	resp := Response{Source: SourceText}
	if link != "" {
		if !s.isSingleURL(link) {
			return Response{}, apperrors.Wrap(CodeInvalidInput, "Please provide a valid http or https link.", nil)
		}
		article, err := s.loadArticle(ctx, link)
		if err != nil {
			return Response{}, err
		}
		text = normalize(article.Content)
		resp.Source = SourceURL
		resp.URL = link
		resp.Title = article.Title
		resp.Author = article.Author
	}

	if text == "" {
		if link != "" {
			return Response{}, apperrors.Wrap(CodeExtractionFailed, "Could not extract readable content from that page.", nil)
		}
		return Response{}, apperrors.Wrap(CodeInvalidInput, "Please provide some text or a link to summarize.", nil)
	}

	if s.truncator != nil {
		var truncated bool
		text, truncated = s.truncator.Truncate(text)
		resp.Truncated = truncated
		if truncated {
			s.logger.Debug("input truncated", "max_tokens", s.cfg.MaxInputTokens, "chars", utf8.RuneCountInString(text))
		}
	}

	result := s.client.SummarizeText(ctx, text)
	if failure, failed := result.Failure(); failed {
		return Response{}, apperrors.Wrap(string(failure.Kind), failure.Message, failure)
	}
	summary, ok := result.Summary()
	if !ok {
		return Response{}, apperrors.Wrap(CodeInternal, "Something went wrong while summarizing. Please try again.", nil)
	}

	resp.Summary = summary.Text
	resp.ProcessingTimeMs = summary.ProcessingTime.Milliseconds()
	resp.InputLength = utf8.RuneCountInString(text)
	resp.SummaryLength = utf8.RuneCountInString(summary.Text)
	return resp, nil
}

func (s *service) Status(ctx context.Context) StatusReport {
	status := s.client.GetStatus(ctx)
	return StatusReport{
		Availability:         string(status.Availability),
		StatusCode:           status.StatusCode,
		Message:              status.Message,
		EstimatedWaitSeconds: status.EstimatedWait.Seconds(),
		Circuit:              status.Circuit,
		CheckedAt:            status.CheckedAt,
	}
}

func (s *service) TestConnection(ctx context.Context) bool {
	return s.client.TestConnection(ctx)
}

func (s *service) loadArticle(ctx context.Context, link string) (Article, error) {
	link = canonicalURL(link)
	if s.cache != nil {
		article, ok, err := s.cache.Get(ctx, link)
		if err != nil {
			s.logger.Warn("article cache lookup failed", "url", link, "error", err)
		} else if ok {
			return article, nil
		}
	}

	article, err := s.extractor.Extract(ctx, link)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return Article{}, apperrors.Wrap(CodeCancelled, "The request was cancelled.", err)
		}
		s.logger.Warn("article extraction failed", "url", link, "error", err)
		return Article{}, apperrors.Wrap(CodeExtractionFailed, "Could not extract readable content from that page.", err)
	}

	article.URL = link
	if s.cache != nil && strings.TrimSpace(article.Content) != "" {
		if err := s.cache.Save(ctx, article, s.cfg.ArticleCacheTTL); err != nil {
			s.logger.Warn("article cache save failed", "url", link, "error", err)
		}
	}
	return article, nil
}

// canonicalURL is the form articles are fetched and cached under, so a link
// with an unescaped path hits the same entry as its escaped spelling.
func canonicalURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	return parsed.String()
}

func (s *service) isSingleURL(text string) bool {
	if text == "" || strings.ContainsAny(text, " \n\t") {
		return false
	}
	loc := s.urlRe.FindStringIndex(text)
	return loc != nil && loc[0] == 0 && loc[1] == len(text)
}

func normalize(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}
