package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (compatible; ai-summarizer/1.0)"
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 5 << 20
	minParagraphRunes   = 25
	minContentRunes     = 80
)

var (
	// ErrUnsupportedURL is returned for links that are not absolute http(s) URLs.
	ErrUnsupportedURL = errors.New("unsupported url")
	// ErrNoContent is returned when the page has no readable body text.
	ErrNoContent = errors.New("no readable content")
)

const boilerplate = "script, style, noscript, template, svg, nav, header, footer, aside, form, iframe, figure"

// Config controls page fetching.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	HTTPClient   *http.Client
}

// Extractor fetches a page and keeps its title, author and paragraph text.
type Extractor struct {
	userAgent    string
	maxBodyBytes int64
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Extractor{
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		httpClient:   client,
		logger:       logger.With("component", "article.extractor"),
	}
}

// Extract implements summarizer.Extractor.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (summarizer.Article, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return summarizer.Article{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return summarizer.Article{}, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return summarizer.Article{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return summarizer.Article{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
			return summarizer.Article{}, fmt.Errorf("%w: content type %q", ErrNoContent, mediaType)
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		return summarizer.Article{}, fmt.Errorf("create document from reader: %w", err)
	}

	article := summarizer.Article{
		URL:    parsed.String(),
		Title:  title(doc),
		Author: author(doc),
	}
	article.Content = content(doc)
	if utf8.RuneCountInString(article.Content) < minContentRunes {
		return summarizer.Article{}, ErrNoContent
	}

	e.logger.Debug("article extracted",
		"url", article.URL,
		"title", article.Title,
		"chars", utf8.RuneCountInString(article.Content),
	)
	return article, nil
}

func title(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return collapse(doc.Find("h1").First().Text())
}

func author(doc *goquery.Document) string {
	for _, selector := range []string{"meta[name='author']", "meta[property='article:author']"} {
		if content, ok := doc.Find(selector).Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return collapse(doc.Find("[rel='author']").First().Text())
}

func content(doc *goquery.Document) string {
	doc.Find(boilerplate).Remove()

	root := doc.Selection
	for _, selector := range []string{"article", "main", "[role='main']", "body"} {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			root = found
			break
		}
	}

	var paragraphs []string
	root.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if utf8.RuneCountInString(text) >= minParagraphRunes {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}
	return collapse(root.Text())
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var _ summarizer.Extractor = (*Extractor)(nil)
