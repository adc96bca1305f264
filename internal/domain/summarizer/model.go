package summarizer

import "time"

// Config configures input preparation ahead of the upstream call.
type Config struct {
	MaxInputTokens  int
	ArticleCacheTTL time.Duration
}

// Source tells whether a summary was produced from pasted text or a page.
type Source string

const (
	SourceText Source = "text"
	SourceURL  Source = "url"
)

// Request represents the incoming summarization payload. Either Text or URL
// must be set; Text holding nothing but a single link is treated as URL.
type Request struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Response is returned by the sync endpoint.
type Response struct {
	Summary          string `json:"summary"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Source           Source `json:"source"`
	URL              string `json:"url,omitempty"`
	Title            string `json:"title,omitempty"`
	Author           string `json:"author,omitempty"`
	InputLength      int    `json:"inputLength"`
	SummaryLength    int    `json:"summaryLength"`
	Truncated        bool   `json:"truncated"`
}

// Article is readable content extracted from a web page.
type Article struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
}

// StatusReport is the upstream snapshot rendered by the status endpoint.
type StatusReport struct {
	Availability         string    `json:"availability"`
	StatusCode           int       `json:"statusCode"`
	Message              string    `json:"message"`
	EstimatedWaitSeconds float64   `json:"estimatedWaitSeconds,omitempty"`
	Circuit              string    `json:"circuit"`
	CheckedAt            time.Time `json:"checkedAt"`
}
