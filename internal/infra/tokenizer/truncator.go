package tokenizer

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// runesPerToken approximates English text when no encoding is available.
const runesPerToken = 4

// Truncator cuts input down to a token budget.
type Truncator struct {
	enc       *tiktoken.Tiktoken
	maxTokens int
}

// NewTruncator loads encoding; when it cannot be loaded the truncator falls
// back to a rune based estimate. maxTokens <= 0 disables truncation.
func NewTruncator(encoding string, maxTokens int, logger *slog.Logger) *Truncator {
	t := &Truncator{maxTokens: maxTokens}
	if maxTokens <= 0 {
		return t
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.With("component", "tokenizer").Warn("tokenizer encoding unavailable, estimating by runes",
			"encoding", encoding,
			"error", err,
		)
		return t
	}
	t.enc = enc
	return t
}

// Truncate returns text cut to the budget and whether anything was removed.
func (t *Truncator) Truncate(text string) (string, bool) {
	if t.maxTokens <= 0 || text == "" {
		return text, false
	}
	if t.enc == nil {
		return truncateRunes(text, t.maxTokens*runesPerToken)
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text, false
	}
	cut := t.enc.Decode(tokens[:t.maxTokens])
	cut = strings.ToValidUTF8(cut, "")
	return strings.TrimRightFunc(cut, unicode.IsSpace), true
}

// Estimated reports whether the rune fallback is in use.
func (t *Truncator) Estimated() bool {
	return t.enc == nil
}

func truncateRunes(text string, maxRunes int) (string, bool) {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text, false
	}
	runes := []rune(text)[:maxRunes]
	cut := string(runes)
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace), true
}
