package articlecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
)

// ValkeyStore shares extracted articles between instances through a
// Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "article"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, url string) (summarizer.Article, bool, error) {
	if url == "" {
		return summarizer.Article{}, false, nil
	}
	cmd := s.client.B().Get().Key(s.entryKey(url)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return summarizer.Article{}, false, nil
		}
		return summarizer.Article{}, false, err
	}
	var article summarizer.Article
	if err := json.Unmarshal([]byte(payload), &article); err != nil {
		return summarizer.Article{}, false, err
	}
	return article, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, article summarizer.Article, ttl time.Duration) error {
	if article.URL == "" {
		return nil
	}
	payload, err := json.Marshal(article)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.entryKey(article.URL)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

// entryKey hashes the URL so arbitrary links make bounded keys.
func (s *ValkeyStore) entryKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%s:%s", s.prefix, hex.EncodeToString(sum[:]))
}

var _ summarizer.ArticleCache = (*ValkeyStore)(nil)
