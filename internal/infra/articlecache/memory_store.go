package articlecache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
)

type articleRecord struct {
	payload   summarizer.Article
	expiresAt time.Time
}

// MemoryStore is an in-memory article cache for single instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]articleRecord
	now      func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]articleRecord),
		now:      time.Now,
	}
}

// Get implements summarizer.ArticleCache.
func (s *MemoryStore) Get(_ context.Context, url string) (summarizer.Article, bool, error) {
	if url == "" {
		return summarizer.Article{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.articles[url]
	s.mu.RUnlock()
	if !ok {
		return summarizer.Article{}, false, nil
	}
	if s.hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.articles, url)
		s.mu.Unlock()
		return summarizer.Article{}, false, nil
	}
	return record.payload, true, nil
}

// Save caches the article with optional TTL.
func (s *MemoryStore) Save(_ context.Context, article summarizer.Article, ttl time.Duration) error {
	if article.URL == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.articles[article.URL] = articleRecord{
		payload:   article,
		expiresAt: exp,
	}
	return nil
}

// Len returns the number of cached articles, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// evictExpired must be called with mu held.
func (s *MemoryStore) evictExpired() {
	for url, record := range s.articles {
		if s.hasExpired(record.expiresAt) {
			delete(s.articles, url)
		}
	}
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var _ summarizer.ArticleCache = (*MemoryStore)(nil)
