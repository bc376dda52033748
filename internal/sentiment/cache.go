package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

const cacheTimeout = 2 * time.Second

// ResultCache stores scores keyed by backend and text digest.
type ResultCache interface {
	GetScore(ctx context.Context, key string) (float64, bool, error)
	SetScore(ctx context.Context, key string, score float64) error
}

// CachedScorer consults the cache before delegating to the wrapped scorer.
// Cache failures fall through to direct scoring.
type CachedScorer struct {
	backend Backend
	next    Scorer
	cache   ResultCache
}

func NewCachedScorer(backend Backend, next Scorer, cache ResultCache) *CachedScorer {
	return &CachedScorer{backend: backend, next: next, cache: cache}
}

func CacheKey(backend Backend, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sentiment:" + string(backend) + ":" + hex.EncodeToString(sum[:])
}

func (s *CachedScorer) Score(text string) (float64, error) {
	key := CacheKey(s.backend, text)

	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	score, found, err := s.cache.GetScore(ctx, key)
	if err != nil {
		slog.Warn("[SentimentCache] Lookup failed, scoring directly",
			slog.String("error", err.Error()))
	} else if found {
		return score, nil
	}

	score, err = s.next.Score(text)
	if err != nil {
		return 0, err
	}

	if err := s.cache.SetScore(ctx, key, score); err != nil {
		slog.Warn("[SentimentCache] Failed to store score",
			slog.String("error", err.Error()))
	}
	return score, nil
}

func (s *CachedScorer) Close() error {
	if closer, ok := s.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
