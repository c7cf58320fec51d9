package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedEmbedder memoizes embedding calls. Repeated queries are common
// in chat sessions and embedding them again is pure cost.
type cachedEmbedder struct {
	inner IEmbedder
	cache *expirable.LRU[string, []float32]
}

func NewCachedEmbedder(inner IEmbedder) IEmbedder {
	cache := expirable.NewLRU[string, []float32](10000, nil, 2*time.Hour)
	return &cachedEmbedder{inner: inner, cache: cache}
}

func (e *cachedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := e.cacheKey(text, taskType)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}
	vec, err := e.inner.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, vec)
	return vec, nil
}

func (e *cachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

func (e *cachedEmbedder) cacheKey(text, taskType string) string {
	hash := sha256.Sum256([]byte(e.inner.ModelName() + ":" + taskType + ":" + text))
	return hex.EncodeToString(hash[:])
}
