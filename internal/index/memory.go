package index

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/model"
)

// memoryIndex is an in-process backend for development and tests. It
// ranks by token-overlap (Ochiai coefficient) instead of embeddings, so
// it needs no embedding provider.
type memoryIndex struct {
	mu    sync.RWMutex
	items []memoryItem
}

type memoryItem struct {
	text   string
	tokens map[string]struct{}
	meta   model.ChunkMetadata
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

func init() {
	Register("memory", func(args interface{}, embedder ai.IEmbedder) (Index, error) {
		return NewMemory(), nil
	})
}

func NewMemory() Index {
	return &memoryIndex{}
}

func (idx *memoryIndex) Add(ctx context.Context, texts []string, metas []model.ChunkMetadata) error {
	if len(texts) != len(metas) {
		return fmt.Errorf("texts and metadatas length mismatch")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, text := range texts {
		idx.items = append(idx.items, memoryItem{
			text:   text,
			tokens: tokenSet(text),
			meta:   metas[i],
		})
	}
	return nil
}

func (idx *memoryIndex) Query(ctx context.Context, text string, k int, filter Filter) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		k = 3
	}
	queryTokens := tokenSet(text)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		item  memoryItem
		score float64
	}
	var matches []scored
	for _, item := range idx.items {
		if filter.User != "" && item.meta.User != filter.User {
			continue
		}
		if filter.Filename != "" && item.meta.Filename != filter.Filename {
			continue
		}
		matches = append(matches, scored{item: item, score: ochiai(queryTokens, item.tokens)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if k > len(matches) {
		k = len(matches)
	}
	results := make([]model.RetrievedChunk, 0, k)
	for _, match := range matches[:k] {
		results = append(results, model.RetrievedChunk{Text: match.item.text, Metadata: match.item.meta})
	}
	return results, nil
}

func tokenSet(text string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for token := range a {
		if _, ok := b[token]; ok {
			inter++
		}
	}
	return float64(inter) / (math.Sqrt(float64(len(a))) * math.Sqrt(float64(len(b))))
}
