package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/config"
	"github.com/xxxsen/docchat/internal/model"
)

// Filter restricts which chunks are eligible for a query. Fields combine
// as an equality conjunction; empty fields are unconstrained. Retrieval
// is always at least user-scoped.
type Filter struct {
	User     string
	Filename string
}

// Index is a nearest-neighbor text index over document chunks.
type Index interface {
	Add(ctx context.Context, texts []string, metas []model.ChunkMetadata) error
	Query(ctx context.Context, text string, k int, filter Filter) ([]model.RetrievedChunk, error)
}

type Factory func(args interface{}, embedder ai.IEmbedder) (Index, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.IndexConfig, embedder ai.IEmbedder) (Index, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("index.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Type)
	}
	return factory(cfg.Data, embedder)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("index config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode index config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode index config: %w", err)
	}
	return nil
}
