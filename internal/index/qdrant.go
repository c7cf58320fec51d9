package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/model"
)

type qdrantConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	Timeout    int    `json:"timeout"`
}

// qdrantIndex is a minimal REST client. Cosine distance; the collection
// is created on startup if missing.
type qdrantIndex struct {
	url        string
	apiKey     string
	collection string
	embedder   ai.IEmbedder
	client     *http.Client
}

func init() {
	Register("qdrant", createQdrantIndex)
}

func createQdrantIndex(args interface{}, embedder ai.IEmbedder) (Index, error) {
	cfg := &qdrantConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant url and collection are required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("qdrant dimension is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("qdrant index requires an embedder")
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	idx := &qdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		embedder:   embedder,
		client:     &http.Client{Timeout: timeout},
	}
	if err := idx.ensureCollection(cfg.Dimension); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *qdrantIndex) ensureCollection(dimension int) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// 200 if the collection already exists with the same schema.
	return idx.putJSON(context.Background(), fmt.Sprintf("%s/collections/%s", idx.url, idx.collection), body, nil)
}

func (idx *qdrantIndex) Add(ctx context.Context, texts []string, metas []model.ChunkMetadata) error {
	if len(texts) != len(metas) {
		return fmt.Errorf("texts and metadatas length mismatch")
	}
	points := make([]map[string]interface{}, 0, len(texts))
	for i, text := range texts {
		vec, err := idx.embedder.Embed(ctx, text, taskTypeDocument)
		if err != nil {
			return err
		}
		meta := metas[i]
		points = append(points, map[string]interface{}{
			"id":     uuid.NewString(),
			"vector": vec,
			"payload": map[string]interface{}{
				"user":         meta.User,
				"filename":     meta.Filename,
				"file_type":    meta.FileType,
				"chunk_index":  meta.ChunkIndex,
				"total_chunks": meta.TotalChunks,
				"text":         text,
			},
		})
	}
	body := map[string]interface{}{"points": points}
	return idx.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", idx.url, idx.collection), body, nil)
}

func (idx *qdrantIndex) Query(ctx context.Context, text string, k int, filter Filter) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		k = 3
	}
	vec, err := idx.embedder.Embed(ctx, text, taskTypeQuery)
	if err != nil {
		return nil, err
	}
	req := map[string]interface{}{
		"vector":       vec,
		"limit":        k,
		"with_payload": true,
	}
	var must []map[string]interface{}
	if filter.User != "" {
		must = append(must, map[string]interface{}{
			"key":   "user",
			"match": map[string]interface{}{"value": filter.User},
		})
	}
	if filter.Filename != "" {
		must = append(must, map[string]interface{}{
			"key":   "filename",
			"match": map[string]interface{}{"value": filter.Filename},
		})
	}
	if len(must) > 0 {
		req["filter"] = map[string]interface{}{"must": must}
	}
	var resp struct {
		Result []struct {
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points/search", idx.url, idx.collection)
	if err := idx.postJSON(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	results := make([]model.RetrievedChunk, 0, len(resp.Result))
	for _, item := range resp.Result {
		chunk := model.RetrievedChunk{}
		if v, ok := item.Payload["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := item.Payload["user"].(string); ok {
			chunk.Metadata.User = v
		}
		if v, ok := item.Payload["filename"].(string); ok {
			chunk.Metadata.Filename = v
		}
		if v, ok := item.Payload["file_type"].(string); ok {
			chunk.Metadata.FileType = v
		}
		if v, ok := item.Payload["chunk_index"].(float64); ok {
			chunk.Metadata.ChunkIndex = int(v)
		}
		if v, ok := item.Payload["total_chunks"].(float64); ok {
			chunk.Metadata.TotalChunks = int(v)
		}
		results = append(results, chunk)
	}
	return results, nil
}

func (idx *qdrantIndex) putJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	return idx.doJSON(ctx, http.MethodPut, url, body, out)
}

func (idx *qdrantIndex) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	return idx.doJSON(ctx, http.MethodPost, url, body, out)
}

func (idx *qdrantIndex) doJSON(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idx.apiKey != "" {
		req.Header.Set("api-key", idx.apiKey)
	}
	resp, err := idx.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
