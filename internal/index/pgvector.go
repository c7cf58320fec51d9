package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/model"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

type pgvectorConfig struct {
	DSN       string `json:"dsn"`
	Dimension int    `json:"dimension"`
}

type pgvectorIndex struct {
	db       *sqlx.DB
	embedder ai.IEmbedder
}

func init() {
	Register("pgvector", createPgvectorIndex)
}

func createPgvectorIndex(args interface{}, embedder ai.IEmbedder) (Index, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("pgvector dimension is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("pgvector index requires an embedder")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	idx := &pgvectorIndex{db: db, embedder: embedder}
	if err := idx.ensureSchema(cfg.Dimension); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *pgvectorIndex) ensureSchema(dimension int) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			chunk_index INT NOT NULL,
			total_chunks INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_user_filename ON chunks(user_id, filename);
	`, dimension)
	_, err := idx.db.Exec(schema)
	return err
}

func (idx *pgvectorIndex) Add(ctx context.Context, texts []string, metas []model.ChunkMetadata) error {
	if len(texts) != len(metas) {
		return fmt.Errorf("texts and metadatas length mismatch")
	}
	tx, err := idx.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	const insert = `
		INSERT INTO chunks (user_id, filename, file_type, chunk_index, total_chunks, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, text := range texts {
		vec, err := idx.embedder.Embed(ctx, text, taskTypeDocument)
		if err != nil {
			return err
		}
		meta := metas[i]
		if _, err := tx.ExecContext(ctx, insert,
			meta.User,
			meta.Filename,
			meta.FileType,
			meta.ChunkIndex,
			meta.TotalChunks,
			text,
			pgvector.NewVector(vec),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type chunkRow struct {
	UserID      string `db:"user_id"`
	Filename    string `db:"filename"`
	FileType    string `db:"file_type"`
	ChunkIndex  int    `db:"chunk_index"`
	TotalChunks int    `db:"total_chunks"`
	Content     string `db:"content"`
}

func (idx *pgvectorIndex) Query(ctx context.Context, text string, k int, filter Filter) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		k = 3
	}
	vec, err := idx.embedder.Embed(ctx, text, taskTypeQuery)
	if err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []interface{}
	)
	if filter.User != "" {
		args = append(args, filter.User)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Filename != "" {
		args = append(args, filter.Filename)
		conds = append(conds, fmt.Sprintf("filename = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, pgvector.NewVector(vec))
	order := fmt.Sprintf("ORDER BY embedding <=> $%d", len(args))
	args = append(args, k)
	limit := fmt.Sprintf("LIMIT $%d", len(args))

	query := fmt.Sprintf(`
		SELECT user_id, filename, file_type, chunk_index, total_chunks, content
		FROM chunks %s %s %s
	`, where, order, limit)

	var rows []chunkRow
	if err := idx.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	results := make([]model.RetrievedChunk, 0, len(rows))
	for _, row := range rows {
		results = append(results, model.RetrievedChunk{
			Text: row.Content,
			Metadata: model.ChunkMetadata{
				User:        row.UserID,
				Filename:    row.Filename,
				FileType:    row.FileType,
				ChunkIndex:  row.ChunkIndex,
				TotalChunks: row.TotalChunks,
			},
		})
	}
	return results, nil
}
