package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/google/uuid"

	"github.com/xxxsen/docchat/internal/model"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Save(ctx context.Context, turn *model.ChatTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Ctime == 0 {
		turn.Ctime = time.Now().Unix()
	}
	sources := turn.Sources
	if sources == nil {
		sources = []model.ChunkRef{}
	}
	blob, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":       turn.ID,
		"user_id":  turn.User,
		"query":    turn.Query,
		"answer":   turn.Answer,
		"document": turn.Document,
		"sources":  blob,
		"ctime":    turn.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("chat_turns", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// History returns the user's most recent turns in chronological order.
func (r *ChatRepo) History(ctx context.Context, user string, limit int) ([]model.ChatTurn, error) {
	where := map[string]interface{}{
		"user_id":  user,
		"_orderby": "ctime desc, id desc",
		"_limit":   []uint{uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("chat_turns", where, []string{"id", "user_id", "query", "answer", "document", "sources", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var turns []model.ChatTurn
	for rows.Next() {
		var turn model.ChatTurn
		var blob []byte
		if err := rows.Scan(&turn.ID, &turn.User, &turn.Query, &turn.Answer, &turn.Document, &blob, &turn.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &turn.Sources); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query, oldest-first for callers.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *ChatRepo) Clear(ctx context.Context, user string) error {
	where := map[string]interface{}{
		"user_id": user,
	}
	sqlStr, args, err := builder.BuildDelete("chat_turns", where)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// DeleteBefore removes turns older than the cutoff and reports how many
// were removed.
func (r *ChatRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	where := map[string]interface{}{
		"ctime <": cutoff.Unix(),
	}
	sqlStr, args, err := builder.BuildDelete("chat_turns", where)
	if err != nil {
		return 0, err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
