package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docchat/internal/model"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert records a document for the user, refreshing mtime when the
// same filename is uploaded again.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *model.UserDocument) error {
	now := time.Now().Unix()
	ctime := doc.Ctime
	if ctime == 0 {
		ctime = now
	}
	data := map[string]interface{}{
		"user_id":   doc.User,
		"filename":  doc.Filename,
		"file_type": doc.FileType,
		"ctime":     ctime,
		"mtime":     now,
	}
	sqlStr, args, err := builder.BuildInsert("user_documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListByUser returns the user's documents in upload order.
func (r *DocumentRepo) ListByUser(ctx context.Context, user string) ([]model.UserDocument, error) {
	where := map[string]interface{}{
		"user_id":  user,
		"_orderby": "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("user_documents", where, []string{"user_id", "filename", "file_type", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.UserDocument
	for rows.Next() {
		var doc model.UserDocument
		if err := rows.Scan(&doc.User, &doc.Filename, &doc.FileType, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetActive returns the user's active document filename, or "" when the
// user has none.
func (r *DocumentRepo) GetActive(ctx context.Context, user string) (string, error) {
	where := map[string]interface{}{
		"user_id": user,
	}
	sqlStr, args, err := builder.BuildSelect("active_documents", where, []string{"filename"})
	if err != nil {
		return "", err
	}
	var filename string
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&filename); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return filename, nil
}

func (r *DocumentRepo) SetActive(ctx context.Context, user string, filename string) error {
	data := map[string]interface{}{
		"user_id":  user,
		"filename": filename,
		"mtime":    time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("active_documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
