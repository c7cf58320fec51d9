package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/chunker"
	"github.com/xxxsen/docchat/internal/extract"
	"github.com/xxxsen/docchat/internal/filestore"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
	"github.com/xxxsen/docchat/internal/repo"
)

// RAGService runs the upload and answer pipelines over injected
// backends. Stages within one call are sequential; concurrent calls
// share the index and repos without client-side locking.
type RAGService struct {
	index        index.Index
	completer    ai.ICompleter
	documents    *repo.DocumentRepo
	chats        *repo.ChatRepo
	files        filestore.Store
	chunker      *chunker.Chunker
	topK         int
	historyLimit int
}

type RAGServiceDeps struct {
	Index     index.Index
	Completer ai.ICompleter
	Documents *repo.DocumentRepo
	Chats     *repo.ChatRepo
	// Files is optional; when set the raw upload is retained.
	Files        filestore.Store
	Chunker      *chunker.Chunker
	TopK         int
	HistoryLimit int
}

func NewRAGService(deps RAGServiceDeps) *RAGService {
	ck := deps.Chunker
	if ck == nil {
		ck = chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	}
	topK := deps.TopK
	if topK <= 0 {
		topK = 3
	}
	historyLimit := deps.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &RAGService{
		index:        deps.Index,
		completer:    deps.Completer,
		documents:    deps.Documents,
		chats:        deps.Chats,
		files:        deps.Files,
		chunker:      ck,
		topK:         topK,
		historyLimit: historyLimit,
	}
}

type StoreResult struct {
	Filename string
	FileType string
	Chunks   int
}

// Store extracts, chunks and indexes an upload, then marks it as the
// user's active document. The returned filename can scope an
// immediately following query.
func (s *RAGService) Store(ctx context.Context, user string, content []byte, filename string) (*StoreResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("user", user), zap.String("filename", filename))

	text, fileType, err := extract.Extract(content, filename)
	if err != nil {
		return nil, err
	}
	chunks := s.chunker.Split(text)
	metas := make([]model.ChunkMetadata, 0, len(chunks))
	for i := range chunks {
		metas = append(metas, model.ChunkMetadata{
			User:        user,
			Filename:    filename,
			FileType:    fileType,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
		})
	}

	if s.files != nil {
		key := filestore.Key(user, filename)
		if err := s.files.Save(ctx, key, nopSeekCloser{bytes.NewReader(content)}, int64(len(content))); err != nil {
			// Retention is best effort; indexing proceeds without it.
			logger.Warn("failed to retain raw upload", zap.Error(err))
		}
	}

	if err := s.index.Add(ctx, chunks, metas); err != nil {
		logger.Error("failed to index chunks", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrIndex, err)
	}
	if err := s.documents.Upsert(ctx, &model.UserDocument{User: user, Filename: filename, FileType: fileType}); err != nil {
		logger.Error("failed to track document", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	if err := s.documents.SetActive(ctx, user, filename); err != nil {
		logger.Error("failed to set active document", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	logger.Info("document stored", zap.String("file_type", fileType), zap.Int("chunks", len(chunks)))
	return &StoreResult{Filename: filename, FileType: fileType, Chunks: len(chunks)}, nil
}

type AnswerResult struct {
	Answer   string
	Document string
	Chunks   []model.RetrievedChunk
}

// Answer runs the blocking pipeline: resolve, retrieve, complete,
// persist.
func (s *RAGService) Answer(ctx context.Context, user string, query string, explicit string) (*AnswerResult, error) {
	prompt, document, chunks, err := s.prepare(ctx, user, query, explicit)
	if err != nil {
		return nil, err
	}
	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrCompletion, err)
	}
	s.persistTurn(ctx, user, query, answer, document, chunks)
	return &AnswerResult{Answer: answer, Document: document, Chunks: chunks}, nil
}

// AnswerStream runs the same pipeline but exposes the completion as a
// fragment stream. The chat turn is persisted only after the upstream
// stream is fully exhausted; closing early or a mid-stream failure
// persists nothing.
func (s *RAGService) AnswerStream(ctx context.Context, user string, query string, explicit string) (*AnswerStream, error) {
	prompt, document, chunks, err := s.prepare(ctx, user, query, explicit)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	upstream, err := s.completer.CompleteStream(streamCtx, prompt)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", appErr.ErrCompletion, err)
	}
	return &AnswerStream{
		svc:      s,
		ctx:      streamCtx,
		cancel:   cancel,
		upstream: upstream,
		user:     user,
		query:    query,
		document: document,
		chunks:   chunks,
	}, nil
}

func (s *RAGService) History(ctx context.Context, user string, limit int) ([]model.ChatTurn, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	turns, err := s.chats.History(ctx, user, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	return turns, nil
}

func (s *RAGService) ClearHistory(ctx context.Context, user string) error {
	if err := s.chats.Clear(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	return nil
}

func (s *RAGService) ListDocuments(ctx context.Context, user string) ([]model.UserDocument, error) {
	docs, err := s.documents.ListByUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	return docs, nil
}

// prepare runs the shared front half of both answer entry points:
// resolve the scoping document, retrieve chunks, assemble the prompt.
func (s *RAGService) prepare(ctx context.Context, user string, query string, explicit string) (string, string, []model.RetrievedChunk, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("user", user))

	docs, err := s.documents.ListByUser(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	active, err := s.documents.GetActive(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	document := ResolveDocument(query, explicit, docs, active)

	filter := index.Filter{User: user, Filename: document}
	chunks, err := s.index.Query(ctx, query, s.topK, filter)
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return "", "", nil, fmt.Errorf("%w: %v", appErr.ErrIndex, err)
	}
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	contextBlock := strings.Join(texts, "\n\n")

	history, err := s.chats.History(ctx, user, s.historyLimit)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	pairs := make([]model.QAPair, 0, len(history))
	for _, turn := range history {
		pairs = append(pairs, model.QAPair{Query: turn.Query, Answer: turn.Answer})
	}

	logger.Debug("pipeline prepared",
		zap.String("document", document),
		zap.Int("chunks", len(chunks)),
		zap.Int("history", len(pairs)))
	return BuildPrompt(query, contextBlock, pairs), document, chunks, nil
}

// persistTurn appends the chat turn. A failed append is logged but does
// not fail the request; the answer was already produced.
func (s *RAGService) persistTurn(ctx context.Context, user, query, answer, document string, chunks []model.RetrievedChunk) {
	sources := make([]model.ChunkRef, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, model.ChunkRef{
			Filename:   chunk.Metadata.Filename,
			ChunkIndex: chunk.Metadata.ChunkIndex,
		})
	}
	turn := &model.ChatTurn{
		User:     user,
		Query:    query,
		Answer:   answer,
		Document: document,
		Sources:  sources,
		Ctime:    time.Now().Unix(),
	}
	if err := s.chats.Save(ctx, turn); err != nil {
		logutil.GetLogger(ctx).Error("failed to persist chat turn",
			zap.String("user", user), zap.Error(err))
	}
}

type streamState int

const (
	streamStateStreaming streamState = iota
	streamStateCompleted
	streamStateFailed
	streamStateClosed
)

// AnswerStream forwards completion fragments and tracks an explicit
// terminal state. Persistence is attached to the completed transition
// only; failed and closed streams leave no chat turn behind.
type AnswerStream struct {
	svc      *RAGService
	ctx      context.Context
	cancel   context.CancelFunc
	upstream ai.Stream

	user     string
	query    string
	document string
	chunks   []model.RetrievedChunk

	mu        sync.Mutex
	state     streamState
	fragments []string
	termErr   error
}

func (s *AnswerStream) Document() string {
	return s.document
}

func (s *AnswerStream) Chunks() []model.RetrievedChunk {
	return s.chunks
}

// Recv returns the next non-empty fragment, io.EOF once the upstream is
// exhausted, or a terminal error on upstream failure.
func (s *AnswerStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case streamStateCompleted, streamStateClosed:
		return "", io.EOF
	case streamStateFailed:
		return "", s.termErr
	}
	fragment, err := s.upstream.Recv()
	if err == nil {
		s.fragments = append(s.fragments, fragment)
		return fragment, nil
	}
	if err == io.EOF {
		s.state = streamStateCompleted
		answer := strings.TrimSpace(strings.Join(s.fragments, ""))
		s.svc.persistTurn(s.ctx, s.user, s.query, answer, s.document, s.chunks)
		s.release()
		return "", io.EOF
	}
	s.state = streamStateFailed
	s.termErr = fmt.Errorf("%w: %v", appErr.ErrCompletion, err)
	s.release()
	return "", s.termErr
}

// Close aborts the stream. Closing before exhaustion cancels the
// upstream completion call and skips persistence.
func (s *AnswerStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == streamStateStreaming {
		s.state = streamStateClosed
	}
	s.release()
	return nil
}

func (s *AnswerStream) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.upstream != nil {
		_ = s.upstream.Close()
		s.upstream = nil
	}
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
