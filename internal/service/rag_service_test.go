package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
	"github.com/xxxsen/docchat/internal/repo"
)

type fakeCompleter struct {
	answer    string
	fragments []string
	streamErr error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if f.answer == "" {
		return "", fmt.Errorf("no answer configured")
	}
	return f.answer, nil
}

func (f *fakeCompleter) CompleteStream(ctx context.Context, prompt string) (ai.Stream, error) {
	if f.streamErr != nil {
		return &failingStream{fragments: f.fragments, err: f.streamErr}, nil
	}
	return ai.NewSliceStream(f.fragments), nil
}

// failingStream emits its fragments then fails instead of reaching EOF.
type failingStream struct {
	fragments []string
	pos       int
	err       error
}

func (s *failingStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		fragment := s.fragments[s.pos]
		s.pos++
		return fragment, nil
	}
	return "", s.err
}

func (s *failingStream) Close() error { return nil }

func newTestService(t *testing.T, completer ai.ICompleter) (*RAGService, *repo.ChatRepo) {
	t.Helper()
	db, err := repo.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, repo.ApplyMigrations(db))
	t.Cleanup(func() { _ = db.Close() })
	chats := repo.NewChatRepo(db)
	svc := NewRAGService(RAGServiceDeps{
		Index:     index.NewMemory(),
		Completer: completer,
		Documents: repo.NewDocumentRepo(db),
		Chats:     chats,
		TopK:      3,
	})
	return svc, chats
}

func mustStore(t *testing.T, svc *RAGService, user, filename, content string) {
	t.Helper()
	result, err := svc.Store(context.Background(), user, []byte(content), filename)
	require.NoError(t, err)
	require.Equal(t, filename, result.Filename)
}

func TestStoreThenAnswerRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, chats := newTestService(t, &fakeCompleter{answer: "twenty days"})
	mustStore(t, svc, "alice", "handbook.txt", "Employees receive twenty days of paid vacation per year.")

	result, err := svc.Answer(ctx, "alice", "how many vacation days do I get?", "")
	require.NoError(t, err)
	require.Equal(t, "twenty days", result.Answer)
	require.Equal(t, "handbook.txt", result.Document)
	require.NotEmpty(t, result.Chunks)
	require.Equal(t, "handbook.txt", result.Chunks[0].Metadata.Filename)

	turns, err := chats.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "how many vacation days do I get?", turns[0].Query)
	require.Equal(t, "twenty days", turns[0].Answer)
	require.Equal(t, "handbook.txt", turns[0].Document)
	require.Equal(t, []model.ChunkRef{{Filename: "handbook.txt", ChunkIndex: 0}}, turns[0].Sources)
}

func TestAnswerRetrievalIsUserScoped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeCompleter{answer: "ok"})
	mustStore(t, svc, "bob", "secrets.txt", "The launch code is 4242.")

	result, err := svc.Answer(ctx, "alice", "what is the launch code?", "")
	require.NoError(t, err)
	require.Empty(t, result.Chunks)
}

func TestAnswerStreamPersistsOnExhaustion(t *testing.T) {
	ctx := context.Background()
	svc, chats := newTestService(t, &fakeCompleter{fragments: []string{"The answer ", "is ", "42."}})
	mustStore(t, svc, "alice", "notes.txt", "The answer to everything is 42.")

	stream, err := svc.AnswerStream(ctx, "alice", "what is the answer?", "")
	require.NoError(t, err)
	defer stream.Close()
	require.Equal(t, "notes.txt", stream.Document())

	var fragments []string
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}
	require.Equal(t, []string{"The answer ", "is ", "42."}, fragments)

	turns, err := chats.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "The answer is 42.", turns[0].Answer)
}

func TestAnswerStreamFailureSurfacesAndSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	svc, chats := newTestService(t, &fakeCompleter{
		fragments: []string{"partial ", "output "},
		streamErr: errors.New("upstream exploded"),
	})
	mustStore(t, svc, "alice", "notes.txt", "Some indexed text.")

	stream, err := svc.AnswerStream(ctx, "alice", "question", "")
	require.NoError(t, err)
	defer stream.Close()

	var fragments []string
	var terminal error
	for {
		fragment, err := stream.Recv()
		if err != nil {
			terminal = err
			break
		}
		fragments = append(fragments, fragment)
	}
	require.Equal(t, []string{"partial ", "output "}, fragments)
	require.ErrorIs(t, terminal, appErr.ErrCompletion)

	// The error is sticky across further Recv calls.
	_, err = stream.Recv()
	require.ErrorIs(t, err, appErr.ErrCompletion)

	turns, err := chats.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestAnswerStreamCloseBeforeExhaustionSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	svc, chats := newTestService(t, &fakeCompleter{fragments: []string{"a", "b", "c"}})
	mustStore(t, svc, "alice", "notes.txt", "Some indexed text.")

	stream, err := svc.AnswerStream(ctx, "alice", "question", "")
	require.NoError(t, err)

	fragment, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "a", fragment)

	require.NoError(t, stream.Close())
	_, err = stream.Recv()
	require.Equal(t, io.EOF, err)

	turns, err := chats.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestAnswerExplicitFilterScopesRetrieval(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeCompleter{answer: "ok"})
	mustStore(t, svc, "alice", "a.txt", "Alpha document about cats.")
	mustStore(t, svc, "alice", "b.txt", "Beta document about cats.")

	result, err := svc.Answer(ctx, "alice", "tell me about cats", "a.txt")
	require.NoError(t, err)
	require.Equal(t, "a.txt", result.Document)
	for _, chunk := range result.Chunks {
		require.Equal(t, "a.txt", chunk.Metadata.Filename)
	}
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	svc, chats := newTestService(t, &fakeCompleter{answer: "ok"})
	mustStore(t, svc, "alice", "notes.txt", "Some text.")

	_, err := svc.Answer(ctx, "alice", "question", "")
	require.NoError(t, err)

	require.NoError(t, svc.ClearHistory(ctx, "alice"))
	turns, err := chats.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Empty(t, turns)
}
