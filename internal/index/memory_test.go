package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/model"
)

func seedMemoryIndex(t *testing.T) Index {
	idx := NewMemory()
	texts := []string{
		"The quarterly revenue grew by twelve percent.",
		"Employees may take twenty days of paid vacation.",
		"Vacation requests require manager approval.",
	}
	metas := []model.ChunkMetadata{
		{User: "alice", Filename: "report.pdf", FileType: "pdf", ChunkIndex: 0, TotalChunks: 1},
		{User: "alice", Filename: "handbook.docx", FileType: "docx", ChunkIndex: 0, TotalChunks: 2},
		{User: "bob", Filename: "handbook.docx", FileType: "docx", ChunkIndex: 1, TotalChunks: 2},
	}
	require.NoError(t, idx.Add(context.Background(), texts, metas))
	return idx
}

func TestMemoryQueryUserScoped(t *testing.T) {
	idx := seedMemoryIndex(t)
	chunks, err := idx.Query(context.Background(), "vacation days", 3, Filter{User: "alice"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		require.Equal(t, "alice", chunk.Metadata.User)
	}
	require.Equal(t, "handbook.docx", chunks[0].Metadata.Filename)
}

func TestMemoryQueryFilenameScoped(t *testing.T) {
	idx := seedMemoryIndex(t)
	chunks, err := idx.Query(context.Background(), "vacation policy", 3, Filter{User: "alice", Filename: "report.pdf"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "report.pdf", chunks[0].Metadata.Filename)
}

func TestMemoryQueryTopK(t *testing.T) {
	idx := seedMemoryIndex(t)
	chunks, err := idx.Query(context.Background(), "vacation", 1, Filter{User: "alice"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestMemoryQueryNoMatches(t *testing.T) {
	idx := seedMemoryIndex(t)
	chunks, err := idx.Query(context.Background(), "anything", 3, Filter{User: "carol"})
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestMemoryAddLengthMismatch(t *testing.T) {
	idx := NewMemory()
	err := idx.Add(context.Background(), []string{"a", "b"}, []model.ChunkMetadata{{User: "alice"}})
	require.Error(t, err)
}
