package model

// ChunkMetadata annotates one indexed chunk with its origin.
type ChunkMetadata struct {
	User        string `json:"user"`
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// RetrievedChunk is one nearest-neighbor hit for a query. Ephemeral,
// consumed within a single pipeline invocation.
type RetrievedChunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}
