package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/pkg/errcode"
	"github.com/xxxsen/docchat/internal/pkg/response"
	"github.com/xxxsen/docchat/internal/service"
)

const maxUploadBytes = 32 << 20

type RAGHandler struct {
	rag *service.RAGService
}

func NewRAGHandler(rag *service.RAGService) *RAGHandler {
	return &RAGHandler{rag: rag}
}

type queryRequest struct {
	Query    string `json:"query"`
	Document string `json:"document"`
}

type queryResponse struct {
	Answer       string           `json:"answer"`
	DocumentUsed string           `json:"document_used"`
	Sources      []model.ChunkRef `json:"sources"`
}

func chunkSources(chunks []model.RetrievedChunk) []model.ChunkRef {
	sources := make([]model.ChunkRef, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, model.ChunkRef{
			Filename:   chunk.Metadata.Filename,
			ChunkIndex: chunk.Metadata.ChunkIndex,
		})
	}
	return sources
}

func (h *RAGHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	content, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}

	result, err := h.rag.Store(c.Request.Context(), getUserID(c), content, file.Filename)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"filename":  result.Filename,
		"file_type": result.FileType,
		"chunks":    result.Chunks,
	})
}

func (h *RAGHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return
	}
	result, err := h.rag.Answer(c.Request.Context(), getUserID(c), req.Query, req.Document)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, queryResponse{
		Answer:       result.Answer,
		DocumentUsed: result.Document,
		Sources:      chunkSources(result.Chunks),
	})
}

// QueryStream answers over SSE: one "message" event per fragment, then a
// "done" event carrying the document and sources, or an "error" event on
// mid-stream failure.
func (h *RAGHandler) QueryStream(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return
	}
	document := c.Query("document")

	stream, err := h.rag.AnswerStream(c.Request.Context(), getUserID(c), query, document)
	if err != nil {
		handleError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			c.SSEvent("done", gin.H{
				"document_used": stream.Document(),
				"sources":       chunkSources(stream.Chunks()),
			})
			c.Writer.Flush()
			return
		}
		if err != nil {
			c.SSEvent("error", gin.H{"message": "completion service failed"})
			c.Writer.Flush()
			return
		}
		c.SSEvent("message", fragment)
		c.Writer.Flush()
	}
}

func (h *RAGHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid limit")
			return
		}
		limit = parsed
	}
	turns, err := h.rag.History(c.Request.Context(), getUserID(c), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	response.Success(c, gin.H{"items": turns})
}

func (h *RAGHandler) ClearHistory(c *gin.Context) {
	if err := h.rag.ClearHistory(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

func (h *RAGHandler) ListDocuments(c *gin.Context) {
	docs, err := h.rag.ListDocuments(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.UserDocument{}
	}
	response.Success(c, gin.H{"items": docs})
}
