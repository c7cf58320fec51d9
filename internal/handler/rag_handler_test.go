package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/handler"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/pkg/errcode"
	"github.com/xxxsen/docchat/internal/repo"
	"github.com/xxxsen/docchat/internal/service"
)

type stubCompleter struct {
	answer    string
	fragments []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.answer, nil
}

func (s *stubCompleter) CompleteStream(ctx context.Context, prompt string) (ai.Stream, error) {
	return ai.NewSliceStream(s.fragments), nil
}

func setupRouter(t *testing.T, completer ai.ICompleter) *gin.Engine {
	t.Helper()
	db, err := repo.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, repo.ApplyMigrations(db))
	t.Cleanup(func() { _ = db.Close() })

	svc := service.NewRAGService(service.RAGServiceDeps{
		Index:     index.NewMemory(),
		Completer: completer,
		Documents: repo.NewDocumentRepo(db),
		Chats:     repo.NewChatRepo(db),
	})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"), handler.RouterDeps{
		RAG: handler.NewRAGHandler(svc),
	})
	return engine
}

func doJSON(t *testing.T, router *gin.Engine, method, path, user string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return resp, envelope
}

func uploadFile(t *testing.T, router *gin.Engine, user, filename, content string) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-Id", user)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope
}

func envelopeCode(envelope map[string]interface{}) float64 {
	code, _ := envelope["code"].(float64)
	return code
}

func envelopeData(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "envelope has no data object: %v", envelope)
	return data
}

func TestIdentityRequired(t *testing.T) {
	router := setupRouter(t, &stubCompleter{answer: "ok"})

	_, envelope := doJSON(t, router, http.MethodPost, "/api/v1/rag/query", "", map[string]string{"query": "hi"})
	require.Equal(t, float64(errcode.ErrUnauthorized), envelopeCode(envelope))
}

func TestUploadAndQueryFlow(t *testing.T) {
	router := setupRouter(t, &stubCompleter{answer: "the vacation allowance is twenty days"})

	envelope := uploadFile(t, router, "alice", "handbook.txt", "Employees receive twenty days of paid vacation per year.")
	require.Equal(t, "handbook.txt", envelopeData(t, envelope)["filename"])

	_, envelope = doJSON(t, router, http.MethodPost, "/api/v1/rag/query", "alice", map[string]string{
		"query": "how many vacation days?",
	})
	data := envelopeData(t, envelope)
	require.Equal(t, "the vacation allowance is twenty days", data["answer"])
	require.Equal(t, "handbook.txt", data["document_used"])
	sources, ok := data["sources"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, sources)
}

func TestQueryRequiresQueryText(t *testing.T) {
	router := setupRouter(t, &stubCompleter{answer: "ok"})

	_, envelope := doJSON(t, router, http.MethodPost, "/api/v1/rag/query", "alice", map[string]string{})
	require.Equal(t, float64(errcode.ErrInvalid), envelopeCode(envelope))
}

func TestQueryStreamEmitsFragmentsAndDone(t *testing.T) {
	router := setupRouter(t, &stubCompleter{fragments: []string{"Hello", " there"}})
	uploadFile(t, router, "alice", "notes.txt", "Some note content.")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rag/query/stream?query=hi", nil)
	req.Header.Set("X-User-Id", "alice")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/event-stream")
	body := resp.Body.String()
	require.Contains(t, body, "event:message")
	require.Contains(t, body, "Hello")
	require.Contains(t, body, "event:done")
	require.Contains(t, body, "notes.txt")
}

func TestHistoryLifecycle(t *testing.T) {
	router := setupRouter(t, &stubCompleter{answer: "fine"})
	uploadFile(t, router, "alice", "notes.txt", "Some note content.")

	_, envelope := doJSON(t, router, http.MethodPost, "/api/v1/rag/query", "alice", map[string]string{"query": "how are you?"})
	require.NotNil(t, envelope["data"])

	_, envelope = doJSON(t, router, http.MethodGet, "/api/v1/rag/history", "alice", nil)
	items, ok := envelopeData(t, envelope)["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)

	_, envelope = doJSON(t, router, http.MethodDelete, "/api/v1/rag/history", "alice", nil)
	require.NotNil(t, envelope)

	_, envelope = doJSON(t, router, http.MethodGet, "/api/v1/rag/history", "alice", nil)
	items, ok = envelopeData(t, envelope)["items"].([]interface{})
	require.True(t, ok)
	require.Empty(t, items)
}

func TestListDocuments(t *testing.T) {
	router := setupRouter(t, &stubCompleter{answer: "ok"})
	uploadFile(t, router, "alice", "a.txt", "Alpha.")
	uploadFile(t, router, "alice", "b.txt", "Beta.")

	_, envelope := doJSON(t, router, http.MethodGet, "/api/v1/rag/documents", "alice", nil)
	items, ok := envelopeData(t, envelope)["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)
}
