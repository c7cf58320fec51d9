package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAICompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider, err := NewProvider("openai", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL,
	})
	require.NoError(t, err)

	stream, err := provider.CompleteStream(context.Background(), "gpt-4o-mini", "hi")
	require.NoError(t, err)
	defer stream.Close()

	var fragments []string
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotEmpty(t, fragment)
		fragments = append(fragments, fragment)
	}
	// The empty delta is filtered out before delivery.
	require.Equal(t, []string{"Hello", " world"}, fragments)
}

func TestOpenAICompleteStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewProvider("openai", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL,
	})
	require.NoError(t, err)

	_, err = provider.CompleteStream(context.Background(), "gpt-4o-mini", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestOpenAICompleteBlocking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  the answer  "}}]}`)
	}))
	defer server.Close()

	provider, err := NewProvider("openai", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL,
	})
	require.NoError(t, err)

	answer, err := provider.Complete(context.Background(), "gpt-4o-mini", "hi")
	require.NoError(t, err)
	require.Equal(t, "the answer", answer)
}

func TestCompleterRequiresAPIKey(t *testing.T) {
	provider, err := NewProvider("openai", map[string]interface{}{})
	require.NoError(t, err)
	completer := NewCompleter(provider, "gpt-4o-mini", 0)
	_, err = completer.Complete(context.Background(), "hi")
	require.ErrorIs(t, err, ErrUnavailable)
}
