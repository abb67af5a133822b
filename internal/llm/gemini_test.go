package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini("")
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestGeminiComplete(t *testing.T) {
	var gotPath, gotKey string
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(geminiReply("rest tomorrow"))
	}))
	defer srv.Close()

	g, err := NewGemini("test-key", WithGeminiBaseURL(srv.URL))
	require.NoError(t, err)

	text, err := g.Complete(context.Background(), "gemini-2.0-flash", "assess me")
	require.NoError(t, err)
	assert.Equal(t, "rest tomorrow", text)

	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "assess me", got.Contents[0].Parts[0].Text)
}

func TestGeminiHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "API key not valid"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g, err := NewGemini("bad-key", WithGeminiBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "gemini-2.0-flash", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestGeminiNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	g, err := NewGemini("k", WithGeminiBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "gemini-2.0-flash", "p")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestGeminiUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g, err := NewGemini("k", WithGeminiBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "gemini-2.0-flash", "p")
	assert.True(t, errors.Is(err, ErrConnectivity))
}
