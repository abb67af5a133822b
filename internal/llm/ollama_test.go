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

func TestOllamaComplete(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"response": "easy week, then build"})
	}))
	defer srv.Close()

	o := NewOllama(WithOllamaURL(srv.URL))
	text, err := o.Complete(context.Background(), "deepseek-r1:8b", "how is my training?")
	require.NoError(t, err)
	assert.Equal(t, "easy week, then build", text)

	assert.Equal(t, "deepseek-r1:8b", got.Model)
	assert.Equal(t, "how is my training?", got.Prompt)
	assert.False(t, got.Stream)
}

func TestOllamaEmptyResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": ""})
	}))
	defer srv.Close()

	o := NewOllama(WithOllamaURL(srv.URL))
	text, err := o.Complete(context.Background(), "m", "p")
	require.NoError(t, err)
	assert.Equal(t, "No response from Ollama.", text)
}

func TestOllamaServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	o := NewOllama(WithOllamaURL(srv.URL))
	_, err := o.Complete(context.Background(), "m", "p")
	assert.True(t, errors.Is(err, ErrConnectivity))
}

func TestOllamaHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(WithOllamaURL(srv.URL))
	_, err := o.Complete(context.Background(), "nope", "p")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConnectivity))
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	o := NewOllama(WithOllamaURL(srv.URL))
	_, err := o.Complete(context.Background(), "m", "p")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestWithOllamaURLIgnoresEmpty(t *testing.T) {
	o := NewOllama(WithOllamaURL(""))
	assert.Equal(t, DefaultOllamaURL, o.url)
}
