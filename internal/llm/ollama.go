package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultOllamaURL is the generate endpoint of a locally running Ollama
// server.
const DefaultOllamaURL = "http://localhost:11434/api/generate"

// Ollama completes prompts against a local inference server. Requests
// are non-streaming; no timeout is applied beyond the HTTP client's own.
type Ollama struct {
	http *http.Client
	url  string
}

type OllamaOption func(*Ollama)

func WithOllamaHTTPClient(h *http.Client) OllamaOption {
	return func(o *Ollama) { o.http = h }
}

func WithOllamaURL(url string) OllamaOption {
	return func(o *Ollama) {
		if url != "" {
			o.url = url
		}
	}
}

func NewOllama(opts ...OllamaOption) *Ollama {
	o := &Ollama{
		http: http.DefaultClient,
		url:  DefaultOllamaURL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) Complete(ctx context.Context, modelID, prompt string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{Model: modelID, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(body))
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Response == "" {
		return "No response from Ollama.", nil
	}
	return out.Response, nil
}

var _ Completer = (*Ollama)(nil)
