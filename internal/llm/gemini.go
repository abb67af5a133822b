package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultGeminiBaseURL is the Generative Language API root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini completes prompts against the Google cloud API. A client is
// constructed per credential; construction fails on an empty key so the
// caller can short-circuit before any network attempt.
type Gemini struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

type GeminiOption func(*Gemini)

func WithGeminiHTTPClient(h *http.Client) GeminiOption {
	return func(g *Gemini) { g.http = h }
}

func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *Gemini) {
		if url != "" {
			g.baseURL = url
		}
	}
}

func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	g := &Gemini{
		http:    http.DefaultClient,
		baseURL: DefaultGeminiBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, modelID, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, modelID, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(body))
	}

	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrMalformedResponse)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

var _ Completer = (*Gemini)(nil)
