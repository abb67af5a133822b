package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// Endpoint is the Garmin Connect OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://connect.garmin.com/oauth2Confirm",
	TokenURL: "https://connectapi.garmin.com/oauth-service/oauth2/token",
}

// LoadToken reads a stored OAuth2 token from disk.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes an OAuth2 token to disk, creating parent directories
// as needed. The write goes through a temp file and rename so a crash
// never leaves a half-written token behind.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// persistingTokenSource wraps a refreshing token source and writes every
// refreshed token back to disk so the next process start reuses it.
type persistingTokenSource struct {
	mu   sync.Mutex
	path string
	src  oauth2.TokenSource
	last *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if p.last == nil || tok.AccessToken != p.last.AccessToken {
		if err := SaveToken(p.path, tok); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
		p.last = tok
	}
	return tok, nil
}

// TokenSource returns a token source backed by the token stored at path.
// Refreshed tokens are persisted back to the same path.
func TokenSource(ctx context.Context, cfg *oauth2.Config, path string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(path)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	return &persistingTokenSource{
		path: path,
		src:  cfg.TokenSource(ctx, tok),
		last: tok,
	}, nil
}
