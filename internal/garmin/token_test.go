package garmin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile", ".garmin_tokens", "oauth2.json")

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	require.NoError(t, SaveToken(path, tok))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, loaded.AccessToken)
	assert.Equal(t, tok.RefreshToken, loaded.RefreshToken)
	assert.True(t, tok.Expiry.Equal(loaded.Expiry))
}

func TestTokenSourceRequiresStoredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth2.json")
	_, err := TokenSource(context.Background(), &oauth2.Config{}, path)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestTokenSourcePersistsRefreshedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth2.json")
	stored := &oauth2.Token{
		AccessToken: "fresh",
		Expiry:      time.Now().Add(time.Hour),
	}
	require.NoError(t, SaveToken(path, stored))

	// a still-valid token comes back unchanged and without a rewrite
	ts, err := TokenSource(context.Background(), &oauth2.Config{}, path)
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
}
