// Package llm contains the three text-completion backend adapters and
// the selector that routes a model identifier to one of them.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Backend enumerates the completion providers.
type Backend int

const (
	BackendOllama Backend = iota
	BackendGemini
	BackendMLX
)

func (b Backend) String() string {
	switch b {
	case BackendOllama:
		return "Ollama"
	case BackendGemini:
		return "Gemini"
	case BackendMLX:
		return "MLX"
	default:
		return "unknown"
	}
}

// ResolveBackend maps a model identifier to its backend. The priority
// order is fixed: an explicit "mlx-" prefix wins, then anything that is
// not a Gemini model goes to the local Ollama server, and Gemini names
// go to the cloud API.
func ResolveBackend(modelID string) Backend {
	switch {
	case strings.HasPrefix(modelID, "mlx-"):
		return BackendMLX
	case !strings.HasPrefix(modelID, "gemini"):
		return BackendOllama
	default:
		return BackendGemini
	}
}

// Completer is a single synchronous text-completion capability. A nil
// context is not allowed; implementations make exactly one attempt.
type Completer interface {
	Complete(ctx context.Context, modelID, prompt string) (string, error)
}

// Failure kinds, distinguishable by errors.Is so the dispatcher can map
// them to the right user-facing message.
var (
	ErrConnectivity      = errors.New("backend unreachable")
	ErrMissingCredential = errors.New("missing credential")
	ErrMalformedResponse = errors.New("malformed backend response")
)
