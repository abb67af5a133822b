package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/conejito/coach/internal/llm"
	"github.com/conejito/coach/internal/metrics"
	"github.com/conejito/coach/internal/store"
)

// MissingAPIKeyMessage is returned when a Gemini model is selected but
// no credential is supplied. No network attempt is made.
const MissingAPIKeyMessage = "Please provide a valid Gemini API Key in the settings."

// OllamaDownMessage is returned when the local inference server cannot
// be reached.
const OllamaDownMessage = "Error: Could not connect to Ollama. Make sure it is running."

// assessmentRequest is appended to the system prompt in non-chat mode.
const assessmentRequest = "Please provide a brief, actionable assessment of my current state and a recommendation for the next 2 days. Structure it with 'Status Check', 'Analysis', and 'Recommendation'."

// Request is a single completion request.
type Request struct {
	// APIKey is the Gemini credential; may be empty, which only matters
	// for Gemini models.
	APIKey    string
	AthleteID string
	ModelID   string
	// ChatMode appends the history transcript and the new user message;
	// otherwise a fixed 2-day assessment request is appended.
	ChatMode    bool
	UserMessage string
	History     []store.ChatMessage
}

// Dispatcher routes composed prompts to one of three completion
// backends and normalizes every failure into a user-facing string. It
// owns the MLX model cache; because that cache holds a single resident
// model, concurrent dispatch with different mlx model identifiers is
// not supported (known limitation, inherited from the on-device
// runtime).
type Dispatcher struct {
	composer  *Composer
	ollama    llm.Completer
	mlx       llm.Completer
	newGemini func(apiKey string) (llm.Completer, error)
	logger    zerolog.Logger
}

// DispatcherOptions wires the dispatcher's collaborators. Zero-value
// fields get production defaults.
type DispatcherOptions struct {
	Composer  *Composer
	Ollama    llm.Completer
	MLX       llm.Completer
	NewGemini func(apiKey string) (llm.Completer, error)
	Logger    zerolog.Logger
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		composer:  opts.Composer,
		ollama:    opts.Ollama,
		mlx:       opts.MLX,
		newGemini: opts.NewGemini,
		logger:    opts.Logger,
	}
	if d.ollama == nil {
		d.ollama = llm.NewOllama()
	}
	if d.mlx == nil {
		d.mlx = llm.NewMLX(llm.ExecRuntime{})
	}
	if d.newGemini == nil {
		d.newGemini = func(apiKey string) (llm.Completer, error) {
			return llm.NewGemini(apiKey)
		}
	}
	return d
}

// Respond builds the full prompt for the request, dispatches it to the
// backend selected by the model identifier, and returns the response
// text plus elapsed wall-clock time. Failures come back as readable
// strings, never as errors; a short-circuited request reports zero
// elapsed time.
func (d *Dispatcher) Respond(ctx context.Context, req Request) (string, time.Duration) {
	backend := llm.ResolveBackend(req.ModelID)

	if backend == llm.BackendGemini && req.APIKey == "" {
		return MissingAPIKeyMessage, 0
	}

	start := time.Now()
	prompt := d.buildPrompt(ctx, req)

	var text string
	var err error
	switch backend {
	case llm.BackendMLX:
		text, err = d.mlx.Complete(ctx, req.ModelID, prompt)
	case llm.BackendGemini:
		var client llm.Completer
		client, err = d.newGemini(req.APIKey)
		if err == nil {
			text, err = client.Complete(ctx, req.ModelID, prompt)
		}
	default:
		text, err = d.ollama.Complete(ctx, req.ModelID, prompt)
	}
	elapsed := time.Since(start)

	if err != nil {
		d.logger.Warn().Err(err).
			Str("backend", backend.String()).
			Str("model", req.ModelID).
			Dur("elapsed", elapsed).
			Msg("completion failed")
		metrics.CompletionsTotal.WithLabelValues(backend.String(), metrics.ResultFailure).Inc()
		return userFacingError(backend, err), elapsed
	}

	metrics.CompletionsTotal.WithLabelValues(backend.String(), metrics.ResultSuccess).Inc()
	metrics.CompletionSeconds.WithLabelValues(backend.String()).Observe(elapsed.Seconds())
	return text, elapsed
}

// buildPrompt composes the system prompt and appends the mode-specific
// tail: the chat transcript plus the new message, or the fixed
// assessment request.
func (d *Dispatcher) buildPrompt(ctx context.Context, req Request) string {
	system := d.composer.SystemPrompt(ctx, req.AthleteID, req.ModelID)

	if !req.ChatMode {
		return system + "\n\n" + assessmentRequest
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nCHAT HISTORY:\n")
	for _, msg := range req.History {
		fmt.Fprintf(&b, "%s: %s\n", capitalize(msg.Role), msg.Content)
	}
	fmt.Fprintf(&b, "\nAthlete: %s\nCoach:", req.UserMessage)
	return b.String()
}

// userFacingError converts a typed backend failure into the string shown
// to the athlete.
func userFacingError(backend llm.Backend, err error) string {
	if backend == llm.BackendOllama && errors.Is(err, llm.ErrConnectivity) {
		return OllamaDownMessage
	}
	return fmt.Sprintf("Error with %s: %v", backend, err)
}
