package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MLXMaxTokens is the fixed output-token budget for on-device generation.
const MLXMaxTokens = 2048

// modelPaths maps shorthand identifiers to full model paths. Unknown
// identifiers fall back to stripping the "mlx-" prefix.
var modelPaths = map[string]string{
	"mlx-deepseek-8b": "mlx-community/DeepSeek-R1-Distill-Llama-8B-4bit",
	"mlx-phi4":        "mlx-community/phi-4-4bit",
}

// ResolveModelPath returns the on-device model path for a model id.
func ResolveModelPath(modelID string) string {
	if path, ok := modelPaths[modelID]; ok {
		return path
	}
	return strings.TrimPrefix(modelID, "mlx-")
}

// Model is a loaded on-device model.
type Model interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Runtime loads models into memory.
type Runtime interface {
	Load(path string) (Model, error)
}

// MLX completes prompts with a locally loaded model. Only one model is
// resident at a time: requesting a different resolved path evicts the
// previous model and loads the new one, so repeated calls with the same
// identifier avoid reload cost. The cache is not safe for concurrent
// calls with different model identifiers; callers serialize dispatch.
type MLX struct {
	runtime Runtime
	path    string
	model   Model
}

func NewMLX(runtime Runtime) *MLX {
	return &MLX{runtime: runtime}
}

func (m *MLX) Complete(ctx context.Context, modelID, prompt string) (string, error) {
	path := ResolveModelPath(modelID)
	if m.model == nil || m.path != path {
		model, err := m.runtime.Load(path)
		if err != nil {
			return "", fmt.Errorf("load model %s: %w", path, err)
		}
		m.model = model
		m.path = path
	}
	return m.model.Generate(ctx, prompt, MLXMaxTokens)
}

var _ Completer = (*MLX)(nil)

// ExecRuntime shells out to the mlx_lm generate command. "Loading" is a
// no-op beyond remembering the path; the weights are resolved by the
// command itself on first generation.
type ExecRuntime struct {
	// Command is the generate binary, e.g. "mlx_lm.generate".
	Command string
}

func (r ExecRuntime) Load(path string) (Model, error) {
	cmd := r.Command
	if cmd == "" {
		cmd = "mlx_lm.generate"
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return nil, fmt.Errorf("mlx runtime unavailable: %w", err)
	}
	return &execModel{command: cmd, path: path}, nil
}

type execModel struct {
	command string
	path    string
}

func (m *execModel) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	cmd := exec.CommandContext(ctx, m.command,
		"--model", m.path,
		"--max-tokens", strconv.Itoa(maxTokens),
		"--prompt", "-",
	)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("mlx generate: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
