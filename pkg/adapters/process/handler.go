package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/registry"
)

// EnvPrefix prefixes the environment variables carrying state values.
const EnvPrefix = "FLOWENGINE_ARG_"

// DefaultWaitDelay is how long a cancelled command may take to exit after the
// interrupt before it is killed.
const DefaultWaitDelay = 5 * time.Second

// Handler runs a command with the state on stdin (as JSON) and in the
// environment. Stdout holding a JSON object becomes a partial state update;
// any other output is recorded as-is.
type Handler struct {
	tool      Tool
	baseDir   string
	waitDelay time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(h *Handler) {
		h.baseDir = dir
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(h *Handler) {
		h.waitDelay = d
	}
}

// NewHandler creates a handler for tool.
func NewHandler(tool Tool, opts ...Option) *Handler {
	h := &Handler{tool: tool, waitDelay: DefaultWaitDelay}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds every tool to reg under its name.
func Register(reg *registry.Registry, tools []Tool, opts ...Option) {
	for _, tool := range tools {
		reg.Register(tool.Name, NewHandler(tool, opts...))
	}
}

// Invoke satisfies registry.Handler.
func (h *Handler) Invoke(ctx context.Context, state domain.State) (any, error) {
	input, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state for %s: %w", h.tool.Name, err)
	}

	// Arguments are never spliced into the command line; state travels through
	// stdin and the environment only.
	cmd := exec.CommandContext(ctx, h.tool.Command, h.tool.Args...)
	cmd.Dir = h.baseDir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(cmd.Environ(), h.environment(state)...)
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = h.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", h.tool.Name, ctxErr)
		}
		return nil, fmt.Errorf("%s: execution failed: %w: %s", h.tool.Name, err, strings.TrimSpace(stderr.String()))
	}
	return parseOutput(stdout.String()), nil
}

func (h *Handler) environment(state domain.State) []string {
	env := make([]string, 0, len(h.tool.Environment)+len(state))
	for k, v := range h.tool.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range state {
		env = append(env, EnvPrefix+envName(k)+"="+envValue(v))
	}
	return env
}

// envName upper-cases k and replaces anything outside [A-Z0-9_] with '_'.
func envName(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, k)
}

func envValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	// Complex types: Try JSON
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}

func parseOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	// Try to parse as JSON (Auto-Detection)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var result any
		if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
			return result
		}
	}
	return trimmed
}
