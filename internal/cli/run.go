package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/internal/presentation/tui"
	"github.com/aretw0/flowengine/pkg/adapters/file"
	"github.com/aretw0/flowengine/pkg/domain"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	GraphPath     string // Graph file, or BuiltinCodeReview
	StatePath     string // Initial state file (JSON or YAML)
	State         string // Inline initial state (JSON or YAML), applied after StatePath
	CodePath      string // Source file loaded into state["code"]
	MaxIterations int
	JSON          bool
	// Render turns the markdown report into terminal output; nil prints it raw.
	Render func(string) (string, error)
}

// Run executes a graph file once and writes the result to out: a markdown
// report by default, or the raw result as JSON.
func Run(ctx context.Context, eng *flowengine.Engine, opts RunOptions, out io.Writer) (*domain.RunResult, error) {
	name, def, err := LoadDefinition(opts.GraphPath)
	if err != nil {
		return nil, err
	}

	state, err := initialState(opts)
	if err != nil {
		return nil, err
	}
	if err := eng.CheckInput(def, state); err != nil {
		return nil, err
	}

	res := eng.Run(ctx, def, state, opts.MaxIterations)

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return res, enc.Encode(res)
	}

	report := tui.RunReport(name, res)
	if opts.Render != nil {
		if rendered, err := opts.Render(report); err == nil {
			report = rendered
		}
	}
	_, err = fmt.Fprint(out, report)
	return res, err
}

func initialState(opts RunOptions) (domain.State, error) {
	state := domain.State{}
	if opts.StatePath != "" {
		loaded, err := file.LoadState(opts.StatePath)
		if err != nil {
			return nil, err
		}
		state.Merge(loaded)
	}
	if opts.State != "" {
		inline, err := file.ParseState([]byte(opts.State))
		if err != nil {
			return nil, fmt.Errorf("error parsing --state: %w", err)
		}
		state.Merge(inline)
	}
	if opts.CodePath != "" {
		code, err := os.ReadFile(opts.CodePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read code file: %w", err)
		}
		state["code"] = string(code)
	}
	return state, nil
}
