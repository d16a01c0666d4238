package ports

import (
	"context"

	"github.com/aretw0/flowengine/pkg/domain"
)

// Executor interprets a graph definition to completion.
// Implementations never fail a run with an error: failures are reported in the
// returned log.
type Executor interface {
	Run(ctx context.Context, runID string, def *domain.Definition, initial domain.State, maxIterations int) *domain.RunResult
}
