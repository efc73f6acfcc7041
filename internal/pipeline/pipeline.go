// Package pipeline runs fixed sequential stage chains. Each stage consumes
// the state produced by the previous one; the first failure halts the run
// and names the stage that failed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is one named step of a pipeline. Run receives the accumulated state
// and returns the updated state.
type Stage[S any] struct {
	Name string
	Run  func(ctx context.Context, state S) (S, error)
}

// StageError reports which stage of which pipeline failed.
type StageError struct {
	Pipeline string
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s pipeline failed at stage %q: %v", e.Pipeline, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Run folds the state through stages in order. A stage that returns an error
// stops the run; stages after it are never invoked.
func Run[S any](ctx context.Context, log *slog.Logger, name string, state S, stages []Stage[S]) (S, error) {
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return state, &StageError{Pipeline: name, Stage: stage.Name, Err: err}
		}
		start := time.Now()
		next, err := stage.Run(ctx, state)
		if err != nil {
			log.Error("stage failed",
				"pipeline", name,
				"stage", stage.Name,
				"index", i,
				"duration_ms", time.Since(start).Milliseconds(),
				"err", err,
			)
			return state, &StageError{Pipeline: name, Stage: stage.Name, Err: err}
		}
		log.Info("stage complete",
			"pipeline", name,
			"stage", stage.Name,
			"index", i,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		state = next
	}
	return state, nil
}
