package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/recourse"
	"github.com/andresuchdata/perishable-vss/internal/solver"
)

// Worker builds and solves the model for one stage
type Worker struct {
	solver solver.Solver
	ds     *domain.Dataset
	log    zerolog.Logger
}

// NewWorker creates a new stage worker
func NewWorker(s solver.Solver, ds *domain.Dataset, log zerolog.Logger) *Worker {
	return &Worker{solver: s, ds: ds, log: log}
}

// Process solves the stage's model and records the outcome on stage.
func (w *Worker) Process(ctx context.Context, stage *StageRun) (*recourse.Result, error) {
	stage.Status = StatusProcessing
	stage.StartedAt = time.Now()
	w.log.Debug().Str("stage", stage.Name).Msg("solving model")

	res, err := recourse.BuildAndSolve(ctx, w.solver, w.ds, stage.Source)
	stage.Duration = time.Since(stage.StartedAt)
	if err != nil {
		return nil, w.markStageFailed(stage, err)
	}

	stage.Status = StatusCompleted
	stage.Objective = res.Objective()
	w.log.Debug().
		Str("stage", stage.Name).
		Float64("objective", stage.Objective).
		Dur("duration", stage.Duration).
		Msg("model solved")
	return res, nil
}

func (w *Worker) markStageFailed(stage *StageRun, err error) error {
	stage.Status = StatusFailed
	stage.ErrorMessage = err.Error()
	w.log.Error().Err(err).Str("stage", stage.Name).Msg("stage failed")
	return fmt.Errorf("stage %s: %w", stage.Name, err)
}
