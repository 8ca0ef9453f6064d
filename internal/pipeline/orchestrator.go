package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/metrics"
	"github.com/andresuchdata/perishable-vss/internal/recourse"
	"github.com/andresuchdata/perishable-vss/internal/solver"
)

// Outcome is a finished run with the results the metrics step needs.
type Outcome struct {
	Run    *Run
	Solved metrics.Solved
}

// Orchestrator coordinates solving every model a dataset needs.
type Orchestrator struct {
	cfg    Config
	solver solver.Solver
	log    zerolog.Logger
	makeW  func(s solver.Solver, ds *domain.Dataset, log zerolog.Logger) *Worker
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg Config, s solver.Solver, log zerolog.Logger) *Orchestrator {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &Orchestrator{
		cfg:    cfg,
		solver: s,
		log:    log.With().Str("run", cfg.Name).Logger(),
		makeW:  NewWorker,
	}
}

// Run solves the expected-value, stochastic and perfect-information models
// concurrently, then the pinned-order check when enabled. The first failure
// cancels stages that have not started yet.
func (o *Orchestrator) Run(ctx context.Context, ds *domain.Dataset) (*Outcome, error) {
	run := &Run{
		Name:      o.cfg.Name,
		Dataset:   ds.Name,
		Status:    StatusProcessing,
		StartedAt: time.Now(),
	}
	worker := o.makeW(o.solver, ds, o.log.With().Str("dataset", ds.Name).Logger())

	o.log.Info().
		Str("dataset", ds.Name).
		Int("cells", len(ds.Cells())).
		Int("scenarios", len(ds.Scenarios)).
		Int("workers", o.cfg.WorkerCount).
		Msg("starting evaluation")

	// Phase 1: the independent models
	sources := []recourse.DemandSource{recourse.ExpectedDemand(), recourse.RecourseDemand()}
	for _, sc := range ds.Scenarios {
		sources = append(sources, recourse.ScenarioDemand(sc.ID))
	}
	results, err := o.solveStages(ctx, run, worker, sources)
	if err != nil {
		return nil, o.fail(run, err)
	}

	out := &Outcome{
		Run: run,
		Solved: metrics.Solved{
			Expected:    results[0],
			Stochastic:  results[1],
			PerfectInfo: make(map[string]*recourse.Result, len(ds.Scenarios)),
		},
	}
	for _, res := range results[2:] {
		out.Solved.PerfectInfo[res.Source().Scenario()] = res
	}

	// Phase 2: the pinned-order check depends on the EV plan
	if o.cfg.VerifyEEV {
		pinned, err := o.solveStages(ctx, run, worker, []recourse.DemandSource{
			recourse.RecourseDemand().WithFixedOrders(out.Solved.Expected.Plan()),
		})
		if err != nil {
			return nil, o.fail(run, err)
		}
		out.Solved.Pinned = pinned[0]
	}

	run.Status = StatusCompleted
	now := time.Now()
	run.CompletedAt = &now

	m := run.Metrics()
	o.log.Info().
		Int("models", m.ModelsSolved).
		Dur("elapsed", now.Sub(run.StartedAt)).
		Str("slowest", m.SlowestStage).
		Msg("evaluation completed")
	return out, nil
}

// solveStages runs one stage per source using a bounded worker pool. Results
// are returned in source order.
func (o *Orchestrator) solveStages(ctx context.Context, run *Run, w *Worker, sources []recourse.DemandSource) ([]*recourse.Result, error) {
	stages := make([]*StageRun, len(sources))
	for i, src := range sources {
		stages[i] = &StageRun{Name: src.String(), Source: src, Status: StatusPending}
	}
	run.Stages = append(run.Stages, stages...)

	results := make([]*recourse.Result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.WorkerCount)
	for i, stage := range stages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := w.Process(gctx, stage)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) fail(run *Run, err error) error {
	run.Status = StatusFailed
	run.ErrorMessage = err.Error()
	now := time.Now()
	run.CompletedAt = &now
	return fmt.Errorf("evaluation %s failed: %w", run.Name, err)
}

// Evaluate runs every stage and derives the metrics summary.
func (o *Orchestrator) Evaluate(ctx context.Context, ds *domain.Dataset, calc *metrics.Calculator) (*metrics.Summary, *Run, error) {
	out, err := o.Run(ctx, ds)
	if err != nil {
		return nil, nil, err
	}
	sum, err := calc.Compute(out.Solved)
	if err != nil {
		return nil, out.Run, fmt.Errorf("evaluation %s: %w", o.cfg.Name, err)
	}
	return sum, out.Run, nil
}
