package pipeline

import (
	"runtime"
	"time"

	"github.com/andresuchdata/perishable-vss/internal/recourse"
)

// Config holds configuration for an evaluation run
type Config struct {
	Name        string
	WorkerCount int  // Number of models solved concurrently
	VerifyEEV   bool // Re-solve the stochastic model with orders pinned to the EV plan
}

// DefaultConfig returns sensible defaults
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		WorkerCount: runtime.NumCPU(),
		VerifyEEV:   true,
	}
}

// RunStatus represents the current state of a run or one of its stages
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// StageRun tracks the solve of a single model
type StageRun struct {
	Name         string
	Source       recourse.DemandSource
	Status       RunStatus
	Objective    float64
	StartedAt    time.Time
	Duration     time.Duration
	ErrorMessage string
}

// Run tracks a single evaluation of a dataset
type Run struct {
	Name         string
	Dataset      string
	Status       RunStatus
	Stages       []*StageRun
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// Stage returns the stage with the given name, or nil.
func (r *Run) Stage(name string) *StageRun {
	for _, s := range r.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Metrics holds counters for a run
type Metrics struct {
	ModelsSolved int
	ErrorCount   int
	TotalSolve   time.Duration
	SlowestStage string
}

// Metrics summarizes stage timings.
func (r *Run) Metrics() Metrics {
	var m Metrics
	var slowest time.Duration
	for _, s := range r.Stages {
		switch s.Status {
		case StatusCompleted:
			m.ModelsSolved++
		case StatusFailed:
			m.ErrorCount++
		}
		m.TotalSolve += s.Duration
		if s.Duration > slowest {
			slowest = s.Duration
			m.SlowestStage = s.Name
		}
	}
	return m
}
