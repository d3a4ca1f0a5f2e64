package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

// ProgressSink receives step-by-step orchestration events. Implemented
// by the presentation layer (TUI install view, plain CLI printer).
// Progress values are cumulative percentages and never decrease.
type ProgressSink interface {
	StepStarted(name, description string)
	StepSkipped(name, reason string, progress int)
	StepCompleted(name string, progress int)
	StepFailed(name string, err error)
}

// State is the orchestrator's lifecycle state.
type State int

const (
	StatePending State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// RunState is the run-time cursor of one orchestration. It is built
// fresh per run and discarded afterwards; idempotency is re-derived
// from host state on every run, never from a persisted RunState.
type RunState struct {
	// Completed holds the indices of steps that finished or were
	// skipped, in order.
	Completed []int
	// Skipped holds the names of steps whose check was already
	// satisfied.
	Skipped []string
	// Progress is the cumulative percentage, 0..100.
	Progress int
	// FailedStep names the step that aborted the run, if any.
	FailedStep string
	// Err is the original cause of the failure, if any.
	Err error
}

// Orchestrator walks a plan sequentially: at most one external command
// is in flight at a time, and a failure aborts the run. Terminal
// states are final; retrying requires a fresh Orchestrator (and with
// it a fresh host-state scan).
type Orchestrator struct {
	runner hostexec.Runner
	sink   ProgressSink
	logger *slog.Logger
	state  State
}

// NewOrchestrator wires an orchestrator to a runner and a sink.
// A nil logger discards logs.
func NewOrchestrator(runner hostexec.Runner, sink ProgressSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		runner: runner,
		sink:   sink,
		logger: logger,
		state:  StatePending,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Execute runs the plan in order. Steps whose idempotency check passes
// are skipped (their weight still accrues, so a resumed run also ends
// at 100). Any untolerated failure transitions to Failed and stops;
// the returned error carries the original cause unmodified.
func (o *Orchestrator) Execute(ctx context.Context, plan []PlannedStep) (RunState, error) {
	var run RunState

	if o.state != StatePending {
		return run, fmt.Errorf("orchestrator already %s; create a fresh one to retry", o.state)
	}
	o.state = StateRunning

	for i, step := range plan {
		done, checkErr := step.Check(ctx, o.runner)
		if checkErr != nil {
			// A failing probe means "not satisfied"; the action itself
			// decides whether the host is actually broken.
			o.logger.Warn("idempotency check errored", "step", step.Name, "error", checkErr)
			done = false
		}
		if done {
			run.Progress += step.Weight
			run.Completed = append(run.Completed, i)
			run.Skipped = append(run.Skipped, step.Name)
			o.logger.Info("step skipped", "step", step.Name, "progress", run.Progress)
			o.sink.StepSkipped(step.Name, "already satisfied", run.Progress)
			continue
		}

		o.logger.Info("step starting", "step", step.Name)
		o.sink.StepStarted(step.Name, step.Description)

		if err := o.runStep(ctx, step); err != nil {
			run.FailedStep = step.Name
			run.Err = err
			o.state = StateFailed
			o.logger.Error("step failed", "step", step.Name, "error", err)
			o.sink.StepFailed(step.Name, err)
			return run, fmt.Errorf("step %q: %w", step.Name, err)
		}

		run.Progress += step.Weight
		run.Completed = append(run.Completed, i)
		o.logger.Info("step completed", "step", step.Name, "progress", run.Progress)
		o.sink.StepCompleted(step.Name, run.Progress)
	}

	o.state = StateSucceeded
	return run, nil
}

// runStep executes one step's action. Tolerated command failures are
// logged and treated as success; everything else aborts.
func (o *Orchestrator) runStep(ctx context.Context, step PlannedStep) error {
	if step.Action.Local != nil {
		if err := step.Action.Local(ctx); err != nil {
			return err
		}
	}
	for _, spec := range step.Action.Specs {
		res, err := o.runner.Run(ctx, spec)
		if err == nil {
			continue
		}
		if step.Action.Tolerate.Tolerates(err) {
			o.logger.Warn("tolerated command failure",
				"step", step.Name,
				"command", spec.Display(),
				"exit_code", res.ExitCode)
			continue
		}
		return err
	}
	return nil
}
