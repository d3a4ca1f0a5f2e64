// Package setup defines the kitt installation plan and the
// orchestrator that executes it. A plan is data: an ordered list of
// weighted steps, each with a side-effect-free idempotency check and
// one action per supported OS. The same registry serves every
// platform; variants are configuration, not code forks.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

// ErrConfiguration marks a plan that cannot be specialized for the
// requested OS (or is internally inconsistent). It is a defect in the
// step definitions, not a host-state failure.
var ErrConfiguration = errors.New("setup: configuration error")

// CheckFunc reports whether a step's effect is already present on the
// host. It must be a pure read: safe to call repeatedly, no side
// effects.
type CheckFunc func(ctx context.Context, r hostexec.Runner) (bool, error)

// TolerancePolicy declares non-zero command outcomes a step accepts as
// success. Deliberately narrow: a code or substring must be listed
// explicitly, there is no tool-wide catch.
type TolerancePolicy struct {
	ExitCodes  []int
	Substrings []string
}

// Tolerates reports whether err is a command failure covered by the
// policy. Timeouts and missing executables are never tolerable.
func (p TolerancePolicy) Tolerates(err error) bool {
	var cmdErr *hostexec.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, code := range p.ExitCodes {
		if cmdErr.ExitCode == code {
			return true
		}
	}
	for _, sub := range p.Substrings {
		if sub == "" {
			continue
		}
		if strings.Contains(cmdErr.Stderr, sub) || strings.Contains(cmdErr.Stdout, sub) {
			return true
		}
	}
	return false
}

// Action is the OS-specific work of one step: either a sequence of
// external commands or an in-process function (for steps like creating
// a directory, where spawning a shell would be noise).
type Action struct {
	Specs []hostexec.CommandSpec
	Local func(ctx context.Context) error
	// Tolerate lists failure shapes of Specs treated as success.
	Tolerate TolerancePolicy
}

// Step is one named unit of installation work. Steps are immutable
// once registered.
type Step struct {
	Name        string
	Description string
	// Weight is the step's contribution to overall progress.
	// All weights in a registry sum to 100.
	Weight int
	Check  CheckFunc
	// Actions maps GOOS ("linux", "darwin") to the step's action.
	// A missing entry for the plan's OS is a configuration error.
	Actions map[string]Action
}

// PlannedStep is a step specialized to one OS.
type PlannedStep struct {
	Name        string
	Description string
	Weight      int
	Check       CheckFunc
	Action      Action
}

// Registry holds the ordered step definitions. Built once at startup.
type Registry struct {
	steps []Step
}

// NewRegistry builds a registry from steps in execution order.
func NewRegistry(steps ...Step) *Registry {
	return &Registry{steps: steps}
}

// Plan specializes the registry for goos. It validates the plan as a
// whole: every step must define an action for goos, names must be
// unique, and weights must sum to exactly 100.
func (r *Registry) Plan(goos string) ([]PlannedStep, error) {
	if len(r.steps) == 0 {
		return nil, fmt.Errorf("%w: empty registry", ErrConfiguration)
	}

	seen := make(map[string]bool, len(r.steps))
	total := 0
	plan := make([]PlannedStep, 0, len(r.steps))

	for _, s := range r.steps {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: step with empty name", ErrConfiguration)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate step %q", ErrConfiguration, s.Name)
		}
		seen[s.Name] = true

		if s.Check == nil {
			return nil, fmt.Errorf("%w: step %q has no idempotency check", ErrConfiguration, s.Name)
		}
		action, ok := s.Actions[goos]
		if !ok {
			return nil, fmt.Errorf("%w: step %q has no action for OS %q", ErrConfiguration, s.Name, goos)
		}
		if action.Local == nil && len(action.Specs) == 0 {
			return nil, fmt.Errorf("%w: step %q action for %q is empty", ErrConfiguration, s.Name, goos)
		}

		total += s.Weight
		plan = append(plan, PlannedStep{
			Name:        s.Name,
			Description: s.Description,
			Weight:      s.Weight,
			Check:       s.Check,
			Action:      action,
		})
	}

	if total != 100 {
		return nil, fmt.Errorf("%w: step weights sum to %d, want 100", ErrConfiguration, total)
	}
	return plan, nil
}
