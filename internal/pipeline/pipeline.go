// Package pipeline sequences the analysis steps over persisted, resumable
// state. Steps run strictly one at a time; only work inside a step is
// parallel. The orchestrator is the sole writer of the state file, and
// writes it only between step transitions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/markwbennett/brief-analyzer/internal/state"
	"github.com/markwbennett/brief-analyzer/internal/steps"
)

// StepExecutionError marks a step failed and halts forward progress. The
// run stays resumable; completed steps keep their state.
type StepExecutionError struct {
	Step string
	Err  error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }

// Orchestrator drives the step sequence against one project's state
type Orchestrator struct {
	env      *steps.Env
	run      *state.Run
	stepList []steps.Step
	log      *zap.Logger
}

// New loads (or creates) the project's run state and returns an
// orchestrator over it.
func New(env *steps.Env) (*Orchestrator, error) {
	return newOrchestrator(env, steps.All())
}

func newOrchestrator(env *steps.Env, stepList []steps.Step) (*Orchestrator, error) {
	run, err := state.Load(env.Config.StateFile())
	if err != nil {
		return nil, err
	}
	return &Orchestrator{env: env, run: run, stepList: stepList, log: env.Log}, nil
}

// RunAll executes every step that is not already completed, in order,
// stopping at the first failure. A step whose output already exists is
// completed without re-running unless force is set.
func (o *Orchestrator) RunAll(ctx context.Context, force bool) error {
	for _, step := range o.stepList {
		rec, ok := o.run.Record(step.Name)
		if !ok {
			continue
		}
		if !force && (rec.Status == state.StatusCompleted || rec.Status == state.StatusSkipped) {
			o.log.Debug("step already done", zap.String("step", step.Name), zap.String("status", string(rec.Status)))
			continue
		}
		if err := o.execute(ctx, step, force); err != nil {
			return err
		}
	}
	return nil
}

// RunOne executes a single step by name regardless of recorded status
func (o *Orchestrator) RunOne(ctx context.Context, name string, force bool) error {
	step, err := o.findStep(name)
	if err != nil {
		return err
	}
	return o.execute(ctx, step, force)
}

// execute runs one step through the running → completed/failed/skipped
// transition, persisting state on each side.
func (o *Orchestrator) execute(ctx context.Context, step steps.Step, force bool) error {
	if !force && step.OutputExists != nil && step.OutputExists(o.env) {
		o.log.Info("output exists, skipping work", zap.String("step", step.Name))
		return o.run.Transition(step.Name, state.StatusCompleted, "")
	}

	o.log.Info("running step",
		zap.String("step", step.Name),
		zap.String("description", step.Description))
	if err := o.run.Transition(step.Name, state.StatusRunning, ""); err != nil {
		return err
	}

	err := step.Run(ctx, o.env)
	switch {
	case err == nil:
		if terr := o.run.Transition(step.Name, state.StatusCompleted, ""); terr != nil {
			return terr
		}
		o.log.Info("step completed", zap.String("step", step.Name))
		return nil
	case errors.Is(err, steps.ErrSkip):
		if terr := o.run.Transition(step.Name, state.StatusSkipped, ""); terr != nil {
			return terr
		}
		o.log.Info("step skipped", zap.String("step", step.Name))
		return nil
	default:
		if terr := o.run.Transition(step.Name, state.StatusFailed, err.Error()); terr != nil {
			return terr
		}
		return &StepExecutionError{Step: step.Name, Err: err}
	}
}

// StepStatus is one row of the status view
type StepStatus struct {
	Name        string
	Description string
	Status      state.Status
	Error       string
}

// Status reports the true last-known state of every step, including
// partial failures, without running anything.
func (o *Orchestrator) Status() []StepStatus {
	var out []StepStatus
	for _, step := range o.stepList {
		row := StepStatus{Name: step.Name, Description: step.Description}
		if rec, ok := o.run.Record(step.Name); ok {
			row.Status = rec.Status
			row.Error = rec.Error
		}
		out = append(out, row)
	}
	return out
}

// RunID identifies the persisted run
func (o *Orchestrator) RunID() string {
	return o.run.RunID
}

// findStep looks a step up in this orchestrator's list, naming the valid
// steps on a miss.
func (o *Orchestrator) findStep(name string) (steps.Step, error) {
	var names []string
	for _, s := range o.stepList {
		if s.Name == name {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return steps.Step{}, fmt.Errorf("unknown step %s (valid: %s)", name, strings.Join(names, ", "))
}
