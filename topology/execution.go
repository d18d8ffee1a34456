package topology

import (
	"errors"
	"fmt"
)

// State is the status of a single pipeline execution.
type State string

const (
	StatePending   State = "Pending"
	StateRunning   State = "Running"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
)

var ErrInvalidTransition = errors.New("invalid execution transition")

// Execution tracks one run through the stages of a pipeline. Stages run
// strictly in order and a failed stage ends the run; retries belong to
// the orchestrating service.
type Execution struct {
	stages  []string
	current int
	state   State
}

// NewExecution returns a pending execution of p.
func NewExecution(p Pipeline) *Execution {
	return &Execution{stages: p.StageNames(), state: StatePending}
}

// State is the current state.
func (e *Execution) State() State { return e.state }

// Stage is the running stage, or the stage that failed. It is empty while
// pending and after completion.
func (e *Execution) Stage() string {
	if e.state == StateRunning || e.state == StateFailed {
		return e.stages[e.current]
	}
	return ""
}

// Start moves a pending execution into its first stage.
func (e *Execution) Start() error {
	if e.state != StatePending || len(e.stages) == 0 {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, e.state)
	}
	e.state = StateRunning
	e.current = 0
	return nil
}

// Succeed marks stage done and advances; the last stage completes the run.
func (e *Execution) Succeed(stage string) error {
	if err := e.expect(stage); err != nil {
		return err
	}
	e.current++
	if e.current == len(e.stages) {
		e.current = len(e.stages) - 1
		e.state = StateCompleted
	}
	return nil
}

// Fail halts the run at stage.
func (e *Execution) Fail(stage string) error {
	if err := e.expect(stage); err != nil {
		return err
	}
	e.state = StateFailed
	return nil
}

func (e *Execution) expect(stage string) error {
	if e.state != StateRunning {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, stage, e.state)
	}
	if e.stages[e.current] != stage {
		return fmt.Errorf("%w: %s is not running (current %s)", ErrInvalidTransition, stage, e.stages[e.current])
	}
	return nil
}
