// Package stream implements the per-utterance streaming state machine:
// Idle -> Started -> Delta* -> (FunctionDetected) -> Finished | Failed.
package stream

import (
	"fmt"
	"strings"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/provider"
)

// State is the accumulator's position in the streaming lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateStarted          State = "started"
	StateFunctionDetected State = "function_detected"
	StateFinished         State = "finished"
	StateFailed           State = "failed"
)

// Accumulator tracks "text so far" and "detected call, if any" for one
// utterance. Both are finalized only at the terminal state, so text deltas
// and a mid-stream function call can never race. Not safe for concurrent
// use; one accumulator serves exactly one turn.
type Accumulator struct {
	state State
	text  strings.Builder
	call  *domain.FunctionCall
	usage *provider.Usage
	err   error
}

// NewAccumulator returns an accumulator in the Idle state.
func NewAccumulator() *Accumulator {
	return &Accumulator{state: StateIdle}
}

// Start marks the stream as started. Emitted once, before the first token is
// requested from the provider.
func (a *Accumulator) Start() error {
	if a.state != StateIdle {
		return fmt.Errorf("cannot start stream in state %s", a.state)
	}
	a.state = StateStarted
	return nil
}

// AppendDelta appends one incremental text fragment. Order is preserved:
// concatenating all deltas in emission order equals the final text.
func (a *Accumulator) AppendDelta(text string) error {
	if a.state != StateStarted && a.state != StateFunctionDetected {
		return fmt.Errorf("cannot append delta in state %s", a.state)
	}
	a.text.WriteString(text)
	return nil
}

// MarkFunctionDetected records a mid-stream function call. The stream does
// not terminate; trailing deltas still accumulate.
func (a *Accumulator) MarkFunctionDetected(name string) error {
	if a.state != StateStarted {
		return fmt.Errorf("cannot detect function in state %s", a.state)
	}
	a.state = StateFunctionDetected
	a.call = &domain.FunctionCall{Name: name, Arguments: map[string]domain.Value{}}
	return nil
}

// FinalizeFunction sets the decoded arguments on the detected call. No state
// change; callable any time after detection and before the terminal state.
func (a *Accumulator) FinalizeFunction(args map[string]domain.Value) error {
	if a.call == nil {
		return fmt.Errorf("no function detected")
	}
	a.call.Arguments = args
	return nil
}

// Finish moves the stream to its successful terminal state with token-usage
// accounting.
func (a *Accumulator) Finish(usage *provider.Usage) error {
	if a.state != StateStarted && a.state != StateFunctionDetected {
		return fmt.Errorf("cannot finish stream in state %s", a.state)
	}
	a.state = StateFinished
	a.usage = usage
	return nil
}

// Fail aborts the stream. Nothing accumulated is committed by callers on
// this path.
func (a *Accumulator) Fail(err error) error {
	if a.state == StateFinished || a.state == StateFailed {
		return fmt.Errorf("cannot fail stream in state %s", a.state)
	}
	a.state = StateFailed
	a.err = err
	return nil
}

// State returns the current state.
func (a *Accumulator) State() State { return a.state }

// Text returns the accumulated text so far.
func (a *Accumulator) Text() string { return a.text.String() }

// Call returns the detected function call, or nil.
func (a *Accumulator) Call() *domain.FunctionCall { return a.call }

// Usage returns the token usage reported at Finished, or nil.
func (a *Accumulator) Usage() *provider.Usage { return a.usage }

// Err returns the failure cause when the state is Failed.
func (a *Accumulator) Err() error { return a.err }
