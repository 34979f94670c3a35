package orchestrator

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyInput is returned for blank or whitespace-only input. No
	// state changes and no provider calls happen in that case.
	ErrEmptyInput = errors.New("input is empty")

	// ErrNoActiveSession is returned by operations that require an open
	// session when the user has none.
	ErrNoActiveSession = errors.New("no active session")

	// ErrNothingToRegenerate is returned when regeneration is requested
	// but the session has no assistant message to redo.
	ErrNothingToRegenerate = errors.New("nothing to regenerate")
)

// friendlyMessage maps an internal error to the short, non-technical text
// pushed through the delegate. Raw error chains stay in the logs.
func friendlyMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Stopped."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long. Please try again."
	case errors.Is(err, ErrEmptyInput):
		return "Say something and I'll help."
	case errors.Is(err, ErrNoActiveSession):
		return "Start a conversation first."
	case errors.Is(err, ErrNothingToRegenerate):
		return "There's nothing to redo yet."
	case strings.Contains(err.Error(), "provider error"):
		return "I'm having trouble reaching my brain right now. Please try again in a moment."
	}
	return "Something went wrong on my end. Please try again."
}
