// Package errs defines the precondition errors returned by console actions.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrCallInProgress      = errors.New("call in progress")
	ErrDispositionRequired = errors.New("disposition required")
	ErrNoActiveCall        = errors.New("no active call")
	ErrNoRingingCall       = errors.New("no ringing call")
	ErrAlreadyOnCall       = errors.New("already on call")
	ErrInvalidNumber       = errors.New("invalid number")

	ErrInvalidTransition   = errors.New("invalid presence transition")
	ErrReasonRequired      = errors.New("not ready reason required")
	ErrCallRinging         = errors.New("a call is already ringing")
	ErrNotAvailable        = errors.New("agent not available")
	ErrInvalidDestination  = errors.New("invalid transfer destination")
	ErrUnknownDisposition  = errors.New("unknown disposition code")
	ErrDispositionDisabled = errors.New("disposition selection disabled")
	ErrInvalidCall         = errors.New("invalid incoming call")
)

// ActionError wraps a precondition failure with the action that hit it.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Wrap returns err wrapped in an ActionError, or nil when err is nil
func Wrap(action string, err error) error {
	if err == nil {
		return nil
	}
	var ae *ActionError
	if errors.As(err, &ae) && ae.Action == action {
		return err
	}
	return &ActionError{Action: action, Err: err}
}

// Code returns a stable machine-readable code for a known error
func Code(err error) string {
	switch {
	case errors.Is(err, ErrCallInProgress):
		return "CallInProgress"
	case errors.Is(err, ErrDispositionRequired):
		return "DispositionRequired"
	case errors.Is(err, ErrNoActiveCall):
		return "NoActiveCall"
	case errors.Is(err, ErrNoRingingCall):
		return "NoRingingCall"
	case errors.Is(err, ErrAlreadyOnCall):
		return "AlreadyOnCall"
	case errors.Is(err, ErrInvalidNumber):
		return "InvalidNumber"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrReasonRequired):
		return "ReasonRequired"
	case errors.Is(err, ErrCallRinging):
		return "CallRinging"
	case errors.Is(err, ErrNotAvailable):
		return "NotAvailable"
	case errors.Is(err, ErrInvalidDestination):
		return "InvalidDestination"
	case errors.Is(err, ErrUnknownDisposition):
		return "UnknownDisposition"
	case errors.Is(err, ErrDispositionDisabled):
		return "DispositionDisabled"
	case errors.Is(err, ErrInvalidCall):
		return "InvalidCall"
	default:
		return "Internal"
	}
}
