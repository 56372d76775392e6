// Package presence tracks an agent's availability and enforces which status changes are legal.
//
// State is not safe for concurrent use; it is owned by the console that serialises access to it.
package presence

import (
	"time"

	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/types"
)

// validTransitions defines which status changes are allowed.
// NotReady -> NotReady is a reason change.
var validTransitions = map[types.PresenceStatus][]types.PresenceStatus{
	types.StatusReady:    {types.StatusNotReady, types.StatusOnCall},
	types.StatusNotReady: {types.StatusReady, types.StatusNotReady, types.StatusOnCall},
	types.StatusOnCall:   {types.StatusWrapUp},
	types.StatusWrapUp:   {types.StatusReady},
}

// CanTransition checks if moving from one status to another is valid
func CanTransition(from, to types.PresenceStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Selectable lists the statuses an operator may pick directly
var Selectable = []types.PresenceStatus{types.StatusReady, types.StatusNotReady, types.StatusWrapUp}

// IsSelectable reports whether status is one of Selectable
func IsSelectable(status types.PresenceStatus) bool {
	for _, s := range Selectable {
		if s == status {
			return true
		}
	}
	return false
}

// State holds the agent's current presence
type State struct {
	agentID  string
	clock    clock.Clock
	notifier events.Notifier

	status types.PresenceStatus
	reason types.NotReadyReason
	since  time.Time
}

// New creates a presence State starting at Ready
func New(agentID string, c clock.Clock, n events.Notifier) *State {
	if n == nil {
		n = events.Discard
	}
	return &State{
		agentID:  agentID,
		clock:    c,
		notifier: n,
		status:   types.StatusReady,
		since:    c.Now(),
	}
}

func (s *State) Status() types.PresenceStatus { return s.status }

func (s *State) Reason() types.NotReadyReason { return s.reason }

func (s *State) Since() time.Time { return s.since }

// OnCall reports whether a call session currently owns the agent
func (s *State) OnCall() bool { return s.status == types.StatusOnCall }

// Snapshot returns the current presence as a value
func (s *State) Snapshot() types.Presence {
	return types.Presence{Status: s.status, Reason: s.reason, Since: s.since}
}

// Select applies an operator's status pick.
//
// Selecting the current status is a no-op. OnCall can never be selected and
// nothing can be selected while on a call. Leaving WrapUp for Ready is refused
// with ErrDispositionRequired; that path belongs to the wrap-up gate.
func (s *State) Select(status types.PresenceStatus, reason types.NotReadyReason) error {
	if s.status == types.StatusOnCall {
		return errs.ErrCallInProgress
	}
	if !IsSelectable(status) {
		return errs.ErrInvalidTransition
	}

	switch status {
	case types.StatusNotReady:
		if !reason.Valid() {
			return errs.ErrReasonRequired
		}
		if s.status == types.StatusNotReady && s.reason == reason {
			return nil
		}
	default:
		if s.status == status {
			return nil
		}
		reason = ""
	}

	if s.status == types.StatusWrapUp && status == types.StatusReady {
		return errs.ErrDispositionRequired
	}
	if !CanTransition(s.status, status) {
		return errs.ErrInvalidTransition
	}

	s.set(status, reason)
	return nil
}

// BeginCall moves the agent to OnCall when a call session starts
func (s *State) BeginCall() error {
	if s.status == types.StatusOnCall {
		return errs.ErrAlreadyOnCall
	}
	if !CanTransition(s.status, types.StatusOnCall) {
		return errs.ErrInvalidTransition
	}
	s.set(types.StatusOnCall, "")
	return nil
}

// EndCall moves the agent from OnCall to WrapUp
func (s *State) EndCall() error {
	if s.status != types.StatusOnCall {
		return errs.ErrNoActiveCall
	}
	s.set(types.StatusWrapUp, "")
	return nil
}

// FinishWrapUp returns the agent to Ready. Only the wrap-up gate calls this.
func (s *State) FinishWrapUp() error {
	if s.status != types.StatusWrapUp {
		return errs.ErrInvalidTransition
	}
	s.set(types.StatusReady, "")
	return nil
}

func (s *State) set(status types.PresenceStatus, reason types.NotReadyReason) {
	prev := s.status
	s.status = status
	s.reason = reason
	s.since = s.clock.Now()

	s.notifier.Notify(types.Event{
		Type:           types.EventPresenceChanged,
		AgentID:        s.agentID,
		Timestamp:      s.since,
		PreviousStatus: prev,
		Status:         status,
		Reason:         reason,
	})
}
