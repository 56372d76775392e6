// Package session models the one active call of an agent and the timers it owns.
package session

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/types"
)

// TickInterval is how often the duration and hold counters advance
const TickInterval = time.Second

// Presence is the part of the presence state a session drives
type Presence interface {
	BeginCall() error
	EndCall() error
}

// Session owns the duration and hold timers of the active call.
// Timer callbacks carry the generation they were started for and do nothing once it has moved on.
type Session struct {
	mu       sync.Mutex
	agentID  string
	clock    clock.Clock
	notifier events.Notifier
	presence Presence

	active    bool
	gen       uint64
	holdGen   uint64
	caller    types.Caller
	queue     string
	direction types.Direction
	startedAt time.Time
	duration  int
	held      bool
	holdSecs  int
	muted     bool

	durationTimer clock.Timer
	holdTimer     clock.Timer
}

// New creates an idle Session
func New(agentID string, c clock.Clock, p Presence, n events.Notifier) *Session {
	if n == nil {
		n = events.Discard
	}
	return &Session{
		agentID:  agentID,
		clock:    c,
		notifier: n,
		presence: p,
	}
}

// Start opens a session for caller and moves presence to OnCall
func (s *Session) Start(caller types.Caller, queue string, direction types.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return errs.ErrAlreadyOnCall
	}
	if err := s.presence.BeginCall(); err != nil {
		return err
	}

	s.gen++
	s.active = true
	s.caller = caller
	s.queue = queue
	s.direction = direction
	s.startedAt = s.clock.Now()
	s.duration = 0
	s.held = false
	s.holdSecs = 0
	s.muted = false

	gen := s.gen
	s.durationTimer = clock.Every(s.clock, TickInterval, func() { s.tickDuration(gen) })

	s.emit(types.EventCallStarted)
	return nil
}

// ToggleHold flips the held flag and starts or stops the hold counter. It returns the new flag.
func (s *Session) ToggleHold() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false, errs.ErrNoActiveCall
	}

	// the hold timer is stopped under the same lock that flips the flag
	s.holdGen++
	if s.held {
		s.stopHoldTimer()
		s.held = false
		s.emit(types.EventCallResumed)
		return false, nil
	}

	s.held = true
	gen, holdGen := s.gen, s.holdGen
	s.holdTimer = clock.Every(s.clock, TickInterval, func() { s.tickHold(gen, holdGen) })
	s.emit(types.EventCallHeld)
	return true, nil
}

// ToggleMute flips the muted flag and returns it
func (s *Session) ToggleMute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false, errs.ErrNoActiveCall
	}

	s.muted = !s.muted
	if s.muted {
		s.emit(types.EventCallMuted)
	} else {
		s.emit(types.EventCallUnmuted)
	}
	return s.muted, nil
}

// End stops both timers, moves presence to WrapUp and clears the session.
// It returns the session as it was just before it ended.
func (s *Session) End(reason types.EndReason) (types.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return types.SessionSnapshot{}, errs.ErrNoActiveCall
	}
	if err := s.presence.EndCall(); err != nil {
		return types.SessionSnapshot{}, err
	}

	if s.durationTimer != nil {
		s.durationTimer.Stop()
		s.durationTimer = nil
	}
	s.stopHoldTimer()

	final := s.snapshot()

	s.gen++
	s.holdGen++
	s.active = false
	s.caller = types.Caller{}
	s.queue = ""
	s.direction = ""
	s.startedAt = time.Time{}
	s.duration = 0
	s.held = false
	s.holdSecs = 0
	s.muted = false

	s.notifier.Notify(types.Event{
		Type:      types.EventCallEnded,
		AgentID:   s.agentID,
		Timestamp: s.clock.Now(),
		Session:   &final,
		EndReason: reason,
	})
	return final, nil
}

// Snapshot returns the active session, or false when there is none
func (s *Session) Snapshot() (types.SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return types.SessionSnapshot{}, false
	}
	return s.snapshot(), true
}

// Active reports whether a call is in progress
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop cancels any running timers without touching presence. Used on shutdown.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.durationTimer != nil {
		s.durationTimer.Stop()
		s.durationTimer = nil
	}
	s.stopHoldTimer()
	s.gen++
	s.holdGen++
}

func (s *Session) tickDuration(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || gen != s.gen {
		return
	}
	s.duration++
	s.emit(types.EventCallTick)
}

func (s *Session) tickHold(gen, holdGen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.held || gen != s.gen || holdGen != s.holdGen {
		return
	}
	s.holdSecs++
	s.emit(types.EventCallTick)
}

func (s *Session) stopHoldTimer() {
	if s.holdTimer != nil {
		s.holdTimer.Stop()
		s.holdTimer = nil
	}
}

func (s *Session) snapshot() types.SessionSnapshot {
	return types.SessionSnapshot{
		Caller:          s.caller,
		Queue:           s.queue,
		Direction:       s.direction,
		StartedAt:       s.startedAt,
		DurationSeconds: s.duration,
		DurationDisplay: types.FormatDuration(s.duration),
		IsHeld:          s.held,
		HoldSeconds:     s.holdSecs,
		HoldDisplay:     types.FormatDuration(s.holdSecs),
		IsMuted:         s.muted,
	}
}

func (s *Session) emit(t types.EventType) {
	snap := s.snapshot()
	s.notifier.Notify(types.Event{
		Type:      t,
		AgentID:   s.agentID,
		Timestamp: s.clock.Now(),
		Session:   &snap,
	})
}
