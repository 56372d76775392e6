package inbound

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/types"
)

const (
	// DefaultRingTimeout is how long a call rings before it is counted as missed
	DefaultRingTimeout = 30 * time.Second

	ringTickInterval = time.Second
)

// Ringer presents at most one incoming call at a time and auto-rejects it on timeout.
//
// Every presented call gets a new generation. The ring counter and the timeout
// only act while their generation is still the ringing one, so a timeout left
// over from an earlier call can never discard a later one.
type Ringer struct {
	mu       sync.Mutex
	agentID  string
	clock    clock.Clock
	notifier events.Notifier
	timeout  time.Duration

	gen       uint64
	call      *types.IncomingCall
	startedAt time.Time
	ringSecs  int
	missed    int

	counter clock.Timer
	expiry  clock.Timer
}

// NewRinger creates a Ringer. A non-positive timeout uses DefaultRingTimeout.
func NewRinger(agentID string, c clock.Clock, timeout time.Duration, n events.Notifier) *Ringer {
	if timeout <= 0 {
		timeout = DefaultRingTimeout
	}
	if n == nil {
		n = events.Discard
	}
	return &Ringer{
		agentID:  agentID,
		clock:    c,
		notifier: n,
		timeout:  timeout,
	}
}

// Present starts ringing call. Only one call may ring at a time.
func (r *Ringer) Present(call types.IncomingCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.call != nil {
		return errs.ErrCallRinging
	}

	r.gen++
	gen := r.gen
	r.call = &call
	r.startedAt = r.clock.Now()
	r.ringSecs = 0
	r.counter = clock.Every(r.clock, ringTickInterval, func() { r.tick(gen) })
	r.expiry = r.clock.AfterFunc(r.timeout, func() { r.expire(gen) })

	r.emit(types.EventCallRinging, call)
	return nil
}

// Accept takes the ringing call and stops its timers
func (r *Ringer) Accept() (types.IncomingCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.take()
	if !ok {
		return types.IncomingCall{}, errs.ErrNoRingingCall
	}
	r.emit(types.EventCallAnswered, call)
	return call, nil
}

// Reject discards the ringing call
func (r *Ringer) Reject() (types.IncomingCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.take()
	if !ok {
		return types.IncomingCall{}, errs.ErrNoRingingCall
	}
	r.emit(types.EventCallRejected, call)
	return call, nil
}

// Ringing returns the call currently ringing
func (r *Ringer) Ringing() (types.RingingCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.call == nil {
		return types.RingingCall{}, false
	}
	return types.RingingCall{Call: *r.call, RingSeconds: r.ringSecs}, true
}

// IsRinging reports whether a call is being presented
func (r *Ringer) IsRinging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.call != nil
}

// Missed returns how many calls timed out unanswered
func (r *Ringer) Missed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.missed
}

// Timeout returns the configured ring timeout
func (r *Ringer) Timeout() time.Duration {
	return r.timeout
}

// Stop discards any ringing call silently and cancels its timers
func (r *Ringer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.take()
}

func (r *Ringer) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.call == nil {
		return
	}
	r.ringSecs++
	r.notifier.Notify(types.Event{
		Type:        types.EventRingTick,
		AgentID:     r.agentID,
		Timestamp:   r.clock.Now(),
		Call:        r.call,
		RingSeconds: r.ringSecs,
	})
}

func (r *Ringer) expire(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.call == nil {
		return
	}
	ringed := int(r.clock.Now().Sub(r.startedAt) / time.Second)
	call, _ := r.take()
	r.missed++
	r.ringSecs = ringed
	r.emit(types.EventCallMissed, call)
	r.ringSecs = 0
}

// take clears the ringing call and its timers. The caller holds r.mu.
func (r *Ringer) take() (types.IncomingCall, bool) {
	if r.call == nil {
		return types.IncomingCall{}, false
	}
	call := *r.call

	if r.counter != nil {
		r.counter.Stop()
		r.counter = nil
	}
	if r.expiry != nil {
		r.expiry.Stop()
		r.expiry = nil
	}
	r.gen++
	r.call = nil
	return call, true
}

func (r *Ringer) emit(t types.EventType, call types.IncomingCall) {
	r.notifier.Notify(types.Event{
		Type:        t,
		AgentID:     r.agentID,
		Timestamp:   r.clock.Now(),
		Call:        &call,
		RingSeconds: r.ringSecs,
	})
}
