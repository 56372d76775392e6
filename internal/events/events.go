// Package events carries console events to in-process observers.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/rs/zerolog"
)

// Notifier receives console events. Implementations must not block and must
// not call back into the console that emitted the event.
type Notifier interface {
	Notify(ev types.Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ev types.Event)

func (f NotifierFunc) Notify(ev types.Event) { f(ev) }

// Discard drops every event
var Discard Notifier = NotifierFunc(func(types.Event) {})

// Multi fans one event out to several notifiers in order
type Multi []Notifier

func (m Multi) Notify(ev types.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// Subscription is one consumer of a Bus
type Subscription struct {
	agentID string
	ch      chan types.Event
	dropped atomic.Int64
}

// Events returns the channel events are delivered on. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan types.Event {
	return s.ch
}

// Dropped returns how many events were discarded because the buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) matches(ev types.Event) bool {
	return s.agentID == "" || s.agentID == ev.AgentID
}

// Bus is a non-blocking publish/subscribe hub for console events.
// A slow subscriber loses events rather than stalling the console.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger zerolog.Logger
}

// NewBus creates an empty Bus
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a consumer for one agent's events, or every agent when agentID is empty
func (b *Bus) Subscribe(agentID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &Subscription{agentID: agentID, ch: make(chan types.Event, buffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Notify delivers ev to every matching subscriber without blocking
func (b *Bus) Notify(ev types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			if sub.dropped.Add(1) == 1 {
				b.logger.Warn().
					Str("agent_id", ev.AgentID).
					Str("event", string(ev.Type)).
					Msg("subscriber buffer full, dropping events")
			}
		}
	}
}

// SubscriberCount returns the number of active subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Recorder keeps every event it sees. Useful as a Notifier in tests.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *Recorder) Notify(ev types.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of type t were recorded
func (r *Recorder) Count(t types.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// Last returns the most recent event of type t
func (r *Recorder) Last(t types.EventType) (types.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return types.Event{}, false
}

// Reset forgets all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
