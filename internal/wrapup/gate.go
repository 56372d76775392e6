// Package wrapup holds the disposition gate that an agent must pass to leave wrap-up.
package wrapup

import (
	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/types"
)

// Presence is what the gate needs from the presence state
type Presence interface {
	Status() types.PresenceStatus
	FinishWrapUp() error
}

// Gate records the selected disposition for the current call.
// Not safe for concurrent use.
type Gate struct {
	agentID  string
	clock    clock.Clock
	notifier events.Notifier
	catalog  []types.DispositionCode
	selected *types.DispositionCode
}

// NewGate creates a Gate over catalog. An empty catalog uses DefaultDispositions.
func NewGate(agentID string, c clock.Clock, catalog []types.DispositionCode, n events.Notifier) *Gate {
	if len(catalog) == 0 {
		catalog = DefaultDispositions()
	}
	if n == nil {
		n = events.Discard
	}
	return &Gate{agentID: agentID, clock: c, notifier: n, catalog: catalog}
}

// Catalog returns the disposition codes that may be selected
func (g *Gate) Catalog() []types.DispositionCode {
	out := make([]types.DispositionCode, len(g.catalog))
	copy(out, g.catalog)
	return out
}

// Lookup finds a code by value
func (g *Gate) Lookup(value string) (types.DispositionCode, bool) {
	for _, code := range g.catalog {
		if code.Value == value {
			return code, true
		}
	}
	return types.DispositionCode{}, false
}

// Select records a disposition. It is only enabled while the agent is on a call or in wrap-up.
func (g *Gate) Select(value string, status types.PresenceStatus) (types.DispositionCode, error) {
	if status != types.StatusOnCall && status != types.StatusWrapUp {
		return types.DispositionCode{}, errs.ErrDispositionDisabled
	}
	code, ok := g.Lookup(value)
	if !ok {
		return types.DispositionCode{}, errs.ErrUnknownDisposition
	}

	g.selected = &code
	g.emit(types.EventDispositionSelected, &code)
	return code, nil
}

// Selected returns the recorded disposition, if any
func (g *Gate) Selected() (types.DispositionCode, bool) {
	if g.selected == nil {
		return types.DispositionCode{}, false
	}
	return *g.selected, true
}

// Clear forgets the recorded disposition
func (g *Gate) Clear() {
	g.selected = nil
}

// Complete returns the agent from WrapUp to Ready once a disposition is recorded,
// consuming it. It returns the disposition the call was closed with.
func (g *Gate) Complete(p Presence) (types.DispositionCode, error) {
	if p.Status() != types.StatusWrapUp {
		return types.DispositionCode{}, errs.ErrInvalidTransition
	}
	if g.selected == nil {
		g.emit(types.EventDispositionRequired, nil)
		return types.DispositionCode{}, errs.ErrDispositionRequired
	}

	code := *g.selected
	if err := p.FinishWrapUp(); err != nil {
		return types.DispositionCode{}, err
	}
	g.selected = nil
	g.emit(types.EventWrapUpCompleted, &code)
	return code, nil
}

func (g *Gate) emit(t types.EventType, code *types.DispositionCode) {
	g.notifier.Notify(types.Event{
		Type:        t,
		AgentID:     g.agentID,
		Timestamp:   g.clock.Now(),
		Disposition: code,
	})
}

// DefaultDispositions is the built-in disposition catalog
func DefaultDispositions() []types.DispositionCode {
	return []types.DispositionCode{
		{Value: "inquiry-resolved", Label: "Inquiry Resolved"},
		{Value: "appointment-scheduled", Label: "Appointment Scheduled"},
		{Value: "appointment-rescheduled", Label: "Appointment Rescheduled"},
		{Value: "prescription-refill", Label: "Prescription Refill"},
		{Value: "billing-question", Label: "Billing Question"},
		{Value: "transferred-clinical", Label: "Transferred to Clinical"},
		{Value: "callback-requested", Label: "Callback Requested"},
		{Value: "wrong-number", Label: "Wrong Number"},
		{Value: "escalated", Label: "Escalated"},
		{Value: "other", Label: "Other"},
	}
}
