package types

import "time"

// EventType names a console event
type EventType string

const (
	EventPresenceChanged     EventType = "presence_changed"
	EventCallRinging         EventType = "call_ringing"
	EventRingTick            EventType = "ring_tick"
	EventCallAnswered        EventType = "call_answered"
	EventCallRejected        EventType = "call_rejected"
	EventCallMissed          EventType = "call_missed"
	EventCallStarted         EventType = "call_started"
	EventCallTick            EventType = "call_tick"
	EventCallHeld            EventType = "call_held"
	EventCallResumed         EventType = "call_resumed"
	EventCallMuted           EventType = "call_muted"
	EventCallUnmuted         EventType = "call_unmuted"
	EventCallParked          EventType = "call_parked"
	EventCallTransferred     EventType = "call_transferred"
	EventCallEnded           EventType = "call_ended"
	EventDispositionSelected EventType = "disposition_selected"
	EventDispositionRequired EventType = "disposition_required"
	EventWrapUpCompleted     EventType = "wrapup_completed"
)

// Event is emitted by a console for display and notification surfaces.
// Only the fields relevant to Type are populated.
type Event struct {
	Type      EventType `json:"type"`
	AgentID   string    `json:"agentId"`
	Timestamp time.Time `json:"timestamp"`

	PreviousStatus PresenceStatus `json:"previousStatus,omitempty"`
	Status         PresenceStatus `json:"status,omitempty"`
	Reason         NotReadyReason `json:"reason,omitempty"`

	Call        *IncomingCall        `json:"call,omitempty"`
	RingSeconds int                  `json:"ringSeconds,omitempty"`
	Session     *SessionSnapshot     `json:"session,omitempty"`
	ParkSlot    int                  `json:"parkSlot,omitempty"`
	Destination *TransferDestination `json:"destination,omitempty"`
	EndReason   EndReason            `json:"endReason,omitempty"`
	Disposition *DispositionCode     `json:"disposition,omitempty"`
}
