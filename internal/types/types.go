package types

import (
	"fmt"
	"time"
)

// PresenceStatus represents the agent's availability
type PresenceStatus string

const (
	StatusReady    PresenceStatus = "ready"
	StatusNotReady PresenceStatus = "not_ready"
	StatusOnCall   PresenceStatus = "on_call"
	StatusWrapUp   PresenceStatus = "wrap_up"
)

// AllStatuses lists every presence status
var AllStatuses = []PresenceStatus{StatusReady, StatusNotReady, StatusOnCall, StatusWrapUp}

// Valid reports whether s is a known presence status
func (s PresenceStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// NotReadyReason explains why an agent is not taking calls
type NotReadyReason string

const (
	ReasonBreak    NotReadyReason = "Break"
	ReasonLunch    NotReadyReason = "Lunch"
	ReasonMeeting  NotReadyReason = "Meeting"
	ReasonTraining NotReadyReason = "Training"
	ReasonPersonal NotReadyReason = "Personal"
)

// NotReadyReasons is the fixed set of reasons accepted for NotReady
var NotReadyReasons = []NotReadyReason{ReasonBreak, ReasonLunch, ReasonMeeting, ReasonTraining, ReasonPersonal}

// Valid reports whether r is one of NotReadyReasons
func (r NotReadyReason) Valid() bool {
	for _, known := range NotReadyReasons {
		if r == known {
			return true
		}
	}
	return false
}

// Agent is the authenticated operator a console belongs to
type Agent struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Presence is a point-in-time view of the agent's status
type Presence struct {
	Status PresenceStatus `json:"status"`
	Reason NotReadyReason `json:"reason,omitempty"`
	Since  time.Time      `json:"since"`
}

// AlertSeverity grades console alerts
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert flags a presence state held for too long
type Alert struct {
	Rule     string        `json:"rule"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// ConsoleSnapshot is the full state of one agent console
type ConsoleSnapshot struct {
	Agent              Agent            `json:"agent"`
	Presence           Presence         `json:"presence"`
	OnCall             bool             `json:"onCall"`
	Session            *SessionSnapshot `json:"session,omitempty"`
	Ringing            *RingingCall     `json:"ringing,omitempty"`
	Disposition        *DispositionCode `json:"disposition,omitempty"`
	MissedCalls        int              `json:"missedCalls"`
	RingTimeoutSeconds int              `json:"ringTimeoutSeconds"`
	Alerts             []Alert          `json:"alerts,omitempty"`
}

// FormatDuration renders whole seconds as M:SS
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
