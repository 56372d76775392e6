package alerts

import (
	"fmt"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/types"
)

const (
	wrapUpLimit   = 5 * time.Minute
	notReadyLimit = 15 * time.Minute
)

// Check evaluates alert rules against the agent's presence at now
func Check(p types.Presence, now time.Time) []types.Alert {
	if p.Since.IsZero() {
		return nil
	}
	dur := now.Sub(p.Since)

	switch p.Status {
	case types.StatusWrapUp:
		if dur > wrapUpLimit {
			return []types.Alert{{
				Rule:     "wrapup_long",
				Severity: types.SeverityWarning,
				Message:  fmt.Sprintf("Wrap-up for %s", formatDuration(dur)),
			}}
		}

	case types.StatusNotReady:
		if dur > notReadyLimit {
			reason := string(p.Reason)
			if reason == "" {
				reason = "Not ready"
			}
			return []types.Alert{{
				Rule:     "not_ready_long",
				Severity: types.SeverityCritical,
				Message:  fmt.Sprintf("%s for %s", reason, formatDuration(dur)),
			}}
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		hours := mins / 60
		mins = mins % 60
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
