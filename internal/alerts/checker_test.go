package alerts

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/types"
)

func TestCheck(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		presence types.Presence
		wantRule string
		wantMsg  string
	}{
		{
			name:     "ready never alerts",
			presence: types.Presence{Status: types.StatusReady, Since: now.Add(-2 * time.Hour)},
		},
		{
			name:     "short wrap-up",
			presence: types.Presence{Status: types.StatusWrapUp, Since: now.Add(-4 * time.Minute)},
		},
		{
			name:     "long wrap-up",
			presence: types.Presence{Status: types.StatusWrapUp, Since: now.Add(-6*time.Minute - 5*time.Second)},
			wantRule: "wrapup_long",
			wantMsg:  "Wrap-up for 6m5s",
		},
		{
			name:     "long lunch",
			presence: types.Presence{Status: types.StatusNotReady, Reason: types.ReasonLunch, Since: now.Add(-75 * time.Minute)},
			wantRule: "not_ready_long",
			wantMsg:  "Lunch for 1h15m",
		},
		{
			name:     "short break",
			presence: types.Presence{Status: types.StatusNotReady, Reason: types.ReasonBreak, Since: now.Add(-10 * time.Minute)},
		},
		{
			name:     "zero since",
			presence: types.Presence{Status: types.StatusWrapUp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.presence, now)
			if tt.wantRule == "" {
				if len(got) != 0 {
					t.Fatalf("expected no alerts, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 alert, got %d", len(got))
			}
			if got[0].Rule != tt.wantRule {
				t.Errorf("expected rule %s, got %s", tt.wantRule, got[0].Rule)
			}
			if got[0].Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, got[0].Message)
			}
		})
	}
}

func TestCheckSeverity(t *testing.T) {
	now := time.Now()

	wrap := Check(types.Presence{Status: types.StatusWrapUp, Since: now.Add(-time.Hour)}, now)
	if wrap[0].Severity != types.SeverityWarning {
		t.Errorf("expected warning, got %s", wrap[0].Severity)
	}

	away := Check(types.Presence{Status: types.StatusNotReady, Reason: types.ReasonMeeting, Since: now.Add(-time.Hour)}, now)
	if away[0].Severity != types.SeverityCritical {
		t.Errorf("expected critical, got %s", away[0].Severity)
	}
}
