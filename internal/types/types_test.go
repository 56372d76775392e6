package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{59, "0:59"},
		{65, "1:05"},
		{600, "10:00"},
		{3725, "62:05"},
		{-12, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, Priority("").Valid())
	assert.False(t, Priority("bogus").Valid())
}

func TestCallTypeValid(t *testing.T) {
	for _, ct := range CallTypes {
		assert.True(t, ct.Valid(), ct)
	}
	assert.False(t, CallType("").Valid())
	assert.False(t, CallType("sales").Valid())
}

func TestPresenceEnumsValid(t *testing.T) {
	assert.True(t, StatusWrapUp.Valid())
	assert.False(t, PresenceStatus("away").Valid())
	assert.True(t, ReasonLunch.Valid())
	assert.False(t, NotReadyReason("lunch").Valid())
}
