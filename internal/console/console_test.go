package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/inbound"
	"github.com/dennisdiepolder/monti/console/internal/storage"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var epoch = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

type fixedRand struct {
	floats []float64
	ints   []int
}

func (f *fixedRand) Float64() float64 {
	if len(f.floats) == 0 {
		return 0.99
	}
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func (f *fixedRand) Intn(n int) int {
	if len(f.ints) == 0 {
		return 0
	}
	v := f.ints[0] % n
	f.ints = f.ints[1:]
	return v
}

type harness struct {
	console *Console
	clock   *clock.Mock
	rng     *fixedRand
	events  *events.Recorder
	store   *storage.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:  clock.NewMock(epoch),
		rng:    &fixedRand{},
		events: &events.Recorder{},
		store:  storage.NewMemoryStore(),
	}
	h.console = New(Options{
		Agent:       types.Agent{ID: "agent-1", DisplayName: "Jamie Ortiz"},
		Clock:       h.clock,
		Rand:        h.rng,
		Notifier:    h.events,
		RingTimeout: 30 * time.Second,
		Recorder:    h.store,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(h.console.Close)
	return h
}

func (h *harness) ring(t *testing.T, number, queue string) types.IncomingCall {
	t.Helper()
	call, err := h.console.Ring(types.IncomingCall{CallerNumber: number, Queue: queue})
	require.NoError(t, err)
	return call
}

func TestInboundCallScenario(t *testing.T) {
	h := newHarness(t)
	c := h.console

	// generator fires: Bernoulli draw 0.1 passes at 30%, template draw picks the first entry
	h.rng.floats = []float64{0.1, 0.0}
	catalog := []types.CallTemplate{{CallerNumber: "+1 555-000", Queue: "General", Priority: types.PriorityNormal, CallType: types.CallTypeGeneral, Weight: 1}}
	gen := inbound.NewGenerator(c, h.clock, h.rng, inbound.Config{Interval: 30 * time.Second, Probability: 0.3}, catalog, zerolog.Nop())
	gen.Start()
	defer gen.Stop()

	h.clock.Advance(30 * time.Second)
	snap := c.Snapshot()
	require.NotNil(t, snap.Ringing)
	assert.Equal(t, "+1 555-000", snap.Ringing.Call.CallerNumber)

	session, err := c.Answer()
	require.NoError(t, err)
	assert.Equal(t, types.StatusOnCall, c.Status())
	assert.Equal(t, "+1 555-000", session.Caller.Number)
	assert.Equal(t, "General", session.Queue)

	held, err := c.ToggleHold()
	require.NoError(t, err)
	assert.True(t, held)

	h.clock.Advance(5 * time.Second)

	held, err = c.ToggleHold()
	require.NoError(t, err)
	assert.False(t, held)

	snap = c.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, 5, snap.Session.HoldSeconds)

	final, err := c.HangUp()
	require.NoError(t, err)
	assert.Equal(t, 5, final.HoldSeconds)
	assert.Equal(t, types.StatusWrapUp, c.Status())

	snap = c.Snapshot()
	assert.Nil(t, snap.Session)
	assert.False(t, snap.OnCall)

	_, err = c.CompleteWrapUp()
	assert.ErrorIs(t, err, errs.ErrDispositionRequired)

	_, err = c.SelectDisposition("inquiry-resolved")
	require.NoError(t, err)

	code, err := c.CompleteWrapUp()
	require.NoError(t, err)
	assert.Equal(t, "inquiry-resolved", code.Value)
	assert.Equal(t, types.StatusReady, c.Status())
}

func TestDialScenario(t *testing.T) {
	h := newHarness(t)
	c := h.console

	session, err := c.Dial("5551234")
	require.NoError(t, err)
	assert.Equal(t, types.OutboundQueue, session.Queue)
	assert.Equal(t, types.DirectionOutbound, session.Direction)
	assert.Equal(t, types.StatusOnCall, c.Status())

	_, err = c.Dial("5551234")
	assert.ErrorIs(t, err, errs.ErrAlreadyOnCall)

	var ae *errs.ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "dial", ae.Action)
}

func TestDialValidation(t *testing.T) {
	h := newHarness(t)

	for _, number := range []string{"", "   ", "call me", "+-()"} {
		_, err := h.console.Dial(number)
		assert.ErrorIs(t, err, errs.ErrInvalidNumber, "number %q", number)
	}
	assert.Equal(t, types.StatusReady, h.console.Status())

	h.ring(t, "+1 555-0101", "General")
	_, err := h.console.Dial("5551234")
	assert.ErrorIs(t, err, errs.ErrCallRinging)
}

func TestDialFromNotReadyAndWrapUp(t *testing.T) {
	h := newHarness(t)
	c := h.console

	require.NoError(t, c.SetStatus(types.StatusNotReady, types.ReasonBreak))
	_, err := c.Dial("(555) 123-4567")
	require.NoError(t, err)

	_, err = c.HangUp()
	require.NoError(t, err)

	_, err = c.Dial("5551234")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Equal(t, types.StatusWrapUp, c.Status())
}

func TestActionsWithoutCall(t *testing.T) {
	h := newHarness(t)
	c := h.console

	_, err := c.Answer()
	assert.ErrorIs(t, err, errs.ErrNoRingingCall)
	assert.ErrorIs(t, c.Reject(), errs.ErrNoRingingCall)

	_, err = c.HangUp()
	assert.ErrorIs(t, err, errs.ErrNoActiveCall)
	_, err = c.ToggleHold()
	assert.ErrorIs(t, err, errs.ErrNoActiveCall)
	_, err = c.ToggleMute()
	assert.ErrorIs(t, err, errs.ErrNoActiveCall)
	_, err = c.Park()
	assert.ErrorIs(t, err, errs.ErrNoActiveCall)
	err = c.Transfer(types.TransferDestination{Kind: types.DestinationQueue, Name: "Billing"})
	assert.ErrorIs(t, err, errs.ErrNoActiveCall)

	assert.Equal(t, types.StatusReady, c.Status())
	assert.Empty(t, h.events.Events())
}

func TestRingTimeoutThenAnswer(t *testing.T) {
	h := newHarness(t)
	c := h.console
	h.ring(t, "+1 555-0101", "General")

	h.clock.Advance(30 * time.Second)

	_, err := c.Answer()
	assert.ErrorIs(t, err, errs.ErrNoRingingCall)
	assert.Equal(t, 1, h.events.Count(types.EventCallMissed))
	assert.Equal(t, types.StatusReady, c.Status())

	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.events.Count(types.EventCallMissed))
}

func TestRingTimeoutDoesNotTouchActiveSession(t *testing.T) {
	h := newHarness(t)
	c := h.console

	h.ring(t, "+1 555-0101", "General")
	h.clock.Advance(10 * time.Second)
	_, err := c.Answer()
	require.NoError(t, err)

	h.clock.Advance(40 * time.Second)
	snap := c.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, 40, snap.Session.DurationSeconds)
	assert.Equal(t, 0, h.events.Count(types.EventCallMissed))
}

func TestRejectKeepsPresence(t *testing.T) {
	h := newHarness(t)
	h.ring(t, "+1 555-0101", "General")

	require.NoError(t, h.console.Reject())
	snap := h.console.Snapshot()
	assert.Nil(t, snap.Ringing)
	assert.Equal(t, types.StatusReady, snap.Presence.Status)
}

func TestRingRefusedWhenBusy(t *testing.T) {
	h := newHarness(t)
	c := h.console

	require.NoError(t, c.SetStatus(types.StatusNotReady, types.ReasonLunch))
	_, err := c.Ring(types.IncomingCall{CallerNumber: "+1 555-0101"})
	assert.ErrorIs(t, err, errs.ErrNotAvailable)

	require.NoError(t, c.SetStatus(types.StatusReady, ""))
	call := h.ring(t, "+1 555-0101", "General")
	assert.NotEmpty(t, call.ID)
	assert.Equal(t, types.PriorityNormal, call.Priority)

	_, err = c.Ring(types.IncomingCall{CallerNumber: "+1 555-0102"})
	assert.ErrorIs(t, err, errs.ErrCallRinging)

	_, err = c.Answer()
	require.NoError(t, err)
	_, err = c.Ring(types.IncomingCall{CallerNumber: "+1 555-0102"})
	assert.ErrorIs(t, err, errs.ErrCallInProgress)
}

func TestAnswerAfterGoingNotReady(t *testing.T) {
	h := newHarness(t)
	c := h.console
	h.ring(t, "+1 555-0101", "General")

	require.NoError(t, c.SetStatus(types.StatusNotReady, types.ReasonBreak))
	_, err := c.Answer()
	require.NoError(t, err)
	assert.Equal(t, types.StatusOnCall, c.Status())
}

func TestTryRingEligibility(t *testing.T) {
	h := newHarness(t)
	c := h.console
	built := 0
	build := func() (types.IncomingCall, bool) {
		built++
		return types.IncomingCall{ID: "gen-1", CallerNumber: "+1 555-0101", Queue: "General"}, true
	}

	require.NoError(t, c.SetStatus(types.StatusNotReady, types.ReasonMeeting))
	assert.False(t, c.TryRing(build))
	assert.Equal(t, 0, built)

	require.NoError(t, c.SetStatus(types.StatusReady, ""))
	assert.True(t, c.TryRing(build))
	assert.False(t, c.TryRing(build))
	assert.Equal(t, 1, built)

	_, err := c.Answer()
	require.NoError(t, err)
	assert.False(t, c.TryRing(build))
	assert.Equal(t, 1, built)
}

func TestSetStatus(t *testing.T) {
	h := newHarness(t)
	c := h.console

	assert.ErrorIs(t, c.SetStatus(types.StatusNotReady, ""), errs.ErrReasonRequired)
	assert.ErrorIs(t, c.SetStatus(types.StatusOnCall, ""), errs.ErrInvalidTransition)

	_, err := c.Dial("5551234")
	require.NoError(t, err)
	assert.ErrorIs(t, c.SetStatus(types.StatusNotReady, types.ReasonBreak), errs.ErrCallInProgress)
	assert.ErrorIs(t, c.SetStatus(types.StatusReady, ""), errs.ErrCallInProgress)

	_, err = c.HangUp()
	require.NoError(t, err)
	assert.ErrorIs(t, c.SetStatus(types.StatusReady, ""), errs.ErrDispositionRequired)

	_, err = c.SelectDisposition("wrong-number")
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(types.StatusReady, ""))
	assert.Equal(t, types.StatusReady, c.Status())
}

func TestDispositionDisabledOutsideCall(t *testing.T) {
	h := newHarness(t)
	c := h.console

	_, err := c.SelectDisposition("inquiry-resolved")
	assert.ErrorIs(t, err, errs.ErrDispositionDisabled)
	assert.Nil(t, c.Snapshot().Disposition)
	assert.Equal(t, types.StatusReady, c.Status())

	_, err = c.Dial("5551234")
	require.NoError(t, err)
	_, err = c.SelectDisposition("no-such-code")
	assert.ErrorIs(t, err, errs.ErrUnknownDisposition)

	// picked during the call, carried into wrap-up
	_, err = c.SelectDisposition("callback-requested")
	require.NoError(t, err)
	_, err = c.HangUp()
	require.NoError(t, err)
	code, err := c.CompleteWrapUp()
	require.NoError(t, err)
	assert.Equal(t, "callback-requested", code.Value)
}

func TestCompleteWrapUpOutsideWrapUp(t *testing.T) {
	h := newHarness(t)

	_, err := h.console.CompleteWrapUp()
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestParkAndTransferEndTheCall(t *testing.T) {
	h := newHarness(t)
	c := h.console

	_, err := c.Dial("5551234")
	require.NoError(t, err)
	h.clock.Advance(3 * time.Second)

	h.rng.ints = []int{41}
	slot, err := c.Park()
	require.NoError(t, err)
	assert.Equal(t, 141, slot)
	assert.Equal(t, types.StatusWrapUp, c.Status())
	assert.Nil(t, c.Snapshot().Session)

	parked, ok := h.events.Last(types.EventCallParked)
	require.True(t, ok)
	assert.Equal(t, 141, parked.ParkSlot)

	_, err = c.SelectDisposition("other")
	require.NoError(t, err)
	_, err = c.CompleteWrapUp()
	require.NoError(t, err)

	h.ring(t, "+1 555-0101", "General")
	_, err = c.Answer()
	require.NoError(t, err)

	// a disposition selected for the previous call does not carry over
	assert.Nil(t, c.Snapshot().Disposition)

	err = c.Transfer(types.TransferDestination{Kind: types.DestinationQueue, Name: "nowhere"})
	assert.ErrorIs(t, err, errs.ErrInvalidDestination)
	err = c.Transfer(types.TransferDestination{})
	assert.ErrorIs(t, err, errs.ErrInvalidDestination)
	assert.Equal(t, types.StatusOnCall, c.Status())

	require.NoError(t, c.Transfer(types.TransferDestination{Kind: types.DestinationDirectory, Name: "pharmacy"}))
	assert.Equal(t, types.StatusWrapUp, c.Status())

	transferred, ok := h.events.Last(types.EventCallTransferred)
	require.True(t, ok)
	assert.Equal(t, "Pharmacy", transferred.Destination.Name)
	assert.Equal(t, "+1 555-0310", transferred.Destination.Number)

	ended, _ := h.events.Last(types.EventCallEnded)
	assert.Equal(t, types.EndTransfer, ended.EndReason)
}

func TestParkSlotRange(t *testing.T) {
	h := newHarness(t)
	c := h.console

	for _, draw := range []int{0, 899} {
		_, err := c.Dial("5551234")
		require.NoError(t, err)
		h.rng.ints = []int{draw}
		slot, err := c.Park()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, slot, 100)
		assert.LessOrEqual(t, slot, 999)

		_, err = c.SelectDisposition("other")
		require.NoError(t, err)
		_, err = c.CompleteWrapUp()
		require.NoError(t, err)
	}
}

func TestEndAlwaysResetsSession(t *testing.T) {
	enders := map[string]func(c *Console) error{
		"hangup": func(c *Console) error { _, err := c.HangUp(); return err },
		"park":   func(c *Console) error { _, err := c.Park(); return err },
		"transfer": func(c *Console) error {
			return c.Transfer(types.TransferDestination{Kind: types.DestinationNumber, Number: "+1 555-0400"})
		},
	}

	for name, end := range enders {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			c := h.console

			_, err := c.Dial("5551234")
			require.NoError(t, err)
			c.ToggleHold()
			c.ToggleMute()
			h.clock.Advance(4 * time.Second)

			require.NoError(t, end(c))
			assert.Nil(t, c.Snapshot().Session)
			assert.Equal(t, 0, h.clock.Pending())

			_, err = c.SelectDisposition("other")
			require.NoError(t, err)
			_, err = c.CompleteWrapUp()
			require.NoError(t, err)

			snap, err := c.Dial("5550000")
			require.NoError(t, err)
			assert.Equal(t, "5550000", snap.Caller.Number)
			assert.Zero(t, snap.DurationSeconds)
			assert.Zero(t, snap.HoldSeconds)
			assert.False(t, snap.IsHeld)
			assert.False(t, snap.IsMuted)
		})
	}
}

func TestCallRecordExportedOnWrapUp(t *testing.T) {
	h := newHarness(t)
	c := h.console

	call := h.ring(t, "+1 555-0101", "Billing")
	_, err := c.Answer()
	require.NoError(t, err)
	h.clock.Advance(12 * time.Second)
	c.ToggleHold()
	h.clock.Advance(3 * time.Second)
	_, err = c.HangUp()
	require.NoError(t, err)

	assert.Equal(t, 0, h.store.Count(), "nothing is exported before the disposition")

	h.clock.Advance(20 * time.Second)
	_, err = c.SelectDisposition("billing-question")
	require.NoError(t, err)
	_, err = c.CompleteWrapUp()
	require.NoError(t, err)

	c.Close()
	records, err := h.store.GetAgentCallsByDate(context.Background(), "agent-1", "2024-03-04")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, call.ID, rec.CallID)
	assert.Equal(t, "Billing", rec.Queue)
	assert.Equal(t, types.DirectionInbound, rec.Direction)
	assert.Equal(t, 15, rec.DurationSeconds)
	assert.Equal(t, 3, rec.HoldSeconds)
	assert.Equal(t, 20, rec.WrapUpSeconds)
	assert.Equal(t, types.EndHangup, rec.EndReason)
	assert.Equal(t, "billing-question", rec.Disposition)
	assert.Equal(t, "2024-03-04T08:00:00Z", rec.StartedAt)
}

type failingRecorder struct{ calls atomic.Int32 }

func (f *failingRecorder) SaveCallRecord(context.Context, types.CallRecord) error {
	f.calls.Add(1)
	return errors.New("table not found")
}

func TestExportFailureDoesNotBlockWrapUp(t *testing.T) {
	rec := &failingRecorder{}
	c := New(Options{
		Agent:    types.Agent{ID: "agent-2"},
		Clock:    clock.NewMock(epoch),
		Rand:     &fixedRand{},
		Recorder: rec,
		Logger:   zerolog.Nop(),
	})

	_, err := c.Dial("5551234")
	require.NoError(t, err)
	_, err = c.HangUp()
	require.NoError(t, err)
	_, err = c.SelectDisposition("other")
	require.NoError(t, err)
	_, err = c.CompleteWrapUp()
	require.NoError(t, err)

	c.Close()
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, types.StatusReady, c.Status())
}

func TestAnswerIsSingleFlight(t *testing.T) {
	h := newHarness(t)
	c := h.console
	h.ring(t, "+1 555-0101", "General")

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Answer(); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 1, h.events.Count(types.EventCallStarted))
}

func TestHoldIsSingleFlight(t *testing.T) {
	h := newHarness(t)
	c := h.console
	_, err := c.Dial("5551234")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ToggleHold()
		}()
	}
	wg.Wait()

	// an even number of toggles leaves the call resumed with no hold timer running
	snap := c.Snapshot()
	assert.False(t, snap.Session.IsHeld)
	assert.Equal(t, 1, h.clock.Pending())
}

func TestCloseStopsTimers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := New(Options{
		Agent:       types.Agent{ID: "agent-3"},
		RingTimeout: 50 * time.Millisecond,
		Recorder:    storage.NewNoopStore(),
		Logger:      zerolog.Nop(),
	})

	_, err := c.Dial("5551234")
	require.NoError(t, err)
	c.ToggleHold()
	time.Sleep(30 * time.Millisecond)
	c.Close()

	_, err = c.Ring(types.IncomingCall{CallerNumber: "+1 555-0101"})
	assert.Error(t, err)
	time.Sleep(20 * time.Millisecond)
}

func TestClosedConsoleRefusesNewWork(t *testing.T) {
	h := newHarness(t)
	c := h.console
	c.Close()

	_, err := c.Dial("5551234")
	assert.ErrorIs(t, err, errs.ErrNotAvailable)
	assert.ErrorIs(t, c.SetStatus(types.StatusNotReady, types.ReasonBreak), errs.ErrNotAvailable)
	assert.Equal(t, 0, h.clock.Pending())

	h.clock.Advance(3 * time.Second)
	assert.Nil(t, c.Snapshot().Session)
	assert.Equal(t, types.StatusReady, c.Status())
}

func TestCloseStopsRingingCall(t *testing.T) {
	h := newHarness(t)
	c := h.console
	h.ring(t, "+1 555-0101", "General")
	c.Close()

	_, err := c.Answer()
	assert.ErrorIs(t, err, errs.ErrNoRingingCall)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestCallRecordDateIsUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	clk := clock.NewMock(time.Date(2024, 3, 4, 21, 0, 0, 0, est))
	store := storage.NewMemoryStore()
	c := New(Options{
		Agent:    types.Agent{ID: "agent-4"},
		Clock:    clk,
		Rand:     &fixedRand{},
		Recorder: store,
		Logger:   zerolog.Nop(),
	})

	_, err := c.Dial("5551234")
	require.NoError(t, err)
	clk.Advance(90 * time.Second)
	_, err = c.HangUp()
	require.NoError(t, err)
	_, err = c.SelectDisposition("other")
	require.NoError(t, err)
	_, err = c.CompleteWrapUp()
	require.NoError(t, err)
	c.Close()

	today := clk.Now().UTC().Format("2006-01-02")
	assert.Equal(t, "2024-03-05", today)

	records, err := store.GetAgentCallsByDate(context.Background(), "agent-4", today)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-03-05T02:00:00Z", records[0].StartedAt)
	assert.Equal(t, "2024-03-05T02:01:30Z", records[0].EndedAt)
}

func TestRingRejectsUnknownPriorityAndType(t *testing.T) {
	h := newHarness(t)
	c := h.console

	_, err := c.Ring(types.IncomingCall{CallerNumber: "555", Priority: "bogus"})
	assert.ErrorIs(t, err, errs.ErrInvalidCall)
	_, err = c.Ring(types.IncomingCall{CallerNumber: "555", CallType: "sales"})
	assert.ErrorIs(t, err, errs.ErrInvalidCall)
	assert.Nil(t, c.Snapshot().Ringing)

	call, err := c.Ring(types.IncomingCall{CallerNumber: "555", Priority: types.PriorityUrgent, CallType: types.CallTypeEmergency})
	require.NoError(t, err)
	assert.Equal(t, types.PriorityUrgent, call.Priority)
}

func TestSnapshotCountsMissedCalls(t *testing.T) {
	h := newHarness(t)
	c := h.console

	h.ring(t, "+1 555-0101", "General")
	h.clock.Advance(30 * time.Second)
	h.ring(t, "+1 555-0102", "General")
	h.clock.Advance(30 * time.Second)

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.MissedCalls)
	assert.Equal(t, 30, snap.RingTimeoutSeconds)
	assert.Nil(t, snap.Ringing)
}

func TestSessionDisplaysDurations(t *testing.T) {
	h := newHarness(t)
	c := h.console

	_, err := c.Dial("5551234")
	require.NoError(t, err)
	h.clock.Advance(65 * time.Second)
	_, err = c.ToggleHold()
	require.NoError(t, err)
	h.clock.Advance(5 * time.Second)

	snap := c.Snapshot().Session
	require.NotNil(t, snap)
	assert.Equal(t, "1:10", snap.DurationDisplay)
	assert.Equal(t, "0:05", snap.HoldDisplay)

	tick, ok := h.events.Last(types.EventCallTick)
	require.True(t, ok)
	assert.Equal(t, "1:10", tick.Session.DurationDisplay)
}

func TestSnapshotAlerts(t *testing.T) {
	h := newHarness(t)
	c := h.console

	require.NoError(t, c.SetStatus(types.StatusNotReady, types.ReasonLunch))
	h.clock.Advance(16 * time.Minute)

	snap := c.Snapshot()
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, "not_ready_long", snap.Alerts[0].Rule)
	assert.Equal(t, types.Agent{ID: "agent-1", DisplayName: "Jamie Ortiz"}, snap.Agent)
}

func TestNormalizeNumber(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
		ok   bool
	}{
		"plain":       {"5551234", "5551234", true},
		"formatted":   {" +1 (555) 123-4567 ", "+1 (555) 123-4567", true},
		"dotted":      {"555.123.4567", "555.123.4567", true},
		"empty":       {"", "", false},
		"letters":     {"555-CALL", "", false},
		"no digits":   {"+()", "", false},
		"only spaces": {"    ", "", false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := NormalizeNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
