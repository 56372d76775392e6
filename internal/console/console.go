// Package console is the per-agent call controller. A Console owns the agent's
// presence, the ringing call, the active call session and the wrap-up gate, and
// serialises every operator action behind one mutex so each precondition check
// and its state change happen as a single step.
package console

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/alerts"
	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/inbound"
	"github.com/dennisdiepolder/monti/console/internal/presence"
	"github.com/dennisdiepolder/monti/console/internal/session"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/dennisdiepolder/monti/console/internal/wrapup"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const saveTimeout = 10 * time.Second

// CallRecorder receives the record of every call once its wrap-up completes
type CallRecorder interface {
	SaveCallRecord(ctx context.Context, record types.CallRecord) error
}

// Options configures a Console. Zero values get working defaults.
type Options struct {
	Agent        types.Agent
	Clock        clock.Clock
	Rand         inbound.Rand
	Notifier     events.Notifier
	RingTimeout  time.Duration
	Dispositions []types.DispositionCode
	Destinations []types.TransferDestination
	Recorder     CallRecorder
	Logger       zerolog.Logger
}

// Console is the single actor for one agent
type Console struct {
	mu sync.Mutex

	agent        types.Agent
	clock        clock.Clock
	rng          inbound.Rand
	notifier     events.Notifier
	recorder     CallRecorder
	destinations []types.TransferDestination
	logger       zerolog.Logger

	presence *presence.State
	session  *session.Session
	ringer   *inbound.Ringer
	gate     *wrapup.Gate

	callID    string
	pending   *types.CallRecord
	wrapStart time.Time
	closed    bool

	saves sync.WaitGroup
}

// New creates a Console for opts.Agent, starting Ready with nothing ringing
func New(opts Options) *Console {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Notifier == nil {
		opts.Notifier = events.Discard
	}
	if len(opts.Destinations) == 0 {
		opts.Destinations = DefaultDestinations()
	}

	id := opts.Agent.ID
	p := presence.New(id, opts.Clock, opts.Notifier)

	return &Console{
		agent:        opts.Agent,
		clock:        opts.Clock,
		rng:          opts.Rand,
		notifier:     opts.Notifier,
		recorder:     opts.Recorder,
		destinations: opts.Destinations,
		logger:       opts.Logger.With().Str("agent_id", id).Logger(),
		presence:     p,
		session:      session.New(id, opts.Clock, p, opts.Notifier),
		ringer:       inbound.NewRinger(id, opts.Clock, opts.RingTimeout, opts.Notifier),
		gate:         wrapup.NewGate(id, opts.Clock, opts.Dispositions, opts.Notifier),
	}
}

// Agent returns the identity this console belongs to
func (c *Console) Agent() types.Agent {
	return c.agent
}

// Answer accepts the ringing call and starts a session with its caller and queue
func (c *Console) Answer() (types.SessionSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ringer.IsRinging() {
		return types.SessionSnapshot{}, errs.Wrap("answer", errs.ErrNoRingingCall)
	}
	if err := c.canStartCall(); err != nil {
		return types.SessionSnapshot{}, errs.Wrap("answer", err)
	}

	call, err := c.ringer.Accept()
	if err != nil {
		return types.SessionSnapshot{}, errs.Wrap("answer", err)
	}
	if err := c.startCall(call.ID, call.Caller(), call.Queue, types.DirectionInbound); err != nil {
		return types.SessionSnapshot{}, errs.Wrap("answer", err)
	}

	c.logger.Info().
		Str("call_id", call.ID).
		Str("queue", call.Queue).
		Msg("call answered")

	snap, _ := c.session.Snapshot()
	return snap, nil
}

// Reject discards the ringing call without starting a session
func (c *Console) Reject() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, err := c.ringer.Reject()
	if err != nil {
		return errs.Wrap("reject", err)
	}
	c.logger.Info().Str("call_id", call.ID).Msg("call rejected")
	return nil
}

// Dial starts an outbound session to number
func (c *Console) Dial(number string) (types.SessionSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Active() {
		return types.SessionSnapshot{}, errs.Wrap("dial", errs.ErrAlreadyOnCall)
	}
	if c.ringer.IsRinging() {
		return types.SessionSnapshot{}, errs.Wrap("dial", errs.ErrCallRinging)
	}
	normalized, ok := NormalizeNumber(number)
	if !ok {
		return types.SessionSnapshot{}, errs.Wrap("dial", errs.ErrInvalidNumber)
	}
	if err := c.canStartCall(); err != nil {
		return types.SessionSnapshot{}, errs.Wrap("dial", err)
	}

	callID := uuid.New().String()
	if err := c.startCall(callID, types.Caller{Number: normalized}, types.OutboundQueue, types.DirectionOutbound); err != nil {
		return types.SessionSnapshot{}, errs.Wrap("dial", err)
	}

	c.logger.Info().
		Str("call_id", callID).
		Str("number", normalized).
		Msg("outbound call started")

	snap, _ := c.session.Snapshot()
	return snap, nil
}

// HangUp ends the active session
func (c *Console) HangUp() (types.SessionSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	final, err := c.endCall(types.EndHangup, 0, "")
	if err != nil {
		return types.SessionSnapshot{}, errs.Wrap("hangup", err)
	}
	return final, nil
}

// ToggleHold holds or resumes the active call and returns whether it is now held
func (c *Console) ToggleHold() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	held, err := c.session.ToggleHold()
	if err != nil {
		return false, errs.Wrap("hold", err)
	}
	c.logger.Debug().Bool("held", held).Msg("hold toggled")
	return held, nil
}

// ToggleMute mutes or unmutes the active call and returns whether it is now muted
func (c *Console) ToggleMute() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	muted, err := c.session.ToggleMute()
	if err != nil {
		return false, errs.Wrap("mute", err)
	}
	c.logger.Debug().Bool("muted", muted).Msg("mute toggled")
	return muted, nil
}

// Park ends the active call and returns the slot it was parked on (100-999)
func (c *Console) Park() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Active() {
		return 0, errs.Wrap("park", errs.ErrNoActiveCall)
	}

	slot := c.rng.Intn(900) + 100
	final, err := c.endCall(types.EndPark, slot, "")
	if err != nil {
		return 0, errs.Wrap("park", err)
	}

	c.notifier.Notify(types.Event{
		Type:      types.EventCallParked,
		AgentID:   c.agent.ID,
		Timestamp: c.clock.Now(),
		Session:   &final,
		ParkSlot:  slot,
	})
	c.logger.Info().Int("slot", slot).Msg("call parked")
	return slot, nil
}

// Transfer announces dest and then ends the active call
func (c *Console) Transfer(dest types.TransferDestination) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.session.Snapshot()
	if !ok {
		return errs.Wrap("transfer", errs.ErrNoActiveCall)
	}
	resolved, err := c.resolveDestination(dest)
	if err != nil {
		return errs.Wrap("transfer", err)
	}

	c.notifier.Notify(types.Event{
		Type:        types.EventCallTransferred,
		AgentID:     c.agent.ID,
		Timestamp:   c.clock.Now(),
		Session:     &snap,
		Destination: &resolved,
	})
	if _, err := c.endCall(types.EndTransfer, 0, resolved.Label()); err != nil {
		return errs.Wrap("transfer", err)
	}

	c.logger.Info().
		Str("kind", string(resolved.Kind)).
		Str("destination", resolved.Label()).
		Msg("call transferred")
	return nil
}

// SetStatus applies the operator's status selection. Choosing Ready from
// WrapUp goes through the disposition gate.
func (c *Console) SetStatus(status types.PresenceStatus, reason types.NotReadyReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errs.Wrap("set_status", errs.ErrNotAvailable)
	}
	if c.presence.Status() == types.StatusWrapUp && status == types.StatusReady {
		if _, err := c.completeWrapUp(); err != nil {
			return errs.Wrap("set_status", err)
		}
		return nil
	}
	if err := c.presence.Select(status, reason); err != nil {
		return errs.Wrap("set_status", err)
	}

	c.logger.Info().
		Str("status", string(status)).
		Str("reason", string(c.presence.Reason())).
		Msg("presence changed")
	return nil
}

// SelectDisposition records the outcome of the current or just-ended call
func (c *Console) SelectDisposition(value string) (types.DispositionCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, err := c.gate.Select(value, c.presence.Status())
	if err != nil {
		return types.DispositionCode{}, errs.Wrap("select_disposition", err)
	}
	return code, nil
}

// CompleteWrapUp returns the agent to Ready once a disposition is recorded
func (c *Console) CompleteWrapUp() (types.DispositionCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, err := c.completeWrapUp()
	if err != nil {
		return types.DispositionCode{}, errs.Wrap("complete_wrapup", err)
	}
	return code, nil
}

// TryRing rings a call produced by build if the agent is Ready, idle and not
// already ringing. build is only called when the agent is eligible.
func (c *Console) TryRing(build func() (types.IncomingCall, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.presence.Status() != types.StatusReady || c.session.Active() || c.ringer.IsRinging() {
		return false
	}
	call, ok := build()
	if !ok {
		return false
	}
	if err := c.ringer.Present(call); err != nil {
		return false
	}
	c.logger.Info().
		Str("call_id", call.ID).
		Str("queue", call.Queue).
		Msg("incoming call ringing")
	return true
}

// Ring presents call immediately. It is refused while the agent is busy or not Ready.
func (c *Console) Ring(call types.IncomingCall) (types.IncomingCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.session.Active():
		return types.IncomingCall{}, errs.Wrap("ring", errs.ErrCallInProgress)
	case c.closed || c.presence.Status() != types.StatusReady:
		return types.IncomingCall{}, errs.Wrap("ring", errs.ErrNotAvailable)
	}

	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.Priority == "" {
		call.Priority = types.PriorityNormal
	}
	if call.CallType == "" {
		call.CallType = types.CallTypeGeneral
	}
	if !call.Priority.Valid() || !call.CallType.Valid() {
		return types.IncomingCall{}, errs.Wrap("ring", errs.ErrInvalidCall)
	}
	if err := c.ringer.Present(call); err != nil {
		return types.IncomingCall{}, errs.Wrap("ring", err)
	}
	c.logger.Info().Str("call_id", call.ID).Msg("injected call ringing")
	return call, nil
}

// Snapshot returns the full console state
func (c *Console) Snapshot() types.ConsoleSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	p := c.presence.Snapshot()
	snap := types.ConsoleSnapshot{
		Agent:              c.agent,
		Presence:           p,
		OnCall:             c.presence.OnCall(),
		MissedCalls:        c.ringer.Missed(),
		RingTimeoutSeconds: int(c.ringer.Timeout() / time.Second),
		Alerts:             alerts.Check(p, now),
	}
	if s, ok := c.session.Snapshot(); ok {
		snap.Session = &s
	}
	if r, ok := c.ringer.Ringing(); ok {
		snap.Ringing = &r
	}
	if d, ok := c.gate.Selected(); ok {
		snap.Disposition = &d
	}
	return snap
}

// Status returns the current presence status
func (c *Console) Status() types.PresenceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.Status()
}

// Dispositions returns the disposition catalog
func (c *Console) Dispositions() []types.DispositionCode {
	return c.gate.Catalog()
}

// Destinations returns the transfer destination catalog
func (c *Console) Destinations() []types.TransferDestination {
	out := make([]types.TransferDestination, len(c.destinations))
	copy(out, c.destinations)
	return out
}

// Close stops every timer, refuses further calls and waits for pending record exports
func (c *Console) Close() {
	c.mu.Lock()
	c.closed = true
	c.ringer.Stop()
	c.session.Stop()
	c.mu.Unlock()

	c.saves.Wait()
}

// Idle reports whether nothing is in flight: no session, no ringing call and
// no wrap-up waiting for a disposition.
func (c *Console) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.session.Active() && !c.ringer.IsRinging() && c.presence.Status() != types.StatusWrapUp
}

// canStartCall checks the presence side of a session start without changing anything
func (c *Console) canStartCall() error {
	if c.closed {
		return errs.ErrNotAvailable
	}
	status := c.presence.Status()
	if status == types.StatusOnCall || c.session.Active() {
		return errs.ErrAlreadyOnCall
	}
	if !presence.CanTransition(status, types.StatusOnCall) {
		return errs.ErrInvalidTransition
	}
	return nil
}

func (c *Console) startCall(callID string, caller types.Caller, queue string, dir types.Direction) error {
	if err := c.session.Start(caller, queue, dir); err != nil {
		return err
	}
	// a disposition picked during an earlier cycle never carries over
	c.gate.Clear()
	c.pending = nil
	c.callID = callID
	return nil
}

func (c *Console) endCall(reason types.EndReason, parkSlot int, transferTarget string) (types.SessionSnapshot, error) {
	final, err := c.session.End(reason)
	if err != nil {
		return types.SessionSnapshot{}, err
	}

	now := c.clock.Now()
	c.wrapStart = now
	// records are filed by UTC date, the same key history lookups use
	started := final.StartedAt.UTC()
	c.pending = &types.CallRecord{
		DateKey:         started.Format("2006-01-02"),
		CallID:          c.callID,
		AgentID:         c.agent.ID,
		CallerNumber:    final.Caller.Number,
		CallerName:      final.Caller.Name,
		PatientID:       final.Caller.PatientID,
		Queue:           final.Queue,
		Direction:       final.Direction,
		StartedAt:       started.Format(time.RFC3339),
		EndedAt:         now.UTC().Format(time.RFC3339),
		DurationSeconds: final.DurationSeconds,
		HoldSeconds:     final.HoldSeconds,
		EndReason:       reason,
		ParkSlot:        parkSlot,
		TransferTarget:  transferTarget,
	}
	c.callID = ""

	c.logger.Info().
		Str("reason", string(reason)).
		Int("duration", final.DurationSeconds).
		Int("hold", final.HoldSeconds).
		Str("talk_time", final.DurationDisplay).
		Msg("call ended")
	return final, nil
}

func (c *Console) completeWrapUp() (types.DispositionCode, error) {
	code, err := c.gate.Complete(c.presence)
	if err != nil {
		return types.DispositionCode{}, err
	}

	if c.pending != nil {
		record := *c.pending
		record.Disposition = code.Value
		record.WrapUpSeconds = int(c.clock.Now().Sub(c.wrapStart) / time.Second)
		c.pending = nil
		c.export(record)
	}

	c.logger.Info().Str("disposition", code.Value).Msg("wrap-up completed")
	return code, nil
}

// export saves record in the background so a slow store never holds the console lock
func (c *Console) export(record types.CallRecord) {
	if c.recorder == nil {
		return
	}
	c.saves.Add(1)
	go func() {
		defer c.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := c.recorder.SaveCallRecord(ctx, record); err != nil {
			c.logger.Error().Err(err).Str("call_id", record.CallID).Msg("failed to save call record")
		}
	}()
}
