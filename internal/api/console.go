package api

import (
	"net/http"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/auth"
	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/console"
	"github.com/dennisdiepolder/monti/console/internal/storage"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/rs/zerolog"
)

// StatusRequest is the body of POST /api/status
type StatusRequest struct {
	Status types.PresenceStatus `json:"status"`
	Reason types.NotReadyReason `json:"reason,omitempty"`
}

// DialRequest is the body of POST /api/calls/dial
type DialRequest struct {
	Number string `json:"number"`
}

// DispositionRequest is the body of POST /api/disposition
type DispositionRequest struct {
	Value string `json:"value"`
}

// HoldResponse reports the hold state after a toggle
type HoldResponse struct {
	Held bool `json:"held"`
}

// MuteResponse reports the mute state after a toggle
type MuteResponse struct {
	Muted bool `json:"muted"`
}

// ParkResponse carries the slot a call was parked on
type ParkResponse struct {
	Slot int `json:"slot"`
}

// WrapUpResponse carries the disposition a wrap-up was completed with
type WrapUpResponse struct {
	Disposition types.DispositionCode `json:"disposition"`
}

// ConsoleHandler serves the agent's own console. Every request acts on the
// console of the authenticated agent.
type ConsoleHandler struct {
	registry *console.Registry
	history  storage.Store
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewConsoleHandler creates a ConsoleHandler. history may be nil, in which
// case call history is always empty.
func NewConsoleHandler(registry *console.Registry, history storage.Store, clk clock.Clock, logger zerolog.Logger) *ConsoleHandler {
	if history == nil {
		history = storage.NewNoopStore()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &ConsoleHandler{
		registry: registry,
		history:  history,
		clock:    clk,
		logger:   logger.With().Str("component", "console_api").Logger(),
	}
}

// consoleFor resolves the caller's console, creating it on first use
func (h *ConsoleHandler) consoleFor(w http.ResponseWriter, r *http.Request) (*console.Console, bool) {
	agent, ok := auth.AgentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "no agent identity")
		return nil, false
	}
	return h.registry.Get(agent), true
}

// Snapshot returns the console for agent; used by the websocket handler
func (h *ConsoleHandler) Snapshot(agent types.Agent) types.ConsoleSnapshot {
	return h.registry.Get(agent).Snapshot()
}

// GetState handles GET /api/state
func (h *ConsoleHandler) GetState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// SetStatus handles POST /api/status
func (h *ConsoleHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	if err := c.SetStatus(req.Status, req.Reason); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// Answer handles POST /api/calls/answer
func (h *ConsoleHandler) Answer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	snap, err := c.Answer()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Reject handles POST /api/calls/reject
func (h *ConsoleHandler) Reject(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	if err := c.Reject(); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// Dial handles POST /api/calls/dial
func (h *ConsoleHandler) Dial(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	var req DialRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := c.Dial(req.Number)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HangUp handles POST /api/calls/hangup
func (h *ConsoleHandler) HangUp(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	snap, err := c.HangUp()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Hold handles POST /api/calls/hold
func (h *ConsoleHandler) Hold(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	held, err := c.ToggleHold()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HoldResponse{Held: held})
}

// Mute handles POST /api/calls/mute
func (h *ConsoleHandler) Mute(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	muted, err := c.ToggleMute()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MuteResponse{Muted: muted})
}

// Park handles POST /api/calls/park
func (h *ConsoleHandler) Park(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	slot, err := c.Park()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParkResponse{Slot: slot})
}

// Transfer handles POST /api/calls/transfer
func (h *ConsoleHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	var dest types.TransferDestination
	if !decode(w, r, &dest) {
		return
	}
	if err := c.Transfer(dest); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// GetDispositions handles GET /api/dispositions
func (h *ConsoleHandler) GetDispositions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Dispositions())
}

// SelectDisposition handles POST /api/disposition
func (h *ConsoleHandler) SelectDisposition(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	var req DispositionRequest
	if !decode(w, r, &req) {
		return
	}
	code, err := c.SelectDisposition(req.Value)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

// CompleteWrapUp handles POST /api/wrapup/complete
func (h *ConsoleHandler) CompleteWrapUp(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	code, err := c.CompleteWrapUp()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WrapUpResponse{Disposition: code})
}

// GetDestinations handles GET /api/transfer-destinations
func (h *ConsoleHandler) GetDestinations(w http.ResponseWriter, r *http.Request) {
	c, ok := h.consoleFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Destinations())
}

// GetHistory returns the agent's completed calls for a day
// GET /api/calls/history?date=YYYY-MM-DD (defaults to today)
func (h *ConsoleHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	agent, ok := auth.AgentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "no agent identity")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.clock.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "date must be YYYY-MM-DD")
		return
	}

	records, err := h.history.GetAgentCallsByDate(r.Context(), agent.ID, date)
	if err != nil {
		h.logger.Error().Err(err).
			Str("agent_id", agent.ID).
			Str("date", date).
			Msg("failed to get agent calls")
		writeError(w, http.StatusInternalServerError, "Internal", "failed to retrieve calls")
		return
	}
	if records == nil {
		records = []types.CallRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
