package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/dennisdiepolder/monti/console/internal/auth"
	"github.com/dennisdiepolder/monti/console/internal/config"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SnapshotMessage is the first message a client receives after connecting
type SnapshotMessage struct {
	Type     string                `json:"type"`
	AgentID  string                `json:"agentId"`
	Snapshot types.ConsoleSnapshot `json:"snapshot"`
}

// SnapshotFunc returns the current console state for an agent, creating the
// console if needed
type SnapshotFunc func(agent types.Agent) types.ConsoleSnapshot

// Handler handles WebSocket upgrade requests
type Handler struct {
	hub      *Hub
	config   *config.Config
	snapshot SnapshotFunc
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, cfg *config.Config, snapshot SnapshotFunc, logger zerolog.Logger) *Handler {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		hub:      hub,
		config:   cfg,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	agent, ok := auth.AgentFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Snapshot before upgrading so the console exists when events start flowing
	initial, err := json.Marshal(SnapshotMessage{Type: "snapshot", AgentID: agent.ID, Snapshot: h.snapshot(agent)})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal snapshot")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(h.hub, conn, h.config, h.logger, agent.ID)
	client.send <- initial

	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	// Start client pumps
	client.Start()
}
