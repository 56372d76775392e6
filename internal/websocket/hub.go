package websocket

import (
	"encoding/json"
	"sync"

	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/rs/zerolog"
)

// Hub maintains the set of connected consoles and fans console events out to
// the clients of the agent they belong to
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	// Called with the client count after every change
	onCount func(int)

	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		onCount:    func(int) {},
		logger:     logger,
	}
}

// OnClientCount sets a hook reporting the number of connected clients.
// It must be called before Run.
func (h *Hub) OnClientCount(f func(int)) {
	if f != nil {
		h.onCount = f
	}
}

// Run starts the hub's main loop. It returns once events is closed, after
// disconnecting every client.
func (h *Hub) Run(events <-chan types.Event) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.onCount(n)
			h.logger.Info().
				Str("client_id", client.id).
				Str("agent_id", client.agentID).
				Int("total_clients", n).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.onCount(n)

		case ev, ok := <-events:
			if !ok {
				h.closeAll()
				return
			}
			h.dispatch(ev)
		}
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// dispatch sends an event to every client of its agent
func (h *Hub) dispatch(ev types.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := false
	for client := range h.clients {
		if client.agentID != ev.AgentID {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, close and remove it
			close(client.send)
			delete(h.clients, client)
			dropped = true
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
	if dropped {
		h.onCount(len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	h.onCount(0)
	h.logger.Info().Msg("hub stopped")
}
