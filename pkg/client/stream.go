package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// Handlers receive stream messages. Either may be nil.
type Handlers struct {
	// Snapshot is called with the full console state after every (re)connect
	Snapshot func(types.ConsoleSnapshot)
	Event    func(types.Event)
}

// Stream follows the console event stream and reconnects with exponential backoff
type Stream struct {
	url        string
	dialer     *websocket.Dialer
	handlers   Handlers
	logger     zerolog.Logger
	initial    time.Duration
	reconnects atomic.Int64
}

// Stream creates a Stream for this client's agent
func (c *Client) Stream(handlers Handlers, logger zerolog.Logger) *Stream {
	wsURL := c.baseURL + "/ws"
	// Convert http:// to ws:// or https:// to wss://
	if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[4:]
	}
	if c.token != "" {
		wsURL += "?token=" + url.QueryEscape(c.token)
	}

	return &Stream{
		url:      wsURL,
		dialer:   websocket.DefaultDialer,
		handlers: handlers,
		logger:   logger,
		initial:  initialReconnectDelay,
	}
}

// Reconnects returns how many times the stream failed to connect
func (s *Stream) Reconnects() int64 {
	return s.reconnects.Load()
}

// Run keeps the stream connected until ctx is cancelled and returns ctx.Err()
func (s *Stream) Run(ctx context.Context) error {
	reconnectDelay := s.initial

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.logger.Debug().Err(err).Dur("retry_in", reconnectDelay).Msg("stream connection failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
			// Exponential backoff
			reconnectDelay *= 2
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
			s.reconnects.Add(1)
			continue
		}

		// Reset backoff on successful connection
		reconnectDelay = s.initial
		s.logger.Debug().Msg("stream connected")

		s.readLoop(ctx, conn)
		conn.Close()
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Debug().Err(err).Msg("stream read failed")
			}
			return
		}
		s.dispatch(message)
	}
}

func (s *Stream) dispatch(message []byte) {
	var head struct {
		Type     string                 `json:"type"`
		Snapshot *types.ConsoleSnapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(message, &head); err != nil {
		s.logger.Warn().Err(err).Msg("invalid stream message")
		return
	}

	if head.Type == "snapshot" {
		if s.handlers.Snapshot != nil && head.Snapshot != nil {
			s.handlers.Snapshot(*head.Snapshot)
		}
		return
	}

	if s.handlers.Event == nil {
		return
	}
	var ev types.Event
	if err := json.Unmarshal(message, &ev); err != nil {
		s.logger.Warn().Err(err).Msg("invalid event")
		return
	}
	s.handlers.Event(ev)
}
