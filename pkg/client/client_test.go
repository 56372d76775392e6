package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/api"
	"github.com/dennisdiepolder/monti/console/internal/auth"
	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/config"
	"github.com/dennisdiepolder/monti/console/internal/console"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/storage"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/dennisdiepolder/monti/console/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var devAgent = types.Agent{ID: "dev", DisplayName: "Dev Agent"}

type testServer struct {
	*httptest.Server
	registry *console.Registry
	store    *storage.MemoryStore
	hub      *websocket.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	bus := events.NewBus(logger)
	store := storage.NewMemoryStore()
	clk := clock.NewMock(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
	registry := console.NewRegistry(console.RegistryOptions{
		Clock:    clk,
		Notifier: bus,
		Recorder: store,
		Logger:   logger,
	})

	sub := bus.Subscribe("", 256)
	hub := websocket.NewHub(logger)
	go hub.Run(sub.Events())

	cfg := &config.Config{PongWait: time.Minute, PingPeriod: 54 * time.Second, WriteWait: 10 * time.Second, MaxMessageSize: 512}
	consoleHandler := api.NewConsoleHandler(registry, store, clk, logger)
	authn := auth.NewAuthenticator(auth.Options{SkipAuth: true, DevAgent: devAgent, Logger: logger})

	srv := httptest.NewServer(api.NewRouter(api.RouterOptions{
		Console:   consoleHandler,
		Auth:      authn.Middleware,
		WebSocket: websocket.NewHandler(hub, cfg, consoleHandler.Snapshot, logger),
		Logger:    logger,
	}))
	t.Cleanup(func() {
		srv.Close()
		bus.Unsubscribe(sub)
		registry.Close()
	})
	return &testServer{Server: srv, registry: registry, store: store, hub: hub}
}

func TestClientCallFlow(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL+"/", WithToken("ignored"))

	require.NoError(t, c.Health(ctx))

	state, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, devAgent, state.Agent)
	assert.Equal(t, types.StatusReady, state.Presence.Status)

	session, err := c.Dial(ctx, "555-0100")
	require.NoError(t, err)
	assert.Equal(t, "555-0100", session.Caller.Number)

	held, err := c.ToggleHold(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	muted, err := c.ToggleMute(ctx)
	require.NoError(t, err)
	assert.True(t, muted)

	dests, err := c.Destinations(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, dests)
	require.NoError(t, c.Transfer(ctx, dests[0]))

	codes, err := c.Dispositions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, codes)

	_, err = c.CompleteWrapUp(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "DispositionRequired", apiErr.Code)

	selected, err := c.SelectDisposition(ctx, codes[0].Value)
	require.NoError(t, err)
	assert.Equal(t, codes[0], *selected)

	done, err := c.CompleteWrapUp(ctx)
	require.NoError(t, err)
	assert.Equal(t, codes[0].Value, done.Value)

	state, err = c.SetStatus(ctx, types.StatusNotReady, types.ReasonBreak)
	require.NoError(t, err)
	assert.Equal(t, types.ReasonBreak, state.Presence.Reason)

	require.Eventually(t, func() bool { return srv.store.Count() == 1 }, time.Second, 5*time.Millisecond)
	records, err := c.History(ctx, "2024-03-04")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.EndTransfer, records[0].EndReason)
	assert.Equal(t, dests[0].Label(), records[0].TransferTarget)
}

func TestClientInboundActions(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL)

	err := c.Reject(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NoRingingCall", apiErr.Code)

	con := srv.registry.Get(devAgent)
	_, err = con.Ring(types.IncomingCall{CallerNumber: "+1 555-0100", Queue: "Clinical"})
	require.NoError(t, err)

	session, err := c.Answer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Clinical", session.Queue)

	slot, err := c.Park(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, slot, 100)
	assert.LessOrEqual(t, slot, 999)

	_, err = c.HangUp(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAPIErrorFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).State(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized: missing token", apiErr.Message)
	assert.Empty(t, apiErr.Code)
}

func TestStreamDeliversSnapshotAndEvents(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)

	snapshots := make(chan types.ConsoleSnapshot, 4)
	evs := make(chan types.Event, 64)
	stream := c.Stream(Handlers{
		Snapshot: func(s types.ConsoleSnapshot) { snapshots <- s },
		Event:    func(ev types.Event) { evs <- ev },
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- stream.Run(ctx) }()

	select {
	case snap := <-snapshots:
		assert.Equal(t, devAgent.ID, snap.Agent.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	// events emitted before the hub registers the client are not replayed
	require.Eventually(t, func() bool { return srv.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	_, err := c.Dial(context.Background(), "555-0100")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case ev := <-evs:
			found = ev.Type == types.EventCallStarted
		case <-deadline:
			t.Fatal("call_started not received")
		}
	}

	cancel()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestStreamRetriesWithBackoff(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	stream := NewClient(url).Stream(Handlers{}, zerolog.Nop())
	stream.initial = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := stream.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, stream.Reconnects(), int64(2))
}
