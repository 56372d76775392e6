// Package control is the HTTP surface for steering the call simulation:
// starting and stopping generation, tuning it and injecting calls.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/console"
	"github.com/dennisdiepolder/monti/console/internal/errs"
	"github.com/dennisdiepolder/monti/console/internal/inbound"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Status is the body of GET /status
type Status struct {
	Running        bool                         `json:"running"`
	StartedAt      *time.Time                   `json:"startedAt,omitempty"`
	Agents         int                          `json:"agents"`
	StatusCounts   map[types.PresenceStatus]int `json:"statusCounts"`
	Polls          int                          `json:"polls"`
	GeneratedCalls int                          `json:"generatedCalls"`
	Config         GeneratorConfig              `json:"config"`
}

// GeneratorConfig is the wire form of the call generator settings
type GeneratorConfig struct {
	IntervalSeconds float64 `json:"intervalSeconds"`
	Probability     float64 `json:"probability"`
}

func toWire(cfg inbound.Config) GeneratorConfig {
	return GeneratorConfig{IntervalSeconds: cfg.Interval.Seconds(), Probability: cfg.Probability}
}

// InjectRequest rings a call for one agent. Without a caller number the call
// is built from the template at index Template.
type InjectRequest struct {
	AgentID      string         `json:"agentId"`
	Template     int            `json:"template,omitempty"`
	CallerNumber string         `json:"callerNumber,omitempty"`
	CallerName   string         `json:"callerName,omitempty"`
	Queue        string         `json:"queue,omitempty"`
	Priority     types.Priority `json:"priority,omitempty"`
	CallType     types.CallType `json:"callType,omitempty"`
	PatientID    string         `json:"patientId,omitempty"`
}

// API provides HTTP control interface for the simulation
type API struct {
	registry  *console.Registry
	mu        sync.Mutex
	startedAt *time.Time
	rng       *rand.Rand
	logger    zerolog.Logger
}

// NewAPI creates a new control API
func NewAPI(registry *console.Registry, logger zerolog.Logger) *API {
	api := &API{
		registry: registry,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger.With().Str("component", "control").Logger(),
	}
	if registry.AutoGenerate() {
		now := time.Now()
		api.startedAt = &now
	}
	return api
}

// SetupRoutes configures HTTP routes
func (api *API) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/health", api.healthHandler).Methods("GET")
	router.HandleFunc("/status", api.statusHandler).Methods("GET")
	router.HandleFunc("/start", api.startHandler).Methods("POST")
	router.HandleFunc("/stop", api.stopHandler).Methods("POST")
	router.HandleFunc("/config", api.configHandler).Methods("GET", "PUT")

	// Call control
	router.HandleFunc("/calls/templates", api.templatesHandler).Methods("GET")
	router.HandleFunc("/calls/inject", api.injectHandler).Methods("POST")
}

// Handler returns a router serving the control API
func (api *API) Handler() http.Handler {
	router := mux.NewRouter()
	api.SetupRoutes(router)
	return router
}

// Start serves the control API on addr until ctx is cancelled
func (api *API) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		api.logger.Info().Msg("shutting down control API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	api.logger.Info().Str("addr", addr).Msg("control API started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// healthHandler returns service health
func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// statusHandler returns current simulation status
func (api *API) statusHandler(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	startedAt := api.startedAt
	api.mu.Unlock()

	polls, generated := api.registry.GeneratorStats()
	writeJSON(w, http.StatusOK, Status{
		Running:        api.registry.AutoGenerate(),
		StartedAt:      startedAt,
		Agents:         api.registry.Count(),
		StatusCounts:   api.registry.StatusCounts(),
		Polls:          polls,
		GeneratedCalls: generated,
		Config:         toWire(api.registry.GeneratorConfig()),
	})
}

// startHandler turns on call generation for every console
func (api *API) startHandler(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if api.registry.AutoGenerate() {
		http.Error(w, "simulation already running", http.StatusConflict)
		return
	}

	api.registry.SetAutoGenerate(true)
	now := time.Now()
	api.startedAt = &now
	api.logger.Info().Int("agents", api.registry.Count()).Msg("call generation started")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "simulation started",
		"agents":  api.registry.Count(),
	})
}

// stopHandler turns off call generation
func (api *API) stopHandler(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if !api.registry.AutoGenerate() {
		http.Error(w, "simulation not running", http.StatusConflict)
		return
	}

	api.registry.SetAutoGenerate(false)
	api.startedAt = nil
	api.logger.Info().Msg("call generation stopped")

	writeJSON(w, http.StatusOK, map[string]string{"message": "simulation stopped"})
}

// configHandler gets or updates the generator settings. Updates apply to
// running generators immediately.
func (api *API) configHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, toWire(api.registry.GeneratorConfig()))
		return
	}

	var req GeneratorConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.IntervalSeconds < 0 {
		http.Error(w, "intervalSeconds must be positive", http.StatusBadRequest)
		return
	}
	if req.Probability < 0 || req.Probability > 1 {
		http.Error(w, "probability must be between 0 and 1", http.StatusBadRequest)
		return
	}

	applied := api.registry.ConfigureGenerators(inbound.Config{
		Interval:    time.Duration(req.IntervalSeconds * float64(time.Second)),
		Probability: req.Probability,
	})
	api.logger.Info().
		Dur("interval", applied.Interval).
		Float64("probability", applied.Probability).
		Msg("generator config updated")

	writeJSON(w, http.StatusOK, toWire(applied))
}

// templatesHandler lists the call catalog
func (api *API) templatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.registry.Templates())
}

// injectHandler rings a call for one connected agent right away
func (api *API) injectHandler(w http.ResponseWriter, r *http.Request) {
	var req InjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AgentID == "" {
		http.Error(w, "agentId is required", http.StatusBadRequest)
		return
	}

	c, ok := api.registry.Lookup(req.AgentID)
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	call, err := api.buildCall(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rung, err := c.Ring(call)
	if err != nil {
		api.logger.Warn().Err(err).Str("agent_id", req.AgentID).Msg("failed to inject call")
		status := http.StatusConflict
		if errors.Is(err, errs.ErrInvalidCall) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error(), "code": errs.Code(err)})
		return
	}

	api.logger.Info().
		Str("agent_id", req.AgentID).
		Str("call_id", rung.ID).
		Str("queue", rung.Queue).
		Msg("call injected")
	writeJSON(w, http.StatusOK, rung)
}

func (api *API) buildCall(req InjectRequest) (types.IncomingCall, error) {
	if req.CallerNumber != "" {
		if _, ok := console.NormalizeNumber(req.CallerNumber); !ok {
			return types.IncomingCall{}, errors.New("invalid callerNumber")
		}
		if req.Priority != "" && !req.Priority.Valid() {
			return types.IncomingCall{}, fmt.Errorf("invalid priority %q", req.Priority)
		}
		if req.CallType != "" && !req.CallType.Valid() {
			return types.IncomingCall{}, fmt.Errorf("invalid callType %q", req.CallType)
		}
		queue := req.Queue
		if queue == "" {
			queue = "General"
		}
		return types.IncomingCall{
			CallerNumber: req.CallerNumber,
			CallerName:   req.CallerName,
			Queue:        queue,
			Priority:     req.Priority,
			CallType:     req.CallType,
			PatientID:    req.PatientID,
		}, nil
	}

	templates := api.registry.Templates()
	if req.Template < 0 || req.Template >= len(templates) {
		return types.IncomingCall{}, errors.New("template index out of range")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	return inbound.NewCall(templates[req.Template], api.rng), nil
}
