// Package inbound simulates arriving calls for an agent and rings them until answered, rejected or missed.
package inbound

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval    = 30 * time.Second
	DefaultCallProbability = 0.3

	maxWaitSeconds = 180
)

// Rand is the random source the generator draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Target receives generated calls.
//
// TryRing checks whether the agent can take a call and, only then, calls build
// to decide on and produce one. It reports whether a call started ringing.
type Target interface {
	TryRing(build func() (types.IncomingCall, bool)) bool
}

// Config holds the polling parameters
type Config struct {
	Interval    time.Duration `json:"interval"`
	Probability float64       `json:"probability"`
}

// Generator polls on a fixed interval and rings a templated call with a fixed probability.
type Generator struct {
	mu        sync.Mutex
	target    Target
	clock     clock.Clock
	rng       Rand
	logger    zerolog.Logger
	templates []types.CallTemplate
	cfg       Config

	running   bool
	gen       uint64
	poller    clock.Timer
	polls     int
	generated int
}

// NewGenerator creates a stopped Generator. Empty templates fall back to DefaultTemplates.
func NewGenerator(target Target, c clock.Clock, rng Rand, cfg Config, templates []types.CallTemplate, logger zerolog.Logger) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Probability <= 0 || cfg.Probability > 1 {
		cfg.Probability = DefaultCallProbability
	}
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}
	return &Generator{
		target:    target,
		clock:     c,
		rng:       rng,
		logger:    logger,
		templates: templates,
		cfg:       cfg,
	}
}

// Start begins polling. Starting a running generator does nothing.
func (g *Generator) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return
	}
	g.running = true
	g.schedule()
	g.logger.Info().
		Dur("interval", g.cfg.Interval).
		Float64("probability", g.cfg.Probability).
		Msg("call generator started")
}

// Stop halts polling
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return
	}
	g.running = false
	g.cancel()
	g.logger.Info().Int("generated", g.generated).Msg("call generator stopped")
}

// Running reports whether the generator is polling
func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Config returns the current polling parameters
func (g *Generator) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// Configure replaces the polling parameters. Zero values keep the current setting.
// A running generator restarts its poll interval.
func (g *Generator) Configure(cfg Config) Config {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cfg.Interval > 0 {
		g.cfg.Interval = cfg.Interval
	}
	if cfg.Probability > 0 && cfg.Probability <= 1 {
		g.cfg.Probability = cfg.Probability
	}
	if g.running {
		g.cancel()
		g.schedule()
	}
	return g.cfg
}

// Templates returns a copy of the call catalog
func (g *Generator) Templates() []types.CallTemplate {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]types.CallTemplate, len(g.templates))
	copy(out, g.templates)
	return out
}

// Stats reports how many polls ran and how many produced a call
func (g *Generator) Stats() (polls, generated int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls, g.generated
}

func (g *Generator) schedule() {
	g.gen++
	gen := g.gen
	g.poller = clock.Every(g.clock, g.cfg.Interval, func() { g.poll(gen) })
}

func (g *Generator) cancel() {
	g.gen++
	if g.poller != nil {
		g.poller.Stop()
		g.poller = nil
	}
}

func (g *Generator) poll(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || !g.running {
		g.mu.Unlock()
		return
	}
	g.polls++
	g.mu.Unlock()

	// not under g.mu: the target takes its own lock and then calls build
	if g.target.TryRing(g.build) {
		g.mu.Lock()
		g.generated++
		g.mu.Unlock()
	}
}

// build draws the Bernoulli trial and, on success, a call from the catalog
func (g *Generator) build() (types.IncomingCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rng.Float64() >= g.cfg.Probability {
		return types.IncomingCall{}, false
	}
	tmpl := pickTemplate(g.rng, g.templates)
	call := NewCall(tmpl, g.rng)

	g.logger.Debug().
		Str("call_id", call.ID).
		Str("queue", call.Queue).
		Str("priority", string(call.Priority)).
		Msg("generated call")
	return call, true
}

// NewCall creates an IncomingCall from a template with a fresh id and a random queue wait
func NewCall(tmpl types.CallTemplate, rng Rand) types.IncomingCall {
	return types.IncomingCall{
		ID:              uuid.New().String(),
		CallerNumber:    tmpl.CallerNumber,
		CallerName:      tmpl.CallerName,
		Queue:           tmpl.Queue,
		WaitTimeSeconds: rng.Intn(maxWaitSeconds),
		Priority:        tmpl.Priority,
		CallType:        tmpl.CallType,
		PatientID:       tmpl.PatientID,
	}
}

// pickTemplate selects a template based on the configured weights
func pickTemplate(rng Rand, templates []types.CallTemplate) types.CallTemplate {
	if len(templates) == 0 {
		return types.CallTemplate{}
	}

	var total float64
	for _, t := range templates {
		total += t.Weight
	}

	r := rng.Float64() * total
	for _, t := range templates {
		r -= t.Weight
		if r <= 0 {
			return t
		}
	}
	return templates[len(templates)-1]
}

// DefaultTemplates is the built-in call catalog
func DefaultTemplates() []types.CallTemplate {
	return []types.CallTemplate{
		{CallerNumber: "+1 555-0142", CallerName: "Margaret Ellison", Queue: "General", Priority: types.PriorityNormal, CallType: types.CallTypeGeneral, PatientID: "P-10231", Weight: 4},
		{CallerNumber: "+1 555-0178", CallerName: "Robert Chen", Queue: "Appointments", Priority: types.PriorityNormal, CallType: types.CallTypeAppointment, PatientID: "P-10877", Weight: 3},
		{CallerNumber: "+1 555-0199", Queue: "Billing", Priority: types.PriorityLow, CallType: types.CallTypeBilling, Weight: 2},
		{CallerNumber: "+1 555-0111", CallerName: "Aisha Patel", Queue: "Clinical", Priority: types.PriorityHigh, CallType: types.CallTypeClinical, PatientID: "P-11402", Weight: 2},
		{CallerNumber: "+1 555-0911", CallerName: "Tomas Rivera", Queue: "Urgent Care", Priority: types.PriorityUrgent, CallType: types.CallTypeEmergency, PatientID: "P-10045", Weight: 1},
	}
}
