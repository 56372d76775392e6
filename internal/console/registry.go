package console

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/clock"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/inbound"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/rs/zerolog"
)

// RegistryOptions holds what every console created by a Registry shares
type RegistryOptions struct {
	Clock        clock.Clock
	NewRand      func() inbound.Rand
	Notifier     events.Notifier
	RingTimeout  time.Duration
	Dispositions []types.DispositionCode
	Destinations []types.TransferDestination
	Templates    []types.CallTemplate
	Generator    inbound.Config
	AutoGenerate bool
	Recorder     CallRecorder
	Logger       zerolog.Logger

	// IdleTimeout evicts consoles with nothing in flight that no request has
	// touched for this long. Zero keeps consoles forever.
	IdleTimeout time.Duration
}

type entry struct {
	console   *Console
	generator *inbound.Generator
	lastSeen  time.Time
}

// Registry keeps one Console and call generator per agent. Consoles are
// created on first use and share no state with each other.
type Registry struct {
	mu        sync.Mutex
	opts      RegistryOptions
	consoles  map[string]*entry
	genConfig inbound.Config
	autoGen   bool
	closed    bool
	sweeper   clock.Timer
}

// NewRegistry creates an empty Registry
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.NewRand == nil {
		opts.NewRand = func() inbound.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if opts.Generator.Interval <= 0 {
		opts.Generator.Interval = inbound.DefaultPollInterval
	}
	if opts.Generator.Probability <= 0 || opts.Generator.Probability > 1 {
		opts.Generator.Probability = inbound.DefaultCallProbability
	}
	r := &Registry{
		opts:      opts,
		consoles:  make(map[string]*entry),
		genConfig: opts.Generator,
		autoGen:   opts.AutoGenerate,
	}
	if opts.IdleTimeout > 0 {
		r.sweeper = clock.Every(opts.Clock, sweepInterval(opts.IdleTimeout), func() { r.EvictIdle() })
	}
	return r
}

func sweepInterval(idle time.Duration) time.Duration {
	if idle < 2*time.Minute {
		return idle
	}
	return time.Minute
}

// Get returns the console for agent, creating it on first use
func (r *Registry) Get(agent types.Agent) *Console {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.consoles[agent.ID]; ok {
		e.lastSeen = r.opts.Clock.Now()
		return e.console
	}

	rng := r.opts.NewRand()
	c := New(Options{
		Agent:        agent,
		Clock:        r.opts.Clock,
		Rand:         rng,
		Notifier:     r.opts.Notifier,
		RingTimeout:  r.opts.RingTimeout,
		Dispositions: r.opts.Dispositions,
		Destinations: r.opts.Destinations,
		Recorder:     r.opts.Recorder,
		Logger:       r.opts.Logger,
	})
	logger := r.opts.Logger.With().Str("agent_id", agent.ID).Logger()
	gen := inbound.NewGenerator(c, r.opts.Clock, rng, r.genConfig, r.opts.Templates, logger)
	r.consoles[agent.ID] = &entry{console: c, generator: gen, lastSeen: r.opts.Clock.Now()}

	if r.autoGen && !r.closed {
		gen.Start()
	}

	logger.Info().Str("display_name", agent.DisplayName).Msg("console created")
	return c
}

// Lookup returns an existing console without creating one
func (r *Registry) Lookup(agentID string) (*Console, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.consoles[agentID]
	if !ok {
		return nil, false
	}
	return e.console, true
}

// Generator returns the call generator attached to an agent's console
func (r *Registry) Generator(agentID string) (*inbound.Generator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.consoles[agentID]
	if !ok {
		return nil, false
	}
	return e.generator, true
}

// Agents lists the agents that have a console, sorted by id
func (r *Registry) Agents() []types.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents := make([]types.Agent, 0, len(r.consoles))
	for _, e := range r.consoles {
		agents = append(agents, e.console.Agent())
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents
}

// Count returns the number of consoles
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}

// StatusCounts returns how many consoles are in each presence status
func (r *Registry) StatusCounts() map[types.PresenceStatus]int {
	r.mu.Lock()
	consoles := make([]*Console, 0, len(r.consoles))
	for _, e := range r.consoles {
		consoles = append(consoles, e.console)
	}
	r.mu.Unlock()

	counts := make(map[types.PresenceStatus]int, len(types.AllStatuses))
	for _, c := range consoles {
		counts[c.Status()]++
	}
	return counts
}

// GeneratorStats sums poll and generated-call counts over every generator
func (r *Registry) GeneratorStats() (polls, generated int) {
	r.mu.Lock()
	gens := make([]*inbound.Generator, 0, len(r.consoles))
	for _, e := range r.consoles {
		gens = append(gens, e.generator)
	}
	r.mu.Unlock()

	for _, g := range gens {
		p, n := g.Stats()
		polls += p
		generated += n
	}
	return polls, generated
}

// SetAutoGenerate starts or stops call generation for every console, including future ones
func (r *Registry) SetAutoGenerate(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.autoGen = on
	for _, e := range r.consoles {
		if on {
			e.generator.Start()
		} else {
			e.generator.Stop()
		}
	}
}

// AutoGenerate reports whether new and existing consoles generate calls
func (r *Registry) AutoGenerate() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.autoGen
}

// GeneratorConfig returns the polling parameters applied to consoles
func (r *Registry) GeneratorConfig() inbound.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.genConfig
}

// ConfigureGenerators updates the polling parameters of every generator
func (r *Registry) ConfigureGenerators(cfg inbound.Config) inbound.Config {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Interval > 0 {
		r.genConfig.Interval = cfg.Interval
	}
	if cfg.Probability > 0 && cfg.Probability <= 1 {
		r.genConfig.Probability = cfg.Probability
	}
	for _, e := range r.consoles {
		e.generator.Configure(r.genConfig)
	}
	return r.genConfig
}

// Templates returns the call catalog used by the generators
func (r *Registry) Templates() []types.CallTemplate {
	if len(r.opts.Templates) == 0 {
		return inbound.DefaultTemplates()
	}
	out := make([]types.CallTemplate, len(r.opts.Templates))
	copy(out, r.opts.Templates)
	return out
}

// EvictIdle closes and forgets consoles that have been idle longer than
// IdleTimeout. It returns how many were removed.
func (r *Registry) EvictIdle() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}

	r.mu.Lock()
	now := r.opts.Clock.Now()
	var evicted []*entry
	for id, e := range r.consoles {
		if now.Sub(e.lastSeen) < r.opts.IdleTimeout || !e.console.Idle() {
			continue
		}
		delete(r.consoles, id)
		evicted = append(evicted, e)
	}
	r.mu.Unlock()

	for _, e := range evicted {
		e.generator.Stop()
		e.console.Close()
		r.opts.Logger.Info().Str("agent_id", e.console.Agent().ID).Msg("idle console evicted")
	}
	return len(evicted)
}

// Close stops every generator and console
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	if r.sweeper != nil {
		r.sweeper.Stop()
		r.sweeper = nil
	}
	entries := make([]*entry, 0, len(r.consoles))
	for _, e := range r.consoles {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.generator.Stop()
		e.console.Close()
	}
}
