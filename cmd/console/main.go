package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/api"
	"github.com/dennisdiepolder/monti/console/internal/auth"
	"github.com/dennisdiepolder/monti/console/internal/config"
	"github.com/dennisdiepolder/monti/console/internal/console"
	"github.com/dennisdiepolder/monti/console/internal/control"
	"github.com/dennisdiepolder/monti/console/internal/events"
	"github.com/dennisdiepolder/monti/console/internal/inbound"
	"github.com/dennisdiepolder/monti/console/internal/metrics"
	"github.com/dennisdiepolder/monti/console/internal/storage"
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/dennisdiepolder/monti/console/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the wired services of the console server
type App struct {
	Router   http.Handler
	Control  *control.API
	Registry *console.Registry

	bus *events.Bus
	sub *events.Subscription
}

// Close stops call generation, every console and the event fan-out
func (a *App) Close() {
	a.Registry.Close()
	a.bus.Unsubscribe(a.sub)
}

func main() {
	// CLI flags override the environment
	var (
		port         = flag.String("port", "", "Agent API port (overrides PORT)")
		controlPort  = flag.String("control-port", "", "Control API port (overrides CONTROL_PORT)")
		logLevel     = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		autoGenerate = flag.Bool("auto-generate", true, "Generate simulated inbound calls")
		skipAuth     = flag.Bool("skip-auth", false, "Bypass token validation and act as the default agent")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "control-port":
			cfg.ControlPort = *controlPort
		case "log-level":
			cfg.LogLevel = *logLevel
		case "auto-generate":
			cfg.AutoGenerate = *autoGenerate
		case "skip-auth":
			cfg.SkipAuth = *skipAuth
		}
	})

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Logger.With().Str("service", "console").Logger()

	logger.Info().
		Str("port", cfg.Port).
		Str("control_port", cfg.ControlPort).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("auto_generate", cfg.AutoGenerate).
		Bool("skip_auth", cfg.SkipAuth).
		Msg("starting agent console server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.Dynamo, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise call record store")
	}

	app := NewApp(cfg, store, prometheus.NewRegistry(), logger)

	go func() {
		if err := app.Control.Start(ctx, ":"+cfg.ControlPort); err != nil {
			logger.Error().Err(err).Msg("control API failed")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	app.Close()

	logger.Info().Msg("server stopped")
}

// NewApp wires the registry, event fan-out, metrics and both HTTP surfaces
func NewApp(cfg *config.Config, store storage.Store, reg *prometheus.Registry, logger zerolog.Logger) *App {
	recorder := metrics.NewRecorder(reg)
	bus := events.NewBus(logger)

	registry := console.NewRegistry(console.RegistryOptions{
		Notifier:    events.Multi{bus, recorder},
		RingTimeout: cfg.RingTimeout,
		Generator: inbound.Config{
			Interval:    cfg.PollInterval,
			Probability: cfg.CallProbability,
		},
		AutoGenerate: cfg.AutoGenerate,
		Recorder:     store,
		Logger:       logger,
		IdleTimeout:  cfg.ConsoleIdleTimeout,
	})
	reg.MustRegister(
		metrics.NewStatusCollector(registry),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := websocket.NewHub(logger)
	hub.OnClientCount(recorder.SetWebSocketClients)
	sub := bus.Subscribe("", 1024)
	go hub.Run(sub.Events())

	consoleHandler := api.NewConsoleHandler(registry, store, nil, logger)
	authn := auth.NewAuthenticator(auth.Options{
		SkipAuth:        cfg.SkipAuth,
		VerifySignature: cfg.VerifySignature,
		JWTSecret:       cfg.JWTSecret,
		OIDCIssuer:      cfg.OIDCIssuer,
		DevAgent:        types.Agent{ID: cfg.DefaultAgentID, DisplayName: cfg.DefaultAgentName},
		Logger:          logger,
	})

	router := api.NewRouter(api.RouterOptions{
		Console:        consoleHandler,
		Auth:           authn.Middleware,
		WebSocket:      websocket.NewHandler(hub, cfg, consoleHandler.Snapshot, logger),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	return &App{
		Router:   router,
		Control:  control.NewAPI(registry, logger),
		Registry: registry,
		bus:      bus,
		sub:      sub,
	}
}
