package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/console/pkg/middleware"
)

// RouterOptions wires the agent-facing HTTP surface
type RouterOptions struct {
	Console        *ConsoleHandler
	Auth           func(http.Handler) http.Handler
	WebSocket      http.Handler
	Metrics        http.Handler
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter builds the chi router for the agent API
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}

		if opts.WebSocket != nil {
			r.Method(http.MethodGet, "/ws", opts.WebSocket)
		}

		h := opts.Console
		r.Route("/api", func(r chi.Router) {
			r.Get("/state", h.GetState)
			r.Post("/status", h.SetStatus)

			r.Route("/calls", func(r chi.Router) {
				r.Post("/answer", h.Answer)
				r.Post("/reject", h.Reject)
				r.Post("/dial", h.Dial)
				r.Post("/hangup", h.HangUp)
				r.Post("/hold", h.Hold)
				r.Post("/mute", h.Mute)
				r.Post("/park", h.Park)
				r.Post("/transfer", h.Transfer)
				r.Get("/history", h.GetHistory)
			})

			r.Get("/dispositions", h.GetDispositions)
			r.Post("/disposition", h.SelectDisposition)
			r.Post("/wrapup/complete", h.CompleteWrapUp)
			r.Get("/transfer-destinations", h.GetDestinations)
		})
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"agent-console"}`)
}
