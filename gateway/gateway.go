// Package gateway exposes conversations over HTTP: JSON endpoints for the
// turn cycle and server-sent events for live runtime progress.
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parleyagent/parley/capability"
)

// Server is the HTTP surface over a conversation manager.
type Server struct {
	manager  *Manager
	registry *capability.Registry
	logger   *slog.Logger
	apiKey   string
	version  string
}

// Options configures a Server.
type Options struct {
	Manager  *Manager
	Registry *capability.Registry
	Logger   *slog.Logger
	APIKey   string
	Version  string
}

// NewServer creates the gateway server. A nil logger discards request logs.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		manager:  opts.Manager,
		registry: opts.Registry,
		logger:   logger,
		apiKey:   opts.APIKey,
		version:  version,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/version", s.handleVersion)

	r.Group(func(api chi.Router) {
		api.Use(apiKeyAuth(s.apiKey))

		api.Get("/models", s.listModels)
		api.Get("/capabilities", s.listCapabilities)
		api.Post("/capabilities/invoke", s.invokeCapability)

		api.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.listConversations)
			r.Post("/", s.createConversation)

			r.Route("/{conversation_id}", func(r chi.Router) {
				r.Get("/", s.getConversation)
				r.Delete("/", s.deleteConversation)
				r.Get("/messages", s.listMessages)
				r.Post("/messages", s.submitMessage)
				r.Post("/execute", s.executeCalls)
				r.Post("/cancel", s.cancelTurn)
				r.Post("/clear", s.clearConversation)
				r.Post("/tasks", s.submitTask)
				r.Get("/events", s.streamEvents)
			})
		})
	})

	return r
}
