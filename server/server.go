// Package server exposes the LinkDrip application over a JSON HTTP API.
// Routes are grouped into modules, each registering its handlers on the
// shared mux. All /api routes except auth and webhooks require a bearer
// token issued at login.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linkdripai/linkdrip"
)

// Server wires the application into an http.Handler.
type Server struct {
	app           *linkdrip.App
	jwtSecret     []byte
	webhookSecret string
	logger        *slog.Logger
	mux           *http.ServeMux
}

// New creates a Server for the given application and applies any provided
// options. A JWT secret is required; everything else has a default.
func New(app *linkdrip.App, options ...func(*Server) error) (*Server, error) {
	server := &Server{
		app:    app,
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	for _, option := range options {
		if err := option(server); err != nil {
			return nil, err
		}
	}
	if len(server.jwtSecret) == 0 {
		return nil, errors.New("server requires a jwt secret")
	}
	server.routes()
	return server, nil
}

// WithJWTSecret sets the HMAC secret used to sign session tokens.
func WithJWTSecret(secret []byte) func(*Server) error {
	return func(server *Server) error {
		if len(secret) == 0 {
			return errors.New("jwt secret cannot be empty")
		}
		server.jwtSecret = secret
		return nil
	}
}

// WithWebhookSecret sets the LemonSqueezy webhook signing secret.
func WithWebhookSecret(secret string) func(*Server) error {
	return func(server *Server) error {
		server.webhookSecret = secret
		return nil
	}
}

// WithLogger sets the request logger. A nil logger falls back to the
// default slog logger.
func WithLogger(logger *slog.Logger) func(*Server) error {
	return func(server *Server) error {
		if logger == nil {
			server.logger = slog.Default()
			return nil
		}
		server.logger = logger
		return nil
	}
}

// routes registers every route module on the mux.
func (server *Server) routes() {
	server.authRoutes()
	server.websiteRoutes()
	server.prospectRoutes()
	server.dripRoutes()
	server.emailRoutes()
	server.campaignRoutes()
	server.billingRoutes()
	server.metricsRoutes()
	server.statsRoutes()
}

// Handler returns the root handler for the API.
func (server *Server) Handler() http.Handler {
	return server.mux
}
