// Package api implements the HTTP surface: auth, task CRUD, and the
// conversational chat endpoint that drives the turn executor.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrAhmed42/todo-evolution/internal/agent"
	"github.com/MrAhmed42/todo-evolution/internal/auth"
	"github.com/MrAhmed42/todo-evolution/internal/buildinfo"
	"github.com/MrAhmed42/todo-evolution/internal/channel"
	"github.com/MrAhmed42/todo-evolution/internal/llm"
	"github.com/MrAhmed42/todo-evolution/internal/store"
)

// TurnRunner executes one agent turn. The production implementation is
// *agent.Executor.
type TurnRunner interface {
	RunTurn(ctx context.Context, userID string, history []llm.Message, userMessage string) (*agent.TurnResult, error)
}

// ChannelStatus reports the tool channel's connection state for the
// health endpoint.
type ChannelStatus interface {
	State() channel.State
}

// Server is the HTTP API server.
type Server struct {
	address  string
	port     int
	store    *store.Store
	verifier *auth.Verifier
	runner   TurnRunner
	channel  ChannelStatus
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates the API server. channel may be nil in tests that
// never hit the health endpoint.
func NewServer(address string, port int, st *store.Store, verifier *auth.Verifier, runner TurnRunner, ch ChannelStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:  address,
		port:     port,
		store:    st,
		verifier: verifier,
		runner:   runner,
		channel:  ch,
		logger:   logger,
	}
}

// Handler builds the routing table. Exposed separately from Start so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Auth endpoints
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignin)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignout)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	// Task endpoints
	mux.HandleFunc("GET /api/users/{user_id}/tasks", s.requireAuth(s.handleTaskList))
	mux.HandleFunc("POST /api/users/{user_id}/tasks", s.requireAuth(s.handleTaskCreate))
	mux.HandleFunc("GET /api/users/{user_id}/tasks/{id}", s.requireAuth(s.handleTaskGet))
	mux.HandleFunc("PUT /api/users/{user_id}/tasks/{id}", s.requireAuth(s.handleTaskUpdate))
	mux.HandleFunc("PATCH /api/users/{user_id}/tasks/{id}/complete", s.requireAuth(s.handleTaskToggle))
	mux.HandleFunc("DELETE /api/users/{user_id}/tasks/{id}", s.requireAuth(s.handleTaskDelete))

	// Chat endpoints
	mux.HandleFunc("POST /api/chat/{user_id}", s.requireAuth(s.handleChat))
	mux.HandleFunc("GET /api/users/{user_id}/conversations", s.requireAuth(s.handleConversationList))
	mux.HandleFunc("GET /api/users/{user_id}/conversations/{id}/messages", s.requireAuth(s.handleConversationMessages))

	// Health endpoints
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// authedHandler is a handler that runs with a verified identity.
type authedHandler func(w http.ResponseWriter, r *http.Request, identity auth.UserIdentity)

// requireAuth wraps a handler with bearer-token verification. Every
// rejection is the same 401 regardless of cause.
func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.detail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		identity, err := s.verifier.Verify(token)
		if err != nil {
			s.detail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r, identity)
	}
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}

// detail writes an error body in the {"detail": ...} shape the clients
// expect.
func (s *Server) detail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"detail": message})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"name":    "todod",
		"version": buildinfo.Version,
		"status":  "ok",
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, buildinfo.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "healthy"}
	if s.channel != nil {
		body["tool_channel"] = s.channel.State().String()
	}
	s.writeJSON(w, http.StatusOK, body)
}
