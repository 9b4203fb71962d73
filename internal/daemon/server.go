// Package daemon serves the roster over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/roster/internal/auth"
	"github.com/felixgeelhaar/roster/internal/config"
	"github.com/felixgeelhaar/roster/internal/domain"
	"github.com/felixgeelhaar/roster/internal/roster"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session"

// EventStats reports delivery counters of the event publisher.
type EventStats interface {
	Stats() (published, failed, dropped int64)
}

// Server represents the roster daemon HTTP server
type Server struct {
	cfg    *config.LocalConfig
	server *http.Server
	router *http.ServeMux

	store        *roster.Store
	sessions     *auth.Sessions
	events       EventStats
	loginLimiter ratelimit.RateLimiter

	location string
	version  string
	started  time.Time
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config   *config.LocalConfig
	Store    *roster.Store
	Sessions *auth.Sessions
	Events   EventStats // optional
	Location string     // where the roster is persisted, reported by /v1/status
	Version  string
}

// NewServer creates a new daemon server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil || cfg.Store == nil || cfg.Sessions == nil {
		return nil, errors.New("server requires config, store and sessions")
	}

	s := &Server{
		cfg:      cfg.Config,
		router:   http.NewServeMux(),
		store:    cfg.Store,
		sessions: cfg.Sessions,
		events:   cfg.Events,
		location: cfg.Location,
		version:  cfg.Version,
		started:  time.Now(),
	}
	if s.version == "" {
		s.version = "dev"
	}

	if rate := cfg.Config.Daemon.LoginRatePerMinute; rate > 0 {
		s.loginLimiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate,
			Interval: time.Minute,
		})
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Config.Daemon.Addr(),
		Handler:      correlationIDMiddleware(recoveryMiddleware(loggingMiddleware(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Auth
	s.router.HandleFunc("POST /v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /v1/auth/logout", s.requireAuth(s.handleLogout))
	s.router.HandleFunc("GET /v1/auth/me", s.requireAuth(s.handleMe))

	// Students
	s.router.HandleFunc("GET /v1/students", s.requireAuth(s.handleListStudents))
	s.router.HandleFunc("POST /v1/students", s.requireAuth(s.handleCreateStudent))
	s.router.HandleFunc("GET /v1/students/{id}", s.requireAuth(s.handleGetStudent))
	s.router.HandleFunc("PUT /v1/students/{id}", s.requireAuth(s.handleUpdateStudent))
	s.router.HandleFunc("DELETE /v1/students/{id}", s.requireAuth(s.handleDeleteStudent))
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting roster daemon",
		"addr", s.server.Addr,
		"backend", s.cfg.Storage.Backend,
		"students", s.store.Len(),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	if s.loginLimiter != nil {
		if err := s.loginLimiter.Close(); err != nil {
			slog.Warn("failed to close login limiter", "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth rejects requests without a live session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		sess, err := s.sessions.Lookup(token)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, authed{token: token, session: sess})
		next(w, r.WithContext(ctx))
	}
}

type authed struct {
	token   string
	session *auth.Session
}

func sessionFrom(ctx context.Context) (authed, bool) {
	a, ok := ctx.Value(sessionKey).(authed)
	return a, ok
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "running",
		"version":  s.version,
		"backend":  s.cfg.Storage.Backend,
		"location": s.location,
		"students": s.store.Len(),
		"sessions": s.sessions.Len(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	}
	if s.events != nil {
		published, failed, dropped := s.events.Stats()
		resp["events"] = map[string]int64{
			"published": published,
			"failed":    failed,
			"dropped":   dropped,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.loginLimiter != nil && !s.loginLimiter.Allow(r.Context(), clientIP(r)) {
		w.Header().Set("Retry-After", "60")
		writeError(w, r, http.StatusTooManyRequests,
			NewAPIError(CodeRateLimited, "too many login attempts"))
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body", err)
		return
	}

	token, sess, err := s.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("user logged in", "username", sess.Username(), "correlation_id", GetCorrelationID(r.Context()))
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Username: sess.Username()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	a, _ := sessionFrom(r.Context())
	username := a.session.Username()

	if err := s.sessions.Logout(a.token); err != nil {
		writeStoreError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	slog.Info("user logged out", "username", username)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a, _ := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"username":      a.session.Username(),
		"authenticated": a.session.IsAuthenticated(),
	})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students := s.store.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"students": students,
		"count":    len(students),
	})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeDraft(w, r)
	if !ok {
		return
	}

	student, err := s.store.Add(r.Context(), draft)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/students/%s", student.ID))
	writeJSON(w, http.StatusCreated, student)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeDraft(w, r)
	if !ok {
		return
	}

	student, err := s.store.Update(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (domain.Draft, bool) {
	var draft domain.Draft
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		badRequest(w, r, "invalid request body", err)
		return domain.Draft{}, false
	}
	return draft, true
}
