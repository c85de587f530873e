// Package server exposes the assignment engine over HTTP. The assign
// endpoint speaks the frozen wire contract; status and registry endpoints
// exist for operators.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"medkey/internal/api"
	"medkey/internal/logging"
	"medkey/internal/masterkey"
	"medkey/internal/registrystore"
)

// Engine runs one assignment. Satisfied by *masterkey.Assigner.
type Engine interface {
	Assign(ctx context.Context, record masterkey.Record, registry masterkey.Registry) (masterkey.Decision, error)
	Policy() masterkey.Policy
}

// RegistryBackend is the durable registry used when the caller does not
// supply a snapshot. A nil backend restricts the server to stateless calls.
type RegistryBackend interface {
	LoadRegistry(ctx context.Context) (masterkey.Registry, error)
	SaveDecision(ctx context.Context, recordName string, decision masterkey.Decision) error
	Groups(ctx context.Context) ([]registrystore.GroupSummary, error)
	CollectStats(ctx context.Context) (registrystore.Stats, error)
}

// Server hosts the assignment HTTP API.
type Server struct {
	bind   string
	logger *slog.Logger
	engine Engine
	store  RegistryBackend

	listener net.Listener
	server   *http.Server
}

// New constructs the server. The store may be nil.
func New(bind string, engine Engine, store RegistryBackend, logger *slog.Logger) (*Server, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("server bind address required")
	}
	if engine == nil {
		return nil, errors.New("assignment engine required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:   bind,
		logger: logger.With(logging.String("component", "server")),
		engine: engine,
		store:  store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/assign", srv.handleAssign)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/registry", srv.handleRegistry)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler exposes the routing for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving and shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound listener address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var event api.AssignEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// A caller-supplied snapshot (even an empty one) means stateless mode:
	// assign against it and persist nothing. Without a snapshot the durable
	// registry is loaded and the decision written back.
	stateless := event.Registry != nil
	if !stateless && s.store == nil {
		s.writeError(w, http.StatusBadRequest, "registros_mestres is required: no registry store configured")
		return
	}

	registry := masterkey.Registry(event.Registry)
	if !stateless {
		loaded, err := s.store.LoadRegistry(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		registry = loaded
	}

	decision, err := s.engine.Assign(r.Context(), event.NewRecord, registry)
	if err != nil {
		s.writeAssignError(w, err)
		return
	}

	if !stateless {
		if err := s.store.SaveDecision(r.Context(), strings.TrimSpace(event.NewRecord.Name), decision); err != nil {
			s.writeError(w, http.StatusInternalServerError, "persist decision: "+err.Error())
			return
		}
	}

	s.writeJSON(w, http.StatusOK, api.ResponseFromDecision(decision))
}

func (s *Server) writeAssignError(w http.ResponseWriter, err error) {
	var retrievalErr *masterkey.RetrievalError
	switch {
	case errors.Is(err, masterkey.ErrInvalidRecord):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, masterkey.ErrRecordConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &retrievalErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type statusResponse struct {
	Running           bool                 `json:"running"`
	DecisionThreshold float64              `json:"decision_threshold"`
	TopK              int                  `json:"top_k"`
	Stateful          bool                 `json:"stateful"`
	Stats             *registrystore.Stats `json:"stats,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	policy := s.engine.Policy()
	payload := statusResponse{
		Running:           true,
		DecisionThreshold: policy.DecisionThreshold,
		TopK:              policy.TopK,
		Stateful:          s.store != nil,
	}
	if s.store != nil {
		stats, err := s.store.CollectStats(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payload.Stats = &stats
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "no registry store configured")
		return
	}
	registry, err := s.store.LoadRegistry(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]masterkey.Registry{"registros_mestres": registry})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
