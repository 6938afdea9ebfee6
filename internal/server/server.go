package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/drewdunne/gitdash/internal/config"
	"github.com/drewdunne/gitdash/internal/dashboard"
	"github.com/drewdunne/gitdash/internal/metrics"
	"github.com/drewdunne/gitdash/internal/provider"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies on the API endpoints.
const maxBodyBytes = 1 << 16

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// ErrorResponse is returned for malformed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Token string `json:"token"`
}

// PullRequestsRequest is the body of POST /api/pulls. Dates use YYYY-MM-DD.
type PullRequestsRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Server is the local HTTP API over the dashboard state.
type Server struct {
	cfg          *config.Config
	store        *dashboard.Store
	log          *zap.Logger
	mux          *http.ServeMux
	httpServer   *httpServer
	httpServerMu sync.RWMutex  // protects httpServer pointer
	ready        chan struct{} // closed when server is ready to accept connections
}

// New creates a new Server serving store.
func New(cfg *config.Config, store *dashboard.Store, log *zap.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		log:   log.Named("server"),
		mux:   http.NewServeMux(),
		ready: make(chan struct{}),
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.handleLogout)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/repositories/refresh", s.handleRefreshRepositories)
	s.mux.HandleFunc("POST /api/pulls", s.handlePullRequests)
}

// handleHealth responds with server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.store.Snapshot()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: map[string]interface{}{
			"provider":      s.cfg.Provider,
			"authenticated": st.Auth.IsAuthenticated,
		},
	})
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Get())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "token is required"})
		return
	}

	s.store.Login(r.Context(), req.Token)
	s.writeState(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.Logout(r.Context())
	s.writeState(w)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.store.Validate(r.Context())
	s.writeState(w)
}

func (s *Server) handleRefreshRepositories(w http.ResponseWriter, r *http.Request) {
	s.store.FetchRepositories(r.Context())
	s.writeState(w)
}

func (s *Server) handlePullRequests(w http.ResponseWriter, r *http.Request) {
	var req PullRequestsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Owner == "" || req.Repo == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "owner and repo are required"})
		return
	}
	filter, err := provider.ParseTimeFilter(req.Start, req.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	s.store.FetchPullRequests(r.Context(), req.Owner, req.Repo, filter)
	s.writeState(w)
}

// decode reads a JSON body into v, answering 400 itself when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.log.Debug("rejecting request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeState responds with the current state; the token never leaves the process.
func (s *Server) writeState(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Redacted())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
