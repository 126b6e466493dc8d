package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/voltplay/driveworld/game/engine"
	"github.com/voltplay/driveworld/game/service"
	"github.com/voltplay/driveworld/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.WorldService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(worldService service.WorldService, hub *websocket.Hub) *Server {
	s := &Server{
		service: worldService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Identity
	api.HandleFunc("/identity", s.handleEnsureIdentity).Methods("POST")

	// World reads
	api.HandleFunc("/world", s.handleWorld).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")
	api.HandleFunc("/balances", s.handleBalances).Methods("GET")
	api.HandleFunc("/balances/{pubkey}", s.handleBalance).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	// Plot mutations
	api.HandleFunc("/plots/{id}/mint", s.handleMint).Methods("POST")
	api.HandleFunc("/plots/{id}/charger", s.handleDeployCharger).Methods("POST")
	api.HandleFunc("/plots/{id}/session", s.handleStartSession).Methods("POST")
	api.HandleFunc("/plots/{id}/session", s.handleStopSession).Methods("DELETE")

	// External charge points
	api.HandleFunc("/links", s.handleLink).Methods("POST")
	api.HandleFunc("/catalog", s.handleCatalog).Methods("GET")
	api.HandleFunc("/catalog/stats", s.handleCatalogStats).Methods("GET")
	api.HandleFunc("/catalog/{code}/spawn", s.handleSpawn).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Static files (if needed)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain failures onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, engine.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrPlotNotFound),
		errors.Is(err, service.ErrChargePointNotFound),
		errors.Is(err, service.ErrNoCatalog):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyOwned),
		errors.Is(err, engine.ErrNotOwner),
		errors.Is(err, engine.ErrAlreadyDeployed),
		errors.Is(err, engine.ErrSessionActive),
		errors.Is(err, engine.ErrNoCharger),
		errors.Is(err, engine.ErrNoFreePlot):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusForError(err), err.Error())
}

// Identity Handlers

func (s *Server) handleEnsureIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pubkey string `json:"pubkey"`
		Label  string `json:"label,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.service.EnsureIdentity(r.Context(), req.Pubkey, req.Label)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// World Read Handlers

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.WorldInfo(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	events, err := s.service.RecentEvents(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.service.Balances(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balances)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	pubkey := mux.Vars(r)["pubkey"]

	balance, err := s.service.BalanceOf(r.Context(), pubkey)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balance)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	standings, err := s.service.Leaderboard(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(standings),
		"standings": standings,
	})
}

// Plot Mutation Handlers

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	plotID := mux.Vars(r)["id"]

	plot, err := s.service.MintLand(r.Context(), plotID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, plot)
}

func (s *Server) handleDeployCharger(w http.ResponseWriter, r *http.Request) {
	plotID := mux.Vars(r)["id"]

	var req struct {
		RatePerSec int `json:"rate_per_sec,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	plot, err := s.service.DeployCharger(r.Context(), plotID, req.RatePerSec)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, plot)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	plotID := mux.Vars(r)["id"]

	if err := s.service.StartSession(r.Context(), plotID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"plot_id": plotID,
		"status":  "charging",
	})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	plotID := mux.Vars(r)["id"]

	if err := s.service.StopSession(r.Context(), plotID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"plot_id": plotID,
		"status":  "stopped",
	})
}

// External Charge Point Handlers

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code    string  `json:"code"`
		PlotID  string  `json:"plot_id"`
		PowerKW float64 `json:"power_kw,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" || req.PlotID == "" {
		respondError(w, http.StatusBadRequest, "code and plot_id are required")
		return
	}

	if err := s.service.LinkChargePoint(r.Context(), req.Code, req.PlotID, req.PowerKW); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"code":    req.Code,
		"plot_id": req.PlotID,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	points, err := s.service.Catalog(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(points),
		"charge_points": points,
	})
}

func (s *Server) handleCatalogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.CatalogStats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	result, err := s.service.SpawnFromChargePoint(r.Context(), code)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "streaming not enabled", http.StatusNotImplemented)
		return
	}
	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
