package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
	"github.com/wricardo/mcp-training/navalbattle/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub may be nil, in which case /ws
// answers 503.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Fleet placement
	api.HandleFunc("/sessions/{id}/fleet/randomize", s.handleRandomizeFleet).Methods("POST")
	api.HandleFunc("/sessions/{id}/fleet/move", s.handleMoveShip).Methods("POST")
	api.HandleFunc("/sessions/{id}/fleet/rotate", s.handleRotateShip).Methods("POST")

	// Battle
	api.HandleFunc("/sessions/{id}/start", s.handleStartBattle).Methods("POST")
	api.HandleFunc("/sessions/{id}/attack", s.handleAttack).Methods("POST")
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/opponent-fleet", s.handleGetOpponentFleet).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Router exposes the underlying router so callers can mount more routes.
func (s *Server) Router() *mux.Router {
	return s.router
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

// statusFor maps service and engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrConfigNotFound),
		errors.Is(err, engine.ErrShipNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrCorruptSession):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrFleetHidden):
		return http.StatusForbidden

	case errors.Is(err, engine.ErrWrongTurn),
		errors.Is(err, engine.ErrAlreadyAttacked),
		errors.Is(err, engine.ErrPlacementLocked),
		errors.Is(err, engine.ErrMatchOver),
		errors.Is(err, service.ErrBattleNotStarted),
		errors.Is(err, service.ErrBattleAlreadyStarted):
		return http.StatusConflict

	case errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrInvalidPlacement),
		errors.Is(err, service.ErrFleetIncomplete),
		errors.Is(err, service.ErrInvalidConfig):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status statusFor picks. Corrupt
// sessions also get a hint that DELETE removes them.
func (s *Server) respondServiceError(w http.ResponseWriter, sessionID string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	if status == http.StatusUnprocessableEntity {
		respondJSON(w, status, map[string]string{
			"error":        err.Error(),
			"discard_hint": fmt.Sprintf("DELETE /api/sessions/%s removes the damaged session", sessionID),
		})
		return
	}
	respondError(w, status, err.Error())
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
		Nickname   string `json:"nickname,omitempty"`
	}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	// Support both new and old parameter names, but prefer config_id
	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID, req.Nickname)
	if err != nil {
		s.respondServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, "", err)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return
	phase := query.Get("phase")    // optional phase filter

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	total := len(sessions)
	if phase != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if string(sess.Phase) == phase {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Fleet Handlers

func (s *Server) handleRandomizeFleet(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.RandomizeFleet(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMoveShip(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		ShipID int `json:"ship_id"`
		DRow   int `json:"d_row"`
		DCol   int `json:"d_col"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.MoveShip(r.Context(), sessionID, req.ShipID, req.DRow, req.DCol)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleRotateShip(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		ShipID int `json:"ship_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.RotateShip(r.Context(), sessionID, req.ShipID)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Battle Handlers

func (s *Server) handleStartBattle(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.StartBattle(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := decodeBody(r, &req); err != nil || req.Row == nil || req.Col == nil {
		respondError(w, http.StatusBadRequest, "Request body must carry row and col")
		return
	}

	result, err := s.service.Attack(r.Context(), sessionID, *req.Row, *req.Col)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	s.logger.Info("attack",
		zap.String("session_id", sessionID),
		zap.Int("row", result.Position.Row),
		zap.Int("col", result.Position.Col),
		zap.Stringer("outcome", result.Outcome),
		zap.Stringer("turn", result.Turn),
	)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetOpponentFleet(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	reveal, err := s.service.GetOpponentFleet(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, reveal)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetAttackHistory(r.Context(), sessionID, opts)
	if err != nil {
		s.respondServiceError(w, sessionID, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.respondServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		s.respondServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id"`
		engine.MatchConfig
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Name), " ", "_"))
	}
	if configID == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	config := req.MatchConfig
	if err := s.service.SaveConfig(r.Context(), configID, &config); err != nil {
		s.respondServiceError(w, "", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket updates are disabled", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	s.hub.ServeWS(w, r, sessionID, state)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
