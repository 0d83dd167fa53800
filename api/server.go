package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/engine"
	"github.com/wricardo/mcp-training/dice421/game/service"
	"github.com/wricardo/mcp-training/dice421/game/session"
	"github.com/wricardo/mcp-training/dice421/transport/websocket"
)

const requestTimeout = 30 * time.Second

// Server represents the REST API server
type Server struct {
	service service.RoomService
	hub     *websocket.Hub
	router  *mux.Router
	handler http.Handler
}

// NewServer creates a new API server
func NewServer(roomService service.RoomService, hub *websocket.Hub) *Server {
	s := &Server{
		service: roomService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	s.handler = chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
	).Handler(s.router)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Timeout(requestTimeout))

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Rooms
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{code}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/rooms/{code}/log", s.handleGetLog).Methods("GET")
	api.HandleFunc("/rooms/{code}/actions", s.handleAction).Methods("POST")

	// Reference data
	api.HandleFunc("/combos", s.handleCombos).Methods("GET")
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleSaveConfig).Methods("POST")
	api.HandleFunc("/configs/reload", s.handleReloadConfigs).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
}

// Handle mounts an extra handler on the router, outside the /api prefix.
func (s *Server) Handle(path string, h http.Handler) {
	s.router.Handle(path, h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotEnoughPlayers):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUsernameRequired),
		errors.Is(err, service.ErrInvalidSettings),
		errors.Is(err, service.ErrUnknownMessage),
		errors.Is(err, session.ErrInvalidCode),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, engine.ErrInvalidDie),
		errors.Is(err, engine.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRoomExists),
		errors.Is(err, service.ErrRoomFull),
		errors.Is(err, service.ErrAlreadyStarted),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, engine.ErrDuplicatePlayer),
		service.IsSilent(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"rooms":  s.service.RoomCount(r.Context()),
	})
}

// Room Handlers

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req service.Inbound
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.CreateRoom(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(rooms)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "activity" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of rooms to return

	if sortBy != "created" {
		sortBy = "activity"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = rooms[i].CreatedAt, rooms[j].CreatedAt
		} else {
			ti, tj = rooms[i].LastActivity, rooms[j].LastActivity
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(rooms)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(rooms) {
			limit = l
		}
	}
	rooms = rooms[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"total": total,
		"rooms": rooms,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	opts := service.LogOptions{
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

	entries, err := s.service.GetLog(r.Context(), mux.Vars(r)["code"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// handleAction runs one room message through the same path as websocket frames.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var msg service.Inbound
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	msg.Type = strings.ToUpper(strings.TrimSpace(msg.Type))
	msg.Code = mux.Vars(r)["code"]

	if msg.Type == service.MsgCreate {
		respondError(w, http.StatusBadRequest, "use POST /api/rooms to create a room")
		return
	}

	result, err := s.service.Dispatch(r.Context(), nil, msg)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if result == nil {
		respondJSON(w, http.StatusOK, map[string]string{
			"message": msg.Username + " left room " + msg.Code,
		})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Reference Handlers

func (s *Server) handleCombos(w http.ResponseWriter, r *http.Request) {
	combos := s.service.Combos(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(combos),
		"combos": combos,
	})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

// handleSaveConfig stores a preset. The file id comes from ?id=, else the preset name.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var preset config.Preset
	if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if preset.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = preset.Name
	}
	if err := s.service.SaveConfig(r.Context(), id, &preset); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": strings.TrimSuffix(id, ".json"),
	})
}

func (s *Server) handleReloadConfigs(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ReloadConfigs(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Configurations reloaded"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	preset, err := s.service.LoadConfig(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preset)
}
