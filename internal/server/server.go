package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/AstroPony/KlusQuest/internal/handler"
	"github.com/AstroPony/KlusQuest/internal/middleware"
	"github.com/AstroPony/KlusQuest/internal/store"
	ws "github.com/AstroPony/KlusQuest/internal/websocket"
)

// Per-route fixed-window limits, mirroring the reference deployment.
const (
	completionLimit = 10
	winLimit        = 30
	scoreLimit      = 60
	luxuryLimit     = 20
	throttleWindow  = time.Minute
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	completionH *handler.CompletionHandler
	gameH       *handler.GameHandler
	luxuryH     *handler.LuxuryHandler
	kidH        *handler.KidHandler
	throttler   middleware.Throttler
	validator   middleware.TokenValidator
	logger      *slog.Logger
}

// Config carries the deployment choices the engine refuses to default
// silently: the credit policy and the identity validator.
type Config struct {
	Policy    store.CreditPolicy
	Validator middleware.TokenValidator
	Throttler middleware.Throttler
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	kidStore := store.NewKidStore(db)
	householdStore := store.NewHouseholdStore(db)
	completionStore := store.NewCompletionStore(db, cfg.Policy)
	gameStore := store.NewGameStore(db)
	luxuryStore := store.NewLuxuryStore(db)

	throttler := cfg.Throttler
	if throttler == nil {
		throttler = middleware.NewMemoryThrottler()
	}

	return &Server{
		db:          db,
		hub:         hub,
		completionH: handler.NewCompletionHandler(completionStore, hub, logger.With("component", "completion")),
		gameH:       handler.NewGameHandler(gameStore, kidStore, luxuryStore, hub, logger.With("component", "game")),
		luxuryH:     handler.NewLuxuryHandler(luxuryStore, kidStore, hub, logger.With("component", "luxury")),
		kidH:        handler.NewKidHandler(kidStore, householdStore, logger.With("component", "kid")),
		throttler:   throttler,
		validator:   cfg.Validator,
		logger:      logger,
	}
}

// Hub returns the broadcast hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Throttler returns the throttler for cleanup tasks.
func (s *Server) Throttler() middleware.Throttler {
	return s.throttler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.validator)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// throttled wraps a mutating handler with a fixed-window limit keyed by
// route, method, and caller address.
func (s *Server) throttled(route string, limit int, h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return route + ":" + r.Method + ":" + middleware.RealIP(r)
	}
	wrapped := middleware.Throttle(s.throttler, keyFunc, limit, throttleWindow)(h)
	return wrapped.ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Completion workflow
	mux.HandleFunc("POST /api/chores/{id}/complete", s.throttled("completions", completionLimit, s.completionH.Submit))
	mux.HandleFunc("POST /api/completions/{id}/decide", s.throttled("completions", completionLimit, s.completionH.Decide))
	mux.HandleFunc("GET /api/completions", s.completionH.List)

	// Score tracker and luxury unlocks
	mux.HandleFunc("POST /api/games/{id}/score", s.throttled("games:score", scoreLimit, s.gameH.RecordScore))
	mux.HandleFunc("GET /api/games/{id}/score", s.gameH.GetScore)
	mux.HandleFunc("POST /api/games/{id}/win", s.throttled("games:win", winLimit, s.gameH.Win))

	// Luxury definitions
	mux.HandleFunc("POST /api/kids/{id}/luxuries", s.throttled("luxuries", luxuryLimit, s.luxuryH.Define))
	mux.HandleFunc("GET /api/kids/{id}/luxuries", s.luxuryH.List)

	// Ledger reads
	mux.HandleFunc("GET /api/kids/{id}/progress", s.kidH.Progress)
	mux.HandleFunc("GET /api/household/stats", s.kidH.Stats)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub))
}
