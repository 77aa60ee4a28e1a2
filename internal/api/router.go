package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/duelgame/internal/api/handler"
	"github.com/mcoot/duelgame/internal/api/middleware"
	"github.com/mcoot/duelgame/internal/factory"
	"github.com/mcoot/duelgame/internal/services/gameplay"
	"github.com/mcoot/duelgame/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger *slog.Logger
	App    *factory.App
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	app := cfg.App

	controller := gameplay.NewController(app.Sessions, app.Moves, app.Invites, app.Broadcaster, cfg.Logger)
	wsHandler := ws.NewHandler(controller, app.Streams, cfg.Logger)

	// Create handlers
	playerHandler := handler.NewPlayerHandler(app.AuthService, app.Storage, app.Presence)
	presenceHandler := handler.NewPresenceHandler(app.Presence)
	inviteHandler := handler.NewInviteHandler(controller)
	sessionHandler := handler.NewSessionHandler(app.Sessions, controller)
	streamHandler := handler.NewStreamHandler(app.Streams, wsHandler, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(app.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for logging in)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Everything else requires a token
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/players/logout", playerHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/players/me", playerHandler.GetMe).Methods(http.MethodGet)

	protected.HandleFunc("/presence", presenceHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/presence", presenceHandler.Set).Methods(http.MethodPut)

	protected.HandleFunc("/invites", inviteHandler.Propose).Methods(http.MethodPost)
	protected.HandleFunc("/invites/respond", inviteHandler.Respond).Methods(http.MethodPost)

	// "active" is registered before {id} so it is not parsed as an id
	protected.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/active", sessionHandler.Active).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{id:[0-9]+}", sessionHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{id:[0-9]+}/moves", sessionHandler.ListMoves).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{id:[0-9]+}/moves", sessionHandler.SubmitMove).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id:[0-9]+}/finish", sessionHandler.Finish).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id:[0-9]+}/pause", sessionHandler.Pause).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id:[0-9]+}/resume", sessionHandler.Resume).Methods(http.MethodPost)

	protected.HandleFunc("/events", streamHandler.Events).Methods(http.MethodGet)
	protected.HandleFunc("/ws", streamHandler.WebSocket).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
