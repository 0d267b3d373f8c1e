package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rileyL6122428/FriEnds-backend/internal/api/handler"
	"github.com/rileyL6122428/FriEnds-backend/internal/api/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Rooms       handler.RoomReader
	WebSocket   http.Handler
	Connections handler.ConnectionCounter
}

// NewRouter creates the router for /ws and the read-only /api/v1 routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Rooms)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	if cfg.WebSocket != nil {
		r.Handle("/ws", recoveryMiddleware(loggingMiddleware(cfg.WebSocket))).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", handler.Health(cfg.Connections)).Methods(http.MethodGet)

	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{name}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{name}/game", roomHandler.Game).Methods(http.MethodGet)

	return r
}
