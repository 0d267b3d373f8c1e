package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/handler"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/middleware"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/sse"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/templates"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger      *slog.Logger
	Rooms       handler.RoomReader
	Connections handler.ConnectionCounter // optional
	Fanout      *broadcast.Fanout         // optional, enables live feeds
}

// NewRouter creates the lobby board router
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// Apply global middleware to all routes
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	pages := templates.MustParse()
	var feed *sse.Feed
	if cfg.Fanout != nil {
		feed = sse.NewFeed(cfg.Fanout, sse.NewRenderer(cfg.Rooms, pages), cfg.Logger)
	}
	lobbyHandler := handler.NewLobbyHandler(cfg.Rooms, cfg.Connections, pages, feed, cfg.Logger)

	r.HandleFunc("/", lobbyHandler.Index).Methods(http.MethodGet)
	r.HandleFunc("/events", lobbyHandler.Events).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{name}", lobbyHandler.Room).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{name}/events", lobbyHandler.RoomEvents).Methods(http.MethodGet)

	return r
}
