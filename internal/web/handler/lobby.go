package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gorilla/mux"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/sse"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/templates"
)

// RoomReader is the read side of the room directory
type RoomReader interface {
	Summaries(ctx context.Context) ([]room.Summary, error)
	Summary(ctx context.Context, name string) (room.Summary, error)
	RoomGameInfo(ctx context.Context, name string) (game.Info, error)
}

// ConnectionCounter reports open client connections
type ConnectionCounter interface {
	ActiveConnections() int
}

// LobbyHandler serves the lobby board pages and their live feeds
type LobbyHandler struct {
	rooms       RoomReader
	connections ConnectionCounter
	pages       *templates.Pages
	feed        *sse.Feed
	logger      *slog.Logger
}

// NewLobbyHandler creates a new LobbyHandler. connections and feed may be nil.
func NewLobbyHandler(rooms RoomReader, connections ConnectionCounter, pages *templates.Pages, feed *sse.Feed, logger *slog.Logger) *LobbyHandler {
	return &LobbyHandler{
		rooms:       rooms,
		connections: connections,
		pages:       pages,
		feed:        feed,
		logger:      logger,
	}
}

// Index renders GET /
func (h *LobbyHandler) Index(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.rooms.Summaries(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := templates.LobbyPage{Title: "Rooms", Rooms: summaries}
	if h.connections != nil {
		data.Connections = h.connections.ActiveConnections()
	}
	h.render(w, r, http.StatusOK, h.pages.Lobby(data))
}

// Room renders GET /rooms/{name}
func (h *LobbyHandler) Room(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	summary, err := h.rooms.Summary(r.Context(), name)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	info, err := h.rooms.RoomGameInfo(r.Context(), name)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, h.pages.Room(templates.NewRoomPage(summary, info)))
}

// Events streams room_info updates for GET /events
func (h *LobbyHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		http.NotFound(w, r)
		return
	}
	h.feed.Serve(w, r, broadcast.Global)
}

// RoomEvents streams a room's game_info updates for GET /rooms/{name}/events
func (h *LobbyHandler) RoomEvents(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if h.feed == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := h.rooms.Summary(r.Context(), name); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.feed.Serve(w, r, broadcast.RoomAudience(name))
}

func (h *LobbyHandler) render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	templ.Handler(component, templ.WithStatus(status), templ.WithErrorHandler(h.renderFailed)).ServeHTTP(w, r)
}

func (h *LobbyHandler) renderFailed(r *http.Request, err error) http.Handler {
	h.logger.Error("failed to render page", slog.String("path", r.URL.Path), slog.Any("error", err))
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	})
}

func (h *LobbyHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var page templates.ErrorPage
	status := http.StatusNotFound
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		page = templates.ErrorPage{Title: "Room not found", Message: "There is no room by that name."}
	case errors.Is(err, model.ErrGameNotFound):
		page = templates.ErrorPage{Title: "Game not found", Message: "This room has no game."}
	default:
		h.logger.Error("lobby board request failed", slog.Any("error", err))
		status = http.StatusInternalServerError
		page = templates.ErrorPage{Title: "Something went wrong", Message: "Please try again later."}
	}
	h.render(w, r, status, h.pages.Error(page))
}
