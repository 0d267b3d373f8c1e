package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rileyL6122428/FriEnds-backend/internal/api/response"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
)

// RoomReader is the read side of the room directory
type RoomReader interface {
	Summaries(ctx context.Context) ([]room.Summary, error)
	Summary(ctx context.Context, name string) (room.Summary, error)
	RoomGameInfo(ctx context.Context, name string) (game.Info, error)
}

// RoomHandler serves read-only room endpoints
type RoomHandler struct {
	rooms RoomReader
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomReader) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.rooms.Summaries(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomListFromSummaries(summaries))
}

// Get handles GET /api/v1/rooms/{name}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	summary, err := h.rooms.Summary(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromSummary(summary))
}

// Game handles GET /api/v1/rooms/{name}/game
func (h *RoomHandler) Game(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	info, err := h.rooms.RoomGameInfo(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Game{Room: name, Game: info})
}
