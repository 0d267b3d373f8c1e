package response

import (
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
)

// Health is the health check body
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Room represents a room in API responses
type Room struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Occupants []string `json:"occupants"`
	State     string   `json:"state,omitempty"`
}

// RoomFromSummary converts a room.Summary
func RoomFromSummary(s room.Summary) Room {
	occupants := s.Occupants
	if occupants == nil {
		occupants = []string{}
	}
	return Room{
		Name:      s.Name,
		Capacity:  s.Capacity,
		Occupants: occupants,
		State:     string(s.State),
	}
}

// RoomList is the body of GET /api/v1/rooms
type RoomList struct {
	Rooms []Room `json:"rooms"`
}

// RoomListFromSummaries converts a slice of summaries
func RoomListFromSummaries(summaries []room.Summary) RoomList {
	rooms := make([]Room, len(summaries))
	for i, s := range summaries {
		rooms[i] = RoomFromSummary(s)
	}
	return RoomList{Rooms: rooms}
}

// Game wraps a game projection
type Game struct {
	Room string    `json:"room"`
	Game game.Info `json:"game"`
}
