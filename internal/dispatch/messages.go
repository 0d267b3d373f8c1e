package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
)

// Inbound message types
const (
	TypeAuthenticate = "authenticate"
	TypeCreateUser   = "create_user"
	TypeRoomInfo     = "room_info"
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeGameInfo     = "game_info"
)

// Outbound message types
const (
	ReplyClientCreated   = "client_created"
	ReplyAuthenticated   = "authenticated"
	ReplyRoomInfo        = "room_info"
	ReplyJoinedRoom      = "joined_room"
	ReplyLeftRoom        = "left_room"
	ReplyGameInfo        = "game_info"
	ErrorAuthenticate    = "authenticate error"
	ErrorRoom            = "room error"
	ErrorLeaveRoom       = "leave room error"
	ErrorGame            = "game error"
	ErrorMessage         = "message error"
	clientCreatedMessage = "Client created!"
)

// Message is the body of an inbound frame
type Message struct {
	Type       string `json:"type"`
	Username   string `json:"username,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	RoomName   string `json:"room_name,omitempty"`
}

type envelope struct {
	Message *Message `json:"message"`
}

// ParseMessage decodes a frame of the form {"message": {"type": ...}}
func ParseMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, model.ErrMalformedMessage
	}
	if env.Message == nil || env.Message.Type == "" {
		return Message{}, model.ErrMalformedMessage
	}
	return *env.Message, nil
}

// ClientCreated greets a new connection with its client name
type ClientCreated struct {
	Type       string `json:"type"`
	ClientName string `json:"client_name"`
	Message    string `json:"message"`
}

// Authenticated confirms an identity is bound to the connection
type Authenticated struct {
	Type       string `json:"type"`
	Username   string `json:"username"`
	ClientName string `json:"client_name"`
}

// ErrorReply reports a failed request
type ErrorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// RoomView is a room as clients see it
type RoomView struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Occupants []string `json:"occupants"`
}

// RoomInfo lists every room
type RoomInfo struct {
	Type  string     `json:"type"`
	Rooms []RoomView `json:"rooms"`
}

// RoomChange confirms a join or leave
type RoomChange struct {
	Type     string `json:"type"`
	RoomName string `json:"room_name"`
}

// GameInfo carries a room's game
type GameInfo struct {
	Type string    `json:"type"`
	Game game.Info `json:"game"`
}

// NewRoomInfo builds a room_info message from room summaries
func NewRoomInfo(summaries []room.Summary) RoomInfo {
	views := make([]RoomView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, RoomView{Name: s.Name, Capacity: s.Capacity, Occupants: s.Occupants})
	}
	return RoomInfo{Type: ReplyRoomInfo, Rooms: views}
}

// ErrorText returns the client-facing text for an error
func ErrorText(err error) string {
	var fe *model.FieldError
	switch {
	case errors.As(err, &fe):
		return "Missing field: " + fe.Field
	case errors.Is(err, model.ErrMalformedMessage):
		return "Malformed message"
	case errors.Is(err, model.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, model.ErrAlreadyInRoom):
		return "User is already in a room"
	case errors.Is(err, model.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, model.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, model.ErrUserNotInRoom):
		return "User is not in room"
	case errors.Is(err, model.ErrBoardFull):
		return "Board is full"
	case errors.Is(err, model.ErrGameNotFound):
		return "Game not found"
	default:
		return "Internal error"
	}
}
