package sse

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/dispatch"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
	"github.com/rileyL6122428/FriEnds-backend/internal/web/templates"
)

// Fragment event names
const (
	EventRoomList = "room-list"
	EventBoard    = "board"
)

// RoomSource is the read side of the room directory fragments are drawn from
type RoomSource interface {
	Summaries(ctx context.Context) ([]room.Summary, error)
	Summary(ctx context.Context, name string) (room.Summary, error)
	RoomGameInfo(ctx context.Context, name string) (game.Info, error)
}

// Renderer converts protocol messages to HTML fragments for spectators
type Renderer struct {
	rooms RoomSource
	pages *templates.Pages
}

// NewRenderer creates a new Renderer
func NewRenderer(rooms RoomSource, pages *templates.Pages) *Renderer {
	return &Renderer{rooms: rooms, pages: pages}
}

// RenderRoomList renders the room table as HTML
func (r *Renderer) RenderRoomList(ctx context.Context) (string, error) {
	summaries, err := r.rooms.Summaries(ctx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.pages.RoomList(templates.LobbyPage{Rooms: summaries}).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderBoard renders a room's game and board as HTML
func (r *Renderer) RenderBoard(ctx context.Context, name string) (string, error) {
	summary, err := r.rooms.Summary(ctx, name)
	if err != nil {
		return "", err
	}
	info, err := r.rooms.RoomGameInfo(ctx, name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.pages.Board(templates.NewRoomPage(summary, info)).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EventData represents SSE event data
type EventData struct {
	EventName string
	HTML      string
}

// RenderMessage converts a message published to aud into the fragments its
// spectators should swap in. Messages with no fragment return nothing.
func (r *Renderer) RenderMessage(ctx context.Context, aud broadcast.Audience, msg []byte) ([]EventData, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return nil, nil
	}

	switch head.Type {
	case dispatch.ReplyRoomInfo:
		html, err := r.RenderRoomList(ctx)
		if err != nil {
			return nil, err
		}
		return []EventData{{EventName: EventRoomList, HTML: html}}, nil

	case dispatch.ReplyGameInfo:
		name, ok := aud.RoomName()
		if !ok {
			return nil, nil
		}
		html, err := r.RenderBoard(ctx, name)
		if err != nil {
			return nil, err
		}
		return []EventData{{EventName: EventBoard, HTML: html}}, nil
	}
	return nil, nil
}
