package dispatch

import (
	"context"
	"log/slog"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
)

// Broadcaster turns room events into audience changes and pushes fresh
// room_info and game_info messages. It runs inside the room's critical
// section, so broadcasts for one room go out in mutation order.
type Broadcaster struct {
	directory *room.Directory
	fanout    *broadcast.Fanout
	logger    *slog.Logger
}

// NewBroadcaster creates a Broadcaster
func NewBroadcaster(directory *room.Directory, fanout *broadcast.Fanout, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		directory: directory,
		fanout:    fanout,
		logger:    logger.With(slog.String("component", "broadcaster")),
	}
}

// Emit handles one domain event
func (b *Broadcaster) Emit(ctx context.Context, event model.Event) {
	aud := broadcast.RoomAudience(event.RoomName)

	switch event.Type {
	case model.EventOccupantJoined:
		if event.ConnectionID != "" {
			b.fanout.Subscribe(aud, event.ConnectionID)
		}
	case model.EventOccupantLeft:
		if event.ConnectionID != "" {
			b.fanout.Unsubscribe(aud, event.ConnectionID)
		}
	default:
		return
	}

	b.PublishRoomInfo(ctx)
	b.PublishGameInfo(ctx, event.RoomName)
}

// PublishRoomInfo sends the room list to every connection
func (b *Broadcaster) PublishRoomInfo(ctx context.Context) {
	summaries, err := b.directory.Summaries(ctx)
	if err != nil {
		b.logger.Error("failed to build room info", slog.Any("error", err))
		return
	}
	if _, err := b.fanout.PublishJSON(broadcast.Global, NewRoomInfo(summaries)); err != nil {
		b.logger.Error("failed to publish room info", slog.Any("error", err))
	}
}

// PublishGameInfo sends a room's game to its occupants
func (b *Broadcaster) PublishGameInfo(ctx context.Context, roomName string) {
	info, err := b.directory.RoomGameInfo(ctx, roomName)
	if err != nil {
		b.logger.Error("failed to build game info", slog.String("room", roomName), slog.Any("error", err))
		return
	}
	if _, err := b.fanout.PublishJSON(broadcast.RoomAudience(roomName), GameInfo{Type: ReplyGameInfo, Game: info}); err != nil {
		b.logger.Error("failed to publish game info", slog.String("room", roomName), slog.Any("error", err))
	}
}
