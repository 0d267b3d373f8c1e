package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/clock"
	"github.com/rileyL6122428/FriEnds-backend/internal/events"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// Summary is a room with its occupants resolved to usernames
type Summary struct {
	Name      string
	Capacity  int
	Occupants []string
	State     model.GameState
}

// Directory owns the set of rooms and the matchmaking rules around them.
// Every mutation of a room and its game happens under that room's lock;
// identity-scoped operations take the identity lock first.
type Directory struct {
	storage        storage.Storage
	gameController *game.Controller
	clock          clock.Clock
	events         events.Sink
	logger         *slog.Logger

	identityLocks *keyedMutex
	roomLocks     *keyedMutex
}

// NewDirectory creates a new room Directory
func NewDirectory(
	storage storage.Storage,
	gameController *game.Controller,
	clock clock.Clock,
	sink events.Sink,
	logger *slog.Logger,
) *Directory {
	if sink == nil {
		sink = events.Nop
	}
	return &Directory{
		storage:        storage,
		gameController: gameController,
		clock:          clock,
		events:         sink,
		logger:         logger.With(slog.String("component", "room")),
		identityLocks:  newKeyedMutex(),
		roomLocks:      newKeyedMutex(),
	}
}

// EnsureRoom returns the named room, creating it and its waiting game when
// absent. created reports whether this call made the room.
func (d *Directory) EnsureRoom(ctx context.Context, name string) (room *model.Room, created bool, err error) {
	unlock := d.roomLocks.Lock(name)
	defer unlock()

	room, err = d.storage.GetRoom(ctx, name)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, model.ErrRoomNotFound) {
		return nil, false, err
	}

	g, err := d.gameController.CreateGame(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("creating game for room %s: %w", name, err)
	}

	now := d.clock.Now()
	room = &model.Room{
		Name:      name,
		Occupants: []model.IdentityID{},
		GameID:    g.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.storage.SaveRoom(ctx, room); err != nil {
		return nil, false, err
	}

	d.logger.Info("room created", slog.String("room", name), slog.String("game_id", string(g.ID)))
	return room, true, nil
}

// Room returns a room by name
func (d *Directory) Room(ctx context.Context, name string) (*model.Room, error) {
	return d.storage.GetRoom(ctx, name)
}

// RoomOf returns the room the identity occupies, or ErrRoomNotFound
func (d *Directory) RoomOf(ctx context.Context, identityID model.IdentityID) (*model.Room, error) {
	return d.storage.FindRoomByOccupant(ctx, identityID)
}

// ListRooms returns every room sorted by name
func (d *Directory) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return d.storage.ListRooms(ctx)
}

// JoinRoom places the identity in the named room and adds its player to the
// room's game. Checks run in order: already in a room, unknown room, full
// room. Nothing is mutated when a check fails.
func (d *Directory) JoinRoom(ctx context.Context, identity *model.Identity, roomName string) (*model.Room, *model.Game, error) {
	unlockIdentity := d.identityLocks.Lock(string(identity.ID))
	defer unlockIdentity()

	current, err := d.storage.FindRoomByOccupant(ctx, identity.ID)
	switch {
	case err == nil:
		d.logger.Debug("join rejected", slog.String("identity_id", string(identity.ID)), slog.String("current_room", current.Name))
		return nil, nil, model.ErrAlreadyInRoom
	case !errors.Is(err, model.ErrRoomNotFound):
		return nil, nil, err
	}

	unlockRoom := d.roomLocks.Lock(roomName)
	defer unlockRoom()

	room, err := d.storage.GetRoom(ctx, roomName)
	if err != nil {
		return nil, nil, err
	}
	if room.IsFull() {
		return nil, nil, model.ErrRoomFull
	}

	g, started, err := d.gameController.AddPlayer(ctx, room.GameID, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("adding player to game %s: %w", room.GameID, err)
	}

	room.Occupants = append(room.Occupants, identity.ID)
	room.UpdatedAt = d.clock.Now()
	if err := d.storage.SaveRoom(ctx, room); err != nil {
		// Keep the game consistent with the unchanged room
		if _, rerr := d.gameController.RemovePlayer(ctx, room.GameID, identity.ID); rerr != nil {
			d.logger.Error("failed to roll back player", slog.String("room", roomName), slog.Any("error", rerr))
		}
		return nil, nil, err
	}

	d.logger.Info("occupant joined",
		slog.String("room", roomName),
		slog.String("identity_id", string(identity.ID)),
		slog.Int("occupancy", len(room.Occupants)),
	)

	now := d.clock.Now()
	d.events.Emit(ctx, model.Event{
		Type:         model.EventOccupantJoined,
		Timestamp:    now,
		RoomName:     roomName,
		IdentityID:   identity.ID,
		ConnectionID: identity.ConnectionID,
		Payload: model.OccupantPayload{
			Username:  identity.Username,
			GameID:    g.ID,
			Occupancy: len(room.Occupants),
		},
	})
	if started {
		players := make([]string, 0, len(g.Players))
		for _, p := range g.Players {
			players = append(players, p.Name)
		}
		d.events.Emit(ctx, model.Event{
			Type:      model.EventGameStarted,
			Timestamp: now,
			RoomName:  roomName,
			Payload:   model.GameStartedPayload{GameID: g.ID, Players: players},
		})
	}

	return room, g, nil
}

// LeaveRoom removes the identity from whichever room it occupies and drops
// its player from that room's game. It fails with ErrRoomNotFound when the
// identity is in no room. A playing game stays playing.
func (d *Directory) LeaveRoom(ctx context.Context, identity *model.Identity) (*model.Room, error) {
	unlockIdentity := d.identityLocks.Lock(string(identity.ID))
	defer unlockIdentity()

	current, err := d.storage.FindRoomByOccupant(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	unlockRoom := d.roomLocks.Lock(current.Name)
	defer unlockRoom()

	// Re-read under the room lock
	room, err := d.storage.GetRoom(ctx, current.Name)
	if err != nil {
		return nil, err
	}
	if !room.RemoveOccupant(identity.ID) {
		return nil, model.ErrRoomNotFound
	}

	if _, err := d.gameController.RemovePlayer(ctx, room.GameID, identity.ID); err != nil {
		return nil, fmt.Errorf("removing player from game %s: %w", room.GameID, err)
	}

	room.UpdatedAt = d.clock.Now()
	if err := d.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	d.logger.Info("occupant left",
		slog.String("room", room.Name),
		slog.String("identity_id", string(identity.ID)),
		slog.Int("occupancy", len(room.Occupants)),
	)

	d.events.Emit(ctx, model.Event{
		Type:         model.EventOccupantLeft,
		Timestamp:    d.clock.Now(),
		RoomName:     room.Name,
		IdentityID:   identity.ID,
		ConnectionID: identity.ConnectionID,
		Payload: model.OccupantPayload{
			Username:  identity.Username,
			GameID:    room.GameID,
			Occupancy: len(room.Occupants),
		},
	})

	return room, nil
}

// GameInfo returns the projection of a room's game. The identity must
// occupy the room.
func (d *Directory) GameInfo(ctx context.Context, identityID model.IdentityID, roomName string) (game.Info, error) {
	room, err := d.storage.GetRoom(ctx, roomName)
	if err != nil {
		return game.Info{}, err
	}
	if !room.HasOccupant(identityID) {
		return game.Info{}, model.ErrUserNotInRoom
	}
	return d.projectGame(ctx, room)
}

// RoomGameInfo returns the projection of a room's game without an
// occupancy check
func (d *Directory) RoomGameInfo(ctx context.Context, roomName string) (game.Info, error) {
	room, err := d.storage.GetRoom(ctx, roomName)
	if err != nil {
		return game.Info{}, err
	}
	return d.projectGame(ctx, room)
}

func (d *Directory) projectGame(ctx context.Context, room *model.Room) (game.Info, error) {
	g, err := d.gameController.GetGame(ctx, room.GameID)
	if err != nil {
		return game.Info{}, err
	}
	return game.Project(g), nil
}

// Summaries lists every room with occupant usernames and game state
func (d *Directory) Summaries(ctx context.Context) ([]Summary, error) {
	rooms, err := d.storage.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		s, err := d.summarize(ctx, r)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Summary returns a single room's summary
func (d *Directory) Summary(ctx context.Context, name string) (Summary, error) {
	r, err := d.storage.GetRoom(ctx, name)
	if err != nil {
		return Summary{}, err
	}
	return d.summarize(ctx, r)
}

func (d *Directory) summarize(ctx context.Context, r *model.Room) (Summary, error) {
	s := Summary{
		Name:      r.Name,
		Capacity:  model.RoomCapacity,
		Occupants: make([]string, 0, len(r.Occupants)),
	}
	for _, id := range r.Occupants {
		identity, err := d.storage.GetIdentity(ctx, id)
		if errors.Is(err, model.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return Summary{}, err
		}
		s.Occupants = append(s.Occupants, identity.Username)
	}

	g, err := d.gameController.GetGame(ctx, r.GameID)
	switch {
	case err == nil:
		s.State = g.State
	case !errors.Is(err, model.ErrGameNotFound):
		return Summary{}, err
	}
	return s, nil
}

// Reset empties a room. Occupants are removed from its game and their
// identities deleted. The game keeps its state. Each removal is announced as
// an occupant leaving once the room is saved.
func (d *Directory) Reset(ctx context.Context, name string) (int, error) {
	unlock := d.roomLocks.Lock(name)
	defer unlock()

	room, err := d.storage.GetRoom(ctx, name)
	if err != nil {
		return 0, err
	}

	departed := make([]*model.Identity, 0, len(room.Occupants))
	for _, id := range room.Occupants {
		identity, err := d.storage.GetIdentity(ctx, id)
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			identity = &model.Identity{ID: id}
		case err != nil:
			return len(departed), err
		}
		if _, err := d.gameController.RemovePlayer(ctx, room.GameID, id); err != nil && !errors.Is(err, model.ErrGameNotFound) {
			return len(departed), err
		}
		if err := d.storage.DeleteIdentity(ctx, id); err != nil && !errors.Is(err, model.ErrUserNotFound) {
			return len(departed), err
		}
		departed = append(departed, identity)
	}
	removed := len(departed)

	room.Occupants = []model.IdentityID{}
	room.UpdatedAt = d.clock.Now()
	if err := d.storage.SaveRoom(ctx, room); err != nil {
		return removed, err
	}

	for i, identity := range departed {
		d.events.Emit(ctx, model.Event{
			Type:         model.EventOccupantLeft,
			Timestamp:    room.UpdatedAt,
			RoomName:     room.Name,
			IdentityID:   identity.ID,
			ConnectionID: identity.ConnectionID,
			Payload: model.OccupantPayload{
				Username:  identity.Username,
				GameID:    room.GameID,
				Occupancy: removed - i - 1,
			},
		})
	}

	d.logger.Info("room reset", slog.String("room", name), slog.Int("removed", removed))
	return removed, nil
}
