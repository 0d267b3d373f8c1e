// Package storagetest holds the behavioural contract every storage backend
// must satisfy. Backend packages run ContractSuite against their own store.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// ContractSuite exercises a storage.Storage implementation
type ContractSuite struct {
	suite.Suite

	// NewStorage returns an empty store for each test
	NewStorage func() storage.Storage

	storage storage.Storage
	ctx     context.Context
	now     time.Time
}

func (s *ContractSuite) SetupTest() {
	s.storage = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Connection tests

func (s *ContractSuite) TestSaveAndGetConnection() {
	conn := &model.Connection{ID: "conn-1", Connected: true, ConnectedAt: s.now}
	s.Require().NoError(s.storage.SaveConnection(s.ctx, conn))

	got, err := s.storage.GetConnection(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("conn-1"), got.ID)
	s.True(got.Connected)
	s.True(got.ConnectedAt.Equal(s.now))
	s.True(got.LastAuthedAt.IsZero())
	s.False(got.Authenticated())
}

func (s *ContractSuite) TestGetConnectionNotFound() {
	_, err := s.storage.GetConnection(s.ctx, "missing")
	s.ErrorIs(err, model.ErrConnectionNotFound)
}

func (s *ContractSuite) TestDeleteConnection() {
	s.Require().NoError(s.storage.SaveConnection(s.ctx, &model.Connection{ID: "conn-1", ConnectedAt: s.now}))
	s.Require().NoError(s.storage.DeleteConnection(s.ctx, "conn-1"))

	_, err := s.storage.GetConnection(s.ctx, "conn-1")
	s.ErrorIs(err, model.ErrConnectionNotFound)
}

func (s *ContractSuite) TestReturnedConnectionIsACopy() {
	s.Require().NoError(s.storage.SaveConnection(s.ctx, &model.Connection{ID: "conn-1", Connected: true, ConnectedAt: s.now}))

	got, err := s.storage.GetConnection(s.ctx, "conn-1")
	s.Require().NoError(err)
	got.Connected = false

	again, err := s.storage.GetConnection(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.True(again.Connected)
}

func (s *ContractSuite) TestDeleteConnectionsAnonymous() {
	threshold := s.now.Add(-time.Minute)
	conns := []*model.Connection{
		{ID: "old-gone", ConnectedAt: threshold.Add(-time.Second)},
		{ID: "at-threshold", ConnectedAt: threshold},
		{ID: "old-live", Connected: true, ConnectedAt: threshold.Add(-time.Hour)},
		{ID: "recent-gone", ConnectedAt: s.now},
		{ID: "old-authed", IdentityID: "id-1", ConnectedAt: threshold.Add(-time.Hour), LastAuthedAt: threshold.Add(-time.Hour)},
	}
	for _, c := range conns {
		s.Require().NoError(s.storage.SaveConnection(s.ctx, c))
	}

	deleted, err := s.storage.DeleteConnections(s.ctx, storage.StaleFilter{Kind: storage.StaleAnonymous, Before: threshold})
	s.Require().NoError(err)
	s.ElementsMatch([]model.ConnectionID{"old-gone", "at-threshold"}, connectionIDs(deleted))

	for _, id := range []model.ConnectionID{"old-live", "recent-gone", "old-authed"} {
		_, err := s.storage.GetConnection(s.ctx, id)
		s.NoError(err, "connection %s should survive", id)
	}
}

func (s *ContractSuite) TestDeleteConnectionsAbandoned() {
	threshold := s.now.Add(-time.Minute)
	conns := []*model.Connection{
		{ID: "stale", IdentityID: "id-1", ConnectedAt: threshold.Add(-time.Hour), LastAuthedAt: threshold.Add(-time.Second)},
		{ID: "stale-live", IdentityID: "id-2", Connected: true, ConnectedAt: threshold.Add(-time.Hour), LastAuthedAt: threshold.Add(-time.Hour)},
		{ID: "active", IdentityID: "id-3", ConnectedAt: threshold.Add(-time.Hour), LastAuthedAt: s.now},
		{ID: "anonymous", ConnectedAt: threshold.Add(-time.Hour)},
	}
	for _, c := range conns {
		s.Require().NoError(s.storage.SaveConnection(s.ctx, c))
	}

	deleted, err := s.storage.DeleteConnections(s.ctx, storage.StaleFilter{Kind: storage.StaleAbandoned, Before: threshold})
	s.Require().NoError(err)
	s.Require().Len(deleted, 1)
	s.Equal(model.ConnectionID("stale"), deleted[0].ID)
	s.Equal(model.IdentityID("id-1"), deleted[0].IdentityID)

	_, err = s.storage.GetConnection(s.ctx, "stale")
	s.ErrorIs(err, model.ErrConnectionNotFound)
	for _, id := range []model.ConnectionID{"stale-live", "active", "anonymous"} {
		_, err := s.storage.GetConnection(s.ctx, id)
		s.NoError(err, "connection %s should survive", id)
	}
}

func (s *ContractSuite) TestDeleteConnectionsEmptyStore() {
	deleted, err := s.storage.DeleteConnections(s.ctx, storage.StaleFilter{Kind: storage.StaleAnonymous, Before: s.now})
	s.Require().NoError(err)
	s.Empty(deleted)
}

// Identity tests

func (s *ContractSuite) TestSaveAndGetIdentity() {
	identity := &model.Identity{ID: "id-1", Username: "Lyn42", ConnectionID: "conn-1", CreatedAt: s.now}
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, identity))

	got, err := s.storage.GetIdentity(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Equal("Lyn42", got.Username)
	s.Equal(model.ConnectionID("conn-1"), got.ConnectionID)
}

func (s *ContractSuite) TestGetIdentityNotFound() {
	_, err := s.storage.GetIdentity(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ContractSuite) TestFindIdentityRequiresBothFields() {
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, &model.Identity{ID: "id-1", Username: "Lyn42", ConnectionID: "conn-1", CreatedAt: s.now}))

	got, err := s.storage.FindIdentity(s.ctx, "Lyn42", "conn-1")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("id-1"), got.ID)

	_, err = s.storage.FindIdentity(s.ctx, "Lyn42", "conn-2")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.storage.FindIdentity(s.ctx, "Roy7", "conn-1")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ContractSuite) TestFindIdentityFollowsRebinding() {
	identity := &model.Identity{ID: "id-1", Username: "Lyn42", ConnectionID: "conn-1", CreatedAt: s.now}
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, identity))

	identity.ConnectionID = "conn-2"
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, identity))

	_, err := s.storage.FindIdentity(s.ctx, "Lyn42", "conn-1")
	s.ErrorIs(err, model.ErrUserNotFound)

	got, err := s.storage.FindIdentity(s.ctx, "Lyn42", "conn-2")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("id-1"), got.ID)
}

func (s *ContractSuite) TestDeleteIdentity() {
	s.Require().NoError(s.storage.SaveIdentity(s.ctx, &model.Identity{ID: "id-1", Username: "Lyn42", ConnectionID: "conn-1", CreatedAt: s.now}))
	s.Require().NoError(s.storage.DeleteIdentity(s.ctx, "id-1"))

	_, err := s.storage.GetIdentity(s.ctx, "id-1")
	s.ErrorIs(err, model.ErrUserNotFound)
	_, err = s.storage.FindIdentity(s.ctx, "Lyn42", "conn-1")
	s.ErrorIs(err, model.ErrUserNotFound)

	s.NoError(s.storage.DeleteIdentity(s.ctx, "id-1"))
}

// Room tests

func (s *ContractSuite) TestSaveAndGetRoom() {
	room := &model.Room{Name: "ellios", Occupants: []model.IdentityID{"id-1"}, GameID: "game-1", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	got, err := s.storage.GetRoom(s.ctx, "ellios")
	s.Require().NoError(err)
	s.Equal([]model.IdentityID{"id-1"}, got.Occupants)
	s.Equal(model.GameID("game-1"), got.GameID)
}

func (s *ContractSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "nowhere")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ContractSuite) TestEmptyRoomHasNoOccupants() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{Name: "ellios", GameID: "game-1", CreatedAt: s.now, UpdatedAt: s.now}))

	got, err := s.storage.GetRoom(s.ctx, "ellios")
	s.Require().NoError(err)
	s.Empty(got.Occupants)
}

func (s *ContractSuite) TestListRoomsSortedByName() {
	for _, name := range []string{"valm", "ellios", "jugdral"} {
		s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{Name: name, GameID: model.GameID("game-" + name), CreatedAt: s.now, UpdatedAt: s.now}))
	}

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 3)
	s.Equal("ellios", rooms[0].Name)
	s.Equal("jugdral", rooms[1].Name)
	s.Equal("valm", rooms[2].Name)
}

func (s *ContractSuite) TestFindRoomByOccupant() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{Name: "ellios", Occupants: []model.IdentityID{"id-1", "id-2"}, GameID: "g1", CreatedAt: s.now, UpdatedAt: s.now}))
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{Name: "valm", Occupants: []model.IdentityID{"id-3"}, GameID: "g2", CreatedAt: s.now, UpdatedAt: s.now}))

	room, err := s.storage.FindRoomByOccupant(s.ctx, "id-2")
	s.Require().NoError(err)
	s.Equal("ellios", room.Name)

	_, err = s.storage.FindRoomByOccupant(s.ctx, "id-4")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ContractSuite) TestFindRoomByOccupantAfterLeaving() {
	room := &model.Room{Name: "ellios", Occupants: []model.IdentityID{"id-1"}, GameID: "g1", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	room.RemoveOccupant("id-1")
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	_, err := s.storage.FindRoomByOccupant(s.ctx, "id-1")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Game tests

func (s *ContractSuite) TestSaveAndGetGame() {
	game := &model.Game{
		ID:              "game-1",
		RoomName:        "ellios",
		State:           model.GameStatePlaying,
		Board:           model.Board{Rows: 10, Cols: 10},
		RequiredPlayers: 2,
		Players: []model.Player{
			{ID: "p-env", Name: "Environment", JoinOrder: 0},
			{ID: "p-1", Name: "Lyn42", JoinOrder: 1, IdentityID: "id-1"},
		},
		Pieces: []model.Piece{
			{ID: "pc-1", PlayerID: "p-env", Name: "Brigand", Cell: model.Cell{Col: 3, Row: 4}, Movement: 4},
			{ID: "pc-2", PlayerID: "p-1", Name: "Lyn42", Cell: model.Cell{Col: 0, Row: 9}, Movement: 4},
		},
		NextJoinOrder: 2,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
	s.Require().NoError(s.storage.SaveGame(s.ctx, game))

	got, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(game.State, got.State)
	s.Equal(game.Board, got.Board)
	s.Equal(game.Players, got.Players)
	s.Equal(game.Pieces, got.Pieces)
	s.Equal(2, got.NextJoinOrder)
	s.Equal(2, got.RequiredPlayers)
}

func (s *ContractSuite) TestGetGameNotFound() {
	_, err := s.storage.GetGame(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func connectionIDs(conns []*model.Connection) []model.ConnectionID {
	ids := make([]model.ConnectionID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID)
	}
	return ids
}
