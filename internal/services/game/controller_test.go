package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/mocks"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/board"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage/memory"
	"github.com/rileyL6122428/FriEnds-backend/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	boardService := board.New(s.random, logger)
	s.controller = NewController(s.storage, boardService, s.clock, s.random, DefaultConfig(), logger)
	s.ctx = context.Background()
}

func identity(id, username string) *model.Identity {
	return &model.Identity{ID: model.IdentityID(id), Username: username, ConnectionID: model.ConnectionID("conn-" + id)}
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameStartsWaitingWithEnvironment() {
	s.random.QueueUUID("game-1", "env-player", "env-piece")
	s.random.QueueIntn(55)

	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	s.Equal(model.GameID("game-1"), game.ID)
	s.Equal("ellios", game.RoomName)
	s.Equal(model.GameStateWaiting, game.State)
	s.Equal(model.Board{Rows: 10, Cols: 10}, game.Board)
	s.Equal(2, game.RequiredPlayers)

	s.Require().Len(game.Players, 1)
	env := game.Players[0]
	s.Equal(EnvironmentPlayerName, env.Name)
	s.True(env.IsEnvironment())
	s.Equal(0, env.JoinOrder)

	s.Require().Len(game.Pieces, 1)
	s.Equal(model.PieceID("env-piece"), game.Pieces[0].ID)
	s.Equal(EnvironmentPieceName, game.Pieces[0].Name)
	s.Equal(model.Cell{Col: 5, Row: 5}, game.Pieces[0].Cell)
	s.Equal(4, game.Pieces[0].Movement)
}

func (s *ControllerSuite) TestCreateGameIsPersisted() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(game.Players, stored.Players)
}

func (s *ControllerSuite) TestCreateGameOnZeroSizedBoardFails() {
	controller := NewController(s.storage, board.New(s.random, testutil.NopLogger()), s.clock, s.random,
		Config{Rows: 0, Cols: 0, Movement: 1, RequiredPlayers: 2}, testutil.NopLogger())

	_, err := controller.CreateGame(s.ctx, "ellios")
	s.ErrorIs(err, model.ErrBoardFull)
}

// AddPlayer tests

func (s *ControllerSuite) TestAddFirstPlayerStaysWaiting() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	game, started, err := s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)
	s.False(started)
	s.Equal(model.GameStateWaiting, game.State)
	s.Len(game.Players, 2)
	s.Len(game.Pieces, 2)
}

func (s *ControllerSuite) TestAddSecondPlayerStartsGame() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	_, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)
	game, started, err := s.controller.AddPlayer(s.ctx, game.ID, identity("id-2", "Roy7"))
	s.Require().NoError(err)

	s.True(started)
	s.Equal(model.GameStatePlaying, game.State)
	s.Require().Len(game.Players, 3)
	s.Equal([]string{EnvironmentPlayerName, "Lyn42", "Roy7"}, playerNames(game))
	s.Equal(0, game.Players[0].JoinOrder)
	s.Equal(1, game.Players[1].JoinOrder)
	s.Equal(2, game.Players[2].JoinOrder)
}

func (s *ControllerSuite) TestPiecesNeverShareACell() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	// Every call asks for index 0, so each piece takes the first free cell
	_, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)
	game, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-2", "Roy7"))
	s.Require().NoError(err)

	seen := map[model.Cell]bool{}
	for _, p := range game.Pieces {
		s.True(game.Board.Contains(p.Cell))
		s.False(seen[p.Cell], "cell %v shared", p.Cell)
		seen[p.Cell] = true
	}
}

func (s *ControllerSuite) TestAddPlayerTwiceIsNoOp() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	_, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)
	game, started, err := s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)
	s.False(started)
	s.Len(game.Players, 2)
}

func (s *ControllerSuite) TestAddPlayerOnFullBoardLeavesGameUntouched() {
	controller := NewController(s.storage, board.New(s.random, testutil.NopLogger()), s.clock, s.random,
		Config{Rows: 1, Cols: 1, Movement: 1, RequiredPlayers: 2}, testutil.NopLogger())
	game, err := controller.CreateGame(s.ctx, "tiny")
	s.Require().NoError(err)

	_, _, err = controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.ErrorIs(err, model.ErrBoardFull)

	stored, err := controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(stored.Players, 1)
}

func (s *ControllerSuite) TestAddPlayerUnknownGame() {
	_, _, err := s.controller.AddPlayer(s.ctx, "missing", identity("id-1", "Lyn42"))
	s.ErrorIs(err, model.ErrGameNotFound)
}

// RemovePlayer tests

func (s *ControllerSuite) TestRemovePlayerDropsPlayerAndPiece() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)
	_, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)

	game, err = s.controller.RemovePlayer(s.ctx, game.ID, "id-1")
	s.Require().NoError(err)
	s.Equal([]string{EnvironmentPlayerName}, playerNames(game))
	s.Len(game.Pieces, 1)
}

func (s *ControllerSuite) TestRemovePlayerDoesNotDemotePlayingGame() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)
	_, _, _ = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	_, _, _ = s.controller.AddPlayer(s.ctx, game.ID, identity("id-2", "Roy7"))

	game, err = s.controller.RemovePlayer(s.ctx, game.ID, "id-2")
	s.Require().NoError(err)
	s.Equal(model.GameStatePlaying, game.State)
}

func (s *ControllerSuite) TestRejoinAfterLeaveGetsLaterJoinOrder() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)
	_, _, _ = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	_, _, _ = s.controller.AddPlayer(s.ctx, game.ID, identity("id-2", "Roy7"))
	_, _ = s.controller.RemovePlayer(s.ctx, game.ID, "id-1")

	game, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)
	s.Equal([]string{EnvironmentPlayerName, "Roy7", "Lyn42"}, playerNames(game))
	s.Equal(3, game.Players[2].JoinOrder)
}

// MovementRange tests

func (s *ControllerSuite) TestMovementRangeForPiece() {
	s.random.QueueUUID("game-1", "env-player", "env-piece")
	s.random.QueueIntn(55)
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	cells, err := s.controller.MovementRange(s.ctx, game.ID, "env-piece")
	s.Require().NoError(err)
	s.Len(cells, 41)
}

func (s *ControllerSuite) TestMovementRangeUnknownPiece() {
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)

	_, err = s.controller.MovementRange(s.ctx, game.ID, "nope")
	s.ErrorIs(err, model.ErrPieceNotFound)
}

// Projection tests

func (s *ControllerSuite) TestProjectWireShape() {
	s.random.QueueIntn(0, 1)
	game, err := s.controller.CreateGame(s.ctx, "ellios")
	s.Require().NoError(err)
	game, _, err = s.controller.AddPlayer(s.ctx, game.ID, identity("id-1", "Lyn42"))
	s.Require().NoError(err)

	data, err := json.Marshal(Project(game))
	s.Require().NoError(err)
	s.JSONEq(`{
		"state": "waiting",
		"players": [{"name": "Environment"}, {"name": "Lyn42"}],
		"requiredPlayers": 2,
		"grid": {"cols": 10, "rows": 10},
		"boardPieces": [
			{"name": "Brigand", "row": 0, "col": 0, "player": {"name": "Environment"}},
			{"name": "Lyn42", "row": 0, "col": 2, "player": {"name": "Lyn42"}}
		]
	}`, string(data))
}

func playerNames(g *model.Game) []string {
	names := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		names = append(names, p.Name)
	}
	return names
}
