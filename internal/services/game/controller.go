package game

import (
	"context"
	"log/slog"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/clock"
	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/random"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/board"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

const (
	// EnvironmentPlayerName is the name of the non-human player every game starts with
	EnvironmentPlayerName = "Environment"
	// EnvironmentPieceName is the name of the environment's piece
	EnvironmentPieceName = "Brigand"
)

// Config holds the shape of newly created games
type Config struct {
	Rows            int
	Cols            int
	Movement        int
	RequiredPlayers int
}

// DefaultConfig returns the default game configuration
func DefaultConfig() Config {
	return Config{
		Rows:            10,
		Cols:            10,
		Movement:        4,
		RequiredPlayers: model.RoomCapacity,
	}
}

// Controller manages the game session state machine and its players
type Controller struct {
	storage      storage.Storage
	boardService *board.Service
	clock        clock.Clock
	random       random.Random
	cfg          Config
	logger       *slog.Logger
}

// NewController creates a new GameController
func NewController(
	storage storage.Storage,
	boardService *board.Service,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:      storage,
		boardService: boardService,
		clock:        clock,
		random:       random,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "game")),
	}
}

// CreateGame initializes a waiting game for a room. The environment player
// and its piece are placed immediately.
func (c *Controller) CreateGame(ctx context.Context, roomName string) (*model.Game, error) {
	now := c.clock.Now()

	game := &model.Game{
		ID:              model.GameID(c.random.UUID()),
		RoomName:        roomName,
		State:           model.GameStateWaiting,
		Board:           model.Board{Rows: c.cfg.Rows, Cols: c.cfg.Cols},
		RequiredPlayers: c.cfg.RequiredPlayers,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := c.addPlayer(game, EnvironmentPlayerName, EnvironmentPieceName, ""); err != nil {
		return nil, err
	}

	if err := c.storage.SaveGame(ctx, game); err != nil {
		c.logger.Error("failed to save game",
			slog.String("game_id", string(game.ID)),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("room", roomName),
	)
	return game, nil
}

// GetGame retrieves a game by ID
func (c *Controller) GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	return c.storage.GetGame(ctx, gameID)
}

// AddPlayer creates a player and piece for the identity. The game moves from
// waiting to playing once it holds RequiredPlayers human players; started
// reports whether this call made that transition.
func (c *Controller) AddPlayer(ctx context.Context, gameID model.GameID, identity *model.Identity) (game *model.Game, started bool, err error) {
	game, err = c.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, false, err
	}

	if game.PlayerForIdentity(identity.ID) != nil {
		return game, false, nil
	}

	if _, err := c.addPlayer(game, identity.Username, identity.Username, identity.ID); err != nil {
		return nil, false, err
	}

	if game.State == model.GameStateWaiting && game.HumanPlayerCount() >= game.RequiredPlayers {
		game.State = model.GameStatePlaying
		started = true
	}
	game.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveGame(ctx, game); err != nil {
		return nil, false, err
	}

	if started {
		c.logger.Info("game started",
			slog.String("game_id", string(game.ID)),
			slog.String("room", game.RoomName),
			slog.Int("players", len(game.Players)),
		)
	}
	return game, started, nil
}

// RemovePlayer deletes the identity's player and pieces. A playing game is
// never demoted back to waiting.
func (c *Controller) RemovePlayer(ctx context.Context, gameID model.GameID, identityID model.IdentityID) (*model.Game, error) {
	game, err := c.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	player := game.PlayerForIdentity(identityID)
	if player == nil {
		return game, nil
	}
	game.RemovePlayer(player.ID)
	game.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveGame(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// MovementRange returns the cells a piece can reach this turn
func (c *Controller) MovementRange(ctx context.Context, gameID model.GameID, pieceID model.PieceID) ([]model.Cell, error) {
	game, err := c.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	piece := game.Piece(pieceID)
	if piece == nil {
		return nil, model.ErrPieceNotFound
	}
	return board.MovementRange(game.Board, *piece), nil
}

func (c *Controller) addPlayer(game *model.Game, playerName, pieceName string, identityID model.IdentityID) (*model.Player, error) {
	cell, err := c.boardService.RandomUnoccupiedCell(game.Board, game.OccupiedCells())
	if err != nil {
		return nil, err
	}

	player := model.Player{
		ID:         model.PlayerID(c.random.UUID()),
		Name:       playerName,
		JoinOrder:  game.NextJoinOrder,
		IdentityID: identityID,
	}
	game.NextJoinOrder++
	game.Players = append(game.Players, player)
	game.Pieces = append(game.Pieces, model.Piece{
		ID:       model.PieceID(c.random.UUID()),
		PlayerID: player.ID,
		Name:     pieceName,
		Cell:     cell,
		Movement: c.cfg.Movement,
	})
	return &game.Players[len(game.Players)-1], nil
}
