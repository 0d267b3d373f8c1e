package model

import (
	"slices"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// GameState represents the lifecycle phase of a game
type GameState string

const (
	GameStateWaiting  GameState = "waiting"  // Room not yet full
	GameStatePlaying  GameState = "playing"  // Room reached capacity
	GameStateFinished GameState = "finished" // Terminal, not currently reachable
)

// PlayerID uniquely identifies a player within the system
type PlayerID string

// Player is a participant in a game. The environment player has no identity.
type Player struct {
	ID         PlayerID
	Name       string
	JoinOrder  int
	IdentityID IdentityID
}

// IsEnvironment reports whether the player is the non-human environment
func (p Player) IsEnvironment() bool {
	return p.IdentityID == ""
}

// PieceID uniquely identifies a piece
type PieceID string

// Piece is a token on the board owned by a player
type Piece struct {
	ID       PieceID
	PlayerID PlayerID
	Name     string
	Cell     Cell
	Movement int
}

// Game is the per-room session aggregate. It owns its players and pieces.
type Game struct {
	ID              GameID
	RoomName        string
	State           GameState
	Board           Board
	RequiredPlayers int
	Players         []Player // join order
	Pieces          []Piece
	NextJoinOrder   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Player returns the player with the given ID, or nil if not found
func (g *Game) Player(id PlayerID) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// PlayerForIdentity returns the player bound to the identity, or nil
func (g *Game) PlayerForIdentity(id IdentityID) *Player {
	for i := range g.Players {
		if g.Players[i].IdentityID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// Piece returns the piece with the given ID, or nil if not found
func (g *Game) Piece(id PieceID) *Piece {
	for i := range g.Pieces {
		if g.Pieces[i].ID == id {
			return &g.Pieces[i]
		}
	}
	return nil
}

// OccupiedCells returns the cells covered by pieces
func (g *Game) OccupiedCells() []Cell {
	cells := make([]Cell, 0, len(g.Pieces))
	for _, p := range g.Pieces {
		cells = append(cells, p.Cell)
	}
	return cells
}

// HumanPlayerCount returns the number of players bound to identities
func (g *Game) HumanPlayerCount() int {
	n := 0
	for _, p := range g.Players {
		if !p.IsEnvironment() {
			n++
		}
	}
	return n
}

// RemovePlayer deletes the player and every piece it owns
func (g *Game) RemovePlayer(id PlayerID) bool {
	idx := slices.IndexFunc(g.Players, func(p Player) bool { return p.ID == id })
	if idx < 0 {
		return false
	}
	g.Players = slices.Delete(g.Players, idx, idx+1)
	g.Pieces = slices.DeleteFunc(g.Pieces, func(p Piece) bool { return p.PlayerID == id })
	return true
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	cp := *g
	cp.Players = slices.Clone(g.Players)
	cp.Pieces = slices.Clone(g.Pieces)
	return &cp
}
