package templates

import (
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
)

// LobbyPage is the data for the room listing
type LobbyPage struct {
	Title       string
	Rooms       []room.Summary
	Connections int
}

// RoomPage is the data for a single room and its board
type RoomPage struct {
	Title           string
	Room            room.Summary
	State           model.GameState
	Players         []string
	RequiredPlayers int
	Grid            [][]Square
}

// Square is one board cell as rendered
type Square struct {
	Piece       string
	Owner       string
	Environment bool
}

// ErrorPage is the data for error pages
type ErrorPage struct {
	Title   string
	Message string
}

// NewRoomPage lays a room's game out as a grid. The environment is shown on
// the board but not listed as a player.
func NewRoomPage(summary room.Summary, info game.Info) RoomPage {
	page := RoomPage{
		Title:           summary.Name,
		Room:            summary,
		State:           info.State,
		RequiredPlayers: info.RequiredPlayers,
		Grid:            make([][]Square, info.Grid.Rows),
	}
	for _, p := range info.Players {
		if p.Name == game.EnvironmentPlayerName {
			continue
		}
		page.Players = append(page.Players, p.Name)
	}
	for row := range page.Grid {
		page.Grid[row] = make([]Square, info.Grid.Cols)
	}
	for _, piece := range info.BoardPieces {
		if piece.Row < 0 || piece.Row >= info.Grid.Rows || piece.Col < 0 || piece.Col >= info.Grid.Cols {
			continue
		}
		page.Grid[piece.Row][piece.Col] = Square{
			Piece:       piece.Name,
			Owner:       piece.Player.Name,
			Environment: piece.Player.Name == game.EnvironmentPlayerName,
		}
	}
	return page
}
