package game

import "github.com/rileyL6122428/FriEnds-backend/internal/model"

// Info is the client-facing projection of a game
type Info struct {
	State           model.GameState `json:"state"`
	Players         []InfoPlayer    `json:"players"`
	RequiredPlayers int             `json:"requiredPlayers"`
	Grid            InfoGrid        `json:"grid"`
	BoardPieces     []InfoPiece     `json:"boardPieces"`
}

// InfoPlayer is a player as clients see it
type InfoPlayer struct {
	Name string `json:"name"`
}

// InfoGrid carries the board dimensions
type InfoGrid struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// InfoPiece is a piece with its owner inlined
type InfoPiece struct {
	Name   string     `json:"name"`
	Row    int        `json:"row"`
	Col    int        `json:"col"`
	Player InfoPlayer `json:"player"`
}

// Project builds the client-facing view of a game. Players are listed in
// join order.
func Project(g *model.Game) Info {
	info := Info{
		State:           g.State,
		Players:         make([]InfoPlayer, 0, len(g.Players)),
		RequiredPlayers: g.RequiredPlayers,
		Grid:            InfoGrid{Cols: g.Board.Cols, Rows: g.Board.Rows},
		BoardPieces:     make([]InfoPiece, 0, len(g.Pieces)),
	}

	names := make(map[model.PlayerID]string, len(g.Players))
	for _, p := range g.Players {
		names[p.ID] = p.Name
		info.Players = append(info.Players, InfoPlayer{Name: p.Name})
	}

	for _, piece := range g.Pieces {
		info.BoardPieces = append(info.BoardPieces, InfoPiece{
			Name:   piece.Name,
			Row:    piece.Cell.Row,
			Col:    piece.Cell.Col,
			Player: InfoPlayer{Name: names[piece.PlayerID]},
		})
	}
	return info
}
