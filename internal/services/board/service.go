package board

import (
	"log/slog"
	"sort"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/random"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// Service provides board geometry: piece placement and movement ranges
type Service struct {
	random random.Random
	logger *slog.Logger
}

// New creates a new BoardService
func New(random random.Random, logger *slog.Logger) *Service {
	return &Service{
		random: random,
		logger: logger.With(slog.String("component", "board")),
	}
}

// FreeCells returns every in-bounds cell not in occupied, in row-major order
func FreeCells(board model.Board, occupied []model.Cell) []model.Cell {
	taken := make(map[model.Cell]struct{}, len(occupied))
	for _, c := range occupied {
		taken[c] = struct{}{}
	}

	free := make([]model.Cell, 0, board.Size())
	for row := 0; row < board.Rows; row++ {
		for col := 0; col < board.Cols; col++ {
			c := model.Cell{Col: col, Row: row}
			if _, ok := taken[c]; !ok {
				free = append(free, c)
			}
		}
	}
	return free
}

// RandomUnoccupiedCell picks a cell uniformly from the cells no piece covers
func (s *Service) RandomUnoccupiedCell(board model.Board, occupied []model.Cell) (model.Cell, error) {
	free := FreeCells(board, occupied)
	if len(free) == 0 {
		s.logger.Warn("no unoccupied cell",
			slog.Int("rows", board.Rows),
			slog.Int("cols", board.Cols),
			slog.Int("occupied", len(occupied)))
		return model.Cell{}, model.ErrBoardFull
	}
	return free[s.random.Intn(len(free))], nil
}

// MovementRange returns every cell reachable from the piece's cell in at most
// piece.Movement orthogonal steps, staying on the board. The origin is
// included. Cells are sorted row-major.
func MovementRange(board model.Board, piece model.Piece) []model.Cell {
	if !board.Contains(piece.Cell) {
		return []model.Cell{}
	}

	visited := map[model.Cell]struct{}{piece.Cell: {}}
	frontier := []model.Cell{piece.Cell}
	for step := 0; step < piece.Movement && len(frontier) > 0; step++ {
		var next []model.Cell
		for _, c := range frontier {
			for _, n := range c.Neighbours() {
				if !board.Contains(n) {
					continue
				}
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				next = append(next, n)
			}
		}
		frontier = next
	}

	cells := make([]model.Cell, 0, len(visited))
	for c := range visited {
		cells = append(cells, c)
	}
	SortCells(cells)
	return cells
}

// SortCells orders cells row-major
func SortCells(cells []model.Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
}
