package board

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/mocks"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	service *Service
	board   model.Board
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.service = New(s.random, testutil.NopLogger())
	s.board = model.Board{Rows: 10, Cols: 10}
}

// RandomUnoccupiedCell tests

func (s *ServiceSuite) TestRandomUnoccupiedCellUsesRowMajorIndex() {
	s.random.QueueIntn(13)

	cell, err := s.service.RandomUnoccupiedCell(s.board, nil)
	s.Require().NoError(err)
	s.Equal(model.Cell{Col: 3, Row: 1}, cell)
}

func (s *ServiceSuite) TestRandomUnoccupiedCellSkipsOccupied() {
	s.random.QueueIntn(0)
	occupied := []model.Cell{{Col: 0, Row: 0}, {Col: 1, Row: 0}}

	cell, err := s.service.RandomUnoccupiedCell(s.board, occupied)
	s.Require().NoError(err)
	s.Equal(model.Cell{Col: 2, Row: 0}, cell)
}

func (s *ServiceSuite) TestRandomUnoccupiedCellLastFreeCell() {
	board := model.Board{Rows: 2, Cols: 2}
	occupied := []model.Cell{{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 0, Row: 1}}

	cell, err := s.service.RandomUnoccupiedCell(board, occupied)
	s.Require().NoError(err)
	s.Equal(model.Cell{Col: 1, Row: 1}, cell)
}

func (s *ServiceSuite) TestRandomUnoccupiedCellFullBoard() {
	board := model.Board{Rows: 2, Cols: 2}
	occupied := []model.Cell{{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 0, Row: 1}, {Col: 1, Row: 1}}

	_, err := s.service.RandomUnoccupiedCell(board, occupied)
	s.ErrorIs(err, model.ErrBoardFull)
}

func (s *ServiceSuite) TestRandomUnoccupiedCellEmptyBoard() {
	_, err := s.service.RandomUnoccupiedCell(model.Board{}, nil)
	s.ErrorIs(err, model.ErrBoardFull)
}

func (s *ServiceSuite) TestFreeCellsIgnoresOutOfBoundsOccupied() {
	board := model.Board{Rows: 1, Cols: 2}
	free := FreeCells(board, []model.Cell{{Col: 5, Row: 5}})
	s.Equal([]model.Cell{{Col: 0, Row: 0}, {Col: 1, Row: 0}}, free)
}

// MovementRange tests

func (s *ServiceSuite) TestMovementRangeCentreOfBoard() {
	piece := model.Piece{Cell: model.Cell{Col: 5, Row: 5}, Movement: 4}

	cells := MovementRange(s.board, piece)
	s.Len(cells, 41)
	s.Contains(cells, model.Cell{Col: 5, Row: 5})
	s.Contains(cells, model.Cell{Col: 9, Row: 5})
	s.Contains(cells, model.Cell{Col: 7, Row: 3})
	s.NotContains(cells, model.Cell{Col: 8, Row: 3})
}

func (s *ServiceSuite) TestMovementRangeCornerIsClipped() {
	piece := model.Piece{Cell: model.Cell{Col: 0, Row: 0}, Movement: 2}

	cells := MovementRange(s.board, piece)
	s.Equal([]model.Cell{
		{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 2, Row: 0},
		{Col: 0, Row: 1}, {Col: 1, Row: 1},
		{Col: 0, Row: 2},
	}, cells)
}

func (s *ServiceSuite) TestMovementRangeZeroMovement() {
	piece := model.Piece{Cell: model.Cell{Col: 4, Row: 7}, Movement: 0}
	s.Equal([]model.Cell{{Col: 4, Row: 7}}, MovementRange(s.board, piece))
}

func (s *ServiceSuite) TestMovementRangeOffBoardPiece() {
	piece := model.Piece{Cell: model.Cell{Col: 10, Row: 0}, Movement: 3}
	s.Empty(MovementRange(s.board, piece))
}

func (s *ServiceSuite) TestMovementRangeCoversWholeBoard() {
	board := model.Board{Rows: 3, Cols: 3}
	piece := model.Piece{Cell: model.Cell{Col: 1, Row: 1}, Movement: 10}
	s.Len(MovementRange(board, piece), 9)
}

func (s *ServiceSuite) TestMovementRangeMatchesNaiveExpansion() {
	boards := []model.Board{{Rows: 10, Cols: 10}, {Rows: 3, Cols: 7}, {Rows: 1, Cols: 1}, {Rows: 6, Cols: 2}}
	for _, board := range boards {
		for row := 0; row < board.Rows; row++ {
			for col := 0; col < board.Cols; col++ {
				for movement := 0; movement <= 5; movement++ {
					piece := model.Piece{Cell: model.Cell{Col: col, Row: row}, Movement: movement}
					s.Equal(naiveMovementRange(board, piece), MovementRange(board, piece),
						"board %dx%d piece at (%d,%d) movement %d", board.Rows, board.Cols, col, row, movement)
				}
			}
		}
	}
}

// naiveMovementRange repeatedly expands a set by one step in every direction
// and de-duplicates. It is slow but obviously correct.
func naiveMovementRange(board model.Board, piece model.Piece) []model.Cell {
	reached := []model.Cell{piece.Cell}
	for i := 0; i < piece.Movement; i++ {
		var expanded []model.Cell
		for _, c := range reached {
			expanded = append(expanded, c)
			for _, n := range c.Neighbours() {
				if board.Contains(n) {
					expanded = append(expanded, n)
				}
			}
		}
		reached = dedupe(expanded)
	}
	reached = dedupe(reached)
	SortCells(reached)
	return reached
}

func dedupe(cells []model.Cell) []model.Cell {
	seen := map[model.Cell]bool{}
	var out []model.Cell
	for _, c := range cells {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
