package model

// Cell is a board coordinate. Col grows rightwards, Row grows downwards.
type Cell struct {
	Col int
	Row int
}

// Neighbours returns the four orthogonally adjacent cells, unclipped
func (c Cell) Neighbours() [4]Cell {
	return [4]Cell{
		{Col: c.Col, Row: c.Row - 1},
		{Col: c.Col + 1, Row: c.Row},
		{Col: c.Col, Row: c.Row + 1},
		{Col: c.Col - 1, Row: c.Row},
	}
}

// Board describes the rectangular grid a game is played on
type Board struct {
	Rows int
	Cols int
}

// Contains reports whether the cell lies inside the board
func (b Board) Contains(c Cell) bool {
	return c.Col >= 0 && c.Col < b.Cols && c.Row >= 0 && c.Row < b.Rows
}

// Size returns the number of cells on the board
func (b Board) Size() int {
	return b.Rows * b.Cols
}
