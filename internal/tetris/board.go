package tetris

// Cell is one tile of a player's stack.
type Cell struct {
	Filled bool `json:"isFilled"`
	Color  RGBA `json:"color"`
}

// Stack is the fixed Rows*Cols grid of locked cells, row-major
// (index = row*Cols + col). It is never resized; only cells mutate.
type Stack []Cell

// NewStack returns an empty board.
func NewStack() Stack {
	return make(Stack, Rows*Cols)
}

// Commit writes the piece's four cells into the stack. The caller must
// have already seen the piece go inactive; collision was evaluated
// against this stack before the write.
func (s Stack) Commit(p *Piece) {
	for _, pt := range p.Points() {
		col := (p.X() + pt.X) / Step
		row := (p.Y() + pt.Y) / Step
		s[row*Cols+col] = Cell{Filled: true, Color: p.Color()}
	}
}

// ClearFullRows scans top to bottom, removes every full row and shifts
// the rows above it down by one. Returns the number of rows cleared.
func (s Stack) ClearFullRows() int {
	count := 0
	for row := 0; row < Rows; row++ {
		full := true
		for col := 0; col < Cols; col++ {
			if !s[row*Cols+col].Filled {
				full = false
				break
			}
		}
		if full {
			count++
			s.removeRow(row)
		}
	}
	return count
}

func (s Stack) removeRow(row int) {
	for col := 0; col < Cols; col++ {
		s[row*Cols+col] = Cell{}
	}
	s.moveDownUpperLines(row)
}

// moveDownUpperLines shifts every row strictly above row down by one
// and empties row 0. Cell values are copied, never aliased; the rows
// here are value slots in one flat slice, so each assignment is a copy
// by construction.
func (s Stack) moveDownUpperLines(row int) {
	for y := row - 1; y >= 0; y-- {
		for col := 0; col < Cols; col++ {
			s[(y+1)*Cols+col] = s[y*Cols+col]
		}
	}
	for col := 0; col < Cols; col++ {
		s[col] = Cell{}
	}
}
