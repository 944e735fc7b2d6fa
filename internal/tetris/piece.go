package tetris

// Piece is one falling tetromino. The anchor (x, y) plus the current
// rotation state's four offsets give the absolute cell positions.
//
// active flips to false exactly once, when a gravity advance (SetY) is
// rejected by collision; it never comes back. disabled is set by the
// tick driver after the cells are committed to the stack, after which
// every mutation is a no-op.
type Piece struct {
	typ      PieceType
	color    RGBA
	x, y     int
	rotation int
	points   [4]Point
	active   bool
	disabled bool
}

// NewPiece spawns a piece of the given type at the top of the board.
func NewPiece(typ PieceType, color RGBA) *Piece {
	return &Piece{
		typ:    typ,
		color:  color,
		x:      CanvasCenter,
		y:      0,
		points: points[typ][0],
		active: true,
	}
}

func (p *Piece) Type() PieceType  { return p.typ }
func (p *Piece) Color() RGBA      { return p.color }
func (p *Piece) X() int           { return p.x }
func (p *Piece) Y() int           { return p.y }
func (p *Piece) Points() [4]Point { return p.points }
func (p *Piece) Active() bool     { return p.active }
func (p *Piece) Disabled() bool   { return p.disabled }

// Disable locks the piece. Idempotent; called by the driver once the
// piece is inactive, before committing its cells.
func (p *Piece) Disable() { p.disabled = true }

// PieceState is the wire snapshot of a piece.
type PieceState struct {
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Points [4]Point `json:"points"`
	Color  RGBA     `json:"color"`
}

func (p *Piece) State() PieceState {
	return PieceState{X: p.x, Y: p.y, Points: p.points, Color: p.color}
}

// SetX moves the anchor to an absolute x. Rejected silently if any cell
// would leave the board sideways or overlap the stack.
func (p *Piece) SetX(x int, stack Stack) {
	if p.disabled {
		return
	}
	if p.hittingSide(x, stack) {
		return
	}
	p.x = x
}

// SetY is the gravity advance. On collision the anchor stays put and
// the piece goes inactive; this is the only path to inactive.
func (p *Piece) SetY(y int, stack Stack) {
	if p.disabled {
		return
	}
	if p.hittingDown(y, stack) {
		p.active = false
		return
	}
	p.y = y
}

// Down is the voluntary soft drop: one tile step, silently rejected on
// collision. It never touches the active flag, so lock detection stays
// with the gravity tick.
func (p *Piece) Down(stack Stack) {
	if p.disabled {
		return
	}
	y := p.y + Step
	if p.hittingDown(y, stack) {
		return
	}
	p.y = y
}

// Rotate advances to the next rotation state if all four resulting
// cells are in bounds and unoccupied. Reports whether it rotated.
func (p *Piece) Rotate(stack Stack) bool {
	if p.disabled || !p.canRotate(stack) {
		return false
	}
	p.rotation = (p.rotation + 1) % 4
	p.points = points[p.typ][p.rotation]
	return true
}

func (p *Piece) canRotate(stack Stack) bool {
	next := points[p.typ][(p.rotation+1)%4]
	for _, pt := range next {
		if p.y+pt.Y > BoardHeight {
			return false
		}
		if p.x+pt.X < 0 || p.x+pt.X > BoardWidth {
			return false
		}
		col := (p.x + pt.X) / Step
		row := (p.y + pt.Y) / Step
		if stack[row*Cols+col].Filled {
			return false
		}
	}
	return true
}

func (p *Piece) hittingDown(newY int, stack Stack) bool {
	for _, pt := range p.points {
		if newY+pt.Y > BoardHeight {
			return true
		}
		col := (p.x + pt.X) / Step
		row := (newY + pt.Y) / Step
		if stack[row*Cols+col].Filled {
			return true
		}
	}
	return false
}

func (p *Piece) hittingSide(newX int, stack Stack) bool {
	for _, pt := range p.points {
		if newX+pt.X < 0 || newX+pt.X > BoardWidth {
			return true
		}
		col := (newX + pt.X) / Step
		row := (p.y + pt.Y) / Step
		if stack[row*Cols+col].Filled {
			return true
		}
	}
	return false
}
