package tetris

// Board geometry, in pixels. A tile occupies TileWidth x TileHeight and
// tiles are laid out Step apart, so every anchor and offset is a
// multiple of Step and grid indices are pixel / Step.
const (
	Rows       = 20
	Cols       = 10
	TileWidth  = 30
	TileHeight = 30
	Spacing    = 2
	Step       = TileWidth + Spacing

	BoardWidth  = TileWidth*Cols + Spacing*(Cols-1)
	BoardHeight = TileHeight*Rows + Spacing*(Rows-1)

	// CanvasCenter is the spawn anchor x, one whole tile step left of
	// the board's middle column.
	CanvasCenter = Step * (Cols/2 - 1)
)

// PieceType names one of the seven tetromino shapes.
type PieceType string

const (
	Bar    PieceType = "bar"
	LeftL  PieceType = "left_L"
	RightL PieceType = "right_L"
	Cube   PieceType = "cube"
	T      PieceType = "T"
	Z      PieceType = "Z"
	RevZ   PieceType = "rev_Z"
)

// PieceTypes lists every shape, in the order the randomizer draws from.
var PieceTypes = []PieceType{Bar, LeftL, RightL, Cube, T, Z, RevZ}

// Point is a pixel offset relative to a piece's anchor.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RGBA is a wire-compatible color. Alpha is randomized per piece.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

const w, h = Step, Step

// points holds the four cell offsets for each shape in each of its four
// rotation states.
var points = map[PieceType][4][4]Point{
	Bar: {
		{{0, 0}, {w, 0}, {2 * w, 0}, {3 * w, 0}},
		{{2 * w, 0}, {2 * w, h}, {2 * w, 2 * h}, {2 * w, 3 * h}},
		{{0, h}, {w, h}, {2 * w, h}, {3 * w, h}},
		{{w, 0}, {w, h}, {w, 2 * h}, {w, 3 * h}},
	},
	LeftL: {
		{{0, 0}, {0, h}, {w, h}, {2 * w, h}},
		{{2 * w, 0}, {w, 0}, {w, h}, {w, 2 * h}},
		{{2 * w, 2 * h}, {2 * w, h}, {w, h}, {0, h}},
		{{0, 2 * h}, {w, 2 * h}, {w, h}, {w, 0}},
	},
	RightL: {
		{{2 * w, 0}, {0, h}, {w, h}, {2 * w, h}},
		{{2 * w, 2 * h}, {w, 0}, {w, h}, {w, 2 * h}},
		{{0, 2 * h}, {2 * w, h}, {w, h}, {0, h}},
		{{0, 0}, {w, 2 * h}, {w, h}, {w, 0}},
	},
	Cube: {
		{{0, 0}, {w, 0}, {0, h}, {w, h}},
		{{0, 0}, {w, 0}, {0, h}, {w, h}},
		{{0, 0}, {w, 0}, {0, h}, {w, h}},
		{{0, 0}, {w, 0}, {0, h}, {w, h}},
	},
	T: {
		{{0, h}, {w, h}, {w, 0}, {2 * w, h}},
		{{w, 0}, {w, h}, {2 * w, h}, {w, 2 * h}},
		{{2 * w, h}, {w, h}, {w, 2 * h}, {0, h}},
		{{w, 2 * h}, {w, h}, {0, h}, {w, 0}},
	},
	Z: {
		{{0, 0}, {w, 0}, {w, h}, {2 * w, h}},
		{{2 * w, 0}, {2 * w, h}, {w, h}, {w, 2 * h}},
		{{2 * w, 2 * h}, {w, 2 * h}, {w, h}, {0, h}},
		{{0, 2 * h}, {0, h}, {w, h}, {w, 0}},
	},
	RevZ: {
		{{0, h}, {w, h}, {w, 0}, {2 * w, 0}},
		{{w, 0}, {w, h}, {2 * w, h}, {2 * w, 2 * h}},
		{{2 * w, h}, {w, h}, {w, 2 * h}, {0, 2 * h}},
		{{w, 2 * h}, {w, h}, {0, h}, {0, 0}},
	},
}
