package puzzle

import (
	"errors"
	"strings"
)

// Size is the width and height of the board.
const Size = 8

// ErrIllegalPlacement is returned when a shape does not fit at the requested
// offset, either because it leaves the board or overlaps a filled cell.
var ErrIllegalPlacement = errors.New("illegal placement")

// Cell is the state of one board square.
type Cell uint8

const (
	Empty Cell = iota
	Occupied
	// RecentlyPlaced marks the cells written by the latest placement. Game
	// logic treats it exactly like Occupied.
	RecentlyPlaced
	// ToClear only appears on boards returned by DetectAndMark.
	ToClear
)

// Filled reports whether the cell holds a block.
func (c Cell) Filled() bool { return c != Empty }

// Pos is an absolute board coordinate or a shape-relative offset.
type Pos struct {
	Row int
	Col int
}

// Board is the 8x8 grid. It is a value type: every mutating operation returns
// a new board and leaves the receiver untouched.
type Board [Size][Size]Cell

// CanPlace reports whether every filled cell of s, anchored with its top-left
// corner at (row, col), lands on an in-bounds empty cell.
func (b *Board) CanPlace(s Shape, row, col int) bool {
	if s.rows == 0 {
		return false
	}
	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			if !s.cells[r*s.cols+c] {
				continue
			}
			br, bc := row+r, col+c
			if br < 0 || br >= Size || bc < 0 || bc >= Size {
				return false
			}
			if b[br][bc].Filled() {
				return false
			}
		}
	}
	return true
}

// Place returns a copy of the board with s written at (row, col) and the list
// of cells it occupied. The new cells are RecentlyPlaced and any previously
// RecentlyPlaced cell is demoted to Occupied.
func (b Board) Place(s Shape, row, col int) (Board, []Pos, error) {
	if !b.CanPlace(s, row, col) {
		return b, nil, ErrIllegalPlacement
	}
	next := b
	for r := range next {
		for c := range next[r] {
			if next[r][c] == RecentlyPlaced {
				next[r][c] = Occupied
			}
		}
	}
	placed := make([]Pos, 0, len(s.cells))
	for _, off := range s.Cells() {
		p := Pos{Row: row + off.Row, Col: col + off.Col}
		next[p.Row][p.Col] = RecentlyPlaced
		placed = append(placed, p)
	}
	return next, placed, nil
}

// DetectAndMark flags every cell of each full row and full column as ToClear.
// Rows are scanned first and contribute 8 blocks each; a full column then
// contributes one block per cell not already flagged by a row. lines counts
// full rows plus full columns.
func (b Board) DetectAndMark() (marked Board, lines, blocks int) {
	marked = b
	for r := 0; r < Size; r++ {
		if !b.rowFull(r) {
			continue
		}
		for c := 0; c < Size; c++ {
			marked[r][c] = ToClear
		}
		lines++
		blocks += Size
	}
	for c := 0; c < Size; c++ {
		if !b.colFull(c) {
			continue
		}
		for r := 0; r < Size; r++ {
			if marked[r][c] != ToClear {
				marked[r][c] = ToClear
				blocks++
			}
		}
		lines++
	}
	return marked, lines, blocks
}

func (b *Board) rowFull(r int) bool {
	for c := 0; c < Size; c++ {
		if !b[r][c].Filled() {
			return false
		}
	}
	return true
}

func (b *Board) colFull(c int) bool {
	for r := 0; r < Size; r++ {
		if !b[r][c].Filled() {
			return false
		}
	}
	return true
}

// Sweep empties every ToClear cell.
func (b Board) Sweep() Board {
	for r := range b {
		for c := range b[r] {
			if b[r][c] == ToClear {
				b[r][c] = Empty
			}
		}
	}
	return b
}

// Feasibility returns, for every anchor in row-major order, whether s can be
// placed with its top-left corner there. Anchors that would push the shape
// off the board are simply false.
func (b *Board) Feasibility(s Shape) [Size * Size]bool {
	var out [Size * Size]bool
	if s.rows == 0 {
		return out
	}
	for r := 0; r <= Size-s.rows; r++ {
		for c := 0; c <= Size-s.cols; c++ {
			out[r*Size+c] = b.CanPlace(s, r, c)
		}
	}
	return out
}

// IsTerminal reports whether no shape in hand fits anywhere on the board.
func (b *Board) IsTerminal(hand Hand) bool {
	for _, s := range hand {
		for r := 0; r <= Size-s.rows; r++ {
			for c := 0; c <= Size-s.cols; c++ {
				if b.CanPlace(s, r, c) {
					return false
				}
			}
		}
	}
	return true
}

// FilledCount returns the number of filled cells.
func (b Board) FilledCount() int {
	n := 0
	for r := range b {
		for c := range b[r] {
			if b[r][c].Filled() {
				n++
			}
		}
	}
	return n
}

// String renders the board one row per line: '.' empty, '#' occupied,
// '@' recently placed, 'x' marked for clearing.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(b[r][c].glyph())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (c Cell) glyph() byte {
	switch c {
	case Occupied:
		return '#'
	case RecentlyPlaced:
		return '@'
	case ToClear:
		return 'x'
	default:
		return '.'
	}
}

// Score is the reward for one placement: cleared blocks, multiplied by the
// number of lines when more than one line clears at once.
func Score(lines, blocks int) int {
	if lines > 1 {
		return blocks * lines
	}
	return blocks
}
