package puzzle

import (
	"fmt"
	"math/rand"
	"strings"
)

// Shape is an immutable block footprint. A shape is built once and shared
// read-only by every board, hand and rollout.
type Shape struct {
	name  string
	rows  int
	cols  int
	cells []bool // row-major, rows*cols
}

// NewShape builds a shape from a boolean grid. Every row must have the same
// length and at least one cell must be filled.
func NewShape(name string, grid [][]bool) (Shape, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return Shape{}, fmt.Errorf("shape %q: empty grid", name)
	}
	rows, cols := len(grid), len(grid[0])
	if rows > Size || cols > Size {
		return Shape{}, fmt.Errorf("shape %q: %dx%d does not fit a %dx%d board", name, rows, cols, Size, Size)
	}
	cells := make([]bool, 0, rows*cols)
	filled := 0
	for r, row := range grid {
		if len(row) != cols {
			return Shape{}, fmt.Errorf("shape %q: row %d has %d cells, want %d", name, r, len(row), cols)
		}
		for _, c := range row {
			cells = append(cells, c)
			if c {
				filled++
			}
		}
	}
	if filled == 0 {
		return Shape{}, fmt.Errorf("shape %q: no filled cells", name)
	}
	return Shape{name: name, rows: rows, cols: cols, cells: cells}, nil
}

// MustShape builds a shape from text rows where '#' is filled and anything
// else is empty. It panics on malformed input, so catalog mistakes surface at
// package initialization.
func MustShape(name string, rows ...string) Shape {
	grid := make([][]bool, len(rows))
	for i, row := range rows {
		grid[i] = make([]bool, len(row))
		for j, ch := range row {
			grid[i][j] = ch == '#'
		}
	}
	s, err := NewShape(name, grid)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the catalog name of the shape.
func (s Shape) Name() string { return s.name }

// Rows returns the height of the bounding box.
func (s Shape) Rows() int { return s.rows }

// Cols returns the width of the bounding box.
func (s Shape) Cols() int { return s.cols }

// Filled reports whether the cell at (r, c) of the bounding box is part of the shape.
func (s Shape) Filled(r, c int) bool {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		return false
	}
	return s.cells[r*s.cols+c]
}

// Cells returns the offsets of the filled cells in row-major order.
func (s Shape) Cells() []Pos {
	out := make([]Pos, 0, len(s.cells))
	for i, c := range s.cells {
		if c {
			out = append(out, Pos{Row: i / s.cols, Col: i % s.cols})
		}
	}
	return out
}

// Size returns the number of filled cells.
func (s Shape) Size() int {
	n := 0
	for _, c := range s.cells {
		if c {
			n++
		}
	}
	return n
}

// String renders the shape with '#' for filled cells and '.' otherwise.
func (s Shape) String() string {
	var sb strings.Builder
	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			if s.Filled(r, c) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if r < s.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Catalog is the fixed set of shapes dealt to players.
var Catalog = []Shape{
	MustShape("mono", "#"),
	MustShape("bar2", "##"),
	MustShape("bar3", "###"),
	MustShape("bar4", "####"),
	MustShape("bar5", "#####"),
	MustShape("ell", "#.", "#.", "##"),
	MustShape("jay", ".#", ".#", "##"),
	MustShape("zed", "##.", ".##"),
	MustShape("tee", "###", ".#."),
	MustShape("square2", "##", "##"),
	MustShape("square3", "###", "###", "###"),
}

// RandomShape picks a catalog entry uniformly.
func RandomShape(rng *rand.Rand) Shape {
	return Catalog[rng.Intn(len(Catalog))]
}
