package grid

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a cell slice does not match the declared size.
var ErrShape = errors.New("grid: cell count does not match width*height")

// Point indexes a cell.
type Point struct {
	X int
	Y int
}

// IndexError is the panic value for direct access outside the grid.
type IndexError struct {
	X, Y          int
	Width, Height int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("grid: index (%d,%d) out of bounds %dx%d", e.X, e.Y, e.Width, e.Height)
}

// Grid is a fixed-size dense 2D array stored row-major: index = y*width + x.
type Grid[T any] struct {
	cells  []T
	width  int
	height int
}

// NewFilled allocates width*height cells and sets each from gen. The order
// gen is called in is not part of the contract.
func NewFilled[T any](width, height int, gen func(Point) T, def T) *Grid[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("grid: negative size %dx%d", width, height))
	}
	cells := make([]T, width*height)
	for i := range cells {
		cells[i] = def
		if gen != nil {
			cells[i] = gen(Point{X: i % width, Y: i / width})
		}
	}
	return &Grid[T]{cells: cells, width: width, height: height}
}

// FromCells adopts a copy of cells as a width x height grid.
func FromCells[T any](width, height int, cells []T) (*Grid[T], error) {
	if width < 0 || height < 0 || len(cells) != width*height {
		return nil, fmt.Errorf("%w: got %d cells for %dx%d", ErrShape, len(cells), width, height)
	}
	out := make([]T, len(cells))
	copy(out, cells)
	return &Grid[T]{cells: out, width: width, height: height}, nil
}

func (g *Grid[T]) Width() int  { return g.width }
func (g *Grid[T]) Height() int { return g.height }

func (g *Grid[T]) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid[T]) index(x, y int) int {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		panic(&IndexError{X: x, Y: y, Width: g.width, Height: g.height})
	}
	return y*g.width + x
}

// Get returns the cell at p, or false when p is outside the grid.
func (g *Grid[T]) Get(p Point) (T, bool) {
	if !g.InBounds(p) {
		var zero T
		return zero, false
	}
	return g.cells[p.Y*g.width+p.X], true
}

// Ptr returns a pointer to the cell at p, or nil when p is outside the grid.
func (g *Grid[T]) Ptr(p Point) *T {
	if !g.InBounds(p) {
		return nil
	}
	return &g.cells[p.Y*g.width+p.X]
}

// At is for callers that have already range-checked; misuse panics with
// *IndexError.
func (g *Grid[T]) At(x, y int) T {
	return g.cells[g.index(x, y)]
}

// Set panics with *IndexError outside the grid.
func (g *Grid[T]) Set(x, y int, v T) {
	g.cells[g.index(x, y)] = v
}

// ForEach visits every cell once in row-major order.
func (g *Grid[T]) ForEach(fn func(Point, T)) {
	for i, v := range g.cells {
		fn(Point{X: i % g.width, Y: i / g.width}, v)
	}
}

// Cells returns a copy of the backing slice.
func (g *Grid[T]) Cells() []T {
	out := make([]T, len(g.cells))
	copy(out, g.cells)
	return out
}

func (g *Grid[T]) Clone() *Grid[T] {
	return &Grid[T]{cells: g.Cells(), width: g.width, height: g.height}
}
