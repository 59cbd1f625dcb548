// Package grid holds the coordinate math for the rectangular town grid.
// It is pure data manipulation: no locking, no randomness of its own
// (callers pass their *rand.Rand so runs stay reproducible).
package grid

import (
	"fmt"
	"math/rand"
)

// Dims is the fixed size of a grid, immutable after world construction.
type Dims struct {
	Rows int
	Cols int
}

func (d Dims) Count() int { return d.Rows * d.Cols }

// Contains reports whether c lies inside the grid.
func (d Dims) Contains(c Coord) bool {
	return c.Row >= 0 && c.Row < d.Rows && c.Col >= 0 && c.Col < d.Cols
}

// Index flattens c to a row-major index. Out-of-range coordinates are a
// programming error, not a runtime condition.
func (d Dims) Index(c Coord) int {
	if !d.Contains(c) {
		panic(fmt.Sprintf("grid: coord %v outside %dx%d", c, d.Rows, d.Cols))
	}
	return c.Row*d.Cols + c.Col
}

// Coord is a cell position; Row and Col are zero-based.
type Coord struct {
	Row int
	Col int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directions = [4]Direction{Up, Down, Left, Right}

// Step returns the coordinate one cell away in dir and whether it is
// still inside the grid.
func (c Coord) Step(dir Direction, d Dims) (Coord, bool) {
	n := c
	switch dir {
	case Up:
		n.Row--
	case Down:
		n.Row++
	case Left:
		n.Col--
	case Right:
		n.Col++
	}
	return n, d.Contains(n)
}

// Neighbors returns the in-range 4-neighbourhood of c.
func (c Coord) Neighbors(d Dims) []Coord {
	out := make([]Coord, 0, 4)
	for _, dir := range directions {
		if n, ok := c.Step(dir, d); ok {
			out = append(out, n)
		}
	}
	return out
}

// RandomCoord draws a uniform cell position.
func RandomCoord(rng *rand.Rand, d Dims) Coord {
	return Coord{Row: rng.Intn(d.Rows), Col: rng.Intn(d.Cols)}
}

// RandomCoordSet draws n distinct cell positions via a shuffle of the
// flattened index space, so layouts depend only on the rng state.
func RandomCoordSet(rng *rand.Rand, d Dims, n int) []Coord {
	if n > d.Count() {
		panic(fmt.Sprintf("grid: cannot pick %d distinct cells from %d", n, d.Count()))
	}
	idx := rng.Perm(d.Count())[:n]
	out := make([]Coord, n)
	for i, v := range idx {
		out[i] = Coord{Row: v / d.Cols, Col: v % d.Cols}
	}
	return out
}
