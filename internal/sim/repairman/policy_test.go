package repairman

import (
	"math/rand"
	"testing"

	"repairtown.ai/internal/sim/grid"
)

// The sweep must cover the whole grid, and keep covering it after the
// reset — that re-coverage is what the liveness argument rests on.
func TestSweepPolicy_CoversGridTwice(t *testing.T) {
	d := grid.Dims{Rows: 4, Cols: 4}
	p := NewSweepPolicy(d, rand.New(rand.NewSource(5)))

	cur := grid.Coord{Row: 0, Col: 0}
	visited := make(map[grid.Coord]int)
	for step := 0; step < 400; step++ {
		p.Visited(cur)
		visited[cur]++
		cur = p.Next(cur)
		if !d.Contains(cur) {
			t.Fatalf("policy stepped outside the grid: %v", cur)
		}
		done := len(visited) == d.Count()
		if done {
			for _, n := range visited {
				if n < 2 {
					done = false
					break
				}
			}
		}
		if done {
			return
		}
	}
	t.Fatalf("grid not covered twice in 400 steps; coverage: %d/%d cells", len(visited), d.Count())
}

func TestSweepPolicy_StepsAreAdjacent(t *testing.T) {
	d := grid.Dims{Rows: 3, Cols: 5}
	p := NewSweepPolicy(d, rand.New(rand.NewSource(8)))

	cur := grid.Coord{Row: 1, Col: 2}
	for step := 0; step < 100; step++ {
		p.Visited(cur)
		next := p.Next(cur)
		dr := next.Row - cur.Row
		dc := next.Col - cur.Col
		if dr*dr+dc*dc != 1 {
			t.Fatalf("step %d: %v -> %v is not a single move", step, cur, next)
		}
		cur = next
	}
}

func TestRandomWalkPolicy_StaysInGrid(t *testing.T) {
	d := grid.Dims{Rows: 2, Cols: 2}
	p := NewRandomWalkPolicy(d, rand.New(rand.NewSource(9)))

	cur := grid.Coord{}
	seen := make(map[grid.Coord]bool)
	for step := 0; step < 200; step++ {
		cur = p.Next(cur)
		if !d.Contains(cur) {
			t.Fatalf("walk left the grid: %v", cur)
		}
		seen[cur] = true
	}
	if len(seen) < d.Count() {
		t.Fatalf("200 random steps covered only %d/%d cells", len(seen), d.Count())
	}
}
