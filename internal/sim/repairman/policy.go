package repairman

import (
	"math/rand"

	"repairtown.ai/internal/sim/grid"
)

// Policy decides where a worker walks. Correctness only needs every
// house to stay reachable with nonzero probability forever; anything
// satisfying that can be swapped in without touching the protocol.
type Policy interface {
	// Visited tells the policy the worker just inspected c.
	Visited(c grid.Coord)
	// Next returns an in-grid cell adjacent to cur.
	Next(cur grid.Coord) grid.Coord
}

// SweepPolicy walks the shortest path to the nearest cell it has not
// inspected during the current sweep, with random tie-breaking. Once
// everything has been seen once the sweep map resets, so the worker
// keeps re-covering the grid and keeps reading fresh messages — that
// reset is what makes the walk irreducible and the termination
// argument hold even when all the news a worker needs was written
// after its first pass.
type SweepPolicy struct {
	dims grid.Dims
	rng  *rand.Rand
	seen map[grid.Coord]bool
}

func NewSweepPolicy(d grid.Dims, rng *rand.Rand) *SweepPolicy {
	return &SweepPolicy{dims: d, rng: rng, seen: make(map[grid.Coord]bool, d.Count())}
}

func (p *SweepPolicy) Visited(c grid.Coord) { p.seen[c] = true }

func (p *SweepPolicy) Next(cur grid.Coord) grid.Coord {
	if len(p.seen) >= p.dims.Count() {
		p.seen = make(map[grid.Coord]bool, p.dims.Count())
		p.seen[cur] = true // standing here; the new sweep targets everything else
	}
	path := grid.NearestPath(p.dims, cur, p.rng, func(c grid.Coord) bool { return !p.seen[c] })
	if len(path) >= 2 {
		return path[1]
	}
	// No reachable unseen cell besides cur itself (1x1 grid, or cur is
	// the lone unseen survivor): wander one random step.
	return randomStep(p.dims, cur, p.rng)
}

// RandomWalkPolicy is the trivial irreducible policy: a uniform step
// to any in-grid neighbour. It is the fallback the liveness guarantee
// rests on and a useful baseline in tests.
type RandomWalkPolicy struct {
	dims grid.Dims
	rng  *rand.Rand
}

func NewRandomWalkPolicy(d grid.Dims, rng *rand.Rand) *RandomWalkPolicy {
	return &RandomWalkPolicy{dims: d, rng: rng}
}

func (p *RandomWalkPolicy) Visited(grid.Coord) {}

func (p *RandomWalkPolicy) Next(cur grid.Coord) grid.Coord {
	return randomStep(p.dims, cur, p.rng)
}

func randomStep(d grid.Dims, cur grid.Coord, rng *rand.Rand) grid.Coord {
	n := cur.Neighbors(d)
	if len(n) == 0 {
		return cur // 1x1 grid
	}
	return n[rng.Intn(len(n))]
}
