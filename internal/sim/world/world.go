// Package world owns the town grid: the houses, their per-house locks,
// and the message slots repairmen coordinate through. There is no
// global mutable state here on purpose — the dimensions and the
// initial broken count are fixed at construction, and everything else
// lives behind one mutex per house so workers on different houses
// never contend.
package world

import (
	"fmt"
	"math/rand"

	"repairtown.ai/internal/sim/grid"
)

type World struct {
	dims   grid.Dims
	houses []House

	// Number of houses built Broken. Immutable; this is the constant
	// every repairman's completion check compares its belief against.
	brokenAtStart int
}

// New builds the grid and breaks cfg.BrokenCount() houses chosen by
// rng. The same rng state always yields the same layout.
func New(cfg Config, rng *rand.Rand) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		dims:          grid.Dims{Rows: cfg.Rows, Cols: cfg.Cols},
		brokenAtStart: cfg.BrokenCount(),
	}
	w.houses = make([]House, w.dims.Count())
	for i := range w.houses {
		w.houses[i].Status = StatusFixed
	}
	for _, c := range grid.RandomCoordSet(rng, w.dims, w.brokenAtStart) {
		w.houses[w.dims.Index(c)].Status = StatusBroken
	}
	return w, nil
}

func (w *World) Dims() grid.Dims { return w.dims }
func (w *World) BrokenAtStart() int { return w.brokenAtStart }

// Visit runs fn with the house at c locked. The (Status, Message) pair
// may only be observed or mutated inside fn; the lock is released on
// every path out, including a panic in fn.
func (w *World) Visit(c grid.Coord, fn func(h *House)) {
	h := &w.houses[w.dims.Index(c)]
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h)
}

// HouseSnapshot is a read-only copy of one house taken under its lock.
type HouseSnapshot struct {
	Status  Status
	Message *Message
}

type Snapshot struct {
	Dims   grid.Dims
	Houses []HouseSnapshot
	Fixed  int
}

// Snapshot copies every house one lock at a time. Each house is
// internally consistent; the grid as a whole is not a single instant,
// which is fine for rendering and journaling but must not be fed back
// into the coordination protocol.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{Dims: w.dims, Houses: make([]HouseSnapshot, len(w.houses))}
	for i := range w.houses {
		h := &w.houses[i]
		h.mu.Lock()
		s.Houses[i] = HouseSnapshot{Status: h.Status, Message: h.Message.Clone()}
		h.mu.Unlock()
		if s.Houses[i].Status == StatusFixed {
			s.Fixed++
		}
	}
	return s
}

// At returns the snapshot entry for c.
func (s Snapshot) At(c grid.Coord) HouseSnapshot {
	return s.Houses[s.Dims.Index(c)]
}

// AllFixed reports whether every house in the snapshot is Fixed.
func (s Snapshot) AllFixed() bool { return s.Fixed == len(s.Houses) }

func (s Snapshot) String() string {
	return fmt.Sprintf("%dx%d fixed=%d/%d", s.Dims.Rows, s.Dims.Cols, s.Fixed, len(s.Houses))
}
