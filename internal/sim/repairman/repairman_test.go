package repairman

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"repairtown.ai/internal/sim/grid"
	"repairtown.ai/internal/sim/world"
)

func testWorld(t *testing.T, rows, cols, broken int, seed int64) *world.World {
	t.Helper()
	cfg := world.Config{Rows: rows, Cols: cols, Repairmen: 1, BrokenHouses: broken, Seed: seed, FrameEveryMs: 100}
	w, err := world.New(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func findBroken(t *testing.T, w *world.World) grid.Coord {
	t.Helper()
	s := w.Snapshot()
	for row := 0; row < s.Dims.Rows; row++ {
		for col := 0; col < s.Dims.Cols; col++ {
			c := grid.Coord{Row: row, Col: col}
			if s.At(c).Status == world.StatusBroken {
				return c
			}
		}
	}
	t.Fatal("no broken house in world")
	return grid.Coord{}
}

// A fresh worker arriving at a broken house with an empty slot repairs
// it and leaves repaired-count 1 under its own name.
func TestVisit_FirstRepairWritesMessage(t *testing.T) {
	w := testWorld(t, 4, 4, 3, 9)
	start := findBroken(t, w)
	r := New("R1", w, start, rand.New(rand.NewSource(1)), Options{})

	r.visit()

	if got := r.Belief(); got != 1 {
		t.Fatalf("belief after first repair: %d, want 1", got)
	}
	w.Visit(start, func(h *world.House) {
		if h.Status != world.StatusFixed {
			t.Error("house still broken after visit")
		}
		if h.Message == nil || h.Message.Repaired != 1 || h.Message.Writer != "R1" {
			t.Errorf("message after first repair: %+v", h.Message)
		}
	})
}

// Reading a note can only raise the ledger; revisiting stale notes
// never lowers the belief.
func TestVisit_BeliefMonotone(t *testing.T) {
	w := testWorld(t, 4, 4, 3, 9)
	c := grid.Coord{Row: 0, Col: 0}
	w.Visit(c, func(h *world.House) {
		h.Status = world.StatusFixed
		h.Message = &world.Message{Repaired: 3, Writer: "R9", Tallies: map[string]int{"R9": 3}}
	})

	r := New("R1", w, c, rand.New(rand.NewSource(1)), Options{})
	r.visit()
	if got := r.Belief(); got != 3 {
		t.Fatalf("belief after reading note: %d, want 3", got)
	}

	// Stale note: lower tally for R9 must not pull the belief down.
	w.Visit(c, func(h *world.House) {
		h.Message = &world.Message{Repaired: 1, Writer: "R9", Tallies: map[string]int{"R9": 1}}
	})
	r.visit()
	if got := r.Belief(); got != 3 {
		t.Fatalf("belief dropped on stale note: %d, want 3", got)
	}

	// The rewritten slot carries the merged (higher) tally back.
	w.Visit(c, func(h *world.House) {
		if h.Message.Tallies["R9"] != 3 || h.Message.Repaired != 3 {
			t.Errorf("merge lost information: %+v", h.Message)
		}
		if h.Message.Writer != "R1" {
			t.Errorf("last writer should own the slot: %+v", h.Message)
		}
	})
}

// X = 1 degrades to a sequential walk that must still fix everything
// and halt on its own count.
func TestWork_SingleWorkerFixesAll(t *testing.T) {
	w := testWorld(t, 5, 5, 6, 42)
	r := New("R1", w, grid.Coord{Row: 0, Col: 0}, rand.New(rand.NewSource(2)), Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res := r.Work(ctx)

	if res.Repaired != 6 || res.Belief != 6 {
		t.Fatalf("result %+v, want repaired=6 belief=6", res)
	}
	if !w.Snapshot().AllFixed() {
		t.Fatal("world not fully fixed after worker halted")
	}
}

// Two workers that split the repairs must still both learn the full
// total through house notes alone.
func TestWork_GossipConvergence(t *testing.T) {
	w := testWorld(t, 6, 6, 8, 7)
	r1 := New("R1", w, grid.Coord{Row: 0, Col: 0}, rand.New(rand.NewSource(3)), Options{})
	r2 := New("R2", w, grid.Coord{Row: 5, Col: 5}, rand.New(rand.NewSource(4)), Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, r := range []*Repairman{r1, r2} {
		wg.Add(1)
		go func(i int, r *Repairman) {
			defer wg.Done()
			results[i] = r.Work(ctx)
		}(i, r)
	}
	wg.Wait()

	total := 0
	for _, res := range results {
		if res.Belief != 8 {
			t.Errorf("%s belief %d, want 8", res.ID, res.Belief)
		}
		total += res.Repaired
	}
	if total != 8 {
		t.Errorf("total repairs %d, want exactly 8 (no lost or double repairs)", total)
	}
	if !w.Snapshot().AllFixed() {
		t.Error("world not fully fixed")
	}
}
