// Package repairman implements the worker side of the protocol: the
// Moving -> Arrived -> (Repairing | Reading) -> Messaging loop, the
// private belief ledger, and the completion check that lets each
// worker halt on its own evidence without any rendezvous.
package repairman

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"repairtown.ai/internal/sim/grid"
	"repairtown.ai/internal/sim/world"
)

// Result is what one worker reports after it halts.
type Result struct {
	ID       string
	Repaired int // houses this worker personally fixed
	Belief   int // global repairs it had confirmed when it stopped
	Visits   int // house visits, for throughput reporting
}

type Options struct {
	MoveDelay   time.Duration
	RepairDelay time.Duration

	// Policy picks the next step. Nil means NewSweepPolicy, the
	// default explore-nearest-unknown strategy.
	Policy Policy
}

type Repairman struct {
	id    string
	world *world.World
	goal  int

	cur    grid.Coord
	posBox atomic.Int64 // packed cur, readable by observers without locks

	policy Policy

	// ledger[w] is the highest personal repair count this worker has
	// confirmed for repairman w, own entry included. Entries only grow,
	// so the belief (the sum) is monotonically non-decreasing.
	ledger    map[string]int
	belief    int
	beliefBox atomic.Int64 // published copy of belief, for observers
	visits    int

	moveDelay   time.Duration
	repairDelay time.Duration
}

// New places a worker at start. The rng must be private to this worker;
// it drives movement only.
func New(id string, w *world.World, start grid.Coord, rng *rand.Rand, opts Options) *Repairman {
	r := &Repairman{
		id:          id,
		world:       w,
		goal:        w.BrokenAtStart(),
		cur:         start,
		policy:      opts.Policy,
		ledger:      make(map[string]int),
		moveDelay:   opts.MoveDelay,
		repairDelay: opts.RepairDelay,
	}
	if r.policy == nil {
		r.policy = NewSweepPolicy(w.Dims(), rng)
	}
	r.publishPos()
	return r
}

func (r *Repairman) ID() string { return r.id }

// Belief is the worker's running lower bound on global repairs. Safe
// from any goroutine; frame sampling reads it while the worker runs.
func (r *Repairman) Belief() int { return int(r.beliefBox.Load()) }

// Pos is the worker's last published position. Safe from any
// goroutine; meant for frame sampling, not coordination.
func (r *Repairman) Pos() grid.Coord {
	v := r.posBox.Load()
	return grid.Coord{Row: int(v >> 32), Col: int(int32(v))}
}

func (r *Repairman) publishPos() {
	r.posBox.Store(int64(r.cur.Row)<<32 | int64(uint32(r.cur.Col)))
}

// Work runs the worker until its belief reaches the known broken-house
// total. ctx is an operational override only: cancelling it abandons
// the worker mid-protocol, it is not part of the coordination design.
func (r *Repairman) Work(ctx context.Context) Result {
	for r.belief < r.goal && ctx.Err() == nil {
		r.visit()
		if r.belief >= r.goal {
			break
		}
		r.move()
	}
	return Result{ID: r.id, Repaired: r.ledger[r.id], Belief: r.belief, Visits: r.visits}
}

// visit is the Arrived -> (Repairing | Reading) -> Messaging leg: one
// lock acquisition, at most one house held, released on every path.
func (r *Repairman) visit() {
	r.visits++
	r.world.Visit(r.cur, func(h *world.House) {
		if h.Status == world.StatusBroken {
			if r.repairDelay > 0 {
				time.Sleep(r.repairDelay)
			}
			h.Status = world.StatusFixed
			r.bump(r.id, r.ledger[r.id]+1)
		}

		// Reading: fold the previous visitor's note into the ledger.
		if h.Message != nil {
			for w, n := range h.Message.Tallies {
				r.bump(w, n)
			}
		}

		// Messaging: overwrite the slot with the merged ledger. The
		// merge above guarantees the new Repaired is >= the old one.
		h.Message = &world.Message{
			Repaired: r.belief,
			Writer:   r.id,
			Tallies:  cloneTallies(r.ledger),
		}
	})
	r.policy.Visited(r.cur)
}

func (r *Repairman) move() {
	if r.moveDelay > 0 {
		time.Sleep(r.moveDelay)
	}
	r.cur = r.policy.Next(r.cur)
	r.publishPos()
}

// bump raises one ledger entry, never lowers it.
func (r *Repairman) bump(w string, n int) {
	if n <= r.ledger[w] {
		return
	}
	r.belief += n - r.ledger[w]
	r.ledger[w] = n
	r.beliefBox.Store(int64(r.belief))
}

func cloneTallies(m map[string]int) map[string]int {
	c := make(map[string]int, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
