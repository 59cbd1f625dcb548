// Package runner wires one run together: it builds the world from the
// seeded config, spawns one goroutine per repairman, samples frames
// for observers while the crew works, joins everybody and produces the
// run report. It never participates in the coordination protocol — all
// it shares with the workers is the world handle.
package runner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"repairtown.ai/internal/protocol"
	"repairtown.ai/internal/sim/grid"
	"repairtown.ai/internal/sim/repairman"
	"repairtown.ai/internal/sim/world"
)

// FrameSink receives sampled frames. Renderers, the runlog and the
// websocket hub all hang off this.
type FrameSink interface {
	Frame(f protocol.FrameMsg)
}

// FrameFunc adapts a function to FrameSink.
type FrameFunc func(f protocol.FrameMsg)

func (fn FrameFunc) Frame(f protocol.FrameMsg) { fn(f) }

type Runner struct {
	cfg world.Config
	log *log.Logger

	world   *world.World
	workers []*repairman.Repairman

	mu    sync.Mutex
	sinks []FrameSink
	seq   uint64
	start time.Time
}

// New builds the world and the crew. Layout, start positions and each
// worker's private movement rng all derive from cfg.Seed, so setup is
// reproducible even though scheduling is not.
func New(cfg world.Config, logger *log.Logger) (*Runner, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	w, err := world.New(cfg, rng)
	if err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, log: logger, world: w}
	opts := repairman.Options{MoveDelay: cfg.MoveDelay(), RepairDelay: cfg.RepairDelay()}
	for i := 0; i < cfg.Repairmen; i++ {
		id := workerID(i)
		start := grid.RandomCoord(rng, w.Dims())
		wrng := rand.New(rand.NewSource(rng.Int63()))
		r.workers = append(r.workers, repairman.New(id, w, start, wrng, opts))
	}
	return r, nil
}

func workerID(i int) string { return fmt.Sprintf("R%d", i+1) }

func (r *Runner) World() *world.World { return r.world }

func (r *Runner) Params() protocol.WorldParams {
	d := r.world.Dims()
	return protocol.WorldParams{
		Rows:          d.Rows,
		Cols:          d.Cols,
		Repairmen:     len(r.workers),
		BrokenAtStart: r.world.BrokenAtStart(),
		Seed:          r.cfg.Seed,
	}
}

// AddSink registers a frame consumer. Safe to call while running;
// late subscribers simply start at the current frame.
func (r *Runner) AddSink(s FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Frame samples the world and the workers right now. Used by the frame
// loop and by pull-style observers (websocket connections).
func (r *Runner) Frame() protocol.FrameMsg {
	snap := r.world.Snapshot()

	r.mu.Lock()
	r.seq++
	seq := r.seq
	started := r.start
	r.mu.Unlock()
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}

	f := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		ElapsedMs:       elapsed.Milliseconds(),
		Rows:            snap.Dims.Rows,
		Cols:            snap.Dims.Cols,
		Fixed:           snap.Fixed,
		Total:           len(snap.Houses),
		Houses:          make([]protocol.HouseState, len(snap.Houses)),
	}
	for i, h := range snap.Houses {
		hs := protocol.HouseState{Status: h.Status.String()}
		if h.Message != nil {
			hs.Repaired = h.Message.Repaired
			hs.Writer = h.Message.Writer
		}
		f.Houses[i] = hs
	}
	for _, wk := range r.workers {
		pos := wk.Pos()
		f.Workers = append(f.Workers, protocol.WorkerState{
			ID: wk.ID(), Row: pos.Row, Col: pos.Col, Belief: wk.Belief(),
		})
	}
	return f
}

// Run executes the whole simulation and blocks until every worker has
// independently halted. ctx cancellation is an operational override
// that abandons in-flight workers; a natural run needs no deadline.
func (r *Runner) Run(ctx context.Context) protocol.RunReport {
	n := len(r.workers)
	results := make([]repairman.Result, n)

	r.mu.Lock()
	r.start = time.Now()
	r.mu.Unlock()
	startedAt := time.Now()

	var wg sync.WaitGroup
	for i, wk := range r.workers {
		wg.Add(1)
		go func(i int, wk *repairman.Repairman) {
			defer wg.Done()
			results[i] = wk.Work(ctx)
		}(i, wk)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	every := r.cfg.FrameEvery()
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-done:
			break loop
		case <-ticker.C:
			r.emit(r.Frame())
		}
	}
	// One closing frame so every sink sees the final state.
	r.emit(r.Frame())

	elapsed := time.Since(startedAt)
	report := protocol.RunReport{
		ProtocolVersion: protocol.Version,
		StartedAt:       startedAt.UTC().Format(time.RFC3339),
		ElapsedMs:       elapsed.Milliseconds(),
		WorldParams:     r.Params(),
		AllFixed:        r.world.Snapshot().AllFixed(),
	}
	for _, res := range results {
		report.Workers = append(report.Workers, protocol.WorkerReport{
			ID: res.ID, Repaired: res.Repaired, Belief: res.Belief, Visits: res.Visits,
		})
	}
	if r.log != nil {
		r.log.Printf("run finished: elapsed=%s repaired=%d/%d all_fixed=%v",
			elapsed.Round(time.Millisecond), report.TotalRepaired(), r.world.BrokenAtStart(), report.AllFixed)
	}
	return report
}

func (r *Runner) emit(f protocol.FrameMsg) {
	r.mu.Lock()
	sinks := make([]FrameSink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()
	for _, s := range sinks {
		s.Frame(f)
	}
}
