package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"repairtown.ai/internal/persistence/indexdb"
	"repairtown.ai/internal/persistence/runlog"
	"repairtown.ai/internal/render"
	"repairtown.ai/internal/sim/runner"
	"repairtown.ai/internal/sim/world"
	"repairtown.ai/internal/transport/observer"
)

type options struct {
	configPath string

	rows      int
	cols      int
	repairmen int
	broken    int
	seed      int64

	observeAddr string
	runlogPath  string
	dbPath      string
	dataDir     string
	disableDB   bool

	noRender bool
	timeout  time.Duration
}

func main() {
	var opt options
	flag.StringVar(&opt.configPath, "config", "", "path to sim.yaml (optional; defaults apply without it)")
	flag.IntVar(&opt.rows, "rows", 0, "grid rows (overrides config)")
	flag.IntVar(&opt.cols, "cols", 0, "grid cols (overrides config)")
	flag.IntVar(&opt.repairmen, "repairmen", 0, "number of repairman workers (overrides config)")
	flag.IntVar(&opt.broken, "broken", 0, "number of initially broken houses (overrides config)")
	flag.Int64Var(&opt.seed, "seed", 0, "run seed; 0 picks one from the clock")
	flag.StringVar(&opt.observeAddr, "observe", "", "observer http listen address, e.g. 127.0.0.1:8080 (empty to disable)")
	flag.StringVar(&opt.runlogPath, "runlog", "", "frame journal path (.jsonl.zst, empty to disable)")
	flag.StringVar(&opt.dbPath, "db", "", "results index path (default <data>/runs.db)")
	flag.StringVar(&opt.dataDir, "data", "./data", "runtime data directory")
	flag.BoolVar(&opt.disableDB, "disable_db", false, "disable the results index")
	flag.BoolVar(&opt.noRender, "no_render", false, "do not draw the grid while running")
	flag.DurationVar(&opt.timeout, "timeout", 0, "wall-clock cap; abandons in-flight workers (0 = none)")
	flag.Parse()

	logger := log.New(os.Stderr, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	// os.Exit skips defers, so everything that must clean up (the
	// runlog writer above all, it finalizes the zstd stream) runs
	// inside run and the exit code travels out as a return value.
	os.Exit(run(opt, logger))
}

func run(opt options, logger *log.Logger) int {
	cfg := world.Default()
	if opt.configPath != "" {
		var err error
		cfg, err = world.Load(opt.configPath)
		if err != nil {
			logger.Printf("load config: %v", err)
			return 1
		}
	}
	if opt.rows > 0 {
		cfg.Rows = opt.rows
	}
	if opt.cols > 0 {
		cfg.Cols = opt.cols
	}
	if opt.repairmen > 0 {
		cfg.Repairmen = opt.repairmen
	}
	if opt.broken > 0 {
		cfg.BrokenHouses = opt.broken
	}
	if opt.seed != 0 {
		cfg.Seed = opt.seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if err := cfg.Validate(); err != nil {
		logger.Printf("config: %v", err)
		return 1
	}

	r, err := runner.New(cfg, logger)
	if err != nil {
		logger.Printf("build world: %v", err)
		return 1
	}
	logger.Printf("world ready: %dx%d broken=%d repairmen=%d seed=%d",
		cfg.Rows, cfg.Cols, r.World().BrokenAtStart(), cfg.Repairmen, cfg.Seed)

	if !opt.noRender {
		r.AddSink(render.NewTermRenderer(os.Stdout))
	}

	if opt.runlogPath != "" {
		w, err := runlog.NewWriter(opt.runlogPath)
		if err != nil {
			logger.Printf("open runlog: %v", err)
			return 1
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Printf("close runlog: %v", err)
			}
		}()
		r.AddSink(w)
	}

	if opt.observeAddr != "" {
		srv := observer.NewServer(r, logger)
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/observer/bootstrap", srv.BootstrapHandler())
		mux.HandleFunc("/v1/observer/ws", srv.WSHandler())
		go func() {
			logger.Printf("observer listening on %s", opt.observeAddr)
			if err := http.ListenAndServe(opt.observeAddr, mux); err != nil {
				logger.Printf("observer server: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if opt.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opt.timeout)
		defer cancel()
	}

	report := r.Run(ctx)

	fmt.Printf("\nelapsed %dms, all fixed: %v\n", report.ElapsedMs, report.AllFixed)
	for _, w := range report.Workers {
		fmt.Printf("%s repaired=%d belief=%d visits=%d\n", w.ID, w.Repaired, w.Belief, w.Visits)
	}
	fmt.Printf("total repaired %d/%d\n", report.TotalRepaired(), report.WorldParams.BrokenAtStart)

	if !opt.disableDB {
		path := strings.TrimSpace(opt.dbPath)
		if path == "" {
			path = opt.dataDir + "/runs.db"
		}
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			logger.Printf("open results index: %v", err)
			return 1
		}
		defer idx.Close()
		raw, _ := json.Marshal(report)
		id, err := idx.RecordRun(context.Background(), report, raw)
		if err != nil {
			logger.Printf("record run: %v", err)
			return 1
		}
		logger.Printf("recorded run %d in %s", id, path)
	}

	if !report.AllFixed {
		return 1
	}
	return 0
}
