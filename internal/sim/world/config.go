package world

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration: grid shape, crew size, initial
// damage, pacing. It is loaded from configs/sim.yaml and overridable
// from flags in cmd/sim.
type Config struct {
	Rows      int `yaml:"rows"`
	Cols      int `yaml:"cols"`
	Repairmen int `yaml:"repairmen"`

	// Initial damage: an absolute count, or a permille fraction of the
	// grid when the count is zero. Exactly this many houses start
	// Broken.
	BrokenHouses   int `yaml:"broken_houses"`
	BrokenPermille int `yaml:"broken_permille"`

	// Seed drives the broken-house layout, worker start positions and
	// every worker's private movement rng. Same seed, same setup;
	// the schedule stays nondeterministic.
	Seed int64 `yaml:"seed"`

	// Simulated work pacing. Both affect throughput only, never
	// correctness; zero is a valid (fastest) setting once defaults
	// have been applied.
	MoveDelayMs   int `yaml:"move_delay_ms"`
	RepairDelayMs int `yaml:"repair_delay_ms"`

	// Observer frame sampling interval for render/runlog/websocket.
	FrameEveryMs int `yaml:"frame_every_ms"`
}

// Load reads a yaml config and applies defaults. A missing file is an
// error; use Default() for a config-less run.
func Load(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("sim.yaml: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

// Default mirrors the shipped configs/sim.yaml.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Rows <= 0 {
		c.Rows = 7
	}
	if c.Cols <= 0 {
		c.Cols = 7
	}
	if c.Repairmen <= 0 {
		c.Repairmen = 4
	}
	if c.BrokenHouses <= 0 && c.BrokenPermille <= 0 {
		c.BrokenHouses = 6
	}
	if c.MoveDelayMs < 0 {
		c.MoveDelayMs = 0
	}
	if c.RepairDelayMs < 0 {
		c.RepairDelayMs = 0
	}
	if c.FrameEveryMs <= 0 {
		c.FrameEveryMs = 100
	}
}

// BrokenCount resolves the configured damage to an absolute count.
func (c Config) BrokenCount() int {
	if c.BrokenHouses > 0 {
		return c.BrokenHouses
	}
	return c.Rows * c.Cols * c.BrokenPermille / 1000
}

// Validate rejects configurations the run must never start with.
func (c Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", c.Rows, c.Cols)
	}
	if c.Repairmen <= 0 {
		return fmt.Errorf("need at least one repairman, got %d", c.Repairmen)
	}
	n := c.BrokenCount()
	if n <= 0 {
		return fmt.Errorf("need at least one broken house")
	}
	if n > c.Rows*c.Cols {
		return fmt.Errorf("%d broken houses do not fit a %dx%d grid", n, c.Rows, c.Cols)
	}
	return nil
}

func (c Config) MoveDelay() time.Duration { return time.Duration(c.MoveDelayMs) * time.Millisecond }

func (c Config) RepairDelay() time.Duration {
	return time.Duration(c.RepairDelayMs) * time.Millisecond
}

func (c Config) FrameEvery() time.Duration { return time.Duration(c.FrameEveryMs) * time.Millisecond }
