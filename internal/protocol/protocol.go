// Package protocol defines the versioned JSON surface shared by the
// websocket observer, the runlog journal and the final run report.
// These are observation types only: nothing in the repair protocol
// itself ever travels over them.
package protocol

import "fmt"

// Version of the observer/report protocol.
const Version = "1.0"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeFrame     = "FRAME"
)

// Client -> server. First message on an observer connection; may be
// re-sent to change the frame interval.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	FrameEveryMs    int    `json:"frame_every_ms,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	Rows          int   `json:"rows"`
	Cols          int   `json:"cols"`
	Repairmen     int   `json:"repairmen"`
	BrokenAtStart int   `json:"broken_at_start"`
	Seed          int64 `json:"seed"`
}

// FrameMsg is one sampled observation of the run: every house (copied
// under its own lock, not atomic across the grid) plus the workers'
// published positions and beliefs.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	ElapsedMs       int64  `json:"elapsed_ms"`

	Rows  int `json:"rows"`
	Cols  int `json:"cols"`
	Fixed int `json:"fixed"`
	Total int `json:"total"`

	Houses  []HouseState  `json:"houses"` // row-major, Rows*Cols entries
	Workers []WorkerState `json:"workers"`
}

// CheckGrid verifies that the house list matches the declared grid
// dimensions. Frames decoded from a journal must pass through this
// before anything indexes Houses row-major.
func (f FrameMsg) CheckGrid() error {
	if want := f.Rows * f.Cols; len(f.Houses) != want {
		return fmt.Errorf("frame %d: %d houses for a %dx%d grid", f.Seq, len(f.Houses), f.Rows, f.Cols)
	}
	return nil
}

type HouseState struct {
	Status   string `json:"status"` // "BROKEN" | "FIXED"
	Repaired int    `json:"repaired,omitempty"`
	Writer   string `json:"writer,omitempty"`
}

type WorkerState struct {
	ID     string `json:"id"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Belief int    `json:"belief"`
}

// RunReport is the final outcome handed to the CLI and the results
// index once every worker has halted.
type RunReport struct {
	ProtocolVersion string `json:"protocol_version"`
	StartedAt       string `json:"started_at"` // RFC 3339
	ElapsedMs       int64  `json:"elapsed_ms"`

	WorldParams WorldParams `json:"world_params"`

	AllFixed bool           `json:"all_fixed"`
	Workers  []WorkerReport `json:"workers"`
}

type WorkerReport struct {
	ID       string `json:"id"`
	Repaired int    `json:"repaired"`
	Belief   int    `json:"belief"`
	Visits   int    `json:"visits"`
}

// TotalRepaired sums the per-worker repair counts; on a sound run it
// equals BrokenAtStart exactly.
func (r RunReport) TotalRepaired() int {
	total := 0
	for _, w := range r.Workers {
		total += w.Repaired
	}
	return total
}
