package render

import (
	"strings"
	"testing"

	"repairtown.ai/internal/protocol"
)

func TestFrame_LayoutAndCounts(t *testing.T) {
	f := protocol.FrameMsg{
		Type: protocol.TypeFrame, ProtocolVersion: protocol.Version,
		Rows: 2, Cols: 3, Fixed: 5, Total: 6,
		Houses: []protocol.HouseState{
			{Status: "FIXED"}, {Status: "BROKEN"}, {Status: "FIXED"},
			{Status: "FIXED"}, {Status: "FIXED"}, {Status: "FIXED"},
		},
		Workers: []protocol.WorkerState{
			{ID: "R1", Row: 0, Col: 0, Belief: 2},
			{ID: "R2", Row: 0, Col: 0, Belief: 1},
		},
	}

	out := Frame(f)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 2 grid rows + summary, got %d lines:\n%s", len(lines), out)
	}
	// Two workers share (0,0).
	if !strings.Contains(lines[0], "2") {
		t.Errorf("occupancy count missing from first row: %q", lines[0])
	}
	if !strings.Contains(lines[2], "fixed 5/6") {
		t.Errorf("summary missing fixed count: %q", lines[2])
	}
	if !strings.Contains(lines[2], "R1=2") || !strings.Contains(lines[2], "R2=1") {
		t.Errorf("summary missing beliefs: %q", lines[2])
	}
}
