package runlog

import (
	"errors"
	"path/filepath"
	"testing"

	"repairtown.ai/internal/protocol"
)

func sampleFrame(seq uint64, fixed int) protocol.FrameMsg {
	return protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		Rows:            2,
		Cols:            2,
		Fixed:           fixed,
		Total:           4,
		Houses: []protocol.HouseState{
			{Status: "FIXED"}, {Status: "BROKEN"}, {Status: "FIXED"}, {Status: "FIXED"},
		},
		Workers: []protocol.WorkerState{{ID: "R1", Row: 1, Col: 0, Belief: fixed}},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl.zst")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	for i := 0; i < 5; i++ {
		w.Frame(sampleFrame(uint64(i+1), i))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	frames, err := ReadFrames(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("read %d frames, want 5", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint64(i+1) || f.Fixed != i {
			t.Errorf("frame %d out of order: seq=%d fixed=%d", i, f.Seq, f.Fixed)
		}
		if len(f.Houses) != 4 || len(f.Workers) != 1 {
			t.Errorf("frame %d lost contents: %+v", i, f)
		}
	}
}

func TestWriter_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "frames.jsonl.zst")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	w.Frame(sampleFrame(1, 0))
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if frames, err := ReadFrames(path); err != nil || len(frames) != 1 {
		t.Fatalf("read back: frames=%d err=%v", len(frames), err)
	}
}

// The zstd stream is only finalized by Close; a journal abandoned
// mid-run reads back empty even though frames were written. Every
// caller exit path has to reach Close.
func TestWriter_CloseFinalizesStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl.zst")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	for i := 0; i < 5; i++ {
		w.Frame(sampleFrame(uint64(i+1), i))
	}

	if frames, err := ReadFrames(path); err != nil || len(frames) != 0 {
		t.Fatalf("unfinalized journal: frames=%d err=%v, want 0 frames", len(frames), err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	frames, err := ReadFrames(path)
	if err != nil {
		t.Fatalf("read after close: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("read %d frames after close, want 5", len(frames))
	}
}

type failingSink struct{}

func (failingSink) Write(p []byte) (int, error) { return 0, errors.New("no space left on device") }
func (failingSink) Close() error                { return nil }

func TestWriter_SurfacesWriteFailureOnClose(t *testing.T) {
	w, err := newWriter(failingSink{})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	for i := 0; i < 3; i++ {
		w.Frame(sampleFrame(uint64(i+1), i))
	}
	if err := w.Close(); err == nil {
		t.Fatal("expected close to report the write failure")
	}
	// The failure stays latched for late callers.
	if err := w.Close(); err == nil {
		t.Fatal("expected repeated close to keep reporting the failure")
	}
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl.zst")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestReadFrames_MissingFile(t *testing.T) {
	if _, err := ReadFrames(filepath.Join(t.TempDir(), "nope.jsonl.zst")); err == nil {
		t.Fatal("expected error for missing journal")
	}
}
