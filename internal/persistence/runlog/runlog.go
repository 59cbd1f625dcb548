// Package runlog journals sampled frames to a zstd-compressed JSONL
// file, one frame per line. The journal records observations only;
// nothing in the run ever reads it back.
package runlog

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"repairtown.ai/internal/protocol"
)

type Writer struct {
	mu   sync.Mutex
	sink io.WriteCloser
	enc  *zstd.Encoder
	w    *bufio.Writer

	// First write failure. Once set, further frames are dropped and
	// Close reports it; the journal is truncated anyway at that point.
	err error
}

// NewWriter creates (or truncates) path, creating parent directories
// as needed.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := newWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(sink io.WriteCloser) (*Writer, error) {
	enc, err := zstd.NewWriter(sink, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	return &Writer{sink: sink, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Frame appends one frame line. Satisfies runner.FrameSink.
func (w *Writer) Frame(f protocol.FrameMsg) { _ = w.write(f) }

func (w *Writer) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink == nil {
		return os.ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if err := w.emit(b); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *Writer) emit(b []byte) error {
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close finalizes the zstd stream and reports the first failure seen
// on any write. An unclosed journal reads back empty, so every exit
// path must reach this.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink == nil {
		return w.err
	}
	err := w.err
	if ferr := w.w.Flush(); err == nil {
		err = ferr
	}
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := w.sink.Close(); err == nil {
		err = cerr
	}
	w.sink = nil
	w.err = err
	return err
}

// ReadFrames decodes every frame in a journal, in write order.
func ReadFrames(path string) ([]protocol.FrameMsg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var out []protocol.FrameMsg
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var fr protocol.FrameMsg
		if err := json.Unmarshal(line, &fr); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
