package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"catastrophe.ai/internal/protocol"
)

// SegmentTurns is how many game turns share one log file.
const SegmentTurns = 100

// SegmentWriter appends JSON lines to zstd files keyed by game turn, so a
// file holds turns [n, n+SegmentTurns) and names sort in play order. A resumed
// game appends a new zstd frame to the segment it left off in.
type SegmentWriter struct {
	baseDir string
	prefix  string
	span    int

	mu  sync.Mutex
	cur int // first turn of the open segment, -1 when none
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewSegmentWriter(baseDir, prefix string, span int) *SegmentWriter {
	if span < 1 {
		span = SegmentTurns
	}
	return &SegmentWriter{baseDir: baseDir, prefix: prefix, span: span, cur: -1}
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the segment holding turn.
func (w *SegmentWriter) Write(turn int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seg := w.segment(turn); seg != w.cur {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *SegmentWriter) segment(turn int) int {
	if turn < 0 {
		turn = 0
	}
	return turn / w.span * w.span
}

func (w *SegmentWriter) openLocked(seg int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.PathFor(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.cur = f, enc, seg
	w.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

// closeLocked returns the first flush or close error.
func (w *SegmentWriter) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	w.w, w.enc, w.f, w.cur = nil, nil, nil, -1
	return err
}

// PathFor names the segment starting at seg, e.g. actions-t000100.jsonl.zst.
func (w *SegmentWriter) PathFor(seg int) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-t%06d.jsonl.zst", w.prefix, seg))
}

// ActionLogger writes one JSONL entry per authority call (compressed).
type ActionLogger struct{ w *SegmentWriter }

func NewActionLogger(gameDir string) *ActionLogger {
	return &ActionLogger{w: NewSegmentWriter(filepath.Join(gameDir, "actions"), "actions", SegmentTurns)}
}

func (l *ActionLogger) WriteAction(v protocol.ActionRecord) error { return l.w.Write(v.Turn, v) }
func (l *ActionLogger) Close() error                              { return l.w.Close() }

// TurnLogger writes one JSONL entry per completed turn (compressed).
type TurnLogger struct{ w *SegmentWriter }

func NewTurnLogger(gameDir string) *TurnLogger {
	return &TurnLogger{w: NewSegmentWriter(filepath.Join(gameDir, "turns"), "turns", SegmentTurns)}
}

func (l *TurnLogger) WriteTurn(v protocol.TurnRecord) error { return l.w.Write(v.Turn, v) }
func (l *TurnLogger) Close() error                          { return l.w.Close() }
