package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"catastrophe.ai/internal/protocol"
)

func readJSONL(t *testing.T, dir string) [][]byte {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(paths) != 1 {
		t.Fatalf("files=%v err=%v", paths, err)
	}
	return readLines(t, paths[0])
}

func readLines(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var lines [][]byte
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestActionLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewActionLogger(dir)
	recs := []protocol.ActionRecord{
		{Turn: 0, Player: "p0", UnitID: "u1", Action: protocol.ActionMove, Target: &[2]int{1, 0}, OK: true},
		{Turn: 0, Player: "p0", UnitID: "u1", Action: protocol.ActionRest, Code: protocol.ErrInvalidTarget, Message: "no shelter"},
	}
	for _, r := range recs {
		if err := l.WriteAction(r); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := readJSONL(t, filepath.Join(dir, "actions"))
	if len(lines) != 2 {
		t.Fatalf("lines=%d", len(lines))
	}
	var got protocol.ActionRecord
	if err := json.Unmarshal(lines[1], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Code != protocol.ErrInvalidTarget || got.OK {
		t.Fatalf("got %+v", got)
	}
}

func TestTurnLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir)
	if err := l.WriteTurn(protocol.TurnRecord{Turn: 3, Player: "p1", Units: map[string]int{"p0": 4, "p1": 5}, Neutral: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	lines := readJSONL(t, filepath.Join(dir, "turns"))
	var got protocol.TurnRecord
	if err := json.Unmarshal(lines[0], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Turn != 3 || got.Units["p1"] != 5 || got.Neutral != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestSegmentWriter_SplitsByTurn(t *testing.T) {
	dir := t.TempDir()
	w := NewSegmentWriter(dir, "actions", 10)
	for _, turn := range []int{0, 9, 10, 25} {
		if err := w.Write(turn, map[string]int{"turn": turn}); err != nil {
			t.Fatalf("write %d: %v", turn, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	paths, _ := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	want := []string{w.PathFor(0), w.PathFor(10), w.PathFor(20)}
	if len(paths) != len(want) {
		t.Fatalf("files=%v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("file %d = %s want %s", i, paths[i], want[i])
		}
	}
	if filepath.Base(want[1]) != "actions-t000010.jsonl.zst" {
		t.Fatalf("name=%s", filepath.Base(want[1]))
	}
	if n := len(readLines(t, want[0])); n != 2 {
		t.Fatalf("first segment lines=%d", n)
	}
}

func TestSegmentWriter_AppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		w := NewSegmentWriter(dir, "turns", 10)
		if err := w.Write(3+i, map[string]int{"turn": 3 + i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	lines := readJSONL(t, dir)
	if len(lines) != 2 || string(lines[1]) != `{"turn":4}` {
		t.Fatalf("lines=%q", lines)
	}
}
