package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"catastrophe.ai/internal/protocol"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Turn    int    `json:"turn"`
}

// SnapshotV1 is the board after a completed turn plus what a resume needs to
// rebuild the referee.
type SnapshotV1 struct {
	Header Header `json:"header"`

	MapID    string `json:"map_id,omitempty"` // empty for a generated arena
	Seed     int64  `json:"seed"`
	MaxTurns int    `json:"max_turns"`

	State protocol.GameState `json:"state"`

	Over   bool   `json:"over,omitempty"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// PathFor returns <gameDir>/snapshots/<turn>.snap.zst.
func PathFor(gameDir string, turn int) string {
	return filepath.Join(gameDir, "snapshots", fmt.Sprintf("%d.snap.zst", turn))
}

// Latest returns the highest-turn snapshot under gameDir, or "" if none.
func Latest(gameDir string) string {
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	turns := make([]int, 0, len(ents))
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".snap.zst"))
		if err != nil {
			continue
		}
		turns = append(turns, n)
	}
	if len(turns) == 0 {
		return ""
	}
	sort.Ints(turns)
	return PathFor(gameDir, turns[len(turns)-1])
}

// WriteSnapshot reports the first error from encoding, flushing or closing, so
// a nil return means the file on disk is complete.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	if err := encode(bw, snap); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func encode(w *bufio.Writer, snap SnapshotV1) error {
	// Header line stays readable with zstdcat | head -1.
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := w.Write(hb); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}
