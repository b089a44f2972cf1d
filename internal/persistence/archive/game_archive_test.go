package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"catastrophe.ai/internal/persistence/snapshot"
	"catastrophe.ai/internal/protocol"
)

func finished(over bool) snapshot.SnapshotV1 {
	return snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, GameID: "g1", Turn: 7},
		Seed:   42,
		State: protocol.GameState{Units: []protocol.UnitState{
			{ID: "u1", Owner: "p0"}, {ID: "u2", Owner: "p0"}, {ID: "u3", Owner: "p1"}, {ID: "u4"},
		}},
		Over:   over,
		Winner: "p0",
		Reason: "turn limit reached",
	}
}

func TestArchiveFinalSnapshot_CopiesFinishedGame(t *testing.T) {
	gameDir := t.TempDir()
	src := snapshot.PathFor(gameDir, 7)
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	archivedPath, ok, err := ArchiveFinalSnapshot(gameDir, src, finished(true))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}
	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", got, want)
	}

	raw, err := os.ReadFile(filepath.Join(gameDir, "archive", "meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta GameArchiveMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Winner != "p0" || meta.EndTurn != 7 || meta.Units["p0"] != 2 || meta.Units[""] != 1 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveFinalSnapshot_SkipsRunningGame(t *testing.T) {
	gameDir := t.TempDir()
	_, ok, err := ArchiveFinalSnapshot(gameDir, snapshot.PathFor(gameDir, 3), finished(false))
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(gameDir, "archive")); !os.IsNotExist(err) {
		t.Fatalf("archive dir created for a running game")
	}
}
