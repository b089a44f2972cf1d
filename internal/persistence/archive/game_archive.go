package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"catastrophe.ai/internal/persistence/snapshot"
)

type GameArchiveMeta struct {
	GameID    string         `json:"game_id"`
	MapID     string         `json:"map_id,omitempty"`
	Seed      int64          `json:"seed"`
	EndTurn   int            `json:"end_turn"`
	Winner    string         `json:"winner"`
	Reason    string         `json:"reason"`
	Units     map[string]int `json:"units"` // by owner id, "" for neutral
	Snapshot  string         `json:"snapshot"`
	CreatedAt string         `json:"created_at"`
}

// ArchiveFinalSnapshot copies the snapshot of a finished game into
// `gameDir/archive/` next to a meta.json summary. Snapshots of a game still
// in progress are skipped (archived=false).
func ArchiveFinalSnapshot(gameDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if !snap.Over {
		return "", false, nil
	}
	archiveDir := filepath.Join(gameDir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	units := map[string]int{}
	for _, u := range snap.State.Units {
		units[u.Owner]++
	}
	meta := GameArchiveMeta{
		GameID:    snap.Header.GameID,
		MapID:     snap.MapID,
		Seed:      snap.Seed,
		EndTurn:   snap.Header.Turn,
		Winner:    snap.Winner,
		Reason:    snap.Reason,
		Units:     units,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
