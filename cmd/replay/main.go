package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/persistence/snapshot"
	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/arena"
	"catastrophe.ai/internal/sim/catalogs"
	"catastrophe.ai/internal/sim/referee"
	"catastrophe.ai/internal/sim/tuning"
)

func main() {
	var (
		gameDir    = flag.String("game_dir", "", "game data dir containing actions/ (and optionally turns/)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		mapID      = flag.String("map", "", "fixed map id the game was started from (empty: arena)")
		seed       = flag.Int64("seed", 0, "arena seed override, as passed to the server")
		toTurn     = flag.Int("to_turn", 0, "stop after this turn (optional)")
		snapPath   = flag.String("snapshot", "", "start from this snapshot instead of a fresh game (optional)")
	)
	flag.Parse()

	if *gameDir == "" {
		fmt.Fprintln(os.Stderr, "missing -game_dir")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	if *seed != 0 {
		tune.Arena.Seed = *seed
	}

	var g *model.Game
	maxTurns := tune.Arena.MaxTurns
	if *snapPath != "" {
		var snap snapshot.SnapshotV1
		if snap, err = snapshot.ReadSnapshot(*snapPath); err == nil {
			g, err = model.FromState(snap.State)
			maxTurns = snap.MaxTurns
		}
	} else if *mapID != "" {
		g, err = cats.Game(*mapID)
	} else {
		var jobs model.Jobs
		if jobs, err = cats.Jobs.ResolveJobs(); err == nil {
			g, err = arena.Generate(tune.Arena, jobs)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "game:", err)
		os.Exit(1)
	}

	actions, err := readAll[protocol.ActionRecord](filepath.Join(*gameDir, "actions"), "actions-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read actions:", err)
		os.Exit(1)
	}
	if len(actions) == 0 {
		fmt.Fprintln(os.Stderr, "no action files found in", filepath.Join(*gameDir, "actions"))
		os.Exit(1)
	}
	turns, err := readAll[protocol.TurnRecord](filepath.Join(*gameDir, "turns"), "turns-")
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "read turns:", err)
		os.Exit(1)
	}

	ref := referee.New(g, maxTurns, nil)
	res, err := replay(ref, actions, turns, *toTurn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	res.print(os.Stdout)
}

type summary struct {
	Actions      int
	TurnsChecked int
	Counts       map[string]int // player/action/code
}

func (s summary) print(f *os.File) {
	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(f, "%-40s %d\n", k, s.Counts[k])
	}
	fmt.Fprintf(f, "replay ok: actions=%d turns_checked=%d\n", s.Actions, s.TurnsChecked)
}

// replay re-applies every logged action to ref in order and fails on the first
// outcome that differs from the log. Actions before ref's current turn are
// skipped. Turn records, when present, are compared as each turn ends.
func replay(ref *referee.Referee, actions []protocol.ActionRecord, turns []protocol.TurnRecord, toTurn int) (summary, error) {
	s := summary{Counts: map[string]int{}}
	byTurn := make(map[int]protocol.TurnRecord, len(turns))
	for _, t := range turns {
		byTurn[t.Turn] = t
	}

	advance := func(to int) error {
		for ref.Snapshot().Turn < to {
			cur := ref.Snapshot()
			if err := ref.EndTurn(cur.CurrentPlayer); err != nil {
				return fmt.Errorf("end turn %d: %w", cur.Turn, err)
			}
			want, ok := byTurn[cur.Turn]
			if !ok {
				continue
			}
			got := ref.TurnRecord(cur.CurrentPlayer, cur.Turn)
			if err := sameTurn(got, want); err != nil {
				return fmt.Errorf("turn %d: %w", cur.Turn, err)
			}
			s.TurnsChecked++
		}
		return nil
	}

	start := ref.Snapshot().Turn
	for i, rec := range actions {
		if rec.Turn < start {
			continue
		}
		if toTurn != 0 && rec.Turn > toTurn {
			break
		}
		if err := advance(rec.Turn); err != nil {
			return s, err
		}
		if got := ref.Snapshot().Turn; got != rec.Turn {
			return s, fmt.Errorf("action %d: logged at turn %d, game is at turn %d", i, rec.Turn, got)
		}

		err := ref.Apply(rec.Player, protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			Action:          rec.Action,
			UnitID:          rec.UnitID,
			Target:          rec.Target,
			Job:             rec.Job,
		})
		code := ""
		var rej *protocol.RejectError
		if errors.As(err, &rej) {
			code = rej.Code
		}
		if (err == nil) != rec.OK || code != rec.Code {
			return s, fmt.Errorf("action %d (turn %d %s %s): got ok=%t code=%q want ok=%t code=%q",
				i, rec.Turn, rec.Action, rec.UnitID, err == nil, code, rec.OK, rec.Code)
		}
		s.Actions++
		key := rec.Player + "/" + rec.Action
		if rec.Code != "" {
			key += "/" + rec.Code
		}
		s.Counts[key]++
	}
	return s, nil
}

func sameTurn(got, want protocol.TurnRecord) error {
	if got.Player != want.Player || got.Neutral != want.Neutral || len(got.Units) != len(want.Units) {
		return fmt.Errorf("got %+v want %+v", got, want)
	}
	for id, n := range want.Units {
		if got.Units[id] != n {
			return fmt.Errorf("owner %s: got %d units want %d", id, got.Units[id], n)
		}
	}
	return nil
}

func listFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func readAll[T any](dir, prefix string) ([]T, error) {
	files, err := listFiles(dir, prefix)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, path := range files {
		if out, err = readFile(path, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readFile[T any](path string, out []T) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return out, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return out, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		out = append(out, v)
	}
	return out, sc.Err()
}
