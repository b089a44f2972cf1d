package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/catalogs"
	"catastrophe.ai/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAction atomic.Uint64
	dropTurn   atomic.Uint64
}

type reqKind int

const (
	reqAction reqKind = iota + 1
	reqTurn
)

type req struct {
	kind reqKind

	action protocol.ActionRecord
	turn   protocol.TurnRecord
}

// Stats reports queue health. Drops mean the writer fell behind; the JSONL
// logs still hold every record.
type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropActionTotal uint64
	DropTurnTotal   uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; the index is secondary to the logs.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			turn INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player TEXT NOT NULL,
			unit_id TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER,
			y INTEGER,
			job TEXT,
			ok INTEGER NOT NULL,
			code TEXT,
			message TEXT,
			PRIMARY KEY (turn, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_unit_turn ON actions(unit_id, turn);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_code ON actions(code);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn INTEGER PRIMARY KEY,
			player TEXT NOT NULL,
			neutral INTEGER NOT NULL,
			units_json TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropActionTotal: s.dropAction.Load(),
		DropTurnTotal:   s.dropTurn.Load(),
	}
}

func (s *SQLiteIndex) RecordAction(rec protocol.ActionRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqAction, action: rec}:
	default:
		s.dropAction.Add(1)
	}
}

func (s *SQLiteIndex) RecordTurn(rec protocol.TurnRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: rec}:
	default:
		s.dropTurn.Add(1)
	}
}

// UpsertCatalogs stores the configuration a game ran with, keyed by digest.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if cats != nil {
		if b, _ := json.Marshal(cats.Jobs.Defs); len(b) > 0 {
			rows = append(rows, kv{name: "jobs", digest: cats.Jobs.Digest, json: b})
		}
		maps := make([]catalogs.MapDef, 0, len(cats.Maps.ByID))
		for _, m := range cats.Maps.ByID {
			maps = append(maps, m)
		}
		sort.Slice(maps, func(i, j int) bool { return maps[i].ID < maps[j].ID })
		if b, _ := json.Marshal(maps); len(b) > 0 {
			rows = append(rows, kv{name: "maps", digest: cats.Maps.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAction, _ := s.db.Prepare(`INSERT OR REPLACE INTO actions(turn,seq,player,unit_id,action,x,y,job,ok,code,message) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(turn,player,neutral,units_json) VALUES(?,?,?,?)`)
	defer func() {
		if insertAction != nil {
			_ = insertAction.Close()
		}
		if insertTurn != nil {
			_ = insertTurn.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second

		lastActionTurn = -1
		actionSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAction:
			a := r.action
			if a.Turn != lastActionTurn {
				lastActionTurn = a.Turn
				actionSeq = 0
			}
			seq := actionSeq
			actionSeq++
			var x, y sql.NullInt64
			if a.Target != nil {
				x = sql.NullInt64{Int64: int64(a.Target[0]), Valid: true}
				y = sql.NullInt64{Int64: int64(a.Target[1]), Valid: true}
			}
			if insertAction != nil {
				if _, err := tx.Stmt(insertAction).Exec(
					a.Turn, seq, a.Player, a.UnitID, a.Action,
					x, y, nullString(a.Job), a.OK, nullString(a.Code), nullString(a.Message),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqTurn:
			t := r.turn
			units, _ := json.Marshal(t.Units)
			if insertTurn != nil {
				if _, err := tx.Stmt(insertTurn).Exec(t.Turn, t.Player, t.Neutral, string(units)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			// Turn boundaries are natural read points.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
