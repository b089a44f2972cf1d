package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"catastrophe.ai/internal/ai/act"
	"catastrophe.ai/internal/ai/turn"
	"catastrophe.ai/internal/game/model"
	"catastrophe.ai/internal/persistence/archive"
	"catastrophe.ai/internal/persistence/indexdb"
	persistlog "catastrophe.ai/internal/persistence/log"
	"catastrophe.ai/internal/persistence/snapshot"
	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/arena"
	"catastrophe.ai/internal/sim/catalogs"
	"catastrophe.ai/internal/sim/referee"
	"catastrophe.ai/internal/sim/tuning"
	"catastrophe.ai/internal/transport/observer"
	"catastrophe.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gameID     = flag.String("game", "", "game id (default: random)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		mapID      = flag.String("map", "", "fixed map id from <configs>/maps (empty: generate an arena)")
		seed       = flag.Int64("seed", 0, "arena seed override (0 keeps tuning)")
		opponent   = flag.String("opponent", "p1", "player seated by the in-process bot (empty: all seats remote)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (actions/turns + catalogs)")
		pprofHTTP  = flag.Bool("pprof", false, "serve /debug/pprof")

		snapPath   = flag.String("snapshot", "", "path to snapshot to resume from (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume from the latest snapshot in the game dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Arena.Seed = *seed
	}

	id := strings.TrimSpace(*gameID)
	if id == "" {
		id = "g_" + uuid.NewString()
	}
	gameDir := filepath.Join(*dataDir, "games", id)
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(gameDir)
	}

	var g *model.Game
	mapUsed := strings.TrimSpace(*mapID)
	maxTurns := tune.Arena.MaxTurns
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("load snapshot: %v", err)
		}
		if snap.Over {
			logger.Fatalf("snapshot %s: game already finished (winner=%q)", snapshotToLoad, snap.Winner)
		}
		if g, err = model.FromState(snap.State); err != nil {
			logger.Fatalf("snapshot %s: %v", snapshotToLoad, err)
		}
		mapUsed, maxTurns, tune.Arena.Seed = snap.MapID, snap.MaxTurns, snap.Seed
		logger.Printf("resumed from %s at turn %d", snapshotToLoad, g.Turn)
	} else if g, err = newGame(cats, tune, mapUsed); err != nil {
		logger.Fatalf("game: %v", err)
	}
	logger.Printf("game %s: %dx%d units=%d structures=%d", id, g.Width, g.Height, len(g.Units), len(g.Structures))

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(gameDir, "index", "game.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
	}

	actionLog := persistlog.NewActionLogger(gameDir)
	turnLog := persistlog.NewTurnLogger(gameDir)
	defer actionLog.Close()
	defer turnLog.Close()

	ref := referee.New(g, maxTurns, logger)
	obsSrv := observer.NewServer(ref, id, logger)

	// Runs under the referee lock.
	ref.OnAction = func(rec protocol.ActionRecord) {
		if err := actionLog.WriteAction(rec); err != nil {
			logger.Printf("action log: %v", err)
		}
		if idx != nil {
			idx.RecordAction(rec)
		}
		obsSrv.PublishAction(rec)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 8)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := snapshot.PathFor(gameDir, snap.Header.Turn)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if archivedPath, ok, err := archive.ArchiveFinalSnapshot(gameDir, path, snap); err != nil {
					logger.Printf("archive: %v", err)
				} else if ok {
					logger.Printf("archived final snapshot %s", archivedPath)
				}
			}
		}
	}()

	wsSrv := ws.NewServer(ref, id, logger)
	wsSrv.OnTurn = func(player string, t int) {
		rec := ref.TurnRecord(player, t)
		if err := turnLog.WriteTurn(rec); err != nil {
			logger.Printf("turn log: %v", err)
		}
		if idx != nil {
			idx.RecordTurn(rec)
		}
		obsSrv.PublishTurn(player, t)

		over, winner, reason := ref.Over()
		st := ref.Snapshot()
		snap := snapshot.SnapshotV1{
			Header:   snapshot.Header{Version: snapshot.Version, GameID: id, Turn: st.Turn},
			MapID:    mapUsed,
			Seed:     tune.Arena.Seed,
			MaxTurns: maxTurns,
			State:    st,
			Over:     over,
			Winner:   winner,
			Reason:   reason,
		}
		select {
		case snapCh <- snap:
		default:
			logger.Printf("snapshot queue full; skipped turn %d", st.Turn)
		}
	}

	if p := strings.TrimSpace(*opponent); p != "" {
		local, err := localBot(ref, p, tune.Bot)
		if err != nil {
			logger.Fatalf("opponent: %v", err)
		}
		wsSrv.SetLocal(p, local)
		logger.Printf("seated in-process bot as %s", p)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(id, ref, obsSrv, idx))
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())
	if *pprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	if over, winner, reason := ref.Over(); over {
		logger.Printf("game over: winner=%q reason=%s", winner, reason)
	}
}

func newGame(cats *catalogs.Catalogs, tune tuning.Tuning, mapID string) (*model.Game, error) {
	if mapID != "" {
		return cats.Game(mapID)
	}
	jobs, err := cats.Jobs.ResolveJobs()
	if err != nil {
		return nil, err
	}
	return arena.Generate(tune.Arena, jobs)
}

// localBot plays p directly against the referee. The referee hands out its
// live game, so the bot sees every mutation without a round trip.
func localBot(ref *referee.Referee, p string, cfg tuning.Bot) (ws.LocalPlayer, error) {
	botLog := log.New(os.Stdout, "[bot "+p+"] ", log.LstdFlags|log.Lmicroseconds)
	b := turn.New(act.Env{World: ref, Authority: ref, Logger: botLog}, p, cfg)
	if err := b.Start(); err != nil {
		return nil, err
	}
	return b.RunTurn, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
