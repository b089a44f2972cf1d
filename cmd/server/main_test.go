package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/catalogs"
	"catastrophe.ai/internal/sim/referee"
	"catastrophe.ai/internal/sim/tuning"
	"catastrophe.ai/internal/transport/observer"
)

func loadRepoCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func TestNewGame(t *testing.T) {
	cats := loadRepoCatalogs(t)
	tune := tuning.Defaults()

	g, err := newGame(cats, tune, "duel")
	if err != nil {
		t.Fatalf("duel: %v", err)
	}
	if g.Width != 9 || g.Height != 3 {
		t.Fatalf("duel size=%dx%d", g.Width, g.Height)
	}

	a, err := newGame(cats, tune, "")
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	if a.Width != tune.Arena.Width || a.Height != tune.Arena.Height {
		t.Fatalf("arena size=%dx%d", a.Width, a.Height)
	}

	if _, err := newGame(cats, tune, "missing"); err == nil {
		t.Fatalf("expected unknown map error")
	}
}

func TestLocalBot_PlaysOneTurn(t *testing.T) {
	cats := loadRepoCatalogs(t)
	tune := tuning.Defaults()
	g, err := newGame(cats, tune, "")
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	ref := referee.New(g, 0, nil)
	acted := 0
	ref.OnAction = func(protocol.ActionRecord) { acted++ }

	run, err := localBot(ref, g.CurrentPlayer, tune.Bot)
	if err != nil {
		t.Fatalf("localBot: %v", err)
	}
	if err := run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if acted == 0 {
		t.Fatalf("expected the bot to act on its first turn")
	}

	if _, err := localBot(ref, "nobody", tune.Bot); err == nil {
		t.Fatalf("expected unknown player error")
	}
}

func TestMetrics(t *testing.T) {
	cats := loadRepoCatalogs(t)
	g, err := newGame(cats, tuning.Defaults(), "duel")
	if err != nil {
		t.Fatalf("duel: %v", err)
	}
	ref := referee.New(g, 0, nil)
	obs := observer.NewServer(ref, "g1", nil)

	rr := httptest.NewRecorder()
	metricsHandler("g1", ref, obs, nil)(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		`catastrophe_game_turn{game="g1"} 0`,
		`catastrophe_game_over{game="g1"} 0`,
		`catastrophe_observer_subscribers{game="g1"} 0`,
		`catastrophe_units{game="g1",owner="p0"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
	if strings.Contains(body, "catastrophe_index_queue_depth") {
		t.Fatalf("index metrics without an index:\n%s", body)
	}
}
