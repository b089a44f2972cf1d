package main

import (
	"fmt"
	"net/http"
	"sort"

	"catastrophe.ai/internal/persistence/indexdb"
	"catastrophe.ai/internal/sim/referee"
	"catastrophe.ai/internal/transport/observer"
)

// metricsHandler writes a minimal Prometheus exposition.
func metricsHandler(gameID string, ref *referee.Referee, obs *observer.Server, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := ref.Snapshot()
		rec := ref.TurnRecord(st.CurrentPlayer, st.Turn)

		fmt.Fprintf(rw, "# HELP catastrophe_game_turn Current turn number.\n")
		fmt.Fprintf(rw, "# TYPE catastrophe_game_turn gauge\n")
		fmt.Fprintf(rw, "catastrophe_game_turn{game=%q} %d\n", gameID, st.Turn)

		over, _, _ := ref.Over()
		fmt.Fprintf(rw, "# HELP catastrophe_game_over 1 once the game has ended.\n")
		fmt.Fprintf(rw, "# TYPE catastrophe_game_over gauge\n")
		fmt.Fprintf(rw, "catastrophe_game_over{game=%q} %d\n", gameID, boolGauge(over))

		owners := make([]string, 0, len(rec.Units))
		for id := range rec.Units {
			owners = append(owners, id)
		}
		sort.Strings(owners)
		fmt.Fprintf(rw, "# HELP catastrophe_units Units per owner.\n")
		fmt.Fprintf(rw, "# TYPE catastrophe_units gauge\n")
		for _, id := range owners {
			fmt.Fprintf(rw, "catastrophe_units{game=%q,owner=%q} %d\n", gameID, id, rec.Units[id])
		}
		fmt.Fprintf(rw, "catastrophe_units{game=%q,owner=%q} %d\n", gameID, "", rec.Neutral)

		fmt.Fprintf(rw, "# HELP catastrophe_observer_subscribers Connected observers.\n")
		fmt.Fprintf(rw, "# TYPE catastrophe_observer_subscribers gauge\n")
		fmt.Fprintf(rw, "catastrophe_observer_subscribers{game=%q} %d\n", gameID, obs.Subscribers())

		if idx == nil {
			return
		}
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP catastrophe_index_queue_depth Pending index writes.\n")
		fmt.Fprintf(rw, "# TYPE catastrophe_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "catastrophe_index_queue_depth{game=%q} %d\n", gameID, s.QueueDepth)
		fmt.Fprintf(rw, "# HELP catastrophe_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE catastrophe_index_dropped_total counter\n")
		fmt.Fprintf(rw, "catastrophe_index_dropped_total{game=%q,kind=%q} %d\n", gameID, "action", s.DropActionTotal)
		fmt.Fprintf(rw, "catastrophe_index_dropped_total{game=%q,kind=%q} %d\n", gameID, "turn", s.DropTurnTotal)
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
