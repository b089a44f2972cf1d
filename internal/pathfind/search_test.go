package pathfind

import (
	"math/rand"
	"testing"
)

type pt struct{ X, Y int }

type testGrid struct {
	w, h    int
	blocked map[pt]bool
}

// neighbors yields N, E, S, W (y grows southward).
func (g testGrid) neighbors(p pt) []pt {
	cand := []pt{{p.X, p.Y - 1}, {p.X + 1, p.Y}, {p.X, p.Y + 1}, {p.X - 1, p.Y}}
	out := make([]pt, 0, 4)
	for _, c := range cand {
		if c.X < 0 || c.Y < 0 || c.X >= g.w || c.Y >= g.h || g.blocked[c] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func unit(pt, pt) float64 { return 1 }
func zero(pt) float64     { return 0 }

func checkPath(t *testing.T, g testGrid, path []pt) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		ok := false
		for _, nb := range g.neighbors(path[i-1]) {
			if nb == path[i] {
				ok = true
				break
			}
		}
		if !ok {
			t.Fatalf("step %d: %v -> %v is not an edge", i, path[i-1], path[i])
		}
	}
}

func bfsDist(g testGrid, starts []pt, isGoal func(pt) bool) int {
	dist := map[pt]int{}
	queue := make([]pt, 0, g.w*g.h)
	for _, s := range starts {
		if _, ok := dist[s]; ok {
			continue
		}
		dist[s] = 0
		queue = append(queue, s)
	}
	for head := 0; head < len(queue); head++ {
		p := queue[head]
		if isGoal(p) {
			return dist[p]
		}
		for _, nb := range g.neighbors(p) {
			if _, ok := dist[nb]; ok {
				continue
			}
			dist[nb] = dist[p] + 1
			queue = append(queue, nb)
		}
	}
	return -1
}

func TestSearch_CenterToCorners(t *testing.T) {
	g := testGrid{w: 3, h: 3}
	res := Search([]pt{{1, 1}}, FromNodes([]pt{{0, 0}, {2, 2}}), unit, zero, g.neighbors)

	want := []pt{{1, 1}, {1, 0}, {0, 0}}
	if len(res.Path) != len(want) {
		t.Fatalf("path=%v want %v", res.Path, want)
	}
	for i := range want {
		if res.Path[i] != want[i] {
			t.Fatalf("path=%v want %v", res.Path, want)
		}
	}
	if res.G[pt{0, 0}] != 2 {
		t.Fatalf("g(0,0)=%v", res.G[pt{0, 0}])
	}
	if _, ok := res.Closed[pt{0, 0}]; !ok {
		t.Fatalf("goal not in closed set")
	}
	if _, ok := res.Open[pt{2, 2}]; !ok {
		t.Fatalf("other corner should still be on the frontier: open=%v", res.Open)
	}
}

func TestSearch_StartIsGoal(t *testing.T) {
	g := testGrid{w: 2, h: 2}
	res := Search([]pt{{1, 1}}, FromNodes([]pt{{1, 1}}), unit, zero, g.neighbors)
	if len(res.Path) != 1 || res.Path[0] != (pt{1, 1}) {
		t.Fatalf("path=%v", res.Path)
	}
}

func TestSearch_Unreachable(t *testing.T) {
	g := testGrid{w: 5, h: 1, blocked: map[pt]bool{{2, 0}: true}}
	res := Search([]pt{{0, 0}}, FromNodes([]pt{{4, 0}}), unit, zero, g.neighbors)
	if len(res.Path) != 0 {
		t.Fatalf("expected empty path, got %v", res.Path)
	}
	if len(res.Open) != 0 {
		t.Fatalf("frontier should be exhausted: %v", res.Open)
	}
	if len(res.Closed) != 2 {
		t.Fatalf("closed=%v want the two reachable cells", res.Closed)
	}
}

func TestSearch_EmptyGoalSet(t *testing.T) {
	g := testGrid{w: 4, h: 4}
	isGoal := FromNodes[pt](nil)
	res := Search([]pt{{0, 0}, {3, 3}}, isGoal, unit, zero, g.neighbors)
	if len(res.Path) != 0 {
		t.Fatalf("expected empty path, got %v", res.Path)
	}
	if len(res.Closed) != 16 {
		t.Fatalf("closed=%d want all 16 cells explored", len(res.Closed))
	}
}

func TestSearch_NoStarts(t *testing.T) {
	g := testGrid{w: 2, h: 2}
	res := Search(nil, func(pt) bool { return true }, unit, zero, g.neighbors)
	if len(res.Path) != 0 || len(res.Closed) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSearch_MultiStartPicksNearest(t *testing.T) {
	g := testGrid{w: 5, h: 5}
	res := Search([]pt{{0, 0}, {4, 4}}, FromNodes([]pt{{3, 4}}), unit, zero, g.neighbors)
	if len(res.Path) != 2 {
		t.Fatalf("path=%v want 2 nodes", res.Path)
	}
	if res.Path[0] != (pt{4, 4}) {
		t.Fatalf("path starts at %v, want the nearer start (4,4)", res.Path[0])
	}
}

func TestSearch_DuplicateStarts(t *testing.T) {
	g := testGrid{w: 3, h: 1}
	res := Search([]pt{{0, 0}, {0, 0}}, FromNodes([]pt{{2, 0}}), unit, zero, g.neighbors)
	if len(res.Path) != 3 || res.Path[0] != (pt{0, 0}) {
		t.Fatalf("path=%v", res.Path)
	}
}

func TestSearch_WeightedDetour(t *testing.T) {
	// s -> g costs 10 directly, 2 via m.
	adj := map[string][]string{"s": {"g", "m"}, "m": {"g"}, "g": nil}
	w := map[[2]string]float64{{"s", "g"}: 10, {"s", "m"}: 1, {"m", "g"}: 1}
	res := Search(
		[]string{"s"},
		func(n string) bool { return n == "g" },
		func(a, b string) float64 { return w[[2]string{a, b}] },
		func(string) float64 { return 0 },
		func(n string) []string { return adj[n] },
	)
	if got := res.Path; len(got) != 3 || got[1] != "m" {
		t.Fatalf("path=%v want s,m,g", got)
	}
	if res.G["g"] != 2 {
		t.Fatalf("g(g)=%v want 2", res.G["g"])
	}
	if res.From["g"] != "m" {
		t.Fatalf("from(g)=%q want m", res.From["g"])
	}
}

func TestSearch_TieBreakEarliestInsertion(t *testing.T) {
	adj := map[string][]string{"s": {"b", "a"}}
	res := Search(
		[]string{"s"},
		func(n string) bool { return n == "a" || n == "b" },
		func(string, string) float64 { return 1 },
		func(string) float64 { return 0 },
		func(n string) []string { return adj[n] },
	)
	if got := res.Path[len(res.Path)-1]; got != "b" {
		t.Fatalf("goal=%q want b (inserted first)", got)
	}
}

func TestSearch_TieBreakLowerG(t *testing.T) {
	// Both reach f=2: a via g=1,h=1 and b via g=2,h=0. b is inserted first.
	adj := map[string][]string{"s": {"b", "a"}}
	cost := map[string]float64{"a": 1, "b": 2}
	hv := map[string]float64{"a": 1}
	res := Search(
		[]string{"s"},
		func(n string) bool { return n == "a" || n == "b" },
		func(_, b string) float64 { return cost[b] },
		func(n string) float64 { return hv[n] },
		func(n string) []string { return adj[n] },
	)
	if got := res.Path[len(res.Path)-1]; got != "a" {
		t.Fatalf("goal=%q want a (lower g)", got)
	}
	if res.F["a"] != 2 || res.F["b"] != 2 {
		t.Fatalf("f scores: a=%v b=%v", res.F["a"], res.F["b"])
	}
}

func TestSearch_Deterministic(t *testing.T) {
	g := testGrid{w: 6, h: 6}
	goal := FromNodes([]pt{{0, 5}, {5, 0}, {5, 5}})
	first := Search([]pt{{2, 2}}, goal, unit, zero, g.neighbors)
	for i := 0; i < 20; i++ {
		again := Search([]pt{{2, 2}}, goal, unit, zero, g.neighbors)
		if len(again.Path) != len(first.Path) {
			t.Fatalf("run %d: path length changed", i)
		}
		for j := range first.Path {
			if again.Path[j] != first.Path[j] {
				t.Fatalf("run %d: path=%v want %v", i, again.Path, first.Path)
			}
		}
	}
}

func TestSearch_MatchesBFSOnRandomGrids(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		g := testGrid{w: 12, h: 9, blocked: map[pt]bool{}}
		for i := 0; i < 30; i++ {
			g.blocked[pt{r.Intn(g.w), r.Intn(g.h)}] = true
		}
		starts := []pt{{r.Intn(g.w), r.Intn(g.h)}, {r.Intn(g.w), r.Intn(g.h)}}
		for _, s := range starts {
			delete(g.blocked, s)
		}
		target := pt{r.Intn(g.w), r.Intn(g.h)}
		delete(g.blocked, target)
		isGoal := FromNodes([]pt{target})

		manhattan := func(p pt) float64 {
			dx, dy := p.X-target.X, p.Y-target.Y
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			return float64(dx + dy)
		}

		want := bfsDist(g, starts, isGoal)
		for _, h := range []func(pt) float64{zero, manhattan} {
			res := Search(starts, isGoal, unit, h, g.neighbors)
			if want < 0 {
				if len(res.Path) != 0 {
					t.Fatalf("trial %d: expected no path, got %v", trial, res.Path)
				}
				continue
			}
			if got := len(res.Path) - 1; got != want {
				t.Fatalf("trial %d: steps=%d want %d (path=%v)", trial, got, want, res.Path)
			}
			if res.Path[0] != starts[0] && res.Path[0] != starts[1] {
				t.Fatalf("trial %d: path starts at %v, not a start", trial, res.Path[0])
			}
			if res.Path[len(res.Path)-1] != target {
				t.Fatalf("trial %d: path ends at %v", trial, res.Path[len(res.Path)-1])
			}
			checkPath(t, g, res.Path)
		}
	}
}
