// Package pathfind implements a multi-source best-first (A*) search over
// caller-supplied graphs, plus helpers for building goal predicates.
package pathfind

import "container/heap"

// Result is the full trace of one Search call.
//
// Path is empty when no reachable node satisfies the goal. Otherwise Path[0]
// is one of the start nodes and the last element satisfies the goal.
type Result[T comparable] struct {
	Path   []T
	Closed map[T]struct{}
	Open   map[T]struct{}
	From   map[T]T
	G      map[T]float64
	F      map[T]float64
}

// Search runs A* from every node in starts until a node satisfying isGoal is
// expanded or the frontier is exhausted.
//
// Among frontier nodes with equal F the one with the lower G is expanded first;
// remaining ties go to the node (re)admitted to the frontier earliest. With
// h == 0 and unit cost this is a breadth-first shortest path by step count.
func Search[T comparable](
	starts []T,
	isGoal func(T) bool,
	cost func(a, b T) float64,
	h func(T) float64,
	neighbors func(T) []T,
) Result[T] {
	res := Result[T]{
		Closed: make(map[T]struct{}),
		Open:   make(map[T]struct{}, len(starts)),
		From:   make(map[T]T),
		G:      make(map[T]float64, len(starts)),
		F:      make(map[T]float64, len(starts)),
	}

	var q frontier[T]
	var seq uint64
	admit := func(n T, g, f float64) {
		res.Open[n] = struct{}{}
		res.G[n] = g
		res.F[n] = f
		heap.Push(&q, entry[T]{node: n, g: g, f: f, seq: seq})
		seq++
	}

	for _, s := range starts {
		if _, dup := res.Open[s]; dup {
			continue
		}
		admit(s, 0, h(s))
	}

	for q.Len() > 0 {
		e := heap.Pop(&q).(entry[T])
		cur := e.node
		if _, ok := res.Open[cur]; !ok || res.G[cur] != e.g {
			continue
		}
		delete(res.Open, cur)
		res.Closed[cur] = struct{}{}

		if isGoal(cur) {
			res.Path = reconstruct(res.From, cur)
			break
		}

		curG := res.G[cur]
		for _, nb := range neighbors(cur) {
			if _, done := res.Closed[nb]; done {
				continue
			}
			g := curG + cost(cur, nb)
			_, inOpen := res.Open[nb]
			if inOpen && g >= res.G[nb] {
				continue
			}
			res.From[nb] = cur
			admit(nb, g, g+h(nb))
		}
	}
	return res
}

func reconstruct[T comparable](from map[T]T, goal T) []T {
	path := []T{goal}
	for next, ok := from[goal]; ok; next, ok = from[next] {
		path = append(path, next)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type entry[T comparable] struct {
	node T
	g    float64
	f    float64
	seq  uint64
}

// frontier is a min-heap on (f, g, seq). Superseded entries stay in the heap
// and are skipped on pop.
type frontier[T comparable] []entry[T]

func (q frontier[T]) Len() int { return len(q) }

func (q frontier[T]) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.g != b.g {
		return a.g < b.g
	}
	return a.seq < b.seq
}

func (q frontier[T]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *frontier[T]) Push(x any) { *q = append(*q, x.(entry[T])) }

func (q *frontier[T]) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
