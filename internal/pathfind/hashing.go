package pathfind

// KeyedResult is the trace of a HashingSearch. Nodes need not be comparable,
// so every set and map is indexed by node key and holds the original node.
type KeyedResult[N any, K comparable] struct {
	Path   []N
	Closed map[K]N
	Open   map[K]N
	// From maps a node key to the predecessor node that reached it cheapest.
	From map[K]N
	G    map[K]float64
	F    map[K]float64
}

// HashingSearch runs Search over the keys produced by key and translates the
// result back to nodes. The node recorded for a key is the first one hashed to it.
//
// key must be injective over every node visited during the search. Colliding
// nodes are silently merged.
func HashingSearch[N any, K comparable](
	key func(N) K,
	starts []N,
	isGoal func(N) bool,
	cost func(a, b N) float64,
	h func(N) float64,
	neighbors func(N) []N,
) KeyedResult[N, K] {
	nodes := make(map[K]N, len(starts))
	hash := func(n N) K {
		k := key(n)
		if _, ok := nodes[k]; !ok {
			nodes[k] = n
		}
		return k
	}

	startKeys := make([]K, len(starts))
	for i, s := range starts {
		startKeys[i] = hash(s)
	}

	inner := Search(
		startKeys,
		func(k K) bool { return isGoal(nodes[k]) },
		func(a, b K) float64 { return cost(nodes[a], nodes[b]) },
		func(k K) float64 { return h(nodes[k]) },
		func(k K) []K {
			nbs := neighbors(nodes[k])
			out := make([]K, len(nbs))
			for i, nb := range nbs {
				out[i] = hash(nb)
			}
			return out
		},
	)

	res := KeyedResult[N, K]{
		Path:   make([]N, len(inner.Path)),
		Closed: make(map[K]N, len(inner.Closed)),
		Open:   make(map[K]N, len(inner.Open)),
		From:   make(map[K]N, len(inner.From)),
		G:      inner.G,
		F:      inner.F,
	}
	for i, k := range inner.Path {
		res.Path[i] = nodes[k]
	}
	for k := range inner.Closed {
		res.Closed[k] = nodes[k]
	}
	for k := range inner.Open {
		res.Open[k] = nodes[k]
	}
	for k, prev := range inner.From {
		res.From[k] = nodes[prev]
	}
	return res
}
