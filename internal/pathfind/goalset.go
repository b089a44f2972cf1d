package pathfind

// FromNodes returns a constant-time membership test over nodes.
// An empty collection yields a predicate that is always false.
func FromNodes[T comparable](nodes []T) func(T) bool {
	set := make(map[T]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return func(n T) bool {
		_, ok := set[n]
		return ok
	}
}

// FromKeys is FromNodes for nodes compared by key rather than identity.
func FromKeys[N any, K comparable](key func(N) K, nodes []N) func(N) bool {
	set := make(map[K]struct{}, len(nodes))
	for _, n := range nodes {
		set[key(n)] = struct{}{}
	}
	return func(n N) bool {
		_, ok := set[key(n)]
		return ok
	}
}
