package mmpq

import "sync"

// StatsProvider is satisfied by every *Queue[T] regardless of T, since Stats
// itself is not generic. It lets the registry hold queues of different
// element types in one map.
type StatsProvider interface {
	Stats() Stats
}

// NamedStats pairs an edge's label with its point-in-time Stats, for
// process-wide introspection (the cluster package's ListEdges/WatchEdges
// RPCs).
type NamedStats struct {
	Name  string
	Stats Stats
}

type registry struct {
	mu    sync.RWMutex
	edges map[string]StatsProvider
}

var globalRegistry = &registry{edges: make(map[string]StatsProvider)}

// Register makes q visible under name to Snapshot. Pipe calls this for every
// queue it builds; name collisions overwrite the previous entry, matching
// the "last wiring wins" semantics of a hot-reloaded pipeline.
func Register(name string, q StatsProvider) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.edges[name] = q
}

// Unregister removes name, if q is still the registered provider for it.
// Safe to call on a name that was never registered or already replaced.
func Unregister(name string, q StatsProvider) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	if globalRegistry.edges[name] == q {
		delete(globalRegistry.edges, name)
	}
}

// Snapshot returns a Stats snapshot for every currently-registered edge.
func Snapshot() []NamedStats {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]NamedStats, 0, len(globalRegistry.edges))
	for name, q := range globalRegistry.edges {
		out = append(out, NamedStats{Name: name, Stats: q.Stats()})
	}
	return out
}
