package cluster

import (
	"github.com/currentframework/bricks/httpserver"
	"github.com/currentframework/bricks/mmpq"
)

// EngineSource is the Source main.go wires into NewControlPlane: it reports
// every live MMPQ edge process-wide (mmpq.Snapshot, populated by
// ripcurrent.Pipe) and the given router's registered routes.
type EngineSource struct {
	router *httpserver.Router
}

// NewEngineSource builds a Source reporting edges from the process-wide MMPQ
// registry and routes from router.
func NewEngineSource(router *httpserver.Router) *EngineSource {
	return &EngineSource{router: router}
}

// Edges implements Source.
func (e *EngineSource) Edges() []EdgeStat {
	snap := mmpq.Snapshot()
	out := make([]EdgeStat, 0, len(snap))
	for _, s := range snap {
		out = append(out, EdgeStat{
			Edge:          s.Name,
			PublishCalled: s.Stats.PublishCalled,
			Published:     s.Stats.Published,
			NotPublished:  s.Stats.NotPublished,
			Processed:     s.Stats.Processed,
			Pending:       s.Stats.Pending,
			Head:          int64(s.Stats.Head),
			HaveHead:      s.Stats.HaveHead,
		})
	}
	return out
}

// Routes implements Source.
func (e *EngineSource) Routes() []RouteEntry {
	rs := e.router.Routes()
	out := make([]RouteEntry, 0, len(rs))
	for _, r := range rs {
		out = append(out, RouteEntry{Method: r.Method, Path: r.Path})
	}
	return out
}

var _ Source = (*EngineSource)(nil)
