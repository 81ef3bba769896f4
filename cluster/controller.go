// Package cluster's ControlPlane is the authoritative introspection server
// for a running bricks process: it exports read-only telemetry over gRPC
// for RipCurrent pipeline composition, MMPQ edge statistics, and the HTTP
// router's live route table, to a monitor process. The dataflow itself
// never leaves the process; ControlPlane is purely observational and keeps
// no durable state of its own.
//
// Thread-safety:
//   - The pipeline registry is guarded by a sync.RWMutex; reads (ListBlocks)
//     never block each other.
//   - Concurrent RegisterPipeline/UnregisterPipeline calls on the same name
//     are serialised through an InMemoryLock so a hot-reload of one named
//     pipeline never races a concurrent reload of the same name, while a
//     reload of a different pipeline proceeds uncontended.
package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/currentframework/bricks/ripcurrent"
)

// Source supplies the live data ControlPlane's RPCs report. main.go wires a
// Source backed by the process's actual mmpq edges and httpserver router.
type Source interface {
	// Edges returns a snapshot of every live mmpq.Queue edge's Stats.
	Edges() []EdgeStat
	// Routes returns a snapshot of the HTTP router's route table.
	Routes() []RouteEntry
}

// ControlPlane implements IntrospectionServer.
type ControlPlane struct {
	source Source
	lock   *InMemoryLock

	pipelineMu sync.RWMutex
	pipelines  map[string]*ripcurrent.Block
}

// NewControlPlane creates a ControlPlane backed by source.
func NewControlPlane(source Source) *ControlPlane {
	return &ControlPlane{
		source:    source,
		lock:      NewInMemoryLock(),
		pipelines: make(map[string]*ripcurrent.Block),
	}
}

// RegisterPipeline makes an already-composed, top-level block visible to
// ListBlocks under name. Safe for concurrent callers registering distinct
// names; re-registering the same name is serialised against concurrent
// registration/unregistration of that name.
func (c *ControlPlane) RegisterPipeline(ctx context.Context, name string, b *ripcurrent.Block) error {
	if err := c.lock.Lock(ctx, name); err != nil {
		return fmt.Errorf("cluster: register pipeline %q: %w", name, err)
	}
	defer c.lock.Unlock(name)

	c.pipelineMu.Lock()
	c.pipelines[name] = b
	c.pipelineMu.Unlock()
	return nil
}

// UnregisterPipeline removes name from the registry.
func (c *ControlPlane) UnregisterPipeline(ctx context.Context, name string) error {
	if err := c.lock.Lock(ctx, name); err != nil {
		return fmt.Errorf("cluster: unregister pipeline %q: %w", name, err)
	}
	defer c.lock.Unlock(name)

	c.pipelineMu.Lock()
	delete(c.pipelines, name)
	c.pipelineMu.Unlock()
	return nil
}

// ListBlocks returns Describe/DescribeWithTypes diagnostics for every
// registered pipeline.
func (c *ControlPlane) ListBlocks(_ context.Context, _ *ListBlocksRequest) (*ListBlocksResponse, error) {
	c.pipelineMu.RLock()
	defer c.pipelineMu.RUnlock()

	diags := make([]BlockDiagnostic, 0, len(c.pipelines))
	for name, b := range c.pipelines {
		diags = append(diags, BlockDiagnostic{
			Name:        name,
			Description: b.Describe(),
			LHS:         b.LHS().String(),
			RHS:         b.RHS().String(),
			Leaked:      b.Leaked(),
		})
	}
	return &ListBlocksResponse{Blocks: diags}, nil
}

// ListEdges returns a point-in-time snapshot of every live MMPQ edge.
func (c *ControlPlane) ListEdges(_ context.Context, _ *ListEdgesRequest) (*ListEdgesResponse, error) {
	return &ListEdgesResponse{Edges: c.source.Edges()}, nil
}

// ListRoutes returns a snapshot of the HTTP router's live route table.
func (c *ControlPlane) ListRoutes(_ context.Context, _ *ListRoutesRequest) (*ListRoutesResponse, error) {
	return &ListRoutesResponse{Routes: c.source.Routes()}, nil
}

// WatchEdges streams an EdgeStat snapshot every req.IntervalMillis (default
// 1 second) until the client disconnects or the stream context is
// cancelled.
func (c *ControlPlane) WatchEdges(req *WatchEdgesRequest, stream Introspection_WatchEdgesServer) error {
	interval := time.Duration(req.IntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := stream.Context()
	for {
		if err := stream.Send(&ListEdgesResponse{Edges: c.source.Edges()}); err != nil {
			return fmt.Errorf("cluster: watch edges: send: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListenAndServe starts a gRPC server exposing plane on addr (e.g.
// ":50051") and blocks until ctx is cancelled, at which point it performs a
// graceful stop and returns.
func ListenAndServe(ctx context.Context, addr string, plane *ControlPlane, opts ...grpc.ServerOption) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cluster: listen %s: %w", addr, err)
	}

	srv := grpc.NewServer(opts...)
	RegisterIntrospectionServer(srv, plane)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("cluster: serve: %w", err)
	}
}
