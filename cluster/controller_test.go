package cluster_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/currentframework/bricks/cluster"
	"github.com/currentframework/bricks/ripcurrent"
)

// fakeSource is a stub cluster.Source for tests.
type fakeSource struct {
	edges  []cluster.EdgeStat
	routes []cluster.RouteEntry
}

func (f *fakeSource) Edges() []cluster.EdgeStat   { return f.edges }
func (f *fakeSource) Routes() []cluster.RouteEntry { return f.routes }

// startBufconnServer starts a ControlPlane over an in-memory bufconn
// listener and returns a dial func plus a stop func.
func startBufconnServer(t *testing.T, plane *cluster.ControlPlane) (dialFn func(context.Context, string) (net.Conn, error), stop func()) {
	t.Helper()
	const bufSize = 1 << 20
	lis := bufconn.Listen(bufSize)

	srv := grpc.NewServer()
	cluster.RegisterIntrospectionServer(srv, plane)
	go func() { _ = srv.Serve(lis) }()

	dialFn = func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	stop = func() {
		srv.GracefulStop()
		_ = lis.Close()
	}
	return dialFn, stop
}

func dialBufconn(t *testing.T, dialFn func(context.Context, string) (net.Conn, error)) *cluster.MonitorClient {
	t.Helper()
	m, err := cluster.NewMonitorClient("passthrough:///bufconn",
		grpc.WithContextDialer(dialFn),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewMonitorClient: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestControlPlane_ListBlocksReflectsRegisteredPipelines(t *testing.T) {
	type order struct{}
	b := ripcurrent.Define("ValidateOrder", ripcurrent.Types(ripcurrent.TypeOf[order]()), ripcurrent.None())
	t.Cleanup(b.Dismiss)

	plane := cluster.NewControlPlane(&fakeSource{})
	if err := plane.RegisterPipeline(context.Background(), "orders", b); err != nil {
		t.Fatalf("RegisterPipeline: %v", err)
	}

	dialFn, stop := startBufconnServer(t, plane)
	defer stop()
	m := dialBufconn(t, dialFn)

	blocks, err := m.Blocks(context.Background())
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Name != "orders" || blocks[0].Description != "ValidateOrder" {
		t.Errorf("unexpected block diagnostic: %+v", blocks[0])
	}
}

func TestControlPlane_UnregisterPipelineRemovesIt(t *testing.T) {
	type order struct{}
	b := ripcurrent.Define("ValidateOrder", ripcurrent.Types(ripcurrent.TypeOf[order]()), ripcurrent.None())
	t.Cleanup(b.Dismiss)

	plane := cluster.NewControlPlane(&fakeSource{})
	ctx := context.Background()
	if err := plane.RegisterPipeline(ctx, "orders", b); err != nil {
		t.Fatalf("RegisterPipeline: %v", err)
	}
	if err := plane.UnregisterPipeline(ctx, "orders"); err != nil {
		t.Fatalf("UnregisterPipeline: %v", err)
	}

	resp, err := plane.ListBlocks(ctx, &cluster.ListBlocksRequest{})
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(resp.Blocks) != 0 {
		t.Errorf("expected 0 blocks after unregister, got %d", len(resp.Blocks))
	}
}

func TestControlPlane_ListEdgesAndRoutesDelegateToSource(t *testing.T) {
	src := &fakeSource{
		edges:  []cluster.EdgeStat{{Edge: "validate|persist", Published: 3, Processed: 2}},
		routes: []cluster.RouteEntry{{Method: "GET", Path: "/health"}},
	}
	plane := cluster.NewControlPlane(src)

	dialFn, stop := startBufconnServer(t, plane)
	defer stop()
	m := dialBufconn(t, dialFn)

	edges, err := m.Edges(context.Background())
	if err != nil {
		t.Fatalf("Edges: %v", err)
	}
	if len(edges) != 1 || edges[0].Edge != "validate|persist" {
		t.Errorf("unexpected edges: %+v", edges)
	}

	routes, err := m.Routes(context.Background())
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}
	if len(routes) != 1 || routes[0].Path != "/health" {
		t.Errorf("unexpected routes: %+v", routes)
	}
}

func TestControlPlane_WatchEdgesStreamsUpdates(t *testing.T) {
	src := &fakeSource{edges: []cluster.EdgeStat{{Edge: "a|b", Processed: 1}}}
	plane := cluster.NewControlPlane(src)

	dialFn, stop := startBufconnServer(t, plane)
	defer stop()
	m := dialBufconn(t, dialFn)

	received := make(chan []cluster.EdgeStat, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.WatchEdges(ctx, 20, func(e []cluster.EdgeStat) {
		received <- e
	}); err != nil {
		t.Fatalf("WatchEdges: %v", err)
	}

	select {
	case edges := <-received:
		if len(edges) != 1 || edges[0].Edge != "a|b" {
			t.Errorf("unexpected first push: %+v", edges)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive first WatchEdges push within 1s")
	}

	src.edges = []cluster.EdgeStat{{Edge: "a|b", Processed: 2}}

	select {
	case edges := <-received:
		if len(edges) != 1 || edges[0].Processed != 2 {
			t.Errorf("unexpected second push: %+v", edges)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive second WatchEdges push within 1s")
	}
}
