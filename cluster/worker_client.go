package cluster

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// MonitorClient wraps IntrospectionClient with a higher-level API tailored
// to a monitor process watching one bricks engine instance. It is safe for
// concurrent use by many goroutines.
type MonitorClient struct {
	conn   *grpc.ClientConn
	client IntrospectionClient
}

// NewMonitorClient dials the engine's control-plane address and returns a
// ready MonitorClient.
//
// The connection uses plain-text gRPC (no TLS), appropriate for a trusted
// LAN or a loopback/monitoring sidecar. Internet-facing deployments should
// pass grpc.WithTransportCredentials(credentials.NewTLS(...)) via opts.
func NewMonitorClient(addr string, opts ...grpc.DialOption) (*MonitorClient, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	opts = append(defaults, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("monitor client: dial %s: %w", addr, err)
	}
	return &MonitorClient{
		conn:   conn,
		client: NewIntrospectionClient(conn),
	}, nil
}

// Close tears down the underlying gRPC connection.
func (m *MonitorClient) Close() error {
	return m.conn.Close()
}

// Blocks fetches the current RipCurrent pipeline diagnostics.
func (m *MonitorClient) Blocks(ctx context.Context) ([]BlockDiagnostic, error) {
	resp, err := m.client.ListBlocks(ctx, &ListBlocksRequest{})
	if err != nil {
		return nil, fmt.Errorf("monitor client: list blocks: %w", err)
	}
	return resp.Blocks, nil
}

// Edges fetches a one-shot snapshot of every live MMPQ edge's Stats.
func (m *MonitorClient) Edges(ctx context.Context) ([]EdgeStat, error) {
	resp, err := m.client.ListEdges(ctx, &ListEdgesRequest{})
	if err != nil {
		return nil, fmt.Errorf("monitor client: list edges: %w", err)
	}
	return resp.Edges, nil
}

// Routes fetches the HTTP router's live route table.
func (m *MonitorClient) Routes(ctx context.Context) ([]RouteEntry, error) {
	resp, err := m.client.ListRoutes(ctx, &ListRoutesRequest{})
	if err != nil {
		return nil, fmt.Errorf("monitor client: list routes: %w", err)
	}
	return resp.Routes, nil
}

// WatchEdges opens a streaming subscription and calls onUpdate every time
// the engine pushes a fresh edge-stats snapshot, at roughly the given
// interval (zero means the server's own default). The goroutine exits when
// ctx is cancelled or the stream encounters a non-recoverable error.
//
// onUpdate is called from the background goroutine; if it blocks it will
// delay receipt of subsequent updates.
func (m *MonitorClient) WatchEdges(ctx context.Context, interval int64, onUpdate func([]EdgeStat)) error {
	stream, err := m.client.WatchEdges(ctx, &WatchEdgesRequest{IntervalMillis: interval})
	if err != nil {
		return fmt.Errorf("monitor client: open watch stream: %w", err)
	}

	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				return // context cancelled or server closed stream
			}
			onUpdate(resp.Edges)
		}
	}()
	return nil
}
