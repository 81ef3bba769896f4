package cluster

// BlockDiagnostic mirrors one registered ripcurrent.Block's Describe()/
// DescribeWithTypes() output plus its leak status, streamed read-only to a
// monitor process.
type BlockDiagnostic struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LHS         string `json:"lhs"`
	RHS         string `json:"rhs"`
	Leaked      bool   `json:"leaked"`
}

// EdgeStat mirrors one mmpq.Queue's Stats(), identified by the pipeline edge
// name it backs.
type EdgeStat struct {
	Edge          string `json:"edge"`
	PublishCalled uint64 `json:"publish_called"`
	Published     uint64 `json:"published"`
	NotPublished  uint64 `json:"not_published"`
	Processed     uint64 `json:"processed"`
	Pending       int    `json:"pending"`
	Head          int64  `json:"head"`
	HaveHead      bool   `json:"have_head"`
}

// RouteEntry mirrors one httpserver.Router route.
type RouteEntry struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// ListBlocksRequest/ListBlocksResponse is the ListBlocks RPC envelope.
type ListBlocksRequest struct{}
type ListBlocksResponse struct {
	Blocks []BlockDiagnostic `json:"blocks"`
}

// ListEdgesRequest/ListEdgesResponse is the ListEdges RPC envelope, also
// used for each WatchEdges push.
type ListEdgesRequest struct{}
type ListEdgesResponse struct {
	Edges []EdgeStat `json:"edges"`
}

// ListRoutesRequest/ListRoutesResponse is the ListRoutes RPC envelope.
type ListRoutesRequest struct{}
type ListRoutesResponse struct {
	Routes []RouteEntry `json:"routes"`
}

// WatchEdgesRequest opens a WatchEdges stream, pushed every IntervalMillis
// (default 1000 if zero or negative).
type WatchEdgesRequest struct {
	IntervalMillis int64 `json:"interval_millis"`
}
