package dashboard

import (
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/currentframework/bricks/cluster"
	"github.com/currentframework/bricks/config"
	"github.com/currentframework/bricks/httpparser"
	"github.com/currentframework/bricks/httpserver"
	"github.com/currentframework/bricks/metrics"
	"github.com/currentframework/bricks/socket"
)

func newTestServer() *Server {
	m := metrics.NewMetrics()
	cfg := &config.Config{TargetURL: "http://example.test", NumberOfSessions: 10, MaxRetries: 3}
	plane := cluster.NewControlPlane(cluster.NewEngineSource(httpserver.NewRouter()))
	return New(m, cfg, plane, nil, 4)
}

func pipeConn(req *httpparser.Request) (*httpserver.Conn, net.Conn) {
	serverSide, clientSide := net.Pipe()
	sc := socket.NewConnection(serverSide)
	return httpserver.NewConn(sc, req), clientSide
}

func readAll(t *testing.T, clientSide net.Conn) string {
	t.Helper()
	buf := make([]byte, 16384)
	n, _ := clientSide.Read(buf)
	return string(buf[:n])
}

func bodyOf(t *testing.T, raw string) string {
	t.Helper()
	idx := strings.Index(raw, "\r\n\r\n")
	if idx < 0 {
		t.Fatalf("no header/body split in %q", raw)
	}
	return raw[idx+4:]
}

func TestHandleConfigGet_ReturnsCurrentConfig(t *testing.T) {
	s := newTestServer()
	c, clientSide := pipeConn(nil)

	done := make(chan string, 1)
	go func() { done <- readAll(t, clientSide) }()

	s.handleConfigGet(c, nil)
	raw := <-done

	var payload ConfigPayload
	if err := json.Unmarshal([]byte(bodyOf(t, raw)), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.TargetURL != "http://example.test" || payload.NumberOfSessions != 10 {
		t.Errorf("unexpected config payload: %+v", payload)
	}
}

func TestHandleConfigPost_UpdatesWithinBounds(t *testing.T) {
	s := newTestServer()
	req := &httpparser.Request{Body: []byte(`{"target_url":"http://new.test","number_of_sessions":50,"max_retries":5}`)}
	c, clientSide := pipeConn(req)

	done := make(chan string, 1)
	go func() { done <- readAll(t, clientSide) }()
	s.handleConfigPost(c, nil)
	<-done

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if s.cfg.TargetURL != "http://new.test" || s.cfg.NumberOfSessions != 50 || s.cfg.MaxRetries != 5 {
		t.Errorf("config not updated: %+v", s.cfg)
	}
}

func TestHandleConfigPost_IgnoresOutOfBoundsValues(t *testing.T) {
	s := newTestServer()
	req := &httpparser.Request{Body: []byte(`{"number_of_sessions":999999,"max_retries":-1}`)}
	c, clientSide := pipeConn(req)

	done := make(chan string, 1)
	go func() { done <- readAll(t, clientSide) }()
	s.handleConfigPost(c, nil)
	<-done

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if s.cfg.NumberOfSessions != 10 || s.cfg.MaxRetries != 3 {
		t.Errorf("out-of-bounds values should not have been applied: %+v", s.cfg)
	}
}

func TestHandleBlocks_EmptyWhenNoPipelineRegistered(t *testing.T) {
	s := newTestServer()
	// No pipelines registered: expect an empty (not null-panicking) list.
	c, clientSide := pipeConn(nil)
	done := make(chan string, 1)
	go func() { done <- readAll(t, clientSide) }()
	s.handleBlocks(c, nil)
	raw := <-done

	var blocks []cluster.BlockDiagnostic
	if err := json.Unmarshal([]byte(bodyOf(t, raw)), &blocks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no registered blocks, got %d", len(blocks))
	}
}

func TestAddLog_FansOutToSubscribers(t *testing.T) {
	s := newTestServer()
	ch := make(chan LogEntry, 1)
	s.logSubMu.Lock()
	s.logSubs[ch] = struct{}{}
	s.logSubMu.Unlock()

	s.AddLog("INFO", "hello")

	select {
	case entry := <-ch:
		if entry.Level != "INFO" || entry.Message != "hello" {
			t.Errorf("unexpected log entry: %+v", entry)
		}
	default:
		t.Fatal("expected a fanned-out log entry")
	}

	s.logMu.Lock()
	defer s.logMu.Unlock()
	if len(s.logs) != 1 {
		t.Errorf("expected 1 buffered log entry, got %d", len(s.logs))
	}
}
