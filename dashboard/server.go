// Package dashboard provides a real-time HTTP dashboard for a running
// bricks process.
//
// It exposes:
//   - GET  /api/metrics/stream  – SSE stream of live metrics (100 ms ticks)
//   - GET  /api/logs/stream     – SSE stream of log entries
//   - GET  /api/config          – current engine configuration (JSON)
//   - POST /api/config          – hot-reload selected config fields (JSON body)
//   - GET  /api/blocks          – RipCurrent pipeline diagnostics (JSON)
//   - GET  /api/edges           – MMPQ edge statistics (JSON)
//   - GET  /api/routes          – live HTTP route table (JSON)
//   - POST /api/proxy           – upload a new proxy list (raw body)
//
// All SSE endpoints are served as chunked HTTP/1.1 responses via
// httpserver.Conn.SendChunkedHTTPResponse, matching the event-stream framing
// browsers expect from EventSource, without depending on net/http. CORS is
// wide-open so a separate frontend dev server can reach this one.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/currentframework/bricks/cluster"
	"github.com/currentframework/bricks/config"
	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/httpserver"
	"github.com/currentframework/bricks/metrics"
)

// ─── Data Types ────────────────────────────────────────────────────────────

// MetricsSnapshot is the JSON payload pushed to dashboard clients every tick.
type MetricsSnapshot struct {
	Timestamp int64 `json:"timestamp"`
	metrics.Snapshot
}

// LogEntry is a structured log line streamed to the dashboard.
type LogEntry struct {
	Timestamp int64  `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// ConfigPayload is the subset of Config fields that can be hot-updated.
type ConfigPayload struct {
	TargetURL        string `json:"target_url"`
	NumberOfSessions int    `json:"number_of_sessions"`
	MaxRetries       int    `json:"max_retries"`
}

// RuntimeStatus reports the process's own resource usage: this engine runs
// as a single process, so there is exactly one health row to report.
type RuntimeStatus struct {
	MemoryMB   uint64 `json:"memory_mb"`
	Goroutines int    `json:"goroutines"`
}

// ─── Server ────────────────────────────────────────────────────────────────

// Server provides HTTP endpoints consumed by a dashboard frontend.
type Server struct {
	metrics *metrics.Metrics
	cfg     *config.Config
	cfgMu   sync.RWMutex
	plane   *cluster.ControlPlane
	logger  *zap.Logger

	logMu    sync.Mutex
	logs     []LogEntry
	logSubs  map[chan LogEntry]struct{}
	logSubMu sync.Mutex

	metricsSubs  map[chan MetricsSnapshot]struct{}
	metricsSubMu sync.Mutex

	router *httpserver.Router
	srv    *httpserver.Server
}

const maxLogs = 10_000

// New creates a dashboard Server backed by m (live counters), cfg (hot
// reloadable config), and plane (RipCurrent/MMPQ/route introspection,
// called in-process rather than over gRPC). workerCount bounds how many
// dashboard connections, including long-lived SSE streams, may be served
// concurrently.
func New(m *metrics.Metrics, cfg *config.Config, plane *cluster.ControlPlane, logger *zap.Logger, workerCount int) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		metrics:     m,
		cfg:         cfg,
		plane:       plane,
		logger:      logger,
		logs:        make([]LogEntry, 0, 512),
		logSubs:     make(map[chan LogEntry]struct{}),
		metricsSubs: make(map[chan MetricsSnapshot]struct{}),
		router:      httpserver.NewRouter(),
	}
	s.registerRoutes()
	s.srv = httpserver.NewServer(s.router, workerCount, httpserver.WithLogger(logger))
	return s
}

// AddLog appends a structured log entry to the ring buffer and fans it out
// to every active SSE /api/logs/stream subscriber.
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{
		Timestamp: time.Now().UnixMilli(),
		Level:     level,
		Message:   message,
	}

	s.logMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
	s.logMu.Unlock()

	s.logSubMu.Lock()
	for ch := range s.logSubs {
		select {
		case ch <- entry:
		default:
			// Slow subscriber – drop rather than block.
		}
	}
	s.logSubMu.Unlock()
}

// ListenAndServe binds port (0 means a reserved scavenged port) and serves
// dashboard requests, plus the 100ms metrics ticker, until ctx is
// cancelled. It returns the bound port and any bind error.
func (s *Server) ListenAndServe(ctx context.Context, port int) (int, error) {
	var bound int
	if port == 0 {
		p, err := s.srv.ListenOnReservedPort()
		if err != nil {
			return 0, fmt.Errorf("dashboard: listen: %w", err)
		}
		bound = p
	} else {
		if err := s.srv.ListenOnPort(port); err != nil {
			return 0, fmt.Errorf("dashboard: listen: %w", err)
		}
		bound = port
	}

	go s.metricsTicker(ctx)
	s.logger.Info("dashboard: listening", zap.Int("port", bound))

	<-ctx.Done()
	return bound, s.srv.Close()
}

// ─── Route registration ─────────────────────────────────────────────────────

func (s *Server) registerRoutes() {
	mustRegister(s.router, "/api/metrics/stream", "GET", s.handleMetricsStream)
	mustRegister(s.router, "/api/logs/stream", "GET", s.handleLogsStream)
	mustRegister(s.router, "/api/config", "GET", s.handleConfigGet)
	mustRegister(s.router, "/api/config", "POST", s.handleConfigPost)
	mustRegister(s.router, "/api/blocks", "GET", s.handleBlocks)
	mustRegister(s.router, "/api/edges", "GET", s.handleEdges)
	mustRegister(s.router, "/api/routes", "GET", s.handleRoutes)
	mustRegister(s.router, "/api/status", "GET", s.handleStatus)
	mustRegister(s.router, "/api/proxy", "POST", s.handleProxy)
}

// mustRegister panics if route registration fails, which can only happen
// from a programming error (a duplicate or malformed path) at startup.
func mustRegister(r *httpserver.Router, path, method string, h httpserver.HandlerFunc) {
	if _, err := r.Register(path, method, h); err != nil {
		panic(fmt.Sprintf("dashboard: register %s %s: %v", method, path, err))
	}
}

func corsHeaders() *httpmsg.Headers {
	h := httpmsg.NewHeaders()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	return h
}

func (s *Server) sendJSON(c *httpserver.Conn, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("dashboard: encode response", zap.Error(err))
		c.SendHTTPResponse([]byte(`{"error":"internal"}`), 500, corsHeaders(), "application/json")
		return
	}
	c.SendHTTPResponse(body, code, corsHeaders(), "application/json")
}

// ─── /api/metrics/stream ────────────────────────────────────────────────────

func (s *Server) metricsTicker(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := MetricsSnapshot{Timestamp: time.Now().UnixMilli(), Snapshot: s.metrics.Snapshot()}
			s.metricsSubMu.Lock()
			for ch := range s.metricsSubs {
				select {
				case ch <- snap:
				default:
				}
			}
			s.metricsSubMu.Unlock()
		}
	}
}

func (s *Server) handleMetricsStream(c *httpserver.Conn, _ []string) {
	sender, err := c.SendChunkedHTTPResponse(200, sseHeaders(), "text/event-stream")
	if err != nil {
		return
	}
	defer sender.Close()

	ch := make(chan MetricsSnapshot, 16)
	s.metricsSubMu.Lock()
	s.metricsSubs[ch] = struct{}{}
	s.metricsSubMu.Unlock()
	defer func() {
		s.metricsSubMu.Lock()
		delete(s.metricsSubs, ch)
		s.metricsSubMu.Unlock()
	}()

	for snap := range ch {
		if err := sseWrite(sender, snap); err != nil {
			return
		}
	}
}

// ─── /api/logs/stream ───────────────────────────────────────────────────────

func (s *Server) handleLogsStream(c *httpserver.Conn, _ []string) {
	sender, err := c.SendChunkedHTTPResponse(200, sseHeaders(), "text/event-stream")
	if err != nil {
		return
	}
	defer sender.Close()

	s.logMu.Lock()
	history := make([]LogEntry, len(s.logs))
	copy(history, s.logs)
	s.logMu.Unlock()

	for _, entry := range history {
		if err := sseWrite(sender, entry); err != nil {
			return
		}
	}

	ch := make(chan LogEntry, 256)
	s.logSubMu.Lock()
	s.logSubs[ch] = struct{}{}
	s.logSubMu.Unlock()
	defer func() {
		s.logSubMu.Lock()
		delete(s.logSubs, ch)
		s.logSubMu.Unlock()
	}()

	for entry := range ch {
		if err := sseWrite(sender, entry); err != nil {
			return
		}
	}
}

func sseHeaders() *httpmsg.Headers {
	h := corsHeaders()
	h.Set("Cache-Control", "no-cache")
	return h
}

func sseWrite(sender *httpserver.ChunkedSender, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sender.Send([]byte(fmt.Sprintf("data: %s\n\n", data)))
}

// ─── /api/config ─────────────────────────────────────────────────────────────

func (s *Server) handleConfigGet(c *httpserver.Conn, _ []string) {
	s.cfgMu.RLock()
	cfg := *s.cfg
	s.cfgMu.RUnlock()

	s.sendJSON(c, 200, ConfigPayload{
		TargetURL:        cfg.TargetURL,
		NumberOfSessions: cfg.NumberOfSessions,
		MaxRetries:       cfg.MaxRetries,
	})
}

func (s *Server) handleConfigPost(c *httpserver.Conn, _ []string) {
	var payload ConfigPayload
	if err := json.Unmarshal(c.Request.Body, &payload); err != nil {
		c.SendHTTPResponse([]byte("invalid JSON"), 400, corsHeaders(), "text/plain")
		return
	}

	s.cfgMu.Lock()
	if payload.TargetURL != "" {
		s.cfg.TargetURL = payload.TargetURL
	}
	if payload.NumberOfSessions > 0 && payload.NumberOfSessions <= 2000 {
		s.cfg.NumberOfSessions = payload.NumberOfSessions
	}
	if payload.MaxRetries > 0 && payload.MaxRetries <= 100 {
		s.cfg.MaxRetries = payload.MaxRetries
	}
	s.cfgMu.Unlock()

	s.AddLog("INFO", fmt.Sprintf("config updated via dashboard: target_url=%q sessions=%d retries=%d",
		payload.TargetURL, payload.NumberOfSessions, payload.MaxRetries))
	s.sendJSON(c, 200, map[string]bool{"ok": true})
}

// ─── /api/blocks, /api/edges, /api/routes ──────────────────────────────────

func (s *Server) handleBlocks(c *httpserver.Conn, _ []string) {
	resp, err := s.plane.ListBlocks(context.Background(), &cluster.ListBlocksRequest{})
	if err != nil {
		c.SendHTTPResponse([]byte(err.Error()), 500, corsHeaders(), "text/plain")
		return
	}
	s.sendJSON(c, 200, resp.Blocks)
}

func (s *Server) handleEdges(c *httpserver.Conn, _ []string) {
	resp, err := s.plane.ListEdges(context.Background(), &cluster.ListEdgesRequest{})
	if err != nil {
		c.SendHTTPResponse([]byte(err.Error()), 500, corsHeaders(), "text/plain")
		return
	}
	s.sendJSON(c, 200, resp.Edges)
}

func (s *Server) handleRoutes(c *httpserver.Conn, _ []string) {
	resp, err := s.plane.ListRoutes(context.Background(), &cluster.ListRoutesRequest{})
	if err != nil {
		c.SendHTTPResponse([]byte(err.Error()), 500, corsHeaders(), "text/plain")
		return
	}
	s.sendJSON(c, 200, resp.Routes)
}

// ─── /api/status ─────────────────────────────────────────────────────────────

func (s *Server) handleStatus(c *httpserver.Conn, _ []string) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.sendJSON(c, 200, RuntimeStatus{
		MemoryMB:   mem.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
	})
}

// ─── /api/proxy ──────────────────────────────────────────────────────────────

const maxProxyUploadSize = 10 << 20 // 10 MiB

// handleProxy accepts a newline-delimited proxy list as the raw request
// body (not multipart — the transport core has no form decoder, and a flat
// text/plain body is all a proxy list needs) and writes it to the path
// configured as cfg.ProxyFile.
func (s *Server) handleProxy(c *httpserver.Conn, _ []string) {
	body := c.Request.Body
	if len(body) > maxProxyUploadSize {
		c.SendHTTPResponse([]byte("payload too large"), 413, corsHeaders(), "text/plain")
		return
	}

	s.cfgMu.RLock()
	dest := s.cfg.ProxyFile
	s.cfgMu.RUnlock()
	if dest == "" {
		c.SendHTTPResponse([]byte("no proxy_file configured"), 400, corsHeaders(), "text/plain")
		return
	}

	if err := os.WriteFile(dest, body, 0o644); err != nil {
		s.logger.Error("dashboard: write proxy file", zap.Error(err))
		c.SendHTTPResponse([]byte("server error"), 500, corsHeaders(), "text/plain")
		return
	}

	s.AddLog("INFO", fmt.Sprintf("proxy list uploaded: file=%q bytes=%d", dest, len(body)))
	s.sendJSON(c, 200, map[string]any{"ok": true, "path": dest, "bytes": len(body)})
}
