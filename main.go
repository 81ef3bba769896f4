// bricks is an HTTP/1.1 transport core, built directly on raw sockets, that
// feeds accepted requests into a RipCurrent dataflow pipeline over a
// backpressure-aware MMPQ edge.
//
// Startup sequence:
//  1. Parse flags and load configuration (JSON file or defaults).
//  2. Build the zap logger and the process-wide metrics counters.
//  3. Load the proxy list, if configured.
//  4. Compose the demo order-validation RipCurrent pipeline and wire its
//     metrics/error sinks.
//  5. Register HTTP routes and start the transport core's accept loop.
//  6. Start the dashboard and cluster introspection control plane, if
//     configured.
//  7. Block until SIGINT/SIGTERM, then tear everything down in reverse
//     order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/currentframework/bricks/cluster"
	"github.com/currentframework/bricks/config"
	"github.com/currentframework/bricks/dashboard"
	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/httpserver"
	"github.com/currentframework/bricks/logger"
	"github.com/currentframework/bricks/metrics"
	"github.com/currentframework/bricks/proxy"
	"github.com/currentframework/bricks/ripcurrent"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional; uses defaults if omitted)")
	listenAddr := flag.String("listen", "", "host:port to pin the HTTP transport core to (overrides config's http_pinned_port)")
	dashboardAddr := flag.String("dashboard", "", "host:port for the introspection dashboard (overrides config's dashboard_addr)")
	clusterAddr := flag.String("cluster", "", "host:port for the gRPC cluster control plane (overrides config's cluster_addr)")
	flag.Parse()

	log, err := logger.New(logger.LevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("bricks starting up")

	cfg, err := loadConfig(*configFile, log)
	if err != nil {
		log.Error("configuration failed to load", zap.Error(err))
		os.Exit(1)
	}
	if *listenAddr != "" {
		if _, portStr, err := net.SplitHostPort(*listenAddr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				cfg.HTTPPinnedPort = port
			}
		}
	}
	if *dashboardAddr != "" {
		cfg.DashboardAddr = *dashboardAddr
	}
	if *clusterAddr != "" {
		cfg.ClusterAddr = *clusterAddr
	}

	if cfg.ProxyFile != "" {
		pm := &proxy.ProxyManager{}
		if err := pm.LoadProxies(cfg.ProxyFile); err != nil {
			log.Error("failed to load proxies", zap.String("file", cfg.ProxyFile), zap.Error(err))
			os.Exit(1)
		}
		log.Info("loaded proxies", zap.Int("count", pm.Count()), zap.String("file", cfg.ProxyFile))
	}

	m := metrics.NewMetrics()
	ripcurrent.SetMetrics(m)

	pipeline, send, teardownPipeline := buildOrderPipeline(log)
	defer teardownPipeline()
	defer pipeline.Dismiss()

	router := httpserver.NewRouter()
	registerRoutes(router, m, send)

	plane := cluster.NewControlPlane(cluster.NewEngineSource(router))
	pipelineCtx, cancelRegister := context.WithTimeout(context.Background(), 5*time.Second)
	if err := plane.RegisterPipeline(pipelineCtx, "orders", pipeline); err != nil {
		log.Error("failed to register pipeline with control plane", zap.Error(err))
	}
	cancelRegister()

	srv := httpserver.NewServer(router, workerCount(cfg), httpserver.WithLogger(log), httpserver.WithReadTimeout(cfg.ReadTimeout))

	var port int
	if cfg.HTTPPinnedPort != 0 {
		if err := srv.ListenOnPort(cfg.HTTPPinnedPort); err != nil {
			log.Error("failed to bind HTTP transport core", zap.Int("port", cfg.HTTPPinnedPort), zap.Error(err))
			os.Exit(1)
		}
		port = cfg.HTTPPinnedPort
	} else {
		p, err := srv.ListenOnReservedPort()
		if err != nil {
			log.Error("failed to reserve a port for the HTTP transport core", zap.Error(err))
			os.Exit(1)
		}
		port = p
	}
	log.Info("http transport core listening", zap.Int("port", port))

	shutdownCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dash *dashboard.Server
	if cfg.DashboardAddr != "" {
		dash = dashboard.New(m, cfg, plane, log, workerCount(cfg))
		dashPort := portOf(cfg.DashboardAddr)
		go func() {
			if _, err := dash.ListenAndServe(shutdownCtx, dashPort); err != nil {
				log.Error("dashboard server error", zap.Error(err))
			}
		}()
		log.Info("dashboard starting", zap.String("addr", cfg.DashboardAddr))
	}

	if cfg.ClusterAddr != "" {
		go func() {
			if err := cluster.ListenAndServe(shutdownCtx, cfg.ClusterAddr, plane); err != nil {
				log.Error("cluster control plane error", zap.Error(err))
			}
		}()
		log.Info("cluster control plane starting", zap.String("addr", cfg.ClusterAddr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Println() // newline after ^C
	log.Info("received signal; shutting down", zap.String("signal", sig.String()))
	if dash != nil {
		dash.AddLog("INFO", fmt.Sprintf("received signal %s; shutting down", sig))
	}

	cancel() // stop dashboard/cluster loops
	if err := srv.Close(); err != nil {
		log.Warn("error closing HTTP transport core", zap.Error(err))
	}

	snap := m.Snapshot()
	log.Info("final metrics",
		zap.Uint64("total_requests", snap.TotalRequests),
		zap.Uint64("responses_2xx", snap.Responses2xx),
		zap.Uint64("responses_4xx", snap.Responses4xx),
		zap.Uint64("responses_5xx", snap.Responses5xx),
		zap.Float64("requests_per_second", snap.RequestsPerSecond),
	)
	log.Info("bricks shut down cleanly")
}

func loadConfig(path string, log *zap.Logger) (*config.Config, error) {
	if path == "" {
		log.Info("using default configuration")
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", zap.String("path", path))
	return cfg, nil
}

func workerCount(cfg *config.Config) int {
	if cfg.HTTPServerWorkers < 1 {
		return 1
	}
	return cfg.HTTPServerWorkers
}

// portOf extracts the numeric port from a "host:port" address, returning 0
// (a reserved/scavenged port) if addr has no valid port segment.
func portOf(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// ─── Demo RipCurrent pipeline ────────────────────────────────────────────

// incomingOrder is the message type POST /api/orders decodes into.
type incomingOrder struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

// validatedOrder is what the validation stage emits downstream across the
// MMPQ edge once an incomingOrder passes its amount check.
type validatedOrder struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

// buildOrderPipeline composes a two-stage RipCurrent pipeline: a
// validation block that drops non-positive-amount orders (logging a
// rejection) and emits the rest downstream, piped into a block that
// "persists" the order (here, just a structured log line; swap in real
// storage without touching the pipeline's wiring). Run() wires the MMPQ
// edge between them and returns the pipeline's entry point.
func buildOrderPipeline(log *zap.Logger) (pipeline *ripcurrent.Block, send func(msg interface{}) error, teardown func()) {
	validate := ripcurrent.Define("ValidateOrder",
		ripcurrent.Types(ripcurrent.TypeOf[incomingOrder]()),
		ripcurrent.Types(ripcurrent.TypeOf[validatedOrder]()),
	)
	ripcurrent.On(validate, func(ctx *ripcurrent.Context, o incomingOrder) error {
		if o.Amount <= 0 {
			log.Warn("order rejected", zap.String("id", o.ID), zap.Int("amount", o.Amount))
			return nil
		}
		return ctx.Emit(validatedOrder{ID: o.ID, Amount: o.Amount})
	})

	persist := ripcurrent.Define("PersistOrder", ripcurrent.Types(ripcurrent.TypeOf[validatedOrder]()), ripcurrent.None())
	ripcurrent.On(persist, func(ctx *ripcurrent.Context, v validatedOrder) error {
		log.Info("order persisted", zap.String("id", v.ID), zap.Int("amount", v.Amount))
		return nil
	})

	combined, err := ripcurrent.Pipe(validate, persist)
	if err != nil {
		// Only a programming error (mismatched LHS/RHS) reaches here; the
		// two stages' types are defined together just above.
		panic(fmt.Sprintf("bricks: order pipeline composition: %v", err))
	}

	send, teardown = combined.Run()
	return combined, send, teardown
}

// ─── HTTP routes ──────────────────────────────────────────────────────────

func registerRoutes(router *httpserver.Router, m *metrics.Metrics, send func(msg interface{}) error) {
	mustRegister(router, "/healthz", "GET", func(c *httpserver.Conn, _ []string) {
		m.IncrementTotal()
		m.RecordStatus(200)
		c.SendResponse(httpmsg.NewResponse().Text("ok"))
	})

	mustRegister(router, "/api/orders", "POST", func(c *httpserver.Conn, _ []string) {
		m.IncrementTotal()

		var order incomingOrder
		if err := json.Unmarshal(c.Request.Body, &order); err != nil {
			m.RecordStatus(400)
			c.SendResponse(httpmsg.NewResponse().Code(400).JSON(map[string]string{"error": "invalid JSON"}))
			return
		}

		if err := send(order); err != nil {
			m.RecordStatus(503)
			c.SendResponse(httpmsg.NewResponse().Code(503).JSON(map[string]string{"error": err.Error()}))
			return
		}

		m.RecordStatus(202)
		c.SendResponse(httpmsg.NewResponse().Code(202).JSON(map[string]string{"status": "accepted"}))
	})
}

func mustRegister(r *httpserver.Router, path, method string, h httpserver.HandlerFunc) {
	if _, err := r.Register(path, method, h); err != nil {
		panic(fmt.Sprintf("bricks: register %s %s: %v", method, path, err))
	}
}
