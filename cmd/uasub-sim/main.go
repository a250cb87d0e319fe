// Command uasub-sim runs the subscription client against an in-process
// simulated OPC UA server.
//
// It creates the subscriptions of a configuration file, feeds changing
// values into the simulated address space and lets faults be injected from
// an interactive shell: dropped publish responses, failing Republish calls,
// expired subscriptions and session reconnects.
//
// Usage:
//
//	uasub-sim [flags]
//
// Flags:
//
//	-config string         Configuration file path
//	-log-level string      Log level: debug, info, warn, error (overrides config)
//	-metrics-addr string   Serve Prometheus metrics on this address
//	-trace string          Write a protocol trace to this file
//	-write-interval dur    Interval between generated values (default 500ms)
//	-interactive           Enable interactive command mode
//
// Examples:
//
//	# Run the built-in demo subscription with an interactive shell
//	uasub-sim -interactive
//
//	# Run a configuration, exporting metrics and a trace
//	uasub-sim -config plant.yaml -metrics-addr :9100 -trace plant.utrace
//
//	# Inspect the trace afterwards
//	uasub-trace stats plant.utrace
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mash-protocol/uasub-go/cmd/uasub-sim/interactive"
	"github.com/mash-protocol/uasub-go/pkg/config"
	"github.com/mash-protocol/uasub-go/pkg/log"
	"github.com/mash-protocol/uasub-go/pkg/metrics"
	"github.com/mash-protocol/uasub-go/pkg/sim"
	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile    string
	LogLevel      string
	MetricsAddr   string
	TraceFile     string
	WriteInterval time.Duration
	Interactive   bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.StringVar(&flags.TraceFile, "trace", "", "Write a protocol trace to this file")
	flag.DurationVar(&flags.WriteInterval, "write-interval", 500*time.Millisecond, "Interval between generated values")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
}

// demoSubscription is used when the configuration defines none.
var demoSubscription = config.Subscription{
	Options: subscription.Options{
		Name:               "demo",
		PublishingInterval: 250 * time.Millisecond,
		KeepAliveCount:     10,
		PublishingEnabled:  true,
	},
	Items: []config.Item{
		{NodeID: "ns=2;s=Demo.Counter", QueueSize: 10},
		{NodeID: "ns=2;s=Demo.Sine", QueueSize: 10},
	},
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fatal("Invalid configuration: %v", err)
	}
	level, err := cfg.Level()
	if err != nil {
		fatal("Invalid log level: %v", err)
	}

	var out io.Writer = os.Stderr
	var shell *interactive.Shell
	if flags.Interactive {
		shell, err = interactive.New()
		if err != nil {
			fatal("Failed to create interactive shell: %v", err)
		}
		// Route log output through readline to keep the prompt intact.
		out = shell.Stdout()
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var trace log.Logger
	if cfg.TraceFile != "" {
		fl, err := log.NewFileLogger(cfg.TraceFile)
		if err != nil {
			fatal("Failed to open trace file: %v", err)
		}
		defer func() {
			if err := fl.Close(); err != nil {
				logger.Warn("Close: trace file", "error", err)
			}
			if n := fl.Dropped(); n > 0 {
				logger.Warn("Trace events dropped", "count", n)
			}
		}()
		go flushTrace(ctx, fl, time.Second, logger)
		trace = fl
		if level <= slog.LevelDebug {
			trace = log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
		}
		logger.Info("Tracing protocol events", "file", cfg.TraceFile)
	}

	reg := prometheus.NewRegistry()
	var srvMetrics *http.Server
	if cfg.MetricsAddr != "" {
		srvMetrics = serveMetrics(cfg.MetricsAddr, reg, logger)
	}

	simCfg := cfg.Simulator
	simCfg.Logger = logger.With("component", "sim")
	server := sim.NewServer(simCfg)
	session := server.NewSession()

	mgrCfg := cfg.Manager
	mgrCfg.Logger = logger
	mgrCfg.TraceLogger = trace
	mgrCfg.Metrics = metrics.NewPrometheus(reg, metrics.DefaultNamespace)
	manager := subscription.NewManager(session, mgrCfg)
	logger.Info("Manager started", "traceId", manager.TraceID(), "session", session.ID())

	nodes, err := createSubscriptions(ctx, manager, cfg.Subscriptions, newPrinter(logger))
	if err != nil {
		fatal("Failed to create subscriptions: %v", err)
	}

	go generateValues(ctx, server, nodes, flags.WriteInterval)

	if shell != nil {
		shell.Bind(manager, server, session)
		go shell.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	cancel()

	if err := manager.Close(); err != nil {
		logger.Warn("Close: manager", "error", err)
	}
	session.Close()

	if srvMetrics != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := srvMetrics.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Shutdown: metrics server", "error", err)
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(flags.ConfigFile); err != nil {
			return nil, err
		}
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.MetricsAddr != "" {
		cfg.MetricsAddr = flags.MetricsAddr
	}
	if flags.TraceFile != "" {
		cfg.TraceFile = flags.TraceFile
	}
	if len(cfg.Subscriptions) == 0 {
		cfg.Subscriptions = []config.Subscription{demoSubscription}
	}
	return cfg, cfg.Validate()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)
	return srv
}

// createSubscriptions adds and creates the configured subscriptions and
// returns the distinct monitored nodes.
func createSubscriptions(ctx context.Context, m *subscription.Manager, defs []config.Subscription,
	h subscription.Handler) ([]*ua.NodeID, error) {
	var nodes []*ua.NodeID
	seen := make(map[string]bool)
	for _, def := range defs {
		opts := def.Options
		opts.Handler = h
		subs, err := m.Add(opts)
		if err != nil {
			return nil, err
		}
		sub := subs[0]
		for _, item := range def.Items {
			itemOpts, err := item.Options()
			if err != nil {
				return nil, err
			}
			sub.AddItem(itemOpts)
			if key := itemOpts.NodeID.String(); !seen[key] {
				seen[key] = true
				nodes = append(nodes, itemOpts.NodeID)
			}
		}
		if err := sub.Create(ctx); err != nil {
			return nil, fmt.Errorf("subscription %q: %w", def.Name, err)
		}
	}
	return nodes, nil
}

// flushTrace flushes the trace file periodically so that it can be read
// while the simulation runs.
func flushTrace(ctx context.Context, fl *log.FileLogger, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fl.Flush(); err != nil {
				logger.Warn("Flush: trace file", "error", err)
			}
		}
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
