package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"wgwatch/internal/agent"
	"wgwatch/internal/api"
	"wgwatch/internal/config"
	"wgwatch/internal/execx"
	"wgwatch/internal/metrics"
	"wgwatch/internal/model"
	"wgwatch/internal/netif"
	"wgwatch/internal/server"
	"wgwatch/internal/view"
	"wgwatch/internal/wireguard"
)

const usage = `wgwatch - WireGuard per-peer rate and alert monitor

Usage:
  wgwatch run --config <path> [--interface <name>] [--listen <addr>]
  wgwatch once --config <path> [--interface <name>] [--json] [--bytes]
  wgwatch dump --config <path> [--interface <name>]
  wgwatch top --config <path> [--remote <url>] [--bytes]
  wgwatch stats --config <path> [--window 5m] [--path <csv>] [--bytes]
  wgwatch check --config <path>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "run":
		handleRun(os.Args[2:])
	case "once":
		handleOnce(os.Args[2:])
	case "dump":
		handleDump(os.Args[2:])
	case "top":
		handleTop(os.Args[2:])
	case "stats":
		handleStats(os.Args[2:])
	case "check":
		handleCheck(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	iface := fs.String("interface", "", "WireGuard interface override")
	listen := fs.String("listen", "", "HTTP listen address override")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *iface)
	if err != nil {
		fatal(err)
	}
	if *listen != "" {
		cfg.HTTP.Listen = *listen
	}
	logger := newLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := monitorOptions(cfg, logger)
	opts.Health = agent.NewHealth(cfg.UnhealthyAfter)
	if cfg.HTTP.Metrics {
		opts.Exporter = metrics.NewExporter(reg)
	}
	if cfg.SamplesPath != "" {
		opts.Publishers = append(opts.Publishers, metrics.SampleLog{Path: cfg.SamplesPath, Logger: logger})
	}

	var srv *server.Server
	if cfg.HTTP.Listen != "" {
		var gatherer prometheus.Gatherer
		if cfg.HTTP.Metrics {
			gatherer = reg
		}
		srv = server.New(cfg.Interface, opts.Health, gatherer, logger)
		opts.Publishers = append(opts.Publishers, srv)
	}
	mon := agent.New(cfg, opts)

	ctx, cancel := signalContext()
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(mon.Run(ctx))
	})
	if srv != nil {
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.HTTP.Listen)
		})
	}
	fatal(g.Wait())
}

func handleOnce(args []string) {
	fs := flag.NewFlagSet("once", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	iface := fs.String("interface", "", "WireGuard interface override")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	bytes := fs.Bool("bytes", false, "show B/s instead of b/s")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *iface)
	if err != nil {
		fatal(err)
	}
	logger := newLogger(cfg)
	mon := agent.New(cfg, monitorOptions(cfg, logger))

	ctx, cancel := signalContext()
	defer cancel()

	// Rates need two snapshots one interval apart.
	mon.Cycle(ctx)
	select {
	case <-ctx.Done():
		return
	case <-time.After(cfg.Interval.Std()):
	}
	report := mon.Cycle(ctx)

	if *asJSON {
		fatal(writeJSON(os.Stdout, report))
	} else {
		fatal(view.Render(os.Stdout, report, view.Options{Bytes: *bytes}))
	}
	if !report.Available {
		os.Exit(1)
	}
}

func handleDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	iface := fs.String("interface", "", "WireGuard interface override")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *iface)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.CommandTimeout.Std())
	defer cancelTimeout()

	mgr := wireguard.NewManager(execx.NewOSRunner(cfg.CommandTimeout.Std()), cfg.WGBinary)
	snap, warnings, err := mgr.Collect(ctx, cfg.Interface)
	if err != nil {
		fatal(err)
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w.String())
	}
	fatal(writeJSON(os.Stdout, snap))
}

func handleTop(args []string) {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	iface := fs.String("interface", "", "WireGuard interface override")
	remote := fs.String("remote", "", "base URL of a running wgwatch (e.g. http://127.0.0.1:9586)")
	bytes := fs.Bool("bytes", false, "show B/s instead of b/s")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *iface)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var next func(context.Context) (model.Report, error)
	if *remote != "" {
		client := api.NewClient(*remote)
		next = client.Report
	} else {
		// Keep logs out of the redrawn screen.
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		mon := agent.New(cfg, monitorOptions(cfg, logger))
		next = func(ctx context.Context) (model.Report, error) {
			return mon.Cycle(ctx), nil
		}
	}

	ticker := time.NewTicker(cfg.Interval.Std())
	defer ticker.Stop()
	for {
		report, err := next(ctx)
		if err != nil {
			report = model.Report{Interface: model.InterfaceRecord{Name: cfg.Interface}, Error: err.Error()}
		}
		fmt.Fprint(os.Stdout, "\033[H\033[2J")
		if err := view.Render(os.Stdout, report, view.Options{Bytes: *bytes}); err != nil {
			fatal(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func handleStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	window := fs.Duration("window", 5*time.Minute, "time window")
	path := fs.String("path", "", "samples CSV path override")
	bytes := fs.Bool("bytes", false, "show B/s instead of b/s")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, "")
	if err != nil {
		fatal(err)
	}

	samplesPath := cfg.SamplesPath
	if *path != "" {
		samplesPath = *path
	}
	if samplesPath == "" {
		fatal(errors.New("samples path required"))
	}

	items, err := metrics.ReadCSV(samplesPath)
	if err != nil {
		fatal(err)
	}

	cutoff := time.Now().UTC().Add(-*window)
	summaries := metrics.Summarize(items, cutoff)
	if len(summaries) == 0 {
		fmt.Fprintln(os.Stdout, "no samples in window")
		return
	}

	for _, s := range summaries {
		name := cfg.PeerName(s.PublicKey, 20)
		fmt.Fprintf(os.Stdout, "%s samples=%d from=%s to=%s\n", name, s.Count, s.From.Format(time.RFC3339), s.To.Format(time.RFC3339))
		fmt.Fprintf(os.Stdout, "  rx avg=%s p95=%s max=%s worst=%s\n",
			view.FormatRate(s.AvgRx, *bytes), view.FormatRate(s.P95Rx, *bytes), view.FormatRate(s.MaxRx, *bytes), s.WorstRx)
		fmt.Fprintf(os.Stdout, "  tx avg=%s p95=%s max=%s worst=%s\n",
			view.FormatRate(s.AvgTx, *bytes), view.FormatRate(s.P95Tx, *bytes), view.FormatRate(s.MaxTx, *bytes), s.WorstTx)
	}
}

func handleCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, "")
	if err != nil {
		fatal(err)
	}
	if _, err := exec.LookPath(cfg.WGBinary); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s not found in PATH\n", cfg.WGBinary)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fatal(err)
	}
	fmt.Fprintln(os.Stdout, "config ok")
	_, _ = os.Stdout.Write(out)
}

// loadConfig reads path (defaults only when empty), applies defaults and
// overrides, then validates.
func loadConfig(path, iface string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if iface != "" {
		cfg.Interface = iface
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func monitorOptions(cfg config.Config, logger *slog.Logger) agent.Options {
	opts := agent.Options{
		Collector: wireguard.NewManager(execx.NewOSRunner(cfg.CommandTimeout.Std()), cfg.WGBinary),
		Logger:    logger,
	}
	if cfg.LinkCounters {
		opts.Link = netif.NewReader(nil)
	}
	return opts
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.ParseLogLevel()}))
	slog.SetDefault(logger)
	return logger
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
