package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wgwatch/internal/config"
	"wgwatch/internal/metrics"
	"wgwatch/internal/model"
	"wgwatch/internal/rate"
	"wgwatch/internal/wireguard"
)

// Collector produces one snapshot per call.
type Collector interface {
	Collect(ctx context.Context, iface string) (model.Snapshot, []wireguard.ParseWarning, error)
}

// LinkReader returns host counters for the tunnel device.
type LinkReader interface {
	Counters(ctx context.Context, iface string) (*model.LinkCounters, error)
}

// Publisher receives every report, including placeholders.
type Publisher interface {
	Publish(r model.Report)
}

// Options wires a Monitor. Collector is required.
type Options struct {
	Collector  Collector
	Link       LinkReader
	Exporter   *metrics.Exporter
	Publishers []Publisher
	Logger     *slog.Logger
	Now        func() time.Time
	// Health is created from cfg.UnhealthyAfter when nil.
	Health *Health
}

// Monitor runs collection cycles for one interface. It is the single owner of
// the previous snapshot; Cycle must not be called concurrently.
type Monitor struct {
	cfg        config.Config
	collector  Collector
	link       LinkReader
	exporter   *metrics.Exporter
	publishers []Publisher
	logger     *slog.Logger
	now        func() time.Time
	health     *Health

	prev   *model.Snapshot
	prevAt time.Time
}

func New(cfg config.Config, opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	health := opts.Health
	if health == nil {
		health = NewHealth(cfg.UnhealthyAfter)
	}
	return &Monitor{
		cfg:        cfg,
		collector:  opts.Collector,
		link:       opts.Link,
		exporter:   opts.Exporter,
		publishers: opts.Publishers,
		logger:     logger.With("interface", cfg.Interface),
		now:        now,
		health:     health,
	}
}

// Health exposes the failure streak tracker.
func (m *Monitor) Health() *Health { return m.health }

// Run performs a cycle immediately and then once per interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.Interval.Std()
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	m.logger.Info("monitor started", "interval", interval, "timeout", m.cfg.CommandTimeout.Std())

	m.Cycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Cycle(ctx)
		}
	}
}

// Cycle collects, estimates and publishes one report. A failed collection
// yields a placeholder report and leaves the previous snapshot untouched.
func (m *Monitor) Cycle(ctx context.Context) model.Report {
	start := m.now()
	iface := m.cfg.Interface

	collectCtx := ctx
	if timeout := m.cfg.CommandTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	snap, warnings, err := m.collector.Collect(collectCtx, iface)
	if err != nil {
		report := m.fail(start, err)
		m.publish(report)
		return report
	}

	for _, w := range warnings {
		m.logger.Warn("dump line skipped", "line", w.Line, "kind", w.Kind.String(), "field", w.Field, "detail", w.Text)
		if m.exporter != nil {
			m.exporter.ParseWarning(iface, w.Kind.String())
		}
	}

	if m.link != nil {
		counters, err := m.link.Counters(collectCtx, iface)
		if err != nil {
			m.logger.Debug("link counters unavailable", "err", err)
		} else {
			snap.Link = counters
		}
	}

	var elapsed float64
	if m.prev != nil {
		elapsed = start.Sub(m.prevAt).Seconds()
	}
	snap.Interface.TimeSinceUpdate = elapsed

	res := rate.Estimate(snap, m.prev, elapsed, m.cfg.Thresholds)
	for _, s := range res.Skipped {
		switch s.Reason {
		case rate.CounterReset:
			m.logger.Info("transfer counter reset", "public_key", s.PublicKey, "direction", s.Direction)
			if m.exporter != nil {
				m.exporter.CounterReset(iface, s.Direction)
			}
		default:
			m.logger.Debug("rates skipped", "reason", string(s.Reason))
		}
	}

	report := m.buildReport(start, snap, res, warnings)
	if m.prev != nil {
		linkRate, linkAlert, linkSkipped := rate.EstimateLink(snap.Link, m.prev.Link, elapsed, iface, m.cfg.Thresholds)
		for _, s := range linkSkipped {
			m.logger.Info("link counter reset", "direction", s.Direction)
			if m.exporter != nil {
				m.exporter.LinkCounterReset(iface, s.Direction)
			}
		}
		if report.Link != nil {
			report.Link.Rate = linkRate
			report.Link.Alert = linkAlert
		}
	}

	next := snap.Clone()
	m.prev = &next
	m.prevAt = start
	m.health.OK(start)

	if m.exporter != nil {
		m.exporter.ObserveCycle(m.now().Sub(start).Seconds())
	}
	m.publish(report)
	return report
}

func (m *Monitor) fail(at time.Time, err error) model.Report {
	kind := wireguard.Unavailable
	var ce *wireguard.CollectError
	if errors.As(err, &ce) {
		kind = ce.Kind
	}
	m.logger.Warn("collection failed", "kind", kind.String(), "err", err)
	m.health.Fail(at, err)
	if m.exporter != nil {
		m.exporter.CollectFailed(m.cfg.Interface, kind.String())
	}
	return model.Report{
		Interface:   model.InterfaceRecord{Name: m.cfg.Interface},
		Available:   false,
		Error:       err.Error(),
		CollectedAt: at,
		Peers:       map[string]model.PeerView{},
	}
}

func (m *Monitor) buildReport(at time.Time, snap model.Snapshot, res rate.Result, warnings []wireguard.ParseWarning) model.Report {
	report := model.Report{
		Interface:   snap.Interface,
		Available:   true,
		CollectedAt: at,
		Peers:       make(map[string]model.PeerView, len(snap.Peers)),
	}
	for key, rec := range snap.Peers {
		v := model.PeerView{Name: m.cfg.PeerName(key, 20), Record: rec}
		if r, ok := res.Rates[key]; ok {
			r := r
			v.Rate = &r
		}
		if a, ok := res.Alerts[key]; ok {
			a := a
			v.Alert = &a
		}
		report.Peers[key] = v
	}
	if snap.Link != nil {
		report.Link = &model.LinkView{Counters: *snap.Link}
	}
	for _, w := range warnings {
		report.Warnings = append(report.Warnings, w.String())
	}
	return report
}

func (m *Monitor) publish(r model.Report) {
	for _, p := range m.publishers {
		p.Publish(r)
	}
	if m.exporter != nil {
		m.exporter.Publish(r)
	}
}
