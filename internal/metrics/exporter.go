package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"wgwatch/internal/model"
)

const namespace = "wgwatch"

// Exporter mirrors the latest report into Prometheus collectors.
type Exporter struct {
	mu sync.Mutex

	up            *prometheus.GaugeVec
	peerRate      *prometheus.GaugeVec
	peerTransfer  *prometheus.GaugeVec
	peerHandshake *prometheus.GaugeVec
	peerAlert     *prometheus.GaugeVec
	linkRate      *prometheus.GaugeVec
	collectErrors *prometheus.CounterVec
	parseWarnings *prometheus.CounterVec
	counterResets *prometheus.CounterVec
	linkResets    *prometheus.CounterVec
	cycleDuration prometheus.Histogram

	// peers seen in the previous report, used to drop stale series.
	known map[string]string
}

// NewExporter creates the collectors and registers them with reg.
func NewExporter(reg prometheus.Registerer) *Exporter {
	e := &Exporter{
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "Whether the last collection for the interface succeeded (1) or not (0).",
		}, []string{"interface"}),
		peerRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "rate_bytes_per_second",
			Help:      "Per-peer transfer rate derived from successive dumps.",
		}, []string{"interface", "public_key", "name", "direction"}),
		peerTransfer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "transfer_bytes",
			Help:      "Cumulative transfer counter as reported by wg.",
		}, []string{"interface", "public_key", "name", "direction"}),
		peerHandshake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "latest_handshake_seconds",
			Help:      "Unix time of the latest handshake (0 = never).",
		}, []string{"interface", "public_key", "name"}),
		peerAlert: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "alert_severity",
			Help:      "Alert severity of the rate: 0 ok, 1 careful, 2 warning, 3 critical, -1 no threshold.",
		}, []string{"interface", "public_key", "name", "direction"}),
		linkRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "rate_bytes_per_second",
			Help:      "Device-wide transfer rate from host counters.",
		}, []string{"interface", "direction"}),
		collectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_errors_total",
			Help:      "Failed collections by kind.",
		}, []string{"interface", "kind"}),
		parseWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Skipped or overridden dump lines by kind.",
		}, []string{"interface", "kind"}),
		counterResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "counter_resets_total",
			Help:      "Transfer counters that went backwards between cycles.",
		}, []string{"interface", "direction"}),
		linkResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "counter_resets_total",
			Help:      "Host device counters that went backwards between cycles.",
		}, []string{"interface", "direction"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one collection and estimation cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		known: map[string]string{},
	}

	if reg != nil {
		reg.MustRegister(
			e.up,
			e.peerRate,
			e.peerTransfer,
			e.peerHandshake,
			e.peerAlert,
			e.linkRate,
			e.collectErrors,
			e.parseWarnings,
			e.counterResets,
			e.linkResets,
			e.cycleDuration,
		)
	}
	return e
}

// Publish updates gauges from r. Series of peers no longer present are removed.
// An unavailable report sets up to 0 and drops every peer and link series, so
// no rate outlives the cycle that measured it.
func (e *Exporter) Publish(r model.Report) {
	e.mu.Lock()
	defer e.mu.Unlock()

	iface := r.Interface.Name
	if !r.Available {
		e.up.WithLabelValues(iface).Set(0)
		for key, name := range e.known {
			e.deletePeer(iface, key, name)
		}
		e.known = map[string]string{}
		e.deleteLink(iface)
		return
	}
	e.up.WithLabelValues(iface).Set(1)

	seen := make(map[string]string, len(r.Peers))
	for key, p := range r.Peers {
		seen[key] = p.Name
		if prevName, ok := e.known[key]; ok && prevName != p.Name {
			e.deletePeer(iface, key, prevName)
		}
		e.peerTransfer.WithLabelValues(iface, key, p.Name, "rx").Set(float64(p.Record.TransferRx))
		e.peerTransfer.WithLabelValues(iface, key, p.Name, "tx").Set(float64(p.Record.TransferTx))
		e.peerHandshake.WithLabelValues(iface, key, p.Name).Set(float64(p.Record.LatestHandshake))
		if p.Rate != nil {
			e.peerRate.WithLabelValues(iface, key, p.Name, "rx").Set(p.Rate.RxBytesPerSec)
			e.peerRate.WithLabelValues(iface, key, p.Name, "tx").Set(p.Rate.TxBytesPerSec)
		} else {
			e.peerRate.DeleteLabelValues(iface, key, p.Name, "rx")
			e.peerRate.DeleteLabelValues(iface, key, p.Name, "tx")
		}
		if p.Alert != nil {
			e.peerAlert.WithLabelValues(iface, key, p.Name, "rx").Set(float64(p.Alert.Rx.Severity()))
			e.peerAlert.WithLabelValues(iface, key, p.Name, "tx").Set(float64(p.Alert.Tx.Severity()))
		} else {
			e.peerAlert.DeleteLabelValues(iface, key, p.Name, "rx")
			e.peerAlert.DeleteLabelValues(iface, key, p.Name, "tx")
		}
	}
	for key, name := range e.known {
		if _, ok := seen[key]; !ok {
			e.deletePeer(iface, key, name)
		}
	}
	e.known = seen

	if r.Link != nil && r.Link.Rate != nil {
		e.linkRate.WithLabelValues(iface, "rx").Set(r.Link.Rate.RxBytesPerSec)
		e.linkRate.WithLabelValues(iface, "tx").Set(r.Link.Rate.TxBytesPerSec)
	} else {
		e.deleteLink(iface)
	}
}

func (e *Exporter) deleteLink(iface string) {
	e.linkRate.DeleteLabelValues(iface, "rx")
	e.linkRate.DeleteLabelValues(iface, "tx")
}

func (e *Exporter) deletePeer(iface, key, name string) {
	for _, dir := range []string{"rx", "tx"} {
		e.peerRate.DeleteLabelValues(iface, key, name, dir)
		e.peerTransfer.DeleteLabelValues(iface, key, name, dir)
		e.peerAlert.DeleteLabelValues(iface, key, name, dir)
	}
	e.peerHandshake.DeleteLabelValues(iface, key, name)
}

// CollectFailed counts a failed collection of the given kind.
func (e *Exporter) CollectFailed(iface, kind string) {
	e.collectErrors.WithLabelValues(iface, kind).Inc()
}

// ParseWarning counts a skipped dump line.
func (e *Exporter) ParseWarning(iface, kind string) {
	e.parseWarnings.WithLabelValues(iface, kind).Inc()
}

// CounterReset counts a counter that went backwards.
func (e *Exporter) CounterReset(iface, direction string) {
	e.counterResets.WithLabelValues(iface, direction).Inc()
}

// LinkCounterReset counts a host device counter that went backwards.
func (e *Exporter) LinkCounterReset(iface, direction string) {
	e.linkResets.WithLabelValues(iface, direction).Inc()
}

// ObserveCycle records the duration of one cycle in seconds.
func (e *Exporter) ObserveCycle(seconds float64) {
	e.cycleDuration.Observe(seconds)
}
