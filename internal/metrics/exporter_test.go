package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"wgwatch/internal/model"
)

func report(peers map[string]model.PeerView) model.Report {
	return model.Report{
		Interface: model.InterfaceRecord{Name: "wg0"},
		Available: true,
		Peers:     peers,
	}
}

func TestExporterPublish_SetsGauges(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	e := NewExporter(reg)

	e.Publish(report(map[string]model.PeerView{
		"a": {
			Name:   "laptop",
			Record: model.PeerRecord{PublicKey: "a", TransferRx: 1000, TransferTx: 2000, LatestHandshake: 1700000000},
			Rate:   &model.PeerRateRecord{PublicKey: "a", RxBytesPerSec: 100, TxBytesPerSec: 50},
			Alert:  &model.PeerAlert{Rx: model.AlertWarning, Tx: model.AlertDefault},
		},
		"b": {Name: "phone", Record: model.PeerRecord{PublicKey: "b"}},
	}))

	if got := testutil.ToFloat64(e.up.WithLabelValues("wg0")); got != 1 {
		t.Fatalf("up=%v", got)
	}
	if got := testutil.ToFloat64(e.peerRate.WithLabelValues("wg0", "a", "laptop", "rx")); got != 100 {
		t.Fatalf("rate rx=%v", got)
	}
	if got := testutil.ToFloat64(e.peerAlert.WithLabelValues("wg0", "a", "laptop", "rx")); got != 2 {
		t.Fatalf("alert rx=%v", got)
	}
	if got := testutil.ToFloat64(e.peerAlert.WithLabelValues("wg0", "a", "laptop", "tx")); got != -1 {
		t.Fatalf("alert tx=%v", got)
	}
	// b has no rate yet, so only transfer and handshake series exist for it.
	if got := testutil.CollectAndCount(e.peerRate); got != 2 {
		t.Fatalf("rate series=%d", got)
	}
	if got := testutil.CollectAndCount(e.peerTransfer); got != 4 {
		t.Fatalf("transfer series=%d", got)
	}
}

func TestExporterPublish_DropsVanishedPeers(t *testing.T) {
	t.Parallel()

	e := NewExporter(prometheus.NewRegistry())
	e.Publish(report(map[string]model.PeerView{
		"a": {Name: "a", Rate: &model.PeerRateRecord{PublicKey: "a"}},
		"b": {Name: "b", Rate: &model.PeerRateRecord{PublicKey: "b"}},
	}))
	e.Publish(report(map[string]model.PeerView{
		"a": {Name: "a", Rate: &model.PeerRateRecord{PublicKey: "a"}},
	}))

	if got := testutil.CollectAndCount(e.peerRate); got != 2 {
		t.Fatalf("rate series=%d", got)
	}
	if got := testutil.CollectAndCount(e.peerHandshake); got != 1 {
		t.Fatalf("handshake series=%d", got)
	}
}

func TestExporterPublish_Unavailable(t *testing.T) {
	t.Parallel()

	e := NewExporter(prometheus.NewRegistry())
	e.Publish(model.Report{Interface: model.InterfaceRecord{Name: "wg0"}})
	e.CollectFailed("wg0", "unavailable")
	e.ParseWarning("wg0", "malformed_line")
	e.CounterReset("wg0", "rx")

	if got := testutil.ToFloat64(e.up.WithLabelValues("wg0")); got != 0 {
		t.Fatalf("up=%v", got)
	}
	if got := testutil.ToFloat64(e.collectErrors.WithLabelValues("wg0", "unavailable")); got != 1 {
		t.Fatalf("collect errors=%v", got)
	}
	if got := testutil.ToFloat64(e.counterResets.WithLabelValues("wg0", "rx")); got != 1 {
		t.Fatalf("resets=%v", got)
	}
}

func TestExporterPublish_UnavailableDropsRates(t *testing.T) {
	t.Parallel()

	e := NewExporter(prometheus.NewRegistry())
	good := report(map[string]model.PeerView{
		"a": {
			Name:   "laptop",
			Record: model.PeerRecord{PublicKey: "a", TransferRx: 10},
			Rate:   &model.PeerRateRecord{PublicKey: "a", RxBytesPerSec: 100},
			Alert:  &model.PeerAlert{Rx: model.AlertOK, Tx: model.AlertOK},
		},
	})
	good.Link = &model.LinkView{Rate: &model.LinkRate{RxBytesPerSec: 5, TxBytesPerSec: 6}}
	e.Publish(good)
	if n := testutil.CollectAndCount(e.peerRate); n != 2 {
		t.Fatalf("rate series=%d", n)
	}

	e.Publish(model.Report{Interface: model.InterfaceRecord{Name: "wg0"}, Error: "collect wg0: unavailable"})
	if got := testutil.ToFloat64(e.up.WithLabelValues("wg0")); got != 0 {
		t.Fatalf("up=%v", got)
	}
	for name, c := range map[string]prometheus.Collector{
		"rate":      e.peerRate,
		"alert":     e.peerAlert,
		"transfer":  e.peerTransfer,
		"handshake": e.peerHandshake,
		"link":      e.linkRate,
	} {
		if n := testutil.CollectAndCount(c); n != 0 {
			t.Fatalf("%s series=%d after failure", name, n)
		}
	}

	e.Publish(good)
	if got := testutil.ToFloat64(e.peerRate.WithLabelValues("wg0", "a", "laptop", "rx")); got != 100 {
		t.Fatalf("rate after recovery=%v", got)
	}
}

func TestExporter_LinkCounterReset(t *testing.T) {
	t.Parallel()

	e := NewExporter(prometheus.NewRegistry())
	e.LinkCounterReset("wg0", "tx")
	if got := testutil.ToFloat64(e.linkResets.WithLabelValues("wg0", "tx")); got != 1 {
		t.Fatalf("link resets=%v", got)
	}
	if n := testutil.CollectAndCount(e.counterResets); n != 0 {
		t.Fatalf("peer resets touched: %d", n)
	}
}
