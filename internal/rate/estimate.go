// Package rate derives per-second transfer rates from two successive snapshots
// and decorates them with alert levels. Everything here is pure: the caller owns
// the previous snapshot and the clock.
package rate

import (
	"math"
	"sort"

	"wgwatch/internal/model"
)

// SkipReason explains why a rate is absent or zeroed.
type SkipReason string

const (
	NoPreviousSnapshot SkipReason = "no_previous_snapshot"
	ZeroElapsedTime    SkipReason = "zero_elapsed_time"
	CounterReset       SkipReason = "counter_reset"
)

// Skip records a non-fatal estimation condition. PublicKey and Direction are
// empty for batch-level skips.
type Skip struct {
	Reason    SkipReason
	PublicKey string
	Direction string
}

// Result is the outcome of one estimation pass.
type Result struct {
	Rates   map[string]model.PeerRateRecord
	Alerts  map[string]model.PeerAlert
	Skipped []Skip
}

// Estimate computes bytes/sec for every peer of current that is also present in
// previous, then classifies rx and tx with th.
func Estimate(current model.Snapshot, previous *model.Snapshot, elapsed float64, th model.Thresholds) Result {
	res := Result{
		Rates:  map[string]model.PeerRateRecord{},
		Alerts: map[string]model.PeerAlert{},
	}
	if previous == nil {
		res.Skipped = []Skip{{Reason: NoPreviousSnapshot}}
		return res
	}
	if !validElapsed(elapsed) {
		res.Skipped = []Skip{{Reason: ZeroElapsedTime}}
		return res
	}

	for key, cur := range current.Peers {
		prev, ok := previous.Peers[key]
		if !ok {
			continue
		}

		rx, rxReset := perSecond(cur.TransferRx, prev.TransferRx, elapsed)
		tx, txReset := perSecond(cur.TransferTx, prev.TransferTx, elapsed)
		if rxReset {
			res.Skipped = append(res.Skipped, Skip{Reason: CounterReset, PublicKey: key, Direction: "rx"})
		}
		if txReset {
			res.Skipped = append(res.Skipped, Skip{Reason: CounterReset, PublicKey: key, Direction: "tx"})
		}

		res.Rates[key] = model.PeerRateRecord{
			PublicKey:     key,
			RxBytesPerSec: rx,
			TxBytesPerSec: tx,
			RxReset:       rxReset,
			TxReset:       txReset,
		}
		res.Alerts[key] = model.PeerAlert{
			Rx: th.Classify(BitsPerSecond(rx), key+"_rx", "rx"),
			Tx: th.Classify(BitsPerSecond(tx), key+"_tx", "tx"),
		}
	}

	sort.Slice(res.Skipped, func(i, j int) bool {
		a, b := res.Skipped[i], res.Skipped[j]
		if a.PublicKey != b.PublicKey {
			return a.PublicKey < b.PublicKey
		}
		return a.Direction < b.Direction
	})
	return res
}

// EstimateLink derives the device-wide rate from host counters. The band lookup
// is <iface>_rx then rx (and the same for tx). Counter resets are returned as
// Skips with an empty PublicKey.
func EstimateLink(cur, prev *model.LinkCounters, elapsed float64, iface string, th model.Thresholds) (*model.LinkRate, *model.PeerAlert, []Skip) {
	if cur == nil || prev == nil || !validElapsed(elapsed) {
		return nil, nil, nil
	}
	rx, rxReset := perSecondU(cur.RxBytes, prev.RxBytes, elapsed)
	tx, txReset := perSecondU(cur.TxBytes, prev.TxBytes, elapsed)
	var skipped []Skip
	if rxReset {
		skipped = append(skipped, Skip{Reason: CounterReset, Direction: "rx"})
	}
	if txReset {
		skipped = append(skipped, Skip{Reason: CounterReset, Direction: "tx"})
	}
	lr := &model.LinkRate{RxBytesPerSec: rx, TxBytesPerSec: tx, RxReset: rxReset, TxReset: txReset}
	alert := &model.PeerAlert{
		Rx: th.Classify(BitsPerSecond(rx), iface+"_rx", "rx"),
		Tx: th.Classify(BitsPerSecond(tx), iface+"_tx", "tx"),
	}
	return lr, alert, skipped
}

// BitsPerSecond converts a bytes/sec rate for display and band comparison.
func BitsPerSecond(bytesPerSec float64) float64 {
	return bytesPerSec * 8
}

func validElapsed(elapsed float64) bool {
	return elapsed > 0 && !math.IsInf(elapsed, 0) && !math.IsNaN(elapsed)
}

// perSecond returns 0 and reset=true when the counter went backwards.
func perSecond(cur, prev int64, elapsed float64) (float64, bool) {
	if cur < prev {
		return 0, true
	}
	return float64(cur-prev) / elapsed, false
}

func perSecondU(cur, prev uint64, elapsed float64) (float64, bool) {
	if cur < prev {
		return 0, true
	}
	return float64(cur-prev) / elapsed, false
}
