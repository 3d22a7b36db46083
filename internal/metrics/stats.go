package metrics

import (
	"math"
	"sort"
	"time"

	"wgwatch/internal/model"
)

// Summary is a per-peer statistics snapshot over the sample log, in bytes/sec.
type Summary struct {
	PublicKey string
	Name      string
	Count     int
	From      time.Time
	To        time.Time
	AvgRx     float64
	P95Rx     float64
	MaxRx     float64
	AvgTx     float64
	P95Tx     float64
	MaxTx     float64
	// WorstRx/WorstTx are the highest alert levels seen in the window.
	WorstRx model.AlertLevel
	WorstTx model.AlertLevel
}

// Summarize computes one Summary per public key for samples at or after since,
// ordered by public key.
func Summarize(items []model.Sample, since time.Time) []Summary {
	byKey := map[string][]model.Sample{}
	for _, s := range items {
		if s.Timestamp.After(since) || s.Timestamp.Equal(since) {
			byKey[s.PublicKey] = append(byKey[s.PublicKey], s)
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		out = append(out, summarizePeer(k, byKey[k]))
	}
	return out
}

func summarizePeer(key string, filtered []model.Sample) Summary {
	rxValues := make([]float64, 0, len(filtered))
	txValues := make([]float64, 0, len(filtered))
	var sumRx, sumTx float64
	from := filtered[0].Timestamp
	to := filtered[0].Timestamp
	name := ""
	worstRx, worstTx := model.AlertDefault, model.AlertDefault

	for _, s := range filtered {
		rxValues = append(rxValues, s.RxBytesPerSec)
		txValues = append(txValues, s.TxBytesPerSec)
		sumRx += s.RxBytesPerSec
		sumTx += s.TxBytesPerSec
		if s.Timestamp.Before(from) {
			from = s.Timestamp
		}
		if !s.Timestamp.Before(to) {
			to = s.Timestamp
			if s.Name != "" {
				name = s.Name
			}
		}
		if s.RxAlert.Severity() > worstRx.Severity() {
			worstRx = s.RxAlert
		}
		if s.TxAlert.Severity() > worstTx.Severity() {
			worstTx = s.TxAlert
		}
	}

	sort.Float64s(rxValues)
	sort.Float64s(txValues)
	count := float64(len(filtered))

	return Summary{
		PublicKey: key,
		Name:      name,
		Count:     len(filtered),
		From:      from,
		To:        to,
		AvgRx:     sumRx / count,
		P95Rx:     percentile(rxValues, 0.95),
		MaxRx:     rxValues[len(rxValues)-1],
		AvgTx:     sumTx / count,
		P95Tx:     percentile(txValues, 0.95),
		MaxTx:     txValues[len(txValues)-1],
		WorstRx:   worstRx,
		WorstTx:   worstTx,
	}
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}

func sortSamples(items []model.Sample) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return items[i].PublicKey < items[j].PublicKey
	})
}
