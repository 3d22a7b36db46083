// Package view renders reports for terminals. It is the only place where rates
// are turned into bits per second.
package view

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"wgwatch/internal/model"
	"wgwatch/internal/rate"
)

const nameWidth = 20

// Options control the rendering.
type Options struct {
	// Bytes shows B/s instead of b/s.
	Bytes bool
	// Now is used for handshake ages; zero means time.Now.
	Now time.Time
}

// FormatRate renders a bytes/sec rate as a short SI string.
func FormatRate(bytesPerSec float64, bytes bool) string {
	if bytes {
		return humanize.SIWithDigits(bytesPerSec, 1, "B/s")
	}
	return humanize.SIWithDigits(rate.BitsPerSecond(bytesPerSec), 1, "b/s")
}

// FormatHandshake renders a unix handshake time as an age.
func FormatHandshake(unix int64, now time.Time) string {
	if unix <= 0 {
		return "never"
	}
	return humanize.RelTime(time.Unix(unix, 0), now, "ago", "from now")
}

// Render writes the report as a fixed-width table. An unavailable report is
// rendered as a single placeholder line.
func Render(w io.Writer, r model.Report, opts Options) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !r.Available {
		msg := r.Error
		if msg == "" {
			msg = "no data"
		}
		_, err := fmt.Fprintf(w, "WIREGUARD %s  -- %s\n", r.Interface.Name, msg)
		return err
	}

	if _, err := fmt.Fprintf(w, "WIREGUARD %s  port=%d  peers=%d\n", r.Interface.Name, r.Interface.ListeningPort, len(r.Peers)); err != nil {
		return err
	}
	if r.Link != nil && r.Link.Rate != nil {
		rx, tx := decorate(FormatRate(r.Link.Rate.RxBytesPerSec, opts.Bytes), FormatRate(r.Link.Rate.TxBytesPerSec, opts.Bytes), r.Link.Alert)
		if _, err := fmt.Fprintf(w, "link rx=%s tx=%s\n", rx, tx); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "%-*s  %-22s  %-16s  %12s  %12s\n", nameWidth, "NAME", "ENDPOINT", "HANDSHAKE", "RX/s", "TX/s"); err != nil {
		return err
	}

	keys := make([]string, 0, len(r.Peers))
	for k := range r.Peers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := r.Peers[keys[i]], r.Peers[keys[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		p := r.Peers[k]
		rx, tx := "_", "_"
		if p.Rate != nil {
			rx, tx = decorate(FormatRate(p.Rate.RxBytesPerSec, opts.Bytes), FormatRate(p.Rate.TxBytesPerSec, opts.Bytes), p.Alert)
		}
		endpoint := p.Record.Endpoint
		if endpoint == "" {
			endpoint = "(none)"
		}
		if _, err := fmt.Fprintf(w, "%-*s  %-22s  %-16s  %12s  %12s\n",
			nameWidth, truncate(p.Name, nameWidth), endpoint, FormatHandshake(p.Record.LatestHandshake, now), rx, tx); err != nil {
			return err
		}
	}
	return nil
}

// decorate appends a marker for levels above OK so alerts survive plain-text output.
func decorate(rx, tx string, alert *model.PeerAlert) (string, string) {
	if alert == nil {
		return rx, tx
	}
	return rx + marker(alert.Rx), tx + marker(alert.Tx)
}

func marker(l model.AlertLevel) string {
	switch l {
	case model.AlertCareful:
		return " ~"
	case model.AlertWarning:
		return " !"
	case model.AlertCritical:
		return " !!"
	default:
		return ""
	}
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return "_" + s[len(s)-width+1:]
}
