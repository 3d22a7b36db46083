package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"wgwatch/internal/model"
)

func TestFormatRate(t *testing.T) {
	t.Parallel()

	if got := FormatRate(125000, false); got != "1 Mb/s" {
		t.Fatalf("bits=%q", got)
	}
	if got := FormatRate(1500, true); got != "1.5 kB/s" {
		t.Fatalf("bytes=%q", got)
	}
}

func TestFormatHandshake(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000300, 0)
	if got := FormatHandshake(0, now); got != "never" {
		t.Fatalf("zero=%q", got)
	}
	if got := FormatHandshake(1700000000, now); got != "5 minutes ago" {
		t.Fatalf("age=%q", got)
	}
}

func TestRender_Placeholder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, model.Report{Interface: model.InterfaceRecord{Name: "wg0"}, Error: "collect wg0: unavailable"}, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "collect wg0: unavailable") {
		t.Fatalf("out=%q", buf.String())
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("placeholder should be one line: %q", buf.String())
	}
}

func TestRender_Table(t *testing.T) {
	t.Parallel()

	r := model.Report{
		Interface: model.InterfaceRecord{Name: "wg0", ListeningPort: 51820},
		Available: true,
		Peers: map[string]model.PeerView{
			"k1": {
				Name:   "laptop",
				Record: model.PeerRecord{PublicKey: "k1", Endpoint: "1.2.3.4:5"},
				Rate:   &model.PeerRateRecord{PublicKey: "k1", RxBytesPerSec: 125000},
				Alert:  &model.PeerAlert{Rx: model.AlertCritical, Tx: model.AlertOK},
			},
			"k2": {Name: "phone", Record: model.PeerRecord{PublicKey: "k2"}},
		},
	}

	var buf bytes.Buffer
	if err := Render(&buf, r, Options{Now: time.Unix(1700000000, 0)}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines=%d\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "laptop") || !strings.Contains(lines[2], "1 Mb/s !!") {
		t.Fatalf("laptop row=%q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "phone") || !strings.Contains(lines[3], "(none)") || !strings.Contains(lines[3], "never") {
		t.Fatalf("phone row=%q", lines[3])
	}
}
