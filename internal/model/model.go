package model

import "time"

// InterfaceRecord describes the tunnel device as reported by the dump header.
type InterfaceRecord struct {
	Name            string  `json:"name"`
	PublicKey       string  `json:"public_key"`
	ListeningPort   int     `json:"listening_port"`
	TimeSinceUpdate float64 `json:"time_since_update"`
}

// PeerRecord is a single peer line of the dump.
type PeerRecord struct {
	PublicKey           string   `json:"public_key"`
	PresharedKey        string   `json:"preshared_key,omitempty"`
	Endpoint            string   `json:"endpoint,omitempty"`
	AllowedIPs          []string `json:"allowed_ips,omitempty"`
	LatestHandshake     int64    `json:"latest_handshake"`
	TransferRx          int64    `json:"transfer_rx"`
	TransferTx          int64    `json:"transfer_tx"`
	PersistentKeepalive int      `json:"persistent_keepalive"` // seconds, 0 = off
}

// PeerRateRecord holds per-second transfer rates in bytes. A Reset flag means the
// counter went backwards and the rate for that direction was reported as zero.
type PeerRateRecord struct {
	PublicKey     string  `json:"public_key"`
	RxBytesPerSec float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64 `json:"tx_bytes_per_sec"`
	RxReset       bool    `json:"rx_reset,omitempty"`
	TxReset       bool    `json:"tx_reset,omitempty"`
}

// LinkCounters are the host NIC counters of the tunnel device.
type LinkCounters struct {
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
	RxPackets uint64 `json:"rx_packets"`
	TxPackets uint64 `json:"tx_packets"`
}

// LinkRate is the device-wide rate derived from two LinkCounters samples.
type LinkRate struct {
	RxBytesPerSec float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64 `json:"tx_bytes_per_sec"`
	RxReset       bool    `json:"rx_reset,omitempty"`
	TxReset       bool    `json:"tx_reset,omitempty"`
}

// Snapshot is the result of one collection. Peers is keyed by public key.
type Snapshot struct {
	Interface InterfaceRecord       `json:"interface"`
	Peers     map[string]PeerRecord `json:"peers"`
	Link      *LinkCounters         `json:"link,omitempty"`
}

// Clone returns a deep copy so the snapshot can be handed to another owner.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Interface: s.Interface, Peers: make(map[string]PeerRecord, len(s.Peers))}
	for k, p := range s.Peers {
		if p.AllowedIPs != nil {
			p.AllowedIPs = append([]string(nil), p.AllowedIPs...)
		}
		out.Peers[k] = p
	}
	if s.Link != nil {
		link := *s.Link
		out.Link = &link
	}
	return out
}

// PeerView is what the renderer gets for a single peer.
type PeerView struct {
	Name   string          `json:"name"`
	Record PeerRecord      `json:"record"`
	Rate   *PeerRateRecord `json:"rate,omitempty"`
	Alert  *PeerAlert      `json:"alert,omitempty"`
}

// LinkView is the device-wide counterpart of PeerView.
type LinkView struct {
	Counters LinkCounters `json:"counters"`
	Rate     *LinkRate    `json:"rate,omitempty"`
	Alert    *PeerAlert   `json:"alert,omitempty"`
}

// Report is the per-cycle output. When Available is false only Interface.Name,
// CollectedAt and Error are meaningful and the renderer shows a placeholder.
type Report struct {
	Interface   InterfaceRecord     `json:"interface"`
	Available   bool                `json:"available"`
	Error       string              `json:"error,omitempty"`
	CollectedAt time.Time           `json:"collected_at"`
	Peers       map[string]PeerView `json:"peers"`
	Link        *LinkView           `json:"link,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// Sample is a single per-peer rate measurement for the sample log.
type Sample struct {
	Timestamp     time.Time
	Interface     string
	PublicKey     string
	Name          string
	RxBytesPerSec float64
	TxBytesPerSec float64
	RxAlert       AlertLevel
	TxAlert       AlertLevel
}
