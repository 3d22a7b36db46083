package netif

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/net"

	"wgwatch/internal/model"
)

// CountersFunc matches net.IOCountersWithContext so tests can stub the host.
type CountersFunc func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)

// Reader returns host NIC counters for a named interface.
type Reader struct {
	counters CountersFunc
}

func NewReader(fn CountersFunc) *Reader {
	if fn == nil {
		fn = net.IOCountersWithContext
	}
	return &Reader{counters: fn}
}

// Counters returns the counters of iface.
func (r *Reader) Counters(ctx context.Context, iface string) (*model.LinkCounters, error) {
	stats, err := r.counters(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("read interface counters: %w", err)
	}
	for _, s := range stats {
		if s.Name != iface {
			continue
		}
		return &model.LinkCounters{
			RxBytes:   s.BytesRecv,
			TxBytes:   s.BytesSent,
			RxPackets: s.PacketsRecv,
			TxPackets: s.PacketsSent,
		}, nil
	}
	return nil, fmt.Errorf("interface %s not found in host counters", iface)
}
