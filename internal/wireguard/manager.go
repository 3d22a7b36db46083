package wireguard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"wgwatch/internal/execx"
	"wgwatch/internal/model"
)

// DefaultBinary is the wg tool looked up on PATH.
const DefaultBinary = "wg"

// Manager runs the wg status commands. It is injectable for unit tests.
type Manager struct {
	r      execx.Runner
	binary string
}

func NewManager(r execx.Runner, binary string) *Manager {
	if r == nil {
		r = execx.NewOSRunner(0)
	}
	if binary == "" {
		binary = DefaultBinary
	}
	return &Manager{r: r, binary: binary}
}

// Dump returns the raw `wg show <iface> dump` output.
func (m *Manager) Dump(ctx context.Context, iface string) (string, error) {
	if iface == "" {
		return "", fmt.Errorf("interface is required")
	}
	return m.output(ctx, "show", iface, "dump")
}

// Collect runs the dump for iface and parses it. A *CollectError is returned
// when no data could be obtained; parse warnings never fail the call.
func (m *Manager) Collect(ctx context.Context, iface string) (model.Snapshot, []ParseWarning, error) {
	if iface == "" {
		return model.Snapshot{}, nil, fmt.Errorf("interface is required")
	}
	out, err := m.Dump(ctx, iface)
	if err != nil {
		return model.Snapshot{}, nil, &CollectError{Kind: classify(err), Interface: iface, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return model.Snapshot{}, nil, &CollectError{Kind: Unavailable, Interface: iface, Err: errors.New("empty output")}
	}
	snap, warnings := ParseDump(iface, out)
	return snap, warnings, nil
}

// Collect is the runner-first form used when no Manager is kept around.
func Collect(ctx context.Context, r execx.Runner, iface string) (model.Snapshot, []ParseWarning, error) {
	return NewManager(r, DefaultBinary).Collect(ctx, iface)
}

func classify(err error) CollectKind {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return PermissionDenied
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied") {
		return PermissionDenied
	}
	return Unavailable
}

func (m *Manager) output(ctx context.Context, args ...string) (string, error) {
	if m == nil || m.r == nil {
		return "", fmt.Errorf("runner not initialized")
	}
	return m.r.Output(ctx, m.binary, args...)
}
