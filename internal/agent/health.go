package agent

import (
	"sync"
	"time"
)

// HealthStatus is a point-in-time view of the failure streak.
type HealthStatus struct {
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// Health tracks consecutive failed cycles. It is read by the HTTP server while
// the monitor writes it, hence the lock.
type Health struct {
	mu        sync.Mutex
	threshold int
	status    HealthStatus
}

func NewHealth(threshold int) *Health {
	if threshold <= 0 {
		threshold = 1
	}
	return &Health{threshold: threshold, status: HealthStatus{Healthy: true}}
}

func (h *Health) OK(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.ConsecutiveFailures = 0
	h.status.LastSuccess = at
	h.status.Healthy = true
}

func (h *Health) Fail(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.ConsecutiveFailures++
	h.status.LastFailure = at
	if err != nil {
		h.status.LastError = err.Error()
	}
	h.status.Healthy = h.status.ConsecutiveFailures < h.threshold
}

func (h *Health) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}
