package api

import (
	"time"

	"wgwatch/internal/model"
)

// ReportPath serves the latest report. It answers 503 with a placeholder
// report while no successful collection is available.
const ReportPath = "/api/v1/report"

// PeerPath serves a single peer view; the key is path-escaped.
const PeerPath = "/api/v1/peers/"

const HealthPath = "/healthz"

// HealthResponse is returned by HealthPath with 200 or 503.
type HealthResponse struct {
	Interface           string    `json:"interface"`
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// PeerResponse wraps one peer of the latest report.
type PeerResponse struct {
	Interface   string         `json:"interface"`
	PublicKey   string         `json:"public_key"`
	CollectedAt time.Time      `json:"collected_at"`
	Peer        model.PeerView `json:"peer"`
}

// ErrorResponse is the body of every non-report error.
type ErrorResponse struct {
	Error string `json:"error"`
}
