package model

import "fmt"

// AlertLevel is the decoration attached to a rate.
type AlertLevel string

const (
	AlertOK       AlertLevel = "OK"
	AlertCareful  AlertLevel = "CAREFUL"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
	// AlertDefault means no band was configured for the metric.
	AlertDefault AlertLevel = "DEFAULT"
)

// Severity orders the levels: OK < CAREFUL < WARNING < CRITICAL. DEFAULT is -1.
func (l AlertLevel) Severity() int {
	switch l {
	case AlertOK:
		return 0
	case AlertCareful:
		return 1
	case AlertWarning:
		return 2
	case AlertCritical:
		return 3
	default:
		return -1
	}
}

// PeerAlert carries the rx and tx decorations independently.
type PeerAlert struct {
	Rx AlertLevel `json:"rx"`
	Tx AlertLevel `json:"tx"`
}

// Band is an ordered set of limits. Values are compared with >=.
type Band struct {
	Careful  float64 `yaml:"careful" json:"careful"`
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// Classify maps v to a level.
func (b Band) Classify(v float64) AlertLevel {
	switch {
	case v >= b.Critical:
		return AlertCritical
	case v >= b.Warning:
		return AlertWarning
	case v >= b.Careful:
		return AlertCareful
	default:
		return AlertOK
	}
}

// Validate checks that the limits are non-negative and ascending.
func (b Band) Validate() error {
	if b.Careful < 0 || b.Warning < 0 || b.Critical < 0 {
		return fmt.Errorf("limits must be non-negative")
	}
	if b.Careful > b.Warning || b.Warning > b.Critical {
		return fmt.Errorf("limits must satisfy careful <= warning <= critical (got %v/%v/%v)", b.Careful, b.Warning, b.Critical)
	}
	return nil
}

// Thresholds maps a metric key (rx, tx, <public_key>_rx, ...) to its band.
type Thresholds map[string]Band

// Lookup returns the band of the first key present, in order.
func (t Thresholds) Lookup(keys ...string) (Band, bool) {
	for _, k := range keys {
		if b, ok := t[k]; ok {
			return b, true
		}
	}
	return Band{}, false
}

// Classify runs v through the first configured band among keys, or returns
// AlertDefault when none is configured.
func (t Thresholds) Classify(v float64, keys ...string) AlertLevel {
	b, ok := t.Lookup(keys...)
	if !ok {
		return AlertDefault
	}
	return b.Classify(v)
}
