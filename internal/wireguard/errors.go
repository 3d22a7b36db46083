package wireguard

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the dump could not be obtained this cycle.
	ErrUnavailable = errors.New("wireguard status unavailable")
	// ErrPermissionDenied means wg refused to run for lack of privileges.
	ErrPermissionDenied = errors.New("wireguard status permission denied")
)

// CollectKind classifies a failed collection.
type CollectKind int

const (
	Unavailable CollectKind = iota
	PermissionDenied
)

func (k CollectKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	default:
		return "unavailable"
	}
}

// CollectError aborts a cycle for one interface. It matches ErrUnavailable or
// ErrPermissionDenied with errors.Is.
type CollectError struct {
	Kind      CollectKind
	Interface string
	Err       error
}

func (e *CollectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("collect %s: %s", e.Interface, e.Kind)
	}
	return fmt.Sprintf("collect %s: %s: %v", e.Interface, e.Kind, e.Err)
}

func (e *CollectError) Unwrap() error { return e.Err }

func (e *CollectError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == Unavailable
	case ErrPermissionDenied:
		return e.Kind == PermissionDenied
	}
	return false
}

// WarningKind classifies a non-fatal parse problem.
type WarningKind int

const (
	MalformedLine WarningKind = iota
	MalformedField
	DuplicatePeer
)

func (k WarningKind) String() string {
	switch k {
	case MalformedField:
		return "malformed_field"
	case DuplicatePeer:
		return "duplicate_peer"
	default:
		return "malformed_line"
	}
}

// ParseWarning reports a skipped (or overridden) dump line. Line is 1-based.
type ParseWarning struct {
	Kind  WarningKind
	Line  int
	Field string
	Text  string
}

func (w ParseWarning) String() string {
	if w.Field != "" {
		return fmt.Sprintf("line %d: %s (%s): %s", w.Line, w.Kind, w.Field, w.Text)
	}
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Text)
}
