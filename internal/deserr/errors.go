// Package deserr defines the error taxonomy of the simulation core.
//
// Fatal errors (LookaheadViolation, PartitionOverflow, TransportError,
// InvalidDelay) abort the owning OS process; there is no local recovery.
// Non-fatal conditions (CancelledEvent, RemoveUnknownId) are not errors in
// the Go sense -- callers that hit them should treat the operation as a
// silent, idempotent no-op rather than propagate a failure.
package deserr

import "errors"

// Fatal conditions. Any rank hitting one of these must abort; the next
// collective on surviving ranks detects the abort.
var (
	// ErrLookaheadViolation is returned when a cross-LP event is scheduled
	// with delay < minLookahead.
	ErrLookaheadViolation = errors.New("deserr: lookahead violation")

	// ErrPartitionOverflow is returned when a rank would own more than
	// 65535 (2^16-1) logical processes.
	ErrPartitionOverflow = errors.New("deserr: partition overflow (>65535 LPs on one rank)")

	// ErrTransportError is returned in place of any error a Transport
	// primitive returns.
	ErrTransportError = errors.New("deserr: transport error")

	// ErrInvalidDelay is returned when Schedule is called with delay < 0.
	ErrInvalidDelay = errors.New("deserr: invalid delay")
)

// Non-fatal sentinels. Neither indicates a bug; both are idempotent no-ops.
var (
	// ErrCancelledEvent marks an event the scheduler still holds but that
	// must be skipped rather than executed.
	ErrCancelledEvent = errors.New("deserr: cancelled event")

	// ErrRemoveUnknownId marks a remove-by-id call whose id is not present.
	ErrRemoveUnknownId = errors.New("deserr: unknown event id")
)

// ExitCode maps a fatal condition to a process exit code: 0 clean,
// non-zero on lookahead violation, partition failure, or transport error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrLookaheadViolation):
		return 2
	case errors.Is(err, ErrPartitionOverflow):
		return 3
	case errors.Is(err, ErrTransportError):
		return 4
	case errors.Is(err, ErrInvalidDelay):
		return 5
	default:
		return 1
	}
}
