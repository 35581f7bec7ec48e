package source

import "errors"

// Standard errors for source operations.
//
// Use errors.Is to check for these errors:
//
//	snap, err := src.FetchAll(ctx)
//	if errors.Is(err, source.ErrUnavailable) {
//		// circuit open or remote unreachable
//	}
var (
	// ErrNotFound is returned when the source does not have the requested
	// key or version.
	ErrNotFound = errors.New("source: not found")

	// ErrUnavailable is returned when the circuit breaker is open and
	// requests are being shed without touching the network.
	ErrUnavailable = errors.New("source: remote source unavailable")
)
