package bucketry

import (
	"errors"
	"fmt"

	"github.com/bucketry/bucketry/internal/assign"
	"github.com/bucketry/bucketry/internal/source"
	"github.com/bucketry/bucketry/internal/store"
)

// Resolution errors. Check with errors.Is.
//
// ErrConfigNotFound and ErrVersionNotFound are configuration errors: they
// propagate unless the caller supplies a fallback. ErrInvalidConfig always
// propagates; a fallback cannot repair a structurally broken configuration.
// Transient fetch failures surface as TransientFetchError only on the
// on-demand (cold cache) path and only when no fallback is supplied.
var (
	// ErrConfigNotFound means the configuration key is unknown to the
	// remote source.
	ErrConfigNotFound = store.ErrConfigNotFound

	// ErrVersionNotFound means the key is known but the requested version
	// is not.
	ErrVersionNotFound = store.ErrVersionNotFound

	// ErrInvalidConfig means the configuration is structurally unusable:
	// zero variants or malformed weight data.
	ErrInvalidConfig = assign.ErrInvalidConfig

	// ErrSourceUnavailable means the remote source circuit breaker is open.
	ErrSourceUnavailable = source.ErrUnavailable

	// ErrTransientFetch matches any TransientFetchError.
	ErrTransientFetch = errors.New("bucketry: transient fetch failure")

	// ErrNotInitialized is returned by the package-level resolve functions
	// before Initialize has been called.
	ErrNotInitialized = errors.New("bucketry: engine not initialized")
)

// TransientFetchError wraps a network or timeout failure from an on-demand
// fetch triggered by a cache miss.
type TransientFetchError struct {
	Err error
	Op  string
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("bucketry: transient fetch failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying fetch error.
func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// Is makes TransientFetchError match ErrTransientFetch under errors.Is.
func (e *TransientFetchError) Is(target error) bool {
	return target == ErrTransientFetch
}

// isNotFound reports whether err is a configuration-error-class miss.
func isNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrVersionNotFound)
}
