package store

import "errors"

// Standard errors for store lookups.
//
// Use errors.Is to check for these errors:
//
//	cfg, _, err := s.Latest(key)
//	if errors.Is(err, store.ErrConfigNotFound) {
//		// cold cache or unknown key
//	}
var (
	// ErrConfigNotFound is returned when a configuration key is unknown.
	ErrConfigNotFound = errors.New("store: config key not found")

	// ErrVersionNotFound is returned when the key is known but the requested
	// version is not stored.
	ErrVersionNotFound = errors.New("store: config version not found")
)
