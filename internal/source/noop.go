package source

import (
	"context"

	"github.com/bucketry/bucketry/internal/store"
)

// NoopSource is the inert source used when no credential is configured.
// It never touches the network: bulk fetches succeed with an empty snapshot,
// pinned fetches report not found, and recording is a no-op. Resolution
// against a NoopSource-backed engine always ends in the caller's fallback or
// a not-found error.
type NoopSource struct{}

var _ Source = (*NoopSource)(nil)

// NewNoop creates a NoopSource.
func NewNoop() *NoopSource {
	return &NoopSource{}
}

// Name identifies the source implementation.
func (n *NoopSource) Name() string {
	return "none"
}

// FetchAll returns an empty snapshot.
func (n *NoopSource) FetchAll(_ context.Context) (*Snapshot, error) {
	return &Snapshot{}, nil
}

// FetchConfigVersion always reports not found.
func (n *NoopSource) FetchConfigVersion(_ context.Context, _ string, _ int) (store.Config, error) {
	return store.Config{}, ErrNotFound
}

// FetchPromptVersion always reports not found.
func (n *NoopSource) FetchPromptVersion(_ context.Context, _ string, _ int) (store.PromptDocument, error) {
	return store.PromptDocument{}, ErrNotFound
}

// RecordSession discards the record.
func (n *NoopSource) RecordSession(_ context.Context, _ Record) error {
	return nil
}
