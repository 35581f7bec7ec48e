// Package source abstracts the remote configuration source for bucketry.
//
// A Source exposes the four operations the engine needs: bulk fetch of all
// experiment configs and prompt documents, single-version fetch for pinned
// lookups, and fire-and-forget assignment recording. Three implementations
// exist:
//   - HTTPSource: the real remote config service, guarded by a circuit breaker
//   - FileSource: a local snapshot file with hot reload, for dev/offline work
//   - NoopSource: inert mode when no credential is configured
//
// All implementations are safe for concurrent use.
package source

import (
	"context"

	"github.com/bucketry/bucketry/internal/store"
)

// Record is one session assignment to report for analytics. Recording never
// affects resolution results; it is produced transiently per resolve call and
// not read back.
type Record struct {
	ConfigKey       string
	SessionID       string
	AssignedVariant string
	ConfigVersion   int
}

// Snapshot is the result of a bulk fetch: every experiment config, prompt
// A/B test, and prompt document the source currently publishes, each at its
// latest version.
type Snapshot struct {
	Configs     []store.Config
	PromptTests []store.Config
	Prompts     []store.PromptDocument
}

// Source defines the remote config source contract. Every method honors the
// deadline on its context; implementations must not retain partial state on
// failure.
type Source interface {
	// FetchAll retrieves all published configs and prompt documents.
	FetchAll(ctx context.Context) (*Snapshot, error)

	// FetchConfigVersion retrieves one specific version of an experiment
	// config. Returns ErrNotFound if the source does not have it.
	FetchConfigVersion(ctx context.Context, key string, version int) (store.Config, error)

	// FetchPromptVersion retrieves one specific version of a prompt
	// document. Returns ErrNotFound if the source does not have it.
	FetchPromptVersion(ctx context.Context, key string, version int) (store.PromptDocument, error)

	// RecordSession reports an assignment. Best-effort; the response is
	// ignored by callers.
	RecordSession(ctx context.Context, rec Record) error

	// Name identifies the source implementation for logging.
	Name() string
}
