package bucketry

import (
	"context"
	"sync"

	"github.com/bucketry/bucketry/config"
)

// The package-level API wraps one process-wide default engine for hosts that
// do not want to thread an *Engine through their call graph. Explicitly
// constructed engines (New) are preferred for anything testable.
var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Initialize creates the process-wide default engine. Idempotent: once an
// engine exists, subsequent calls are no-ops and return nil regardless of
// arguments.
func Initialize(cfg *config.Config, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultEngine != nil {
		return nil
	}

	engine, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defaultEngine = engine
	return nil
}

// Default returns the process-wide engine, or nil before Initialize.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultEngine
}

// ResolveModel resolves against the default engine.
// Returns ErrNotInitialized before Initialize.
func ResolveModel(ctx context.Context, key, stickyID string, opts ...ResolveOption) (string, error) {
	engine := Default()
	if engine == nil {
		return "", ErrNotInitialized
	}
	return engine.ResolveModel(ctx, key, stickyID, opts...)
}

// ResolvePrompt resolves against the default engine.
// Returns ErrNotInitialized before Initialize.
func ResolvePrompt(ctx context.Context, key, stickyID string, vars map[string]any, opts ...ResolveOption) (*Prompt, error) {
	engine := Default()
	if engine == nil {
		return nil, ErrNotInitialized
	}
	return engine.ResolvePrompt(ctx, key, stickyID, vars, opts...)
}
