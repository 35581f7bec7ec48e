package bucketry

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"

	"github.com/bucketry/bucketry/internal/assign"
	"github.com/bucketry/bucketry/internal/source"
	"github.com/bucketry/bucketry/internal/store"
	"github.com/bucketry/bucketry/internal/template"
)

// Prompt is a resolved and interpolated system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// ResolveOption adjusts a single resolution call.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	version        mo.Option[int]
	modelFallback  mo.Option[string]
	promptFallback mo.Option[Prompt]
}

// WithVersion pins resolution to a specific published configuration version
// instead of tracking the latest known one.
func WithVersion(version int) ResolveOption {
	return func(o *resolveOptions) {
		o.version = mo.Some(version)
	}
}

// WithModelFallback supplies the model name to return when the configuration
// is missing or a transient fetch failure occurs. With a fallback set,
// ResolveModel never returns an error except for structurally invalid
// configurations.
func WithModelFallback(name string) ResolveOption {
	return func(o *resolveOptions) {
		o.modelFallback = mo.Some(name)
	}
}

// WithPromptFallback supplies the prompt templates to use when the
// configuration is missing or a transient fetch failure occurs. The fallback
// templates are interpolated with the caller's variables like a resolved
// prompt would be.
func WithPromptFallback(system, user string) ResolveOption {
	return func(o *resolveOptions) {
		o.promptFallback = mo.Some(Prompt{System: system, User: user})
	}
}

func applyResolveOptions(opts []ResolveOption) resolveOptions {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ResolveModel deterministically resolves the model name for key and the
// given sticky identifier. A warm cache resolves without suspending; a cold
// cache triggers one bounded on-demand fetch.
//
// Without a fallback, unknown keys and versions return ErrConfigNotFound or
// ErrVersionNotFound. With a fallback, those cases log a warning and return
// the fallback; only ErrInvalidConfig still propagates.
func (e *Engine) ResolveModel(ctx context.Context, key, stickyID string, opts ...ResolveOption) (string, error) {
	o := applyResolveOptions(opts)

	variant, version, err := e.resolveVariant(ctx, key, stickyID, o.version)
	if err != nil {
		fallback, ok := o.modelFallback.Get()
		if !ok || errors.Is(err, ErrInvalidConfig) {
			return "", err
		}
		e.logDegraded(key, stickyID, err)
		return fallback, nil
	}

	e.rec.Record(key, version, stickyID, variant.Label())
	return variant.Label(), nil
}

// ResolvePrompt resolves a prompt A/B test for key and the sticky
// identifier, then resolves the winning variant's prompt document and
// interpolates vars into its templates. The two-level indirection (A/B test
// selects a prompt key and version, which selects the document) means the
// document can be published and versioned independently of the test.
func (e *Engine) ResolvePrompt(ctx context.Context, key, stickyID string, vars map[string]any, opts ...ResolveOption) (*Prompt, error) {
	o := applyResolveOptions(opts)

	prompt, version, variant, err := e.resolvePromptOnce(ctx, key, stickyID, o)
	if err != nil {
		fallback, ok := o.promptFallback.Get()
		if !ok || errors.Is(err, ErrInvalidConfig) {
			return nil, err
		}
		e.logDegraded(key, stickyID, err)
		return &Prompt{
			System: template.Interpolate(fallback.System, vars),
			User:   template.Interpolate(fallback.User, vars),
		}, nil
	}

	e.rec.Record(key, version, stickyID, variant.Label())
	return &Prompt{
		System: template.Interpolate(prompt.SystemTemplate, vars),
		User:   template.Interpolate(prompt.UserTemplate, vars),
	}, nil
}

// resolvePromptOnce runs both resolution levels without degradation.
func (e *Engine) resolvePromptOnce(ctx context.Context, key, stickyID string, o resolveOptions) (store.PromptDocument, int, store.Variant, error) {
	variant, version, err := e.resolveVariant(ctx, key, stickyID, o.version)
	if err != nil {
		return store.PromptDocument{}, 0, store.Variant{}, err
	}

	doc, err := e.lookupPrompt(ctx, variant)
	if err != nil {
		return store.PromptDocument{}, 0, store.Variant{}, err
	}
	return doc, version, variant, nil
}

// resolveVariant looks up the configuration and runs the weighted-bucket
// assignment. The returned version is the one actually resolved against, for
// recording.
func (e *Engine) resolveVariant(ctx context.Context, key, stickyID string, pin mo.Option[int]) (store.Variant, int, error) {
	e.ensureStarted()

	cfg, version, err := e.lookupConfig(ctx, key, pin)
	if err != nil {
		return store.Variant{}, 0, err
	}

	if err := assign.Validate(cfg.Variants); err != nil {
		return store.Variant{}, 0, err
	}

	variant, err := assign.Pick(cfg.Variants, stickyID)
	if err != nil {
		return store.Variant{}, 0, err
	}
	return variant, version, nil
}

// lookupConfig finds the target configuration version in the store,
// performing bounded on-demand fetches on misses.
func (e *Engine) lookupConfig(ctx context.Context, key string, pin mo.Option[int]) (store.Config, int, error) {
	// Cold miss: one synchronous bounded fetch-all, then look again.
	// Concurrent cold-start callers share the fetch via singleflight.
	var fetchErr error
	if !e.configs.Has(key) {
		fetchErr = e.syn.SyncNow(ctx)
	}

	if version, pinned := pin.Get(); pinned {
		cfg, err := e.configs.Version(key, version)
		if err != nil {
			// One on-demand single-version fetch before giving up.
			ensureErr := e.syn.EnsureConfigVersion(ctx, key, version)
			cfg, err = e.configs.Version(key, version)
			if err != nil {
				if transient := transientOf(ensureErr); transient != nil {
					return store.Config{}, 0, &TransientFetchError{Op: "config version fetch", Err: transient}
				}
				return store.Config{}, 0, err
			}
			return cfg, version, nil
		}
		return cfg, version, nil
	}

	cfg, version, err := e.configs.Latest(key)
	if err != nil {
		if transient := transientOf(fetchErr); transient != nil {
			return store.Config{}, 0, &TransientFetchError{Op: "on-demand fetch", Err: transient}
		}
		return store.Config{}, 0, err
	}
	return cfg, version, nil
}

// lookupPrompt resolves a prompt variant's document through the prompt
// store, with the same miss handling as config lookup.
func (e *Engine) lookupPrompt(ctx context.Context, variant store.Variant) (store.PromptDocument, error) {
	key := variant.PromptKey
	if key == "" {
		return store.PromptDocument{}, fmt.Errorf("%w: prompt variant %q has no prompt key", ErrInvalidConfig, variant.Name)
	}

	if variant.PromptVersion > 0 {
		doc, err := e.prompts.Version(key, variant.PromptVersion)
		if err != nil {
			ensureErr := e.syn.EnsurePromptVersion(ctx, key, variant.PromptVersion)
			doc, err = e.prompts.Version(key, variant.PromptVersion)
			if err != nil {
				if transient := transientOf(ensureErr); transient != nil {
					return store.PromptDocument{}, &TransientFetchError{Op: "prompt version fetch", Err: transient}
				}
				return store.PromptDocument{}, err
			}
			return doc, nil
		}
		return doc, nil
	}

	var fetchErr error
	if !e.prompts.Has(key) {
		fetchErr = e.syn.SyncNow(ctx)
	}
	doc, _, err := e.prompts.Latest(key)
	if err != nil {
		if transient := transientOf(fetchErr); transient != nil {
			return store.PromptDocument{}, &TransientFetchError{Op: "on-demand prompt fetch", Err: transient}
		}
		return store.PromptDocument{}, err
	}
	return doc, nil
}

// transientOf filters fetch errors down to the transient class: a remote
// "not found" answer is a definitive miss, not a transient failure.
func transientOf(err error) error {
	if err == nil || errors.Is(err, source.ErrNotFound) {
		return nil
	}
	return err
}

// logDegraded records why a fallback was used, distinguishing configuration
// misses from unexpected failures.
func (e *Engine) logDegraded(key, stickyID string, err error) {
	if isNotFound(err) {
		e.log.Warn().
			Str("key", key).
			Str("sticky_id", stickyID).
			Err(err).
			Msg("config not found, returning fallback")
		return
	}
	e.log.Error().
		Str("key", key).
		Str("sticky_id", stickyID).
		Err(err).
		Msg("unexpected resolution failure, returning fallback")
}
