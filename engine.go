// Package bucketry is a client-embedded experimentation and configuration
// resolution engine for LLM applications.
//
// Given a logical configuration key and a sticky session identifier, the
// engine deterministically resolves a weighted variant (a model name, or an
// interpolated prompt pair) without a network call on the warm path, while
// staying eventually consistent with a remote config source and never
// blocking or crashing the host application when that source is unreachable.
//
// Basic usage:
//
//	engine, err := bucketry.New(&config.Config{
//		Source: config.SourceConfig{
//			BaseURL:    "https://configs.example.com",
//			Credential: os.Getenv("BUCKETRY_TOKEN"),
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	model, err := engine.ResolveModel(ctx, "summarizer-model", sessionID,
//		bucketry.WithModelFallback("gpt-4o-mini"))
//
// The same sticky identifier against the same configuration version always
// yields the same variant, across processes and over time. Readers may
// observe configuration that is stale by up to one sync interval.
package bucketry

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/bucketry/bucketry/config"
	"github.com/bucketry/bucketry/internal/logging"
	"github.com/bucketry/bucketry/internal/recorder"
	"github.com/bucketry/bucketry/internal/source"
	"github.com/bucketry/bucketry/internal/store"
	"github.com/bucketry/bucketry/internal/syncer"
)

// Engine owns the versioned stores, the background sync loop, and the
// assignment recorder. Engines are independent: multiple isolated engines can
// coexist in one process. All methods are safe for concurrent use.
type Engine struct {
	cfg       *config.Config
	src       source.Source
	configs   *store.Store[store.Config]
	prompts   *store.Store[store.PromptDocument]
	syn       *syncer.Syncer
	rec       *recorder.Recorder
	log       zerolog.Logger
	startOnce sync.Once
}

// Option configures an Engine at construction.
type Option func(*engineOptions)

type engineOptions struct {
	logger mo.Option[zerolog.Logger]
	src    source.Source
}

// WithLogger supplies a pre-built logger instead of constructing one from
// the logging configuration.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = mo.Some(logger)
	}
}

// WithSource overrides the config source. Primarily for tests and custom
// backends implementing the source contract elsewhere in this module.
func WithSource(src source.Source) Option {
	return func(o *engineOptions) {
		o.src = src
	}
}

// New creates an Engine from configuration. A nil config is valid and yields
// an inert engine (no credential, no network calls). The background sync loop
// starts lazily on first resolution.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger, ok := o.logger.Get()
	if !ok {
		built, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		logger = built
	}

	src := o.src
	if src == nil {
		built, err := buildSource(cfg, logger)
		if err != nil {
			return nil, err
		}
		src = built
	}

	e := &Engine{
		cfg:     cfg,
		src:     src,
		log:     logger,
		configs: store.New[store.Config]("configs", logger),
		prompts: store.New[store.PromptDocument]("prompts", logger),
	}

	e.syn = syncer.New(src, e.configs, e.prompts,
		cfg.Sync.GetSyncInterval(), cfg.Sync.GetFetchTimeout(), logger)

	rec, recErr := recorder.New(src, cfg.Recorder, logger)
	if recErr != nil {
		return nil, recErr
	}
	e.rec = rec

	return e, nil
}

// buildSource constructs the configured source implementation.
func buildSource(cfg *config.Config, logger zerolog.Logger) (source.Source, error) {
	switch mode := cfg.Source.GetEffectiveMode(); mode {
	case config.SourceHTTP:
		return source.NewHTTP(cfg.Source, logger), nil
	case config.SourceFile:
		return source.NewFile(cfg.Source.Path, logger)
	case config.SourceNone:
		return source.NewNoop(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSourceMode, mode)
	}
}

// Start begins background synchronization immediately instead of waiting for
// the first resolution. Idempotent.
func (e *Engine) Start() {
	e.ensureStarted()
}

// Close stops the background sync loop, waits for in-flight assignment
// records, and releases source resources.
func (e *Engine) Close() error {
	e.syn.Stop()
	e.rec.Close()
	if closer, ok := e.src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Sync forces an immediate full refresh from the configured source,
// bypassing the background interval. Concurrent callers share one fetch.
func (e *Engine) Sync(ctx context.Context) error {
	e.ensureStarted()
	return e.syn.SyncNow(ctx)
}

// KeySummary describes one stored key for diagnostics.
type KeySummary struct {
	Key           string `json:"key"`
	LatestVersion int    `json:"latest_version"`
	Versions      int    `json:"versions"`
}

// Inventory lists the stored configuration and prompt keys with their
// latest known versions, sorted by key.
func (e *Engine) Inventory() (configs, prompts []KeySummary) {
	return summarize(e.configs), summarize(e.prompts)
}

func summarize[T any](s *store.Store[T]) []KeySummary {
	keys := s.Keys()
	sort.Strings(keys)

	out := make([]KeySummary, 0, len(keys))
	for _, key := range keys {
		_, latest, err := s.Latest(key)
		if err != nil {
			continue
		}
		out = append(out, KeySummary{
			Key:           key,
			LatestVersion: latest,
			Versions:      s.VersionCount(key),
		})
	}
	return out
}

// Status describes the engine's runtime state for diagnostics.
type Status struct {
	Source     string `json:"source"`
	SyncState  string `json:"sync_state"`
	Breaker    string `json:"breaker,omitempty"`
	ConfigKeys int    `json:"config_keys"`
	PromptKeys int    `json:"prompt_keys"`
}

// Status reports the current source, sync state, and store sizes.
func (e *Engine) Status() Status {
	st := Status{
		Source:     e.src.Name(),
		SyncState:  e.syn.State().String(),
		ConfigKeys: e.configs.Len(),
		PromptKeys: e.prompts.Len(),
	}
	if hs, ok := e.src.(*source.HTTPSource); ok {
		st.Breaker = hs.BreakerState()
	}
	return st
}

// ensureStarted lazily starts the sync loop on first use.
func (e *Engine) ensureStarted() {
	e.startOnce.Do(e.syn.Start)
}
