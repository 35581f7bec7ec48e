// Package syncer keeps the versioned stores eventually consistent with the
// remote config source.
//
// On Start, one immediate best-effort full fetch runs in the background;
// thereafter a fixed-interval ticker refreshes the stores. Fetch failures
// leave the stores untouched, so readers degrade to last known good
// configuration silently. The loop is a best-effort background task: it never
// blocks callers and never keeps the host process alive on its own.
//
// Cache misses go through the on-demand path, which deduplicates concurrent
// fetches for the same key with singleflight so a cold-start stampede costs a
// bounded number of remote calls.
package syncer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bucketry/bucketry/internal/assign"
	"github.com/bucketry/bucketry/internal/source"
	"github.com/bucketry/bucketry/internal/store"
)

// State is the sync service lifecycle state.
type State int32

// Sync service states: Uninitialized -> Syncing -> Idle <-> Syncing.
const (
	StateUninitialized State = iota
	StateSyncing
	StateIdle
)

// String returns the state name for logs and status output.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSyncing:
		return "syncing"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Syncer refreshes the config and prompt stores from a Source.
type Syncer struct {
	ctx      context.Context
	src      source.Source
	configs  *store.Store[store.Config]
	prompts  *store.Store[store.PromptDocument]
	cancel   context.CancelFunc
	log      zerolog.Logger
	interval time.Duration
	timeout  time.Duration
	state    atomic.Int32
	group    singleflight.Group
	once     sync.Once
	wg       sync.WaitGroup
}

// New creates a Syncer over the given source and stores.
func New(src source.Source, configs *store.Store[store.Config], prompts *store.Store[store.PromptDocument], interval, timeout time.Duration, logger zerolog.Logger) *Syncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		src:      src,
		configs:  configs,
		prompts:  prompts,
		interval: interval,
		timeout:  timeout,
		log:      logger.With().Str("component", "syncer").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// State returns the current lifecycle state.
func (s *Syncer) State() State {
	return State(s.state.Load())
}

// Start performs the initial background fetch and schedules the recurring
// refresh. Idempotent; subsequent calls are no-ops.
func (s *Syncer) Start() {
	s.once.Do(func() {
		// First scheduled tick gets 0-2s of jitter so a fleet of processes
		// does not align its fetches against the remote source.
		jitter := cryptoRandDuration(2 * time.Second)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			s.log.Info().
				Dur("interval", s.interval).
				Dur("jitter", jitter).
				Msg("sync loop started")

			// Immediate best-effort warm-up fetch.
			s.syncTick()

			ticker := time.NewTicker(s.interval + jitter)
			defer ticker.Stop()
			first := true

			for {
				select {
				case <-s.ctx.Done():
					s.log.Info().Msg("sync loop stopped")
					return
				case <-ticker.C:
					if first {
						// Drop the jitter after the first tick.
						ticker.Reset(s.interval)
						first = false
					}
					s.syncTick()
				}
			}
		}()
	})
}

// Stop cancels the loop and waits for the goroutine to finish.
func (s *Syncer) Stop() {
	s.cancel()
	s.wg.Wait()
}

// SyncNow performs one full fetch and applies it to the stores. Concurrent
// callers share a single fetch. On-demand cold-miss lookups use this path;
// failures are returned to the caller but never leave partial store state.
func (s *Syncer) SyncNow(ctx context.Context) error {
	_, err, _ := s.group.Do("all", func() (any, error) {
		return nil, s.fetchAll()
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// EnsureConfigVersion backfills one pinned config version into the store.
// Concurrent callers for the same key and version share a single fetch. The
// fetched version is merged without promoting the latest pointer, so pinning
// an old version never moves "latest" backwards.
func (s *Syncer) EnsureConfigVersion(ctx context.Context, key string, version int) error {
	_, err, _ := s.group.Do(fmt.Sprintf("config/%s/%d", key, version), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		cfg, err := s.src.FetchConfigVersion(fetchCtx, key, version)
		if err != nil {
			return nil, err
		}
		s.warnInvalid(cfg)
		s.configs.Merge(key, cfg.Version, cfg)
		return nil, nil
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// EnsurePromptVersion backfills one pinned prompt document version.
func (s *Syncer) EnsurePromptVersion(ctx context.Context, key string, version int) error {
	_, err, _ := s.group.Do(fmt.Sprintf("prompt/%s/%d", key, version), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		doc, err := s.src.FetchPromptVersion(fetchCtx, key, version)
		if err != nil {
			return nil, err
		}
		s.prompts.Merge(key, doc.Version, doc)
		return nil, nil
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// syncTick runs one background refresh. Failures are logged and retried on
// the next tick; nothing propagates to callers.
func (s *Syncer) syncTick() {
	s.state.Store(int32(StateSyncing))
	defer s.state.Store(int32(StateIdle))

	if err := s.SyncNow(s.ctx); err != nil {
		s.log.Warn().Err(err).Msg("background sync failed, keeping last known good")
	}
}

// fetchAll performs the bounded bulk fetch and applies the snapshot.
func (s *Syncer) fetchAll() error {
	fetchCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	snap, err := s.src.FetchAll(fetchCtx)
	if err != nil {
		return err
	}
	s.applySnapshot(snap)
	return nil
}

// applySnapshot upserts every fetched document. The bulk endpoints report
// each key at its true latest version, so upserts promote the latest pointer.
func (s *Syncer) applySnapshot(snap *source.Snapshot) {
	for _, cfg := range snap.Configs {
		s.warnInvalid(cfg)
		s.configs.Upsert(cfg.Key, cfg.Version, cfg)
	}
	for _, cfg := range snap.PromptTests {
		s.warnInvalid(cfg)
		s.configs.Upsert(cfg.Key, cfg.Version, cfg)
	}
	for _, doc := range snap.Prompts {
		s.prompts.Upsert(doc.Key, doc.Version, doc)
	}

	s.log.Debug().
		Int("configs", len(snap.Configs)+len(snap.PromptTests)).
		Int("prompts", len(snap.Prompts)).
		Msg("snapshot applied")
}

// warnInvalid surfaces structurally broken configs at ingestion time. The
// config is still stored so that resolving it yields an invalid-config error
// rather than masking the problem as not-found.
func (s *Syncer) warnInvalid(cfg store.Config) {
	if err := assign.Validate(cfg.Variants); err != nil {
		s.log.Warn().
			Str("key", cfg.Key).
			Int("version", cfg.Version).
			Err(err).
			Msg("ingested structurally invalid config")
	}
}

// cryptoRandDuration returns a random duration between 0 and maxDur.
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // G115: maxDur is positive (checked above), safe conversion
	return time.Duration(n % uint64(maxDur))
}
