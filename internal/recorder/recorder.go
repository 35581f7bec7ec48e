// Package recorder reports variant assignments to the remote config source.
//
// Recording is fire-and-forget analytics: each record is posted from a
// detached goroutine with a short timeout, all errors are swallowed (logged
// at debug), and nothing on the resolve return path ever waits for it. A
// small TTL cache dedups identical records and a token-bucket limiter keeps
// hot request paths from storming the analytics endpoint; both only ever
// drop records, never delay them.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bucketry/bucketry/config"
	"github.com/bucketry/bucketry/internal/source"
)

// dedupCounters sizes the ristretto admission counters; the dedup key space
// is small (distinct config/session pairs in one TTL window).
const dedupCounters = 100_000

// Recorder posts assignment records to the source.
type Recorder struct {
	src      source.Source
	dedup    *ristretto.Cache[string, struct{}]
	limiter  *rate.Limiter
	log      zerolog.Logger
	timeout   time.Duration
	dedupTTL  time.Duration
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Recorder. DedupTTL zero disables deduplication.
func New(src source.Source, cfg config.RecorderConfig, logger zerolog.Logger) (*Recorder, error) {
	r := &Recorder{
		src:      src,
		timeout:  cfg.GetRecordTimeout(),
		dedupTTL: cfg.GetDedupTTL(),
		limiter:  rate.NewLimiter(rate.Limit(cfg.GetRatePerSec()), cfg.GetBurst()),
		log:      logger.With().Str("component", "recorder").Logger(),
	}

	if r.dedupTTL > 0 {
		dedup, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
			NumCounters: dedupCounters,
			MaxCost:     dedupCounters / 10,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("create dedup cache: %w", err)
		}
		r.dedup = dedup
	}

	return r, nil
}

// Record schedules one assignment record. Returns immediately; the POST runs
// detached with its own bounded timeout. Version 0 is the fallback sentinel
// and is never recorded.
func (r *Recorder) Record(configKey string, version int, stickyID, variant string) {
	if version == 0 {
		return
	}

	key := fmt.Sprintf("%s|%d|%s|%s", configKey, version, stickyID, variant)
	if r.dedup != nil {
		if _, seen := r.dedup.Get(key); seen {
			return
		}
		r.dedup.SetWithTTL(key, struct{}{}, 1, r.dedupTTL)
	}

	if !r.limiter.Allow() {
		r.log.Debug().Str("config_key", configKey).Msg("record dropped by rate limiter")
		return
	}

	rec := source.Record{
		ConfigKey:       configKey,
		ConfigVersion:   version,
		SessionID:       stickyID,
		AssignedVariant: variant,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		recordID := uuid.New().String()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.src.RecordSession(ctx, rec); err != nil {
			// Best-effort by contract: recording failures never surface.
			r.log.Debug().
				Str("record_id", recordID).
				Str("config_key", configKey).
				Err(err).
				Msg("assignment record failed")
			return
		}

		r.log.Debug().
			Str("record_id", recordID).
			Str("config_key", configKey).
			Int("config_version", version).
			Str("assigned", variant).
			Msg("assignment recorded")
	}()
}

// Close waits for in-flight records and releases the dedup cache.
// Safe to call more than once.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.wg.Wait()
		if r.dedup != nil {
			r.dedup.Close()
		}
	})
}
