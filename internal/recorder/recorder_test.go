package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bucketry/bucketry/config"
	"github.com/bucketry/bucketry/internal/source"
	"github.com/bucketry/bucketry/internal/store"
)

// recordingSource captures RecordSession calls.
type recordingSource struct {
	mu      sync.Mutex
	records []source.Record
	err     error
	calls   atomic.Int64
}

var _ source.Source = (*recordingSource)(nil)

func (r *recordingSource) RecordSession(_ context.Context, rec source.Record) error {
	r.calls.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingSource) FetchAll(_ context.Context) (*source.Snapshot, error) {
	return &source.Snapshot{}, nil
}

func (r *recordingSource) FetchConfigVersion(_ context.Context, _ string, _ int) (store.Config, error) {
	return store.Config{}, source.ErrNotFound
}

func (r *recordingSource) FetchPromptVersion(_ context.Context, _ string, _ int) (store.PromptDocument, error) {
	return store.PromptDocument{}, source.ErrNotFound
}

func (r *recordingSource) Name() string { return "recording" }

func newTestRecorder(t *testing.T, src source.Source, cfg config.RecorderConfig) *Recorder {
	t.Helper()

	r, err := New(src, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestRecorder_PostsRecord(t *testing.T) {
	t.Parallel()

	src := &recordingSource{}
	r := newTestRecorder(t, src, config.RecorderConfig{DedupTTLMS: -1})

	r.Record("exp", 3, "session-1", "model-a")
	r.Close()

	require.Len(t, src.records, 1)
	rec := src.records[0]
	assert.Equal(t, "exp", rec.ConfigKey)
	assert.Equal(t, 3, rec.ConfigVersion)
	assert.Equal(t, "session-1", rec.SessionID)
	assert.Equal(t, "model-a", rec.AssignedVariant)
}

func TestRecorder_SkipsFallbackSentinel(t *testing.T) {
	t.Parallel()

	src := &recordingSource{}
	r := newTestRecorder(t, src, config.RecorderConfig{DedupTTLMS: -1})

	r.Record("exp", 0, "session-1", "fallback-model")
	r.Close()

	assert.Zero(t, src.calls.Load(), "fallback assignments must not be recorded")
}

func TestRecorder_DedupsIdenticalRecords(t *testing.T) {
	t.Parallel()

	src := &recordingSource{}
	r := newTestRecorder(t, src, config.RecorderConfig{DedupTTLMS: 60_000})

	r.Record("exp", 3, "session-1", "model-a")
	r.dedup.Wait()

	for i := 0; i < 10; i++ {
		r.Record("exp", 3, "session-1", "model-a")
	}
	// A different sticky identifier is a distinct record.
	r.Record("exp", 3, "session-2", "model-a")
	r.Close()

	assert.EqualValues(t, 2, src.calls.Load())
}

func TestRecorder_DedupDisabled(t *testing.T) {
	t.Parallel()

	src := &recordingSource{}
	r := newTestRecorder(t, src, config.RecorderConfig{DedupTTLMS: -1})

	r.Record("exp", 3, "session-1", "model-a")
	r.Record("exp", 3, "session-1", "model-a")
	r.Close()

	assert.EqualValues(t, 2, src.calls.Load())
}

func TestRecorder_RateLimiterDrops(t *testing.T) {
	t.Parallel()

	src := &recordingSource{}
	r := newTestRecorder(t, src, config.RecorderConfig{
		DedupTTLMS: -1,
		RatePerSec: 1,
		Burst:      2,
	})

	for i := 0; i < 20; i++ {
		r.Record("exp", 3, "session-1", "model-a")
	}
	r.Close()

	calls := src.calls.Load()
	assert.LessOrEqual(t, calls, int64(3), "rate limiter should drop the burst overflow")
	assert.GreaterOrEqual(t, calls, int64(2))
}

func TestRecorder_SourceFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	src := &recordingSource{err: errors.New("analytics down")}
	r := newTestRecorder(t, src, config.RecorderConfig{DedupTTLMS: -1})

	// Must neither panic nor block the caller.
	done := make(chan struct{})
	go func() {
		r.Record("exp", 3, "session-1", "model-a")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a failing source")
	}
	r.Close()

	assert.EqualValues(t, 1, src.calls.Load())
}
