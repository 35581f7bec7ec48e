package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store[Config] {
	t.Helper()
	return New[Config]("configs", zerolog.Nop())
}

func TestStore_LatestUnknownKey(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, _, err := s.Latest("missing")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Latest() error = %v, want ErrConfigNotFound", err)
	}
}

func TestStore_UpsertPromotesLatest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	s.Upsert("exp", 1, Config{Key: "exp", Version: 1})
	s.Upsert("exp", 3, Config{Key: "exp", Version: 3})

	cfg, version, err := s.Latest("exp")
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if version != 3 || cfg.Version != 3 {
		t.Errorf("Latest() version = %d (doc %d), want 3", version, cfg.Version)
	}

	// Upsert trusts the source about what is latest, even for a lower
	// version number.
	s.Upsert("exp", 2, Config{Key: "exp", Version: 2})

	_, version, err = s.Latest("exp")
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if version != 2 {
		t.Errorf("Latest() after upsert(2) = %d, want 2", version)
	}
}

func TestStore_VersionsNeverEvicted(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	for v := 1; v <= 50; v++ {
		s.Upsert("exp", v, Config{Key: "exp", Version: v})
	}

	if got := s.VersionCount("exp"); got != 50 {
		t.Fatalf("VersionCount() = %d, want 50", got)
	}

	// Every historic version stays readable.
	for v := 1; v <= 50; v++ {
		cfg, err := s.Version("exp", v)
		if err != nil {
			t.Fatalf("Version(%d) unexpected error: %v", v, err)
		}
		if cfg.Version != v {
			t.Fatalf("Version(%d) returned doc version %d", v, cfg.Version)
		}
	}
}

func TestStore_VersionErrors(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.Upsert("exp", 2, Config{Key: "exp", Version: 2})

	_, err := s.Version("missing", 1)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Version(unknown key) error = %v, want ErrConfigNotFound", err)
	}

	_, err = s.Version("exp", 99)
	if !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("Version(unknown version) error = %v, want ErrVersionNotFound", err)
	}
}

func TestStore_MergeDoesNotPromote(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	s.Upsert("exp", 5, Config{Key: "exp", Version: 5})
	s.Merge("exp", 2, Config{Key: "exp", Version: 2})

	_, version, err := s.Latest("exp")
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if version != 5 {
		t.Errorf("Latest() after Merge(2) = %d, want 5 (pin must not move latest)", version)
	}

	cfg, err := s.Version("exp", 2)
	if err != nil {
		t.Fatalf("Version(2) unexpected error: %v", err)
	}
	if cfg.Version != 2 {
		t.Errorf("Version(2) returned doc version %d", cfg.Version)
	}
}

func TestStore_MergeIntoEmptyKeyBecomesLatest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.Merge("exp", 4, Config{Key: "exp", Version: 4})

	_, version, err := s.Latest("exp")
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if version != 4 {
		t.Errorf("Latest() = %d, want 4", version)
	}
}

func TestStore_HasKeysLen(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if s.Has("a") {
		t.Error("Has() = true on empty store")
	}

	s.Upsert("a", 1, Config{Key: "a", Version: 1})
	s.Upsert("b", 1, Config{Key: "b", Version: 1})

	if !s.Has("a") || !s.Has("b") {
		t.Error("Has() = false for stored keys")
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	keys := s.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.Upsert("exp", 1, Config{Key: "exp", Version: 1})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)

		go func(n int) {
			defer wg.Done()
			for v := 0; v < 100; v++ {
				key := fmt.Sprintf("exp-%d", n)
				s.Upsert(key, v+1, Config{Key: key, Version: v + 1})
			}
		}(i)

		go func() {
			defer wg.Done()
			for v := 0; v < 100; v++ {
				if _, _, err := s.Latest("exp"); err != nil {
					t.Errorf("Latest() unexpected error: %v", err)
					return
				}
				s.Has("exp")
				s.Len()
			}
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 9 {
		t.Errorf("Len() = %d, want 9", got)
	}
}
