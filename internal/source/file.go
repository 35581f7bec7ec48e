package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/bucketry/bucketry/internal/store"
)

// snapshotFile is the on-disk shape of a local configuration snapshot.
// Format is chosen by extension: .toml parses as TOML, everything else YAML.
type snapshotFile struct {
	Configs     []configEntry `yaml:"configs" toml:"configs"`
	PromptTests []configEntry `yaml:"prompt_ab_tests" toml:"prompt_ab_tests"`
	Prompts     []promptEntry `yaml:"prompts" toml:"prompts"`
}

type configEntry struct {
	Key      string         `yaml:"key" toml:"key"`
	Variants []variantEntry `yaml:"variants" toml:"variants"`
	Version  int            `yaml:"version" toml:"version"`
}

type variantEntry struct {
	Name          string  `yaml:"name" toml:"name"`
	PromptKey     string  `yaml:"prompt_key" toml:"prompt_key"`
	PromptVersion int     `yaml:"prompt_version" toml:"prompt_version"`
	Weight        float64 `yaml:"weight" toml:"weight"`
}

type promptEntry struct {
	Key     string `yaml:"key" toml:"key"`
	System  string `yaml:"system" toml:"system"`
	User    string `yaml:"user" toml:"user"`
	Version int    `yaml:"version" toml:"version"`
}

// FileSource serves configuration from a local snapshot file, hot-reloaded
// when the file changes. Intended for development and offline work, where a
// remote config service is not available. Recording is a debug log.
//
// The watcher monitors the parent directory to properly detect atomic writes
// (temp file + rename pattern), with debouncing for editors that fire
// multiple events per save.
type FileSource struct {
	snapshot  atomic.Pointer[Snapshot]
	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	path      string
	log       zerolog.Logger
	wg        sync.WaitGroup
}

var _ Source = (*FileSource)(nil)

// fileDebounceDelay coalesces rapid file change events.
const fileDebounceDelay = 100 * time.Millisecond

// NewFile creates a FileSource and loads the snapshot immediately. The
// returned source keeps serving the last good snapshot if a reload fails.
func NewFile(path string, logger zerolog.Logger) (*FileSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	log := logger.With().Str("source", "file").Str("path", absPath).Logger()

	s := &FileSource{
		path: absPath,
		log:  log,
	}
	snap, err := loadSnapshotFile(absPath)
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(snap)

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	s.fsWatcher = fsWatcher

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.watch(ctx)

	return s, nil
}

// Name identifies the source implementation.
func (s *FileSource) Name() string {
	return "file"
}

// Close stops the file watcher.
func (s *FileSource) Close() error {
	s.cancel()
	err := s.fsWatcher.Close()
	s.wg.Wait()
	return err
}

// FetchAll returns the current snapshot.
func (s *FileSource) FetchAll(_ context.Context) (*Snapshot, error) {
	return s.snapshot.Load(), nil
}

// FetchConfigVersion looks up a pinned config version within the snapshot.
func (s *FileSource) FetchConfigVersion(_ context.Context, key string, version int) (store.Config, error) {
	snap := s.snapshot.Load()
	for _, lists := range [][]store.Config{snap.Configs, snap.PromptTests} {
		for _, cfg := range lists {
			if cfg.Key == key && cfg.Version == version {
				return cfg, nil
			}
		}
	}
	return store.Config{}, ErrNotFound
}

// FetchPromptVersion looks up a pinned prompt document within the snapshot.
func (s *FileSource) FetchPromptVersion(_ context.Context, key string, version int) (store.PromptDocument, error) {
	for _, doc := range s.snapshot.Load().Prompts {
		if doc.Key == key && doc.Version == version {
			return doc, nil
		}
	}
	return store.PromptDocument{}, ErrNotFound
}

// RecordSession logs the assignment; there is no analytics backend in file
// mode.
func (s *FileSource) RecordSession(_ context.Context, rec Record) error {
	s.log.Debug().
		Str("config_key", rec.ConfigKey).
		Int("config_version", rec.ConfigVersion).
		Str("session_id", rec.SessionID).
		Str("assigned", rec.AssignedVariant).
		Msg("assignment recorded (file mode)")
	return nil
}

// watch reloads the snapshot on debounced file change events.
func (s *FileSource) watch(ctx context.Context) {
	defer s.wg.Done()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(fileDebounceDelay, s.reload)
		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				return
			}
			s.log.Error().Err(err).Msg("file watcher error")
		}
	}
}

// reload re-reads the snapshot file, keeping the previous snapshot on error.
func (s *FileSource) reload() {
	snap, err := loadSnapshotFile(s.path)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot reload failed, keeping previous")
		return
	}
	s.snapshot.Store(snap)
	s.log.Info().
		Int("configs", len(snap.Configs)).
		Int("prompt_tests", len(snap.PromptTests)).
		Int("prompts", len(snap.Prompts)).
		Msg("snapshot reloaded")
}

// loadSnapshotFile parses the snapshot file into a Snapshot.
func loadSnapshotFile(path string) (*Snapshot, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var doc snapshotFile
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(content, &doc)
	} else {
		err = yaml.Unmarshal(content, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	snap := &Snapshot{
		Configs:     make([]store.Config, 0, len(doc.Configs)),
		PromptTests: make([]store.Config, 0, len(doc.PromptTests)),
		Prompts:     make([]store.PromptDocument, 0, len(doc.Prompts)),
	}
	for _, c := range doc.Configs {
		snap.Configs = append(snap.Configs, configFromEntry(c))
	}
	for _, c := range doc.PromptTests {
		snap.PromptTests = append(snap.PromptTests, configFromEntry(c))
	}
	for _, p := range doc.Prompts {
		snap.Prompts = append(snap.Prompts, store.PromptDocument{
			Key:            p.Key,
			Version:        p.Version,
			SystemTemplate: p.System,
			UserTemplate:   p.User,
		})
	}
	return snap, nil
}

func configFromEntry(c configEntry) store.Config {
	cfg := store.Config{
		Key:      c.Key,
		Version:  c.Version,
		Variants: make([]store.Variant, 0, len(c.Variants)),
	}
	for _, v := range c.Variants {
		cfg.Variants = append(cfg.Variants, store.Variant{
			Name:          v.Name,
			PromptKey:     v.PromptKey,
			PromptVersion: v.PromptVersion,
			Weight:        v.Weight,
		})
	}
	return cfg
}
