package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Tuning holds the runtime-changeable values: cache TTLs and page limits.
// It is loaded from a YAML file so operators can retune caches without a
// redeploy.
type Tuning struct {
	PageCacheTTL    time.Duration `yaml:"-"`
	MergedCacheTTL  time.Duration `yaml:"-"`
	ArchiveCacheTTL time.Duration `yaml:"-"`
	MaxPageSize     int           `yaml:"maxPageSize"`
	FeedLimit       int           `yaml:"feedLimit"`
}

// UnmarshalYAML decodes over the existing values, so absent keys keep their
// defaults. TTLs are written as Go duration strings ("5m", "1h30m").
func (t *Tuning) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		PageCacheTTL    string `yaml:"pageCacheTTL"`
		MergedCacheTTL  string `yaml:"mergedCacheTTL"`
		ArchiveCacheTTL string `yaml:"archiveCacheTTL"`
		MaxPageSize     *int   `yaml:"maxPageSize"`
		FeedLimit       *int   `yaml:"feedLimit"`
	}{}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	for _, d := range []struct {
		raw  string
		into *time.Duration
	}{
		{raw.PageCacheTTL, &t.PageCacheTTL},
		{raw.MergedCacheTTL, &t.MergedCacheTTL},
		{raw.ArchiveCacheTTL, &t.ArchiveCacheTTL},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.into = parsed
	}

	if raw.MaxPageSize != nil {
		t.MaxPageSize = *raw.MaxPageSize
	}
	if raw.FeedLimit != nil {
		t.FeedLimit = *raw.FeedLimit
	}
	return nil
}

// TuningWatcher watches the tuning file and swaps in validated updates.
// An invalid file keeps the current values.
type TuningWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  Tuning
	mu       sync.RWMutex
	onChange []func(Tuning)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewTuningWatcher loads the initial tuning file and starts watching its
// directory; atomic saves arrive as rename/create events there.
func NewTuningWatcher(path string, defaults Tuning, logger *zap.Logger) (*TuningWatcher, error) {
	tuning, err := loadTuningFile(path, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load tuning file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch tuning directory: %w", err)
	}

	return &TuningWatcher{
		path:    path,
		watcher: watcher,
		current: tuning,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for tuning changes.
func (w *TuningWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Tuning watcher started", zap.String("path", w.path))
}

// Stop ends the watch loop and releases the watcher.
func (w *TuningWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

// Current returns the active tuning values.
func (w *TuningWatcher) Current() Tuning {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload.
func (w *TuningWatcher) OnChange(handler func(Tuning)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

func (w *TuningWatcher) watchLoop() {
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Tuning watcher error", zap.Error(err))
		}
	}
}

func (w *TuningWatcher) reload() {
	w.mu.RLock()
	fallback := w.current
	w.mu.RUnlock()

	tuning, err := loadTuningFile(w.path, fallback)
	if err != nil {
		w.logger.Error("Failed to reload tuning, keeping current values", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = tuning
	handlers := make([]func(Tuning), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.Unlock()

	if old != tuning {
		w.logger.Info("Tuning reloaded",
			zap.Duration("pageCacheTTL", tuning.PageCacheTTL),
			zap.Duration("mergedCacheTTL", tuning.MergedCacheTTL),
			zap.Duration("archiveCacheTTL", tuning.ArchiveCacheTTL),
		)
	}
	for _, handler := range handlers {
		go handler(tuning)
	}
}

// loadTuningFile parses the YAML file over the given defaults; absent keys
// keep their default values.
func loadTuningFile(path string, defaults Tuning) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	tuning := defaults
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return Tuning{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := tuning.validate(); err != nil {
		return Tuning{}, err
	}
	return tuning, nil
}

func (t Tuning) validate() error {
	if t.PageCacheTTL <= 0 || t.MergedCacheTTL <= 0 || t.ArchiveCacheTTL <= 0 {
		return fmt.Errorf("tuning TTLs must be positive")
	}
	if t.MaxPageSize < 0 || t.FeedLimit < 0 {
		return fmt.Errorf("tuning limits cannot be negative")
	}
	return nil
}
