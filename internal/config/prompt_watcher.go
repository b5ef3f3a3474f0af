package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"resumerank/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher reloads a PromptStore when its prompts file changes on disk
type PromptWatcher struct {
	mu sync.Mutex

	store *PromptStore
	file  string

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	doneChan   chan struct{}

	// onReload is called after every reload attempt, mainly for tests
	onReload func(error)
	logger   *errors.Logger

	running bool
}

// NewPromptWatcher creates a watcher for the file the store was loaded from
func NewPromptWatcher(store *PromptStore, debounceDelay time.Duration, logger *errors.Logger) (*PromptWatcher, error) {
	file := store.Path()
	if file == "" {
		return nil, fmt.Errorf("prompt store was not loaded from a file")
	}
	if debounceDelay == 0 {
		debounceDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	return &PromptWatcher{
		store:         store,
		file:          file,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		doneChan:      make(chan struct{}),
		logger:        logger,
	}, nil
}

// OnReload registers a callback run after each reload attempt
func (pw *PromptWatcher) OnReload(fn func(error)) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.onReload = fn
}

// Start begins watching the prompts file
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so atomic replace-by-rename is seen
	dir := filepath.Dir(pw.file)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	pw.fsWatcher = watcher
	pw.running = true
	go pw.watchLoop()

	pw.logger.Info("Prompt file watcher started", "file", pw.file, "debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for its loop to exit
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.running = false
	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	err := pw.fsWatcher.Close()
	pw.mu.Unlock()

	<-pw.doneChan
	if err != nil {
		pw.logger.LogError(err, "Failed to close prompt file watcher")
		return err
	}
	pw.logger.Info("Prompt file watcher stopped")
	return nil
}

func (pw *PromptWatcher) watchLoop() {
	defer close(pw.doneChan)
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "Prompt file watcher error")

		case <-pw.reloadChan:
			pw.reload()

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) reload() {
	err := pw.store.Reload()
	if err != nil {
		// The previous prompts stay active
		pw.logger.LogError(err, "Failed to reload prompts, keeping previous version", "file", pw.file)
	} else {
		pw.logger.Info("Prompts reloaded", "file", pw.file)
	}

	pw.mu.Lock()
	callback := pw.onReload
	pw.mu.Unlock()
	if callback != nil {
		callback(err)
	}
}

func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != pw.file {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload schedules a debounced reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
