package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	appErrors "resumelens/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher watches prompt template files and calls back after they change.
// Bursts of events are collapsed by a debounce timer.
type PromptWatcher struct {
	mu sync.RWMutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reloadCallback func()
	logger         *appErrors.Logger

	running bool
}

// NewPromptWatcher creates a watcher for files. A zero debounceDelay means one second.
func NewPromptWatcher(files []string, debounceDelay time.Duration, reloadCallback func(), logger *appErrors.Logger) *PromptWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}

	return &PromptWatcher{
		files:          slices.Clone(files),
		lastModTime:    make(map[string]time.Time),
		debounceDelay:  debounceDelay,
		stopChan:       make(chan struct{}),
		reloadChan:     make(chan struct{}, 1),
		reloadCallback: reloadCallback,
		logger:         logger,
	}
}

// Start begins watching the prompt files
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(pw.files) == 0 {
		return fmt.Errorf("no prompt files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	if err := pw.updateModTimes(); err != nil {
		pw.closeWatcher()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, dir := range pw.watchedDirs() {
		if err := pw.fsWatcher.Add(dir); err != nil {
			pw.logWarn("Failed to watch prompt directory", "directory", dir, "error", err.Error())
		}
	}

	pw.running = true
	go pw.watchLoop()

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher started",
			"files", pw.files,
			"debounce_delay", pw.debounceDelay)
	}
	return nil
}

// watchedDirs returns the parent directories of the prompt files. Watching
// directories rather than files survives editors that replace files by rename.
func (pw *PromptWatcher) watchedDirs() []string {
	dirs := make([]string, 0, len(pw.files))
	for _, file := range pw.files {
		dir := filepath.Dir(file)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (pw *PromptWatcher) closeWatcher() {
	if pw.fsWatcher == nil {
		return
	}
	if err := pw.fsWatcher.Close(); err != nil && pw.logger != nil {
		pw.logger.LogError(err, "Failed to close file watcher")
	}
}

// Stop stops the watcher. Stopping a stopped watcher is a no-op.
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.closeWatcher()
	pw.running = false

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher stopped")
	}
	return nil
}

// updateModTimes records the current modification time of every file
func (pw *PromptWatcher) updateModTimes() error {
	for _, file := range pw.files {
		stat, err := os.Stat(file)
		if err == nil {
			pw.lastModTime[file] = stat.ModTime()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged reports whether file was modified or removed since the last check
func (pw *PromptWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := pw.lastModTime[file]; exists {
				delete(pw.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := pw.lastModTime[file]
	if !exists || stat.ModTime().After(lastMod) {
		pw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (pw *PromptWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range pw.files {
		// every file is checked so each modification time is refreshed
		if pw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

func (pw *PromptWatcher) watchLoop() {
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
			if pw.logger != nil {
				pw.logger.LogError(err, "Prompt watcher error")
			}

		case <-pw.reloadChan:
			if pw.hasAnyFileChanged() {
				if pw.logger != nil {
					pw.logger.Info("Prompt files changed, reloading templates")
				}
				pw.reloadCallback()
			}

		case <-pw.stopChan:
			return
		}
	}
}

// shouldProcessEvent accepts write, create and rename events on a watched file
func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if !slices.Contains(pw.files, name) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload restarts the debounce timer
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

// IsRunning returns whether the watcher is currently running
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.running
}

// GetWatchedFiles returns the prompt files being watched
func (pw *PromptWatcher) GetWatchedFiles() []string {
	return slices.Clone(pw.files)
}

func (pw *PromptWatcher) logWarn(message string, args ...any) {
	if pw.logger != nil {
		pw.logger.Warn(message, args...)
	}
}
