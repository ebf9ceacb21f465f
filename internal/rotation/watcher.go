package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"photowall/internal/logging"
)

// BlacklistWatcher watches blacklisted directories and re-admits them to the
// walk when entries are created inside them.
type BlacklistWatcher struct {
	walk    *RandomWalk
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	watched map[string]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBlacklistWatcher attaches a watcher to walk. Directories blacklisted
// before the call are picked up immediately.
func NewBlacklistWatcher(walk *RandomWalk, logger *slog.Logger) (*BlacklistWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	bw := &BlacklistWatcher{
		walk:    walk,
		watcher: fsw,
		logger:  logging.NewComponentLogger(logger, "blacklist-watcher"),
		watched: make(map[string]struct{}),
	}
	for _, dir := range walk.Blacklisted() {
		bw.Blacklisted(dir)
	}
	walk.Observe(bw)
	return bw, nil
}

// Start begins processing filesystem events until ctx is cancelled or Stop is called.
func (bw *BlacklistWatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	bw.cancel = cancel
	bw.wg.Add(1)
	go bw.loop(ctx)
}

// Stop terminates the event loop and releases the watcher.
func (bw *BlacklistWatcher) Stop() {
	if bw.cancel != nil {
		bw.cancel()
	}
	bw.wg.Wait()
	bw.walk.Observe(nil)
	_ = bw.watcher.Close()
}

// Watched returns the number of directories currently watched.
func (bw *BlacklistWatcher) Watched() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.watched)
}

// Blacklisted implements BlacklistObserver.
func (bw *BlacklistWatcher) Blacklisted(dir string) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if _, ok := bw.watched[dir]; ok {
		return
	}
	if err := bw.watcher.Add(dir); err != nil {
		bw.logger.Debug("watch blacklisted directory failed", logging.Path(dir), logging.Error(err))
		return
	}
	bw.watched[dir] = struct{}{}
}

// Cleared implements BlacklistObserver.
func (bw *BlacklistWatcher) Cleared() {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	for dir := range bw.watched {
		_ = bw.watcher.Remove(dir)
	}
	bw.watched = make(map[string]struct{})
}

func (bw *BlacklistWatcher) loop(ctx context.Context) {
	defer bw.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-bw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			bw.readmit(filepath.Dir(event.Name))
		case err, ok := <-bw.watcher.Errors:
			if !ok {
				return
			}
			bw.logger.Debug("fs watcher error", logging.Error(err))
		}
	}
}

func (bw *BlacklistWatcher) readmit(dir string) {
	bw.mu.Lock()
	_, watched := bw.watched[dir]
	if watched {
		for current := dir; ; current = filepath.Dir(current) {
			if _, ok := bw.watched[current]; ok {
				delete(bw.watched, current)
				_ = bw.watcher.Remove(current)
			}
			if current == bw.walk.Base() || filepath.Dir(current) == current {
				break
			}
		}
	}
	bw.mu.Unlock()
	if !watched {
		return
	}
	bw.walk.Unblacklist(dir)
}
