package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"photowall/internal/config"
	"photowall/internal/display"
	"photowall/internal/engine"
	"photowall/internal/journal"
	"photowall/internal/logging"
	"photowall/internal/metrics"
	"photowall/internal/photo"
	"photowall/internal/pipeline"
	"photowall/internal/rotation"
)

// Grid operations accepted by Daemon.Grid.
const (
	GridAddRow       = "add-row"
	GridRemoveRow    = "remove-row"
	GridAddColumn    = "add-column"
	GridRemoveColumn = "remove-column"
)

// Daemon owns every long-lived component and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string

	source   rotation.Source
	watcher  *rotation.BlacklistWatcher
	metrics  *metrics.Prometheus
	journal  *journal.Journal
	engine   *engine.Engine
	advancer *engine.Advancer
	frames   []*display.Frame
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	attached  bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	PID         int
	SessionID   string
	StartedAt   time.Time
	Paused      bool
	Engine      engine.Status
	Blacklisted []string
	LockPath    string
	JournalPath string
	MetricsBind string
}

// New builds the component graph described by cfg. Nothing runs until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		sessionID: uuid.NewString(),
		metrics:   metrics.NewPrometheus(),
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
	}

	source, err := rotation.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	d.source = source
	if walk, ok := source.(*rotation.RandomWalk); ok && cfg.Rotation.WatchBlacklist {
		watcher, err := rotation.NewBlacklistWatcher(walk, logger)
		if err != nil {
			logging.WarnWithContext(d.logger, "blacklist watcher unavailable", "blacklist_watch_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "directories that gain photos are only revisited after a blacklist reset"),
			)
		} else {
			d.watcher = watcher
		}
	}

	var recorder engine.Recorder
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.JournalPath(), cfg.Journal.KeepEntries, logger)
		if err != nil {
			d.closeWatcher()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		d.journal = j
		recorder = j
	}

	runner := pipeline.NewRunner(
		photo.NewImaging(),
		photo.RewriteResolver{Base: cfg.Paths.PhotoDir, Suffix: cfg.Rotation.RewriteSuffix},
		pipeline.WithMetrics(d.metrics),
		pipeline.WithLogger(logger),
		pipeline.WithTimeout(cfg.RunTimeout()),
	)
	d.engine = engine.New(cfg, source, runner, logger,
		engine.WithMetrics(d.metrics),
		engine.WithRecorder(recorder),
	)
	d.advancer = engine.NewAdvancer(cfg, d.engine, logger)

	for _, frameCfg := range cfg.Frames {
		frame, err := display.NewFrame(frameCfg, logger)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.frames = append(d.frames, frame)
	}

	d.api = newAPIServer(cfg.Metrics.Bind, d, logger)
	return d, nil
}

// Start acquires the daemon lock, attaches the frames and starts every loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photowall daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	fail := func(err error) error {
		cancel()
		d.stopComponents()
		_ = d.lock.Unlock()
		return err
	}

	if !d.attached {
		for _, frame := range d.frames {
			if err := d.engine.Attach(frame); err != nil {
				return fail(fmt.Errorf("attach frame %s: %w", frame.Name(), err))
			}
		}
		d.attached = true
	}
	if d.watcher != nil {
		d.watcher.Start(runCtx)
	}
	if err := d.engine.Start(runCtx); err != nil {
		return fail(fmt.Errorf("start engine: %w", err))
	}
	if err := d.advancer.Start(runCtx); err != nil {
		return fail(fmt.Errorf("start advancer: %w", err))
	}
	if err := d.api.start(runCtx); err != nil {
		return fail(err)
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("photowall daemon started",
		logging.Event("daemon_start"),
		logging.String("session_id", d.sessionID),
		logging.String("lock", d.lockPath),
		logging.Int("frames", len(d.frames)),
	)
	return nil
}

// Stop halts every loop and releases the daemon lock. Frames stay attached so
// a later Start resumes with the same slots.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopComponents()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("photowall daemon stopped", logging.Event("daemon_stop"))
}

func (d *Daemon) stopComponents() {
	d.api.stop()
	d.advancer.Stop()
	d.engine.Stop()
}

// Close stops the daemon and releases the journal and watcher.
func (d *Daemon) Close() error {
	d.Stop()
	d.closeWatcher()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

func (d *Daemon) closeWatcher() {
	if d.watcher != nil {
		d.watcher.Stop()
	}
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		SessionID:   d.sessionID,
		StartedAt:   startedAt,
		Paused:      d.advancer.Paused(),
		Engine:      d.engine.Status(),
		LockPath:    d.lockPath,
		MetricsBind: d.api.address(),
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	if walk, ok := d.source.(*rotation.RandomWalk); ok {
		status.Blacklisted = walk.Blacklisted()
	}
	return status
}

// Pause suspends auto-advance and hides the frames.
func (d *Daemon) Pause() bool {
	return d.advancer.Pause()
}

// Resume restarts auto-advance and shows the frames.
func (d *Daemon) Resume() bool {
	return d.advancer.Resume()
}

// Next reassigns every non-sticky idle slot at once.
func (d *Daemon) Next() (int, error) {
	return d.engine.AdvanceAll()
}

// ToggleSticky flips a slot's auto-advance exclusion.
func (d *Daemon) ToggleSticky(slotID string) (bool, error) {
	return d.engine.ToggleSticky(slotID)
}

// SetSticky sets a slot's auto-advance exclusion.
func (d *Daemon) SetSticky(slotID string, sticky bool) error {
	return d.engine.SetSticky(slotID, sticky)
}

// Grid applies a grid operation to frame and returns the affected slot IDs.
func (d *Daemon) Grid(frame, op string) ([]string, error) {
	var apply func(string) ([]display.Slot, error)
	switch op {
	case GridAddRow:
		apply = d.engine.AddRow
	case GridRemoveRow:
		apply = d.engine.RemoveRow
	case GridAddColumn:
		apply = d.engine.AddColumn
	case GridRemoveColumn:
		apply = d.engine.RemoveColumn
	default:
		return nil, fmt.Errorf("unknown grid operation %q", op)
	}
	affected, err := apply(frame)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(affected))
	for _, slot := range affected {
		ids = append(ids, slot.ID())
	}
	return ids, nil
}

// ResizeFrame changes a frame's pixel size and returns the slots whose image
// must be reloaded.
func (d *Daemon) ResizeFrame(name string, width, height int) ([]string, error) {
	for _, frame := range d.frames {
		if frame.Name() == name {
			return frame.Resize(width, height)
		}
	}
	return nil, fmt.Errorf("%w: %s", engine.ErrUnknownSurface, name)
}

// History returns recent journal entries, newest first.
func (d *Daemon) History(ctx context.Context, slotID string, limit int) ([]journal.Entry, error) {
	if d.journal == nil {
		return nil, errors.New("journal disabled")
	}
	return d.journal.Recent(ctx, slotID, limit)
}

// Frames returns the headless frames in configuration order.
func (d *Daemon) Frames() []*display.Frame {
	return d.frames
}
