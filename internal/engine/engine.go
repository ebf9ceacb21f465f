package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"photowall/internal/config"
	"photowall/internal/display"
	"photowall/internal/journal"
	"photowall/internal/logging"
	"photowall/internal/metrics"
	"photowall/internal/pipeline"
	"photowall/internal/rotation"
	"photowall/internal/slots"
)

var (
	// ErrUnknownSlot is returned for operations on a slot that is not managed.
	ErrUnknownSlot = errors.New("unknown slot")
	// ErrUnknownSurface is returned for operations on a surface that is not attached.
	ErrUnknownSurface = errors.New("unknown surface")
	// ErrSurfaceAttached is returned when attaching a surface name twice.
	ErrSurfaceAttached = errors.New("surface already attached")
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, unit pipeline.Unit) (pipeline.Outcome, error)
}

// Recorder receives delivery history.
type Recorder interface {
	Record(entry journal.Entry)
}

type managedSlot struct {
	demand  *slots.Demand
	slot    display.Slot
	surface string
}

// Engine reconciles slot demand with pipeline runs.
type Engine struct {
	source           rotation.Source
	runner           Runner
	logger           *slog.Logger
	metrics          metrics.Sink
	recorder         Recorder
	clock            func() time.Time
	newRunID         func() string
	sweepInterval    time.Duration
	failureThreshold int
	pool             *semaphore.Weighted

	slots sync.Map // slot ID -> *managedSlot

	surfacesMu sync.RWMutex
	surfaces   map[string]display.Surface
	order      []string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	workers sync.WaitGroup
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithClock replaces time.Now for state timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.metrics = sink
		}
	}
}

// WithRecorder sets the delivery history sink.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newRunID = next
		}
	}
}

// New constructs an Engine from configuration.
func New(cfg *config.Config, source rotation.Source, runner Runner, logger *slog.Logger, opts ...Option) *Engine {
	workers := cfg.Engine.Workers
	if workers <= 0 {
		workers = 1
	}
	e := &Engine{
		source:           source,
		runner:           runner,
		logger:           logging.NewComponentLogger(logger, "engine"),
		metrics:          metrics.Nop{},
		clock:            time.Now,
		newRunID:         uuid.NewString,
		sweepInterval:    cfg.SweepInterval(),
		failureThreshold: cfg.Engine.FailureThreshold,
		pool:             semaphore.NewWeighted(int64(workers)),
		surfaces:         make(map[string]display.Surface),
	}
	if e.sweepInterval <= 0 {
		e.sweepInterval = 100 * time.Millisecond
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins the sweep loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.loopWG.Add(1)
	e.mu.Unlock()

	go e.loop(runCtx)
	e.logger.Info("engine started",
		logging.Event("engine_start"),
		logging.Duration("sweep_interval", e.sweepInterval),
		logging.Int("failure_threshold", e.failureThreshold),
	)
	return nil
}

// Stop ends the sweep loop, cancels in-flight runs and waits for them.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.loopWG.Wait()
	e.workers.Wait()
	e.logger.Info("engine stopped", logging.Event("engine_stop"))
}

// Running reports whether the sweep loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Wait blocks until every launched run has finished.
func (e *Engine) Wait() {
	e.workers.Wait()
}

func (e *Engine) loop(ctx context.Context) {
	defer e.loopWG.Done()
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	e.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

func (e *Engine) lookup(slotID string) (*managedSlot, bool) {
	v, ok := e.slots.Load(slotID)
	if !ok {
		return nil, false
	}
	return v.(*managedSlot), true
}

// managedSorted returns managed slots ordered by ID.
func (e *Engine) managedSorted() []*managedSlot {
	var out []*managedSlot
	e.slots.Range(func(_, v any) bool {
		out = append(out, v.(*managedSlot))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].demand.ID() < out[j].demand.ID() })
	return out
}

func (e *Engine) slotLogger(ctx context.Context, slotID string) *slog.Logger {
	return logging.WithContext(logging.WithSlot(ctx, slotID), e.logger)
}

func (e *Engine) record(entry journal.Entry) {
	if e.recorder == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = e.clock()
	}
	e.recorder.Record(entry)
}
