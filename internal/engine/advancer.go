package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"photowall/internal/config"
	"photowall/internal/logging"
	"photowall/internal/metrics"
	"photowall/internal/slots"
)

// Advancer periodically reassigns the slot that has shown its image longest.
type Advancer struct {
	engine   *Engine
	interval time.Duration
	grace    time.Duration
	clock    func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	parent   context.Context
	started  bool
	paused   bool
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewAdvancer builds an Advancer over engine. It shares the engine's clock.
func NewAdvancer(cfg *config.Config, engine *Engine, logger *slog.Logger) *Advancer {
	interval := cfg.AdvanceInterval()
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Advancer{
		engine:   engine,
		interval: interval,
		grace:    cfg.GracePeriod(),
		clock:    engine.clock,
		logger:   logging.NewComponentLogger(logger, "advancer"),
		paused:   cfg.Advance.StartPaused,
	}
}

// Start begins ticking unless the advancer is paused.
func (a *Advancer) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return errors.New("advancer already running")
	}
	a.started = true
	a.parent = ctx
	paused := a.paused
	if !paused {
		a.startLoopLocked()
	}
	a.mu.Unlock()

	if paused {
		a.setVisible(false)
	}
	a.logger.Info("advancer started",
		logging.Event("advancer_start"),
		logging.Duration("interval", a.interval),
		logging.Duration("grace_period", a.grace),
		logging.Bool("paused", paused),
	)
	return nil
}

// Stop ends ticking and waits for the loop to exit.
func (a *Advancer) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	done := a.stopLoopLocked()
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Pause stops ticking and hides every surface. It returns false when already paused.
func (a *Advancer) Pause() bool {
	a.mu.Lock()
	if a.paused {
		a.mu.Unlock()
		return false
	}
	a.paused = true
	done := a.stopLoopLocked()
	a.mu.Unlock()
	if done != nil {
		<-done
	}
	a.setVisible(false)
	a.logger.Info("advancer paused", logging.Event("advancer_pause"))
	return true
}

// Resume shows every surface and restarts ticking. It returns false when not paused.
func (a *Advancer) Resume() bool {
	a.mu.Lock()
	if !a.paused {
		a.mu.Unlock()
		return false
	}
	a.paused = false
	if a.started {
		a.startLoopLocked()
	}
	a.mu.Unlock()
	a.setVisible(true)
	a.logger.Info("advancer resumed", logging.Event("advancer_resume"))
	return true
}

// Paused reports whether ticking is suspended.
func (a *Advancer) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Tick considers one reassignment at now and returns the reassigned slot ID,
// or "" when nothing changed. Paused advancers do nothing.
func (a *Advancer) Tick(now time.Time) (string, error) {
	if a.Paused() {
		return "", nil
	}
	candidate := a.oldest()
	if candidate == nil {
		return "", nil
	}
	cutoff := now.Add(-a.grace)
	eligible := func(s slots.Snapshot) bool {
		return s.ActiveLoaders == 0 && s.State == slots.StateIdle && !s.Sticky && s.DeliveredAt.Before(cutoff)
	}
	snap := candidate.demand.Snapshot()
	if !eligible(snap) {
		return "", nil
	}
	ok, err := a.engine.assignNextIf(candidate, eligible)
	if err != nil {
		logging.WarnWithContext(a.logger, "advance skipped", "advance_source_error",
			logging.SlotID(snap.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the photo directory"),
			logging.String(logging.FieldImpact, "slot keeps its current image"),
		)
		return "", err
	}
	if !ok {
		a.logger.Debug("advance lost to a concurrent run", logging.SlotID(snap.ID))
		return "", nil
	}
	a.engine.metrics.Count(metrics.EventAdvanced)
	a.logger.Debug("slot advanced",
		logging.Event("slot_advanced"),
		logging.SlotID(snap.ID),
		logging.Duration("shown_for", now.Sub(snap.DeliveredAt)),
	)
	return snap.ID, nil
}

// oldest returns the non-sticky slot with the earliest delivery time. Ties go
// to the lowest slot ID.
func (a *Advancer) oldest() *managedSlot {
	var (
		best     *managedSlot
		bestTime time.Time
	)
	for _, m := range a.engine.managedSorted() {
		if m.demand.Sticky() {
			continue
		}
		delivered := m.demand.DeliveredAt()
		if best == nil || delivered.Before(bestTime) {
			best = m
			bestTime = delivered
		}
	}
	return best
}

func (a *Advancer) startLoopLocked() {
	ctx, cancel := context.WithCancel(a.parent)
	done := make(chan struct{})
	a.cancel = cancel
	a.loopDone = done
	go a.loop(ctx, done)
}

func (a *Advancer) stopLoopLocked() chan struct{} {
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	done := a.loopDone
	a.cancel = nil
	a.loopDone = nil
	return done
}

func (a *Advancer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = a.Tick(a.clock())
		}
	}
}

func (a *Advancer) setVisible(visible bool) {
	for _, surface := range a.engine.Surfaces() {
		if visible {
			surface.Show()
		} else {
			surface.Hide()
		}
	}
}
