package engine

import (
	"context"
	"log/slog"
	"time"

	"photowall/internal/faults"
	"photowall/internal/journal"
	"photowall/internal/logging"
	"photowall/internal/metrics"
	"photowall/internal/photo"
	"photowall/internal/pipeline"
	"photowall/internal/slots"
)

// Sweep makes one reconciliation pass and returns the number of runs launched.
// It never waits for a run.
func (e *Engine) Sweep(ctx context.Context) int {
	launched := 0
	e.slots.Range(func(_, v any) bool {
		if ctx.Err() != nil {
			return false
		}
		m := v.(*managedSlot)
		switch m.demand.State() {
		case slots.StateIdle:
			return true
		case slots.StateInit:
			if err := e.assignNext(m); err != nil {
				e.slotLogger(ctx, m.demand.ID()).Debug("slot seeding retry failed", logging.Error(err))
				return true
			}
		}
		if e.launch(ctx, m) {
			launched++
		}
		return true
	})
	return launched
}

func (e *Engine) launch(ctx context.Context, m *managedSlot) bool {
	if !m.demand.TryAcquireLoader() {
		return false
	}
	if !e.pool.TryAcquire(1) {
		m.demand.ReleaseLoader()
		e.metrics.Count(metrics.EventPoolFull)
		return false
	}
	path := m.demand.AssignedPath()
	placeholder := e.failureThreshold > 0 && m.demand.FailureCount() >= e.failureThreshold

	e.workers.Add(1)
	e.metrics.ActiveRuns(1)
	go e.work(ctx, m, path, placeholder)
	return true
}

func (e *Engine) work(ctx context.Context, m *managedSlot, path string, placeholder bool) {
	runID := e.newRunID()
	ctx = logging.WithRunID(logging.WithSlot(ctx, m.demand.ID()), runID)
	logger := logging.WithContext(ctx, e.logger)

	defer func() {
		e.metrics.ActiveRuns(-1)
		if left := m.demand.ReleaseLoader(); left < 0 {
			e.metrics.Count(metrics.EventGuardBreach)
			logging.ErrorWithContext(logger, "slot loader count went negative", "loader_guard_breach",
				logging.Int64("active_loaders", int64(left)),
			)
		}
		e.pool.Release(1)
		e.workers.Done()
	}()

	if placeholder {
		e.deliverPlaceholder(logger, m, path, runID)
		return
	}

	started := time.Now()
	outcome, err := e.runner.Run(ctx, pipeline.Unit{
		RunID:    runID,
		Path:     path,
		Slot:     m.slot,
		Assigned: m.demand.AssignedPath,
	})
	elapsed := time.Since(started)

	if err != nil {
		e.handleFailure(ctx, logger, m, path, runID, elapsed, err)
		return
	}

	switch outcome.Kind {
	case pipeline.Stale:
		m.demand.ForceSettle(outcome.Reason)
		e.metrics.Count(metrics.EventStale)
	case pipeline.Delivered:
		applied := m.demand.Delivered(path, outcome.Fits)
		result := journal.OutcomeDelivered
		event := metrics.EventDelivered
		if !outcome.Fits {
			result = journal.OutcomeMismatch
			event = metrics.EventMismatch
		}
		e.metrics.Count(event)
		e.record(journal.Entry{RunID: runID, SlotID: m.demand.ID(), Path: path, Outcome: result, Duration: elapsed})
		logger.Debug("slot delivered",
			logging.Event("slot_delivered"),
			logging.Path(path),
			logging.Bool("fits", outcome.Fits),
			logging.Bool("current", applied),
			logging.Duration("elapsed", elapsed),
		)
	}
}

func (e *Engine) handleFailure(ctx context.Context, logger *slog.Logger, m *managedSlot, path, runID string, elapsed time.Duration, err error) {
	if ctx.Err() != nil {
		logger.Debug("run cancelled", logging.Path(path), logging.Error(err))
		return
	}
	failures := m.demand.Fail(path, err)
	kind, message := faults.Details(err)
	e.metrics.Count(metrics.EventFailed)
	e.record(journal.Entry{
		RunID:     runID,
		SlotID:    m.demand.ID(),
		Path:      path,
		Outcome:   journal.OutcomeFailed,
		ErrorKind: string(kind),
		Message:   message,
		Duration:  elapsed,
	})
	logging.WarnWithContext(logger, "slot run failed", "run_failed",
		logging.Path(path),
		logging.String("error_kind", string(kind)),
		logging.Int("failures", failures),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, failureHint(kind)),
		logging.String(logging.FieldImpact, "slot retried; placeholder shown after repeated failures"),
	)
}

func (e *Engine) deliverPlaceholder(logger *slog.Logger, m *managedSlot, path, runID string) {
	if m.demand.AssignedPath() != path {
		return
	}
	m.slot.Display(photo.Placeholder(m.slot.Size(), path))
	m.demand.PlaceholderDelivered()
	e.metrics.Count(metrics.EventPlaceholder)
	e.record(journal.Entry{RunID: runID, SlotID: m.demand.ID(), Path: path, Outcome: journal.OutcomePlaceholder})
	logger.Warn("placeholder shown",
		logging.Event("placeholder_shown"),
		logging.Path(path),
		logging.Int("failure_threshold", e.failureThreshold),
	)
}

func failureHint(kind faults.Kind) string {
	switch kind {
	case faults.KindResolve:
		return "the photo was moved or deleted; it is replaced on the next advance"
	case faults.KindLoad:
		return "the file is not a decodable image"
	case faults.KindOrientation:
		return "the file carries unreadable EXIF orientation"
	case faults.KindResize:
		return "check the slot dimensions"
	default:
		return "check logs for details"
	}
}
