package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"photowall/internal/faults"
	"photowall/internal/logging"
	"photowall/internal/metrics"
	"photowall/internal/photo"
)

// OutcomeKind distinguishes how a run that returned no error ended.
type OutcomeKind int

const (
	// Delivered means the image reached the slot.
	Delivered OutcomeKind = iota
	// Stale means the run stopped because its output was no longer wanted.
	Stale
)

func (k OutcomeKind) String() string {
	if k == Stale {
		return "stale"
	}
	return "delivered"
}

// Stale reasons.
const (
	ReasonReassigned       = "reassigned"
	ReasonAlreadyDisplayed = "already_displayed"
)

// Outcome describes a run that completed without error.
type Outcome struct {
	Kind OutcomeKind
	// Reason and Stage are set for stale runs.
	Reason string
	Stage  string
	// Fits reports whether the delivered image fits the slot at delivery time.
	Fits  bool
	Image *photo.Image
}

// Runner executes pipeline runs. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	stages  []Stage
	metrics metrics.Sink
	logger  *slog.Logger
	timeout time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMetrics sets the telemetry sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.metrics = sink
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout bounds each run. Zero disables the bound. Cancellation is
// checked between stages; a blocking primitive is not interrupted.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner builds the standard resolve, load, orient, resize chain.
func NewRunner(processor photo.Processor, resolver photo.Resolver, opts ...Option) *Runner {
	return NewRunnerWithStages([]Stage{
		resolveStage{resolver: resolver},
		loadStage{processor: processor},
		orientStage{processor: processor},
		resizeStage{processor: processor},
	}, opts...)
}

// NewRunnerWithStages builds a Runner over an explicit stage list.
func NewRunnerWithStages(stages []Stage, opts ...Option) *Runner {
	r := &Runner{
		stages:  stages,
		metrics: metrics.Nop{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	return r
}

// Run executes every stage for unit and delivers the result. A returned error
// is always tagged with faults.ErrStage.
func (r *Runner) Run(ctx context.Context, unit Unit) (outcome Outcome, err error) {
	if unit.Slot == nil {
		return Outcome{}, faults.Wrap(faults.ErrStage, StageDeliver, "validate", "run has no slot", nil)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx = logging.WithSlot(ctx, unit.Slot.ID())
	if unit.RunID != "" {
		ctx = logging.WithRunID(ctx, unit.RunID)
	}
	logger := logging.WithContext(ctx, r.logger)

	w := &Work{Unit: unit}
	current := ""
	defer func() {
		if rec := recover(); rec != nil {
			err = faults.Wrap(faults.ErrStage, current, "panic", fmt.Sprint(rec), nil)
			outcome = Outcome{}
			logging.ErrorWithContext(logger, "stage panicked", "stage_panic",
				logging.String(logging.FieldStage, current),
				logging.Any("panic", rec),
				logging.Path(unit.Path),
			)
		}
	}()

	logger.Debug("run started", logging.Event("run_start"), logging.Path(unit.Path))
	for _, stage := range r.stages {
		current = stage.Name()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, faults.Wrap(faults.ErrStage, current, "cancelled", unit.Path, ctxErr)
		}
		started := time.Now()
		stageErr := stage.Execute(ctx, w)
		r.metrics.StageTiming(current, time.Since(started))
		if stageErr != nil {
			kind, message := faults.Details(stageErr)
			logger.Debug("stage failed",
				logging.Event("stage_failure"),
				logging.String(logging.FieldStage, current),
				logging.String("error_kind", string(kind)),
				logging.String("error_message", message),
			)
			return Outcome{}, stageErr
		}
		if reason := r.staleReason(w); reason != "" {
			logger.Debug("run stale",
				logging.Event("run_stale"),
				logging.String(logging.FieldStage, current),
				logging.String("reason", reason),
			)
			return Outcome{Kind: Stale, Reason: reason, Stage: current}, nil
		}
	}

	current = StageDeliver
	if w.Image == nil {
		return Outcome{}, faults.Wrap(faults.ErrStage, current, "deliver", "no image produced", nil)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, faults.Wrap(faults.ErrStage, current, "cancelled", unit.Path, ctxErr)
	}
	if unit.Assigned != nil && unit.Assigned() != unit.Path {
		return Outcome{Kind: Stale, Reason: ReasonReassigned, Stage: current}, nil
	}
	started := time.Now()
	unit.Slot.Display(w.Image)
	r.metrics.StageTiming(current, time.Since(started))
	fits := photo.Fits(w.Image.Size(), unit.Slot.Size())
	logger.Debug("run delivered",
		logging.Event("run_delivered"),
		logging.String("size", w.Image.Size().String()),
		logging.Bool("fits", fits),
	)
	return Outcome{Kind: Delivered, Fits: fits, Image: w.Image}, nil
}

func (r *Runner) staleReason(w *Work) string {
	if w.Assigned != nil && w.Assigned() != w.Path {
		return ReasonReassigned
	}
	shown := w.Slot.CurrentImage()
	if shown != nil && !shown.Placeholder && shown.Path == w.Path && photo.Fits(shown.Size(), w.Slot.Size()) {
		return ReasonAlreadyDisplayed
	}
	return ""
}
