package pipeline

import (
	"context"

	"photowall/internal/display"
	"photowall/internal/faults"
	"photowall/internal/photo"
)

// Stage names used in logs, metrics labels, and error context.
const (
	StageResolve = "resolve"
	StageLoad    = "load"
	StageOrient  = "orient"
	StageResize  = "resize"
	StageDeliver = "deliver"
)

// Unit is the immutable input of one run.
type Unit struct {
	RunID string
	Path  string
	Slot  display.Slot
	// Assigned returns the slot's current assignment. A value different from
	// Path makes the run stale.
	Assigned func() string
}

// Work carries a run's intermediate results between stages.
type Work struct {
	Unit
	Source      string
	Orientation photo.Orientation
	Image       *photo.Image
}

// Stage is one step of a run.
type Stage interface {
	Name() string
	Execute(ctx context.Context, w *Work) error
}

type resolveStage struct{ resolver photo.Resolver }

func (resolveStage) Name() string { return StageResolve }

func (s resolveStage) Execute(_ context.Context, w *Work) error {
	source, err := s.resolver.Resolve(w.Path)
	if err != nil {
		return faults.Wrap(faults.ErrResolve, StageResolve, "resolve", w.Path, err)
	}
	w.Source = source
	return nil
}

type loadStage struct{ processor photo.Processor }

func (loadStage) Name() string { return StageLoad }

func (s loadStage) Execute(_ context.Context, w *Work) error {
	pixels, err := s.processor.Decode(w.Source)
	if err != nil {
		return faults.Wrap(faults.ErrLoad, StageLoad, "decode", w.Source, err)
	}
	w.Image = photo.NewImage(w.Path, pixels)
	return nil
}

type orientStage struct{ processor photo.Processor }

func (orientStage) Name() string { return StageOrient }

func (s orientStage) Execute(_ context.Context, w *Work) error {
	o, ok, err := s.processor.ReadOrientation(w.Source)
	if err != nil {
		return faults.Wrap(faults.ErrOrientation, StageOrient, "read metadata", w.Source, err)
	}
	if !ok {
		return nil
	}
	if !o.Valid() {
		return faults.Wrap(faults.ErrOrientation, StageOrient, "validate", "unexpected orientation "+o.String(), nil)
	}
	w.Orientation = o
	if o == photo.OrientNormal {
		return nil
	}
	rotated, err := s.processor.Rotate(w.Image.Pixels, o)
	if err != nil {
		return faults.Wrap(faults.ErrOrientation, StageOrient, "rotate", o.String(), err)
	}
	w.Image = w.Image.WithPixels(rotated)
	return nil
}

type resizeStage struct{ processor photo.Processor }

func (resizeStage) Name() string { return StageResize }

func (s resizeStage) Execute(_ context.Context, w *Work) error {
	box := w.Slot.Size()
	if box.IsZero() {
		return faults.Wrap(faults.ErrResize, StageResize, "target", "slot has no area", nil)
	}
	if photo.BoundsOf(w.Image.Pixels) == photo.FitWithin(w.Image.Size(), box) {
		return nil
	}
	resized, err := s.processor.Resize(w.Image.Pixels, box)
	if err != nil {
		return faults.Wrap(faults.ErrResize, StageResize, "scale", box.String(), err)
	}
	w.Image = w.Image.WithPixels(resized)
	return nil
}
