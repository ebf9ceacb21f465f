package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceExhausted reports that a path source cannot find any eligible candidate.
	ErrSourceExhausted = errors.New("source exhausted")
	// ErrSourceIO reports a filesystem failure while producing a candidate path.
	ErrSourceIO = errors.New("source i/o error")

	// ErrStage marks every failure raised inside a pipeline run.
	ErrStage = errors.New("stage error")
	// ErrResolve marks a failure mapping a candidate path to its source file.
	ErrResolve = errors.New("resolve failed")
	// ErrLoad marks a failure decoding image bytes.
	ErrLoad = errors.New("load failed")
	// ErrOrientation marks an unreadable or unexpected orientation value.
	ErrOrientation = errors.New("orientation failed")
	// ErrResize marks a failure scaling an image to its target box.
	ErrResize = errors.New("resize failed")
)

// Kind is a coarse classification used in logs and metrics labels.
type Kind string

const (
	KindNone        Kind = ""
	KindExhausted   Kind = "source_exhausted"
	KindSourceIO    Kind = "source_io"
	KindResolve     Kind = "resolve"
	KindLoad        Kind = "load"
	KindOrientation Kind = "orientation"
	KindResize      Kind = "resize"
	KindStage       Kind = "stage"
	KindUnknown     Kind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. Stage markers are additionally
// tagged with ErrStage so the pipeline can be matched as a whole.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStage
	}
	if isStageMarker(marker) {
		marker = &stageError{marker: marker}
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSourceExhausted):
		return KindExhausted
	case errors.Is(err, ErrSourceIO):
		return KindSourceIO
	case errors.Is(err, ErrResolve):
		return KindResolve
	case errors.Is(err, ErrLoad):
		return KindLoad
	case errors.Is(err, ErrOrientation):
		return KindOrientation
	case errors.Is(err, ErrResize):
		return KindResize
	case errors.Is(err, ErrStage):
		return KindStage
	default:
		return KindUnknown
	}
}

// Details returns the classification of err along with its message, suitable for
// status output and journal rows.
func Details(err error) (Kind, string) {
	if err == nil {
		return KindNone, ""
	}
	return Classify(err), strings.TrimSpace(err.Error())
}

type stageError struct {
	marker error
}

func (e *stageError) Error() string { return e.marker.Error() }

func (e *stageError) Unwrap() []error { return []error{e.marker, ErrStage} }

func isStageMarker(err error) bool {
	switch err {
	case ErrResolve, ErrLoad, ErrOrientation, ErrResize:
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
