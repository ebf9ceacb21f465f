package faults_test

import (
	"errors"
	"strings"
	"testing"

	"photowall/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.ErrLoad, "load", "decode", "unsupported format", base)
	if !errors.Is(err, faults.ErrLoad) {
		t.Fatalf("expected load marker to be retained, got %v", err)
	}
	if !errors.Is(err, faults.ErrStage) {
		t.Fatalf("expected stage marker on load failure, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"load", "decode", "unsupported format", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestSourceMarkersAreNotStageErrors(t *testing.T) {
	err := faults.Wrap(faults.ErrSourceIO, "rotation", "list", "", errors.New("permission denied"))
	if errors.Is(err, faults.ErrStage) {
		t.Fatalf("source error must not match ErrStage: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want faults.Kind
	}{
		{"nil", nil, faults.KindNone},
		{"exhausted", faults.Wrap(faults.ErrSourceExhausted, "rotation", "walk", "", nil), faults.KindExhausted},
		{"resolve", faults.Wrap(faults.ErrResolve, "resolve", "", "", nil), faults.KindResolve},
		{"orientation", faults.Wrap(faults.ErrOrientation, "orient", "", "value 9", nil), faults.KindOrientation},
		{"resize", faults.Wrap(faults.ErrResize, "resize", "", "", nil), faults.KindResize},
		{"generic stage", faults.Wrap(nil, "", "", "", nil), faults.KindStage},
		{"unknown", errors.New("other"), faults.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetailsReportsKindAndMessage(t *testing.T) {
	kind, msg := faults.Details(nil)
	if kind != faults.KindNone || msg != "" {
		t.Fatalf("Details(nil) = %q, %q", kind, msg)
	}
	err := faults.Wrap(faults.ErrResolve, "resolve", "glob", "", errors.New("bad pattern"))
	kind, msg = faults.Details(err)
	if kind != faults.KindResolve {
		t.Fatalf("kind = %q, want resolve", kind)
	}
	if !strings.Contains(msg, "bad pattern") {
		t.Fatalf("message %q missing cause", msg)
	}
}
