package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"photowall/internal/config"
	"photowall/internal/display"
	"photowall/internal/faults"
	"photowall/internal/journal"
	"photowall/internal/photo"
	"photowall/internal/pipeline"
	"photowall/internal/testsupport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingSource yields p1, p2, ... and can be told to fail.
type countingSource struct {
	mu     sync.Mutex
	n      int
	fail   int
	during func()
}

func (s *countingSource) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.during != nil {
		hook := s.during
		s.during = nil
		hook()
	}
	if s.fail > 0 {
		s.fail--
		return "", faults.Wrap(faults.ErrSourceExhausted, "rotation", "walk", "no photos", nil)
	}
	s.n++
	return fmt.Sprintf("p%d", s.n), nil
}

// DuringNext runs fn once inside the next draw, standing in for work that
// overlaps the source's disk I/O.
func (s *countingSource) DuringNext(fn func()) {
	s.mu.Lock()
	s.during = fn
	s.mu.Unlock()
}

func (s *countingSource) FailNext(n int) {
	s.mu.Lock()
	s.fail = n
	s.mu.Unlock()
}

// stubRunner emulates the pipeline: by default it displays an image that
// fits the slot exactly.
type stubRunner struct {
	calls atomic.Int32
	gate  chan struct{}
	fn    func(pipeline.Unit) (pipeline.Outcome, error)
}

func (r *stubRunner) Run(ctx context.Context, unit pipeline.Unit) (pipeline.Outcome, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return pipeline.Outcome{}, faults.Wrap(faults.ErrStage, "load", "cancelled", unit.Path, ctx.Err())
		}
	}
	if r.fn != nil {
		return r.fn(unit)
	}
	return deliver(unit)
}

func deliver(unit pipeline.Unit) (pipeline.Outcome, error) {
	size := unit.Slot.Size()
	img := photo.NewImage(unit.Path, testsupport.SolidImage(size.Width, size.Height))
	unit.Slot.Display(img)
	return pipeline.Outcome{Kind: pipeline.Delivered, Fits: true, Image: img}, nil
}

func failing(pipeline.Unit) (pipeline.Outcome, error) {
	return pipeline.Outcome{}, faults.Wrap(faults.ErrLoad, "load", "decode", "p", errors.New("corrupt"))
}

type recorder struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (r *recorder) Record(e journal.Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *recorder) outcomes() []journal.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]journal.Outcome, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Outcome
	}
	return out
}

type countingSink struct {
	mu     sync.Mutex
	counts map[string]int
	active int
}

func newCountingSink() *countingSink {
	return &countingSink{counts: make(map[string]int)}
}

func (s *countingSink) StageTiming(string, time.Duration) {}

func (s *countingSink) Count(event string) {
	s.mu.Lock()
	s.counts[event]++
	s.mu.Unlock()
}

func (s *countingSink) ActiveRuns(delta int) {
	s.mu.Lock()
	s.active += delta
	s.mu.Unlock()
}

func (s *countingSink) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[event]
}

type harness struct {
	cfg      *config.Config
	clock    *fakeClock
	source   *countingSource
	runner   *stubRunner
	recorder *recorder
	sink     *countingSink
	engine   *Engine
	frame    *display.Frame
}

func newHarness(t *testing.T, rows, cols int, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithFrame("wall", rows, cols, cols*40, rows*30)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:      cfg,
		clock:    newFakeClock(),
		source:   &countingSource{},
		runner:   &stubRunner{},
		recorder: &recorder{},
		sink:     newCountingSink(),
	}
	h.engine = New(cfg, h.source, h.runner, nil,
		WithClock(h.clock.Now),
		WithRecorder(h.recorder),
		WithMetrics(h.sink),
	)
	frame, err := display.NewFrame(cfg.Frames[0], nil)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	h.frame = frame
	return h
}

func (h *harness) attach(t *testing.T) {
	t.Helper()
	if err := h.engine.Attach(h.frame); err != nil {
		t.Fatalf("Attach: %v", err)
	}
}

// settle sweeps once and waits for every launched run.
func (h *harness) settle() int {
	n := h.engine.Sweep(context.Background())
	h.engine.Wait()
	return n
}

func (h *harness) demand(t *testing.T, id string) *managedSlot {
	t.Helper()
	m, ok := h.engine.lookup(id)
	if !ok {
		t.Fatalf("slot %s not managed", id)
	}
	return m
}
