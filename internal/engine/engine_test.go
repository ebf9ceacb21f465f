package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"photowall/internal/faults"
	"photowall/internal/journal"
	"photowall/internal/metrics"
	"photowall/internal/pipeline"
	"photowall/internal/slots"
	"photowall/internal/testsupport"
)

func TestAttachSeedsAndSweepDelivers(t *testing.T) {
	h := newHarness(t, 1, 2)
	h.attach(t)

	status := h.engine.Status()
	if len(status.Slots) != 2 {
		t.Fatalf("expected 2 managed slots, got %d", len(status.Slots))
	}
	for _, snap := range status.Slots {
		if snap.State != slots.StateNewAssignment || snap.AssignedPath == "" {
			t.Fatalf("slot not seeded: %+v", snap)
		}
	}

	if launched := h.settle(); launched != 2 {
		t.Fatalf("launched %d runs, want 2", launched)
	}
	for _, snap := range h.engine.Status().Slots {
		if snap.State != slots.StateIdle || !snap.DeliveredAt.Equal(h.clock.Now()) {
			t.Fatalf("slot not delivered: %+v", snap)
		}
	}
	if launched := h.settle(); launched != 0 {
		t.Fatalf("settled slots relaunched %d runs", launched)
	}
	if got := h.recorder.outcomes(); len(got) != 2 || got[0] != journal.OutcomeDelivered {
		t.Fatalf("recorded outcomes %v", got)
	}
	if h.sink.count(metrics.EventDelivered) != 2 {
		t.Fatalf("delivered count = %d", h.sink.count(metrics.EventDelivered))
	}
	if err := h.engine.Attach(h.frame); !errors.Is(err, ErrSurfaceAttached) {
		t.Fatalf("expected ErrSurfaceAttached, got %v", err)
	}
}

func TestSweepLaunchesAtMostOneRunPerSlot(t *testing.T) {
	h := newHarness(t, 2, 2)
	h.runner.gate = make(chan struct{})
	h.attach(t)

	ctx := context.Background()
	first := h.engine.Sweep(ctx)
	second := h.engine.Sweep(ctx)
	if first != 2 || second != 0 {
		t.Fatalf("launched %d then %d with 2 workers, want 2 then 0", first, second)
	}
	if h.sink.count(metrics.EventPoolFull) == 0 {
		t.Fatal("expected pool saturation to be counted")
	}
	for _, snap := range h.engine.Status().Slots {
		if snap.ActiveLoaders > 1 {
			t.Fatalf("slot %s has %d loaders", snap.ID, snap.ActiveLoaders)
		}
	}
	close(h.runner.gate)
	h.engine.Wait()
	h.settle()
	if calls := h.runner.calls.Load(); calls != 4 {
		t.Fatalf("runner calls = %d, want 4", calls)
	}
	for _, snap := range h.engine.Status().Slots {
		if snap.ActiveLoaders != 0 || snap.State != slots.StateIdle {
			t.Fatalf("unexpected slot after drain: %+v", snap)
		}
	}
}

func TestPlaceholderAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t, 1, 1)
	h.runner.fn = failing
	h.attach(t)

	for i := 1; i <= 3; i++ {
		h.settle()
		snap, _ := h.engine.Slot("wall:panel1")
		if snap.State != slots.StateFailed || snap.FailureCount != i {
			t.Fatalf("after failure %d: %+v", i, snap)
		}
	}
	if calls := h.runner.calls.Load(); calls != 3 {
		t.Fatalf("runner calls = %d, want 3", calls)
	}

	h.settle()
	if calls := h.runner.calls.Load(); calls != 3 {
		t.Fatalf("placeholder attempt called the pipeline (calls = %d)", calls)
	}
	snap, _ := h.engine.Slot("wall:panel1")
	if snap.State != slots.StateIdle || snap.FailureCount != 0 {
		t.Fatalf("unexpected state after placeholder: %+v", snap)
	}
	panel, _ := h.frame.Panel("wall:panel1")
	shown := panel.CurrentImage()
	if shown == nil || !shown.Placeholder || shown.Size() != panel.Size() {
		t.Fatalf("expected placeholder sized to the panel, got %+v", shown)
	}
	outcomes := h.recorder.outcomes()
	if outcomes[len(outcomes)-1] != journal.OutcomePlaceholder {
		t.Fatalf("last recorded outcome %v", outcomes)
	}
}

func TestStaleRunSettlesWithoutDelivery(t *testing.T) {
	h := newHarness(t, 1, 1)
	h.runner.fn = func(pipeline.Unit) (pipeline.Outcome, error) {
		return pipeline.Outcome{Kind: pipeline.Stale, Reason: pipeline.ReasonReassigned}, nil
	}
	h.attach(t)
	h.settle()

	snap, _ := h.engine.Slot("wall:panel1")
	if snap.State != slots.StateIdle || !snap.DeliveredAt.IsZero() || snap.SettleReason != pipeline.ReasonReassigned {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	panel, _ := h.frame.Panel("wall:panel1")
	if panel.Displayed() != 0 {
		t.Fatal("stale run must not display")
	}
}

func TestSourceErrorWhileSeedingLeavesSlotInit(t *testing.T) {
	h := newHarness(t, 1, 1)
	h.source.FailNext(1)
	h.attach(t)

	snap, ok := h.engine.Slot("wall:panel1")
	if !ok || snap.State != slots.StateInit || snap.AssignedPath != "" {
		t.Fatalf("expected managed INIT slot, got %+v (managed=%v)", snap, ok)
	}
	if h.sink.count(metrics.EventSourceError) != 1 {
		t.Fatal("expected source error to be counted")
	}

	h.settle()
	snap, _ = h.engine.Slot("wall:panel1")
	if snap.State != slots.StateIdle || snap.AssignedPath != "p1" {
		t.Fatalf("slot not recovered: %+v", snap)
	}
}

func TestRemoveColumnForgetsSlotsWithInFlightRuns(t *testing.T) {
	h := newHarness(t, 2, 2, testsupport.WithSweep(100))
	h.cfg.Engine.Workers = 4
	h.engine = New(h.cfg, h.source, h.runner, nil, WithClock(h.clock.Now))
	h.runner.gate = make(chan struct{})
	h.attach(t)

	if launched := h.engine.Sweep(context.Background()); launched != 4 {
		t.Fatalf("launched %d, want 4", launched)
	}
	removed, err := h.engine.RemoveColumn("wall")
	if err != nil {
		t.Fatalf("RemoveColumn: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed %d slots, want 2", len(removed))
	}
	status := h.engine.Status()
	if len(status.Slots) != 2 {
		t.Fatalf("managed slots = %d, want 2", len(status.Slots))
	}
	for _, s := range removed {
		if _, ok := h.engine.Slot(s.ID()); ok {
			t.Fatalf("removed slot %s still managed", s.ID())
		}
	}

	close(h.runner.gate)
	h.engine.Wait()
	for _, slot := range h.frame.Slots() {
		for _, gone := range removed {
			if slot.ID() == gone.ID() {
				t.Fatalf("removed panel %s still in frame", gone.ID())
			}
		}
	}
	if len(h.engine.Status().Slots) != 2 {
		t.Fatal("in-flight completion resurrected removed slots")
	}

	added, err := h.engine.AddRow("wall")
	if err != nil || len(added) != 1 {
		t.Fatalf("AddRow = %d slots, err %v", len(added), err)
	}
	if _, err := h.engine.AddRow("missing"); !errors.Is(err, ErrUnknownSurface) {
		t.Fatalf("expected ErrUnknownSurface, got %v", err)
	}
}

func TestImageSizeMismatchMarksSlotDirty(t *testing.T) {
	h := newHarness(t, 1, 2)
	h.attach(t)
	h.settle()

	if _, err := h.frame.Resize(200, 60); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	for _, snap := range h.engine.Status().Slots {
		if snap.State != slots.StateDirty {
			t.Fatalf("slot %s state = %s after resize, want DIRTY", snap.ID, snap.State)
		}
	}
	if launched := h.settle(); launched != 2 {
		t.Fatalf("relaunched %d, want 2", launched)
	}
	h.engine.ImageSizeMismatch("not-a-slot")
}

func TestStickyOperations(t *testing.T) {
	h := newHarness(t, 1, 1)
	h.attach(t)

	sticky, err := h.engine.ToggleSticky("wall:panel1")
	if err != nil || !sticky {
		t.Fatalf("ToggleSticky = %v, %v", sticky, err)
	}
	if err := h.engine.SetSticky("wall:panel1", false); err != nil {
		t.Fatalf("SetSticky: %v", err)
	}
	if _, err := h.engine.ToggleSticky("nope"); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestAdvanceAllSkipsStickyAndBusySlots(t *testing.T) {
	h := newHarness(t, 1, 3)
	h.attach(t)
	h.settle()

	if err := h.engine.SetSticky("wall:panel1", true); err != nil {
		t.Fatal(err)
	}
	busy := h.demand(t, "wall:panel2")
	if !busy.demand.TryAcquireLoader() {
		t.Fatal("could not claim loader")
	}
	defer busy.demand.ReleaseLoader()

	advanced, err := h.engine.AdvanceAll()
	if err != nil || advanced != 1 {
		t.Fatalf("AdvanceAll = %d, %v; want 1", advanced, err)
	}
	snap, _ := h.engine.Slot("wall:panel3")
	if snap.State != slots.StateNewAssignment || snap.AssignedPath != "p4" {
		t.Fatalf("panel3 not reassigned: %+v", snap)
	}

	h.source.FailNext(1)
	if _, err := h.engine.AdvanceAll(); !errors.Is(err, faults.ErrSourceExhausted) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestAdvanceAllSkipsSlotClaimedDuringDraw(t *testing.T) {
	h := newHarness(t, 1, 1)
	h.attach(t)
	h.settle()

	m := h.demand(t, "wall:panel1")
	h.source.DuringNext(func() {
		if !m.demand.TryAcquireLoader() {
			t.Error("could not claim loader")
		}
	})
	advanced, err := h.engine.AdvanceAll()
	if err != nil || advanced != 0 {
		t.Fatalf("AdvanceAll = %d, %v; want 0", advanced, err)
	}
	if snap, _ := h.engine.Slot("wall:panel1"); snap.AssignedPath != "p1" || snap.State != slots.StateIdle {
		t.Fatalf("busy slot reassigned: %+v", snap)
	}
	m.demand.ReleaseLoader()
}

func TestDetachForgetsSurface(t *testing.T) {
	h := newHarness(t, 1, 2)
	h.attach(t)
	if err := h.engine.Detach("wall"); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if len(h.engine.Status().Slots) != 0 || len(h.engine.Surfaces()) != 0 {
		t.Fatal("detach left state behind")
	}
	if err := h.engine.Detach("wall"); !errors.Is(err, ErrUnknownSurface) {
		t.Fatalf("expected ErrUnknownSurface, got %v", err)
	}
}

func TestStartStopRunsSweepLoop(t *testing.T) {
	h := newHarness(t, 1, 2, testsupport.WithSweep(5))
	h.engine = New(h.cfg, h.source, h.runner, nil, WithClock(h.clock.Now))
	h.attach(t)

	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.engine.Start(context.Background()); err == nil {
		t.Fatal("expected error on double start")
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		idle := 0
		for _, snap := range h.engine.Status().Slots {
			if snap.State == slots.StateIdle {
				idle++
			}
		}
		if idle == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("slots never settled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.engine.Stop()
	if h.engine.Running() {
		t.Fatal("engine still running after Stop")
	}
	h.engine.Stop()
}
