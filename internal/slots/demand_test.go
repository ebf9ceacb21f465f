package slots

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestAssignMovesToNewAssignmentFromAnyState(t *testing.T) {
	clock := newClock()
	d := New("f:panel1", clock.Now)
	if d.State() != StateInit {
		t.Fatalf("new demand state = %s, want INIT", d.State())
	}

	d.Assign("a.jpg")
	if d.State() != StateNewAssignment {
		t.Fatalf("state = %s, want NEW_ASSIGNMENT", d.State())
	}

	d.Fail("a.jpg", errors.New("boom"))
	if d.State() != StateFailed {
		t.Fatalf("state = %s, want FAILED", d.State())
	}
	clock.Advance(time.Second)
	d.Assign("b.jpg")
	snap := d.Snapshot()
	if snap.State != StateNewAssignment || snap.AssignedPath != "b.jpg" {
		t.Fatalf("unexpected snapshot after reassign from FAILED: %+v", snap)
	}
	if !snap.AssignedAt.Equal(clock.Now()) {
		t.Fatalf("assignedAt not reset: %s", snap.AssignedAt)
	}
	if snap.FailureCount != 0 || snap.LastError != "" {
		t.Fatalf("failure bookkeeping not cleared: %+v", snap)
	}

	d.Delivered("b.jpg", true)
	if d.State() != StateIdle {
		t.Fatalf("state = %s, want IDLE", d.State())
	}
	if !d.TryAcquireLoader() {
		t.Fatal("expected loader acquisition")
	}
	d.Assign("c.jpg")
	if d.State() != StateNewAssignment {
		t.Fatalf("reassign mid-flight: state = %s, want NEW_ASSIGNMENT", d.State())
	}
	d.ReleaseLoader()
}

func TestDeliveredChoosesIdleOrDirty(t *testing.T) {
	clock := newClock()
	d := New("s", clock.Now)
	d.Assign("a.jpg")
	clock.Advance(time.Second)

	if !d.Delivered("a.jpg", false) {
		t.Fatal("expected delivery to apply")
	}
	if d.State() != StateDirty {
		t.Fatalf("state = %s, want DIRTY", d.State())
	}
	if !d.DeliveredAt().Equal(clock.Now()) {
		t.Fatal("deliveredAt not updated")
	}
	d.Delivered("a.jpg", true)
	if !d.Settled() {
		t.Fatalf("state = %s, want IDLE", d.State())
	}
}

func TestDeliveredAfterReassignKeepsNewAssignment(t *testing.T) {
	d := New("s", nil)
	d.Assign("old.jpg")
	d.Assign("new.jpg")
	if d.Delivered("old.jpg", true) {
		t.Fatal("expected stale delivery to be rejected")
	}
	if d.State() != StateNewAssignment {
		t.Fatalf("state = %s, want NEW_ASSIGNMENT", d.State())
	}
	if d.DeliveredAt().IsZero() {
		t.Fatal("deliveredAt should reflect the image that reached the slot")
	}
}

func TestFailCountsAndIgnoresStalePaths(t *testing.T) {
	d := New("s", nil)
	d.Assign("bad.jpg")
	for i := 1; i <= 3; i++ {
		if got := d.Fail("bad.jpg", errors.New("decode")); got != i {
			t.Fatalf("failure count = %d, want %d", got, i)
		}
	}
	if got := d.Fail("other.jpg", errors.New("x")); got != 3 {
		t.Fatalf("stale failure changed count to %d", got)
	}
	d.PlaceholderDelivered()
	snap := d.Snapshot()
	if snap.State != StateIdle || snap.FailureCount != 0 || snap.SettleReason != "placeholder" {
		t.Fatalf("unexpected snapshot after placeholder: %+v", snap)
	}
}

func TestForceSettleDoesNotRecordDelivery(t *testing.T) {
	d := New("s", nil)
	d.Assign("a.jpg")
	d.ForceSettle("reassigned")
	snap := d.Snapshot()
	if snap.State != StateIdle {
		t.Fatalf("state = %s, want IDLE", snap.State)
	}
	if !snap.DeliveredAt.IsZero() {
		t.Fatal("ForceSettle must not touch deliveredAt")
	}
	if snap.SettleReason != "reassigned" {
		t.Fatalf("settle reason = %q", snap.SettleReason)
	}
}

func TestMarkDirtyRequiresAssignment(t *testing.T) {
	d := New("s", nil)
	if d.MarkDirty() {
		t.Fatal("INIT slot must not become dirty")
	}
	d.Assign("a.jpg")
	d.Delivered("a.jpg", true)
	if !d.MarkDirty() || d.State() != StateDirty {
		t.Fatalf("expected DIRTY, got %s", d.State())
	}
}

func TestLoaderGuardAllowsOneWinner(t *testing.T) {
	d := New("s", nil)
	var winners atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if d.TryAcquireLoader() {
				winners.Add(1)
				if v := d.ActiveLoaders(); v > maxSeen.Load() {
					maxSeen.Store(v)
				}
			}
		}()
	}
	close(start)
	wg.Wait()
	if winners.Load() != 1 {
		t.Fatalf("winners = %d, want 1", winners.Load())
	}
	if maxSeen.Load() != 1 {
		t.Fatalf("active loaders observed %d", maxSeen.Load())
	}
	if d.ReleaseLoader() != 0 {
		t.Fatal("expected zero loaders after release")
	}
	if !d.TryAcquireLoader() {
		t.Fatal("expected acquisition after release")
	}
}

func TestAssignIfRespectsLoaderAndPredicate(t *testing.T) {
	clock := newClock()
	d := New("f:panel1", clock.Now)
	d.Assign("a.jpg")
	d.Delivered("a.jpg", true)

	if !d.TryAcquireLoader() {
		t.Fatal("could not claim loader")
	}
	if d.AssignIf("b.jpg", nil) {
		t.Fatal("assigned while a run was in flight")
	}
	d.ReleaseLoader()

	idle := func(s Snapshot) bool { return s.State == StateIdle && s.ActiveLoaders == 0 }
	d.MarkDirty()
	if d.AssignIf("b.jpg", idle) {
		t.Fatal("assigned a dirty slot")
	}
	if d.AssignedPath() != "a.jpg" || d.State() != StateDirty {
		t.Fatalf("refused assign changed state: %+v", d.Snapshot())
	}

	d.Delivered("a.jpg", true)
	if !d.AssignIf("b.jpg", idle) {
		t.Fatal("eligible slot was not assigned")
	}
	snap := d.Snapshot()
	if snap.AssignedPath != "b.jpg" || snap.State != StateNewAssignment || snap.ActiveLoaders != 0 {
		t.Fatalf("after AssignIf: %+v", snap)
	}
}

func TestStickyToggle(t *testing.T) {
	d := New("s", nil)
	if d.Sticky() {
		t.Fatal("new slot should not be sticky")
	}
	if !d.ToggleSticky() || !d.Sticky() {
		t.Fatal("toggle should set sticky")
	}
	d.SetSticky(false)
	if d.Sticky() {
		t.Fatal("SetSticky(false) ignored")
	}
}

func TestStateTextRoundTrip(t *testing.T) {
	for s := StateInit; s <= StateFailed; s++ {
		text, _ := s.MarshalText()
		var parsed State
		if err := parsed.UnmarshalText(text); err != nil || parsed != s {
			t.Fatalf("round trip %s -> %q -> %s (%v)", s, text, parsed, err)
		}
	}
	var bad State
	if err := bad.UnmarshalText([]byte("BOGUS")); err == nil {
		t.Fatal("expected error for unknown state")
	}
}
