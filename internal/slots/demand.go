package slots

import (
	"sync"
	"sync/atomic"
	"time"
)

// Demand is the per-slot state machine. All methods are safe for concurrent
// use by timer goroutines and pipeline workers.
type Demand struct {
	id    string
	clock func() time.Time

	loaders atomic.Int32

	mu           sync.Mutex
	state        State
	assignedPath string
	assignedAt   time.Time
	deliveredAt  time.Time
	failureCount int
	sticky       bool
	lastError    string
	settleReason string
}

// Snapshot is a point-in-time copy of a Demand.
type Snapshot struct {
	ID            string    `json:"id"`
	State         State     `json:"state"`
	AssignedPath  string    `json:"assigned_path"`
	AssignedAt    time.Time `json:"assigned_at"`
	DeliveredAt   time.Time `json:"delivered_at"`
	ActiveLoaders int       `json:"active_loaders"`
	FailureCount  int       `json:"failure_count"`
	Sticky        bool      `json:"sticky"`
	LastError     string    `json:"last_error,omitempty"`
	SettleReason  string    `json:"settle_reason,omitempty"`
}

// New returns a Demand in StateInit. A nil clock uses time.Now.
func New(id string, clock func() time.Time) *Demand {
	if clock == nil {
		clock = time.Now
	}
	return &Demand{id: id, clock: clock, state: StateInit}
}

// ID returns the slot identifier.
func (d *Demand) ID() string {
	return d.id
}

// Assign points the slot at path and moves it to StateNewAssignment from any
// state. A run in flight for the previous path notices and stands down.
func (d *Demand) Assign(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assignLocked(path)
}

// AssignIf assigns path only when no run is in flight and eligible accepts the
// current state. The loader slot is held while the check and the assignment
// happen, so a concurrent launch either precedes the check or is refused.
// A nil eligible accepts any state.
func (d *Demand) AssignIf(path string, eligible func(Snapshot) bool) bool {
	if !d.TryAcquireLoader() {
		return false
	}
	defer d.loaders.Add(-1)

	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.snapshotLocked()
	snap.ActiveLoaders = 0
	if eligible != nil && !eligible(snap) {
		return false
	}
	d.assignLocked(path)
	return true
}

func (d *Demand) assignLocked(path string) {
	d.assignedPath = path
	d.assignedAt = d.clock()
	d.state = StateNewAssignment
	d.failureCount = 0
	d.lastError = ""
	d.settleReason = ""
}

// AssignedPath returns the path the slot should display.
func (d *Demand) AssignedPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.assignedPath
}

// State returns the current lifecycle state.
func (d *Demand) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Settled reports whether the slot needs no work.
func (d *Demand) Settled() bool {
	return d.State() == StateIdle
}

// DeliveredAt returns the time of the last delivery; zero means never.
func (d *Demand) DeliveredAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deliveredAt
}

// FailureCount returns the number of failed runs since the last success or assignment.
func (d *Demand) FailureCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failureCount
}

// TryAcquireLoader claims the single loader slot. It returns false when a run
// is already in flight.
func (d *Demand) TryAcquireLoader() bool {
	return d.loaders.CompareAndSwap(0, 1)
}

// ReleaseLoader gives the loader slot back and returns the remaining count.
func (d *Demand) ReleaseLoader() int32 {
	return d.loaders.Add(-1)
}

// ActiveLoaders returns the number of runs in flight.
func (d *Demand) ActiveLoaders() int32 {
	return d.loaders.Load()
}

// Delivered records that an image for path reached the slot. The slot settles
// when fits is true and becomes dirty otherwise. If the slot was reassigned
// after the run checked staleness, the new assignment is kept and false is
// returned.
func (d *Demand) Delivered(path string, fits bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveredAt = d.clock()
	if d.assignedPath != path {
		return false
	}
	d.failureCount = 0
	d.lastError = ""
	d.settleReason = ""
	if fits {
		d.state = StateIdle
	} else {
		d.state = StateDirty
	}
	return true
}

// PlaceholderDelivered records delivery of the broken-image placeholder: the
// failure count resets and the slot settles.
func (d *Demand) PlaceholderDelivered() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveredAt = d.clock()
	d.failureCount = 0
	d.state = StateIdle
	d.settleReason = "placeholder"
}

// Fail records a failed run for path and returns the failure count. Failures
// for a path that is no longer assigned are ignored.
func (d *Demand) Fail(path string, err error) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.assignedPath != path {
		return d.failureCount
	}
	d.failureCount++
	d.state = StateFailed
	if err != nil {
		d.lastError = err.Error()
	}
	return d.failureCount
}

// ForceSettle marks the slot as needing no work without recording a delivery.
// Runs that discover their output is stale use it.
func (d *Demand) ForceSettle(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateIdle
	d.settleReason = reason
}

// MarkDirty requests a fresh run for the current assignment. Slots without an
// assignment are left alone.
func (d *Demand) MarkDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateInit || d.assignedPath == "" {
		return false
	}
	d.state = StateDirty
	return true
}

// Sticky reports whether the slot is excluded from auto-advance.
func (d *Demand) Sticky() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sticky
}

// SetSticky sets the auto-advance exclusion flag.
func (d *Demand) SetSticky(sticky bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sticky = sticky
}

// ToggleSticky flips the exclusion flag and returns the new value.
func (d *Demand) ToggleSticky() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sticky = !d.sticky
	return d.sticky
}

// Snapshot returns a consistent copy of the slot state.
func (d *Demand) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Demand) snapshotLocked() Snapshot {
	return Snapshot{
		ID:            d.id,
		State:         d.state,
		AssignedPath:  d.assignedPath,
		AssignedAt:    d.assignedAt,
		DeliveredAt:   d.deliveredAt,
		ActiveLoaders: int(d.loaders.Load()),
		FailureCount:  d.failureCount,
		Sticky:        d.sticky,
		LastError:     d.lastError,
		SettleReason:  d.settleReason,
	}
}
