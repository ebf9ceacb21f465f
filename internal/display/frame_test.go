package display

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"photowall/internal/config"
	"photowall/internal/photo"
	"photowall/internal/testsupport"
)

type recordingReporter struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingReporter) ImageSizeMismatch(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func (r *recordingReporter) reported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newTestFrame(t *testing.T, rows, cols, w, h int) *Frame {
	t.Helper()
	f, err := NewFrame(config.Frame{Name: "wall", Rows: rows, Columns: cols, Width: w, Height: h}, nil)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func ids(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.ID()
	}
	return out
}

func TestNewFrameLaysOutPanels(t *testing.T) {
	f := newTestFrame(t, 2, 2, 400, 200)
	slots := f.Slots()
	if len(slots) != 4 {
		t.Fatalf("expected 4 panels, got %d", len(slots))
	}
	want := []string{"wall:panel1", "wall:panel2", "wall:panel3", "wall:panel4"}
	for i, id := range ids(slots) {
		if id != want[i] {
			t.Fatalf("panel %d = %q, want %q", i, id, want[i])
		}
	}
	if got := slots[0].Size(); got != (photo.Dimensions{Width: 200, Height: 100}) {
		t.Fatalf("panel size = %s", got)
	}
	if !f.Visible() {
		t.Fatal("new frame should be visible")
	}
}

func TestNewFrameRejectsEmptyGrid(t *testing.T) {
	if _, err := NewFrame(config.Frame{Name: "x", Rows: 0, Columns: 1, Width: 10, Height: 10}, nil); err == nil {
		t.Fatal("expected error for zero rows")
	}
}

func TestRemoveColumnFromTwoByTwoRemovesTwoFromFront(t *testing.T) {
	f := newTestFrame(t, 2, 2, 400, 200)
	removed := f.RemoveColumn()
	if got := ids(removed); len(got) != 2 || got[0] != "wall:panel1" || got[1] != "wall:panel2" {
		t.Fatalf("removed = %v", got)
	}
	rows, cols := f.Grid()
	if rows != 2 || cols != 1 {
		t.Fatalf("grid = %dx%d, want 2x1", rows, cols)
	}
	remaining := f.Slots()
	if len(remaining) != 2 || remaining[0].Size() != (photo.Dimensions{Width: 400, Height: 100}) {
		t.Fatalf("unexpected remaining panels: %v size %s", ids(remaining), remaining[0].Size())
	}
	if f.RemoveColumn() != nil {
		t.Fatal("removing the last column should return nil")
	}
}

func TestAddRowAppendsWithFreshNames(t *testing.T) {
	f := newTestFrame(t, 1, 2, 200, 100)
	f.RemoveRow() // at one row: no-op
	added := f.AddRow()
	if got := ids(added); len(got) != 2 || got[0] != "wall:panel3" || got[1] != "wall:panel4" {
		t.Fatalf("added = %v", got)
	}
	removed := f.RemoveRow()
	if len(removed) != 2 {
		t.Fatalf("removed %d panels", len(removed))
	}
	added = f.AddColumn()
	if got := ids(added); len(got) != 1 || got[0] != "wall:panel5" {
		t.Fatalf("added column = %v", got)
	}
}

func TestAddColumnAddsOnePanelPerRow(t *testing.T) {
	f := newTestFrame(t, 2, 2, 300, 200)
	added := f.AddColumn()
	if got := ids(added); len(got) != 2 || got[0] != "wall:panel5" || got[1] != "wall:panel6" {
		t.Fatalf("added column = %v", got)
	}
	rows, cols := f.Grid()
	if rows != 2 || cols != 3 {
		t.Fatalf("grid = %dx%d, want 2x3", rows, cols)
	}
	for _, s := range f.Slots() {
		if s.Size() != (photo.Dimensions{Width: 100, Height: 100}) {
			t.Fatalf("panel %s size = %s", s.ID(), s.Size())
		}
	}
}

func TestRelayoutReportsMismatchedPanels(t *testing.T) {
	f := newTestFrame(t, 1, 2, 200, 100)
	reporter := &recordingReporter{}
	f.Observe(reporter)

	slots := f.Slots()
	slots[0].Display(photo.NewImage("a.png", testsupport.SolidImage(100, 50)))

	mismatched, err := f.Resize(400, 100)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	got := reporter.reported()
	if len(got) != 1 || got[0] != "wall:panel1" {
		t.Fatalf("reported = %v", got)
	}
	if len(mismatched) != 1 || mismatched[0] != "wall:panel1" {
		t.Fatalf("returned mismatches = %v", mismatched)
	}
	if slots[1].Size() != (photo.Dimensions{Width: 200, Height: 100}) {
		t.Fatalf("panel size after resize = %s", slots[1].Size())
	}
}

func TestResizeRejectsSizeSmallerThanGrid(t *testing.T) {
	f := newTestFrame(t, 2, 3, 300, 200)
	if _, err := f.Resize(2, 200); err == nil {
		t.Fatal("expected error for width below column count")
	}
	if got := f.Slots()[0].Size(); got != (photo.Dimensions{Width: 100, Height: 100}) {
		t.Fatalf("rejected resize changed panel size to %s", got)
	}
}

func TestShowHide(t *testing.T) {
	f := newTestFrame(t, 1, 1, 10, 10)
	f.Hide()
	if f.Visible() {
		t.Fatal("expected hidden")
	}
	f.Show()
	if !f.Visible() {
		t.Fatal("expected visible")
	}
}

func TestDisplayWritesSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	f, err := NewFrame(config.Frame{Name: "snap", Rows: 1, Columns: 1, Width: 20, Height: 10, OutputDir: dir}, nil)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	p, ok := f.Panel("snap:panel1")
	if !ok {
		t.Fatal("panel not found")
	}
	p.Display(photo.NewImage("a.png", testsupport.SolidImage(20, 10)))
	if p.Displayed() != 1 {
		t.Fatalf("displayed = %d", p.Displayed())
	}
	if _, err := os.Stat(p.SnapshotPath()); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
}
