package display

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"photowall/internal/config"
	"photowall/internal/logging"
	"photowall/internal/photo"
)

// Frame is a headless grid surface.
type Frame struct {
	name      string
	outputDir string
	logger    *slog.Logger

	mu       sync.Mutex
	rows     int
	columns  int
	width    int
	height   int
	visible  bool
	nextID   int
	panels   []*Panel
	reporter MismatchReporter
}

// NewFrame builds a visible frame from its configuration. The snapshot
// directory is created when configured.
func NewFrame(cfg config.Frame, logger *slog.Logger) (*Frame, error) {
	if cfg.Rows <= 0 || cfg.Columns <= 0 {
		return nil, fmt.Errorf("frame %q: grid must have at least one row and column", cfg.Name)
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("frame %q: create output dir: %w", cfg.Name, err)
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &Frame{
		name:      cfg.Name,
		outputDir: cfg.OutputDir,
		logger:    logger.With(logging.String(logging.FieldComponent, "frame"), logging.Surface(cfg.Name)),
		rows:      cfg.Rows,
		columns:   cfg.Columns,
		width:     cfg.Width,
		height:    cfg.Height,
		visible:   true,
	}
	size := f.panelSizeLocked()
	for i := 0; i < cfg.Rows*cfg.Columns; i++ {
		f.panels = append(f.panels, f.newPanelLocked(size))
	}
	return f, nil
}

// Name returns the frame name.
func (f *Frame) Name() string {
	return f.name
}

// Grid returns the current row and column counts.
func (f *Frame) Grid() (rows, columns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, f.columns
}

// Slots returns the panels in row-major order.
func (f *Frame) Slots() []Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Slot, len(f.panels))
	for i, p := range f.panels {
		out[i] = p
	}
	return out
}

// Panel returns the panel with the given ID.
func (f *Frame) Panel(id string) (*Panel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.panels {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// AddRow appends one row of panels.
func (f *Frame) AddRow() []Slot {
	return f.grow(func() int {
		f.rows++
		return f.columns
	})
}

// AddColumn appends one column's worth of panels.
func (f *Frame) AddColumn() []Slot {
	return f.grow(func() int {
		f.columns++
		return f.rows
	})
}

// RemoveRow drops one row's worth of panels from the front.
func (f *Frame) RemoveRow() []Slot {
	return f.shrink(func() int {
		if f.rows <= 1 {
			return 0
		}
		f.rows--
		return f.columns
	})
}

// RemoveColumn drops one column's worth of panels from the front.
func (f *Frame) RemoveColumn() []Slot {
	return f.shrink(func() int {
		if f.columns <= 1 {
			return 0
		}
		f.columns--
		return f.rows
	})
}

// Resize changes the frame's pixel dimensions and returns the panels whose
// current image no longer fits; they are also reported to the observer.
// Every panel must keep at least one pixel on each axis.
func (f *Frame) Resize(width, height int) ([]string, error) {
	f.mu.Lock()
	if width < f.columns || height < f.rows {
		rows, cols := f.rows, f.columns
		f.mu.Unlock()
		return nil, fmt.Errorf("frame %s: %dx%d is too small for a %dx%d grid", f.name, width, height, rows, cols)
	}
	f.width = width
	f.height = height
	mismatched := f.relayoutLocked()
	reporter := f.reporter
	f.mu.Unlock()

	f.logger.Info("frame resized", logging.Int("width", width), logging.Int("height", height), logging.Int("mismatched", len(mismatched)))
	f.report(reporter, mismatched)
	return mismatched, nil
}

// Show makes the frame visible.
func (f *Frame) Show() {
	f.setVisible(true)
}

// Hide makes the frame invisible.
func (f *Frame) Hide() {
	f.setVisible(false)
}

// Visible reports whether the frame is shown.
func (f *Frame) Visible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

// Observe registers the receiver of size-mismatch reports.
func (f *Frame) Observe(reporter MismatchReporter) {
	f.mu.Lock()
	f.reporter = reporter
	f.mu.Unlock()
}

func (f *Frame) setVisible(v bool) {
	f.mu.Lock()
	changed := f.visible != v
	f.visible = v
	f.mu.Unlock()
	if changed {
		f.logger.Debug("frame visibility changed", logging.Bool("visible", v))
	}
}

func (f *Frame) grow(bump func() int) []Slot {
	f.mu.Lock()
	count := bump()
	size := f.panelSizeLocked()
	added := make([]Slot, 0, count)
	for i := 0; i < count; i++ {
		p := f.newPanelLocked(size)
		f.panels = append(f.panels, p)
		added = append(added, p)
	}
	mismatched := f.relayoutLocked()
	reporter := f.reporter
	rows, cols := f.rows, f.columns
	f.mu.Unlock()

	f.logger.Info("frame grid grown", logging.Int("rows", rows), logging.Int("columns", cols), logging.Int("added", len(added)))
	f.report(reporter, mismatched)
	return added
}

func (f *Frame) shrink(bump func() int) []Slot {
	f.mu.Lock()
	count := bump()
	if count == 0 {
		f.mu.Unlock()
		return nil
	}
	removed := make([]Slot, 0, count)
	for _, p := range f.panels[:count] {
		removed = append(removed, p)
	}
	f.panels = append([]*Panel(nil), f.panels[count:]...)
	mismatched := f.relayoutLocked()
	reporter := f.reporter
	rows, cols := f.rows, f.columns
	f.mu.Unlock()

	f.logger.Info("frame grid shrunk", logging.Int("rows", rows), logging.Int("columns", cols), logging.Int("removed", len(removed)))
	f.report(reporter, mismatched)
	return removed
}

func (f *Frame) newPanelLocked(size photo.Dimensions) *Panel {
	f.nextID++
	return newPanel(f.name, f.nextID, size, f.outputDir, f.logger)
}

func (f *Frame) panelSizeLocked() photo.Dimensions {
	return photo.Dimensions{Width: f.width / f.columns, Height: f.height / f.rows}
}

func (f *Frame) relayoutLocked() []string {
	size := f.panelSizeLocked()
	var mismatched []string
	for _, p := range f.panels {
		if p.resize(size) {
			mismatched = append(mismatched, p.id)
		}
	}
	return mismatched
}

func (f *Frame) report(reporter MismatchReporter, ids []string) {
	if reporter == nil {
		return
	}
	for _, id := range ids {
		reporter.ImageSizeMismatch(id)
	}
}
