package display

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"photowall/internal/logging"
	"photowall/internal/photo"
)

// Panel is one cell of a Frame.
type Panel struct {
	id        string
	snapshot  string
	logger    *slog.Logger
	mu        sync.RWMutex
	size      photo.Dimensions
	current   *photo.Image
	displayed int
}

func newPanel(frame string, index int, size photo.Dimensions, outputDir string, logger *slog.Logger) *Panel {
	p := &Panel{
		id:     fmt.Sprintf("%s:panel%d", frame, index),
		size:   size,
		logger: logger,
	}
	if outputDir != "" {
		p.snapshot = filepath.Join(outputDir, fmt.Sprintf("panel%d.png", index))
	}
	return p
}

// ID returns the panel name.
func (p *Panel) ID() string {
	return p.id
}

// Size returns the current panel dimensions.
func (p *Panel) Size() photo.Dimensions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// CurrentImage returns the image on display.
func (p *Panel) CurrentImage() *photo.Image {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Displayed returns the number of images delivered to the panel.
func (p *Panel) Displayed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.displayed
}

// SnapshotPath returns the PNG path written on every delivery, if any.
func (p *Panel) SnapshotPath() string {
	return p.snapshot
}

// Display shows img on the panel and writes the snapshot file when enabled.
func (p *Panel) Display(img *photo.Image) {
	p.mu.Lock()
	p.current = img
	p.displayed++
	p.mu.Unlock()

	if p.snapshot == "" || img == nil || img.Pixels == nil {
		return
	}
	if err := photo.SavePNG(img.Pixels, p.snapshot); err != nil {
		logging.WarnWithContext(p.logger, "panel snapshot failed", "frame_snapshot",
			logging.SlotID(p.id),
			logging.String("snapshot", p.snapshot),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check frames.output_dir permissions"),
		)
	}
}

func (p *Panel) resize(size photo.Dimensions) (mismatch bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size = size
	if p.current == nil {
		return false
	}
	return !photo.Fits(p.current.Size(), size)
}
