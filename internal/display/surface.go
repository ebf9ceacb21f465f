package display

import "photowall/internal/photo"

// Slot is a single rectangular region that shows one image.
type Slot interface {
	ID() string
	Size() photo.Dimensions
	// CurrentImage returns the image on display, or nil when empty.
	CurrentImage() *photo.Image
	Display(img *photo.Image)
}

// MismatchReporter is notified when a slot's current image no longer fits it.
type MismatchReporter interface {
	ImageSizeMismatch(slotID string)
}

// Surface is a set of slots that can be shown, hidden, and regridded.
type Surface interface {
	Name() string
	Slots() []Slot
	// AddRow, RemoveRow, AddColumn and RemoveColumn return the slots that
	// were created or removed. A removal that would empty an axis returns nil.
	AddRow() []Slot
	RemoveRow() []Slot
	AddColumn() []Slot
	RemoveColumn() []Slot
	Show()
	Hide()
	Visible() bool
	Observe(reporter MismatchReporter)
}
