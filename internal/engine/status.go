package engine

import (
	"photowall/internal/slots"
)

// SurfaceStatus summarizes an attached surface.
type SurfaceStatus struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Rows    int    `json:"rows,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Slots   int    `json:"slots"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	Running  bool             `json:"running"`
	Surfaces []SurfaceStatus  `json:"surfaces"`
	Slots    []slots.Snapshot `json:"slots"`
}

type gridded interface {
	Grid() (rows, columns int)
}

// Status returns the current engine state with slots ordered by ID.
func (e *Engine) Status() Status {
	status := Status{Running: e.Running()}
	for _, surface := range e.Surfaces() {
		entry := SurfaceStatus{
			Name:    surface.Name(),
			Visible: surface.Visible(),
			Slots:   len(surface.Slots()),
		}
		if g, ok := surface.(gridded); ok {
			entry.Rows, entry.Columns = g.Grid()
		}
		status.Surfaces = append(status.Surfaces, entry)
	}
	for _, m := range e.managedSorted() {
		status.Slots = append(status.Slots, m.demand.Snapshot())
	}
	return status
}

// Slot returns the snapshot of one managed slot.
func (e *Engine) Slot(slotID string) (slots.Snapshot, bool) {
	m, ok := e.lookup(slotID)
	if !ok {
		return slots.Snapshot{}, false
	}
	return m.demand.Snapshot(), true
}
