package engine

import (
	"context"
	"fmt"

	"photowall/internal/display"
	"photowall/internal/logging"
	"photowall/internal/metrics"
	"photowall/internal/slots"
)

// Attach starts managing every slot of surface. Each slot is seeded with a
// path and picked up by the next sweep.
func (e *Engine) Attach(surface display.Surface) error {
	name := surface.Name()
	e.surfacesMu.Lock()
	if _, exists := e.surfaces[name]; exists {
		e.surfacesMu.Unlock()
		return fmt.Errorf("%w: %s", ErrSurfaceAttached, name)
	}
	e.surfaces[name] = surface
	e.order = append(e.order, name)
	e.surfacesMu.Unlock()

	surface.Observe(e)
	members := surface.Slots()
	for _, slot := range members {
		e.manage(name, slot)
	}
	e.logger.Info("surface attached",
		logging.Event("surface_attach"),
		logging.Surface(name),
		logging.Int("slots", len(members)),
	)
	return nil
}

// Detach stops managing surface and all of its slots. Runs already in flight
// finish against their own slot reference.
func (e *Engine) Detach(name string) error {
	e.surfacesMu.Lock()
	if _, ok := e.surfaces[name]; !ok {
		e.surfacesMu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSurface, name)
	}
	delete(e.surfaces, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.surfacesMu.Unlock()

	removed := 0
	e.slots.Range(func(key, v any) bool {
		if v.(*managedSlot).surface == name {
			e.slots.Delete(key)
			removed++
		}
		return true
	})
	e.logger.Info("surface detached",
		logging.Event("surface_detach"),
		logging.Surface(name),
		logging.Int("slots", removed),
	)
	return nil
}

// Surface returns an attached surface by name.
func (e *Engine) Surface(name string) (display.Surface, bool) {
	e.surfacesMu.RLock()
	defer e.surfacesMu.RUnlock()
	s, ok := e.surfaces[name]
	return s, ok
}

// Surfaces returns attached surfaces in attach order.
func (e *Engine) Surfaces() []display.Surface {
	e.surfacesMu.RLock()
	defer e.surfacesMu.RUnlock()
	out := make([]display.Surface, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.surfaces[name])
	}
	return out
}

// AddRow grows surface by one row and manages the new slots.
func (e *Engine) AddRow(surface string) ([]display.Slot, error) {
	return e.regrid(surface, "add_row", display.Surface.AddRow, true)
}

// RemoveRow shrinks surface by one row and forgets the removed slots.
func (e *Engine) RemoveRow(surface string) ([]display.Slot, error) {
	return e.regrid(surface, "remove_row", display.Surface.RemoveRow, false)
}

// AddColumn grows surface by one column and manages the new slots.
func (e *Engine) AddColumn(surface string) ([]display.Slot, error) {
	return e.regrid(surface, "add_column", display.Surface.AddColumn, true)
}

// RemoveColumn shrinks surface by one column and forgets the removed slots.
func (e *Engine) RemoveColumn(surface string) ([]display.Slot, error) {
	return e.regrid(surface, "remove_column", display.Surface.RemoveColumn, false)
}

func (e *Engine) regrid(name, op string, apply func(display.Surface) []display.Slot, grow bool) ([]display.Slot, error) {
	surface, ok := e.Surface(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSurface, name)
	}
	affected := apply(surface)
	for _, slot := range affected {
		if grow {
			e.manage(name, slot)
		} else {
			e.slots.Delete(slot.ID())
		}
	}
	e.logger.Info("surface regridded",
		logging.Event("surface_regrid"),
		logging.Surface(name),
		logging.String("operation", op),
		logging.Int("affected", len(affected)),
	)
	return affected, nil
}

func (e *Engine) manage(surface string, slot display.Slot) {
	m := &managedSlot{
		demand:  slots.New(slot.ID(), e.clock),
		slot:    slot,
		surface: surface,
	}
	e.slots.Store(slot.ID(), m)
	if err := e.assignNext(m); err != nil {
		logging.WarnWithContext(e.slotLogger(context.Background(), slot.ID()), "slot seeding failed", "slot_seed_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the photo directory; the slot is retried on the next sweep"),
			logging.String(logging.FieldImpact, "slot stays empty until a path is available"),
		)
	}
}

// assignNext draws a path from the source and assigns it to m.
func (e *Engine) assignNext(m *managedSlot) error {
	path, err := e.source.Next()
	if err != nil {
		e.metrics.Count(metrics.EventSourceError)
		return err
	}
	m.demand.Assign(path)
	return nil
}

// assignNextIf draws a path first and then assigns it only if m is still idle
// of runs and eligible accepts its state. A refused path is discarded.
func (e *Engine) assignNextIf(m *managedSlot, eligible func(slots.Snapshot) bool) (bool, error) {
	path, err := e.source.Next()
	if err != nil {
		e.metrics.Count(metrics.EventSourceError)
		return false, err
	}
	return m.demand.AssignIf(path, eligible), nil
}

// SetSticky sets whether slotID is excluded from auto-advance.
func (e *Engine) SetSticky(slotID string, sticky bool) error {
	m, ok := e.lookup(slotID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	m.demand.SetSticky(sticky)
	return nil
}

// ToggleSticky flips the auto-advance exclusion of slotID.
func (e *Engine) ToggleSticky(slotID string) (bool, error) {
	m, ok := e.lookup(slotID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	sticky := m.demand.ToggleSticky()
	e.logger.Info("slot sticky toggled", logging.SlotID(slotID), logging.Bool("sticky", sticky))
	return sticky, nil
}

// ImageSizeMismatch marks the slot dirty so the next sweep reloads it at its
// new size. Unknown slots are ignored.
func (e *Engine) ImageSizeMismatch(slotID string) {
	m, ok := e.lookup(slotID)
	if !ok {
		return
	}
	if m.demand.MarkDirty() {
		e.logger.Debug("slot size mismatch",
			logging.Event("slot_mismatch"),
			logging.SlotID(slotID),
		)
	}
}

// AdvanceAll assigns a new path to every non-sticky slot that has no run in
// flight and returns how many were reassigned.
func (e *Engine) AdvanceAll() (int, error) {
	advanced := 0
	for _, m := range e.managedSorted() {
		if m.demand.Sticky() || m.demand.ActiveLoaders() != 0 {
			continue
		}
		ok, err := e.assignNextIf(m, func(s slots.Snapshot) bool { return !s.Sticky })
		if err != nil {
			return advanced, err
		}
		if !ok {
			continue
		}
		advanced++
		e.metrics.Count(metrics.EventAdvanced)
	}
	e.logger.Info("slots advanced",
		logging.Event("advance_all"),
		logging.Int("advanced", advanced),
	)
	return advanced, nil
}
