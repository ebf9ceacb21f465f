package ipc

import (
	"time"

	"photowall/internal/engine"
	"photowall/internal/journal"
	"photowall/internal/slots"
)

// StartRequest restarts the daemon loops after a Stop.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest halts the daemon loops without exiting the process.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Surface mirrors the engine surface summary.
type Surface = engine.SurfaceStatus

// Slot mirrors a slot snapshot.
type Slot = slots.Snapshot

// StatusResponse represents combined daemon and engine status information.
type StatusResponse struct {
	Running     bool      `json:"running"`
	Paused      bool      `json:"paused"`
	PID         int       `json:"pid"`
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	LockPath    string    `json:"lock_path"`
	JournalPath string    `json:"journal_path"`
	MetricsBind string    `json:"metrics_bind"`
	Blacklisted []string  `json:"blacklisted"`
	Surfaces    []Surface `json:"surfaces"`
	Slots       []Slot    `json:"slots"`
}

// PauseRequest suspends auto-advance.
type PauseRequest struct{}

// ResumeRequest resumes auto-advance.
type ResumeRequest struct{}

// ToggleResponse reports whether a pause or resume changed anything.
type ToggleResponse struct {
	Changed bool `json:"changed"`
	Paused  bool `json:"paused"`
}

// NextRequest reassigns every eligible slot immediately.
type NextRequest struct{}

// NextResponse reports how many slots were reassigned.
type NextResponse struct {
	Advanced int `json:"advanced"`
}

// StickyRequest toggles a slot's sticky flag, or sets it when Set is provided.
type StickyRequest struct {
	SlotID string `json:"slot_id"`
	Set    *bool  `json:"set,omitempty"`
}

// StickyResponse reports the resulting sticky flag.
type StickyResponse struct {
	SlotID string `json:"slot_id"`
	Sticky bool   `json:"sticky"`
}

// GridRequest applies a grid operation to a frame.
type GridRequest struct {
	Frame string `json:"frame"`
	Op    string `json:"op"`
}

// GridResponse lists the slots added or removed.
type GridResponse struct {
	Slots []string `json:"slots"`
}

// ResizeRequest changes a frame's pixel dimensions.
type ResizeRequest struct {
	Frame  string `json:"frame"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ResizeResponse lists the slots queued for reload at the new size.
type ResizeResponse struct {
	Reloading []string `json:"reloading"`
}

// HistoryRequest fetches recent journal entries.
type HistoryRequest struct {
	SlotID string `json:"slot_id"`
	Limit  int    `json:"limit"`
}

// HistoryResponse contains journal entries, newest first.
type HistoryResponse struct {
	Entries []journal.Entry `json:"entries"`
}
