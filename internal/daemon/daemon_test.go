package daemon_test

import (
	"context"
	"testing"
	"time"

	"photowall/internal/config"
	"photowall/internal/daemon"
	"photowall/internal/logging"
	"photowall/internal/slots"
	"photowall/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func photoConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithSweep(10), testsupport.WithAdvance(60_000, 60_000)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	testsupport.WritePhotoTree(t, cfg.Paths.PhotoDir, "a.png", "b.png", "trip/c.png", "trip/d.png", "e.png")
	return cfg
}

func waitAllIdle(t *testing.T, d *daemon.Daemon, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status := d.Status()
		idle := 0
		for _, snap := range status.Engine.Slots {
			if snap.State == slots.StateIdle {
				idle++
			}
		}
		if idle == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d idle slots: %+v", want, d.Status().Engine.Slots)
}

func TestDaemonStartStop(t *testing.T) {
	cfg := photoConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.SessionID == "" {
		t.Fatal("expected session id")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	waitAllIdle(t, d, 4)

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if got := len(d.Status().Engine.Slots); got != 4 {
		t.Fatalf("expected frames attached once, got %d slots", got)
	}
	d.Stop()
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := photoConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonControls(t *testing.T) {
	cfg := photoConfig(t)
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	waitAllIdle(t, d, 4)

	sticky, err := d.ToggleSticky("test:panel1")
	if err != nil || !sticky {
		t.Fatalf("ToggleSticky = %v, %v", sticky, err)
	}
	if _, err := d.ToggleSticky("test:missing"); err == nil {
		t.Fatal("expected unknown slot error")
	}

	advanced, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if advanced != 3 {
		t.Fatalf("expected 3 non-sticky slots advanced, got %d", advanced)
	}

	if !d.Pause() {
		t.Fatal("expected pause to take effect")
	}
	if d.Pause() {
		t.Fatal("expected second pause to be a no-op")
	}
	status := d.Status()
	if !status.Paused || status.Engine.Surfaces[0].Visible {
		t.Fatalf("expected paused and hidden, got %+v", status)
	}
	if !d.Resume() {
		t.Fatal("expected resume to take effect")
	}
	if !d.Status().Engine.Surfaces[0].Visible {
		t.Fatal("expected frame visible after resume")
	}

	added, err := d.Grid("test", daemon.GridAddRow)
	if err != nil {
		t.Fatalf("Grid add-row: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 new slots, got %v", added)
	}
	removed, err := d.Grid("test", daemon.GridRemoveColumn)
	if err != nil {
		t.Fatalf("Grid remove-column: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed slots, got %v", removed)
	}
	if _, err := d.Grid("test", "spin"); err == nil {
		t.Fatal("expected unknown grid operation error")
	}
	if _, err := d.Grid("nope", daemon.GridAddRow); err == nil {
		t.Fatal("expected unknown frame error")
	}

	if _, err := d.ResizeFrame("test", 90, 300); err != nil {
		t.Fatalf("ResizeFrame: %v", err)
	}
	for _, slot := range d.Frames()[0].Slots() {
		if got := slot.Size(); got.Width != 90 || got.Height != 100 {
			t.Fatalf("slot %s size = %s after resize, want 90x100", slot.ID(), got)
		}
	}
	if _, err := d.ResizeFrame("test", 0, 300); err == nil {
		t.Fatal("expected error for a zero width")
	}
	if _, err := d.ResizeFrame("nope", 90, 300); err == nil {
		t.Fatal("expected unknown frame error")
	}
}

func TestDaemonHistoryDisabled(t *testing.T) {
	cfg := photoConfig(t, testsupport.WithoutJournal())
	d := newDaemon(t, cfg)
	if _, err := d.History(context.Background(), "", 10); err == nil {
		t.Fatal("expected error when journal disabled")
	}
}
