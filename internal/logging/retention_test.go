package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"photowall/internal/logging"
)

func TestCleanupOldLogsRemovesExpiredMatches(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.AddDate(0, 0, -10)

	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	expired := write("photowall-20240101T000000Z.log", old)
	current := write("photowall-20240102T000000Z.log", old)
	fresh := write("photowall-20240103T000000Z.log", now)
	unrelated := write("notes.txt", old)

	removed := logging.CleanupOldLogs(logging.NewNop(), now, 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: logging.RunLogPattern,
		Exclude: []string{current},
	})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", expired, err)
	}
	for _, keep := range []string{current, fresh, unrelated} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	if n := logging.CleanupOldLogs(nil, time.Now(), 0, logging.RetentionTarget{Dir: t.TempDir()}); n != 0 {
		t.Fatalf("expected no removals when disabled, got %d", n)
	}
}
