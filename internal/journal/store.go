package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	timeLayout = time.RFC3339Nano
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

func (j *Journal) insert(ctx context.Context, e Entry) error {
	return retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx, `INSERT INTO deliveries
			(recorded_at, run_id, slot_id, path, outcome, error_kind, message, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.At.UTC().Format(timeLayout),
			e.RunID,
			e.SlotID,
			e.Path,
			string(e.Outcome),
			e.ErrorKind,
			e.Message,
			e.Duration.Milliseconds(),
		)
		return err
	})
}

// Recent returns up to limit entries, newest first. A non-empty slotID
// restricts the result to one slot.
func (j *Journal) Recent(ctx context.Context, slotID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, recorded_at, run_id, slot_id, path, outcome, error_kind, message, duration_ms
		FROM deliveries`
	args := []any{}
	if slotID != "" {
		query += ` WHERE slot_id = ?`
		args = append(args, slotID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt string
			outcome    string
			durationMs int64
		)
		if err := rows.Scan(&e.ID, &recordedAt, &e.RunID, &e.SlotID, &e.Path, &outcome, &e.ErrorKind, &e.Message, &durationMs); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if parsed, perr := time.Parse(timeLayout, recordedAt); perr == nil {
			e.At = parsed
		}
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of entries per outcome.
func (j *Journal) Counts(ctx context.Context) (map[Outcome]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM deliveries GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("journal counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[Outcome(outcome)] = count
	}
	return counts, rows.Err()
}

// Prune deletes all but the newest keep entries and returns the number removed.
// keep <= 0 keeps everything.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = j.db.ExecContext(ctx,
			`DELETE FROM deliveries WHERE id NOT IN (SELECT id FROM deliveries ORDER BY id DESC LIMIT ?)`, keep)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}
