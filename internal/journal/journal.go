package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"photowall/internal/logging"
)

// Outcome is the kind of event recorded for a slot.
type Outcome string

const (
	OutcomeDelivered   Outcome = "delivered"
	OutcomeMismatch    Outcome = "mismatch"
	OutcomePlaceholder Outcome = "placeholder"
	OutcomeFailed      Outcome = "failed"
)

// Entry is one journal row.
type Entry struct {
	ID        int64         `json:"id"`
	At        time.Time     `json:"at"`
	RunID     string        `json:"run_id,omitempty"`
	SlotID    string        `json:"slot_id"`
	Path      string        `json:"path,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
}

const (
	defaultBuffer  = 256
	pruneEvery     = 500
	writeTimeout   = 5 * time.Second
	defaultKeepCap = 5000
)

// Journal persists entries on a background writer goroutine.
type Journal struct {
	db     *sql.DB
	path   string
	keep   int
	logger *slog.Logger

	entries chan Entry
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
	dropped atomic.Int64
	written atomic.Int64
}

// Open connects to the journal at path, creating the schema on first use, and
// starts the writer. keep bounds the number of retained rows.
func Open(path string, keep int, logger *slog.Logger) (*Journal, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = defaultKeepCap
	}
	j := &Journal{
		db:      db,
		path:    path,
		keep:    keep,
		logger:  logging.NewComponentLogger(logger, "journal"),
		entries: make(chan Entry, defaultBuffer),
		done:    make(chan struct{}),
	}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	go j.writer()
	return j, nil
}

// OpenReadOnly connects to an existing journal for queries only. Record must
// not be called on the result.
func OpenReadOnly(path string) (*Journal, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db, path: path, logger: logging.NewNop()}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

// Record queues e for writing. When the buffer is full the entry is dropped.
func (j *Journal) Record(e Entry) {
	if j == nil || j.entries == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	j.closeMu.Lock()
	defer j.closeMu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.entries <- e:
	default:
		if j.dropped.Add(1) == 1 {
			logging.WarnWithContext(j.logger, "journal buffer full; dropping entries", "journal_drop",
				logging.String(logging.FieldImpact, "history is incomplete"),
				logging.String(logging.FieldErrorHint, "check disk latency of the state directory"),
			)
		}
	}
}

// Dropped returns the number of entries discarded because the buffer was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close drains pending entries, stops the writer and closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	if j.entries != nil {
		j.closeMu.Lock()
		if !j.closed {
			j.closed = true
			close(j.entries)
		}
		j.closeMu.Unlock()
		<-j.done
	}
	return j.db.Close()
}

func (j *Journal) writer() {
	defer close(j.done)
	for e := range j.entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := j.insert(ctx, e); err != nil {
			j.logger.Warn("journal write failed",
				logging.Event("journal_write_failed"),
				logging.SlotID(e.SlotID),
				logging.Error(err),
			)
			cancel()
			continue
		}
		if n := j.written.Add(1); j.keep > 0 && n%pruneEvery == 0 {
			if removed, err := j.Prune(ctx, j.keep); err != nil {
				j.logger.Warn("journal prune failed", logging.Error(err))
			} else if removed > 0 {
				j.logger.Debug("journal pruned", logging.Int64("removed", removed))
			}
		}
		cancel()
	}
}

// String implements fmt.Stringer for log output.
func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s %s", e.At.Format(time.RFC3339), e.SlotID, e.Outcome, e.Path)
}
