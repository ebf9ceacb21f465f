package rotation

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"photowall/internal/faults"
	"photowall/internal/logging"
	"photowall/internal/photo"
)

var errWalkExhausted = errors.New("every directory is blacklisted")

// BlacklistObserver is notified when the walk's blacklist changes.
type BlacklistObserver interface {
	Blacklisted(dir string)
	Cleared()
}

// WalkOption customizes a RandomWalk.
type WalkOption func(*RandomWalk)

// WithRewriteSuffix excludes rewrite override files named with suffix.
func WithRewriteSuffix(suffix string) WalkOption {
	return func(w *RandomWalk) { w.rewriteSuffix = suffix }
}

// WithResetOnExhaust controls whether an exhausted tree clears the blacklist
// once and retries before failing.
func WithResetOnExhaust(reset bool) WalkOption {
	return func(w *RandomWalk) { w.resetOnExhaust = reset }
}

// WithRand makes child selection deterministic.
func WithRand(r *rand.Rand) WalkOption {
	return func(w *RandomWalk) { w.intN = r.IntN }
}

// WithLogger sets the walk logger.
func WithLogger(logger *slog.Logger) WalkOption {
	return func(w *RandomWalk) { w.logger = logging.NewComponentLogger(logger, "rotation") }
}

// RandomWalk picks photos by descending from the base directory through
// uniformly random children until it reaches a file.
type RandomWalk struct {
	base           string
	rewriteSuffix  string
	resetOnExhaust bool
	logger         *slog.Logger
	probes         *probeCache

	mu        sync.Mutex
	intN      func(int) int
	blacklist map[string]struct{}
	observer  BlacklistObserver
}

// NewRandomWalk returns a walk rooted at base. Defaults: no rewrite suffix,
// reset-on-exhaust enabled, process-global randomness.
func NewRandomWalk(base string, opts ...WalkOption) *RandomWalk {
	w := &RandomWalk{
		base:           filepath.Clean(base),
		resetOnExhaust: true,
		logger:         logging.NewComponentLogger(nil, "rotation"),
		probes:         newProbeCache(),
		intN:           rand.IntN,
		blacklist:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Base returns the root directory of the walk.
func (w *RandomWalk) Base() string {
	return w.base
}

// Observe registers o for blacklist notifications. Only one observer is kept.
func (w *RandomWalk) Observe(o BlacklistObserver) {
	w.mu.Lock()
	w.observer = o
	w.mu.Unlock()
}

// Next returns a random photo path relative to the base directory.
func (w *RandomWalk) Next() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, err := w.walk()
	if !errors.Is(err, errWalkExhausted) {
		return path, err
	}
	if !w.resetOnExhaust {
		return "", faults.Wrap(faults.ErrSourceExhausted, "rotation", "walk", w.base, err)
	}

	logging.WarnWithContext(w.logger, "photo tree exhausted; clearing blacklist", "rotation_blacklist_reset",
		logging.String("base", w.base),
		logging.Int("blacklisted", len(w.blacklist)),
		logging.String(logging.FieldErrorHint, "add photos under the base directory"),
		logging.String(logging.FieldImpact, "previously empty directories are walked again"),
	)
	w.clearLocked()
	path, err = w.walk()
	if errors.Is(err, errWalkExhausted) {
		return "", faults.Wrap(faults.ErrSourceExhausted, "rotation", "walk", w.base, err)
	}
	return path, err
}

func (w *RandomWalk) walk() (string, error) {
	stack := []string{w.base}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		children, err := w.eligibleChildren(dir)
		if err != nil {
			return "", faults.Wrap(faults.ErrSourceIO, "rotation", "list", dir, err)
		}
		if len(children) == 0 {
			w.blacklistLocked(dir)
			stack = stack[:len(stack)-1]
			continue
		}
		pick := children[w.intN(len(children))]
		if pick.dir {
			stack = append(stack, pick.path)
			continue
		}
		rel, err := filepath.Rel(w.base, pick.path)
		if err != nil {
			return "", faults.Wrap(faults.ErrSourceIO, "rotation", "relativize", pick.path, err)
		}
		return filepath.ToSlash(rel), nil
	}
	return "", errWalkExhausted
}

type child struct {
	path string
	dir  bool
}

func (w *RandomWalk) eligibleChildren(dir string) ([]child, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	children := make([]child, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		info, err := os.Stat(full)
		if err != nil {
			// Dangling links and entries removed mid-listing are skipped.
			continue
		}
		if info.IsDir() {
			if _, dead := w.blacklist[full]; dead {
				continue
			}
			children = append(children, child{path: full, dir: true})
			continue
		}
		if !info.Mode().IsRegular() || photo.IsRewrite(entry.Name(), w.rewriteSuffix) {
			continue
		}
		ok, err := w.probes.isImage(full, info)
		if err != nil {
			w.logger.Debug("probe failed; skipping file", logging.Path(full), logging.Error(err))
			continue
		}
		if ok {
			children = append(children, child{path: full})
		}
	}
	return children, nil
}

func (w *RandomWalk) blacklistLocked(dir string) {
	if _, ok := w.blacklist[dir]; ok {
		return
	}
	w.blacklist[dir] = struct{}{}
	w.logger.Info("directory blacklisted",
		logging.Path(dir),
		logging.Event("rotation_blacklisted"),
	)
	if w.observer != nil {
		w.observer.Blacklisted(dir)
	}
}

// Blacklisted returns the sorted set of blacklisted directories.
func (w *RandomWalk) Blacklisted() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.blacklist))
	for dir := range w.blacklist {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// IsBlacklisted reports whether dir is currently excluded.
func (w *RandomWalk) IsBlacklisted(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.blacklist[filepath.Clean(dir)]
	return ok
}

// Unblacklist re-admits dir together with every blacklisted ancestor up to the
// base directory. It reports whether anything changed.
func (w *RandomWalk) Unblacklist(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	target := filepath.Clean(dir)
	if !w.contains(target) {
		return false
	}
	changed := false
	for current := target; ; current = filepath.Dir(current) {
		if _, ok := w.blacklist[current]; ok {
			delete(w.blacklist, current)
			changed = true
		}
		if current == w.base || filepath.Dir(current) == current {
			break
		}
	}
	if changed {
		w.logger.Info("directory re-admitted",
			logging.Path(dir),
			logging.Event("rotation_unblacklisted"),
		)
	}
	return changed
}

func (w *RandomWalk) contains(path string) bool {
	rel, err := filepath.Rel(w.base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ResetBlacklist clears every blacklist entry.
func (w *RandomWalk) ResetBlacklist() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearLocked()
}

func (w *RandomWalk) clearLocked() {
	w.blacklist = make(map[string]struct{})
	if w.observer != nil {
		w.observer.Cleared()
	}
}
