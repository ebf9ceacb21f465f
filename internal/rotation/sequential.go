package rotation

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"photowall/internal/faults"
	"photowall/internal/logging"
	"photowall/internal/photo"
)

// Sequential yields every photo under base in sorted depth-first order and
// starts over from the beginning once the listing is used up.
type Sequential struct {
	base          string
	rewriteSuffix string
	logger        *slog.Logger
	probes        *probeCache

	mu      sync.Mutex
	listing []string
	next    int
}

// NewSequential returns a sequential source rooted at base.
func NewSequential(base, rewriteSuffix string, logger *slog.Logger) *Sequential {
	return &Sequential{
		base:          filepath.Clean(base),
		rewriteSuffix: rewriteSuffix,
		logger:        logging.NewComponentLogger(logger, "rotation"),
		probes:        newProbeCache(),
	}
}

// Next returns the following photo in listing order.
func (s *Sequential) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.listing) {
		listing, err := s.list()
		if err != nil {
			return "", err
		}
		if len(listing) == 0 {
			return "", faults.Wrap(faults.ErrSourceExhausted, "rotation", "list", s.base, nil)
		}
		s.logger.Debug("photo listing refreshed",
			logging.Int("photos", len(listing)),
			logging.Event("rotation_listing_refreshed"),
		)
		s.listing = listing
		s.next = 0
	}
	path := s.listing[s.next]
	s.next++
	return path, nil
}

func (s *Sequential) list() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() || photo.IsRewrite(d.Name(), s.rewriteSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		ok, err := s.probes.isImage(path, info)
		if err != nil || !ok {
			return nil
		}
		rel, err := filepath.Rel(s.base, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, faults.Wrap(faults.ErrSourceIO, "rotation", "list", s.base, err)
	}
	return out, nil
}
