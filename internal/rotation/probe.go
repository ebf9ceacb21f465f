package rotation

import (
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const maxProbeEntries = 50000

type probeKey struct {
	path    string
	modTime time.Time
	size    int64
}

// probeCache remembers content-type verdicts so repeated walks through the
// same directory do not re-read file headers. Entries are keyed by path plus
// modification time and size, so a replaced file is probed again.
type probeCache struct {
	mu      sync.Mutex
	entries map[probeKey]bool
}

func newProbeCache() *probeCache {
	return &probeCache{entries: make(map[probeKey]bool)}
}

// isImage reports whether the file at path sniffs as image/*.
func (c *probeCache) isImage(path string, info fs.FileInfo) (bool, error) {
	key := probeKey{path: path, modTime: info.ModTime(), size: info.Size()}
	c.mu.Lock()
	verdict, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return verdict, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, err
	}
	verdict = strings.HasPrefix(mtype.String(), "image/")

	c.mu.Lock()
	if len(c.entries) >= maxProbeEntries {
		c.entries = make(map[probeKey]bool)
	}
	c.entries[key] = verdict
	c.mu.Unlock()
	return verdict, nil
}
