package photo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver maps a candidate path to the file that should actually be loaded.
type Resolver interface {
	Resolve(path string) (string, error)
}

// RewriteResolver resolves slash-separated candidate paths under Base. A
// sibling named "<stem><Suffix>.<ext>" replaces the original when present.
type RewriteResolver struct {
	Base   string
	Suffix string
}

// Resolve returns the absolute file to load for path.
func (r RewriteResolver) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	full := filepath.Join(r.Base, filepath.FromSlash(path))
	if r.Suffix != "" {
		stem := strings.TrimSuffix(full, filepath.Ext(full))
		matches, err := filepath.Glob(escapeGlob(stem+r.Suffix) + ".*")
		if err != nil {
			return "", fmt.Errorf("glob rewrite for %s: %w", path, err)
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("photo %s no longer exists: %w", path, err)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("photo %s is a directory", path)
	}
	return full, nil
}

// IsRewrite reports whether name is a rewrite override for some other photo.
func IsRewrite(name, suffix string) bool {
	if suffix == "" {
		return false
	}
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem != suffix && strings.HasSuffix(stem, suffix)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
