package testsupport

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// WriteFile writes size bytes of a repeating pattern to path, creating parent
// directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteImage encodes a solid w x h image at path. The format follows the
// extension (png, jpg, gif, bmp, tif).
func WriteImage(t testing.TB, path string, w, h int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	img := imaging.New(w, h, color.NRGBA{R: 0x40, G: 0x80, B: 0xc0, A: 0xff})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// SolidImage returns an in-memory w x h image.
func SolidImage(w, h int) image.Image {
	return imaging.New(w, h, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
}

// WritePhotoTree creates PNG images at each slash-separated relative path
// under root.
func WritePhotoTree(t testing.TB, root string, rels ...string) {
	t.Helper()

	for _, rel := range rels {
		WriteImage(t, filepath.Join(root, filepath.FromSlash(rel)), 8, 6)
	}
}
