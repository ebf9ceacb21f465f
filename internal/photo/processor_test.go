package photo_test

import (
	"errors"
	"path/filepath"
	"testing"

	"photowall/internal/photo"
	"photowall/internal/testsupport"
)

func TestImagingDecodeAndResize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.png")
	testsupport.WriteImage(t, path, 160, 90)

	proc := photo.NewImaging()
	img, err := proc.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := photo.BoundsOf(img); got != (photo.Dimensions{Width: 160, Height: 90}) {
		t.Fatalf("decoded size %s", got)
	}

	box := photo.Dimensions{Width: 40, Height: 40}
	resized, err := proc.Resize(img, box)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if got := photo.BoundsOf(resized); got != (photo.Dimensions{Width: 40, Height: 23}) {
		t.Fatalf("resized size %s", got)
	}
	if _, err := proc.Resize(img, photo.Dimensions{}); err == nil {
		t.Fatal("expected error for empty box")
	}
}

func TestImagingDecodeMissingFile(t *testing.T) {
	if _, err := photo.NewImaging().Decode(filepath.Join(t.TempDir(), "gone.jpg")); err == nil {
		t.Fatal("expected decode error for missing file")
	}
}

func TestImagingReadOrientationWithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	testsupport.WriteImage(t, path, 4, 4)

	o, ok, err := photo.NewImaging().ReadOrientation(path)
	if err != nil {
		t.Fatalf("ReadOrientation: %v", err)
	}
	if ok {
		t.Fatalf("expected no orientation metadata, got %s", o)
	}
}

func TestImagingRotate(t *testing.T) {
	proc := photo.NewImaging()
	src := testsupport.SolidImage(30, 10)
	for o := photo.OrientNormal; o <= photo.OrientRotate270; o++ {
		out, err := proc.Rotate(src, o)
		if err != nil {
			t.Fatalf("Rotate(%s): %v", o, err)
		}
		want := photo.Dimensions{Width: 30, Height: 10}
		if o.SwapsAxes() {
			want = photo.Dimensions{Width: 10, Height: 30}
		}
		if got := photo.BoundsOf(out); got != want {
			t.Fatalf("Rotate(%s) size %s, want %s", o, got, want)
		}
	}
	if _, err := proc.Rotate(src, 9); !errors.Is(err, photo.ErrInvalidOrientation) {
		t.Fatalf("expected invalid orientation error, got %v", err)
	}
}
