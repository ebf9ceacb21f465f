package photo

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

// Processor is the image primitive set used by the pipeline stages.
type Processor interface {
	Decode(path string) (image.Image, error)
	// ReadOrientation returns the embedded orientation of the file at path.
	// ok is false when the file carries no readable orientation metadata.
	ReadOrientation(path string) (o Orientation, ok bool, err error)
	Rotate(img image.Image, o Orientation) (image.Image, error)
	Resize(img image.Image, box Dimensions) (image.Image, error)
}

// Imaging implements Processor with disintegration/imaging and goexif.
type Imaging struct {
	// Filter is the resampling filter; Lanczos when zero.
	Filter imaging.ResampleFilter
}

// NewImaging returns a Processor using Lanczos resampling.
func NewImaging() *Imaging {
	return &Imaging{Filter: imaging.Lanczos}
}

// Decode opens and decodes path. Orientation is left untouched; the orient
// stage applies it.
func (p *Imaging) Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(false))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// ReadOrientation reads the EXIF orientation tag. Files without EXIF or in a
// container goexif cannot parse report ok=false.
func (p *Imaging) ReadOrientation(path string) (Orientation, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return readOrientation(file)
}

func readOrientation(r io.Reader) (Orientation, bool, error) {
	meta, err := exif.Decode(r)
	if err != nil {
		// Missing or malformed metadata passes the image through.
		return OrientNormal, false, nil
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return OrientNormal, false, nil
	}
	value, err := tag.Int(0)
	if err != nil {
		return 0, true, fmt.Errorf("orientation tag: %w", err)
	}
	return Orientation(value), true, nil
}

// ErrInvalidOrientation is returned by Rotate for values outside 1..8.
var ErrInvalidOrientation = errors.New("invalid orientation")

// Rotate applies o to img and returns a new image.
func (p *Imaging) Rotate(img image.Image, o Orientation) (image.Image, error) {
	switch o {
	case OrientNormal:
		return img, nil
	case OrientFlipH:
		return imaging.FlipH(img), nil
	case OrientRotate180:
		return imaging.Rotate180(img), nil
	case OrientFlipV:
		return imaging.FlipV(img), nil
	case OrientTranspose:
		return imaging.Transpose(img), nil
	case OrientRotate90CW:
		return imaging.Rotate270(img), nil
	case OrientTransverse:
		return imaging.Transverse(img), nil
	case OrientRotate270:
		return imaging.Rotate90(img), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrientation, int(o))
	}
}

// Resize scales img to fit within box, preserving aspect ratio.
func (p *Imaging) Resize(img image.Image, box Dimensions) (image.Image, error) {
	if img == nil {
		return nil, errors.New("resize: nil image")
	}
	if box.IsZero() {
		return nil, fmt.Errorf("resize: invalid target %s", box)
	}
	target := FitWithin(BoundsOf(img), box)
	filter := p.Filter
	if filter.Support == 0 && filter.Kernel == nil {
		filter = imaging.Lanczos
	}
	return imaging.Resize(img, target.Width, target.Height, filter), nil
}

// SavePNG writes img to path as PNG.
func SavePNG(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
