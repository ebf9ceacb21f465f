package photo

import (
	"fmt"
	"image"
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether either side is non-positive.
func (d Dimensions) IsZero() bool {
	return d.Width <= 0 || d.Height <= 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// BoundsOf returns the dimensions of img, or zero for nil.
func BoundsOf(img image.Image) Dimensions {
	if img == nil {
		return Dimensions{}
	}
	b := img.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// Image pairs a candidate path with decoded pixels.
type Image struct {
	Path        string
	Pixels      image.Image
	Placeholder bool
}

// NewImage constructs an Image for path.
func NewImage(path string, pixels image.Image) *Image {
	return &Image{Path: path, Pixels: pixels}
}

// WithPixels returns a new Image carrying the same path and the given pixels.
func (i *Image) WithPixels(pixels image.Image) *Image {
	return &Image{Path: i.Path, Pixels: pixels, Placeholder: i.Placeholder}
}

// Size returns the pixel dimensions of the image.
func (i *Image) Size() Dimensions {
	if i == nil {
		return Dimensions{}
	}
	return BoundsOf(i.Pixels)
}

// Fits reports whether an image of size img exactly fills box along one axis
// without exceeding it along the other.
func Fits(img, box Dimensions) bool {
	return (img.Width == box.Width && img.Height <= box.Height) ||
		(img.Height == box.Height && img.Width <= box.Width)
}

// FitWithin returns the size src scales to inside box. The axis with the larger
// src/box ratio is pinned to the box; the other side scales proportionally.
func FitWithin(src, box Dimensions) Dimensions {
	if src.IsZero() || box.IsZero() {
		return box
	}
	widthRatio := float64(src.Width) / float64(box.Width)
	heightRatio := float64(src.Height) / float64(box.Height)
	if widthRatio > heightRatio {
		h := int(float64(src.Height)/widthRatio + 0.5)
		return Dimensions{Width: box.Width, Height: clamp(h, 1, box.Height)}
	}
	w := int(float64(src.Width)/heightRatio + 0.5)
	return Dimensions{Width: clamp(w, 1, box.Width), Height: box.Height}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
