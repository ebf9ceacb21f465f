package photo

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

var (
	placeholderBackground = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	placeholderCross      = color.NRGBA{R: 0xc0, G: 0x30, B: 0x30, A: 0xff}
)

// Placeholder builds the broken-image stand-in shown after repeated failures:
// a dark box of exactly the requested size crossed corner to corner.
func Placeholder(box Dimensions, path string) *Image {
	w, h := box.Width, box.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	canvas := imaging.New(w, h, placeholderBackground)

	thickness := max(1, min(w, h)/100)
	stroke := image.NewUniform(placeholderCross)
	steps := max(w, h)
	for i := 0; i < steps; i++ {
		x := i * w / steps
		y := i * h / steps
		draw.Draw(canvas, image.Rect(x, y, x+thickness, y+thickness), stroke, image.Point{}, draw.Src)
		draw.Draw(canvas, image.Rect(w-1-x, y, w-1-x+thickness, y+thickness), stroke, image.Point{}, draw.Src)
	}
	return &Image{Path: path, Pixels: canvas, Placeholder: true}
}
