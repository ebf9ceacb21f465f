package photo

import "fmt"

// Orientation is an EXIF orientation tag value.
type Orientation int

const (
	OrientNormal     Orientation = 1
	OrientFlipH      Orientation = 2
	OrientRotate180  Orientation = 3
	OrientFlipV      Orientation = 4
	OrientTranspose  Orientation = 5
	OrientRotate90CW Orientation = 6
	OrientTransverse Orientation = 7
	OrientRotate270  Orientation = 8
)

// Valid reports whether o is one of the eight defined values.
func (o Orientation) Valid() bool {
	return o >= OrientNormal && o <= OrientRotate270
}

// SwapsAxes reports whether applying o exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o >= OrientTranspose && o <= OrientRotate270
}

func (o Orientation) String() string {
	switch o {
	case OrientNormal:
		return "normal"
	case OrientFlipH:
		return "flip-horizontal"
	case OrientRotate180:
		return "rotate-180"
	case OrientFlipV:
		return "flip-vertical"
	case OrientTranspose:
		return "transpose"
	case OrientRotate90CW:
		return "rotate-90"
	case OrientTransverse:
		return "transverse"
	case OrientRotate270:
		return "rotate-270"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}
