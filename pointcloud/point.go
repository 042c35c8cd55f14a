package pointcloud

import (
	"fmt"
	"image/color"

	"github.com/golang/geo/r3"
)

// RGB is an 8-bit per channel color with no alpha.
type RGB [3]uint8

// White is the color given to points read from sources that carry no color.
var White = RGB{255, 255, 255}

// NRGBA converts the color to an opaque color.NRGBA.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

// RGBFromColor converts any color.Color to RGB, dropping alpha.
func RGBFromColor(c color.Color) RGB {
	nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{nrgba.R, nrgba.G, nrgba.B}
}

// Point is a single stored LiDAR return: a position and a color. It is a plain value and
// carries no identity beyond its fields.
type Point struct {
	Position r3.Vector
	Color    RGB
}

// NewPoint convenience method for creating a point.
func NewPoint(x, y, z float64, r, g, b uint8) Point {
	return Point{Position: r3.Vector{X: x, Y: y, Z: z}, Color: RGB{r, g, b}}
}

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

func (p Point) String() string {
	return fmt.Sprintf("(%v, %v, %v) [%d %d %d]",
		p.Position.X, p.Position.Y, p.Position.Z, p.Color[0], p.Color[1], p.Color[2])
}
