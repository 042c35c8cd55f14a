package pointcloud

import (
	"io"

	"github.com/chenzhekl/goply"
	"github.com/pkg/errors"
)

// ReadPLY reads the vertex elements of an ascii PLY file and calls fn for each of them in
// file order. Vertices without red, green and blue properties are white.
func ReadPLY(in io.Reader, fn func(p Point) error) error {
	ply, err := loadPLY(in)
	if err != nil {
		return err
	}
	for i, vertex := range ply.Elements("vertex") {
		x, okX := plyFloat(vertex.Property("x"))
		y, okY := plyFloat(vertex.Property("y"))
		z, okZ := plyFloat(vertex.Property("z"))
		if !okX || !okY || !okZ {
			return errors.Errorf("vertex %d: missing or non-numeric x, y or z", i)
		}
		p := Point{Position: NewVector(x, y, z), Color: White}
		r, okR := vertex.Property("red").(uint8)
		g, okG := vertex.Property("green").(uint8)
		b, okB := vertex.Property("blue").(uint8)
		if okR && okG && okB {
			p.Color = RGB{r, g, b}
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// loadPLY parses the whole file. goply reports malformed input by panicking.
func loadPLY(in io.Reader) (ply *goply.Ply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("bad ply file: %v", r)
		}
	}()
	return goply.New(in), nil
}

func plyFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case int8:
		return float64(f), true
	case uint8:
		return float64(f), true
	case int16:
		return float64(f), true
	case uint16:
		return float64(f), true
	case int32:
		return float64(f), true
	case uint32:
		return float64(f), true
	default:
		return 0, false
	}
}
