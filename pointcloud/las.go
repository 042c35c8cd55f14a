package pointcloud

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/edaniels/lidario"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	rutils "go.viam.com/lidarexport/utils"
)

// float64 represents integers exactly only within this range; LAS coordinates outside of
// it may have lost precision on the way in.
const (
	maxPreciseFloat64 = float64(1 << 53)
	minPreciseFloat64 = -maxPreciseFloat64
)

// ReadLAS reads every point of a LAS file and calls fn for each one in file order. 16-bit
// LAS colors are reduced to 8 bits; points of uncolored formats are white. If any lossiness
// of points could occur from reading it in, it's reported but is not an error.
func ReadLAS(fn string, logger golog.Logger, visit func(p Point) error) error {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return rutils.NewIOError("open LAS file", fn, err)
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	warned := false
	for i := 0; i < lf.Header.NumberPoints; i++ {
		lp, err := lf.LasPoint(i)
		if err != nil {
			return rutils.NewFormatError(fn, "reading point %d: %v", i, err)
		}
		data := lp.PointData()

		x, y, z := data.X, data.Y, data.Z
		if !warned && (x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64) {
			warned = true
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", data, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}

		p := Point{Position: NewVector(x, y, z), Color: White}
		if rgb := lp.RgbData(); rgb != nil {
			p.Color = RGB{uint8(rgb.Red / 256), uint8(rgb.Green / 256), uint8(rgb.Blue / 256)}
		}
		if err := visit(p); err != nil {
			return err
		}
	}
	return nil
}

// WriteLAS writes the points out to a LAS file using point format 2 so that colors
// survive the round trip.
func WriteLAS(fn string, points []Point) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return rutils.NewIOError("create LAS file", fn, err)
	}
	defer func() {
		err = multierr.Combine(err, rutils.NewIOError("close LAS file", fn, lf.Close()))
	}()

	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: 2,
	}); err != nil {
		return rutils.NewIOError("write LAS header", fn, err)
	}

	for _, p := range points {
		pr0 := &lidario.PointRecord0{
			X: p.Position.X,
			Y: p.Position.Y,
			Z: p.Position.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		}
		lp := &lidario.PointRecord2{
			PointRecord0: pr0,
			RGB: &lidario.RgbData{
				Red:   uint16(p.Color[0]) * 256,
				Green: uint16(p.Color[1]) * 256,
				Blue:  uint16(p.Color[2]) * 256,
			},
		}
		if err = lf.AddLasPoint(lp); err != nil {
			return rutils.NewIOError("write LAS point", fn, err)
		}
	}
	return nil
}
