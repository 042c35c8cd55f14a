package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PCDType is the data encoding of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	typ    []pcdValType
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Split(value, " ")
	if field != name {
		return fmt.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return fmt.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return fmt.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return fmt.Errorf("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid SIZE field %s", token)
			}
			if header.size[i] != 4 && header.size[i] != 8 {
				return fmt.Errorf("unsupported SIZE %d", header.size[i])
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return fmt.Errorf("unexpected number of fields in TYPE line")
		}
		header.typ = make([]pcdValType, len(tokens))
		for i, token := range tokens {
			switch t := pcdValType(token); t {
			case pcdValFloat, pcdValInt, pcdValUInt:
				header.typ[i] = t
			default:
				return fmt.Errorf("invalid TYPE field %s", token)
			}
		}
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return fmt.Errorf("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid COUNT field %s: %w", token, err)
			}
			if header.count[i] != 1 {
				return fmt.Errorf("unsupported COUNT %d", header.count[i])
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WIDTH field %s: %w", value, err)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid HEIGHT field %s: %w", value, err)
		}
	case "VIEWPOINT":
		// positions are stored as given; the viewpoint is only validated.
		if len(tokens) != 7 {
			return fmt.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		for _, token := range tokens {
			if _, err := strconv.ParseFloat(token, 64); err != nil {
				return fmt.Errorf("invalid VIEWPOINT field %s: %w", token, err)
			}
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid POINTS field %s: %w", value, err)
		}
		if points != header.width*header.height {
			return fmt.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return fmt.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads a PCD v0.7 stream with fields "x y z" or "x y z rgb" in ascii or binary
// encoding and calls fn for every point. The packed rgb field is accepted either as an
// integer or as a float carrying the packed bits.
func ReadPCD(inRaw io.Reader, fn func(p Point) error) error {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return err
		}
		headerLineCount++
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header, fn)
	case PCDBinary:
		return readPCDBinary(in, header, fn)
	case PCDCompressed:
		return errors.New("compressed PCD is not supported")
	default:
		return errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func readPCDAscii(in *bufio.Reader, header pcdHeader, fn func(p Point) error) error {
	for i := uint64(0); i < header.points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return errors.Errorf("unexpected number of fields in point %d", i)
		}
		var vals [4]float64
		for j, token := range tokens {
			vals[j], err = parsePCDAsciiValue(token, header, j)
			if err != nil {
				return errors.Errorf("invalid point %d field %s: %s", i, token, err)
			}
		}
		if err := fn(pcdValuesToPoint(vals, header)); err != nil {
			return err
		}
	}
	return nil
}

func parsePCDAsciiValue(token string, header pcdHeader, field int) (float64, error) {
	if field == 3 {
		if header.typ[field] == pcdValFloat {
			f, err := strconv.ParseFloat(token, 32)
			if err != nil {
				return 0, err
			}
			return float64(math.Float32bits(float32(f))), nil
		}
		u, err := strconv.ParseUint(token, 10, 32)
		return float64(u), err
	}
	return strconv.ParseFloat(token, 64)
}

func readPCDBinary(in *bufio.Reader, header pcdHeader, fn func(p Point) error) error {
	buf := make([]byte, 8)
	for i := uint64(0); i < header.points; i++ {
		var vals [4]float64
		for j := 0; j < int(header.fields); j++ {
			size := header.size[j]
			if _, err := io.ReadFull(in, buf[:size]); err != nil {
				return errors.Wrapf(err, "reading point %d", i)
			}
			vals[j] = decodePCDBinaryValue(buf[:size], header.typ[j], j == 3)
		}
		if err := fn(pcdValuesToPoint(vals, header)); err != nil {
			return err
		}
	}
	return nil
}

func decodePCDBinaryValue(b []byte, typ pcdValType, packed bool) float64 {
	if len(b) == 8 {
		bits := binary.LittleEndian.Uint64(b)
		switch typ {
		case pcdValFloat:
			return math.Float64frombits(bits)
		case pcdValInt:
			return float64(int64(bits))
		case pcdValUInt:
			return float64(bits)
		}
		return 0
	}
	bits := binary.LittleEndian.Uint32(b)
	if packed {
		return float64(bits)
	}
	switch typ {
	case pcdValFloat:
		return float64(math.Float32frombits(bits))
	case pcdValInt:
		return float64(int32(bits))
	case pcdValUInt:
		return float64(bits)
	}
	return 0
}

func pcdValuesToPoint(vals [4]float64, header pcdHeader) Point {
	p := Point{Position: NewVector(vals[0], vals[1], vals[2]), Color: White}
	if header.fields == pcdPointColor {
		p.Color = pcdIntToColor(uint32(vals[3]))
	}
	return p
}

func pcdIntToColor(c uint32) RGB {
	return RGB{uint8(0xFF & (c >> 16)), uint8(0xFF & (c >> 8)), uint8(0xFF & c)}
}

func colorToPCDInt(c RGB) uint32 {
	return uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
}

// WritePCD writes the points as an ascii or binary PCD v0.7 stream with fields x y z rgb.
// It is the inverse of ReadPCD for those encodings.
func WritePCD(out io.Writer, points []Point, outputType PCDType) error {
	var typeLine string
	switch outputType {
	case PCDAscii:
		typeLine = "ascii"
	case PCDBinary:
		typeLine = "binary"
	case PCDCompressed:
		return errors.New("compressed PCD is not supported")
	default:
		return errors.Errorf("unknown PCD type %d", outputType)
	}
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z rgb\n"+
		"SIZE 8 8 8 4\n"+
		"TYPE F F F U\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n", len(points), len(points), typeLine); err != nil {
		return err
	}
	buf := make([]byte, 28)
	for _, p := range points {
		var err error
		switch outputType {
		case PCDBinary:
			binary.LittleEndian.PutUint64(buf, math.Float64bits(p.Position.X))
			binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Position.Y))
			binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(p.Position.Z))
			binary.LittleEndian.PutUint32(buf[24:], colorToPCDInt(p.Color))
			_, err = out.Write(buf)
		default:
			_, err = fmt.Fprintf(out, "%s %s %s %d\n",
				strconv.FormatFloat(p.Position.X, 'g', -1, 64),
				strconv.FormatFloat(p.Position.Y, 'g', -1, 64),
				strconv.FormatFloat(p.Position.Z, 'g', -1, 64),
				colorToPCDInt(p.Color))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
