package pointcloud

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// xyzrgbCommentChar starts a comment in xyzrgb input. Output never contains comments.
const xyzrgbCommentChar = "#"

// AppendXYZRGB appends the xyzrgb line for p to dst and returns the extended buffer. The
// line is "x y z r g b\n" with positions in fixed point with exactly six decimals and
// colors as three digit zero padded integers.
func AppendXYZRGB(dst []byte, p Point) []byte {
	dst = strconv.AppendFloat(dst, p.Position.X, 'f', 6, 64)
	dst = append(dst, ' ')
	dst = strconv.AppendFloat(dst, p.Position.Y, 'f', 6, 64)
	dst = append(dst, ' ')
	dst = strconv.AppendFloat(dst, p.Position.Z, 'f', 6, 64)
	for _, c := range p.Color {
		dst = append(dst, ' ', '0'+c/100, '0'+(c/10)%10, '0'+c%10)
	}
	return append(dst, '\n')
}

// FormatXYZRGB returns the xyzrgb line for p, including the trailing newline.
func FormatXYZRGB(p Point) string {
	return string(AppendXYZRGB(make([]byte, 0, 64), p))
}

// ParseXYZRGB parses a single xyzrgb line as written by AppendXYZRGB. A trailing newline
// is allowed. Exactly six fields are required.
func ParseXYZRGB(line string) (Point, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return Point{}, errors.Errorf("expected 6 fields in xyzrgb line but got %d", len(fields))
	}
	return parseXYZRGBFields(fields)
}

func parseXYZRGBFields(fields []string) (Point, error) {
	var p Point
	var coords [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Point{}, errors.Wrapf(err, "invalid coordinate %q", fields[i])
		}
		coords[i] = v
	}
	p.Position = NewVector(coords[0], coords[1], coords[2])
	if len(fields) == 3 {
		p.Color = White
		return p, nil
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(fields[3+i], 10, 8)
		if err != nil {
			return Point{}, errors.Wrapf(err, "invalid color channel %q", fields[3+i])
		}
		p.Color[i] = uint8(v)
	}
	return p, nil
}

// ReadXYZRGB reads whitespace separated "x y z" or "x y z r g b" lines and calls fn for
// every point in file order. Blank lines and lines starting with # are skipped. Points
// without color are white.
func ReadXYZRGB(in io.Reader, fn func(p Point) error) error {
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, xyzrgbCommentChar) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 && len(fields) != 6 {
			return errors.Errorf("line %d: expected 3 or 6 fields but got %d", lineNum, len(fields))
		}
		p, err := parseXYZRGBFields(fields)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNum)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return scanner.Err()
}
