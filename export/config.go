package export

import (
	"math"
	"strconv"
	"strings"

	"github.com/edaniels/golog"

	"go.viam.com/lidarexport/pointcloud"
	rutils "go.viam.com/lidarexport/utils"
)

// DefaultCacheMiB is the node cache budget used when -cache is not given.
const DefaultCacheMiB = 512

// Usage describes the exporter command line.
const Usage = `usage: lidarexport [-cache <MiB>] [-box <minx> <miny> <minz> <maxx> <maxy> <maxz>] <input store> <output file>

Writes every point of the input octree store that lies inside the box (all points
without -box) to the output file, one "x y z r g b" line per point.`

// Config is everything one export needs.
type Config struct {
	StorePath  string
	OutputPath string
	// CacheBytes is the node cache budget in bytes.
	CacheBytes int64
	Region     pointcloud.Region
}

// ParseArgs builds a Config from command line arguments, not including the program name.
//
// Options start with a single '-' and are matched case-insensitively: -cache takes a size
// in mebibytes and -box takes six coordinates. The first two remaining arguments name the
// input store and the output file. Unknown options and extra arguments are reported to
// logger and otherwise ignored.
func ParseArgs(args []string, logger golog.Logger) (Config, error) {
	cfg := Config{
		CacheBytes: DefaultCacheMiB << 20,
		Region:     pointcloud.Unbounded{},
	}
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		switch name := arg[1:]; {
		case strings.EqualFold(name, "cache"):
			values, err := optionValues(args, i, 1)
			if err != nil {
				return Config{}, err
			}
			i++
			mib, err := strconv.ParseInt(values[0], 10, 64)
			if err != nil || mib < 0 || mib > math.MaxInt64>>20 {
				return Config{}, rutils.NewUsageError("invalid cache size %q for %s", values[0], arg)
			}
			cfg.CacheBytes = mib << 20
		case strings.EqualFold(name, "box"):
			values, err := optionValues(args, i, 6)
			if err != nil {
				return Config{}, err
			}
			i += 6
			var coords [6]float64
			for j, value := range values {
				coords[j], err = strconv.ParseFloat(value, 64)
				if err != nil {
					return Config{}, rutils.NewUsageError("invalid box coordinate %q for %s", value, arg)
				}
			}
			cfg.Region = pointcloud.NewBox(coords[0], coords[1], coords[2], coords[3], coords[4], coords[5])
		default:
			logger.Warnf("Ignoring command line option %s", arg)
		}
	}

	switch len(positional) {
	case 0:
		return Config{}, rutils.NewUsageError("No input LiDAR file name provided")
	case 1:
		return Config{}, rutils.NewUsageError("No output ASCII file name provided")
	}
	cfg.StorePath, cfg.OutputPath = positional[0], positional[1]
	for _, extra := range positional[2:] {
		logger.Warnf("Ignoring command line argument %s", extra)
	}
	return cfg, nil
}

// optionValues returns the n arguments following the option at args[i].
func optionValues(args []string, i, n int) ([]string, error) {
	if len(args)-i-1 < n {
		if n == 1 {
			return nil, rutils.NewUsageError("%s needs a value", args[i])
		}
		return nil, rutils.NewUsageError("%s needs %d values", args[i], n)
	}
	return args[i+1 : i+1+n], nil
}
