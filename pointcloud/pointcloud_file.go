package pointcloud

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	rutils "go.viam.com/lidarexport/utils"
)

// ReadFile reads the points of the given file, choosing a reader by extension, and calls
// fn for every point in file order.
//
//	.las               LAS via lidario
//	.pcd               PCD v0.7, ascii or binary
//	.ply               ascii PLY vertices
//	.xyz .txt .xyzrgb  whitespace separated text
func ReadFile(fn string, logger golog.Logger, visit func(p Point) error) error {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".las":
		return ReadLAS(fn, logger, visit)
	case ".pcd":
		return readWith(fn, visit, ReadPCD)
	case ".ply":
		return readWith(fn, visit, ReadPLY)
	case ".xyz", ".txt", ".xyzrgb":
		return readWith(fn, visit, ReadXYZRGB)
	default:
		return rutils.NewFormatError(fn, "do not know how to read file with extension %q", filepath.Ext(fn))
	}
}

// SupportedExtensions are the file extensions ReadFile understands.
var SupportedExtensions = []string{".las", ".pcd", ".ply", ".xyz", ".txt", ".xyzrgb"}

// readWith opens fn and runs read against it. Errors returned by visit pass through
// untouched; anything else coming out of read is a format error since the file itself
// opened fine.
func readWith(fn string, visit func(p Point) error, read func(in io.Reader, visit func(p Point) error) error) error {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return rutils.NewIOError("open", fn, err)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var visitErr error
	err = read(f, func(p Point) error {
		visitErr = visit(p)
		return visitErr
	})
	switch {
	case err == nil:
		return nil
	case visitErr != nil:
		return visitErr
	default:
		return rutils.NewFormatError(fn, "%v", err)
	}
}
