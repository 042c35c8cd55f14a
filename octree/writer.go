package octree

import (
	"bufio"
	"context"
	"math"
	"os"
	"runtime"

	"github.com/docker/go-units"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/lidarexport/pointcloud"
	rutils "go.viam.com/lidarexport/utils"
)

// WriteFile writes the tree to a new store file at fn, replacing any existing file. A
// partially written file is removed.
func WriteFile(fn string, tree *Tree) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return rutils.NewIOError("create store", fn, err)
	}
	defer func() {
		err = multierr.Combine(err, rutils.NewIOError("close store", fn, f.Close()))
		if err != nil {
			rutils.RemoveFileNoError(fn)
		}
	}()

	w := &offsetWriter{w: bufio.NewWriter(f)}
	// the header is patched in once the index offset is known.
	if err := w.write(make([]byte, headerSize)); err != nil {
		return rutils.NewIOError("write store", fn, err)
	}

	order := layout(tree.root)
	entries := make([]nodeEntry, len(order))
	nextChild := uint32(1)
	for i, n := range order {
		entry := nodeEntry{nodeType: n.nodeType}
		switch n.nodeType {
		case InternalNode:
			entry.childBase = nextChild
			nextChild += uint32(len(n.children))
		case LeafNodeFilled:
			if uint64(len(n.points)) > math.MaxUint32 {
				return errors.Errorf("leaf holds %d points, too many for one tile", len(n.points))
			}
			tile, checksum := encodeTile(n.points)
			entry.numPoints = uint32(len(n.points))
			entry.tileOffset = w.offset
			entry.tileLength = uint32(len(tile))
			entry.checksum = checksum
			if err := w.write(tile); err != nil {
				return rutils.NewIOError("write store", fn, err)
			}
		case LeafNodeEmpty:
		}
		entries[i] = entry
	}

	header := fileHeader{
		version:       formatVersion,
		maxLeafPoints: uint32(tree.maxLeafPoints),
		bounds:        tree.bounds,
		numNodes:      uint32(len(entries)),
		numPoints:     uint64(tree.stats.NumPoints),
		indexOffset:   w.offset,
	}
	buf := make([]byte, nodeEntrySize)
	for _, entry := range entries {
		entry.marshalTo(buf)
		if err := w.write(buf); err != nil {
			return rutils.NewIOError("write store", fn, err)
		}
	}
	if err := w.w.Flush(); err != nil {
		return rutils.NewIOError("write store", fn, err)
	}
	if _, err := f.WriteAt(header.marshal(), 0); err != nil {
		return rutils.NewIOError("write store header", fn, err)
	}
	return nil
}

// layout orders nodes breadth first so that the children of every internal node sit next
// to each other in the index.
func layout(root *node) []*node {
	order := []*node{root}
	for i := 0; i < len(order); i++ {
		order = append(order, order[i].children...)
	}
	return order
}

type offsetWriter struct {
	w      *bufio.Writer
	offset uint64
}

func (ow *offsetWriter) write(b []byte) error {
	n, err := ow.w.Write(b)
	ow.offset += uint64(n)
	return err
}

// BuildStats reports what BuildFile produced.
type BuildStats struct {
	TreeStats
	Bounds    pointcloud.Box
	FileBytes int64
}

// BuildFile reads every input file, builds a tree over all of their points and writes it
// to output. Inputs are read concurrently but their points are kept in the order given.
func BuildFile(
	ctx context.Context,
	inputs []string,
	output string,
	opts BuildOptions,
	logger golog.Logger,
) (BuildStats, error) {
	if len(inputs) == 0 {
		return BuildStats{}, errors.New("no input files given")
	}
	perInput := make([][]pointcloud.Point, len(inputs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for i, input := range inputs {
		i, input := i, input
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			var read []pointcloud.Point
			if err := pointcloud.ReadFile(input, logger, func(p pointcloud.Point) error {
				if len(read)%(1<<16) == 0 {
					if err := groupCtx.Err(); err != nil {
						return err
					}
				}
				read = append(read, p)
				return nil
			}); err != nil {
				return err
			}
			logger.Debugw("read input", "file", input, "points", len(read))
			perInput[i] = read
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return BuildStats{}, err
	}
	points := lo.Flatten(perInput)

	tree, err := Build(points, opts)
	if err != nil {
		return BuildStats{}, err
	}
	if err := WriteFile(output, tree); err != nil {
		return BuildStats{}, err
	}

	stats := BuildStats{TreeStats: tree.Stats(), Bounds: tree.Bounds()}
	if info, err := os.Stat(output); err == nil {
		stats.FileBytes = info.Size()
	}
	logger.Infow("wrote octree store",
		"file", output,
		"points", stats.NumPoints,
		"nodes", stats.NumNodes,
		"leaves", stats.NumLeaves,
		"depth", stats.MaxDepth,
		"size", units.BytesSize(float64(stats.FileBytes)))
	return stats, nil
}
