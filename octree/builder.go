package octree

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/lidarexport/pointcloud"
)

// Defaults for BuildOptions.
const (
	DefaultMaxLeafPoints = 4096
	DefaultMaxDepth      = 21
)

// BuildOptions control how points are partitioned into nodes.
type BuildOptions struct {
	// MaxLeafPoints is the number of points a leaf may hold before it is split.
	MaxLeafPoints int
	// MaxDepth stops splitting; leaves at this depth hold any number of points. It keeps
	// clusters of identical positions from splitting forever.
	MaxDepth int
}

func (opts BuildOptions) withDefaults() BuildOptions {
	if opts.MaxLeafPoints <= 0 {
		opts.MaxLeafPoints = DefaultMaxLeafPoints
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return opts
}

// Build partitions points into an octree whose root covers their bounding box. Points
// keep their relative order within a leaf, so building the same input twice yields the
// same tree.
func Build(points []pointcloud.Point, opts BuildOptions) (*Tree, error) {
	opts = opts.withDefaults()
	if uint64(opts.MaxLeafPoints) > math.MaxUint32 {
		return nil, errors.Errorf("max leaf points %d too large", opts.MaxLeafPoints)
	}

	bounds := pointcloud.EmptyBox
	for i, p := range points {
		v := p.Position
		if !isFinite(v.X) || !isFinite(v.Y) || !isFinite(v.Z) {
			return nil, errors.Errorf("point %d has a non-finite position %v", i, v)
		}
		bounds = bounds.Expand(v)
	}

	tree := &Tree{bounds: bounds, maxLeafPoints: opts.MaxLeafPoints}
	tree.root = tree.build(points, bounds, 0, opts)
	tree.stats.NumPoints = len(points)
	return tree, nil
}

func (tree *Tree) build(points []pointcloud.Point, cell pointcloud.Box, depth int, opts BuildOptions) *node {
	tree.stats.NumNodes++
	tree.stats.MaxDepth = max(tree.stats.MaxDepth, depth)
	if len(points) == 0 {
		tree.stats.NumLeaves++
		return newLeafNodeEmpty()
	}
	if len(points) <= opts.MaxLeafPoints || depth >= opts.MaxDepth {
		tree.stats.NumLeaves++
		return newLeafNodeFilled(points)
	}

	octants := lo.GroupBy(points, func(p pointcloud.Point) int {
		return cell.OctantOf(p.Position)
	})
	children := make([]*node, 8)
	for octant := range children {
		children[octant] = tree.build(octants[octant], cell.Octant(octant), depth+1, opts)
	}
	return newInternalNode(children)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
