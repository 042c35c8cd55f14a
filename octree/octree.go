// Package octree implements an out-of-core octree store for point clouds. A store is a
// single file holding a node index and compressed point tiles; queries walk the index
// depth first, prune cells outside the query region and load leaf tiles through a byte
// budgeted node cache, so their memory use does not depend on the size of the dataset.
package octree

import (
	"fmt"

	"go.viam.com/lidarexport/pointcloud"
)

// Each node in the octree is either an internal node which links to eight children, an
// empty leaf with no points, or a filled leaf which owns one tile of points.
const (
	InternalNode = NodeType(iota)
	LeafNodeEmpty
	LeafNodeFilled
)

// NodeType represents the possible types of nodes in an octree.
type NodeType uint8

func (t NodeType) String() string {
	switch t {
	case InternalNode:
		return "internal"
	case LeafNodeEmpty:
		return "empty leaf"
	case LeafNodeFilled:
		return "filled leaf"
	default:
		return fmt.Sprintf("unknown node type %d", uint8(t))
	}
}

// Tree is an octree held in memory, as produced by Build and consumed by WriteFile.
type Tree struct {
	bounds        pointcloud.Box
	maxLeafPoints int
	root          *node
	stats         TreeStats
}

// TreeStats describes the shape of a tree.
type TreeStats struct {
	NumPoints int
	NumNodes  int
	NumLeaves int
	MaxDepth  int
}

type node struct {
	nodeType NodeType
	children []*node
	points   []pointcloud.Point
}

func newLeafNodeEmpty() *node {
	return &node{nodeType: LeafNodeEmpty}
}

func newLeafNodeFilled(points []pointcloud.Point) *node {
	return &node{nodeType: LeafNodeFilled, points: points}
}

func newInternalNode(children []*node) *node {
	return &node{nodeType: InternalNode, children: children}
}

// Bounds returns the box covering every point of the tree.
func (tree *Tree) Bounds() pointcloud.Box {
	return tree.bounds
}

// Stats returns the shape of the tree.
func (tree *Tree) Stats() TreeStats {
	return tree.stats
}

// Iterate walks the tree depth first in octant order and calls fn for every point. If fn
// returns false, iteration stops.
func (tree *Tree) Iterate(fn func(p pointcloud.Point) bool) {
	tree.root.iterate(fn)
}

func (n *node) iterate(fn func(p pointcloud.Point) bool) bool {
	switch n.nodeType {
	case InternalNode:
		for _, child := range n.children {
			if !child.iterate(fn) {
				return false
			}
		}
	case LeafNodeFilled:
		for _, p := range n.points {
			if !fn(p) {
				return false
			}
		}
	case LeafNodeEmpty:
	}
	return true
}
