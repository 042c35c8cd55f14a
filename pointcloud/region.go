package pointcloud

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Region is the bounding volume a query is restricted to. It is a closed set of two
// variants, Unbounded and Box; no other type can satisfy it.
type Region interface {
	fmt.Stringer

	// Contains reports whether a point at p is inside the region.
	Contains(p r3.Vector) bool

	// Overlaps reports whether any point of the cell could be inside the region. A false
	// result lets a traversal skip the whole cell.
	Overlaps(cell Box) bool

	// Encloses reports whether every point of the cell is inside the region, in which
	// case a traversal can deliver the cell's points without testing each one.
	Encloses(cell Box) bool

	// IsEmpty reports whether the region can contain no point at all.
	IsEmpty() bool

	isRegion()
}

// Unbounded is the region containing every point.
type Unbounded struct{}

// Contains always returns true.
func (Unbounded) Contains(r3.Vector) bool { return true }

// Overlaps always returns true.
func (Unbounded) Overlaps(Box) bool { return true }

// Encloses always returns true.
func (Unbounded) Encloses(Box) bool { return true }

// IsEmpty always returns false.
func (Unbounded) IsEmpty() bool { return false }

func (Unbounded) String() string { return "unbounded" }

func (Unbounded) isRegion() {}

// Box is an axis-aligned box with inclusive faces. Min and Max are taken as given: a box
// with Min greater than Max on some axis is legal and contains no points.
type Box struct {
	Min, Max r3.Vector
}

// NewBox returns the box spanning the given corners without reordering them.
func NewBox(minX, minY, minZ, maxX, maxY, maxZ float64) Box {
	return Box{Min: r3.Vector{X: minX, Y: minY, Z: minZ}, Max: r3.Vector{X: maxX, Y: maxY, Z: maxZ}}
}

// Contains reports whether min <= p <= max holds on every axis.
func (b Box) Contains(p r3.Vector) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X &&
		b.Min.Y <= p.Y && p.Y <= b.Max.Y &&
		b.Min.Z <= p.Z && p.Z <= b.Max.Z
}

// Overlaps reports whether the closed box and the closed cell share at least one point.
func (b Box) Overlaps(cell Box) bool {
	if b.IsEmpty() {
		return false
	}
	return b.Min.X <= cell.Max.X && cell.Min.X <= b.Max.X &&
		b.Min.Y <= cell.Max.Y && cell.Min.Y <= b.Max.Y &&
		b.Min.Z <= cell.Max.Z && cell.Min.Z <= b.Max.Z
}

// Encloses reports whether the cell lies entirely within the box.
func (b Box) Encloses(cell Box) bool {
	return b.Contains(cell.Min) && b.Contains(cell.Max)
}

// IsEmpty reports whether min exceeds max on any axis. NaN bounds also make a box empty.
func (b Box) IsEmpty() bool {
	return !(b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z)
}

// Center returns the midpoint of the box.
func (b Box) Center() r3.Vector {
	return r3.Vector{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Size returns the extent of the box along each axis.
func (b Box) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// OctantOf returns which of the eight octants around the center p falls in. Bit 0 is set
// when p.X >= center.X, bit 1 for Y and bit 2 for Z.
func (b Box) OctantOf(p r3.Vector) int {
	c := b.Center()
	octant := 0
	if p.X >= c.X {
		octant |= 1
	}
	if p.Y >= c.Y {
		octant |= 2
	}
	if p.Z >= c.Z {
		octant |= 4
	}
	return octant
}

// Octant returns the closed sub-box for the given octant index. The faces of every octant
// come straight from the parent's min, center and max, so a point assigned by OctantOf is
// always contained by the octant it was assigned to.
func (b Box) Octant(octant int) Box {
	c := b.Center()
	child := Box{Min: b.Min, Max: c}
	if octant&1 != 0 {
		child.Min.X, child.Max.X = c.X, b.Max.X
	}
	if octant&2 != 0 {
		child.Min.Y, child.Max.Y = c.Y, b.Max.Y
	}
	if octant&4 != 0 {
		child.Min.Z, child.Max.Z = c.Z, b.Max.Z
	}
	return child
}

// Expand returns the smallest box containing both b and p. Expanding an empty box yields
// one that only holds p.
func (b Box) Expand(p r3.Vector) Box {
	if b.IsEmpty() {
		return Box{Min: p, Max: p}
	}
	return Box{
		Min: r3.Vector{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)},
		Max: r3.Vector{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)},
	}
}

func (b Box) String() string {
	return fmt.Sprintf("box[(%g, %g, %g) - (%g, %g, %g)]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

func (Box) isRegion() {}

// EmptyBox is a box that contains nothing. It is the identity for Expand.
var EmptyBox = NewBox(1, 1, 1, -1, -1, -1)
