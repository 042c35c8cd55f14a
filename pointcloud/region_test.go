package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestUnbounded(t *testing.T) {
	var region Region = Unbounded{}
	for _, p := range []r3.Vector{
		{},
		{X: -1e300, Y: 1e300, Z: 0},
		{X: math.Inf(1), Y: math.Inf(-1), Z: 5},
	} {
		test.That(t, region.Contains(p), test.ShouldBeTrue)
	}
	test.That(t, region.Overlaps(NewBox(0, 0, 0, 1, 1, 1)), test.ShouldBeTrue)
	test.That(t, region.Encloses(NewBox(-1e9, -1e9, -1e9, 1e9, 1e9, 1e9)), test.ShouldBeTrue)
	test.That(t, region.IsEmpty(), test.ShouldBeFalse)
	test.That(t, region.String(), test.ShouldEqual, "unbounded")
}

func TestBoxContains(t *testing.T) {
	box := NewBox(0, 0, 0, 2, 2, 4)

	t.Run("interior", func(t *testing.T) {
		test.That(t, box.Contains(NewVector(1, 2, 3)), test.ShouldBeTrue)
		test.That(t, box.Contains(NewVector(5, 5, 5)), test.ShouldBeFalse)
	})

	t.Run("faces are inclusive", func(t *testing.T) {
		for _, p := range []r3.Vector{
			{X: 2, Y: 1, Z: 1},
			{X: 0, Y: 1, Z: 1},
			{X: 1, Y: 2, Z: 1},
			{X: 1, Y: 0, Z: 1},
			{X: 1, Y: 1, Z: 4},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 0},
			{X: 2, Y: 2, Z: 4},
		} {
			test.That(t, box.Contains(p), test.ShouldBeTrue)
		}
	})

	t.Run("just outside", func(t *testing.T) {
		test.That(t, box.Contains(NewVector(2+1e-9, 1, 1)), test.ShouldBeFalse)
		test.That(t, box.Contains(NewVector(-1e-9, 1, 1)), test.ShouldBeFalse)
		test.That(t, box.Contains(NewVector(1, 1, 4+1e-9)), test.ShouldBeFalse)
	})

	t.Run("NaN is never contained", func(t *testing.T) {
		test.That(t, box.Contains(NewVector(math.NaN(), 1, 1)), test.ShouldBeFalse)
	})
}

func TestAdjacentBoxesShareFace(t *testing.T) {
	left := NewBox(0, 0, 0, 1, 1, 1)
	right := NewBox(1, 0, 0, 2, 1, 1)
	onFace := NewVector(1, 0.5, 0.5)
	test.That(t, left.Contains(onFace), test.ShouldBeTrue)
	test.That(t, right.Contains(onFace), test.ShouldBeTrue)

	inside := NewVector(0.5, 0.5, 0.5)
	test.That(t, left.Contains(inside), test.ShouldBeTrue)
	test.That(t, right.Contains(inside), test.ShouldBeFalse)
}

func TestDegenerateBox(t *testing.T) {
	box := NewBox(3, 0, 0, 1, 10, 10)
	test.That(t, box.Min, test.ShouldResemble, NewVector(3, 0, 0))
	test.That(t, box.Max, test.ShouldResemble, NewVector(1, 10, 10))
	test.That(t, box.IsEmpty(), test.ShouldBeTrue)
	for _, p := range []r3.Vector{
		{X: 1, Y: 1, Z: 1},
		{X: 2, Y: 1, Z: 1},
		{X: 3, Y: 1, Z: 1},
	} {
		test.That(t, box.Contains(p), test.ShouldBeFalse)
	}
	test.That(t, box.Overlaps(NewBox(-100, -100, -100, 100, 100, 100)), test.ShouldBeFalse)
	test.That(t, box.Encloses(NewBox(2, 1, 1, 2, 1, 1)), test.ShouldBeFalse)

	test.That(t, NewBox(0, 0, 0, 0, 0, 0).IsEmpty(), test.ShouldBeFalse)
	test.That(t, NewBox(0, 0, 0, 0, 0, 0).Contains(NewVector(0, 0, 0)), test.ShouldBeTrue)
	test.That(t, EmptyBox.IsEmpty(), test.ShouldBeTrue)
}

func TestBoxOverlapsAndEncloses(t *testing.T) {
	box := NewBox(0, 0, 0, 10, 10, 10)
	for _, tc := range []struct {
		name     string
		cell     Box
		overlaps bool
		encloses bool
	}{
		{"inside", NewBox(1, 1, 1, 2, 2, 2), true, true},
		{"same", box, true, true},
		{"partial", NewBox(5, 5, 5, 15, 15, 15), true, false},
		{"touching face", NewBox(10, 0, 0, 20, 10, 10), true, false},
		{"disjoint", NewBox(11, 0, 0, 20, 10, 10), false, false},
		{"surrounding", NewBox(-1, -1, -1, 11, 11, 11), true, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, box.Overlaps(tc.cell), test.ShouldEqual, tc.overlaps)
			test.That(t, box.Encloses(tc.cell), test.ShouldEqual, tc.encloses)
		})
	}
}

func TestBoxOctants(t *testing.T) {
	box := NewBox(0, 0, 0, 2, 4, 8)
	test.That(t, box.Center(), test.ShouldResemble, NewVector(1, 2, 4))
	test.That(t, box.Size(), test.ShouldResemble, NewVector(2, 4, 8))

	test.That(t, box.Octant(0), test.ShouldResemble, NewBox(0, 0, 0, 1, 2, 4))
	test.That(t, box.Octant(7), test.ShouldResemble, NewBox(1, 2, 4, 2, 4, 8))
	test.That(t, box.Octant(5), test.ShouldResemble, NewBox(1, 0, 4, 2, 2, 8))

	for _, p := range []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 2, Z: 4},
		{X: 2, Y: 4, Z: 8},
		{X: 0.3, Y: 3.9, Z: 4},
		{X: 1.999, Y: 0, Z: 7},
	} {
		octant := box.OctantOf(p)
		test.That(t, octant, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, octant, test.ShouldBeLessThan, 8)
		test.That(t, box.Octant(octant).Contains(p), test.ShouldBeTrue)
	}
	test.That(t, box.OctantOf(NewVector(1, 2, 4)), test.ShouldEqual, 7)
	test.That(t, box.OctantOf(NewVector(0, 0, 0)), test.ShouldEqual, 0)
}

func TestBoxExpand(t *testing.T) {
	box := EmptyBox
	box = box.Expand(NewVector(1, 2, 3))
	test.That(t, box, test.ShouldResemble, NewBox(1, 2, 3, 1, 2, 3))
	box = box.Expand(NewVector(-1, 5, 0))
	test.That(t, box, test.ShouldResemble, NewBox(-1, 2, 0, 1, 5, 3))
	test.That(t, box.String(), test.ShouldEqual, "box[(-1, 2, 0) - (1, 5, 3)]")
}
