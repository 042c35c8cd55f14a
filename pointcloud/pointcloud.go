// Package pointcloud defines the point record streamed out of an octree store, the region
// filter used to select a spatial subset of those points, and readers for the point file
// formats a store can be built from.
package pointcloud

// Consumer receives points one at a time. A query delivers each matching point to the
// consumer exactly once, synchronously, before the query call returns. Returning an error
// aborts the query and the error is passed back to the caller unchanged.
type Consumer interface {
	Consume(p Point) error
}

// ConsumerFunc adapts a plain function to a Consumer.
type ConsumerFunc func(p Point) error

// Consume calls f(p).
func (f ConsumerFunc) Consume(p Point) error {
	return f(p)
}

// Collect returns a Consumer that appends every point it sees to the given slice. It is
// meant for tests and small queries; exports should stream instead.
func Collect(into *[]Point) Consumer {
	return ConsumerFunc(func(p Point) error {
		*into = append(*into, p)
		return nil
	})
}
