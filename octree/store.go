package octree

import (
	"context"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lidarexport/pointcloud"
	rutils "go.viam.com/lidarexport/utils"
)

// Store is a read-only handle on an octree store file. It is not safe for concurrent use;
// queries run on the calling goroutine.
type Store struct {
	path   string
	f      *os.File
	header fileHeader
	index  []nodeEntry
	cache  *nodeCache
	logger golog.Logger
}

// Open opens the store at path. cacheBytes is the budget for decoded leaf tiles kept
// between reads; zero disables caching. Missing or unreadable files are reported as
// IOErrors and files that are not valid stores as FormatErrors.
func Open(path string, cacheBytes int64, logger golog.Logger) (_ *Store, err error) {
	if cacheBytes < 0 {
		return nil, errors.Errorf("cache budget must not be negative (%d)", cacheBytes)
	}
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, rutils.NewIOError("open store", path, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, f.Close())
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, rutils.NewIOError("stat store", path, err)
	}
	if info.IsDir() {
		return nil, rutils.NewIOError("open store", path, errors.New("is a directory"))
	}

	headerBuf := make([]byte, headerSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, rutils.NewFormatError(path, "truncated header: file is %d bytes", info.Size())
		}
		return nil, rutils.NewIOError("read store header", path, err)
	}
	header, err := unmarshalHeader(headerBuf)
	if err != nil {
		return nil, rutils.NewFormatError(path, "%v", err)
	}

	indexBytes := uint64(header.numNodes) * nodeEntrySize
	size := uint64(info.Size())
	if header.numNodes == 0 || header.indexOffset < headerSize || header.indexOffset > size ||
		indexBytes != size-header.indexOffset {
		return nil, rutils.NewFormatError(path, "node index of %d nodes at offset %d does not end the %d byte file",
			header.numNodes, header.indexOffset, info.Size())
	}
	indexBuf := make([]byte, indexBytes)
	if _, err := f.ReadAt(indexBuf, int64(header.indexOffset)); err != nil {
		return nil, rutils.NewIOError("read store index", path, err)
	}
	index := make([]nodeEntry, header.numNodes)
	for i := range index {
		index[i] = unmarshalNodeEntry(indexBuf[i*nodeEntrySize:])
	}
	if err := validateIndex(header, index); err != nil {
		return nil, rutils.NewFormatError(path, "%v", err)
	}

	cache, err := newNodeCache(cacheBytes)
	if err != nil {
		return nil, err
	}

	logger.Debugw("opened octree store",
		"path", path,
		"points", header.numPoints,
		"nodes", header.numNodes,
		"bounds", header.bounds,
		"cache", units.BytesSize(float64(cacheBytes)))

	return &Store{
		path:   path,
		f:      f,
		header: header,
		index:  index,
		cache:  cache,
		logger: logger,
	}, nil
}

// validateIndex checks that the index forms a tree rooted at 0 in which every node has
// exactly one parent and every tile lies between the header and the index.
func validateIndex(header fileHeader, index []nodeEntry) error {
	parents := make([]int, len(index))
	var total uint64
	for i, entry := range index {
		switch entry.nodeType {
		case InternalNode:
			if uint64(entry.childBase) <= uint64(i) || uint64(entry.childBase)+8 > uint64(len(index)) {
				return errors.Errorf("node %d has children out of range at %d", i, entry.childBase)
			}
			for child := entry.childBase; child < entry.childBase+8; child++ {
				parents[child]++
			}
		case LeafNodeEmpty:
			if entry.numPoints != 0 {
				return errors.Errorf("empty node %d claims %d points", i, entry.numPoints)
			}
		case LeafNodeFilled:
			if entry.numPoints == 0 {
				return errors.Errorf("filled node %d holds no points", i)
			}
			if entry.tileOffset < headerSize || entry.tileOffset > header.indexOffset ||
				uint64(entry.tileLength) > header.indexOffset-entry.tileOffset {
				return errors.Errorf("node %d tile [%d,+%d) is out of range", i, entry.tileOffset, entry.tileLength)
			}
			total += uint64(entry.numPoints)
		default:
			return errors.Errorf("node %d has %v", i, entry.nodeType)
		}
	}
	for i := 1; i < len(parents); i++ {
		if parents[i] != 1 {
			return errors.Errorf("node %d is referenced %d times", i, parents[i])
		}
	}
	if total != header.numPoints {
		return errors.Errorf("leaves hold %d points but header says %d", total, header.numPoints)
	}
	return nil
}

// Bounds returns the box covering every point in the store.
func (s *Store) Bounds() pointcloud.Box {
	return s.header.bounds
}

// NumPoints returns the number of points in the store.
func (s *Store) NumPoints() uint64 {
	return s.header.numPoints
}

// NumNodes returns the number of nodes in the store's index.
func (s *Store) NumNodes() int {
	return len(s.index)
}

// MaxLeafPoints returns the leaf capacity the store was built with.
func (s *Store) MaxLeafPoints() int {
	return int(s.header.maxLeafPoints)
}

// LeafSizes returns the point count of every filled leaf, in index order.
func (s *Store) LeafSizes() []int {
	var sizes []int
	for _, entry := range s.index {
		if entry.nodeType == LeafNodeFilled {
			sizes = append(sizes, int(entry.numPoints))
		}
	}
	return sizes
}

// Stats returns the node cache statistics accumulated over all queries so far.
func (s *Store) Stats() CacheStats {
	return s.cache.stats
}

// QueryBox delivers every stored point inside region to consumer exactly once, walking
// the octree depth first with children in octant order. Cells outside the region are
// skipped without reading them and points of cells entirely inside the region are not
// tested individually. The order is fixed for a given store file.
//
// A consumer error stops the query and is returned as is. A failure reading the store
// stops the query too; points already delivered stay delivered.
func (s *Store) QueryBox(ctx context.Context, region pointcloud.Region, consumer pointcloud.Consumer) error {
	if s.f == nil {
		return errors.New("store is closed")
	}
	if region == nil {
		return errors.New("no region given")
	}
	if region.IsEmpty() {
		return nil
	}
	return s.visit(ctx, 0, s.header.bounds, region, consumer)
}

func (s *Store) visit(
	ctx context.Context,
	idx uint32,
	cell pointcloud.Box,
	region pointcloud.Region,
	consumer pointcloud.Consumer,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !region.Overlaps(cell) {
		return nil
	}

	entry := s.index[idx]
	switch entry.nodeType {
	case InternalNode:
		for octant := 0; octant < 8; octant++ {
			if err := s.visit(ctx, entry.childBase+uint32(octant), cell.Octant(octant), region, consumer); err != nil {
				return err
			}
		}
	case LeafNodeFilled:
		points, err := s.loadNode(idx, entry, cell)
		if err != nil {
			return err
		}
		enclosed := region.Encloses(cell)
		for _, p := range points {
			if !enclosed && !region.Contains(p.Position) {
				continue
			}
			if err := consumer.Consume(p); err != nil {
				return err
			}
		}
	case LeafNodeEmpty:
	}
	return nil
}

// loadNode returns the points of a filled leaf, from the cache if possible.
func (s *Store) loadNode(idx uint32, entry nodeEntry, cell pointcloud.Box) ([]pointcloud.Point, error) {
	if points, ok := s.cache.get(idx); ok {
		return points, nil
	}
	tile := make([]byte, entry.tileLength)
	if _, err := s.f.ReadAt(tile, int64(entry.tileOffset)); err != nil {
		return nil, rutils.NewIOError("read store tile", s.path, err)
	}
	points, err := decodeTile(tile, entry)
	if err != nil {
		return nil, rutils.NewFormatError(s.path, "node %d: %v", idx, err)
	}
	for _, p := range points {
		if !cell.Contains(p.Position) {
			return nil, rutils.NewFormatError(s.path, "node %d: point %v lies outside its cell %v", idx, p.Position, cell)
		}
	}
	s.cache.add(idx, points)
	return points, nil
}

// Close releases the store file and drops all cached nodes.
func (s *Store) Close() error {
	if s.f == nil {
		return nil
	}
	s.logger.Debugw("closing octree store",
		"path", s.path,
		"cache_hits", s.cache.stats.Hits,
		"cache_misses", s.cache.stats.Misses,
		"cache_evictions", s.cache.stats.Evictions)
	s.cache.purge()
	err := s.f.Close()
	s.f = nil
	return rutils.NewIOError("close store", s.path, err)
}
