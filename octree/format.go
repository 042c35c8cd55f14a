package octree

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/geo/r3"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"go.viam.com/lidarexport/pointcloud"
)

// A store file is laid out as
//
//	header | tile ... tile | node index
//
// All integers and floats are little endian. The node index is a flat array of fixed size
// entries with the root at index 0; the eight children of an internal node are stored
// next to each other starting at its childBase. Each filled leaf owns one snappy
// compressed tile of fixed size point records.
const (
	formatVersion = 1

	headerSize      = 88
	nodeEntrySize   = 32
	pointRecordSize = 27

	// in-memory size of a decoded pointcloud.Point: r3.Vector plus RGB, padded to 8.
	decodedPointSize = 32
)

var fileMagic = [8]byte{'L', 'P', 'O', 'C', 'T', 'R', 'E', 'E'}

type fileHeader struct {
	version       uint32
	maxLeafPoints uint32
	bounds        pointcloud.Box
	numNodes      uint32
	numPoints     uint64
	indexOffset   uint64
}

func (h fileHeader) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf, fileMagic[:])
	binary.LittleEndian.PutUint32(buf[8:], h.version)
	binary.LittleEndian.PutUint32(buf[12:], h.maxLeafPoints)
	putVector(buf[16:], h.bounds.Min.X, h.bounds.Min.Y, h.bounds.Min.Z)
	putVector(buf[40:], h.bounds.Max.X, h.bounds.Max.Y, h.bounds.Max.Z)
	binary.LittleEndian.PutUint32(buf[64:], h.numNodes)
	// 4 reserved bytes at 68
	binary.LittleEndian.PutUint64(buf[72:], h.numPoints)
	binary.LittleEndian.PutUint64(buf[80:], h.indexOffset)
	return buf
}

func unmarshalHeader(buf []byte) (fileHeader, error) {
	var h fileHeader
	if len(buf) < headerSize {
		return h, errors.Errorf("truncated header: %d bytes", len(buf))
	}
	if [8]byte(buf[:8]) != fileMagic {
		return h, errors.Errorf("bad magic %q", buf[:8])
	}
	h.version = binary.LittleEndian.Uint32(buf[8:])
	if h.version != formatVersion {
		return h, errors.Errorf("unsupported version %d", h.version)
	}
	h.maxLeafPoints = binary.LittleEndian.Uint32(buf[12:])
	h.bounds.Min = getVector(buf[16:])
	h.bounds.Max = getVector(buf[40:])
	h.numNodes = binary.LittleEndian.Uint32(buf[64:])
	h.numPoints = binary.LittleEndian.Uint64(buf[72:])
	h.indexOffset = binary.LittleEndian.Uint64(buf[80:])
	return h, nil
}

type nodeEntry struct {
	nodeType   NodeType
	childBase  uint32
	numPoints  uint32
	tileLength uint32
	tileOffset uint64
	checksum   uint64
}

func (e nodeEntry) marshalTo(buf []byte) {
	buf[0] = byte(e.nodeType)
	buf[1], buf[2], buf[3] = 0, 0, 0
	binary.LittleEndian.PutUint32(buf[4:], e.childBase)
	binary.LittleEndian.PutUint32(buf[8:], e.numPoints)
	binary.LittleEndian.PutUint32(buf[12:], e.tileLength)
	binary.LittleEndian.PutUint64(buf[16:], e.tileOffset)
	binary.LittleEndian.PutUint64(buf[24:], e.checksum)
}

func unmarshalNodeEntry(buf []byte) nodeEntry {
	return nodeEntry{
		nodeType:   NodeType(buf[0]),
		childBase:  binary.LittleEndian.Uint32(buf[4:]),
		numPoints:  binary.LittleEndian.Uint32(buf[8:]),
		tileLength: binary.LittleEndian.Uint32(buf[12:]),
		tileOffset: binary.LittleEndian.Uint64(buf[16:]),
		checksum:   binary.LittleEndian.Uint64(buf[24:]),
	}
}

// encodeTile packs points into a compressed tile and returns it with its checksum.
func encodeTile(points []pointcloud.Point) ([]byte, uint64) {
	raw := make([]byte, len(points)*pointRecordSize)
	for i, p := range points {
		rec := raw[i*pointRecordSize:]
		putVector(rec, p.Position.X, p.Position.Y, p.Position.Z)
		rec[24], rec[25], rec[26] = p.Color[0], p.Color[1], p.Color[2]
	}
	tile := snappy.Encode(nil, raw)
	return tile, xxhash.Sum64(tile)
}

// decodeTile verifies and unpacks a tile written by encodeTile.
func decodeTile(tile []byte, entry nodeEntry) ([]pointcloud.Point, error) {
	if sum := xxhash.Sum64(tile); sum != entry.checksum {
		return nil, errors.Errorf("tile checksum mismatch: want %016x got %016x", entry.checksum, sum)
	}
	want := int(entry.numPoints) * pointRecordSize
	if n, err := snappy.DecodedLen(tile); err != nil || n != want {
		return nil, errors.Errorf("tile holds %d bytes but %d points were expected", n, entry.numPoints)
	}
	raw, err := snappy.Decode(make([]byte, want), tile)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing tile")
	}
	points := make([]pointcloud.Point, entry.numPoints)
	for i := range points {
		rec := raw[i*pointRecordSize:]
		points[i] = pointcloud.Point{
			Position: getVector(rec),
			Color:    pointcloud.RGB{rec[24], rec[25], rec[26]},
		}
	}
	return points, nil
}

func putVector(buf []byte, x, y, z float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(y))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(z))
}

func getVector(buf []byte) r3.Vector {
	return r3.Vector{
		X: math.Float64frombits(binary.LittleEndian.Uint64(buf)),
		Y: math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
		Z: math.Float64frombits(binary.LittleEndian.Uint64(buf[16:])),
	}
}
