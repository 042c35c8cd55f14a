package export

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"go.viam.com/lidarexport/pointcloud"
	rutils "go.viam.com/lidarexport/utils"
)

// A Sink writes every point it consumes as one xyzrgb text line. Each line is handed to
// the destination in a single Write as soon as it is formatted; nothing else is buffered.
type Sink struct {
	path   string
	w      io.WriteCloser
	line   []byte
	count  uint64
	closed bool
}

// OpenSink creates or truncates the file at path and returns a Sink writing to it.
func OpenSink(path string) (*Sink, error) {
	//nolint:gosec
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, rutils.NewIOError("create output", path, err)
	}
	s := NewSink(f)
	s.path = path
	return s, nil
}

// NewSink returns a Sink writing to w. The sink owns w and closes it on Close.
func NewSink(w io.WriteCloser) *Sink {
	return &Sink{w: w, line: make([]byte, 0, 64)}
}

// Consume writes p as a line. The count only advances once the whole line was written.
func (s *Sink) Consume(p pointcloud.Point) error {
	if s.closed {
		return errors.New("cannot write to a closed sink")
	}
	s.line = pointcloud.AppendXYZRGB(s.line[:0], p)
	n, err := s.w.Write(s.line)
	if err == nil && n != len(s.line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return rutils.NewIOError("write output", s.path, err)
	}
	s.count++
	return nil
}

// Count returns the number of points written so far.
func (s *Sink) Count() uint64 {
	return s.count
}

// Close closes the destination and returns the final count. Closing again returns the
// count and no error.
func (s *Sink) Close() (uint64, error) {
	if s.closed {
		return s.count, nil
	}
	s.closed = true
	return s.count, rutils.NewIOError("close output", s.path, s.w.Close())
}
