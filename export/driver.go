// Package export streams the points of an octree store that fall inside a region to an
// xyzrgb text file.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lidarexport/octree"
	"go.viam.com/lidarexport/pointcloud"
)

// Store is the part of a point store an export needs.
type Store interface {
	io.Closer

	// QueryBox delivers every point inside region to consumer exactly once and returns
	// any consumer error unchanged.
	QueryBox(ctx context.Context, region pointcloud.Region, consumer pointcloud.Consumer) error
}

// A StoreOpener opens the store at path with a node cache of cacheBytes.
type StoreOpener func(path string, cacheBytes int64, logger golog.Logger) (Store, error)

// OpenOctreeStore is the default StoreOpener.
func OpenOctreeStore(path string, cacheBytes int64, logger golog.Logger) (Store, error) {
	store, err := octree.Open(path, cacheBytes, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// State is where an Exporter is in its single run.
type State int

// The states of an Exporter, in order.
const (
	StateUnopened = State(iota)
	StateOpened
	StateQuerying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpened:
		return "opened"
	case StateQuerying:
		return "querying"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// An Option configures an Exporter.
type Option func(e *Exporter)

// WithStoreOpener replaces the function used to open the store.
func WithStoreOpener(open StoreOpener) Option {
	return func(e *Exporter) {
		e.openStore = open
	}
}

// WithClock sets the clock used to time the export.
func WithClock(clk clock.Clock) Option {
	return func(e *Exporter) {
		e.clk = clk
	}
}

// An Exporter runs one export. It is not reusable.
type Exporter struct {
	cfg       Config
	openStore StoreOpener
	clk       clock.Clock
	logger    golog.Logger
	state     State
}

// NewExporter returns an exporter for cfg.
func NewExporter(cfg Config, logger golog.Logger, opts ...Option) *Exporter {
	if cfg.Region == nil {
		cfg.Region = pointcloud.Unbounded{}
	}
	e := &Exporter{
		cfg:       cfg,
		openStore: OpenOctreeStore,
		clk:       clock.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state of the exporter.
func (e *Exporter) State() State {
	return e.state
}

// Run opens the store, then the output, and streams every point inside the configured
// region to the output in store order. It returns the number of points written, which
// is also the number of lines in the output. Store and output are closed on every path;
// if the store cannot be opened the output is never created. Lines written before a
// failure stay in the output.
func (e *Exporter) Run(ctx context.Context) (_ uint64, err error) {
	if e.state != StateUnopened {
		return 0, errors.Errorf("exporter already %v", e.state)
	}
	defer func() {
		e.state = StateClosed
	}()

	store, err := e.openStore(e.cfg.StorePath, e.cfg.CacheBytes, e.logger)
	if err != nil {
		return 0, err
	}
	sink, err := OpenSink(e.cfg.OutputPath)
	if err != nil {
		return 0, multierr.Combine(err, store.Close())
	}
	e.state = StateOpened
	e.logger.Debugw("exporting", "store", e.cfg.StorePath, "output", e.cfg.OutputPath, "region", e.cfg.Region)

	e.state = StateQuerying
	start := e.clk.Now()
	queryErr := store.QueryBox(ctx, e.cfg.Region, sink)
	count, closeErr := sink.Close()
	e.logger.Debugw("export finished", "points", count, "elapsed", e.clk.Since(start))
	return count, multierr.Combine(queryErr, closeErr, store.Close())
}

// Run exports the points selected by cfg from an octree store.
func Run(ctx context.Context, cfg Config, logger golog.Logger) (uint64, error) {
	return NewExporter(cfg, logger).Run(ctx)
}
