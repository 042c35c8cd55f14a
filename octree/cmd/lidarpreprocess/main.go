// Package main builds octree stores from LAS, PCD and xyzrgb point files.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docker/go-units"
	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/lidarexport/logging"
	"go.viam.com/lidarexport/octree"
	"go.viam.com/lidarexport/pointcloud"
)

const (
	// Flags.
	flagOutput        = "output"
	flagMaxLeafPoints = "max-leaf-points"
	flagMaxDepth      = "max-depth"
	flagDebug         = "debug"
)

var logger = logging.NewLogger("lidarpreprocess")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	return newApp(logger).RunContext(ctx, args)
}

func newApp(logger golog.Logger) *cli.App {
	return &cli.App{
		Name:      "lidarpreprocess",
		Usage:     "build an octree store from point files",
		UsageText: "lidarpreprocess [--max-leaf-points N] [--max-depth D] -o <store> <input>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "write the store to `FILE`",
			},
			&cli.IntFlag{
				Name:    flagMaxLeafPoints,
				Value:   octree.DefaultMaxLeafPoints,
				EnvVars: []string{"LIDAR_MAX_LEAF_POINTS"},
				Usage:   "split nodes holding more than `N` points",
			},
			&cli.IntFlag{
				Name:    flagMaxDepth,
				Value:   octree.DefaultMaxDepth,
				EnvVars: []string{"LIDAR_MAX_DEPTH"},
				Usage:   "never split nodes deeper than `D`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("lidarpreprocess")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return buildAction(c, logger)
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print what a store holds",
				ArgsUsage: "<store>",
				Action: func(c *cli.Context) error {
					return infoAction(c, logger)
				},
			},
		},
	}
}

func buildAction(c *cli.Context, logger golog.Logger) error {
	output := c.String(flagOutput)
	if output == "" {
		return errors.New("no output store given; use -o")
	}
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return errors.Errorf("no input files given; supported extensions are %s",
			strings.Join(pointcloud.SupportedExtensions, " "))
	}
	opts := octree.BuildOptions{
		MaxLeafPoints: c.Int(flagMaxLeafPoints),
		MaxDepth:      c.Int(flagMaxDepth),
	}
	if opts.MaxLeafPoints <= 0 || opts.MaxDepth <= 0 {
		return errors.Errorf("--%s and --%s must be positive", flagMaxLeafPoints, flagMaxDepth)
	}

	built, err := octree.BuildFile(c.Context, inputs, output, opts, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d points in %d nodes written to %s (%s)\n",
		built.NumPoints, built.NumNodes, output, units.BytesSize(float64(built.FileBytes)))
	return nil
}

func infoAction(c *cli.Context, logger golog.Logger) error {
	if c.Args().Len() != 1 {
		return errors.New("info needs exactly one store")
	}
	path := c.Args().First()
	store, err := octree.Open(path, 0, logger)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(store.Close)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"store", path})
	if info, err := os.Stat(path); err == nil {
		t.AppendRow(table.Row{"size", units.BytesSize(float64(info.Size()))})
	}
	t.AppendRow(table.Row{"points", store.NumPoints()})
	t.AppendRow(table.Row{"nodes", store.NumNodes()})
	t.AppendRow(table.Row{"max leaf points", store.MaxLeafPoints()})
	t.AppendRow(table.Row{"bounds", store.Bounds().String()})

	sizes := stats.LoadRawData(store.LeafSizes())
	t.AppendRow(table.Row{"filled leaves", len(sizes)})
	if len(sizes) > 0 {
		mean, err := stats.Mean(sizes)
		if err != nil {
			return err
		}
		median, err := stats.Median(sizes)
		if err != nil {
			return err
		}
		most, err := stats.Max(sizes)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{"points per leaf", fmt.Sprintf("mean %.1f, median %.1f, max %.0f", mean, median, most)})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}
