// Package main exports the points of an octree store inside a box to an xyzrgb text file.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"go.viam.com/lidarexport/export"
	"go.viam.com/lidarexport/logging"
	rutils "go.viam.com/lidarexport/utils"
)

var logger = logging.NewLogger("lidarexport")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	cfg, err := export.ParseArgs(args[1:], logger)
	if err != nil {
		if rutils.IsUsageError(err) {
			logger.Info(export.Usage)
		}
		return err
	}

	count, err := export.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Infof("%d points saved", count)
	return nil
}
