package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.viam.com/lidarexport/octree"
	"go.viam.com/lidarexport/pointcloud"
	rutils "go.viam.com/lidarexport/utils"
)

func TestMainWithArgs(t *testing.T) {
	dir := t.TempDir()
	tree, err := octree.Build([]pointcloud.Point{
		pointcloud.NewPoint(1, 2, 3, 10, 20, 30),
		pointcloud.NewPoint(5, 5, 5, 255, 0, 0),
	}, octree.BuildOptions{})
	test.That(t, err, test.ShouldBeNil)
	store := filepath.Join(dir, "example.lpo")
	test.That(t, octree.WriteFile(store, tree), test.ShouldBeNil)

	t.Run("export box", func(t *testing.T) {
		output := filepath.Join(dir, "box.txt")
		logger, logs := golog.NewObservedTestLogger(t)
		err := mainWithArgs(context.Background(),
			[]string{"lidarexport", "-cache", "8", "-box", "0", "0", "0", "2", "2", "4", store, output, "extra"}, logger)
		test.That(t, err, test.ShouldBeNil)

		data, err := os.ReadFile(output)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(data), test.ShouldEqual, "1.000000 2.000000 3.000000 010 020 030\n")
		test.That(t, logs.FilterMessage("1 points saved").Len(), test.ShouldEqual, 1)
		test.That(t, logs.FilterMessage("Ignoring command line argument extra").Len(), test.ShouldEqual, 1)
	})

	t.Run("export everything", func(t *testing.T) {
		output := filepath.Join(dir, "all.txt")
		logger, logs := golog.NewObservedTestLogger(t)
		test.That(t, mainWithArgs(context.Background(), []string{"lidarexport", store, output}, logger), test.ShouldBeNil)
		test.That(t, logs.FilterMessage("2 points saved").Len(), test.ShouldEqual, 1)
	})

	t.Run("missing output", func(t *testing.T) {
		logger, logs := golog.NewObservedTestLogger(t)
		err := mainWithArgs(context.Background(), []string{"lidarexport", store}, logger)
		test.That(t, rutils.IsUsageError(err), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldEqual, "No output ASCII file name provided")
		test.That(t, logs.FilterMessageSnippet("usage: lidarexport").Len(), test.ShouldEqual, 1)
	})

	t.Run("missing store", func(t *testing.T) {
		output := filepath.Join(dir, "never.txt")
		logger, logs := golog.NewObservedTestLogger(t)
		err := mainWithArgs(context.Background(), []string{"lidarexport", filepath.Join(dir, "nope.lpo"), output}, logger)
		test.That(t, rutils.IsIOError(err), test.ShouldBeTrue)
		test.That(t, logs.FilterMessageSnippet("points saved").Len(), test.ShouldEqual, 0)
		_, statErr := os.Stat(output)
		test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
	})
}
