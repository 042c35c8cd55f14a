package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.viam.com/lidarexport/pointcloud"
	rutils "go.viam.com/lidarexport/utils"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp(golog.NewTestLogger(t))
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"lidarpreprocess"}, args...))
	return out.String(), err
}

// parseTable reads the rows of a rendered two column table.
func parseTable(out string) map[string]string {
	rows := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		cells := strings.Split(line, "|")
		if len(cells) != 4 {
			continue
		}
		rows[strings.TrimSpace(cells[1])] = strings.TrimSpace(cells[2])
	}
	return rows
}

func TestBuildAndInfo(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "cloud.xyz")
	test.That(t, os.WriteFile(text, []byte("0 0 0 1 2 3\n1 1 1\n"), 0o600), test.ShouldBeNil)
	las := filepath.Join(dir, "cloud.las")
	test.That(t, pointcloud.WriteLAS(las, []pointcloud.Point{pointcloud.NewPoint(0, 1, 0, 9, 9, 9)}), test.ShouldBeNil)
	store := filepath.Join(dir, "cloud.lpo")

	out, err := runApp(t, "--max-leaf-points", "1", "-o", store, text, las)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "3 points in 9 nodes written to "+store)

	out, err = runApp(t, "info", store)
	test.That(t, err, test.ShouldBeNil)
	rows := parseTable(out)
	test.That(t, rows["store"], test.ShouldEqual, store)
	test.That(t, rows["points"], test.ShouldEqual, "3")
	test.That(t, rows["nodes"], test.ShouldEqual, "9")
	test.That(t, rows["max leaf points"], test.ShouldEqual, "1")
	test.That(t, rows["bounds"], test.ShouldEqual, "box[(0, 0, 0) - (1, 1, 1)]")
	test.That(t, rows["filled leaves"], test.ShouldEqual, "3")
	test.That(t, rows["points per leaf"], test.ShouldEqual, "mean 1.0, median 1.0, max 1")
}

func TestBuildFromEnvironment(t *testing.T) {
	t.Setenv("LIDAR_MAX_LEAF_POINTS", "1")
	dir := t.TempDir()
	text := filepath.Join(dir, "cloud.txt")
	test.That(t, os.WriteFile(text, []byte("0 0 0\n1 1 1\n"), 0o600), test.ShouldBeNil)
	store := filepath.Join(dir, "cloud.lpo")

	_, err := runApp(t, "-o", store, text)
	test.That(t, err, test.ShouldBeNil)
	out, err := runApp(t, "info", store)
	test.That(t, err, test.ShouldBeNil)
	rows := parseTable(out)
	test.That(t, rows["max leaf points"], test.ShouldEqual, "1")
	test.That(t, rows["nodes"], test.ShouldEqual, "9")
}

func TestBuildErrors(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "cloud.xyz")
	test.That(t, os.WriteFile(text, []byte("0 0 0\n"), 0o600), test.ShouldBeNil)
	store := filepath.Join(dir, "cloud.lpo")

	_, err := runApp(t, text)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "-o")

	_, err = runApp(t, "-o", store)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ".las")

	_, err = runApp(t, "--max-depth", "0", "-o", store, text)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "-o", store, filepath.Join(dir, "cloud.e57"))
	test.That(t, rutils.IsFormatError(err), test.ShouldBeTrue)

	_, err = runApp(t, "info", filepath.Join(dir, "missing.lpo"))
	test.That(t, rutils.IsIOError(err), test.ShouldBeTrue)

	_, err = runApp(t, "info")
	test.That(t, err, test.ShouldNotBeNil)
}
