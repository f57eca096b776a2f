package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestPlotRun(t *testing.T) {
	testutil.MuteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	res := testutil.SampleResult()

	paths, err := PlotRun(mfs, "plots", res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("plots", "sensor_a.png"),
		filepath.Join("plots", "sensor_b.png"),
		filepath.Join("plots", "sensor_c.png"),
	}, paths)

	for _, p := range paths {
		data, err := mfs.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", p)
	}
}

func TestPlotRunToDisk(t *testing.T) {
	testutil.MuteLogs(t)
	dir := filepath.Join(t.TempDir(), "plots")

	paths, err := PlotRun(nil, dir, testutil.SampleResult())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.FileExists(t, paths[0])
}

func TestPlotRunWriteFailure(t *testing.T) {
	testutil.MuteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	mfs.FailOn(filepath.Join("plots", "sensor_b.png"))

	_, err := PlotRun(mfs, "plots", testutil.SampleResult())
	require.Error(t, err)
	assert.ErrorIs(t, err, fsutil.ErrInjected)
	assert.Contains(t, err.Error(), "sensor_b.png")
}

func TestSensorPlot(t *testing.T) {
	res := testutil.SampleResult()

	p, err := SensorPlot(res, res.Sensors[2])
	require.NoError(t, err)
	assert.Equal(t, "sensor_c - Body Interference", p.Title.Text)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.Equal(t, 1.0, p.Y.Max)
}

func TestSensorPlotNoRecords(t *testing.T) {
	res := &los.Result{FrameStart: 1, FrameEnd: 0, Sensors: []los.Sensor{{ID: "x"}}}

	_, err := SensorPlot(res, res.Sensors[0])
	assert.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dashboard(&buf, testutil.SampleResult()))

	html := buf.String()
	for _, want := range []string{
		"<html",
		"BodySim LOS",
		"Body Interference",
		"Per-sensor summary",
		"Chest",
		"Back",
		"sensor_c",
		"direct LOS clear",
	} {
		assert.True(t, strings.Contains(html, want), "dashboard missing %q", want)
	}
}

func TestWriteDashboard(t *testing.T) {
	testutil.MuteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()

	require.NoError(t, WriteDashboard(mfs, "dashboard.html", testutil.SampleResult()))
	data, err := mfs.ReadFile("dashboard.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "echarts")

	mfs.FailOn("broken.html")
	assert.ErrorIs(t, WriteDashboard(mfs, "broken.html", testutil.SampleResult()), fsutil.ErrInjected)
}
