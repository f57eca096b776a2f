package results

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func init() {
	monitoring.SetLogger(nil)
}

type staticProvider struct {
	polys     []geometry.Polygon
	positions map[string]r3.Vec
}

func (p staticProvider) PosedPolygons(int) ([]geometry.Polygon, error) { return p.polys, nil }

func (p staticProvider) SensorTransform(_ int, id string) (geometry.Transform, error) {
	return geometry.Transform{Position: p.positions[id], Orientation: geometry.IdentityOrientation}, nil
}

func readCSV(t *testing.T, mfs *fsutil.MemoryFileSystem, path string) [][]string {
	t.Helper()
	data, err := mfs.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func runScenario(t *testing.T, polys []geometry.Polygon, frameEnd int) (*fsutil.MemoryFileSystem, *Writer) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	w := NewWriter(mfs, "/out")
	cfg := los.Config{
		FrameStart:  1,
		FrameEnd:    frameEnd,
		Sensors:     []los.Sensor{{ID: "1", Name: "wrist"}, {ID: "2", Name: "ankle"}},
		SampleCount: 8,
		Provider: staticProvider{
			polys: polys,
			positions: map[string]r3.Vec{
				"1": {X: 0, Y: 0, Z: 1},
				"2": {X: 0, Y: 0, Z: -1},
			},
		},
	}
	_, err := los.Run(context.Background(), cfg, w)
	require.NoError(t, err)
	return mfs, w
}

func TestWriter_EndToEnd(t *testing.T) {
	occluder := geometry.Polygon{Group: "torso", Vertices: []r3.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 0, Y: 1}}}

	t.Run("occluded", func(t *testing.T) {
		mfs, w := runScenario(t, []geometry.Polygon{occluder}, 1)
		assert.Equal(t, [][]string{{"frame", "ankle"}, {"1", "False"}}, readCSV(t, mfs, w.Path(DirectLOSDir, "1")))
		assert.Equal(t, [][]string{{"frame", "wrist"}, {"1", "False"}}, readCSV(t, mfs, w.Path(DirectLOSDir, "2")))
	})

	t.Run("clear", func(t *testing.T) {
		mfs, w := runScenario(t, nil, 1)
		assert.Equal(t, [][]string{{"frame", "ankle"}, {"1", "True"}}, readCSV(t, mfs, w.Path(DirectLOSDir, "1")))
		assert.Equal(t, [][]string{{"frame", "wrist"}, {"1", "True"}}, readCSV(t, mfs, w.Path(DirectLOSDir, "2")))
		assert.Equal(t, [][]string{{"frame", "no_los-to-total-ratio"}, {"1", "0"}}, readCSV(t, mfs, w.Path(InterferenceDir, "1")))
		assert.Equal(t,
			[][]string{TrajectoryHeader, {"1", "0", "0", "1", "1", "0", "0", "0"}},
			readCSV(t, mfs, w.Path(TrajectoryDir, "1")))
	})
}

func TestWriter_Layout(t *testing.T) {
	mfs, _ := runScenario(t, nil, 1)
	assert.Equal(t, []string{
		"/out/BodyInterference/sensor_1.csv",
		"/out/BodyInterference/sensor_2.csv",
		"/out/DirectLOS/sensor_1.csv",
		"/out/DirectLOS/sensor_2.csv",
		"/out/Trajectory/sensor_1.csv",
		"/out/Trajectory/sensor_2.csv",
	}, mfs.Files())
}

func TestWriter_RowCount(t *testing.T) {
	mfs, w := runScenario(t, nil, 100)
	for _, sub := range []string{TrajectoryDir, InterferenceDir, DirectLOSDir} {
		for _, id := range []string{"1", "2"} {
			rows := readCSV(t, mfs, w.Path(sub, id))
			assert.Len(t, rows, 101, "%s/%s", sub, id)
			assert.Equal(t, "100", rows[100][0])
		}
	}
}

func TestWriter_Values(t *testing.T) {
	res := &los.Result{
		FrameStart: 7,
		FrameEnd:   7,
		Sensors:    []los.Sensor{{ID: "a"}, {ID: "b", Name: "hip"}, {ID: "c"}},
		Records: map[string][]los.FrameRecord{
			"a": {{
				Frame:             7,
				Position:          r3.Vec{X: 0.1, Y: -2.5, Z: 1e-7},
				Orientation:       quat.Number{Real: 0.5, Imag: -0.5, Jmag: 0.5, Kmag: -0.5},
				InterferenceRatio: 0.375,
				DirectLOS:         []bool{true, false},
			}},
		},
	}
	mfs := fsutil.NewMemoryFileSystem()
	w := NewWriter(mfs, "/run")
	require.NoError(t, w.WriteResults(res))

	assert.Equal(t, []string{"7", "0.1", "-2.5", "0.0000001", "0.5", "-0.5", "0.5", "-0.5"}, readCSV(t, mfs, w.Path(TrajectoryDir, "a"))[1])
	assert.Equal(t, []string{"7", "0.375"}, readCSV(t, mfs, w.Path(InterferenceDir, "a"))[1])
	assert.Equal(t, [][]string{{"frame", "hip", "sensor_c"}, {"7", "True", "False"}}, readCSV(t, mfs, w.Path(DirectLOSDir, "a")))

	// Sensors without records still get header-only files.
	assert.Len(t, readCSV(t, mfs, w.Path(TrajectoryDir, "c")), 1)
}

func TestWriter_Errors(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		err := NewWriter(fsutil.NewMemoryFileSystem(), "/run").WriteResults(nil)
		assert.ErrorIs(t, err, los.ErrWriteResults)
	})

	for _, sub := range []string{"/run", "/run/DirectLOS", "/run/Trajectory/sensor_2.csv"} {
		t.Run(sub, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			mfs.FailOn(sub)
			cfg := los.Config{
				FrameStart:  1,
				FrameEnd:    2,
				Sensors:     []los.Sensor{{ID: "1"}, {ID: "2"}},
				SampleCount: 1,
				Provider:    staticProvider{positions: map[string]r3.Vec{"1": {}, "2": {X: 1}}},
			}
			_, err := los.Run(context.Background(), cfg, NewWriter(mfs, "/run"))
			assert.ErrorIs(t, err, los.ErrWriteResults)
			assert.ErrorIs(t, err, fsutil.ErrInjected)
			assert.Equal(t, 1, strings.Count(err.Error(), los.ErrWriteResults.Error()))
		})
	}
}

func TestTrajectoryRoundTrip(t *testing.T) {
	rows := []TrajectoryRow{
		{Frame: 1, Transform: geometry.Transform{Position: r3.Vec{X: 1.25, Y: -3, Z: 0.1}, Orientation: geometry.IdentityOrientation}},
		{Frame: 2, Transform: geometry.Transform{Position: r3.Vec{X: 1.0 / 3}, Orientation: quat.Number{Real: 0.7071067811865476, Kmag: 0.7071067811865476}}},
	}
	var buf strings.Builder
	require.NoError(t, WriteTrajectory(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "frame,x,y,z,w,rx,ry,rz\n"))

	got, err := ReadTrajectory(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadTrajectory_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"bad header":  "frame,x,y,z,w,i,j,k\n",
		"short row":   "frame,x,y,z,w,rx,ry,rz\n1,0,0\n",
		"bad frame":   "frame,x,y,z,w,rx,ry,rz\none,0,0,0,1,0,0,0\n",
		"bad float":   "frame,x,y,z,w,rx,ry,rz\n1,0,zero,0,1,0,0,0\n",
		"bare quotes": "frame,x,y,z,w,rx,ry,rz\n1,0,\"0,0,1,0,0,0\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTrajectory(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.1", FormatFloat(0.1))
	assert.Equal(t, "1", FormatFloat(1))
	assert.Equal(t, "-0.000123", FormatFloat(-0.000123))
	assert.Equal(t, "True", FormatBool(true))
	assert.Equal(t, "False", FormatBool(false))

	b, err := ParseBool("True")
	require.NoError(t, err)
	assert.True(t, b)
	b, err = ParseBool("False")
	require.NoError(t, err)
	assert.False(t, b)
	_, err = ParseBool("true")
	assert.True(t, err != nil && !errors.Is(err, los.ErrWriteResults))

	assert.Equal(t, "sensor_12.csv", FileName("12"))
}
