package pose

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/monitoring"
	"github.com/banshee-data/bodysim/internal/results"
	"gonum.org/v1/gonum/spatial/r3"
)

var logf = monitoring.Component("Pose")

// Feed directory layout.
const (
	RosterFile = "roster.csv"
	FramesDir  = "frames"
	SensorsDir = "sensors"
)

// ErrMalformedFeed is returned when a feed file cannot be parsed.
var ErrMalformedFeed = errors.New("malformed pose feed")

var rosterHeader = []string{"id", "name"}

// FrameFile returns the name of a frame's mesh file.
func FrameFile(frame int) string {
	return "frame" + strconv.Itoa(frame) + ".csv"
}

// Feed reads a pose feed directory. The roster and every sensor trajectory
// are loaded by OpenFeed; frame meshes are read on demand and the most
// recent one is cached.
type Feed struct {
	fs     fsutil.FileSystem
	dir    string
	roster []los.Sensor
	tracks map[string]map[int]geometry.Transform

	cachedFrame int
	cached      []geometry.Polygon
}

// OpenFeed loads the roster and sensor trajectories under dir.
func OpenFeed(fs fsutil.FileSystem, dir string) (*Feed, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	f := &Feed{fs: fs, dir: dir, tracks: make(map[string]map[int]geometry.Transform)}

	roster, err := f.readRoster()
	if err != nil {
		return nil, err
	}
	f.roster = roster

	for _, sensor := range roster {
		path := filepath.Join(dir, SensorsDir, results.FileName(sensor.ID))
		data, err := fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		rows, err := results.ReadTrajectory(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, ErrMalformedFeed, err)
		}
		track := make(map[int]geometry.Transform, len(rows))
		for _, r := range rows {
			track[r.Frame] = r.Transform
		}
		f.tracks[sensor.ID] = track
	}

	logf("opened feed %s: %d sensors", dir, len(roster))
	return f, nil
}

func (f *Feed) readRoster() ([]los.Sensor, error) {
	path := filepath.Join(f.dir, RosterFile)
	data, err := f.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(rosterHeader)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrMalformedFeed, err)
	}
	if len(recs) == 0 || !slices.Equal(recs[0], rosterHeader) {
		return nil, fmt.Errorf("%s: %w: missing id,name header", path, ErrMalformedFeed)
	}

	roster := make([]los.Sensor, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		roster = append(roster, los.Sensor{ID: rec[0], Name: rec[1]})
	}
	return roster, nil
}

// Roster returns the feed's sensors in file order.
func (f *Feed) Roster() []los.Sensor {
	return append([]los.Sensor(nil), f.roster...)
}

// FrameRange returns the lowest and highest frame with a mesh file.
func (f *Feed) FrameRange() (first, last int, err error) {
	names, err := f.fs.ReadDir(filepath.Join(f.dir, FramesDir))
	if err != nil {
		return 0, 0, err
	}
	for _, name := range names {
		n, ok := strings.CutPrefix(name, "frame")
		if !ok {
			continue
		}
		n, ok = strings.CutSuffix(n, ".csv")
		if !ok {
			continue
		}
		frame, err := strconv.Atoi(n)
		if err != nil {
			continue
		}
		if first == 0 || frame < first {
			first = frame
		}
		last = max(last, frame)
	}
	if first == 0 {
		return 0, 0, fmt.Errorf("%s: no frames: %w", f.dir, ErrFrameNotFound)
	}
	return first, last, nil
}

// PosedPolygons implements los.PoseProvider.
func (f *Feed) PosedPolygons(frame int) ([]geometry.Polygon, error) {
	if f.cached != nil && f.cachedFrame == frame {
		return f.cached, nil
	}
	path := filepath.Join(f.dir, FramesDir, FrameFile(frame))
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w: %w", frame, ErrFrameNotFound, err)
	}
	defer file.Close()

	polys, err := ReadFrame(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.cachedFrame, f.cached = frame, polys
	return polys, nil
}

// SensorTransform implements los.PoseProvider.
func (f *Feed) SensorTransform(frame int, sensorID string) (geometry.Transform, error) {
	track, ok := f.tracks[sensorID]
	if !ok {
		return geometry.Transform{}, fmt.Errorf("sensor %q: %w", sensorID, ErrUnknownSensor)
	}
	tf, ok := track[frame]
	if !ok {
		return geometry.Transform{}, fmt.Errorf("sensor %q frame %d: %w", sensorID, frame, ErrFrameNotFound)
	}
	return tf, nil
}

// ReadFrame parses a frame mesh file.
func ReadFrame(r io.Reader) ([]geometry.Polygon, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	polys := []geometry.Polygon{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return polys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFeed, err)
		}
		coords := rec[1:]
		if len(coords)%3 != 0 {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: %d coordinates", ErrMalformedFeed, line, len(coords))
		}
		p := geometry.Polygon{Group: rec[0], Vertices: make([]r3.Vec, len(coords)/3)}
		for i := range p.Vertices {
			var v [3]float64
			for k := range v {
				v[k], err = strconv.ParseFloat(coords[3*i+k], 64)
				if err != nil {
					line, _ := cr.FieldPos(0)
					return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedFeed, line, err)
				}
			}
			p.Vertices[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
		}
		polys = append(polys, p)
	}
}

// WriteFrame writes one polygon per row.
func WriteFrame(w io.Writer, polys []geometry.Polygon) error {
	cw := csv.NewWriter(w)
	for _, p := range polys {
		rec := make([]string, 0, 1+3*len(p.Vertices))
		rec = append(rec, p.Group)
		for _, v := range p.Vertices {
			rec = append(rec, results.FormatFloat(v.X), results.FormatFloat(v.Y), results.FormatFloat(v.Z))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeed exports frames start..end of p for roster into dir.
func WriteFeed(fs fsutil.FileSystem, dir string, p los.PoseProvider, roster []los.Sensor, start, end int) error {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if start < 1 || end < start {
		return fmt.Errorf("write feed frames %d-%d: %w", start, end, los.ErrInvalidFrameRange)
	}
	for _, sub := range []string{FramesDir, SensorsDir} {
		if err := fs.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(rosterHeader)
	for _, s := range roster {
		_ = cw.Write([]string{s.ID, s.Name})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if err := fs.WriteFile(filepath.Join(dir, RosterFile), buf.Bytes(), 0o644); err != nil {
		return err
	}

	tracks := make(map[string][]results.TrajectoryRow, len(roster))
	for frame := start; frame <= end; frame++ {
		polys, err := p.PosedPolygons(frame)
		if err != nil {
			return fmt.Errorf("write feed frame %d: %w", frame, err)
		}
		buf.Reset()
		if err := WriteFrame(&buf, polys); err != nil {
			return err
		}
		if err := fs.WriteFile(filepath.Join(dir, FramesDir, FrameFile(frame)), buf.Bytes(), 0o644); err != nil {
			return err
		}
		for _, s := range roster {
			tf, err := p.SensorTransform(frame, s.ID)
			if err != nil {
				return fmt.Errorf("write feed frame %d: %w", frame, err)
			}
			tracks[s.ID] = append(tracks[s.ID], results.TrajectoryRow{Frame: frame, Transform: tf})
		}
	}

	for _, s := range roster {
		buf.Reset()
		if err := results.WriteTrajectory(&buf, tracks[s.ID]); err != nil {
			return err
		}
		if err := fs.WriteFile(filepath.Join(dir, SensorsDir, results.FileName(s.ID)), buf.Bytes(), 0o644); err != nil {
			return err
		}
	}

	logf("wrote feed %s: frames %d-%d, %d sensors", dir, start, end, len(roster))
	return nil
}
