package simulator

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/results"
	"gonum.org/v1/gonum/spatial/r3"
)

// Free-space channel model constants.
const (
	// PositionScale converts scene units (centimetres) to metres.
	PositionScale = 0.01

	pathLossDivisor = 125.0

	// MinDistance clamps the link distance so co-located sensors stay finite.
	MinDistance = 0.01

	// SimDir is the run subdirectory that receives simulator output.
	SimDir = "sim"
)

// PathLoss returns the free-space path loss in dB over d metres.
func PathLoss(d float64) float64 {
	d = math.Max(d, MinDistance)
	return 20 * math.Log10(4*math.Pi*d/pathLossDivisor)
}

// ChannelSimulator computes the path loss from one sensor to every other
// sensor whose trajectory sits in the same directory. Output goes to
// <run>/sim/sensor_<ID>-c.csv with a time column followed by one column per
// peer.
type ChannelSimulator struct {
	FS fsutil.FileSystem
}

// Name implements Simulator.
func (c *ChannelSimulator) Name() string { return ChannelPlugin }

// OutputPath returns where Run writes the channel file for trajectoryPath.
func OutputPath(trajectoryPath, suffix string) string {
	runDir := filepath.Dir(filepath.Dir(trajectoryPath))
	base := strings.TrimSuffix(filepath.Base(trajectoryPath), filepath.Ext(trajectoryPath))
	return filepath.Join(runDir, SimDir, base+suffix+".csv")
}

// Run implements Simulator.
func (c *ChannelSimulator) Run(ctx context.Context, trajectoryPath string, params Params) error {
	fs := c.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}

	self, err := readTrack(fs, trajectoryPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(trajectoryPath)
	names, err := fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	selfName := filepath.Base(trajectoryPath)

	header := []string{"time"}
	var peers [][]results.TrajectoryRow
	for _, name := range names {
		if name == selfName || filepath.Ext(name) != ".csv" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		track, err := readTrack(fs, filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if len(track) != len(self) {
			return fmt.Errorf("channel: %s has %d rows, %s has %d", name, len(track), selfName, len(self))
		}
		header = append(header, strings.TrimSuffix(name, ".csv"))
		peers = append(peers, track)
	}

	fps := float64(params.fps())
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(header)
	for i, row := range self {
		rec := make([]string, 0, len(peers)+1)
		rec = append(rec, results.FormatFloat(float64(row.Frame-1)/fps))
		p := r3.Scale(PositionScale, row.Transform.Position)
		for _, track := range peers {
			q := r3.Scale(PositionScale, track[i].Transform.Position)
			rec = append(rec, results.FormatFloat(PathLoss(r3.Norm(r3.Sub(p, q)))))
		}
		_ = cw.Write(rec)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	out := OutputPath(trajectoryPath, "-c")
	if err := fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := fs.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logf("channel: wrote %s (%d peers, %d rows)", out, len(peers), len(self))
	return nil
}

func readTrack(fs fsutil.FileSystem, path string) ([]results.TrajectoryRow, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}
	rows, err := results.ReadTrajectory(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("channel: %s: %w", path, err)
	}
	return rows, nil
}
