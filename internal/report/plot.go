// Package report renders a finished LOS run as per-sensor PNG time series
// and a single-page HTML dashboard.
package report

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/results"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot size of the per-sensor PNGs.
const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// SensorPlot builds the per-frame plot of one sensor: interference ratio
// and direct-LOS clear fraction.
func SensorPlot(res *los.Result, sensor los.Sensor) (*plot.Plot, error) {
	recs := res.Records[sensor.ID]

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Body Interference", sensor.Label())
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Ratio"
	p.Y.Min, p.Y.Max = 0, 1

	series := []struct {
		name   string
		values []float64
	}{
		{"no-LOS ratio", los.InterferenceSeries(recs)},
		{"direct LOS clear", los.ClearFractionSeries(recs)},
	}
	for i, s := range series {
		pts := make(plotter.XYs, len(recs))
		for j, r := range recs {
			pts[j] = plotter.XY{X: float64(r.Frame), Y: s.values[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plot %s %s: %w", sensor.ID, s.name, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// PlotRun writes <dir>/sensor_<ID>.png for every roster sensor and returns
// the paths in roster order.
func PlotRun(fs fsutil.FileSystem, dir string, res *los.Result) ([]string, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(res.Sensors))
	for _, sensor := range res.Sensors {
		p, err := SensorPlot(res, sensor)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, results.FileBase(sensor.ID)+".png")
		if err := savePNG(fs, p, path); err != nil {
			return nil, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	logf("saved %d plots to %s", len(paths), dir)
	return paths, nil
}

func savePNG(fs fsutil.FileSystem, p *plot.Plot, path string) (err error) {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = wt.WriteTo(f)
	return err
}
