package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/monitoring"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var logf = monitoring.Component("Report")

// interferenceChart plots every sensor's interference ratio per frame.
func interferenceChart(res *los.Result) *charts.Line {
	frames := make([]string, 0, res.FrameCount())
	for f := res.FrameStart; f <= res.FrameEnd; f++ {
		frames = append(frames, strconv.Itoa(f))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "BodySim LOS", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Body Interference",
			Subtitle: fmt.Sprintf("frames %d-%d samples=%d radius=%g", res.FrameStart, res.FrameEnd, res.SampleCount, res.SampleRadius),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "no-LOS ratio", Min: 0, Max: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(frames)
	for _, sensor := range res.Sensors {
		ratios := los.InterferenceSeries(res.Records[sensor.ID])
		data := make([]opts.LineData, len(ratios))
		for i, v := range ratios {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(sensor.Label(), data)
	}
	return line
}

// clearFractionChart shows each sensor's summary as bars.
func clearFractionChart(summaries []los.SensorSummary) *charts.Bar {
	names := make([]string, len(summaries))
	clearData := make([]opts.BarData, len(summaries))
	mean := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		names[i] = s.Name
		clearData[i] = opts.BarData{Value: s.LOSClearFraction}
		mean[i] = opts.BarData{Value: s.MeanInterference}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Per-sensor summary"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	bar.SetXAxis(names).
		AddSeries("direct LOS clear", clearData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("mean no-LOS ratio", mean)
	return bar
}

// Dashboard renders the run as one HTML page to w.
func Dashboard(w io.Writer, res *los.Result) error {
	page := components.NewPage()
	page.PageTitle = "BodySim LOS"
	page.AddCharts(
		interferenceChart(res),
		clearFractionChart(los.Summarize(res)),
	)
	return page.Render(w)
}

// WriteDashboard renders the dashboard to path.
func WriteDashboard(fs fsutil.FileSystem, path string, res *los.Result) error {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	var buf bytes.Buffer
	if err := Dashboard(&buf, res); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logf("wrote dashboard %s", path)
	return nil
}
