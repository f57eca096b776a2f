package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"

	"github.com/banshee-data/bodysim/internal/config"
	"github.com/banshee-data/bodysim/internal/db"
	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/pose"
	"github.com/banshee-data/bodysim/internal/report"
	"github.com/banshee-data/bodysim/internal/results"
	"github.com/banshee-data/bodysim/internal/simulator"
	"github.com/banshee-data/bodysim/internal/timeutil"
)

// Output names under the run directory.
const (
	PlotsDir      = "plots"
	DashboardFile = "dashboard.html"
)

// source is a pose provider that also knows its roster.
type source interface {
	los.PoseProvider
	Roster() []los.Sensor
}

// runner wires one LOS run: pose source, sampler, result writer,
// simulators, report and run history.
type runner struct {
	cfg   *config.RunConfig
	fs    fsutil.FileSystem
	clock timeutil.Clock
}

// openSource returns the configured pose source and its last frame.
func (r *runner) openSource() (source, int, string, error) {
	if dir := r.cfg.GetFeedDir(); dir != "" {
		feed, err := pose.OpenFeed(r.fs, dir)
		if err != nil {
			return nil, 0, "", err
		}
		_, last, err := feed.FrameRange()
		if err != nil {
			return nil, 0, "", err
		}
		return feed, last, "feed:" + dir, nil
	}
	n := r.cfg.GetSyntheticFrames()
	return pose.NewSynthetic(n), n, "synthetic", nil
}

func (r *runner) dispatcher() (*simulator.Dispatcher, error) {
	reg := simulator.NewRegistry()
	if path := r.cfg.GetPluginsPath(); path != "" {
		var err error
		if reg, err = simulator.LoadRegistry(r.fs, path); err != nil {
			return nil, err
		}
	}
	return simulator.NewDispatcher(reg, r.fs, r.cfg.GetPluginDir()), nil
}

// run executes the whole pipeline and returns the flushed result.
func (r *runner) run(ctx context.Context) (res *los.Result, err error) {
	src, last, sourceName, err := r.openSource()
	if err != nil {
		return nil, fmt.Errorf("open pose source: %w", err)
	}

	// Check selections before spending time on the sweep.
	disp, err := r.dispatcher()
	if err != nil {
		return nil, err
	}
	if err := disp.Validate(r.cfg.Selections); err != nil {
		return nil, err
	}

	losCfg := los.Config{
		FrameStart:   r.cfg.GetFrameStart(),
		FrameEnd:     r.cfg.GetFrameEnd(last),
		Sensors:      src.Roster(),
		SampleCount:  r.cfg.GetSampleCount(),
		SampleRadius: r.cfg.GetSampleRadius(),
		Tolerance:    r.cfg.GetTolerance(),
		Workers:      r.cfg.GetWorkers(),
		Provider:     src,
	}
	outDir := r.cfg.GetOutputDir()

	var store *db.DB
	var record *db.Run
	if path := r.cfg.GetDBPath(); path != "" {
		if store, err = db.NewDB(path); err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		defer store.Close()
		store.Clock = r.clock

		var params []byte
		if params, err = json.Marshal(r.cfg); err != nil {
			return nil, fmt.Errorf("encode run parameters: %w", err)
		}
		record = &db.Run{
			Source:      sourceName,
			OutputDir:   outDir,
			FrameStart:  losCfg.FrameStart,
			FrameEnd:    losCfg.FrameEnd,
			SampleCount: losCfg.SampleCount,
			Workers:     losCfg.Workers,
			ParamsJSON:  params,
		}
		if err := store.InsertRun(record); err != nil {
			return nil, err
		}
		defer func() {
			status, radius := db.RunCompleted, 0.0
			if err != nil {
				status = db.RunFailed
			} else {
				radius = res.SampleRadius
			}
			if cerr := store.CompleteRun(record.RunID, status, radius, err); cerr != nil {
				log.Printf("failed to record run %s: %v", record.RunID, cerr)
			}
		}()
	}

	start := r.clock.Now()
	sampler := los.NewSampler()
	if err := sampler.Begin(ctx, losCfg); err != nil {
		return nil, err
	}
	progress := &timeutil.Throttle{Clock: r.clock, Interval: r.cfg.GetProgressInterval()}
	total := losCfg.FrameEnd - losCfg.FrameStart + 1
	for done := false; !done; {
		frame := sampler.Frame()
		if done, err = sampler.Step(ctx); err != nil {
			return nil, err
		}
		if progress.Ready() || done {
			log.Printf("frame %d/%d (%d of %d)", frame, losCfg.FrameEnd, frame-losCfg.FrameStart+1, total)
		}
	}

	res, err = sampler.Flush(results.NewWriter(r.fs, outDir))
	if err != nil {
		return nil, err
	}
	log.Printf("LOS sweep finished in %v, results in %s", r.clock.Since(start), outDir)

	params := simulator.Params{
		FPS:        r.cfg.GetFPS(),
		FrameStart: res.FrameStart,
		FrameEnd:   res.FrameEnd,
		Height:     res.SampleRadius,
	}
	if err := disp.Dispatch(ctx, outDir, r.cfg.Selections, params); err != nil {
		return nil, err
	}

	if r.cfg.GetPlots() {
		if _, err := report.PlotRun(r.fs, filepath.Join(outDir, PlotsDir), res); err != nil {
			return nil, fmt.Errorf("plots: %w", err)
		}
		if err := report.WriteDashboard(r.fs, filepath.Join(outDir, DashboardFile), res); err != nil {
			return nil, fmt.Errorf("dashboard: %w", err)
		}
	}

	summaries := los.Summarize(res)
	for _, s := range summaries {
		log.Printf("%-16s mean no-LOS %.3f (sd %.3f, max %.3f), direct LOS clear %.1f%%",
			s.Name, s.MeanInterference, s.StdDevInterference, s.MaxInterference, 100*s.LOSClearFraction)
	}
	if store != nil {
		if err := store.InsertSummaries(record.RunID, summaries); err != nil {
			return nil, err
		}
		log.Printf("recorded run %s", record.RunID)
	}
	return res, nil
}

// printHistory lists the most recent runs stored at path.
func printHistory(path string, limit int) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %-9s  %-24s frames %d-%d  samples %d  %dms\n",
			run.RunID, run.Status, run.Source, run.FrameStart, run.FrameEnd, run.SampleCount, run.DurationMs)
		summaries, err := store.ListSummaries(run.RunID)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			fmt.Printf("    %-16s mean %.3f  clear %.3f\n", s.Name, s.MeanInterference, s.LOSClearFraction)
		}
	}
	return nil
}
