// Command bodysim computes per-frame line-of-sight and body interference for
// sensors placed on an animated body, writes the per-sensor CSV results and
// hands them to the configured downstream simulators.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/bodysim/internal/config"
	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/simulator"
	"github.com/banshee-data/bodysim/internal/timeutil"
	"github.com/banshee-data/bodysim/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a run configuration JSON file")
	feedDir     = flag.String("feed", "", "Pose feed directory (empty uses the synthetic body)")
	outputDir   = flag.String("out", "", "Run output directory")
	frameStart  = flag.Int("start", 0, "First frame (1-based)")
	frameEnd    = flag.Int("end", 0, "Last frame, inclusive")
	samples     = flag.Int("samples", 0, "Sphere samples per sensor")
	radius      = flag.Float64("radius", 0, "Sample sphere radius (0 derives it from the mesh)")
	workers     = flag.Int("workers", 0, "Parallel sensor workers per frame")
	dbPath      = flag.String("db", "", "SQLite run history database")
	noPlots     = flag.Bool("no-plots", false, "Skip PNG plots and the HTML dashboard")
	listPlugins = flag.Bool("list-plugins", false, "List simulator plugins and their variables, then exit")
	history     = flag.Int("history", 0, "Print the last N runs from -db, then exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads -config (or the built-in defaults) and applies the
// flags that were set on the command line.
func loadConfig() (*config.RunConfig, error) {
	cfg := config.EmptyRunConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadRunConfig(*configPath); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "feed":
			cfg.FeedDir = feedDir
		case "out":
			cfg.OutputDir = outputDir
		case "start":
			cfg.FrameStart = frameStart
		case "end":
			cfg.FrameEnd = frameEnd
		case "samples":
			cfg.SampleCount = samples
		case "radius":
			cfg.SampleRadius = radius
		case "workers":
			cfg.Workers = workers
		case "db":
			cfg.DBPath = dbPath
		case "no-plots":
			plots := !*noPlots
			cfg.Plots = &plots
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printPlugins(cfg *config.RunConfig) error {
	reg := simulator.NewRegistry()
	if path := cfg.GetPluginsPath(); path != "" {
		var err error
		if reg, err = simulator.LoadRegistry(fsutil.OSFileSystem{}, path); err != nil {
			return err
		}
	}
	for _, name := range reg.Names() {
		fmt.Println(name)
		for _, v := range reg[name].Variables() {
			fmt.Printf("    %-12s %s vs %s\n", v.Name, v.YUnit, v.XUnit)
		}
	}
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *listPlugins {
		if err := printPlugins(cfg); err != nil {
			log.Fatalf("Failed to load plugins: %v", err)
		}
		return
	}
	if *history > 0 {
		if cfg.GetDBPath() == "" {
			log.Fatal("-history requires -db or db_path")
		}
		if err := printHistory(cfg.GetDBPath(), *history); err != nil {
			log.Fatalf("Failed to read run history: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &runner{cfg: cfg, fs: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}}
	if _, err := r.run(ctx); err != nil {
		stop()
		log.Printf("Run failed: %v", err)
		os.Exit(1)
	}
}
