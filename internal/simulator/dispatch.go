package simulator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/results"
)

// Selection asks for one plugin's variables on one sensor.
type Selection struct {
	SensorID  string   `json:"sensor_id"`
	Plugin    string   `json:"plugin"`
	Variables []string `json:"variables"`
}

// Dispatcher runs the selected simulators against a run directory.
type Dispatcher struct {
	Registry Registry
	FS       fsutil.FileSystem
	// PluginDir holds the files of process plugins.
	PluginDir string
	// Simulators overrides how a plugin runs, by plugin name. The Channel
	// plugin is served by ChannelSimulator unless overridden.
	Simulators map[string]Simulator
}

// NewDispatcher returns a dispatcher over reg with the built-in simulators.
func NewDispatcher(reg Registry, fs fsutil.FileSystem, pluginDir string) *Dispatcher {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Dispatcher{
		Registry:   reg,
		FS:         fs,
		PluginDir:  pluginDir,
		Simulators: map[string]Simulator{ChannelPlugin: &ChannelSimulator{FS: fs}},
	}
}

// Resolve returns the simulator serving plugin.
func (d *Dispatcher) Resolve(plugin string) (Simulator, error) {
	if sim, ok := d.Simulators[plugin]; ok {
		return sim, nil
	}
	p, err := d.Registry.Lookup(plugin)
	if err != nil {
		return nil, err
	}
	if p.File == "" {
		return nil, fmt.Errorf("%q has no executable: %w", plugin, ErrUnknownPlugin)
	}
	return &ProcessSimulator{Plugin: p, Dir: d.PluginDir}, nil
}

// Validate checks every selection against the registry without running
// anything.
func (d *Dispatcher) Validate(sels []Selection) error {
	for _, sel := range sels {
		if sel.Plugin == BasePlugin {
			continue
		}
		if err := d.Registry.CheckVariables(sel.Plugin, sel.Variables); err != nil {
			return fmt.Errorf("sensor %q: %w", sel.SensorID, err)
		}
		if _, err := d.Resolve(sel.Plugin); err != nil {
			return fmt.Errorf("sensor %q: %w", sel.SensorID, err)
		}
	}
	return nil
}

// Dispatch runs each selection in order against runDir. The base
// Trajectory plugin is skipped since the writer already produced it. The
// first failure stops dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, runDir string, sels []Selection, params Params) error {
	if err := d.Validate(sels); err != nil {
		return err
	}
	ran := 0
	for _, sel := range sels {
		if sel.Plugin == BasePlugin {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(runDir, results.TrajectoryDir, results.FileName(sel.SensorID))
		if !d.FS.Exists(path) {
			return fmt.Errorf("sensor %q: %s: %w", sel.SensorID, path, ErrTrajectoryMissing)
		}

		sim, err := d.Resolve(sel.Plugin)
		if err != nil {
			return err
		}
		p := params
		p.Variables = sel.Variables
		if err := sim.Run(ctx, path, p); err != nil {
			return fmt.Errorf("%w: sensor %q: %w", ErrSimulatorFailed, sel.SensorID, err)
		}
		ran++
	}
	logf("dispatched %d simulator runs over %s", ran, runDir)
	return nil
}
