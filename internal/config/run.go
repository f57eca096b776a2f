package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/bodysim/internal/simulator"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/run.defaults.json"

// RunConfig is the root configuration of one LOS run. Every field is
// optional; the Get* methods supply the default for omitted fields.
type RunConfig struct {
	// Frame range, 1-based and inclusive. FrameEnd defaults to the last
	// frame of the pose source.
	FrameStart *int `json:"frame_start,omitempty"`
	FrameEnd   *int `json:"frame_end,omitempty"`

	// Sampling params
	SampleCount  *int     `json:"sample_count,omitempty"`
	SampleRadius *float64 `json:"sample_radius,omitempty"` // 0 derives it from the mesh
	Tolerance    *float64 `json:"tolerance,omitempty"`
	Workers      *int     `json:"workers,omitempty"`

	// Pose source. An empty feed_dir selects the synthetic body.
	FeedDir         *string `json:"feed_dir,omitempty"`
	SyntheticFrames *int    `json:"synthetic_frames,omitempty"`

	// Output
	OutputDir *string `json:"output_dir,omitempty"`
	Plots     *bool   `json:"plots,omitempty"`
	DBPath    *string `json:"db_path,omitempty"` // empty disables run history

	// Downstream simulators
	FPS         *int                  `json:"fps,omitempty"`
	PluginsPath *string               `json:"plugins_path,omitempty"` // TOML descriptor file
	PluginDir   *string               `json:"plugin_dir,omitempty"`
	Selections  []simulator.Selection `json:"selections,omitempty"`

	ProgressInterval *string `json:"progress_interval,omitempty"` // duration string like "2s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field set to its default.
func DefaultRunConfig() *RunConfig {
	c := EmptyRunConfig()
	return &RunConfig{
		FrameStart:       ptrInt(c.GetFrameStart()),
		SampleCount:      ptrInt(c.GetSampleCount()),
		SampleRadius:     ptrFloat64(c.GetSampleRadius()),
		Tolerance:        ptrFloat64(c.GetTolerance()),
		Workers:          ptrInt(c.GetWorkers()),
		FeedDir:          ptrString(c.GetFeedDir()),
		SyntheticFrames:  ptrInt(c.GetSyntheticFrames()),
		OutputDir:        ptrString(c.GetOutputDir()),
		Plots:            ptrBool(c.GetPlots()),
		DBPath:           ptrString(c.GetDBPath()),
		FPS:              ptrInt(c.GetFPS()),
		PluginsPath:      ptrString(c.GetPluginsPath()),
		PluginDir:        ptrString(c.GetPluginDir()),
		ProgressInterval: ptrString(c.GetProgressInterval().String()),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Omitted fields
// keep their defaults, so partial configs are safe.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/gen-feed/
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.FrameStart != nil && *c.FrameStart < 1 {
		return fmt.Errorf("frame_start must be at least 1, got %d", *c.FrameStart)
	}
	if c.FrameEnd != nil && *c.FrameEnd < c.GetFrameStart() {
		return fmt.Errorf("frame_end %d is before frame_start %d", *c.FrameEnd, c.GetFrameStart())
	}
	if c.SampleCount != nil && *c.SampleCount < 1 {
		return fmt.Errorf("sample_count must be positive, got %d", *c.SampleCount)
	}
	if c.SampleRadius != nil && (*c.SampleRadius < 0 || math.IsNaN(*c.SampleRadius) || math.IsInf(*c.SampleRadius, 0)) {
		return fmt.Errorf("sample_radius must be finite and non-negative, got %f", *c.SampleRadius)
	}
	if c.Tolerance != nil && (*c.Tolerance <= 0 || math.IsNaN(*c.Tolerance) || math.IsInf(*c.Tolerance, 0)) {
		return fmt.Errorf("tolerance must be finite and positive, got %f", *c.Tolerance)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.SyntheticFrames != nil && *c.SyntheticFrames < 1 {
		return fmt.Errorf("synthetic_frames must be positive, got %d", *c.SyntheticFrames)
	}
	if c.FPS != nil && *c.FPS < 1 {
		return fmt.Errorf("fps must be positive, got %d", *c.FPS)
	}
	if c.OutputDir != nil && *c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.ProgressInterval != nil && *c.ProgressInterval != "" {
		if _, err := time.ParseDuration(*c.ProgressInterval); err != nil {
			return fmt.Errorf("invalid progress_interval '%s': %w", *c.ProgressInterval, err)
		}
	}
	for i, sel := range c.Selections {
		if sel.SensorID == "" || sel.Plugin == "" {
			return fmt.Errorf("selection %d needs sensor_id and plugin", i)
		}
	}
	return nil
}

// GetFrameStart returns the frame_start value or the default.
func (c *RunConfig) GetFrameStart() int {
	if c.FrameStart == nil {
		return 1
	}
	return *c.FrameStart
}

// GetFrameEnd returns frame_end, or last when it is not set.
func (c *RunConfig) GetFrameEnd(last int) int {
	if c.FrameEnd == nil {
		return last
	}
	return *c.FrameEnd
}

// GetSampleCount returns the sample_count value or the default.
func (c *RunConfig) GetSampleCount() int {
	if c.SampleCount == nil {
		return 100
	}
	return *c.SampleCount
}

// GetSampleRadius returns the sample_radius value or the default.
func (c *RunConfig) GetSampleRadius() float64 {
	if c.SampleRadius == nil {
		return 0 // derive from the mesh
	}
	return *c.SampleRadius
}

// GetTolerance returns the tolerance value or the default.
func (c *RunConfig) GetTolerance() float64 {
	if c.Tolerance == nil {
		return 0.001
	}
	return *c.Tolerance
}

// GetWorkers returns the workers value or the default.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetFeedDir returns the feed_dir value or the default.
func (c *RunConfig) GetFeedDir() string {
	if c.FeedDir == nil {
		return ""
	}
	return *c.FeedDir
}

// GetSyntheticFrames returns the synthetic_frames value or the default.
func (c *RunConfig) GetSyntheticFrames() int {
	if c.SyntheticFrames == nil {
		return 120
	}
	return *c.SyntheticFrames
}

// GetOutputDir returns the output_dir value or the default.
func (c *RunConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "output"
	}
	return *c.OutputDir
}

// GetPlots returns the plots value or the default.
func (c *RunConfig) GetPlots() bool {
	if c.Plots == nil {
		return true
	}
	return *c.Plots
}

// GetDBPath returns the db_path value or the default.
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetFPS returns the fps value or the default.
func (c *RunConfig) GetFPS() int {
	if c.FPS == nil {
		return simulator.DefaultFPS
	}
	return *c.FPS
}

// GetPluginsPath returns the plugins_path value or the default.
func (c *RunConfig) GetPluginsPath() string {
	if c.PluginsPath == nil {
		return ""
	}
	return *c.PluginsPath
}

// GetPluginDir returns the plugin_dir value or the default.
func (c *RunConfig) GetPluginDir() string {
	if c.PluginDir == nil {
		return "plugins"
	}
	return *c.PluginDir
}

// GetProgressInterval parses and returns ProgressInterval as a time.Duration.
func (c *RunConfig) GetProgressInterval() time.Duration {
	if c.ProgressInterval == nil || *c.ProgressInterval == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.ProgressInterval)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}
