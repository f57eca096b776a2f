package los

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/monitoring"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

var logf = monitoring.Component("LOS")

// Config describes one LOS run.
type Config struct {
	// FrameStart and FrameEnd are 1-based and inclusive.
	FrameStart int
	FrameEnd   int

	// Sensors is the roster. Order fixes the direct-LOS column order.
	Sensors []Sensor

	// SampleCount is the number of sphere probes per sensor per frame.
	SampleCount int

	// SampleRadius is the probe sphere radius. Zero derives it from the
	// largest bounding-box dimension of the FrameStart pose.
	SampleRadius float64

	// Tolerance is the colinearity tolerance of the segment test. Zero
	// uses geometry.DefaultSegmentTolerance.
	Tolerance float64

	// Workers bounds per-sensor parallelism inside a frame. Values below 2
	// process sensors sequentially. Output does not depend on it.
	Workers int

	Provider PoseProvider
}

// Validate checks the run parameters that can be checked without the provider.
func (c *Config) Validate() error {
	if c.SampleCount < 1 {
		return fmt.Errorf("sample_count=%d: %w", c.SampleCount, ErrInvalidSampleCount)
	}
	if c.FrameStart < 1 || c.FrameEnd < c.FrameStart {
		return fmt.Errorf("frames %d-%d: %w", c.FrameStart, c.FrameEnd, ErrInvalidFrameRange)
	}
	if len(c.Sensors) == 0 {
		return fmt.Errorf("no sensors: %w", ErrInvalidRoster)
	}
	seen := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		if s.ID == "" {
			return fmt.Errorf("sensor with empty id: %w", ErrInvalidRoster)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate sensor %q: %w", s.ID, ErrInvalidRoster)
		}
		seen[s.ID] = true
	}
	if c.Provider == nil {
		return errors.New("los: nil pose provider")
	}
	return nil
}

// State is the sampler's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFlushed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFlushed:
		return "flushed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sampler walks a frame range and accumulates per-sensor records.
//
//	Idle --Begin--> Running(start) --Step--> ... Running(end) --Flush--> Flushed --> Idle
//
// Any error from Step or Flush aborts the run: records are dropped and the
// sampler returns to Idle. A Sampler is not safe for concurrent use.
type Sampler struct {
	state   State
	cfg     Config
	frame   int
	oracle  geometry.Oracle
	samples []r3.Vec
	radius  float64
	records map[string][]FrameRecord
}

// NewSampler returns an idle sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

// State returns the current lifecycle state.
func (s *Sampler) State() State { return s.state }

// Frame returns the next frame Step will process.
func (s *Sampler) Frame() int { return s.frame }

// Done reports whether every frame of the range has been processed.
func (s *Sampler) Done() bool {
	return s.state == StateRunning && s.frame > s.cfg.FrameEnd
}

// Samples returns the probe offsets generated at Begin. They are shared
// across every frame and sensor of the run and must not be modified.
func (s *Sampler) Samples() []r3.Vec { return s.samples }

// SampleRadius returns the probe sphere radius chosen at Begin.
func (s *Sampler) SampleRadius() float64 { return s.radius }

// Begin validates cfg, derives the sample radius and generates the sphere
// samples. It moves the sampler from Idle to Running(FrameStart).
func (s *Sampler) Begin(ctx context.Context, cfg Config) error {
	if s.state != StateIdle {
		return fmt.Errorf("begin while %s: %w", s.state, ErrNotRunning)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	radius := cfg.SampleRadius
	if radius <= 0 {
		polys, err := cfg.Provider.PosedPolygons(cfg.FrameStart)
		if err != nil {
			return fmt.Errorf("setup pose frame %d: %w: %w", cfg.FrameStart, ErrPoseUnavailable, err)
		}
		radius = geometry.PolygonBounds(polys).MaxDimension()
	}

	samples, err := geometry.SphereSamples(cfg.SampleCount, radius)
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.cfg.Sensors = append([]Sensor(nil), cfg.Sensors...)
	s.oracle = geometry.Oracle{Tolerance: cfg.Tolerance}
	s.samples = samples
	s.radius = radius
	s.frame = cfg.FrameStart
	s.records = make(map[string][]FrameRecord, len(cfg.Sensors))
	for _, sensor := range s.cfg.Sensors {
		s.records[sensor.ID] = make([]FrameRecord, 0, cfg.FrameEnd-cfg.FrameStart+1)
	}
	s.state = StateRunning

	logf("run started: frames %d-%d, %d sensors, %d samples (radius %.4f)",
		cfg.FrameStart, cfg.FrameEnd, len(cfg.Sensors), cfg.SampleCount, radius)
	return nil
}

// Step processes the current frame and advances to the next one. It
// returns true once the last frame has been processed.
func (s *Sampler) Step(ctx context.Context) (bool, error) {
	if s.state != StateRunning {
		return false, fmt.Errorf("step while %s: %w", s.state, ErrNotRunning)
	}
	if s.Done() {
		return true, fmt.Errorf("frame range %d-%d already complete: %w", s.cfg.FrameStart, s.cfg.FrameEnd, ErrNotRunning)
	}
	if err := ctx.Err(); err != nil {
		s.abort("cancelled at frame %d: %v", s.frame, err)
		return false, err
	}

	frameRecords, err := s.processFrame(ctx, s.frame)
	if err != nil {
		s.abort("frame %d: %v", s.frame, err)
		return false, fmt.Errorf("frame %d: %w", s.frame, err)
	}
	for i, sensor := range s.cfg.Sensors {
		s.records[sensor.ID] = append(s.records[sensor.ID], frameRecords[i])
	}

	s.frame++
	return s.Done(), nil
}

// Flush hands the accumulated records to sink and returns the sampler to
// Idle. It fails with ErrNotRunning if frames remain.
func (s *Sampler) Flush(sink ResultSink) (*Result, error) {
	if !s.Done() {
		return nil, fmt.Errorf("flush at frame %d of %d-%d: %w", s.frame, s.cfg.FrameStart, s.cfg.FrameEnd, ErrNotRunning)
	}

	res := &Result{
		FrameStart:   s.cfg.FrameStart,
		FrameEnd:     s.cfg.FrameEnd,
		SampleCount:  s.cfg.SampleCount,
		SampleRadius: s.radius,
		Sensors:      s.cfg.Sensors,
		Records:      s.records,
	}

	s.state = StateFlushed
	if sink != nil {
		if err := sink.WriteResults(res); err != nil {
			s.abort("flush failed: %v", err)
			if errors.Is(err, ErrWriteResults) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrWriteResults, err)
		}
	}

	logf("run flushed: %d sensors x %d frames", len(res.Sensors), res.FrameCount())
	s.reset()
	return res, nil
}

// Abort drops any accumulated records and returns to Idle.
func (s *Sampler) Abort() {
	if s.state == StateIdle {
		return
	}
	s.abort("aborted at frame %d", s.frame)
}

func (s *Sampler) abort(format string, v ...interface{}) {
	logf("run aborted: "+format, v...)
	s.reset()
}

func (s *Sampler) reset() {
	s.state = StateIdle
	s.records = nil
	s.samples = nil
	s.cfg = Config{}
	s.frame = 0
}

// processFrame computes one record per roster sensor for frame. Provider
// calls happen sequentially on this goroutine; only the ray tests fan out.
func (s *Sampler) processFrame(ctx context.Context, frame int) ([]FrameRecord, error) {
	polys, err := s.cfg.Provider.PosedPolygons(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoseUnavailable, err)
	}
	tris, err := geometry.Triangulate(polys)
	if err != nil {
		return nil, err
	}

	transforms := make([]geometry.Transform, len(s.cfg.Sensors))
	for i, sensor := range s.cfg.Sensors {
		tf, err := s.cfg.Provider.SensorTransform(frame, sensor.ID)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w: %w", sensor.ID, ErrPoseUnavailable, err)
		}
		transforms[i] = tf
	}

	out := make([]FrameRecord, len(s.cfg.Sensors))
	if s.cfg.Workers < 2 || len(s.cfg.Sensors) < 2 {
		for i := range s.cfg.Sensors {
			out[i] = s.sensorRecord(frame, i, tris, transforms)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range s.cfg.Sensors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.sensorRecord(frame, i, tris, transforms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sensorRecord builds the record of sensor idx. tris, transforms and the
// sphere samples are read-only here.
func (s *Sampler) sensorRecord(frame, idx int, tris []geometry.Triangle, transforms []geometry.Transform) FrameRecord {
	pos := transforms[idx].Position

	blocked := 0
	for _, off := range s.samples {
		if s.oracle.Blocked(tris, pos, r3.Add(pos, off)) {
			blocked++
		}
	}

	direct := make([]bool, 0, len(transforms)-1)
	for j := range transforms {
		if j == idx {
			continue
		}
		direct = append(direct, !s.oracle.Blocked(tris, pos, transforms[j].Position))
	}

	return FrameRecord{
		Frame:             frame,
		Position:          pos,
		Orientation:       transforms[idx].Orientation,
		InterferenceRatio: float64(blocked) / float64(len(s.samples)),
		DirectLOS:         direct,
	}
}

// Run drives a sampler through the whole frame range and flushes into sink.
// On error nothing reaches the sink.
func Run(ctx context.Context, cfg Config, sink ResultSink) (*Result, error) {
	s := NewSampler()
	if err := s.Begin(ctx, cfg); err != nil {
		return nil, err
	}
	for {
		done, err := s.Step(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return s.Flush(sink)
}
