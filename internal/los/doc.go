// Package los owns the per-frame line-of-sight sweep.
//
// Responsibilities: walking a playback frame range against a PoseProvider,
// triangulating each pose, and accumulating per-sensor trajectory,
// diffuse body-interference and direct sensor-to-sensor LOS records.
// Key types: Sampler, Config, Result, FrameRecord.
//
// Dependency rule: los depends on geometry only. Writing results,
// dispatching simulators and persistence are ResultSink adapters that
// live in internal/results, internal/simulator and internal/db.
package los
