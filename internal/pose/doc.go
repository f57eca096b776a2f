// Package pose supplies posed body meshes and sensor transforms to the LOS
// engine. Every type here implements los.PoseProvider.
//
//   - Scene holds frames in memory and is built by hand or with Capture.
//   - Feed reads a pose feed directory exported by an animation tool.
//   - Synthetic poses a procedural torso with a swinging arm.
//
// WriteFeed exports any provider to the feed directory layout:
//
//	roster.csv                 id,name
//	frames/frame<N>.csv        group,x0,y0,z0,x1,y1,z1,...   one polygon per row
//	sensors/sensor_<ID>.csv    frame,x,y,z,w,rx,ry,rz
package pose
