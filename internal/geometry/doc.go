// Package geometry owns the occlusion primitives of the LOS engine.
//
// Responsibilities: the world-space data model (vectors, quaternions,
// triangles, polygons), polygon triangulation, deterministic sphere
// sampling and the segment-vs-triangle occlusion oracle.
// Key types: Triangle, Polygon, Transform, Oracle.
//
// Dependency rule: geometry depends only on gonum. Frame orchestration
// lives in internal/los.
package geometry
