// Package rspd implements robust-statistics plane detection over a point
// cloud with precomputed normals and a k-NN neighbor graph. Candidate
// planar patches are found by recursive octree subdivision, grown through
// the neighbor graph, and merged where they describe the same surface.
package rspd

import "github.com/surface-data/planedetect/internal/geom"

// Plane is one detected planar surface. Immutable after detection.
//
// BasisU and BasisV are orthogonal in-plane axes scaled by the half-extents
// of the plane's bounding rectangle, so the four corners are
// Center ± BasisU ± BasisV. DistanceFromOrigin is the signed plane offset
// -Normal·Center, making Normal·p + DistanceFromOrigin the signed distance
// of any point p from the plane.
type Plane struct {
	Center             geom.Vec3
	Normal             geom.Vec3
	BasisU             geom.Vec3
	BasisV             geom.Vec3
	DistanceFromOrigin float64
	Inliers            []int32
}

// SignedDistance returns the signed distance of p from the plane.
func (p *Plane) SignedDistance(pt geom.Vec3) float64 {
	return p.Normal.Dot(pt) + p.DistanceFromOrigin
}
