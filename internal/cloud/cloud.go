// Package cloud holds the in-memory point-cloud representation and the
// binary wire-format reader that produces it.
package cloud

import (
	"math"

	"github.com/surface-data/planedetect/internal/geom"
)

// PointCloud is an ordered, immutable set of 3D points. Point identity is
// the positional index within the input sequence; neighbor graphs, normal
// sets, and plane inlier lists all reference points by that index.
//
// The centroid and axis-aligned bounds are computed once at construction;
// the plane detector's octree needs them to size its root cell.
type PointCloud struct {
	points []geom.Vec3

	centroid  geom.Vec3
	minCorner geom.Vec3
	maxCorner geom.Vec3
	maxExtent float64
}

// NewPointCloud builds a PointCloud over the given points. The slice is
// retained, not copied; callers must not mutate it afterwards.
func NewPointCloud(points []geom.Vec3) *PointCloud {
	pc := &PointCloud{points: points}
	pc.computeBounds()
	return pc
}

func (pc *PointCloud) computeBounds() {
	if len(pc.points) == 0 {
		return
	}

	min := geom.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	max := geom.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	var sum geom.Vec3
	for _, p := range pc.points {
		sum = sum.Add(p)
		for d := 0; d < 3; d++ {
			if p[d] < min[d] {
				min[d] = p[d]
			}
			if p[d] > max[d] {
				max[d] = p[d]
			}
		}
	}

	pc.centroid = sum.Scale(1 / float64(len(pc.points)))
	pc.minCorner = min
	pc.maxCorner = max

	for d := 0; d < 3; d++ {
		if ext := max[d] - min[d]; ext > pc.maxExtent {
			pc.maxExtent = ext
		}
	}
}

// Len returns the number of points.
func (pc *PointCloud) Len() int {
	return len(pc.points)
}

// At returns the point at index i.
func (pc *PointCloud) At(i int) geom.Vec3 {
	return pc.points[i]
}

// Points returns the backing point slice. Read-only by convention.
func (pc *PointCloud) Points() []geom.Vec3 {
	return pc.points
}

// Centroid returns the mean position of all points.
func (pc *PointCloud) Centroid() geom.Vec3 {
	return pc.centroid
}

// Bounds returns the axis-aligned bounding box corners. For an empty cloud
// both corners are zero.
func (pc *PointCloud) Bounds() (min, max geom.Vec3) {
	return pc.minCorner, pc.maxCorner
}

// ExtensionCenter returns the center of the bounding box (distinct from the
// centroid for non-uniform clouds).
func (pc *PointCloud) ExtensionCenter() geom.Vec3 {
	return pc.minCorner.Add(pc.maxCorner).Scale(0.5)
}

// MaxExtent returns the largest bounding-box edge length.
func (pc *PointCloud) MaxExtent() float64 {
	return pc.maxExtent
}
