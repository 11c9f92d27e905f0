package rspd

import (
	"sort"

	"github.com/surface-data/planedetect/internal/geom"
)

// planarPatch is a working plane hypothesis: a plane estimate plus the
// indices currently assigned to it. Patches start as octree cells that
// pass the robust planarity test and are then grown and merged.
type planarPatch struct {
	center  geom.Vec3
	normal  geom.Vec3
	inliers []int32
}

// robustPlane estimates a patch plane from an index set using order
// statistics: the center is the componentwise median of positions and the
// normal is the componentwise median of the point normals after aligning
// them to a common hemisphere. Medians keep a minority of mis-estimated
// normals or stray depth samples from dragging the estimate.
func (d *Detector) robustPlane(indices []int32) (center, normal geom.Vec3, ok bool) {
	if len(indices) == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}

	// Reference normal for hemisphere alignment: first nonzero normal.
	var ref geom.Vec3
	for _, i := range indices {
		if n := d.normals[i]; n.Norm2() > 0 {
			ref = n
			break
		}
	}
	if ref.Norm2() == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}

	vals := make([]float64, 0, len(indices))
	for dim := 0; dim < 3; dim++ {
		vals = vals[:0]
		for _, i := range indices {
			vals = append(vals, d.pc.At(int(i))[dim])
		}
		center[dim] = median(vals)

		vals = vals[:0]
		for _, i := range indices {
			n := d.normals[i]
			if n.Norm2() == 0 {
				continue
			}
			if n.Dot(ref) < 0 {
				n = n.Scale(-1)
			}
			vals = append(vals, n[dim])
		}
		normal[dim] = median(vals)
	}

	normal = normal.Normalize()
	if normal.Norm2() == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	return center, normal, true
}

// makePatch runs the planarity test on an octree cell's points. The cell
// is planar when, against the robust plane estimate, the fraction of
// points failing the normal-deviation or distance test stays within the
// outlier ratio and enough inliers remain.
func (d *Detector) makePatch(indices []int32) (*planarPatch, bool) {
	center, normal, ok := d.robustPlane(indices)
	if !ok {
		return nil, false
	}

	inliers := make([]int32, 0, len(indices))
	for _, i := range indices {
		if d.normalOK(i, normal) && d.distOK(i, center, normal) {
			inliers = append(inliers, i)
		}
	}

	outliers := len(indices) - len(inliers)
	if float64(outliers) > d.outlierRatio*float64(len(indices)) {
		return nil, false
	}
	if len(inliers) < d.minNumPoints {
		return nil, false
	}

	sort.Slice(inliers, func(a, b int) bool { return inliers[a] < inliers[b] })
	return &planarPatch{center: center, normal: normal, inliers: inliers}, true
}

// normalOK tests the angle between the point's normal and the patch
// normal: |n_i · n| >= cos(minNormalDiff).
func (d *Detector) normalOK(i int32, normal geom.Vec3) bool {
	dot := d.normals[i].Dot(normal)
	if dot < 0 {
		dot = -dot
	}
	return dot >= d.cosNormalDiff
}

// distOK tests the point's displacement from the patch center against the
// plane: the displacement must lie within maxDist degrees of the plane,
// i.e. |n · (p - c)| <= cos(maxDist) · |p - c|. A point coincident with
// the center trivially passes.
func (d *Detector) distOK(i int32, center, normal geom.Vec3) bool {
	v := d.pc.At(int(i)).Sub(center)
	norm := v.Norm()
	if norm == 0 {
		return true
	}
	dot := normal.Dot(v)
	if dot < 0 {
		dot = -dot
	}
	return dot <= d.cosMaxDist*norm
}

// refit re-estimates the patch plane by least squares over its current
// inliers, keeping the previous orientation. Degenerate fits leave the
// plane unchanged.
func (d *Detector) refit(p *planarPatch) {
	pts := make([]geom.Vec3, len(p.inliers))
	for j, i := range p.inliers {
		pts[j] = d.pc.At(int(i))
	}
	centroid, cov := geom.Covariance(pts)
	normal, ok := geom.SmallestEigenvector(cov)
	if !ok || normal.Norm2() == 0 {
		return
	}
	if normal.Dot(p.normal) < 0 {
		normal = normal.Scale(-1)
	}
	p.center = centroid
	p.normal = normal
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
