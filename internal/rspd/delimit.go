package rspd

import (
	"math"

	"github.com/surface-data/planedetect/internal/geom"
)

// rectSearchSteps is the angular resolution of the in-plane bounding
// rectangle search: 90 degrees swept in 1-degree steps.
const rectSearchSteps = 90

// delimit converts a finished patch into its reported Plane: it projects
// the inliers onto the patch plane, finds the minimum-area bounding
// rectangle by sweeping candidate orientations, and encodes the rectangle
// as Center ± BasisU ± BasisV.
func (d *Detector) delimit(p *planarPatch) *Plane {
	n := p.normal
	u0 := perpendicular(n)
	v0 := n.Cross(u0).Normalize()

	// 2D coordinates of the inliers in the (u0, v0) plane frame.
	us := make([]float64, len(p.inliers))
	vs := make([]float64, len(p.inliers))
	for j, i := range p.inliers {
		w := d.pc.At(int(i)).Sub(p.center)
		us[j] = w.Dot(u0)
		vs[j] = w.Dot(v0)
	}

	bestArea := math.MaxFloat64
	var bestTheta, bestMinU, bestMaxU, bestMinV, bestMaxV float64
	for step := 0; step < rectSearchSteps; step++ {
		theta := geom.DegToRad(float64(step))
		cos, sin := math.Cos(theta), math.Sin(theta)

		minU, maxU := math.MaxFloat64, -math.MaxFloat64
		minV, maxV := math.MaxFloat64, -math.MaxFloat64
		for j := range us {
			ru := us[j]*cos + vs[j]*sin
			rv := -us[j]*sin + vs[j]*cos
			minU = math.Min(minU, ru)
			maxU = math.Max(maxU, ru)
			minV = math.Min(minV, rv)
			maxV = math.Max(maxV, rv)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			bestTheta = theta
			bestMinU, bestMaxU = minU, maxU
			bestMinV, bestMaxV = minV, maxV
		}
	}

	cos, sin := math.Cos(bestTheta), math.Sin(bestTheta)
	uAxis := u0.Scale(cos).Add(v0.Scale(sin))
	vAxis := u0.Scale(-sin).Add(v0.Scale(cos))

	halfU := (bestMaxU - bestMinU) / 2
	halfV := (bestMaxV - bestMinV) / 2
	midU := (bestMinU + bestMaxU) / 2
	midV := (bestMinV + bestMaxV) / 2

	center := p.center.Add(uAxis.Scale(midU)).Add(vAxis.Scale(midV))

	return &Plane{
		Center:             center,
		Normal:             n,
		BasisU:             uAxis.Scale(halfU),
		BasisV:             vAxis.Scale(halfV),
		DistanceFromOrigin: -n.Dot(center),
		Inliers:            p.inliers,
	}
}

// perpendicular returns a unit vector orthogonal to n, derived from the
// coordinate axis least aligned with n so the choice is stable.
func perpendicular(n geom.Vec3) geom.Vec3 {
	axis := geom.Vec3{1, 0, 0}
	smallest := math.Abs(n[0])
	if a := math.Abs(n[1]); a < smallest {
		axis = geom.Vec3{0, 1, 0}
		smallest = a
	}
	if a := math.Abs(n[2]); a < smallest {
		axis = geom.Vec3{0, 0, 1}
	}
	return axis.Sub(n.Scale(axis.Dot(n))).Normalize()
}
