// Package geom provides the small 3D vector vocabulary shared by the
// point-cloud, neighbor-graph, and plane-detection packages.
package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a 3D vector with float64 components. Points, normals, and plane
// basis vectors are all Vec3 values; the type carries no unit information.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Norm2 returns the squared Euclidean length of v.
func (v Vec3) Norm2() float64 {
	return v.Dot(v)
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged rather than producing NaNs.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Covariance computes the 3x3 covariance matrix of the given points around
// their centroid. It returns the centroid and the six unique covariance
// entries packed as a symmetric matrix. An empty input yields zeros.
func Covariance(points []Vec3) (centroid Vec3, cov *mat.SymDense) {
	cov = mat.NewSymDense(3, nil)
	n := len(points)
	if n == 0 {
		return centroid, cov
	}

	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float64(n))

	var c [3][3]float64
	for _, p := range points {
		d := p.Sub(centroid)
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				c[i][j] += d[i] * d[j]
			}
		}
	}
	inv := 1 / float64(n)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			cov.SetSym(i, j, c[i][j]*inv)
		}
	}
	return centroid, cov
}

// SmallestEigenvector returns the unit eigenvector of the symmetric matrix
// cov associated with its smallest eigenvalue. This is the direction of
// least variance, i.e. the surface normal of a roughly planar point set.
// ok is false when the factorization fails (degenerate input).
func SmallestEigenvector(cov *mat.SymDense) (v Vec3, ok bool) {
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return Vec3{}, false
	}
	// EigenSym orders eigenvalues ascending; column 0 is the smallest.
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	v = Vec3{vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)}
	return v.Normalize(), true
}
