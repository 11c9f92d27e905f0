package rspd

import (
	"math"
	"testing"

	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/geom"
	"github.com/surface-data/planedetect/internal/knn"
	"github.com/surface-data/planedetect/internal/normals"
)

// buildInputs assembles the cloud, neighbor graph, and normal set the
// detector consumes, the same way the pipeline does.
func buildInputs(t *testing.T, pts []geom.Vec3, k int) (*cloud.PointCloud, []geom.Vec3, knn.Graph) {
	t.Helper()
	pc := cloud.NewPointCloud(pts)
	graph := knn.BuildGraph(knn.NewIndex(pc), k, 4)
	return pc, normals.Estimate(pc, graph, 4), graph
}

// planarGrid returns an n x n grid spanning [0,extent] in x and y at
// height z.
func planarGrid(n int, extent, z float64) []geom.Vec3 {
	pts := make([]geom.Vec3, 0, n*n)
	step := extent / float64(n-1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pts = append(pts, geom.Vec3{float64(i) * step, float64(j) * step, z})
		}
	}
	return pts
}

func TestDetectSinglePlane(t *testing.T) {
	pc, ns, graph := buildInputs(t, planarGrid(48, 10, 5), 16)

	det := NewDetector(pc, ns, graph, 30)
	planes, err := det.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(planes) != 1 {
		t.Fatalf("detected %d planes, want 1", len(planes))
	}

	p := planes[0]
	if len(p.Inliers) != pc.Len() {
		t.Errorf("inliers = %d, want %d", len(p.Inliers), pc.Len())
	}
	if math.Abs(math.Abs(p.Normal[2])-1) > 1e-6 {
		t.Errorf("normal = %v, want +-Z", p.Normal)
	}
	if math.Abs(p.Center[2]-5) > 1e-6 {
		t.Errorf("center = %v, want z=5", p.Center)
	}
	if math.Abs(math.Abs(p.DistanceFromOrigin)-5) > 1e-6 {
		t.Errorf("distanceFromOrigin = %v, want +-5", p.DistanceFromOrigin)
	}

	// Basis vectors span the 10x10 rectangle: orthogonal, in-plane,
	// half-extent 5 each.
	if math.Abs(p.BasisU.Norm()-5) > 1e-3 || math.Abs(p.BasisV.Norm()-5) > 1e-3 {
		t.Errorf("basis lengths = %v, %v, want 5, 5", p.BasisU.Norm(), p.BasisV.Norm())
	}
	if math.Abs(p.BasisU.Dot(p.BasisV)) > 1e-6 {
		t.Errorf("basis vectors not orthogonal: %v . %v", p.BasisU, p.BasisV)
	}
	if math.Abs(p.BasisU.Dot(p.Normal)) > 1e-6 || math.Abs(p.BasisV.Dot(p.Normal)) > 1e-6 {
		t.Errorf("basis vectors not in-plane")
	}

	// Every inlier really lies on the plane.
	for _, i := range p.Inliers {
		if d := math.Abs(p.SignedDistance(pc.At(int(i)))); d > 1e-6 {
			t.Fatalf("inlier %d is %v from its plane", i, d)
		}
	}
}

func TestDetectTwoParallelPlanes(t *testing.T) {
	pts := append(planarGrid(24, 10, 0), planarGrid(24, 10, 10)...)
	pc, ns, graph := buildInputs(t, pts, 16)

	det := NewDetector(pc, ns, graph, 8)
	planes, err := det.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(planes) != 2 {
		t.Fatalf("detected %d planes, want 2", len(planes))
	}

	var offsets []float64
	for _, p := range planes {
		if len(p.Inliers) != 24*24 {
			t.Errorf("inliers = %d, want %d", len(p.Inliers), 24*24)
		}
		if math.Abs(math.Abs(p.Normal[2])-1) > 1e-6 {
			t.Errorf("normal = %v, want +-Z", p.Normal)
		}
		offsets = append(offsets, math.Abs(p.DistanceFromOrigin))
	}

	// One plane through the origin, one at height 10.
	if !(nearly(offsets[0], 0) && nearly(offsets[1], 10)) &&
		!(nearly(offsets[0], 10) && nearly(offsets[1], 0)) {
		t.Errorf("plane offsets = %v, want {0, 10}", offsets)
	}
}

func TestDetectPerpendicularPlanes(t *testing.T) {
	// A floor in xy and a wall in xz, separated so their neighborhoods
	// never touch.
	floor := planarGrid(24, 10, 0) // z = 0
	wall := make([]geom.Vec3, 0, 24*24)
	step := 10.0 / 23
	for i := 0; i < 24; i++ {
		for j := 0; j < 24; j++ {
			wall = append(wall, geom.Vec3{float64(i) * step, 14, float64(j)*step + 3})
		}
	}

	pc, ns, graph := buildInputs(t, append(floor, wall...), 16)
	det := NewDetector(pc, ns, graph, 8)
	planes, err := det.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(planes) != 2 {
		t.Fatalf("detected %d planes, want 2", len(planes))
	}

	sawFloor, sawWall := false, false
	for _, p := range planes {
		switch {
		case math.Abs(math.Abs(p.Normal[2])-1) < 1e-6:
			sawFloor = true
		case math.Abs(math.Abs(p.Normal[1])-1) < 1e-6:
			sawWall = true
		default:
			t.Errorf("unexpected plane normal %v", p.Normal)
		}
	}
	if !sawFloor || !sawWall {
		t.Errorf("missing a plane: floor=%v wall=%v", sawFloor, sawWall)
	}
}

func TestDetectTooFewPoints(t *testing.T) {
	pc, ns, graph := buildInputs(t, []geom.Vec3{{0, 0, 0}, {0, 0, 0}}, 1)
	det := NewDetector(pc, ns, graph, 30)
	planes, err := det.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(planes) != 0 {
		t.Errorf("detected %d planes from 2 points, want 0", len(planes))
	}
}

func TestDetectMinNumPointsFilters(t *testing.T) {
	pc, ns, graph := buildInputs(t, planarGrid(48, 10, 5), 16)
	det := NewDetector(pc, ns, graph, pc.Len()+1)
	planes, err := det.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(planes) != 0 {
		t.Errorf("detected %d planes with unreachable minNumPoints, want 0", len(planes))
	}
}

func TestDetectEmptyCloud(t *testing.T) {
	pc := cloud.NewPointCloud(nil)
	det := NewDetector(pc, nil, knn.Graph{}, 30)
	planes, err := det.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(planes) != 0 {
		t.Errorf("detected %d planes in empty cloud", len(planes))
	}
}

func TestDetectSizeMismatch(t *testing.T) {
	pc := cloud.NewPointCloud([]geom.Vec3{{0, 0, 0}, {1, 0, 0}})
	det := NewDetector(pc, []geom.Vec3{{0, 0, 1}}, knn.Graph{nil, nil}, 30)
	if _, err := det.Detect(); err == nil {
		t.Fatal("expected error for mismatched normal set size")
	}
}

func TestDetectDeterministic(t *testing.T) {
	pts := append(planarGrid(24, 10, 0), planarGrid(24, 10, 10)...)

	run := func() []*Plane {
		pc, ns, graph := buildInputs(t, pts, 16)
		det := NewDetector(pc, ns, graph, 8)
		planes, err := det.Detect()
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		return planes
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("plane counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Normal != b[i].Normal || a[i].Center != b[i].Center {
			t.Errorf("plane %d differs between runs", i)
		}
		if len(a[i].Inliers) != len(b[i].Inliers) {
			t.Errorf("plane %d inlier counts differ", i)
		}
	}
}

func nearly(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
