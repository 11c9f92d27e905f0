package rspd

import (
	"fmt"
	"math"
	"sort"

	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/geom"
	"github.com/surface-data/planedetect/internal/knn"
)

// Built-in detection thresholds. These are the authoritative defaults: the
// pipeline layer deliberately leaves any parameter the caller did not
// override at the value set here.
const (
	DefaultMinNormalDiffDeg = 60.0
	DefaultMaxDistDeg       = 75.0
	DefaultOutlierRatio     = 0.75
)

// minPatchLevel is the shallowest octree level allowed to seed a patch.
// Testing cells nearer the root would accept huge weakly-planar regions
// that growth and merging cannot recover from.
const minPatchLevel = 3

// Detector finds planar surfaces in a point cloud. Construct with
// NewDetector, optionally adjust thresholds, then call Detect exactly once.
type Detector struct {
	pc      *cloud.PointCloud
	normals []geom.Vec3
	graph   knn.Graph

	cosNormalDiff float64 // cos(minNormalDiff)
	cosMaxDist    float64 // cos(maxDist)
	outlierRatio  float64
	minNumPoints  int
}

// NewDetector builds a detector over the cloud, its per-point normals, and
// its neighbor graph. minNumPoints is the minimum inlier count for a valid
// plane; it is not validated here, out-of-domain values are the caller's
// responsibility. Thresholds start at the package defaults.
func NewDetector(pc *cloud.PointCloud, normals []geom.Vec3, graph knn.Graph, minNumPoints int) *Detector {
	return &Detector{
		pc:            pc,
		normals:       normals,
		graph:         graph,
		cosNormalDiff: math.Cos(geom.DegToRad(DefaultMinNormalDiffDeg)),
		cosMaxDist:    math.Cos(geom.DegToRad(DefaultMaxDistDeg)),
		outlierRatio:  DefaultOutlierRatio,
		minNumPoints:  minNumPoints,
	}
}

// SetMinNormalDiff sets the plane-merge normal-angle threshold in degrees.
func (d *Detector) SetMinNormalDiff(deg float64) {
	d.cosNormalDiff = math.Cos(geom.DegToRad(deg))
}

// SetMaxDist sets the plane-merge distance-angle threshold in degrees.
func (d *Detector) SetMaxDist(deg float64) {
	d.cosMaxDist = math.Cos(geom.DegToRad(deg))
}

// SetOutlierRatio sets the maximum fraction of outlier points tolerated
// per candidate patch.
func (d *Detector) SetOutlierRatio(ratio float64) {
	d.outlierRatio = ratio
}

// Detect runs the full detection pass and returns the detected planes in
// deterministic emission order (octree traversal order of the surviving
// seed patches). The result is unordered in the ranking sense; callers
// sort it themselves.
func (d *Detector) Detect() ([]*Plane, error) {
	n := d.pc.Len()
	if len(d.normals) != n {
		return nil, fmt.Errorf("normal set size %d does not match cloud size %d", len(d.normals), n)
	}
	if len(d.graph) != n {
		return nil, fmt.Errorf("neighbor graph size %d does not match cloud size %d", len(d.graph), n)
	}
	if n == 0 {
		return []*Plane{}, nil
	}

	// Seed patches from octree cells that pass the planarity test.
	root := newOctree(d.pc)
	var patches []*planarPatch
	d.detectPatches(root, &patches)

	// assigned[i] is the patch index owning point i, or -1. Seed patches
	// come from disjoint octree cells, so first-write order is irrelevant.
	assigned := make([]int32, n)
	for i := range assigned {
		assigned[i] = -1
	}
	for pi, p := range patches {
		for _, i := range p.inliers {
			assigned[i] = int32(pi)
		}
	}

	d.growAll(patches, assigned, false)
	for _, p := range patches {
		if p != nil {
			d.refit(p)
		}
	}

	for d.mergeOnce(patches, assigned) {
	}

	// Final relaxed growth sweeps up boundary points whose normals are too
	// noisy for the strict test but that clearly lie on the plane.
	d.growAll(patches, assigned, true)

	planes := make([]*Plane, 0, len(patches))
	for _, p := range patches {
		if p == nil || len(p.inliers) < d.minNumPoints {
			continue
		}
		d.refit(p)
		sort.Slice(p.inliers, func(a, b int) bool { return p.inliers[a] < p.inliers[b] })
		planes = append(planes, d.delimit(p))
	}
	return planes, nil
}

// detectPatches recursively partitions the octree and tests cells
// bottom-up: a cell is only tested when none of its children yielded a
// patch and it is deep enough in the tree. Returns whether the subtree
// produced at least one patch.
func (d *Detector) detectPatches(nd *octreeNode, patches *[]*planarPatch) bool {
	if nd.numPoints() < d.minNumPoints || nd.numPoints() < 2 {
		return false
	}

	nd.partition(d.minNumPoints)

	found := false
	for _, c := range nd.children {
		if c != nil && d.detectPatches(c, patches) {
			found = true
		}
	}

	if !found && nd.level >= minPatchLevel {
		if patch, ok := d.makePatch(nd.points(nil)); ok {
			*patches = append(*patches, patch)
			found = true
		}
	}
	return found
}

// growAll expands every patch through the neighbor graph, breadth-first
// from its current inliers. A point joins a patch when it is unassigned
// and compatible with the patch plane; each point joins at most one patch,
// so patches stay disjoint. In relaxed mode the normal test is skipped.
func (d *Detector) growAll(patches []*planarPatch, assigned []int32, relaxed bool) {
	for pi, p := range patches {
		if p == nil {
			continue
		}
		queue := append([]int32(nil), p.inliers...)
		for head := 0; head < len(queue); head++ {
			for _, j := range d.graph[queue[head]] {
				if assigned[j] != -1 {
					continue
				}
				if !relaxed && !d.normalOK(j, p.normal) {
					continue
				}
				if !d.distOK(j, p.center, p.normal) {
					continue
				}
				assigned[j] = int32(pi)
				p.inliers = append(p.inliers, j)
				queue = append(queue, j)
			}
		}
	}
}

// mergeOnce makes one pass over the patch slice in emission order, each
// surviving patch absorbing its compatible graph-adjacent neighbors.
// Returns true if any merge happened; callers loop until fixpoint. Absorbed
// slots become nil so that surviving patches keep their octree emission
// order.
func (d *Detector) mergeOnce(patches []*planarPatch, assigned []int32) bool {
	merged := false
	for ai, a := range patches {
		if a == nil {
			continue
		}
		for _, bi := range d.adjacentPatches(a, assigned, int32(ai)) {
			b := patches[bi]
			if b == nil {
				continue
			}
			if !d.patchesCompatible(a, b) {
				continue
			}
			for _, j := range b.inliers {
				assigned[j] = int32(ai)
			}
			a.inliers = append(a.inliers, b.inliers...)
			patches[bi] = nil
			d.refit(a)
			merged = true
		}
	}
	return merged
}

// adjacentPatches returns the sorted, deduplicated indices of patches that
// share a neighbor-graph edge with patch self.
func (d *Detector) adjacentPatches(p *planarPatch, assigned []int32, self int32) []int32 {
	var adj []int32
	seen := int32(-1)
	for _, i := range p.inliers {
		for _, j := range d.graph[i] {
			pi := assigned[j]
			if pi == -1 || pi == self || pi == seen {
				continue
			}
			adj = append(adj, pi)
			seen = pi
		}
	}
	if len(adj) == 0 {
		return nil
	}
	sort.Slice(adj, func(a, b int) bool { return adj[a] < adj[b] })
	out := adj[:1]
	for _, v := range adj[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// patchesCompatible reports whether two patches describe the same surface:
// their normals agree within the normal-angle threshold and each center
// lies within the distance-angle threshold of the other's plane.
func (d *Detector) patchesCompatible(a, b *planarPatch) bool {
	dot := a.normal.Dot(b.normal)
	if dot < 0 {
		dot = -dot
	}
	if dot < d.cosNormalDiff {
		return false
	}
	return d.centerNearPlane(a, b.center) && d.centerNearPlane(b, a.center)
}

func (d *Detector) centerNearPlane(p *planarPatch, c geom.Vec3) bool {
	v := c.Sub(p.center)
	norm := v.Norm()
	if norm == 0 {
		return true
	}
	dot := p.normal.Dot(v)
	if dot < 0 {
		dot = -dot
	}
	return dot <= d.cosMaxDist*norm
}
