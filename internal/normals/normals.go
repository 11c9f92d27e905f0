// Package normals estimates per-point surface normals from local
// neighborhoods via principal component analysis.
package normals

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/geom"
	"github.com/surface-data/planedetect/internal/knn"
)

// Estimate computes a unit normal for every point of pc using the point's
// neighbor-graph neighborhood (the point itself plus its graph neighbors),
// so normals and graph derive from the same k by construction.
//
// The normal is the least-variance direction of the neighborhood covariance
// (smallest eigenvector). Orientation is made deterministic by flipping
// each normal to face the origin — the sensor viewpoint for depth-camera
// frames: n·p <= 0. When the point sits exactly on the plane through the
// origin the sign is fixed by making the last nonzero component positive.
//
// Points with fewer than two neighbors have no usable neighborhood and get
// the zero vector; the detector treats such points as unmatchable.
func Estimate(pc *cloud.PointCloud, graph knn.Graph, workers int) []geom.Vec3 {
	n := pc.Len()
	out := make([]geom.Vec3, n)
	if n == 0 {
		return out
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			var hood []geom.Vec3
			for {
				i := next.Add(1) - 1
				if i >= int64(n) {
					return
				}
				out[i] = estimateOne(pc, graph[i], int(i), &hood)
			}
		}()
	}
	wg.Wait()

	return out
}

func estimateOne(pc *cloud.PointCloud, neighbors []int32, i int, scratch *[]geom.Vec3) geom.Vec3 {
	if len(neighbors) < 2 {
		return geom.Vec3{}
	}

	hood := (*scratch)[:0]
	hood = append(hood, pc.At(i))
	for _, j := range neighbors {
		hood = append(hood, pc.At(int(j)))
	}
	*scratch = hood

	_, cov := geom.Covariance(hood)
	normal, ok := geom.SmallestEigenvector(cov)
	if !ok {
		return geom.Vec3{}
	}

	return orient(normal, pc.At(i))
}

// orient flips normal so it faces the origin (n·p <= 0), with a fixed sign
// convention for the ambiguous n·p == 0 case.
func orient(normal, p geom.Vec3) geom.Vec3 {
	d := normal.Dot(p)
	switch {
	case d > 0:
		return normal.Scale(-1)
	case d < 0:
		return normal
	}
	for dim := 2; dim >= 0; dim-- {
		if normal[dim] > 0 {
			return normal
		}
		if normal[dim] < 0 {
			return normal.Scale(-1)
		}
	}
	return normal
}
