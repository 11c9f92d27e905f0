// Package knn wraps a k-d tree spatial index and builds the per-point
// neighbor graph the plane detector consumes.
package knn

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/geom"
)

// pointNode is one indexed point inside the k-d tree. The id ties tree
// results back to point-cloud indices.
type pointNode struct {
	pos geom.Vec3
	id  int32
}

func (p pointNode) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(pointNode)
	return p.pos[d] - q.pos[d]
}

func (p pointNode) Dims() int { return 3 }

// Distance returns the squared Euclidean distance; ordering is preserved
// and the square root is never needed.
func (p pointNode) Distance(c kdtree.Comparable) float64 {
	q := c.(pointNode)
	return p.pos.Sub(q.pos).Norm2()
}

// pointNodes implements kdtree.Interface over a slice of pointNode.
type pointNodes []pointNode

func (p pointNodes) Index(i int) kdtree.Comparable { return p[i] }
func (p pointNodes) Len() int                      { return len(p) }
func (p pointNodes) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p pointNodes) Pivot(d kdtree.Dim) int {
	return nodePlane{pointNodes: p, Dim: d}.Pivot()
}

// nodePlane is the sort plane used during tree construction.
type nodePlane struct {
	kdtree.Dim
	pointNodes
}

func (p nodePlane) Less(i, j int) bool {
	return p.pointNodes[i].pos[p.Dim] < p.pointNodes[j].pos[p.Dim]
}
func (p nodePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	p.pointNodes = p.pointNodes[start:end]
	return p
}
func (p nodePlane) Swap(i, j int) {
	p.pointNodes[i], p.pointNodes[j] = p.pointNodes[j], p.pointNodes[i]
}

// Index is a read-only nearest-neighbor index over a point cloud. It is
// built once and is safe for concurrent queries afterwards.
type Index struct {
	tree *kdtree.Tree
	pc   *cloud.PointCloud
}

// NewIndex builds the k-d tree over all points of pc.
func NewIndex(pc *cloud.PointCloud) *Index {
	nodes := make(pointNodes, pc.Len())
	for i := range nodes {
		nodes[i] = pointNode{pos: pc.At(i), id: int32(i)}
	}
	return &Index{
		tree: kdtree.New(nodes, false),
		pc:   pc,
	}
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return ix.pc.Len()
}

// Nearest returns the indices of the k nearest neighbors of point i,
// ordered by ascending distance with ties broken by ascending index.
//
// Convention: the query point's own index is never included in its result
// (self-exclusion). When fewer than k other points exist the list is short.
func (ix *Index) Nearest(i int32, k int) []int32 {
	if k <= 0 || ix.pc.Len() < 2 {
		return nil
	}

	// Query k+1 so the query point itself, which the tree will report at
	// distance zero, can be dropped without shortening the result.
	keep := kdtree.NewNKeeper(k + 1)
	ix.tree.NearestSet(keep, pointNode{pos: ix.pc.At(int(i)), id: i})

	type hit struct {
		id   int32
		dist float64
	}
	hits := make([]hit, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue // unfilled keeper slot
		}
		n := c.Comparable.(pointNode)
		if n.id == i {
			continue
		}
		hits = append(hits, hit{id: n.id, dist: c.Dist})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].id < hits[b].id
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]int32, len(hits))
	for j, h := range hits {
		out[j] = h.id
	}
	return out
}
