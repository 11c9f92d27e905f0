package rspd

import (
	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/geom"
)

const (
	// maxOctreeLevel bounds subdivision depth so degenerate clouds (many
	// coincident points) cannot recurse without end.
	maxOctreeLevel = 24

	// minCellHalf is the smallest half-edge a cell may be split to.
	minCellHalf = 1e-9
)

// octreeNode is a cubic cell over point indices. The root spans the
// cloud's bounding box; partition moves a leaf's indices into up to eight
// children. Child order is fixed by the coordinate-sign bit pattern, which
// keeps traversal (and therefore patch emission order) deterministic.
type octreeNode struct {
	pc       *cloud.PointCloud
	center   geom.Vec3
	half     float64
	level    int
	indices  []int32
	children [8]*octreeNode
	leaf     bool
}

func newOctree(pc *cloud.PointCloud) *octreeNode {
	indices := make([]int32, pc.Len())
	for i := range indices {
		indices[i] = int32(i)
	}
	half := pc.MaxExtent() / 2
	return &octreeNode{
		pc:      pc,
		center:  pc.ExtensionCenter(),
		half:    half,
		indices: indices,
		leaf:    true,
	}
}

// partition splits a leaf once, distributing its points among children.
// Small or degenerate cells stay leaves.
func (nd *octreeNode) partition(minNumPoints int) {
	if !nd.leaf || len(nd.indices) <= 1 || len(nd.indices) <= minNumPoints {
		return
	}
	if nd.level >= maxOctreeLevel || nd.half/2 < minCellHalf {
		return
	}

	nd.leaf = false
	newHalf := nd.half / 2
	for _, idx := range nd.indices {
		ci := nd.childIndex(nd.pc.At(int(idx)))
		child := nd.children[ci]
		if child == nil {
			child = &octreeNode{
				pc:     nd.pc,
				center: nd.childCenter(ci, newHalf),
				half:   newHalf,
				level:  nd.level + 1,
				leaf:   true,
			}
			nd.children[ci] = child
		}
		child.indices = append(child.indices, idx)
	}
	nd.indices = nil
}

func (nd *octreeNode) childIndex(p geom.Vec3) int {
	ci := 0
	for d := 0; d < 3; d++ {
		if p[d] > nd.center[d] {
			ci |= 1 << (2 - d)
		}
	}
	return ci
}

func (nd *octreeNode) childCenter(ci int, newHalf float64) geom.Vec3 {
	c := nd.center
	for d := 0; d < 3; d++ {
		if ci&(1<<(2-d)) != 0 {
			c[d] += newHalf
		} else {
			c[d] -= newHalf
		}
	}
	return c
}

func (nd *octreeNode) numPoints() int {
	if nd.leaf {
		return len(nd.indices)
	}
	n := 0
	for _, c := range nd.children {
		if c != nil {
			n += c.numPoints()
		}
	}
	return n
}

// points gathers the indices of all points in the node's subtree, in
// deterministic child order.
func (nd *octreeNode) points(dst []int32) []int32 {
	if nd.leaf {
		return append(dst, nd.indices...)
	}
	for _, c := range nd.children {
		if c != nil {
			dst = c.points(dst)
		}
	}
	return dst
}
