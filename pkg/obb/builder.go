// Package obb builds oriented-bounding-box trees over triangle meshes.
// The tree layout matches CGeoOBBTree: a flat pre-order node array with
// uint16 child links, a skip pointer per node for stackless traversal, and
// a reordered copy of the input face list addressed by leaf spans.
package obb

import (
	"fmt"
	"sort"

	"github.com/Faultbox/battleforge-drs/pkg/drs"
	"github.com/Faultbox/battleforge-drs/pkg/math"
)

// DefaultLeafThreshold is the largest triangle span kept in one leaf when
// Options does not override it.
const DefaultLeafThreshold = 8

// treeVersion is the CGeoOBBTree payload version the game ships with.
const treeVersion = 3

// maxNodes bounds the node array; child and skip links are 16-bit.
const maxNodes = 65535

// Options tunes tree construction.
type Options struct {
	// LeafThreshold is the maximum number of triangles per leaf. Zero
	// means DefaultLeafThreshold.
	LeafThreshold int
}

type builder struct {
	vertices  []math.Vec3
	faces     []drs.Face
	nodes     []drs.OBBNode
	threshold int
}

// Build fits an OBB tree to the mesh. The face list is copied and
// reordered so that every leaf addresses a contiguous span; the input
// slices are not modified.
func Build(vertices []drs.Vector4, faces []drs.Face, opts Options) (*drs.CGeoOBBTree, error) {
	if len(faces) == 0 {
		return nil, fmt.Errorf("mesh has no faces: %w", drs.ErrDegenerateGeometry)
	}
	threshold := opts.LeafThreshold
	if threshold <= 0 {
		threshold = DefaultLeafThreshold
	}

	b := &builder{
		vertices:  make([]math.Vec3, len(vertices)),
		faces:     make([]drs.Face, len(faces)),
		threshold: threshold,
	}
	for i, v := range vertices {
		b.vertices[i] = math.Vec3{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
	}
	copy(b.faces, faces)
	for i := range b.faces {
		for _, idx := range b.faces[i].Indices {
			if int(idx) >= len(vertices) {
				return nil, fmt.Errorf("face %d references vertex %d of %d: %w",
					i, idx, len(vertices), drs.ErrIndexOutOfRange)
			}
		}
	}

	if _, err := b.build(0, len(b.faces), 0); err != nil {
		return nil, err
	}
	return &drs.CGeoOBBTree{
		Version: treeVersion,
		Nodes:   b.nodes,
		Faces:   b.faces,
	}, nil
}

// build emits the node for faces[start:end) and recurses, returning the
// new node's index. Nodes are appended in pre-order; after a subtree is
// complete its root's skip pointer is the next free index.
func (b *builder) build(start, end, depth int) (int, error) {
	if len(b.nodes) >= maxNodes {
		return 0, fmt.Errorf("OBB tree exceeds %d nodes: %w", maxNodes, drs.ErrIndexOutOfRange)
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, drs.OBBNode{
		NodeDepth:      uint16(depth),
		TriangleOffset: uint32(start),
		TotalTriangles: uint32(end - start),
	})

	points := b.spanPoints(start, end)
	basis, extents, center := fitBox(points)
	b.nodes[idx].OrientedBox = coordSystem(basis, center)

	if end-start > b.threshold {
		mid := b.split(start, end, basis, extents)
		first, err := b.build(start, mid, depth+1)
		if err != nil {
			return 0, err
		}
		second, err := b.build(mid, end, depth+1)
		if err != nil {
			return 0, err
		}
		b.nodes[idx].FirstChild = uint16(first)
		b.nodes[idx].SecondChild = uint16(second)
	}

	b.nodes[idx].SkipPointer = uint16(len(b.nodes))
	return idx, nil
}

// spanPoints collects the corner points of every triangle in the span.
func (b *builder) spanPoints(start, end int) []math.Vec3 {
	points := make([]math.Vec3, 0, (end-start)*3)
	for i := start; i < end; i++ {
		for _, idx := range b.faces[i].Indices {
			points = append(points, b.vertices[idx])
		}
	}
	return points
}

// fitBox derives an orthonormal basis from the principal directions of the
// point set, then sizes the box from the extreme projections. It returns
// the basis rows, the extent along each basis axis, and the world-space
// box center.
func fitBox(points []math.Vec3) (basis math.Mat3, extents [3]float64, center math.Vec3) {
	cov := math.Covariance(points)
	_, vectors := math.EigenSym(cov)
	basis = math.Orthonormalize(vectors)

	var lo, hi [3]float64
	for i, p := range points {
		for axis := 0; axis < 3; axis++ {
			d := basis.Row(axis).Dot(p)
			if i == 0 || d < lo[axis] {
				lo[axis] = d
			}
			if i == 0 || d > hi[axis] {
				hi[axis] = d
			}
		}
	}
	for axis := 0; axis < 3; axis++ {
		extents[axis] = hi[axis] - lo[axis]
		mid := (lo[axis] + hi[axis]) / 2
		center = center.Add(basis.Row(axis).Scale(mid))
	}
	return basis, extents, center
}

// split reorders faces[start:end) by centroid projection onto the basis
// axis of greatest extent and returns the median cut point. Both halves
// are guaranteed non-empty; spans whose projections are all equal keep
// index order.
func (b *builder) split(start, end int, basis math.Mat3, extents [3]float64) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if extents[i] > extents[axis] {
			axis = i
		}
	}
	dir := basis.Row(axis)

	span := b.faces[start:end]
	keys := make([]float64, len(span))
	for i := range span {
		keys[i] = dir.Dot(b.centroid(span[i]))
	}
	allEqual := true
	for i := 1; i < len(keys); i++ {
		if keys[i] != keys[0] {
			allEqual = false
			break
		}
	}
	if !allEqual {
		order := make([]int, len(span))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
		reordered := make([]drs.Face, len(span))
		for i, o := range order {
			reordered[i] = span[o]
		}
		copy(span, reordered)
	}
	return start + len(span)/2
}

func (b *builder) centroid(f drs.Face) math.Vec3 {
	sum := b.vertices[f.Indices[0]].Add(b.vertices[f.Indices[1]]).Add(b.vertices[f.Indices[2]])
	return sum.Scale(1.0 / 3.0)
}

// coordSystem packs a double-precision basis and center into the wire
// transform.
func coordSystem(basis math.Mat3, center math.Vec3) drs.CMatCoordinateSystem {
	var c drs.CMatCoordinateSystem
	for i := 0; i < 9; i++ {
		c.Rotation[i] = float32(basis[i])
	}
	c.Position = drs.Vector3{X: float32(center.X), Y: float32(center.Y), Z: float32(center.Z)}
	return c
}
