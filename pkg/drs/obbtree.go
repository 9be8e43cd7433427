package drs

import "fmt"

// OBBNode is one entry in the flat, contiguous OBB tree array. Child and
// skip indices use 0 as the leaf sentinel (the root lives at index 0 and is
// never referenced as a child). The triangle span addresses the tree's
// global face list.
type OBBNode struct {
	OrientedBox    CMatCoordinateSystem
	FirstChild     uint16
	SecondChild    uint16
	SkipPointer    uint16
	NodeDepth      uint16
	TriangleOffset uint32
	TotalTriangles uint32
}

// IsLeaf reports whether the node has no children.
func (n *OBBNode) IsLeaf() bool { return n.FirstChild == 0 && n.SecondChild == 0 }

// CGeoOBBTree is a binary tree of oriented bounding volumes with
// skip-pointers for stackless traversal, plus the face list shared by all
// leaves.
type CGeoOBBTree struct {
	Version int32
	Nodes   []OBBNode
	Faces   []Face
}

func (*CGeoOBBTree) Magic() int32     { return MagicCGeoOBBTree }
func (*CGeoOBBTree) TypeName() string { return "CGeoOBBTree" }

func (t *CGeoOBBTree) decode(r *reader) error {
	sig := r.i32()
	if r.err != nil {
		return r.err
	}
	if sig != obbTreeSignature {
		r.fail(fmt.Errorf("%w: OBB tree signature %d", ErrSignatureMismatch, sig))
		return r.err
	}
	t.Version = r.i32()
	nodeCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if nodeCount < 0 || int(nodeCount)*64 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	t.Nodes = make([]OBBNode, nodeCount)
	for i := range t.Nodes {
		n := &t.Nodes[i]
		n.OrientedBox = r.coordSystem()
		n.FirstChild = r.u16()
		n.SecondChild = r.u16()
		n.SkipPointer = r.u16()
		n.NodeDepth = r.u16()
		n.TriangleOffset = r.u32()
		n.TotalTriangles = r.u32()
	}
	faceCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if faceCount < 0 || int(faceCount)*6 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	t.Faces = make([]Face, faceCount)
	for i := range t.Faces {
		t.Faces[i].Indices[0] = r.u16()
		t.Faces[i].Indices[1] = r.u16()
		t.Faces[i].Indices[2] = r.u16()
	}
	return r.err
}

func (t *CGeoOBBTree) encode(w *writer) {
	w.i32(obbTreeSignature)
	w.i32(t.Version)
	w.i32(int32(len(t.Nodes)))
	for i := range t.Nodes {
		n := &t.Nodes[i]
		w.coordSystem(n.OrientedBox)
		w.u16(n.FirstChild)
		w.u16(n.SecondChild)
		w.u16(n.SkipPointer)
		w.u16(n.NodeDepth)
		w.u32(n.TriangleOffset)
		w.u32(n.TotalTriangles)
	}
	w.i32(int32(len(t.Faces)))
	for i := range t.Faces {
		w.u16(t.Faces[i].Indices[0])
		w.u16(t.Faces[i].Indices[1])
		w.u16(t.Faces[i].Indices[2])
	}
}
