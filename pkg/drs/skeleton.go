package drs

import "fmt"

// BoneVertex is one row of a bind-pose bone matrix: a position plus a
// reserved integer whose purpose is undocumented. It is preserved verbatim.
type BoneVertex struct {
	Position Vector3
	Parent   int32
}

// BoneMatrix is the bind-pose transform data for one bone, four rows.
type BoneMatrix struct {
	Vertices [4]BoneVertex
}

// Bone is one skeleton joint. Identifiers are dense 0..N-1; parent/child
// links use identifiers, never indices into a reordered array.
type Bone struct {
	Version    uint32
	Identifier int32
	Name       string
	Children   []int32
}

// CSkSkeleton holds the bone list and a parallel bind-pose matrix array
// indexed by bone identifier, plus a trailing 4x4 super-parent matrix.
type CSkSkeleton struct {
	Version     int32
	Matrices    []BoneMatrix
	Bones       []Bone
	SuperParent Matrix4x4
}

func (*CSkSkeleton) Magic() int32     { return MagicCSkSkeleton }
func (*CSkSkeleton) TypeName() string { return "CSkSkeleton" }

func (s *CSkSkeleton) decode(r *reader) error {
	sig := r.i32()
	if r.err != nil {
		return r.err
	}
	if sig != skeletonSignature {
		r.fail(fmt.Errorf("%w: skeleton signature %d", ErrSignatureMismatch, sig))
		return r.err
	}
	s.Version = r.i32()
	matrixCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if matrixCount < 0 || int(matrixCount)*64 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Matrices = make([]BoneMatrix, matrixCount)
	for i := range s.Matrices {
		for j := 0; j < 4; j++ {
			s.Matrices[i].Vertices[j].Position = r.vec3()
			s.Matrices[i].Vertices[j].Parent = r.i32()
		}
	}
	boneCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if boneCount < 0 || int(boneCount)*16 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Bones = make([]Bone, boneCount)
	for i := range s.Bones {
		b := &s.Bones[i]
		b.Version = r.u32()
		b.Identifier = r.i32()
		b.Name = r.lenString()
		childCount := r.i32()
		if r.err != nil {
			return r.err
		}
		if childCount < 0 || int(childCount)*4 > r.remaining() {
			r.fail(ErrTruncatedData)
			return r.err
		}
		if childCount > 0 {
			b.Children = make([]int32, childCount)
			for j := range b.Children {
				b.Children[j] = r.i32()
			}
		}
	}
	s.SuperParent = r.mat4()
	return r.err
}

func (s *CSkSkeleton) encode(w *writer) {
	w.i32(skeletonSignature)
	w.i32(s.Version)
	w.i32(int32(len(s.Matrices)))
	for i := range s.Matrices {
		for j := 0; j < 4; j++ {
			w.vec3(s.Matrices[i].Vertices[j].Position)
			w.i32(s.Matrices[i].Vertices[j].Parent)
		}
	}
	w.i32(int32(len(s.Bones)))
	for i := range s.Bones {
		b := &s.Bones[i]
		w.u32(b.Version)
		w.i32(b.Identifier)
		w.lenString(b.Name)
		w.i32(int32(len(b.Children)))
		for _, c := range b.Children {
			w.i32(c)
		}
	}
	w.mat4(s.SuperParent)
}

// BoneByIdentifier returns the bone with the given identifier, or nil.
func (s *CSkSkeleton) BoneByIdentifier(id int32) *Bone {
	for i := range s.Bones {
		if s.Bones[i].Identifier == id {
			return &s.Bones[i]
		}
	}
	return nil
}
