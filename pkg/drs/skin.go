package drs

// SkinVertex holds up to four bone influences for one mesh vertex.
type SkinVertex struct {
	Weights     [4]float32
	BoneIndices [4]int32
}

// CSkSkinInfo stores one weight record per CGeoMesh vertex.
type CSkSkinInfo struct {
	Version  int32
	Vertices []SkinVertex
}

func (*CSkSkinInfo) Magic() int32     { return MagicCSkSkinInfo }
func (*CSkSkinInfo) TypeName() string { return "CSkSkinInfo" }

func (s *CSkSkinInfo) decode(r *reader) error {
	s.Version = r.i32()
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*32 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Vertices = make([]SkinVertex, count)
	for i := range s.Vertices {
		v := &s.Vertices[i]
		for j := 0; j < 4; j++ {
			v.Weights[j] = r.f32()
		}
		for j := 0; j < 4; j++ {
			v.BoneIndices[j] = r.i32()
		}
	}
	return r.err
}

func (s *CSkSkinInfo) encode(w *writer) {
	w.i32(s.Version)
	w.i32(int32(len(s.Vertices)))
	for i := range s.Vertices {
		v := &s.Vertices[i]
		for j := 0; j < 4; j++ {
			w.f32(v.Weights[j])
		}
		for j := 0; j < 4; j++ {
			w.i32(v.BoneIndices[j])
		}
	}
}
