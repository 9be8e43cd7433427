package drs

// CGeoMesh is the deduplicated triangle list used for picking and as input
// to the OBB tree builder: faces of 16-bit indices plus 4-component vertex
// positions.
type CGeoMesh struct {
	MeshMagic  int32 // always 1 in known files
	IndexCount int32
	Faces      []Face
	Vertices   []Vector4
}

func (*CGeoMesh) Magic() int32     { return MagicCGeoMesh }
func (*CGeoMesh) TypeName() string { return "CGeoMesh" }

// VertexCount returns the number of vertex positions.
func (m *CGeoMesh) VertexCount() int { return len(m.Vertices) }

func (m *CGeoMesh) decode(r *reader) error {
	m.MeshMagic = r.i32()
	m.IndexCount = r.i32()
	if r.err != nil {
		return r.err
	}
	// bound the count against the payload before allocating
	if m.IndexCount < 0 || int(m.IndexCount/3)*6 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	m.Faces = make([]Face, 0, m.IndexCount/3)
	for i := int32(0); i < m.IndexCount/3; i++ {
		var f Face
		f.Indices[0] = r.u16()
		f.Indices[1] = r.u16()
		f.Indices[2] = r.u16()
		m.Faces = append(m.Faces, f)
	}
	vertexCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if vertexCount < 0 || int(vertexCount)*16 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	m.Vertices = make([]Vector4, vertexCount)
	for i := range m.Vertices {
		m.Vertices[i] = r.vec4()
	}
	return r.err
}

func (m *CGeoMesh) encode(w *writer) {
	w.i32(m.MeshMagic)
	w.i32(m.IndexCount)
	for _, f := range m.Faces {
		w.u16(f.Indices[0])
		w.u16(f.Indices[1])
		w.u16(f.Indices[2])
	}
	w.i32(int32(len(m.Vertices)))
	for _, v := range m.Vertices {
		w.vec4(v)
	}
}
