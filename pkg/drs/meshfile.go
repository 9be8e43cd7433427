package drs

import "fmt"

// Material parameter discriminants. The tag decides which trailing
// sub-blocks follow the mesh body; an unknown tag is a hard decode failure
// because the remaining byte length cannot be inferred.
const (
	MaterialParamsFlow      int32 = -86061050 // textures..empty string + flow
	MaterialParamsFull      int32 = -86061051 // textures..empty string
	MaterialParamsFullAlt   int32 = -86061052 // same layout as Full
	MaterialParamsNoStuff   int32 = -86061053 // no material_stuff word
	MaterialParamsNoString  int32 = -86061054 // stops after level of detail
	MaterialParamsMaterials int32 = -86061055 // stops after materials
)

// Vertex stream revisions understood by MeshData.
const (
	RevisionPositionNormalUV int32 = 133121
	RevisionTangentBitangent int32 = 12288
	RevisionTangentAlt       int32 = 2049
	RevisionSkinning         int32 = 12
	RevisionPositionUVExtra  int32 = 163841
)

// MeshVertex is one entry of a vertex-attribute stream. Which fields are
// populated depends on the stream's revision.
type MeshVertex struct {
	Position    Vector3
	Normal      Vector3
	UV          [2]float32
	Tangent     Vector3
	Bitangent   Vector3
	RawWeights  [4]byte
	BoneIndices [4]byte
	Extra       [4]byte // trailing opaque bytes of revision 163841
}

// MeshData is one raw vertex-attribute stream, layout keyed by Revision.
type MeshData struct {
	Revision   int32
	VertexSize int32
	Vertices   []MeshVertex
}

func (d *MeshData) decode(r *reader, vertexCount int32) error {
	d.Revision = r.i32()
	d.VertexSize = r.i32()
	if r.err != nil {
		return r.err
	}
	size, ok := vertexWireSize(d.Revision)
	if !ok {
		r.fail(fmt.Errorf("%w: mesh data revision %d", ErrUnsupportedVersion, d.Revision))
		return r.err
	}
	if int(vertexCount)*size > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	d.Vertices = make([]MeshVertex, vertexCount)
	for i := range d.Vertices {
		v := &d.Vertices[i]
		switch d.Revision {
		case RevisionPositionNormalUV:
			v.Position = r.vec3()
			v.Normal = r.vec3()
			v.UV[0] = r.f32()
			v.UV[1] = r.f32()
		case RevisionTangentBitangent, RevisionTangentAlt:
			v.Tangent = r.vec3()
			v.Bitangent = r.vec3()
		case RevisionSkinning:
			copy(v.RawWeights[:], r.take(4))
			copy(v.BoneIndices[:], r.take(4))
		case RevisionPositionUVExtra:
			v.Position = r.vec3()
			v.UV[0] = r.f32()
			v.UV[1] = r.f32()
			copy(v.Extra[:], r.take(4))
		}
	}
	return r.err
}

func (d *MeshData) encode(w *writer) {
	w.i32(d.Revision)
	w.i32(d.VertexSize)
	for i := range d.Vertices {
		v := &d.Vertices[i]
		switch d.Revision {
		case RevisionPositionNormalUV:
			w.vec3(v.Position)
			w.vec3(v.Normal)
			w.f32(v.UV[0])
			w.f32(v.UV[1])
		case RevisionTangentBitangent, RevisionTangentAlt:
			w.vec3(v.Tangent)
			w.vec3(v.Bitangent)
		case RevisionSkinning:
			w.bytesN(v.RawWeights[:])
			w.bytesN(v.BoneIndices[:])
		case RevisionPositionUVExtra:
			w.vec3(v.Position)
			w.f32(v.UV[0])
			w.f32(v.UV[1])
			w.bytesN(v.Extra[:])
		}
	}
}

func vertexWireSize(revision int32) (int, bool) {
	switch revision {
	case RevisionPositionNormalUV:
		return 32, true
	case RevisionTangentBitangent, RevisionTangentAlt, RevisionPositionUVExtra:
		return 24, true
	case RevisionSkinning:
		return 8, true
	default:
		return 0, false
	}
}

// Texture is one texture reference of a mesh.
type Texture struct {
	Identifier int32
	Name       string
	Spacer     int32
}

// Textures is the counted texture list sub-block.
type Textures struct {
	Entries []Texture
}

func (t *Textures) decode(r *reader) error {
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*12 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	t.Entries = make([]Texture, count)
	for i := range t.Entries {
		e := &t.Entries[i]
		e.Identifier = r.i32()
		e.Name = r.lenString()
		e.Spacer = r.i32()
	}
	return r.err
}

func (t *Textures) encode(w *writer) {
	w.i32(int32(len(t.Entries)))
	for i := range t.Entries {
		e := &t.Entries[i]
		w.i32(e.Identifier)
		w.lenString(e.Name)
		w.i32(e.Spacer)
	}
}

// Material is one scalar material parameter: a four-byte identifier naming
// the parameter and its float value.
type Material struct {
	Identifier int32
	Value      float32
}

// Materials is the counted material parameter list sub-block.
type Materials struct {
	Entries []Material
}

func (m *Materials) decode(r *reader) error {
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*8 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	m.Entries = make([]Material, count)
	for i := range m.Entries {
		m.Entries[i].Identifier = r.i32()
		m.Entries[i].Value = r.f32()
	}
	return r.err
}

func (m *Materials) encode(w *writer) {
	w.i32(int32(len(m.Entries)))
	for i := range m.Entries {
		w.i32(m.Entries[i].Identifier)
		w.f32(m.Entries[i].Value)
	}
}

// RefractionEntry is one identifier plus RGB triple.
type RefractionEntry struct {
	Identifier int32
	RGB        [3]float32
}

// Refraction is the refraction color sub-block.
type Refraction struct {
	Entries []RefractionEntry
}

func (f *Refraction) decode(r *reader) error {
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*16 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	f.Entries = make([]RefractionEntry, count)
	for i := range f.Entries {
		f.Entries[i].Identifier = r.i32()
		f.Entries[i].RGB[0] = r.f32()
		f.Entries[i].RGB[1] = r.f32()
		f.Entries[i].RGB[2] = r.f32()
	}
	return r.err
}

func (f *Refraction) encode(w *writer) {
	w.i32(int32(len(f.Entries)))
	for i := range f.Entries {
		w.i32(f.Entries[i].Identifier)
		w.f32(f.Entries[i].RGB[0])
		w.f32(f.Entries[i].RGB[1])
		w.f32(f.Entries[i].RGB[2])
	}
}

// LevelOfDetail carries an optional LOD level. The level word exists only
// when the length field is exactly 1.
type LevelOfDetail struct {
	Length   int32
	LodLevel int32
}

func (l *LevelOfDetail) decode(r *reader) error {
	l.Length = r.i32()
	if l.Length == 1 {
		l.LodLevel = r.i32()
	}
	return r.err
}

func (l *LevelOfDetail) encode(w *writer) {
	w.i32(l.Length)
	if l.Length == 1 {
		w.i32(l.LodLevel)
	}
}

// EmptyString is a length-prefixed two-byte-per-unit string that is empty
// in every known file. The raw bytes are preserved verbatim.
type EmptyString struct {
	Length int32
	Data   []byte
}

func (s *EmptyString) decode(r *reader) error {
	s.Length = r.i32()
	if r.err != nil {
		return r.err
	}
	if s.Length < 0 {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Data = r.bytesN(int(s.Length) * 2)
	return r.err
}

func (s *EmptyString) encode(w *writer) {
	w.i32(s.Length)
	w.bytesN(s.Data)
}

// Flow holds the four flow-speed vectors of water-like materials. The
// vectors exist only when the length field is exactly 4.
type Flow struct {
	Length                    int32
	MaxFlowSpeedIdentifier    int32
	MaxFlowSpeed              Vector4
	MinFlowSpeedIdentifier    int32
	MinFlowSpeed              Vector4
	FlowSpeedChangeIdentifier int32
	FlowSpeedChange           Vector4
	FlowScaleIdentifier       int32
	FlowScale                 Vector4
}

func (f *Flow) decode(r *reader) error {
	f.Length = r.i32()
	if f.Length == 4 {
		f.MaxFlowSpeedIdentifier = r.i32()
		f.MaxFlowSpeed = r.vec4()
		f.MinFlowSpeedIdentifier = r.i32()
		f.MinFlowSpeed = r.vec4()
		f.FlowSpeedChangeIdentifier = r.i32()
		f.FlowSpeedChange = r.vec4()
		f.FlowScaleIdentifier = r.i32()
		f.FlowScale = r.vec4()
	}
	return r.err
}

func (f *Flow) encode(w *writer) {
	w.i32(f.Length)
	if f.Length == 4 {
		w.i32(f.MaxFlowSpeedIdentifier)
		w.vec4(f.MaxFlowSpeed)
		w.i32(f.MinFlowSpeedIdentifier)
		w.vec4(f.MinFlowSpeed)
		w.i32(f.FlowSpeedChangeIdentifier)
		w.vec4(f.FlowSpeedChange)
		w.i32(f.FlowScaleIdentifier)
		w.vec4(f.FlowScale)
	}
}

// BattleforgeMesh is one renderable mesh entry of a CDspMeshFile: faces,
// one or more vertex-attribute streams, a local bounding box, and the
// material sub-blocks selected by MaterialParameters.
type BattleforgeMesh struct {
	VertexCount        int32
	Faces              []Face
	MeshData           []MeshData
	BoundingBoxLower   Vector3
	BoundingBoxUpper   Vector3
	MaterialID         int16
	MaterialParameters int32
	MaterialStuff      int32
	BoolParameter      int32
	Textures           Textures
	Refraction         Refraction
	Materials          Materials
	LevelOfDetail      LevelOfDetail
	EmptyString        EmptyString
	Flow               Flow
}

func (m *BattleforgeMesh) decode(r *reader) error {
	m.VertexCount = r.i32()
	faceCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if faceCount < 0 || int(faceCount)*6 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	m.Faces = make([]Face, faceCount)
	for i := range m.Faces {
		m.Faces[i].Indices[0] = r.u16()
		m.Faces[i].Indices[1] = r.u16()
		m.Faces[i].Indices[2] = r.u16()
	}
	streamCount := r.u8()
	if r.err != nil {
		return r.err
	}
	m.MeshData = make([]MeshData, streamCount)
	for i := range m.MeshData {
		if err := m.MeshData[i].decode(r, m.VertexCount); err != nil {
			return err
		}
	}
	m.BoundingBoxLower = r.vec3()
	m.BoundingBoxUpper = r.vec3()
	m.MaterialID = r.i16()
	m.MaterialParameters = r.i32()
	if r.err != nil {
		return r.err
	}

	switch m.MaterialParameters {
	case MaterialParamsFlow:
		m.MaterialStuff = r.i32()
		m.BoolParameter = r.i32()
		m.Textures.decode(r)
		m.Refraction.decode(r)
		m.Materials.decode(r)
		m.LevelOfDetail.decode(r)
		m.EmptyString.decode(r)
		m.Flow.decode(r)
	case MaterialParamsFull, MaterialParamsFullAlt:
		m.MaterialStuff = r.i32()
		m.BoolParameter = r.i32()
		m.Textures.decode(r)
		m.Refraction.decode(r)
		m.Materials.decode(r)
		m.LevelOfDetail.decode(r)
		m.EmptyString.decode(r)
	case MaterialParamsNoStuff:
		m.BoolParameter = r.i32()
		m.Textures.decode(r)
		m.Refraction.decode(r)
		m.Materials.decode(r)
		m.LevelOfDetail.decode(r)
		m.EmptyString.decode(r)
	case MaterialParamsNoString:
		m.BoolParameter = r.i32()
		m.Textures.decode(r)
		m.Refraction.decode(r)
		m.Materials.decode(r)
		m.LevelOfDetail.decode(r)
	case MaterialParamsMaterials:
		m.BoolParameter = r.i32()
		m.Textures.decode(r)
		m.Refraction.decode(r)
		m.Materials.decode(r)
	default:
		r.fail(fmt.Errorf("%w: material parameters %d", ErrUnknownDiscriminant, m.MaterialParameters))
	}
	return r.err
}

func (m *BattleforgeMesh) encode(w *writer) {
	w.i32(m.VertexCount)
	w.i32(int32(len(m.Faces)))
	for i := range m.Faces {
		w.u16(m.Faces[i].Indices[0])
		w.u16(m.Faces[i].Indices[1])
		w.u16(m.Faces[i].Indices[2])
	}
	w.u8(uint8(len(m.MeshData)))
	for i := range m.MeshData {
		m.MeshData[i].encode(w)
	}
	w.vec3(m.BoundingBoxLower)
	w.vec3(m.BoundingBoxUpper)
	w.i16(m.MaterialID)
	w.i32(m.MaterialParameters)

	switch m.MaterialParameters {
	case MaterialParamsFlow:
		w.i32(m.MaterialStuff)
		w.i32(m.BoolParameter)
		m.Textures.encode(w)
		m.Refraction.encode(w)
		m.Materials.encode(w)
		m.LevelOfDetail.encode(w)
		m.EmptyString.encode(w)
		m.Flow.encode(w)
	case MaterialParamsFull, MaterialParamsFullAlt:
		w.i32(m.MaterialStuff)
		w.i32(m.BoolParameter)
		m.Textures.encode(w)
		m.Refraction.encode(w)
		m.Materials.encode(w)
		m.LevelOfDetail.encode(w)
		m.EmptyString.encode(w)
	case MaterialParamsNoStuff:
		w.i32(m.BoolParameter)
		m.Textures.encode(w)
		m.Refraction.encode(w)
		m.Materials.encode(w)
		m.LevelOfDetail.encode(w)
		m.EmptyString.encode(w)
	case MaterialParamsNoString:
		w.i32(m.BoolParameter)
		m.Textures.encode(w)
		m.Refraction.encode(w)
		m.Materials.encode(w)
		m.LevelOfDetail.encode(w)
	case MaterialParamsMaterials:
		w.i32(m.BoolParameter)
		m.Textures.encode(w)
		m.Refraction.encode(w)
		m.Materials.encode(w)
	}
}

// CDspMeshFile is the renderable mesh container: one or more
// BattleforgeMesh entries plus a shared bounding box and three trailing
// reference points.
type CDspMeshFile struct {
	Zero             int32
	BoundingBoxLower Vector3
	BoundingBoxUpper Vector3
	Meshes           []BattleforgeMesh
	SomePoints       [3]Vector4
}

func (*CDspMeshFile) Magic() int32     { return MagicCDspMeshFile }
func (*CDspMeshFile) TypeName() string { return "CDspMeshFile" }

func (f *CDspMeshFile) decode(r *reader) error {
	sig := r.i32()
	if r.err != nil {
		return r.err
	}
	if sig != meshFileSignature {
		r.fail(fmt.Errorf("%w: mesh file signature %d", ErrSignatureMismatch, sig))
		return r.err
	}
	f.Zero = r.i32()
	meshCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if meshCount < 0 || int(meshCount)*9 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	f.BoundingBoxLower = r.vec3()
	f.BoundingBoxUpper = r.vec3()
	f.Meshes = make([]BattleforgeMesh, meshCount)
	for i := range f.Meshes {
		if err := f.Meshes[i].decode(r); err != nil {
			return err
		}
	}
	for i := range f.SomePoints {
		f.SomePoints[i] = r.vec4()
	}
	return r.err
}

func (f *CDspMeshFile) encode(w *writer) {
	w.i32(meshFileSignature)
	w.i32(f.Zero)
	w.i32(int32(len(f.Meshes)))
	w.vec3(f.BoundingBoxLower)
	w.vec3(f.BoundingBoxUpper)
	for i := range f.Meshes {
		f.Meshes[i].encode(w)
	}
	for i := range f.SomePoints {
		w.vec4(f.SomePoints[i])
	}
}
