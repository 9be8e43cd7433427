package drs

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// roundTrip encodes a block and decodes it into a fresh instance of the
// same type, failing the test on any decode error or leftover bytes.
func roundTrip(t *testing.T, in Block) Block {
	t.Helper()
	w := &writer{}
	in.encode(w)

	out := NewBlock(in.Magic())
	if out == nil {
		t.Fatalf("magic %d not registered", in.Magic())
	}
	r := newReader(w.bytes())
	if err := out.decode(r); err != nil {
		t.Fatalf("decode %s failed: %v", in.TypeName(), err)
	}
	if r.remaining() != 0 {
		t.Fatalf("decode %s left %d bytes", in.TypeName(), r.remaining())
	}
	return out
}

func createTestBattleforgeMesh(materialParams int32) BattleforgeMesh {
	m := BattleforgeMesh{
		VertexCount:        3,
		Faces:              []Face{{Indices: [3]uint16{0, 1, 2}}},
		BoundingBoxLower:   Vector3{X: -1, Y: -1, Z: -1},
		BoundingBoxUpper:   Vector3{X: 1, Y: 1, Z: 1},
		MaterialID:         25702,
		MaterialParameters: materialParams,
		BoolParameter:      1,
		Textures: Textures{Entries: []Texture{
			{Identifier: 1684432499, Name: "unit_skel_diff"},
			{Identifier: 1852992883, Name: "unit_skel_norm"},
		}},
		Refraction: Refraction{Entries: []RefractionEntry{
			{Identifier: 1668441193, RGB: [3]float32{0.1, 0.2, 0.3}},
		}},
		Materials: Materials{Entries: []Material{
			{Identifier: 1936745324, Value: 0.5},
		}},
	}
	m.MeshData = []MeshData{
		{
			Revision:   RevisionPositionNormalUV,
			VertexSize: 32,
			Vertices: []MeshVertex{
				{Position: Vector3{X: 0, Y: 0, Z: 0}, Normal: Vector3{Z: 1}, UV: [2]float32{0, 0}},
				{Position: Vector3{X: 1, Y: 0, Z: 0}, Normal: Vector3{Z: 1}, UV: [2]float32{1, 0}},
				{Position: Vector3{X: 0, Y: 1, Z: 0}, Normal: Vector3{Z: 1}, UV: [2]float32{0, 1}},
			},
		},
	}
	switch materialParams {
	case MaterialParamsFlow, MaterialParamsFull, MaterialParamsFullAlt:
		m.MaterialStuff = 7
	}
	if materialParams == MaterialParamsFlow {
		m.Flow = Flow{
			Length:                 4,
			MaxFlowSpeedIdentifier: 1718382452,
			MaxFlowSpeed:           Vector4{X: 0.2, W: 1},
		}
	}
	return m
}

func createTestMeshFile(materialParams int32) *CDspMeshFile {
	return &CDspMeshFile{
		BoundingBoxLower: Vector3{X: -1, Y: -1, Z: -1},
		BoundingBoxUpper: Vector3{X: 1, Y: 1, Z: 1},
		Meshes:           []BattleforgeMesh{createTestBattleforgeMesh(materialParams)},
	}
}

func TestMeshFileMaterialVariants(t *testing.T) {
	tests := []struct {
		name   string
		params int32
	}{
		{"flow", MaterialParamsFlow},
		{"full", MaterialParamsFull},
		{"full alt", MaterialParamsFullAlt},
		{"no stuff", MaterialParamsNoStuff},
		{"no string", MaterialParamsNoString},
		{"materials only", MaterialParamsMaterials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createTestMeshFile(tt.params)
			out := roundTrip(t, in).(*CDspMeshFile)
			if !reflect.DeepEqual(in, out) {
				t.Errorf("mesh file with params %d did not round-trip", tt.params)
			}
		})
	}
}

func TestMeshFileUnknownMaterialParams(t *testing.T) {
	in := createTestMeshFile(MaterialParamsMaterials)
	in.Meshes[0].MaterialParameters = -86061049

	w := &writer{}
	in.encode(w)
	out := &CDspMeshFile{}
	err := out.decode(newReader(w.bytes()))
	if err == nil {
		t.Fatal("expected error for unknown material parameters")
	}
	if !errors.Is(err, ErrUnknownDiscriminant) {
		t.Errorf("expected ErrUnknownDiscriminant, got %v", err)
	}
	if !strings.Contains(err.Error(), "offset") {
		t.Errorf("error should name the offset: %v", err)
	}
}

func TestMeshDataRevisions(t *testing.T) {
	tests := []struct {
		name     string
		revision int32
		size     int32
		vertex   MeshVertex
	}{
		{
			name:     "position normal uv",
			revision: RevisionPositionNormalUV,
			size:     32,
			vertex:   MeshVertex{Position: Vector3{X: 1, Y: 2, Z: 3}, Normal: Vector3{Z: 1}, UV: [2]float32{0.5, 0.25}},
		},
		{
			name:     "tangent bitangent",
			revision: RevisionTangentBitangent,
			size:     24,
			vertex:   MeshVertex{Tangent: Vector3{X: 1}, Bitangent: Vector3{Y: 1}},
		},
		{
			name:     "tangent alt",
			revision: RevisionTangentAlt,
			size:     24,
			vertex:   MeshVertex{Tangent: Vector3{Z: 1}, Bitangent: Vector3{X: 1}},
		},
		{
			name:     "skinning",
			revision: RevisionSkinning,
			size:     8,
			vertex:   MeshVertex{RawWeights: [4]byte{255, 0, 0, 0}, BoneIndices: [4]byte{3, 0, 0, 0}},
		},
		{
			name:     "position uv extra",
			revision: RevisionPositionUVExtra,
			size:     24,
			vertex:   MeshVertex{Position: Vector3{X: 4}, UV: [2]float32{1, 1}, Extra: [4]byte{1, 2, 3, 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := MeshData{Revision: tt.revision, VertexSize: tt.size, Vertices: []MeshVertex{tt.vertex}}
			w := &writer{}
			in.encode(w)

			wantSize, _ := vertexWireSize(tt.revision)
			if w.len() != 8+wantSize {
				t.Errorf("encoded %d bytes, expected %d", w.len(), 8+wantSize)
			}

			var out MeshData
			if err := out.decode(newReader(w.bytes()), 1); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !reflect.DeepEqual(in, out) {
				t.Error("mesh data did not round-trip")
			}
		})
	}
}

func TestMeshDataUnknownRevision(t *testing.T) {
	w := &writer{}
	w.i32(999)
	w.i32(16)

	var out MeshData
	err := out.decode(newReader(w.bytes()), 0)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLocatorListVersionGate(t *testing.T) {
	locator := SLocator{
		CoordSystem: CMatCoordinateSystem{Rotation: Identity3x3(), Position: Vector3{Y: 2}},
		Class:       LocatorTurret,
		BoneID:      -1,
		FileName:    "effects\\turret_idle.fxb",
		Extra:       42,
	}

	for _, version := range []int32{4, 5} {
		in := &CDrwLocatorList{Version: version, Locators: []SLocator{locator}}
		out := roundTrip(t, in).(*CDrwLocatorList)

		if out.Locators[0].Class != LocatorTurret {
			t.Errorf("version %d: class = %v", version, out.Locators[0].Class)
		}
		switch version {
		case 5:
			if out.Locators[0].Extra != 42 {
				t.Errorf("version 5 should keep the extra word, got %d", out.Locators[0].Extra)
			}
		default:
			if out.Locators[0].Extra != 0 {
				t.Errorf("version %d should not carry an extra word", version)
			}
		}
	}
}

func TestSkeletonRoundTrip(t *testing.T) {
	in := createTestSkeleton(4)
	out := roundTrip(t, in).(*CSkSkeleton)
	if !reflect.DeepEqual(in, out) {
		t.Error("skeleton did not round-trip")
	}
	if len(out.Bones) != 4 || out.Bones[1].Children[0] != 2 {
		t.Errorf("bone hierarchy mangled: %+v", out.Bones)
	}
}

func TestSkinInfoRoundTrip(t *testing.T) {
	in := &CSkSkinInfo{
		Version: 1,
		Vertices: []SkinVertex{
			{Weights: [4]float32{0.7, 0.3, 0, 0}, BoneIndices: [4]int32{0, 2, 0, 0}},
			{Weights: [4]float32{1, 0, 0, 0}, BoneIndices: [4]int32{1, 0, 0, 0}},
		},
	}
	out := roundTrip(t, in).(*CSkSkinInfo)
	if !reflect.DeepEqual(in, out) {
		t.Error("skin info did not round-trip")
	}
}

func TestJointMapRoundTrip(t *testing.T) {
	in := &CDspJointMap{
		Version: 1,
		Groups: []JointGroup{
			{Joints: []int16{0, 1, 2}},
			{Joints: []int16{2, 3}},
		},
	}
	out := roundTrip(t, in).(*CDspJointMap)
	if !reflect.DeepEqual(in, out) {
		t.Error("joint map did not round-trip")
	}
}

func TestOBBTreeRoundTrip(t *testing.T) {
	in := &CGeoOBBTree{
		Version: 3,
		Nodes: []OBBNode{
			{OrientedBox: CMatCoordinateSystem{Rotation: Identity3x3()}, FirstChild: 1, SecondChild: 2, SkipPointer: 3, TotalTriangles: 2},
			{OrientedBox: CMatCoordinateSystem{Rotation: Identity3x3()}, SkipPointer: 2, TotalTriangles: 1},
			{OrientedBox: CMatCoordinateSystem{Rotation: Identity3x3()}, SkipPointer: 3, NodeDepth: 1, TriangleOffset: 1, TotalTriangles: 1},
		},
		Faces: []Face{
			{Indices: [3]uint16{0, 1, 2}},
			{Indices: [3]uint16{1, 2, 3}},
		},
	}
	out := roundTrip(t, in).(*CGeoOBBTree)
	if !reflect.DeepEqual(in, out) {
		t.Error("OBB tree did not round-trip")
	}
}

func TestCollisionShapeRoundTrip(t *testing.T) {
	in := &CollisionShape{
		Version: 1,
		Boxes: []BoxShape{{
			CoordSystem: CMatCoordinateSystem{Rotation: Identity3x3(), Position: Vector3{X: 1}},
			Box:         CGeoAABox{LowerLeft: Vector3{X: -2, Y: -2, Z: 0}, UpperRight: Vector3{X: 2, Y: 2, Z: 4}},
		}},
		Spheres: []SphereShape{{
			CoordSystem: CMatCoordinateSystem{Rotation: Identity3x3()},
			Radius:      1.5,
			Center:      Vector3{Z: 1},
		}},
		Cylinders: []CylinderShape{{
			CoordSystem: CMatCoordinateSystem{Rotation: Identity3x3()},
			Center:      Vector3{Z: 1.5},
			Height:      3,
			Radius:      0.75,
		}},
	}
	out := roundTrip(t, in).(*CollisionShape)
	if !reflect.DeepEqual(in, out) {
		t.Error("collision shape did not round-trip")
	}
}

func createTestModeKey(keyType int32) ModeAnimationKey {
	k := ModeAnimationKey{
		Type:    keyType,
		File:    "walk_cycle",
		Unknown: 1,
		Variants: []AnimationSetVariant{
			{Version: 7, Weight: 100, File: "unit_walk.ska", Start: 0, End: 1, AllowsIK: 1},
		},
	}
	switch {
	case keyType == 1:
		k.Raw24 = [24]byte{1, 2, 3}
	case keyType == 6:
		k.Unknown2 = 4
		k.VisJob = 2
		k.Unknown3 = 9
		k.SpecialMode = 1
	default:
		k.Unknown2 = 4
		k.SpecialMode = 1
	}
	return k
}

func TestAnimationSetVersions(t *testing.T) {
	tests := []struct {
		name string
		set  *AnimationSet
	}{
		{
			name: "version 2 legacy",
			set: &AnimationSet{
				Version:          2,
				DefaultRunSpeed:  4.5,
				DefaultWalkSpeed: 2.0,
				UK:               0,
				ModeKeys:         []ModeAnimationKey{createTestModeKey(2)},
			},
		},
		{
			name: "version 2 implicit key type",
			set: &AnimationSet{
				Version:          2,
				DefaultRunSpeed:  4.5,
				DefaultWalkSpeed: 2.0,
				UK:               2,
				ModeKeys:         []ModeAnimationKey{createTestModeKey(2)},
			},
		},
		{
			name: "version 6 revision 6 flight fields",
			set: &AnimationSet{
				Version:          6,
				DefaultRunSpeed:  5,
				DefaultWalkSpeed: 2.2,
				Revision:         6,
				ModeChangeType:   1,
				HoveringGround:   1,
				FlyBankScale:     0.5,
				FlyAccelScale:    1.5,
				FlyHitScale:      1,
				AlignToTerrain:   1,
				ModeKeys:         []ModeAnimationKey{createTestModeKey(6)},
				HasAtlas:         2,
				IKAtlases: []IKAtlas{{
					Identifier: 3,
					Version:    2,
					Axis:       1,
					ChainOrder: 2,
					Constraints: [3]Constraint{
						{Revision: 1, LeftAngle: -1.2, RightAngle: 1.2, DampRatio: 0.5},
						{Revision: 0},
						{Revision: 0},
					},
					PurposeFlags: 3,
				}},
				UKInts:     []int32{1, 2, 3},
				Subversion: 2,
				MarkerSets: []AnimationMarkerSet{{
					AnimID:   1,
					Name:     "cast_resolve",
					MarkerID: 77,
					Markers: []AnimationMarker{
						{Time: 0.4, Direction: Vector3{Z: 1}, Position: Vector3{Y: 1.8}},
					},
				}},
			},
		},
		{
			name: "version 4 unknown trailer",
			set: &AnimationSet{
				Version:          4,
				DefaultRunSpeed:  3,
				DefaultWalkSpeed: 1.5,
				Revision:         1,
				ModeKeys:         []ModeAnimationKey{createTestModeKey(1)},
				HasAtlas:         0,
				Subversion:       1,
				UnknownStructs: []UnknownStruct{{
					Unknown:  1,
					Name:     "trailer",
					Unknown2: 2,
					Entries:  []UnknownStruct2{{Ints: [5]int32{1, 2, 3, 4, 5}}},
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := roundTrip(t, tt.set).(*AnimationSet)
			if !reflect.DeepEqual(tt.set, out) {
				t.Error("animation set did not round-trip")
			}
		})
	}
}

// When the UK marker is 2, the per-key type word disappears from the wire
// in both directions, so the encoded form is 4 bytes shorter per key.
func TestModeKeyImplicitTypeWidth(t *testing.T) {
	key := createTestModeKey(2)

	explicit := &writer{}
	key.encode(explicit, 0)
	implicit := &writer{}
	key.encode(implicit, 2)

	if explicit.len()-implicit.len() != 4 {
		t.Fatalf("implicit encoding should drop exactly the type word, got %d vs %d bytes",
			explicit.len(), implicit.len())
	}

	var out ModeAnimationKey
	if err := out.decode(newReader(implicit.bytes()), 2); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Type != 2 {
		t.Errorf("implicit key type = %d, expected 2", out.Type)
	}
}

func TestAnimationSetBadMagic(t *testing.T) {
	// same length as the real tag, different bytes
	w := &writer{}
	w.lenString("Battlefront")
	w.i32(6)

	var out AnimationSet
	err := out.decode(newReader(w.bytes()))
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestAnimationTimingsVersionGate(t *testing.T) {
	timing := AnimationTiming{
		AnimationType:        AnimationTypeMelee,
		AnimationTagID:       5,
		IsEnterModeAnimation: 1,
		Variants: []TimingVariant{{
			Weight:       100,
			VariantIndex: 1,
			Timings: []Timing{{
				CastMs:            400,
				ResolveMs:         600,
				Direction:         Vector3{Z: 1},
				AnimationMarkerID: 77,
			}},
		}},
	}

	in := &AnimationTimings{
		Version:  4,
		Timings:  []AnimationTiming{timing},
		StructV3: StructV3{Length: 1, Unknown: [2]int32{0, 0}},
	}
	out := roundTrip(t, in).(*AnimationTimings)
	if !reflect.DeepEqual(in, out) {
		t.Error("version 4 timings did not round-trip")
	}

	// version 1 drops the tag id, enter-mode and variant index words
	v1 := &AnimationTimings{Version: 1, Timings: []AnimationTiming{timing}}
	w := &writer{}
	v1.encode(w)
	var decoded AnimationTimings
	if err := decoded.decode(newReader(w.bytes())); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	got := decoded.Timings[0]
	if got.AnimationTagID != 0 || got.IsEnterModeAnimation != 0 {
		t.Error("version 1 should not carry tag id or enter-mode words")
	}
	if got.Variants[0].VariantIndex != 0 {
		t.Error("version 1 should not carry the variant index word")
	}
}

func createTestEffectSet(setType int16) *EffectSet {
	e := &EffectSet{
		Type:     setType,
		Checksum: "0123456789abcdef",
	}
	if setType != 10 && setType != 11 && setType != 12 {
		return e
	}
	if setType == 10 {
		e.Unknown = [5]float32{1, 2, 3, 4, 5}
	}
	keyframe := Keyframe{
		Time:          0.3,
		KeyframeType:  1,
		MinFalloff:    5,
		MaxFalloff:    50,
		Volume:        0.8,
		PitchShiftMin: 0.9,
		PitchShiftMax: 1.1,
		Offset:        Vector3{Y: 1.5},
		Interruptable: 1,
		Variants: []EffectVariant{
			{Weight: 100, Name: "sounds\\swing_heavy.snd"},
		},
	}
	// the condition byte is only on the wire outside types 10 and 11
	if setType != 10 && setType != 11 {
		keyframe.Condition = -1
	}
	e.SkelEffects = []SkelEff{{
		Name:      "attack_a",
		Keyframes: []Keyframe{keyframe},
	}}
	e.ImpactSounds = []SoundContainer{{
		Header:  SoundHeader{IsOne: 1, MinFalloff: 5, MaxFalloff: 40, Volume: 1},
		UKIndex: 0,
		Files: []SoundFile{{
			Weight: 100,
			Header: SoundFileHeader{IsOne: 1, Volume: 1},
			Name:   "sounds\\impact_flesh.snd",
		}},
	}}
	e.AdditionalSounds = []AdditionalSoundContainer{{
		Header:    SoundHeader{IsOne: 1, Volume: 0.6},
		SoundType: 2,
		Containers: []SoundContainer{{
			Header: SoundHeader{IsOne: 1, Volume: 0.6},
			Files: []SoundFile{{
				Weight: 100,
				Header: SoundFileHeader{IsOne: 1, Volume: 0.6},
				Name:   "sounds\\ambient_hum.snd",
			}},
		}},
	}}
	return e
}

func TestEffectSetTypes(t *testing.T) {
	for _, setType := range []int16{0, 7, 10, 11, 12} {
		in := createTestEffectSet(setType)
		out := roundTrip(t, in).(*EffectSet)
		if out.Type != setType {
			t.Errorf("type = %d, expected %d", out.Type, setType)
		}
		if setType != 10 && setType != 11 && setType != 12 {
			if len(out.SkelEffects) != 0 {
				t.Errorf("type %d should carry no body", setType)
			}
			continue
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("effect set type %d did not round-trip", setType)
		}
	}
}

// Types 10 and 11 drop the keyframe condition byte; the condition value is
// lost but the stream stays aligned.
func TestEffectSetConditionGate(t *testing.T) {
	withCondition := createTestEffectSet(12)
	without := createTestEffectSet(11)

	out := roundTrip(t, without).(*EffectSet)
	if out.SkelEffects[0].Keyframes[0].Condition != 0 {
		t.Error("type 11 keyframes should not carry a condition byte")
	}
	out12 := roundTrip(t, withCondition).(*EffectSet)
	if out12.SkelEffects[0].Keyframes[0].Condition != -1 {
		t.Error("type 12 keyframes should keep the condition byte")
	}
}

func TestResourceMetaRoundTrip(t *testing.T) {
	in := &DrwResourceMeta{Version: 1, Unknown: 0, Hash: "8f4e2c"}
	out := roundTrip(t, in).(*DrwResourceMeta)
	if !reflect.DeepEqual(in, out) {
		t.Error("resource meta did not round-trip")
	}
}

func TestPrimitiveContainerIsZeroLength(t *testing.T) {
	w := &writer{}
	(&CGeoPrimitiveContainer{}).encode(w)
	if w.len() != 0 {
		t.Errorf("primitive container encoded %d bytes, expected 0", w.len())
	}
}

func TestGeoMeshTruncated(t *testing.T) {
	mesh := createTestMesh(4)
	w := &writer{}
	mesh.encode(w)
	data := w.bytes()[:w.len()-5]

	var out CGeoMesh
	err := out.decode(newReader(data))
	if !errors.Is(err, ErrTruncatedData) {
		t.Errorf("expected ErrTruncatedData, got %v", err)
	}
}

func TestGeoMeshOversizedCounts(t *testing.T) {
	// counts are checked against the remaining payload before any slice is
	// sized, so a tiny payload cannot claim millions of elements
	w := &writer{}
	w.i32(1)
	w.i32(90000000)
	var out CGeoMesh
	if err := out.decode(newReader(w.bytes())); !errors.Is(err, ErrTruncatedData) {
		t.Errorf("oversized index count: expected ErrTruncatedData, got %v", err)
	}

	w = &writer{}
	w.i32(1)
	w.i32(0)
	w.i32(1 << 28)
	var out2 CGeoMesh
	if err := out2.decode(newReader(w.bytes())); !errors.Is(err, ErrTruncatedData) {
		t.Errorf("oversized vertex count: expected ErrTruncatedData, got %v", err)
	}
}

func TestReaderFailureIsSticky(t *testing.T) {
	r := newReader([]byte{1, 2})
	r.i32()
	if r.err == nil {
		t.Fatal("short read should set the error")
	}
	first := r.err
	r.i32()
	r.u8()
	if r.err != first {
		t.Error("later reads must not replace the first error")
	}
	if !strings.Contains(first.Error(), "offset 0") {
		t.Errorf("error should carry the failing offset: %v", first)
	}
}
