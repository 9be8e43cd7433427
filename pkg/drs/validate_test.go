package drs

import (
	"strings"
	"testing"
)

// createAnimatedFile builds a fully consistent animated unit: a four-bone
// skeleton, a skin weighted only to existing bones, and a one-leaf OBB
// tree over the mesh faces.
func createAnimatedFile(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(AnimatedUnit)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	mesh := createTestMesh(4) // 6 vertices
	f.SetBlock(mesh)
	f.SetBlock(createTestSkeleton(4))

	skin := &CSkSkinInfo{Version: 1}
	for i := range mesh.Vertices {
		skin.Vertices = append(skin.Vertices, SkinVertex{
			Weights:     [4]float32{0.6, 0.4, 0, 0},
			BoneIndices: [4]int32{int32(i % 4), int32((i + 1) % 4), 0, 0},
		})
	}
	f.SetBlock(skin)

	f.SetBlock(&CDspJointMap{Version: 1, Groups: []JointGroup{{Joints: []int16{0, 1, 2, 3}}}})

	f.SetBlock(&CGeoOBBTree{
		Version: 3,
		Nodes: []OBBNode{{
			OrientedBox:    CMatCoordinateSystem{Rotation: Identity3x3()},
			SkipPointer:    1,
			TotalTriangles: uint32(len(mesh.Faces)),
		}},
		Faces: mesh.Faces,
	})

	f.SetBlock(&AnimationSet{
		Version:    6,
		Revision:   6,
		HasAtlas:   1,
		IKAtlases:  []IKAtlas{{Identifier: 2, Version: 2}},
		Subversion: 2,
		MarkerSets: []AnimationMarkerSet{{AnimID: 1, Name: "cast", MarkerID: 77}},
	})

	f.SetBlock(&AnimationTimings{
		Version: 4,
		Timings: []AnimationTiming{{
			AnimationType: AnimationTypeCastResolve,
			Variants: []TimingVariant{{
				Weight:  100,
				Timings: []Timing{{CastMs: 400, ResolveMs: 600, AnimationMarkerID: 77}},
			}},
		}},
	})

	f.SetBlock(&CDrwLocatorList{Version: 5, Locators: []SLocator{{
		CoordSystem: CMatCoordinateSystem{Rotation: Identity3x3()},
		Class:       LocatorHealthBar,
		BoneID:      -1,
	}}})

	return f
}

func TestValidateCleanFile(t *testing.T) {
	f := createAnimatedFile(t)
	report := Validate(f)
	if len(report.Findings) != 0 {
		for _, finding := range report.Findings {
			t.Logf("finding: %s", finding)
		}
		t.Fatalf("expected no findings, got %d", len(report.Findings))
	}
	if report.Fatal() {
		t.Error("clean report should not be fatal")
	}
}

// expectFinding asserts exactly one finding with the given severity whose
// message contains the substring.
func expectFinding(t *testing.T, report *ValidationReport, severity Severity, substr string) {
	t.Helper()
	if len(report.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %v", len(report.Findings), report.Findings)
	}
	f := report.Findings[0]
	if f.Severity != severity {
		t.Errorf("severity = %s, expected %s", f.Severity, severity)
	}
	if !strings.Contains(f.Message, substr) {
		t.Errorf("message %q should contain %q", f.Message, substr)
	}
}

func TestValidateSkeletonBadChild(t *testing.T) {
	f := createAnimatedFile(t)
	f.Skeleton().Bones[0].Children = []int32{99}
	expectFinding(t, Validate(f), SeverityError, "unknown child bone 99")
	if !Validate(f).Fatal() {
		t.Error("error finding should be fatal")
	}
}

func TestValidateSkinBadBone(t *testing.T) {
	f := createAnimatedFile(t)
	f.SkinInfo().Vertices[0].BoneIndices[0] = 42
	expectFinding(t, Validate(f), SeverityError, "unknown bone 42")
}

// Zero-weight influences may point anywhere; the engine never reads them.
func TestValidateSkinZeroWeightIgnored(t *testing.T) {
	f := createAnimatedFile(t)
	f.SkinInfo().Vertices[0].BoneIndices[2] = 42 // weight slot 2 is 0
	if report := Validate(f); len(report.Findings) != 0 {
		t.Errorf("zero-weight bone reference should not be flagged: %v", report.Findings)
	}
}

func TestValidateSkinWeightSum(t *testing.T) {
	f := createAnimatedFile(t)
	f.SkinInfo().Vertices[1].Weights = [4]float32{0.25, 0.25, 0, 0}
	expectFinding(t, Validate(f), SeverityWarning, "weights sum")
}

func TestValidateSkinCountMismatch(t *testing.T) {
	f := createAnimatedFile(t)
	skin := f.SkinInfo()
	skin.Vertices = skin.Vertices[:len(skin.Vertices)-1]
	expectFinding(t, Validate(f), SeverityError, "does not match geometry vertex count")
}

func TestValidateJointMapBadJoint(t *testing.T) {
	f := createAnimatedFile(t)
	f.JointMap().Groups[0].Joints[1] = 17
	expectFinding(t, Validate(f), SeverityError, "unknown bone 17")
}

func TestValidateLocatorBadBone(t *testing.T) {
	f := createAnimatedFile(t)
	f.LocatorList().Locators[0].BoneID = 9
	expectFinding(t, Validate(f), SeverityError, "unknown bone 9")
}

func TestValidateOBBTree(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*CGeoOBBTree)
		severity Severity
		substr   string
	}{
		{
			name:     "child out of range",
			mutate:   func(tr *CGeoOBBTree) { tr.Nodes[0].FirstChild = 7 },
			severity: SeverityError,
			substr:   "references node 7",
		},
		{
			name:     "skip pointer past end",
			mutate:   func(tr *CGeoOBBTree) { tr.Nodes[0].SkipPointer = 5 },
			severity: SeverityError,
			substr:   "skip pointer 5",
		},
		{
			name:     "leaf span overflow",
			mutate:   func(tr *CGeoOBBTree) { tr.Nodes[0].TotalTriangles = 40 },
			severity: SeverityError,
			substr:   "triangle span",
		},
		{
			name: "skewed rotation",
			mutate: func(tr *CGeoOBBTree) {
				tr.Nodes[0].OrientedBox.Rotation[0] = 1.5
			},
			severity: SeverityWarning,
			substr:   "orthonormal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createAnimatedFile(t)
			tt.mutate(f.OBBTree())
			expectFinding(t, Validate(f), tt.severity, tt.substr)
		})
	}
}

func TestValidateOBBFaceOutOfRange(t *testing.T) {
	f := createAnimatedFile(t)
	tree := f.OBBTree()
	tree.Faces = append([]Face{}, tree.Faces...)
	tree.Faces[0].Indices[2] = 1000
	tree.Nodes[0].TotalTriangles = uint32(len(tree.Faces))
	expectFinding(t, Validate(f), SeverityError, "references vertex 1000")
}

func TestValidateCollisionDegenerate(t *testing.T) {
	f, err := NewFile(StaticObjectCollision)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	f.SetBlock(createTestMesh(2))
	f.SetBlock(&CollisionShape{
		Version: 1,
		Spheres: []SphereShape{{Radius: 0}},
	})
	expectFinding(t, Validate(f), SeverityWarning, "non-positive radius")
}

func TestValidateTimingUnknownMarker(t *testing.T) {
	f := createAnimatedFile(t)
	f.AnimationTimings().Timings[0].Variants[0].Timings[0].AnimationMarkerID = 123
	expectFinding(t, Validate(f), SeverityError, "unknown animation marker 123")
}

// Marker id zero means "no marker" and is never resolved.
func TestValidateTimingZeroMarker(t *testing.T) {
	f := createAnimatedFile(t)
	f.AnimationTimings().Timings[0].Variants[0].Timings[0].AnimationMarkerID = 0
	if report := Validate(f); len(report.Findings) != 0 {
		t.Errorf("marker id 0 should not be flagged: %v", report.Findings)
	}
}

func TestValidateIKAtlasBadBone(t *testing.T) {
	f := createAnimatedFile(t)
	f.AnimationSet().IKAtlases[0].Identifier = 55
	expectFinding(t, Validate(f), SeverityError, "unknown bone 55")
}

func TestValidateHierarchyNameMismatch(t *testing.T) {
	f := createAnimatedFile(t)
	for i := range f.Nodes {
		if f.Nodes[i].Name == "CGeoMesh" {
			f.Nodes[i].Name = "CGeoOBBTree"
		}
	}
	expectFinding(t, Validate(f), SeverityWarning, "points at a CGeoMesh entry")
}

func TestValidateMeshIndexCount(t *testing.T) {
	f := createAnimatedFile(t)
	f.GeoMesh().IndexCount = 9
	expectFinding(t, Validate(f), SeverityWarning, "index count 9")
}

func TestValidateMeshFaceOutOfRange(t *testing.T) {
	f := createAnimatedFile(t)
	mesh := f.GeoMesh()
	mesh.Faces[0].Indices[0] = 200
	// keep the OBB tree's copy consistent so only the mesh is flagged
	f.OBBTree().Faces = nil
	f.OBBTree().Nodes[0].TotalTriangles = 0

	report := Validate(f)
	var found bool
	for _, finding := range report.Findings {
		if finding.Block == "CGeoMesh" && strings.Contains(finding.Message, "references vertex 200") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a CGeoMesh face range finding, got %v", report.Findings)
	}
}
