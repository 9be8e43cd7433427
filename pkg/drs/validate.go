package drs

import (
	"fmt"
	"math"
)

// Severity classifies a validation finding. Errors mean the file will
// misbehave in the engine; warnings are suspicious but playable.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Finding is one validation result, attributed to the block it concerns.
type Finding struct {
	Severity Severity
	Block    string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Block, f.Message)
}

// ValidationReport collects findings across all cross-reference checks.
type ValidationReport struct {
	Findings []Finding
}

// Fatal reports whether the report contains any error-severity finding.
func (r *ValidationReport) Fatal() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *ValidationReport) errorf(block, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{SeverityError, block, fmt.Sprintf(format, args...)})
}

func (r *ValidationReport) warnf(block, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{SeverityWarning, block, fmt.Sprintf(format, args...)})
}

// weightSumTolerance bounds how far a skin vertex's four weights may drift
// from summing to one before the vertex is flagged.
const weightSumTolerance = 1e-3

// orthonormalityTolerance bounds the acceptable deviation of an OBB
// rotation from a proper orthonormal basis.
const orthonormalityTolerance = 1e-3

// Validate runs all cross-block consistency checks on a decoded container.
// It never mutates the file and reports everything it finds rather than
// stopping at the first problem.
func Validate(f *File) *ValidationReport {
	r := &ValidationReport{}

	skeleton := f.Skeleton()
	boneIDs := map[int32]bool{}
	if skeleton != nil {
		for i := range skeleton.Bones {
			boneIDs[skeleton.Bones[i].Identifier] = true
		}
		if len(skeleton.Bones) != len(skeleton.Matrices) {
			r.warnf("CSkSkeleton", "bone count %d does not match bind matrix count %d",
				len(skeleton.Bones), len(skeleton.Matrices))
		}
		for i := range skeleton.Bones {
			for _, child := range skeleton.Bones[i].Children {
				if !boneIDs[child] {
					r.errorf("CSkSkeleton", "bone %q references unknown child bone %d",
						skeleton.Bones[i].Name, child)
				}
			}
		}
	}

	validateGeoMesh(r, f)
	validateSkin(r, f, skeleton, boneIDs)
	validateJointMap(r, f, skeleton, boneIDs)
	validateLocators(r, f, skeleton, boneIDs)
	validateOBBTree(r, f)
	validateCollision(r, f)
	validateTimings(r, f)
	validateIKAtlases(r, f, skeleton, boneIDs)
	validateHierarchy(r, f)

	return r
}

func validateGeoMesh(r *ValidationReport, f *File) {
	mesh := f.GeoMesh()
	if mesh == nil {
		return
	}
	vertexCount := len(mesh.Vertices)
	if vertexCount > 65535 {
		r.errorf("CGeoMesh", "vertex count %d exceeds 16-bit index space", vertexCount)
	}
	for i := range mesh.Faces {
		for _, idx := range mesh.Faces[i].Indices {
			if int(idx) >= vertexCount {
				r.errorf("CGeoMesh", "face %d references vertex %d of %d", i, idx, vertexCount)
			}
		}
	}
	if int(mesh.IndexCount) != len(mesh.Faces)*3 {
		r.warnf("CGeoMesh", "stored index count %d does not match %d faces",
			mesh.IndexCount, len(mesh.Faces))
	}
}

func validateSkin(r *ValidationReport, f *File, skeleton *CSkSkeleton, boneIDs map[int32]bool) {
	skin := f.SkinInfo()
	if skin == nil {
		return
	}
	if mesh := f.GeoMesh(); mesh != nil && len(skin.Vertices) != len(mesh.Vertices) {
		r.errorf("CSkSkinInfo", "skin vertex count %d does not match geometry vertex count %d",
			len(skin.Vertices), len(mesh.Vertices))
	}
	for i := range skin.Vertices {
		v := &skin.Vertices[i]
		var sum float64
		for j := range v.Weights {
			sum += float64(v.Weights[j])
			id := v.BoneIndices[j]
			if v.Weights[j] == 0 {
				continue
			}
			if skeleton != nil && !boneIDs[id] {
				r.errorf("CSkSkinInfo", "vertex %d weighted to unknown bone %d", i, id)
			}
		}
		if math.Abs(sum-1) > weightSumTolerance {
			r.warnf("CSkSkinInfo", "vertex %d weights sum to %g", i, sum)
		}
	}
}

func validateJointMap(r *ValidationReport, f *File, skeleton *CSkSkeleton, boneIDs map[int32]bool) {
	jm := f.JointMap()
	if jm == nil || skeleton == nil {
		return
	}
	for g := range jm.Groups {
		for j, joint := range jm.Groups[g].Joints {
			if joint < 0 {
				continue
			}
			if !boneIDs[int32(joint)] {
				r.errorf("CDspJointMap", "group %d entry %d maps to unknown bone %d", g, j, joint)
			}
		}
	}
}

func validateLocators(r *ValidationReport, f *File, skeleton *CSkSkeleton, boneIDs map[int32]bool) {
	list := f.LocatorList()
	if list == nil {
		return
	}
	for i := range list.Locators {
		loc := &list.Locators[i]
		if loc.BoneID == -1 {
			continue
		}
		if skeleton == nil {
			r.errorf("CDrwLocatorList", "locator %d (%s) attaches to bone %d but the model has no skeleton",
				i, loc.Class, loc.BoneID)
			continue
		}
		if !boneIDs[loc.BoneID] {
			r.errorf("CDrwLocatorList", "locator %d (%s) attaches to unknown bone %d",
				i, loc.Class, loc.BoneID)
		}
	}
}

func validateOBBTree(r *ValidationReport, f *File) {
	tree := f.OBBTree()
	if tree == nil {
		return
	}
	nodeCount := len(tree.Nodes)
	faceCount := len(tree.Faces)
	if mesh := f.GeoMesh(); mesh != nil {
		for i := range tree.Faces {
			for _, idx := range tree.Faces[i].Indices {
				if int(idx) >= len(mesh.Vertices) {
					r.errorf("CGeoOBBTree", "face %d references vertex %d of %d",
						i, idx, len(mesh.Vertices))
				}
			}
		}
	}
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		for _, child := range []uint16{n.FirstChild, n.SecondChild} {
			if int(child) >= nodeCount && nodeCount > 0 {
				r.errorf("CGeoOBBTree", "node %d references node %d of %d", i, child, nodeCount)
			}
		}
		// skip pointers address the slot one past a subtree, so the last
		// subtree's skip equals the node count
		if int(n.SkipPointer) > nodeCount {
			r.errorf("CGeoOBBTree", "node %d skip pointer %d past %d nodes", i, n.SkipPointer, nodeCount)
		}
		if n.IsLeaf() {
			end := int64(n.TriangleOffset) + int64(n.TotalTriangles)
			if end > int64(faceCount) {
				r.errorf("CGeoOBBTree", "leaf %d triangle span [%d,%d) exceeds %d faces",
					i, n.TriangleOffset, end, faceCount)
			}
		}
		if err := orthonormalityError(n.OrientedBox.Rotation); err > orthonormalityTolerance {
			r.warnf("CGeoOBBTree", "node %d rotation deviates from orthonormal by %g", i, err)
		}
	}
}

func validateCollision(r *ValidationReport, f *File) {
	shape := f.Collision()
	if shape == nil {
		return
	}
	for i := range shape.Spheres {
		if shape.Spheres[i].Radius <= 0 {
			r.warnf("collisionShape", "sphere %d has non-positive radius %g", i, shape.Spheres[i].Radius)
		}
	}
	for i := range shape.Cylinders {
		c := &shape.Cylinders[i]
		if c.Radius <= 0 || c.Height <= 0 {
			r.warnf("collisionShape", "cylinder %d has degenerate extent (radius %g, height %g)",
				i, c.Radius, c.Height)
		}
	}
	for i := range shape.Boxes {
		b := &shape.Boxes[i].Box
		if b.UpperRight.X <= b.LowerLeft.X || b.UpperRight.Y <= b.LowerLeft.Y || b.UpperRight.Z <= b.LowerLeft.Z {
			r.warnf("collisionShape", "box %d has inverted or empty extent", i)
		}
	}
}

func validateTimings(r *ValidationReport, f *File) {
	timings := f.AnimationTimings()
	if timings == nil {
		return
	}
	set := f.AnimationSet()
	for ti := range timings.Timings {
		for vi := range timings.Timings[ti].Variants {
			for _, t := range timings.Timings[ti].Variants[vi].Timings {
				if t.AnimationMarkerID == 0 {
					continue
				}
				if set == nil || set.MarkerSetByID(t.AnimationMarkerID) == nil {
					r.errorf("AnimationTimings", "timing references unknown animation marker %d",
						t.AnimationMarkerID)
				}
			}
		}
	}
}

func validateIKAtlases(r *ValidationReport, f *File, skeleton *CSkSkeleton, boneIDs map[int32]bool) {
	set := f.AnimationSet()
	if set == nil || skeleton == nil {
		return
	}
	for i := range set.IKAtlases {
		if !boneIDs[set.IKAtlases[i].Identifier] {
			r.errorf("AnimationSet", "IK atlas %d targets unknown bone %d", i, set.IKAtlases[i].Identifier)
		}
	}
}

// validateHierarchy flags hierarchy names that disagree with the magic of
// the info slot they point at.
func validateHierarchy(r *ValidationReport, f *File) {
	for i := range f.Nodes {
		n := &f.Nodes[i]
		if n.InfoIndex < 1 || int(n.InfoIndex) > len(f.Infos) {
			continue // already rejected at decode
		}
		info := &f.Infos[n.InfoIndex-1]
		expected := TypeNameFor(info.Magic)
		if expected != "" && n.Name != expected {
			r.warnf("node table", "hierarchy node %q points at a %s entry", n.Name, expected)
		}
	}
}

// orthonormalityError measures how far a row-major 3x3 rotation deviates
// from R * R^T == I, as the largest absolute element difference.
func orthonormalityError(m Matrix3x3) float64 {
	var maxErr float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += float64(m[i*3+k]) * float64(m[j*3+k])
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			if d := math.Abs(dot - want); d > maxErr {
				maxErr = d
			}
		}
	}
	return maxErr
}
