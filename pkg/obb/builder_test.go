package obb

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/Faultbox/battleforge-drs/pkg/drs"
)

// createTestGeometry lays out faceCount separate triangles along the x
// axis so every split axis has real extent.
func createTestGeometry(faceCount int) ([]drs.Vector4, []drs.Face) {
	var vertices []drs.Vector4
	var faces []drs.Face
	for i := 0; i < faceCount; i++ {
		x := float32(i)
		base := uint16(len(vertices))
		vertices = append(vertices,
			drs.Vector4{X: x, Y: 0, Z: 0, W: 1},
			drs.Vector4{X: x + 0.5, Y: 1, Z: 0, W: 1},
			drs.Vector4{X: x + 0.5, Y: 0, Z: 1, W: 1},
		)
		faces = append(faces, drs.Face{Indices: [3]uint16{base, base + 1, base + 2}})
	}
	return vertices, faces
}

// checkSubtree verifies the pre-order layout and skip pointers of the
// subtree rooted at idx and returns the index one past it.
func checkSubtree(t *testing.T, nodes []drs.OBBNode, idx int) int {
	t.Helper()
	n := &nodes[idx]
	var end int
	if n.IsLeaf() {
		end = idx + 1
	} else {
		if int(n.FirstChild) != idx+1 {
			t.Errorf("node %d first child = %d, expected %d in pre-order", idx, n.FirstChild, idx+1)
		}
		mid := checkSubtree(t, nodes, int(n.FirstChild))
		if int(n.SecondChild) != mid {
			t.Errorf("node %d second child = %d, expected %d", idx, n.SecondChild, mid)
		}
		end = checkSubtree(t, nodes, int(n.SecondChild))

		// an internal node's span is the union of its children's spans
		first, second := &nodes[n.FirstChild], &nodes[n.SecondChild]
		if first.TriangleOffset != n.TriangleOffset ||
			second.TriangleOffset != first.TriangleOffset+first.TotalTriangles ||
			first.TotalTriangles+second.TotalTriangles != n.TotalTriangles {
			t.Errorf("node %d span [%d,%d) not partitioned by children", idx,
				n.TriangleOffset, n.TriangleOffset+n.TotalTriangles)
		}
		for _, child := range []int{int(n.FirstChild), int(n.SecondChild)} {
			if int(nodes[child].NodeDepth) != int(n.NodeDepth)+1 {
				t.Errorf("node %d depth %d under parent depth %d", child, nodes[child].NodeDepth, n.NodeDepth)
			}
		}
	}
	if int(n.SkipPointer) != end {
		t.Errorf("node %d skip pointer = %d, expected %d", idx, n.SkipPointer, end)
	}
	return end
}

func TestBuildSubdivides(t *testing.T) {
	vertices, faces := createTestGeometry(40)
	tree, err := Build(vertices, faces, Options{LeafThreshold: 8})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tree.Version != 3 {
		t.Errorf("tree version = %d, expected 3", tree.Version)
	}
	if len(tree.Faces) != 40 {
		t.Fatalf("tree has %d faces, expected 40", len(tree.Faces))
	}

	root := &tree.Nodes[0]
	if root.NodeDepth != 0 || root.TriangleOffset != 0 || root.TotalTriangles != 40 {
		t.Errorf("root span = depth %d [%d,%d)", root.NodeDepth, root.TriangleOffset,
			root.TriangleOffset+root.TotalTriangles)
	}

	if end := checkSubtree(t, tree.Nodes, 0); end != len(tree.Nodes) {
		t.Errorf("root subtree ends at %d of %d nodes", end, len(tree.Nodes))
	}

	// leaves must respect the threshold and tile [0,40) without overlap
	type span struct{ offset, count uint32 }
	var leaves []span
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if !n.IsLeaf() {
			continue
		}
		if n.TotalTriangles > 8 {
			t.Errorf("leaf %d holds %d triangles, threshold is 8", i, n.TotalTriangles)
		}
		if n.TotalTriangles == 0 {
			t.Errorf("leaf %d is empty", i)
		}
		leaves = append(leaves, span{n.TriangleOffset, n.TotalTriangles})
	}
	if len(leaves) < 5 {
		t.Errorf("40 triangles at threshold 8 need at least 5 leaves, got %d", len(leaves))
	}
	sort.Slice(leaves, func(a, b int) bool { return leaves[a].offset < leaves[b].offset })
	var next uint32
	for _, l := range leaves {
		if l.offset != next {
			t.Fatalf("leaf spans leave a gap or overlap at %d (expected offset %d)", l.offset, next)
		}
		next += l.count
	}
	if next != 40 {
		t.Errorf("leaf spans cover [0,%d), expected [0,40)", next)
	}

	// the reordered face list is a permutation of the input
	seen := map[[3]uint16]int{}
	for _, f := range faces {
		seen[f.Indices]++
	}
	for _, f := range tree.Faces {
		seen[f.Indices]--
	}
	for indices, n := range seen {
		if n != 0 {
			t.Errorf("face %v count off by %d after reordering", indices, n)
		}
	}
}

func TestBuildSingleLeaf(t *testing.T) {
	vertices, faces := createTestGeometry(4)
	tree, err := Build(vertices, faces, Options{LeafThreshold: 8})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected a single node, got %d", len(tree.Nodes))
	}
	n := &tree.Nodes[0]
	if !n.IsLeaf() {
		t.Error("root of a small mesh should be a leaf")
	}
	if n.SkipPointer != 1 {
		t.Errorf("skip pointer = %d, expected 1", n.SkipPointer)
	}
	if n.TotalTriangles != 4 {
		t.Errorf("leaf holds %d triangles, expected 4", n.TotalTriangles)
	}
}

func TestBuildDefaultThreshold(t *testing.T) {
	vertices, faces := createTestGeometry(DefaultLeafThreshold)
	tree, err := Build(vertices, faces, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tree.Nodes) != 1 {
		t.Errorf("%d triangles should fit one default-threshold leaf, got %d nodes",
			DefaultLeafThreshold, len(tree.Nodes))
	}
}

func TestBuildEmptyFaces(t *testing.T) {
	vertices, _ := createTestGeometry(1)
	_, err := Build(vertices, nil, Options{})
	if !errors.Is(err, drs.ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
}

func TestBuildBadFaceIndex(t *testing.T) {
	vertices, faces := createTestGeometry(2)
	faces[1].Indices[2] = 500
	_, err := Build(vertices, faces, Options{})
	if !errors.Is(err, drs.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	vertices, faces := createTestGeometry(20)
	original := make([]drs.Face, len(faces))
	copy(original, faces)

	if _, err := Build(vertices, faces, Options{LeafThreshold: 4}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !reflect.DeepEqual(original, faces) {
		t.Error("Build must not reorder the caller's face slice")
	}
}

// Coincident triangles have no split axis; the builder falls back to index
// order and still terminates with non-empty halves.
func TestBuildCoincidentTriangles(t *testing.T) {
	vertices := []drs.Vector4{
		{X: 0, Y: 0, Z: 0, W: 1},
		{X: 1, Y: 0, Z: 0, W: 1},
		{X: 0, Y: 1, Z: 0, W: 1},
	}
	var faces []drs.Face
	for i := 0; i < 10; i++ {
		faces = append(faces, drs.Face{Indices: [3]uint16{0, 1, 2}})
	}

	tree, err := Build(vertices, faces, Options{LeafThreshold: 4})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if end := checkSubtree(t, tree.Nodes, 0); end != len(tree.Nodes) {
		t.Errorf("root subtree ends at %d of %d nodes", end, len(tree.Nodes))
	}
	var covered uint32
	for i := range tree.Nodes {
		if tree.Nodes[i].IsLeaf() {
			covered += tree.Nodes[i].TotalTriangles
		}
	}
	if covered != 10 {
		t.Errorf("leaves cover %d triangles, expected 10", covered)
	}
}

// Every emitted rotation must stay an orthonormal basis after the float32
// narrowing.
func TestBuildRotationsOrthonormal(t *testing.T) {
	vertices, faces := createTestGeometry(24)
	tree, err := Build(vertices, faces, Options{LeafThreshold: 4})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := range tree.Nodes {
		m := tree.Nodes[i].OrientedBox.Rotation
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				var dot float64
				for k := 0; k < 3; k++ {
					dot += float64(m[row*3+k]) * float64(m[col*3+k])
				}
				want := 0.0
				if row == col {
					want = 1.0
				}
				if diff := dot - want; diff > 1e-3 || diff < -1e-3 {
					t.Fatalf("node %d rotation row %d . row %d = %g", i, row, col, dot)
				}
			}
		}
	}
}
