// Package drs reads and writes the DRS/BMG binary container used by
// Battleforge model archives: a self-describing node table mapping typed
// blocks (mesh, skeleton, skin weights, collision volumes, locators,
// animation metadata) to byte ranges in the file.
package drs

// Vector3 is a 3-component float vector, 12 bytes on the wire.
type Vector3 struct {
	X, Y, Z float32
}

// Vector4 is a 4-component float vector, 16 bytes on the wire.
type Vector4 struct {
	X, Y, Z, W float32
}

// Matrix3x3 is a row-major 3x3 float matrix, 36 bytes on the wire.
type Matrix3x3 [9]float32

// Identity3x3 returns the 3x3 identity matrix.
func Identity3x3() Matrix3x3 {
	return Matrix3x3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Matrix4x4 is a row-major 4x4 float matrix, 64 bytes on the wire.
type Matrix4x4 [16]float32

// Identity4x4 returns the 4x4 identity matrix.
func Identity4x4() Matrix4x4 {
	return Matrix4x4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// CMatCoordinateSystem is a rotation plus position transform, 48 bytes on
// the wire. No scale: the rotation is expected to be orthonormal.
type CMatCoordinateSystem struct {
	Rotation Matrix3x3
	Position Vector3
}

// Face is one triangle, three 16-bit indices into a vertex array.
type Face struct {
	Indices [3]uint16
}
