package math

import "math"

// Mat3 is a row-major 3x3 matrix.
type Mat3 [9]float64

// Identity3 returns the identity matrix.
func Identity3() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// At returns the element at row i, column j.
func (m Mat3) At(i, j int) float64 { return m[i*3+j] }

// Set assigns the element at row i, column j.
func (m *Mat3) Set(i, j int, v float64) { m[i*3+j] = v }

// Row returns row i as a vector.
func (m Mat3) Row(i int) Vec3 {
	return Vec3{m[i*3], m[i*3+1], m[i*3+2]}
}

// Col returns column j as a vector.
func (m Mat3) Col(j int) Vec3 {
	return Vec3{m[j], m[3+j], m[6+j]}
}

// MulVec returns m * v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Covariance computes the 3x3 covariance matrix of a point cloud around
// its centroid. A cloud with fewer than two points yields the zero matrix.
func Covariance(points []Vec3) Mat3 {
	var cov Mat3
	if len(points) < 2 {
		return cov
	}
	c := Centroid(points)
	for _, p := range points {
		d := p.Sub(c)
		cov[0] += d.X * d.X
		cov[1] += d.X * d.Y
		cov[2] += d.X * d.Z
		cov[4] += d.Y * d.Y
		cov[5] += d.Y * d.Z
		cov[8] += d.Z * d.Z
	}
	n := float64(len(points))
	cov[0] /= n
	cov[1] /= n
	cov[2] /= n
	cov[4] /= n
	cov[5] /= n
	cov[8] /= n
	cov[3] = cov[1]
	cov[6] = cov[2]
	cov[7] = cov[5]
	return cov
}

// jacobiSweeps bounds the cyclic Jacobi iteration. Symmetric 3x3 matrices
// converge to machine precision well within this.
const jacobiSweeps = 32

// EigenSym diagonalizes a symmetric matrix with cyclic Jacobi rotations.
// It returns the eigenvalues in descending order and the matching unit
// eigenvectors as the rows of the returned matrix.
func EigenSym(m Mat3) (values [3]float64, vectors Mat3) {
	a := m
	v := Identity3()

	for sweep := 0; sweep < jacobiSweeps; sweep++ {
		off := a[1]*a[1] + a[2]*a[2] + a[5]*a[5]
		if off < 1e-30 {
			break
		}
		for p := 0; p < 2; p++ {
			for q := p + 1; q < 3; q++ {
				apq := a.At(p, q)
				if apq == 0 {
					continue
				}
				app := a.At(p, p)
				aqq := a.At(q, q)
				theta := (aqq - app) / (2 * apq)
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for k := 0; k < 3; k++ {
					akp := a.At(k, p)
					akq := a.At(k, q)
					a.Set(k, p, c*akp-s*akq)
					a.Set(k, q, s*akp+c*akq)
				}
				for k := 0; k < 3; k++ {
					apk := a.At(p, k)
					aqk := a.At(q, k)
					a.Set(p, k, c*apk-s*aqk)
					a.Set(q, k, s*apk+c*aqk)
				}
				for k := 0; k < 3; k++ {
					vkp := v.At(k, p)
					vkq := v.At(k, q)
					v.Set(k, p, c*vkp-s*vkq)
					v.Set(k, q, s*vkp+c*vkq)
				}
			}
		}
	}

	values = [3]float64{a[0], a[4], a[8]}
	// columns of v are the eigenvectors; emit rows sorted by eigenvalue
	idx := [3]int{0, 1, 2}
	for i := 0; i < 2; i++ {
		for j := i + 1; j < 3; j++ {
			if values[idx[j]] > values[idx[i]] {
				idx[i], idx[j] = idx[j], idx[i]
			}
		}
	}
	var sorted [3]float64
	for i, k := range idx {
		sorted[i] = values[k]
		ev := v.Col(k).Normalize()
		vectors.Set(i, 0, ev.X)
		vectors.Set(i, 1, ev.Y)
		vectors.Set(i, 2, ev.Z)
	}
	return sorted, vectors
}

// Orthonormalize re-orthogonalizes the rows of a near-rotation matrix with
// Gram-Schmidt and forces a right-handed basis.
func Orthonormalize(m Mat3) Mat3 {
	r0 := m.Row(0).Normalize()
	if r0.Length() == 0 {
		r0 = Vec3{X: 1}
	}
	r1 := m.Row(1).Sub(r0.Scale(m.Row(1).Dot(r0))).Normalize()
	if r1.Length() == 0 {
		r1 = arbitraryPerpendicular(r0)
	}
	r2 := r0.Cross(r1)
	return Mat3{
		r0.X, r0.Y, r0.Z,
		r1.X, r1.Y, r1.Z,
		r2.X, r2.Y, r2.Z,
	}
}

func arbitraryPerpendicular(v Vec3) Vec3 {
	axis := Vec3{X: 1}
	if math.Abs(v.X) > 0.9 {
		axis = Vec3{Y: 1}
	}
	return v.Cross(axis).Normalize()
}
