package drs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/battleforge-drs/pkg/encoding"
)

// reader decodes little-endian scalars from a byte slice while tracking the
// current offset. The first failure is sticky: once err is set, every
// subsequent read returns a zero value, so block codecs can read a whole
// layout and check the error once at the end.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

// fail records the first error together with the offset it occurred at.
func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w at offset %d", err, r.off)
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(ErrTruncatedData)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) i8() int8 { return int8(r.u8()) }

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) i16() int16 { return int16(r.u16()) }

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

// bytesN returns an owned copy of the next n bytes, nil when n is zero so
// zero-length fields round-trip to their unset form.
func (r *reader) bytesN(n int) []byte {
	b := r.take(n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// lenString reads an int32 length prefix followed by that many name bytes.
func (r *reader) lenString() string {
	n := r.i32()
	if n < 0 {
		r.fail(ErrTruncatedData)
		return ""
	}
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return encoding.DecodeName(b)
}

func (r *reader) vec3() Vector3 {
	return Vector3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) vec4() Vector4 {
	return Vector4{X: r.f32(), Y: r.f32(), Z: r.f32(), W: r.f32()}
}

func (r *reader) mat3() Matrix3x3 {
	var m Matrix3x3
	for i := range m {
		m[i] = r.f32()
	}
	return m
}

func (r *reader) mat4() Matrix4x4 {
	var m Matrix4x4
	for i := range m {
		m[i] = r.f32()
	}
	return m
}

func (r *reader) coordSystem() CMatCoordinateSystem {
	return CMatCoordinateSystem{Rotation: r.mat3(), Position: r.vec3()}
}

// remaining reports how many bytes are left past the cursor.
func (r *reader) remaining() int { return len(r.data) - r.off }

// writer accumulates a little-endian byte stream. Writes into a bytes.Buffer
// cannot fail, so encoding is infallible once a model is structurally valid.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) i8(v int8)    { w.buf.WriteByte(byte(v)) }
func (w *writer) u16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *writer) i16(v int16)  { w.u16(uint16(v)) }
func (w *writer) u32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) bytesN(b []byte) { w.buf.Write(b) }

// lenString writes an int32 length prefix followed by the name bytes.
func (w *writer) lenString(s string) {
	b := encoding.EncodeName(s)
	w.i32(int32(len(b)))
	w.buf.Write(b)
}

func (w *writer) vec3(v Vector3) { w.f32(v.X); w.f32(v.Y); w.f32(v.Z) }
func (w *writer) vec4(v Vector4) { w.f32(v.X); w.f32(v.Y); w.f32(v.Z); w.f32(v.W) }

func (w *writer) mat3(m Matrix3x3) {
	for _, v := range m {
		w.f32(v)
	}
}

func (w *writer) mat4(m Matrix4x4) {
	for _, v := range m {
		w.f32(v)
	}
}

func (w *writer) coordSystem(c CMatCoordinateSystem) {
	w.mat3(c.Rotation)
	w.vec3(c.Position)
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }
func (w *writer) len() int      { return w.buf.Len() }
