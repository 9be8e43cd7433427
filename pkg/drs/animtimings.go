package drs

import "fmt"

// Animation types referenced by AnimationTiming. The set is open; these
// are the values the game is known to emit.
const (
	AnimationTypeCastResolve  int32 = 0
	AnimationTypeSpawn        int32 = 1
	AnimationTypeMelee        int32 = 2
	AnimationTypeChannel      int32 = 3
	AnimationTypeModeSwitch   int32 = 4
	AnimationTypeWormMovement int32 = 5
)

// Timing is one cast/resolve timing entry. The marker id refers into the
// model's AnimationSet marker sets.
type Timing struct {
	CastMs            int32
	ResolveMs         int32
	Direction         Vector3
	AnimationMarkerID uint32
}

// TimingVariant is one weighted timing choice. The variant index word
// exists only in version-4 blocks.
type TimingVariant struct {
	Weight       uint8
	VariantIndex uint8
	Timings      []Timing
}

func (v *TimingVariant) decode(r *reader, version int16) error {
	v.Weight = r.u8()
	if version == 4 {
		v.VariantIndex = r.u8()
	}
	count := r.u16()
	if r.err != nil {
		return r.err
	}
	if int(count)*24 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	v.Timings = make([]Timing, count)
	for i := range v.Timings {
		t := &v.Timings[i]
		t.CastMs = r.i32()
		t.ResolveMs = r.i32()
		t.Direction = r.vec3()
		t.AnimationMarkerID = r.u32()
	}
	return r.err
}

func (v *TimingVariant) encode(w *writer, version int16) {
	w.u8(v.Weight)
	if version == 4 {
		w.u8(v.VariantIndex)
	}
	w.u16(uint16(len(v.Timings)))
	for i := range v.Timings {
		t := &v.Timings[i]
		w.i32(t.CastMs)
		w.i32(t.ResolveMs)
		w.vec3(t.Direction)
		w.u32(t.AnimationMarkerID)
	}
}

// AnimationTiming groups the timing variants of one animation type. The
// tag id and enter-mode words exist only in versions 2 through 4.
type AnimationTiming struct {
	AnimationType        int32
	AnimationTagID       int32
	IsEnterModeAnimation int16
	Variants             []TimingVariant
}

func (t *AnimationTiming) decode(r *reader, version int16) error {
	t.AnimationType = r.i32()
	if version >= 2 && version <= 4 {
		t.AnimationTagID = r.i32()
		t.IsEnterModeAnimation = r.i16()
	}
	count := r.u16()
	if r.err != nil {
		return r.err
	}
	if int(count)*3 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	t.Variants = make([]TimingVariant, count)
	for i := range t.Variants {
		if err := t.Variants[i].decode(r, version); err != nil {
			return err
		}
	}
	return r.err
}

func (t *AnimationTiming) encode(w *writer, version int16) {
	w.i32(t.AnimationType)
	if version >= 2 && version <= 4 {
		w.i32(t.AnimationTagID)
		w.i16(t.IsEnterModeAnimation)
	}
	w.u16(uint16(len(t.Variants)))
	for i := range t.Variants {
		t.Variants[i].encode(w, version)
	}
}

// StructV3 is the fixed trailer of an AnimationTimings block: a length
// word followed by two opaque ints.
type StructV3 struct {
	Length  int32
	Unknown [2]int32
}

// AnimationTimings maps animation types to cast/resolve timing variants.
type AnimationTimings struct {
	Version  int16
	Timings  []AnimationTiming
	StructV3 StructV3
}

func (*AnimationTimings) Magic() int32     { return MagicAnimationTimings }
func (*AnimationTimings) TypeName() string { return "AnimationTimings" }

func (a *AnimationTimings) decode(r *reader) error {
	sig := r.i32()
	if r.err != nil {
		return r.err
	}
	if sig != animTimingsSignature {
		r.fail(fmt.Errorf("%w: animation timings signature %d", ErrSignatureMismatch, sig))
		return r.err
	}
	a.Version = r.i16()
	count := r.i16()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*6 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	a.Timings = make([]AnimationTiming, count)
	for i := range a.Timings {
		if err := a.Timings[i].decode(r, a.Version); err != nil {
			return err
		}
	}
	a.StructV3.Length = r.i32()
	a.StructV3.Unknown[0] = r.i32()
	a.StructV3.Unknown[1] = r.i32()
	return r.err
}

func (a *AnimationTimings) encode(w *writer) {
	w.i32(animTimingsSignature)
	w.i16(a.Version)
	w.i16(int16(len(a.Timings)))
	for i := range a.Timings {
		a.Timings[i].encode(w, a.Version)
	}
	w.i32(a.StructV3.Length)
	w.i32(a.StructV3.Unknown[0])
	w.i32(a.StructV3.Unknown[1])
}
