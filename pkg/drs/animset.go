package drs

// animationSetMagic is the fixed 11-byte tag at the start of every
// AnimationSet payload.
const animationSetMagic = "Battleforge"

// Constraint is one IK rotation limit. Angles are stored in radians.
// The five floats exist only when Revision is 1.
type Constraint struct {
	Revision       int16
	LeftAngle      float32
	RightAngle     float32
	LeftDampStart  float32
	RightDampStart float32
	DampRatio      float32
}

func (c *Constraint) decode(r *reader) {
	c.Revision = r.i16()
	if c.Revision == 1 {
		c.LeftAngle = r.f32()
		c.RightAngle = r.f32()
		c.LeftDampStart = r.f32()
		c.RightDampStart = r.f32()
		c.DampRatio = r.f32()
	}
}

func (c *Constraint) encode(w *writer) {
	w.i16(c.Revision)
	if c.Revision == 1 {
		w.f32(c.LeftAngle)
		w.f32(c.RightAngle)
		w.f32(c.LeftDampStart)
		w.f32(c.RightDampStart)
		w.f32(c.DampRatio)
	}
}

// IKAtlas binds an IK chain entry to a bone identifier. Exactly three
// constraints follow when the version carries them.
type IKAtlas struct {
	Identifier   int32
	Version      int16
	Axis         int32
	ChainOrder   int32
	Constraints  [3]Constraint
	PurposeFlags int16
}

func (a *IKAtlas) decode(r *reader) {
	a.Identifier = r.i32()
	a.Version = r.i16()
	if a.Version >= 1 {
		a.Axis = r.i32()
		a.ChainOrder = r.i32()
		for i := range a.Constraints {
			a.Constraints[i].decode(r)
		}
		if a.Version >= 2 {
			a.PurposeFlags = r.i16()
		}
	}
}

func (a *IKAtlas) encode(w *writer) {
	w.i32(a.Identifier)
	w.i16(a.Version)
	if a.Version >= 1 {
		w.i32(a.Axis)
		w.i32(a.ChainOrder)
		for i := range a.Constraints {
			a.Constraints[i].encode(w)
		}
		if a.Version >= 2 {
			w.i16(a.PurposeFlags)
		}
	}
}

// AnimationSetVariant is one weighted animation file choice within a mode
// key. Later versions append a play window and blend flags.
type AnimationSetVariant struct {
	Version      int32
	Weight       int32
	File         string
	Start        float32
	End          float32
	AllowsIK     uint8
	ForceNoBlend uint8
}

func (v *AnimationSetVariant) decode(r *reader) {
	v.Version = r.i32()
	v.Weight = r.i32()
	v.File = r.lenString()
	if v.Version >= 4 {
		v.Start = r.f32()
		v.End = r.f32()
	}
	if v.Version >= 5 {
		v.AllowsIK = r.u8()
	}
	if v.Version >= 7 {
		v.ForceNoBlend = r.u8()
	}
}

func (v *AnimationSetVariant) encode(w *writer) {
	w.i32(v.Version)
	w.i32(v.Weight)
	w.lenString(v.File)
	if v.Version >= 4 {
		w.f32(v.Start)
		w.f32(v.End)
	}
	if v.Version >= 5 {
		w.u8(v.AllowsIK)
	}
	if v.Version >= 7 {
		w.u8(v.ForceNoBlend)
	}
}

// ModeAnimationKey is one animation mode entry. The Type word is implicit
// (always 2) when the owning set's UK marker is 2; in that case it is also
// omitted on encode so the bytes round-trip.
type ModeAnimationKey struct {
	Type        int32
	File        string
	Unknown     int32
	Unknown2    int32
	Raw24       [24]byte // payload of type 1 keys
	VisJob      int16
	Unknown3    int32
	SpecialMode int16
	Variants    []AnimationSetVariant
}

func (k *ModeAnimationKey) decode(r *reader, uk int32) error {
	if uk != 2 {
		k.Type = r.i32()
	} else {
		k.Type = 2
	}
	k.File = r.lenString()
	k.Unknown = r.i32()
	switch {
	case k.Type == 1:
		copy(k.Raw24[:], r.take(24))
	case k.Type <= 5:
		k.Unknown2 = r.i32()
		k.SpecialMode = r.i16()
	case k.Type == 6:
		k.Unknown2 = r.i32()
		k.VisJob = r.i16()
		k.Unknown3 = r.i32()
		k.SpecialMode = r.i16()
	}
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*12 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	k.Variants = make([]AnimationSetVariant, count)
	for i := range k.Variants {
		k.Variants[i].decode(r)
	}
	return r.err
}

func (k *ModeAnimationKey) encode(w *writer, uk int32) {
	if uk != 2 {
		w.i32(k.Type)
	}
	w.lenString(k.File)
	w.i32(k.Unknown)
	switch {
	case k.Type == 1:
		w.bytesN(k.Raw24[:])
	case k.Type <= 5:
		w.i32(k.Unknown2)
		w.i16(k.SpecialMode)
	case k.Type == 6:
		w.i32(k.Unknown2)
		w.i16(k.VisJob)
		w.i32(k.Unknown3)
		w.i16(k.SpecialMode)
	}
	w.i32(int32(len(k.Variants)))
	for i := range k.Variants {
		k.Variants[i].encode(w)
	}
}

// AnimationMarker is one timed event on an animation: a spawn flag, a time
// in normalized animation space, and a direction/position pair.
type AnimationMarker struct {
	IsSpawnAnimation int32
	Time             float32
	Direction        Vector3
	Position         Vector3
}

// AnimationMarkerSet groups markers under an animation id and a marker id
// that timing blocks reference.
type AnimationMarkerSet struct {
	AnimID   int32
	Name     string
	MarkerID uint32
	Markers  []AnimationMarker
}

func (s *AnimationMarkerSet) decode(r *reader) error {
	s.AnimID = r.i32()
	s.Name = r.lenString()
	s.MarkerID = r.u32()
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*32 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Markers = make([]AnimationMarker, count)
	for i := range s.Markers {
		m := &s.Markers[i]
		m.IsSpawnAnimation = r.i32()
		m.Time = r.f32()
		m.Direction = r.vec3()
		m.Position = r.vec3()
	}
	return r.err
}

func (s *AnimationMarkerSet) encode(w *writer) {
	w.i32(s.AnimID)
	w.lenString(s.Name)
	w.u32(s.MarkerID)
	w.i32(int32(len(s.Markers)))
	for i := range s.Markers {
		m := &s.Markers[i]
		w.i32(m.IsSpawnAnimation)
		w.f32(m.Time)
		w.vec3(m.Direction)
		w.vec3(m.Position)
	}
}

// UnknownStruct2 is five opaque words inside a subversion-1 trailer.
type UnknownStruct2 struct {
	Ints [5]int32
}

// UnknownStruct is one entry of the subversion-1 trailer. Its meaning is
// undocumented; the bytes are preserved verbatim.
type UnknownStruct struct {
	Unknown  int32
	Name     string
	Unknown2 int32
	Entries  []UnknownStruct2
}

func (s *UnknownStruct) decode(r *reader) error {
	s.Unknown = r.i32()
	s.Name = r.lenString()
	s.Unknown2 = r.i32()
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*20 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Entries = make([]UnknownStruct2, count)
	for i := range s.Entries {
		for j := range s.Entries[i].Ints {
			s.Entries[i].Ints[j] = r.i32()
		}
	}
	return r.err
}

func (s *UnknownStruct) encode(w *writer) {
	w.i32(s.Unknown)
	w.lenString(s.Name)
	w.i32(s.Unknown2)
	w.i32(int32(len(s.Entries)))
	for i := range s.Entries {
		for j := range s.Entries[i].Ints {
			w.i32(s.Entries[i].Ints[j])
		}
	}
}

// AnimationSet is the animation state table of a model: mode keys with
// weighted variants, optional IK atlases, and either marker sets or an
// undocumented trailer depending on Subversion.
type AnimationSet struct {
	Version          int32
	DefaultRunSpeed  float32
	DefaultWalkSpeed float32
	Revision         int32
	ModeChangeType   uint8
	HoveringGround   uint8
	FlyBankScale     float32
	FlyAccelScale    float32
	FlyHitScale      float32
	AlignToTerrain   uint8
	UK               int32 // marker word of version-2 sets, preserved verbatim
	ModeKeys         []ModeAnimationKey
	HasAtlas         int16
	IKAtlases        []IKAtlas
	UKInts           []int32
	Subversion       int16
	MarkerSets       []AnimationMarkerSet
	UnknownStructs   []UnknownStruct
}

func (*AnimationSet) Magic() int32     { return MagicAnimationSet }
func (*AnimationSet) TypeName() string { return "AnimationSet" }

func (s *AnimationSet) decode(r *reader) error {
	magicLen := r.i32()
	if r.err != nil {
		return r.err
	}
	if magicLen != int32(len(animationSetMagic)) || string(r.take(int(magicLen))) != animationSetMagic {
		r.fail(ErrSignatureMismatch)
		return r.err
	}
	s.Version = r.i32()
	s.DefaultRunSpeed = r.f32()
	s.DefaultWalkSpeed = r.f32()

	var keyCount int32
	if s.Version == 2 {
		keyCount = r.i32()
	} else {
		s.Revision = r.i32()
	}

	if s.Version >= 6 {
		if s.Revision >= 2 {
			s.ModeChangeType = r.u8()
			s.HoveringGround = r.u8()
		}
		if s.Revision >= 5 {
			s.FlyBankScale = r.f32()
			s.FlyAccelScale = r.f32()
			s.FlyHitScale = r.f32()
		}
		if s.Revision >= 6 {
			s.AlignToTerrain = r.u8()
		}
	}

	if s.Version == 2 {
		s.UK = r.i32()
	} else {
		keyCount = r.i32()
	}
	if r.err != nil {
		return r.err
	}
	if keyCount < 0 || int(keyCount)*12 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.ModeKeys = make([]ModeAnimationKey, keyCount)
	for i := range s.ModeKeys {
		if err := s.ModeKeys[i].decode(r, s.UK); err != nil {
			return err
		}
	}

	if s.Version >= 3 {
		s.HasAtlas = r.i16()
		if s.HasAtlas >= 1 {
			atlasCount := r.i32()
			if r.err != nil {
				return r.err
			}
			if atlasCount < 0 || int(atlasCount)*6 > r.remaining() {
				r.fail(ErrTruncatedData)
				return r.err
			}
			s.IKAtlases = make([]IKAtlas, atlasCount)
			for i := range s.IKAtlases {
				s.IKAtlases[i].decode(r)
			}
		}
		if s.HasAtlas >= 2 {
			ukLen := r.i32()
			if r.err != nil {
				return r.err
			}
			if ukLen < 0 || int(ukLen)*4 > r.remaining() {
				r.fail(ErrTruncatedData)
				return r.err
			}
			s.UKInts = make([]int32, ukLen)
			for i := range s.UKInts {
				s.UKInts[i] = r.i32()
			}
		}
	}

	if s.Version >= 4 {
		s.Subversion = r.i16()
		switch s.Subversion {
		case 2:
			count := r.i32()
			if r.err != nil {
				return r.err
			}
			if count < 0 || int(count)*16 > r.remaining() {
				r.fail(ErrTruncatedData)
				return r.err
			}
			s.MarkerSets = make([]AnimationMarkerSet, count)
			for i := range s.MarkerSets {
				if err := s.MarkerSets[i].decode(r); err != nil {
					return err
				}
			}
		case 1:
			count := r.i32()
			if r.err != nil {
				return r.err
			}
			if count < 0 || int(count)*16 > r.remaining() {
				r.fail(ErrTruncatedData)
				return r.err
			}
			s.UnknownStructs = make([]UnknownStruct, count)
			for i := range s.UnknownStructs {
				if err := s.UnknownStructs[i].decode(r); err != nil {
					return err
				}
			}
		}
	}
	return r.err
}

func (s *AnimationSet) encode(w *writer) {
	w.i32(int32(len(animationSetMagic)))
	w.bytesN([]byte(animationSetMagic))
	w.i32(s.Version)
	w.f32(s.DefaultRunSpeed)
	w.f32(s.DefaultWalkSpeed)

	if s.Version == 2 {
		w.i32(int32(len(s.ModeKeys)))
	} else {
		w.i32(s.Revision)
	}

	if s.Version >= 6 {
		if s.Revision >= 2 {
			w.u8(s.ModeChangeType)
			w.u8(s.HoveringGround)
		}
		if s.Revision >= 5 {
			w.f32(s.FlyBankScale)
			w.f32(s.FlyAccelScale)
			w.f32(s.FlyHitScale)
		}
		if s.Revision >= 6 {
			w.u8(s.AlignToTerrain)
		}
	}

	if s.Version == 2 {
		w.i32(s.UK)
	} else {
		w.i32(int32(len(s.ModeKeys)))
	}
	for i := range s.ModeKeys {
		s.ModeKeys[i].encode(w, s.UK)
	}

	if s.Version >= 3 {
		w.i16(s.HasAtlas)
		if s.HasAtlas >= 1 {
			w.i32(int32(len(s.IKAtlases)))
			for i := range s.IKAtlases {
				s.IKAtlases[i].encode(w)
			}
		}
		if s.HasAtlas >= 2 {
			w.i32(int32(len(s.UKInts)))
			for _, v := range s.UKInts {
				w.i32(v)
			}
		}
	}

	if s.Version >= 4 {
		w.i16(s.Subversion)
		switch s.Subversion {
		case 2:
			w.i32(int32(len(s.MarkerSets)))
			for i := range s.MarkerSets {
				s.MarkerSets[i].encode(w)
			}
		case 1:
			w.i32(int32(len(s.UnknownStructs)))
			for i := range s.UnknownStructs {
				s.UnknownStructs[i].encode(w)
			}
		}
	}
}

// MarkerSetByID returns the marker set with the given marker id, or nil.
func (s *AnimationSet) MarkerSetByID(id uint32) *AnimationMarkerSet {
	for i := range s.MarkerSets {
		if s.MarkerSets[i].MarkerID == id {
			return &s.MarkerSets[i]
		}
	}
	return nil
}
