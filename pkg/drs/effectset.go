package drs

// EffectVariant is one weighted effect file choice of a keyframe.
type EffectVariant struct {
	Weight uint8
	Name   string
}

// Keyframe is one timed audio or visual effect trigger on an animation.
// The condition byte is absent in set types 10 and 11.
type Keyframe struct {
	Time          float32
	KeyframeType  int32
	MinFalloff    float32
	MaxFalloff    float32
	Volume        float32
	PitchShiftMin float32
	PitchShiftMax float32
	Offset        Vector3
	Interruptable uint8
	Condition     int8
	Variants      []EffectVariant
}

func (k *Keyframe) decode(r *reader, setType int16) error {
	k.Time = r.f32()
	k.KeyframeType = r.i32()
	k.MinFalloff = r.f32()
	k.MaxFalloff = r.f32()
	k.Volume = r.f32()
	k.PitchShiftMin = r.f32()
	k.PitchShiftMax = r.f32()
	k.Offset = r.vec3()
	k.Interruptable = r.u8()
	if setType != 10 && setType != 11 {
		k.Condition = r.i8()
	}
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*5 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	k.Variants = make([]EffectVariant, count)
	for i := range k.Variants {
		k.Variants[i].Weight = r.u8()
		k.Variants[i].Name = r.lenString()
	}
	return r.err
}

func (k *Keyframe) encode(w *writer, setType int16) {
	w.f32(k.Time)
	w.i32(k.KeyframeType)
	w.f32(k.MinFalloff)
	w.f32(k.MaxFalloff)
	w.f32(k.Volume)
	w.f32(k.PitchShiftMin)
	w.f32(k.PitchShiftMax)
	w.vec3(k.Offset)
	w.u8(k.Interruptable)
	if setType != 10 && setType != 11 {
		w.i8(k.Condition)
	}
	w.i32(int32(len(k.Variants)))
	for i := range k.Variants {
		w.u8(k.Variants[i].Weight)
		w.lenString(k.Variants[i].Name)
	}
}

// SkelEff binds keyframed effects to a named skeletal animation.
type SkelEff struct {
	Name      string
	Keyframes []Keyframe
}

func (s *SkelEff) decode(r *reader, setType int16) error {
	s.Name = r.lenString()
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*46 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	s.Keyframes = make([]Keyframe, count)
	for i := range s.Keyframes {
		if err := s.Keyframes[i].decode(r, setType); err != nil {
			return err
		}
	}
	return r.err
}

func (s *SkelEff) encode(w *writer, setType int16) {
	w.lenString(s.Name)
	w.i32(int32(len(s.Keyframes)))
	for i := range s.Keyframes {
		s.Keyframes[i].encode(w, setType)
	}
}

// SoundHeader is the falloff/volume/pitch preamble of a sound container.
// Field order on the wire: min falloff, max falloff, volume, pitch min,
// pitch max.
type SoundHeader struct {
	IsOne         int16
	MinFalloff    float32
	MaxFalloff    float32
	Volume        float32
	PitchShiftMin float32
	PitchShiftMax float32
}

func (h *SoundHeader) decode(r *reader) {
	h.IsOne = r.i16()
	h.MinFalloff = r.f32()
	h.MaxFalloff = r.f32()
	h.Volume = r.f32()
	h.PitchShiftMin = r.f32()
	h.PitchShiftMax = r.f32()
}

func (h *SoundHeader) encode(w *writer) {
	w.i16(h.IsOne)
	w.f32(h.MinFalloff)
	w.f32(h.MaxFalloff)
	w.f32(h.Volume)
	w.f32(h.PitchShiftMin)
	w.f32(h.PitchShiftMax)
}

// SoundFileHeader is the per-file variant of SoundHeader with a different
// wire order: volume, pitch min, pitch max, min falloff, max falloff.
type SoundFileHeader struct {
	IsOne         int16
	Volume        float32
	PitchShiftMin float32
	PitchShiftMax float32
	MinFalloff    float32
	MaxFalloff    float32
}

func (h *SoundFileHeader) decode(r *reader) {
	h.IsOne = r.i16()
	h.Volume = r.f32()
	h.PitchShiftMin = r.f32()
	h.PitchShiftMax = r.f32()
	h.MinFalloff = r.f32()
	h.MaxFalloff = r.f32()
}

func (h *SoundFileHeader) encode(w *writer) {
	w.i16(h.IsOne)
	w.f32(h.Volume)
	w.f32(h.PitchShiftMin)
	w.f32(h.PitchShiftMax)
	w.f32(h.MinFalloff)
	w.f32(h.MaxFalloff)
}

// SoundFile is one weighted sound variation.
type SoundFile struct {
	Weight uint8
	Header SoundFileHeader
	Name   string
}

func (f *SoundFile) decode(r *reader) {
	f.Weight = r.u8()
	f.Header.decode(r)
	f.Name = r.lenString()
}

func (f *SoundFile) encode(w *writer) {
	w.u8(f.Weight)
	f.Header.encode(w)
	w.lenString(f.Name)
}

// SoundContainer groups sound variations under one index.
type SoundContainer struct {
	Header  SoundHeader
	UKIndex int16
	Files   []SoundFile
}

func (c *SoundContainer) decode(r *reader) error {
	c.Header.decode(r)
	c.UKIndex = r.i16()
	count := r.i16()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*27 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	c.Files = make([]SoundFile, count)
	for i := range c.Files {
		c.Files[i].decode(r)
	}
	return r.err
}

func (c *SoundContainer) encode(w *writer) {
	c.Header.encode(w)
	w.i16(c.UKIndex)
	w.i16(int16(len(c.Files)))
	for i := range c.Files {
		c.Files[i].encode(w)
	}
}

// AdditionalSoundContainer nests sound containers under a sound type.
type AdditionalSoundContainer struct {
	Header     SoundHeader
	SoundType  int16
	Containers []SoundContainer
}

func (c *AdditionalSoundContainer) decode(r *reader) error {
	c.Header.decode(r)
	c.SoundType = r.i16()
	count := r.i16()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*26 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	c.Containers = make([]SoundContainer, count)
	for i := range c.Containers {
		if err := c.Containers[i].decode(r); err != nil {
			return err
		}
	}
	return r.err
}

func (c *AdditionalSoundContainer) encode(w *writer) {
	c.Header.encode(w)
	w.i16(c.SoundType)
	w.i16(int16(len(c.Containers)))
	for i := range c.Containers {
		c.Containers[i].encode(w)
	}
}

// EffectSet holds the keyframed effects and sound tables of a model. The
// body after the checksum exists only for set types 10, 11 and 12; other
// types carry just the type word and checksum.
type EffectSet struct {
	Type             int16
	Checksum         string
	Unknown          [5]float32 // type 10 only
	SkelEffects      []SkelEff
	ImpactSounds     []SoundContainer
	AdditionalSounds []AdditionalSoundContainer
}

func (*EffectSet) Magic() int32     { return MagicEffectSet }
func (*EffectSet) TypeName() string { return "EffectSet" }

func (e *EffectSet) decode(r *reader) error {
	e.Type = r.i16()
	e.Checksum = r.lenString()
	if r.err != nil {
		return r.err
	}
	if e.Type != 10 && e.Type != 11 && e.Type != 12 {
		return r.err
	}
	if e.Type == 10 {
		for i := range e.Unknown {
			e.Unknown[i] = r.f32()
		}
	}
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*8 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	e.SkelEffects = make([]SkelEff, count)
	for i := range e.SkelEffects {
		if err := e.SkelEffects[i].decode(r, e.Type); err != nil {
			return err
		}
	}
	impactCount := r.i16()
	if r.err != nil {
		return r.err
	}
	if impactCount < 0 || int(impactCount)*26 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	e.ImpactSounds = make([]SoundContainer, impactCount)
	for i := range e.ImpactSounds {
		if err := e.ImpactSounds[i].decode(r); err != nil {
			return err
		}
	}
	additionalCount := r.i16()
	if r.err != nil {
		return r.err
	}
	if additionalCount < 0 || int(additionalCount)*26 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	e.AdditionalSounds = make([]AdditionalSoundContainer, additionalCount)
	for i := range e.AdditionalSounds {
		if err := e.AdditionalSounds[i].decode(r); err != nil {
			return err
		}
	}
	return r.err
}

func (e *EffectSet) encode(w *writer) {
	w.i16(e.Type)
	w.lenString(e.Checksum)
	if e.Type != 10 && e.Type != 11 && e.Type != 12 {
		return
	}
	if e.Type == 10 {
		for i := range e.Unknown {
			w.f32(e.Unknown[i])
		}
	}
	w.i32(int32(len(e.SkelEffects)))
	for i := range e.SkelEffects {
		e.SkelEffects[i].encode(w, e.Type)
	}
	w.i16(int16(len(e.ImpactSounds)))
	for i := range e.ImpactSounds {
		e.ImpactSounds[i].encode(w)
	}
	w.i16(int16(len(e.AdditionalSounds)))
	for i := range e.AdditionalSounds {
		e.AdditionalSounds[i].encode(w)
	}
}
