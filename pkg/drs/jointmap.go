package drs

// JointGroup translates a mesh's local bone indices to the skeleton's
// global bone identifier space.
type JointGroup struct {
	Joints []int16
}

// CDspJointMap holds one joint group per mesh in the CDspMeshFile.
type CDspJointMap struct {
	Version int32
	Groups  []JointGroup
}

func (*CDspJointMap) Magic() int32     { return MagicCDspJointMap }
func (*CDspJointMap) TypeName() string { return "CDspJointMap" }

func (m *CDspJointMap) decode(r *reader) error {
	m.Version = r.i32()
	groupCount := r.i32()
	if r.err != nil {
		return r.err
	}
	if groupCount < 0 || int(groupCount)*4 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	m.Groups = make([]JointGroup, groupCount)
	for i := range m.Groups {
		jointCount := r.i32()
		if r.err != nil {
			return r.err
		}
		if jointCount < 0 || int(jointCount)*2 > r.remaining() {
			r.fail(ErrTruncatedData)
			return r.err
		}
		joints := make([]int16, jointCount)
		for j := range joints {
			joints[j] = r.i16()
		}
		m.Groups[i].Joints = joints
	}
	return r.err
}

func (m *CDspJointMap) encode(w *writer) {
	w.i32(m.Version)
	w.i32(int32(len(m.Groups)))
	for i := range m.Groups {
		w.i32(int32(len(m.Groups[i].Joints)))
		for _, j := range m.Groups[i].Joints {
			w.i16(j)
		}
	}
}
