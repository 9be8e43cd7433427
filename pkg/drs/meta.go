package drs

// DrwResourceMeta is a degenerate payload kept for archive-structure
// compatibility: two integers and a hash string.
type DrwResourceMeta struct {
	Version int32
	Unknown int32
	Hash    string
}

func (*DrwResourceMeta) Magic() int32     { return MagicDrwResourceMeta }
func (*DrwResourceMeta) TypeName() string { return "DrwResourceMeta" }

func (m *DrwResourceMeta) decode(r *reader) error {
	m.Version = r.i32()
	m.Unknown = r.i32()
	m.Hash = r.lenString()
	return r.err
}

func (m *DrwResourceMeta) encode(w *writer) {
	w.i32(m.Version)
	w.i32(m.Unknown)
	w.lenString(m.Hash)
}

// CGeoPrimitiveContainer is a zero-length marker block. It still occupies a
// node table slot and an offset in the payload cursor.
type CGeoPrimitiveContainer struct{}

func (*CGeoPrimitiveContainer) Magic() int32     { return MagicCGeoPrimitiveContainer }
func (*CGeoPrimitiveContainer) TypeName() string { return "CGeoPrimitiveContainer" }

func (*CGeoPrimitiveContainer) decode(r *reader) error { return r.err }
func (*CGeoPrimitiveContainer) encode(w *writer)       {}

// RawBlock preserves a payload whose magic the codec does not recognize, or
// whose decode failed under DecodeTolerant. The byte range is retained
// verbatim so re-encoding keeps the block intact.
type RawBlock struct {
	RawMagic int32
	Name     string // class name from the hierarchy table, may be empty
	Data     []byte
}

func (b *RawBlock) Magic() int32     { return b.RawMagic }
func (b *RawBlock) TypeName() string { return b.Name }

func (b *RawBlock) decode(r *reader) error {
	b.Data = r.bytesN(r.remaining())
	return r.err
}

func (b *RawBlock) encode(w *writer) {
	w.bytesN(b.Data)
}
