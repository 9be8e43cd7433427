package drs

import (
	"fmt"
	"sort"
)

const (
	headerSize    = 20
	nodeInfoSize  = 32
	// DefaultRootName is the name given to the hierarchy root of newly
	// built files. Decoded files keep whatever name they carried.
	DefaultRootName = "root_node"
)

// RootInfo is slot 0 of the node information table. The four trailing
// words are fixed except for the entry count.
type RootInfo struct {
	Zeroes [16]byte
	NegOne int32
	One    int32
	Count  int32
	Zero   int32
}

// NodeInfo is one non-root entry of the node information table: the block
// magic, an identifier, the absolute payload range, and 16 spacer bytes.
// Block holds the decoded payload.
type NodeInfo struct {
	Magic      int32
	Identifier int32
	Offset     int32
	Size       int32
	Spacer     [16]byte
	Block      Block
}

// TypeName returns the class name for the entry, preferring the decoded
// block's own name so raw blocks keep the name they were stored under.
func (n *NodeInfo) TypeName() string {
	if n.Block != nil {
		return n.Block.TypeName()
	}
	return TypeNameFor(n.Magic)
}

// RootNode is the hierarchy root entry.
type RootNode struct {
	Identifier int32
	Unknown    int32
	Name       string
}

// HierNode is one non-root hierarchy entry: a 1-based index into the node
// information table plus the class name.
type HierNode struct {
	InfoIndex int32
	Name      string
	Zero      int32
}

// File is one decoded model container.
type File struct {
	ModelCount int32
	RootInfo   RootInfo
	Root       RootNode
	// Infos holds the non-root information entries in table order, so
	// HierNode.InfoIndex i refers to Infos[i-1].
	Infos []NodeInfo
	// Nodes holds the non-root hierarchy entries in stored order.
	Nodes []HierNode
	// Archetype is the write-order template, when one matches the block
	// set. It is inferred on decode and fixed by NewFile.
	Archetype Archetype
}

// DecodeWarning records a payload that failed its typed decode during
// tolerant decoding and was kept as a RawBlock instead.
type DecodeWarning struct {
	TypeName string
	Offset   int32
	Err      error
}

func (w DecodeWarning) String() string {
	return fmt.Sprintf("%s at offset %d: %v", w.TypeName, w.Offset, w.Err)
}

// Decode parses a container strictly: any malformed payload fails the
// whole decode. Unknown magics are not an error; they decode as RawBlocks.
func Decode(data []byte) (*File, error) {
	f, warnings, err := decode(data, false)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		// strict mode converts the first warning into a failure
		w := warnings[0]
		return nil, fmt.Errorf("block %s: %w", w.TypeName, w.Err)
	}
	return f, nil
}

// DecodeTolerant parses a container, keeping payloads that fail their
// typed decode as RawBlocks and reporting them as warnings. Structural
// failures in the header or node tables still return an error.
func DecodeTolerant(data []byte) (*File, []DecodeWarning, error) {
	return decode(data, true)
}

func decode(data []byte, tolerant bool) (*File, []DecodeWarning, error) {
	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("header: %w", ErrTruncatedData)
	}
	r := newReader(data)
	magic := r.i32()
	if magic != HeaderMagic {
		return nil, nil, fmt.Errorf("%w: header magic %d", ErrSignatureMismatch, magic)
	}
	f := &File{}
	f.ModelCount = r.i32()
	infoOffset := r.i32()
	hierOffset := r.i32()
	nodeCount := r.u32()
	if nodeCount < 1 {
		return nil, nil, fmt.Errorf("%w: node count %d", ErrSignatureMismatch, nodeCount)
	}

	infoEnd := int64(infoOffset) + int64(nodeCount)*nodeInfoSize
	if infoOffset < headerSize || infoEnd > int64(len(data)) {
		return nil, nil, fmt.Errorf("node information table: %w", ErrIndexOutOfRange)
	}
	if hierOffset < headerSize || int(hierOffset) > len(data) {
		return nil, nil, fmt.Errorf("node hierarchy table: %w", ErrIndexOutOfRange)
	}

	// Node information table.
	ir := newReader(data)
	ir.off = int(infoOffset)
	copy(f.RootInfo.Zeroes[:], ir.take(16))
	f.RootInfo.NegOne = ir.i32()
	f.RootInfo.One = ir.i32()
	f.RootInfo.Count = ir.i32()
	f.RootInfo.Zero = ir.i32()
	f.Infos = make([]NodeInfo, nodeCount-1)
	for i := range f.Infos {
		ni := &f.Infos[i]
		ni.Magic = ir.i32()
		ni.Identifier = ir.i32()
		ni.Offset = ir.i32()
		ni.Size = ir.i32()
		copy(ni.Spacer[:], ir.take(16))
	}
	if ir.err != nil {
		return nil, nil, fmt.Errorf("node information table: %w", ir.err)
	}

	// Node hierarchy table.
	hr := newReader(data)
	hr.off = int(hierOffset)
	f.Root.Identifier = hr.i32()
	f.Root.Unknown = hr.i32()
	f.Root.Name = hr.lenString()
	f.Nodes = make([]HierNode, nodeCount-1)
	for i := range f.Nodes {
		n := &f.Nodes[i]
		n.InfoIndex = hr.i32()
		n.Name = hr.lenString()
		n.Zero = hr.i32()
		if n.InfoIndex < 1 || n.InfoIndex >= int32(nodeCount) {
			return nil, nil, fmt.Errorf("hierarchy node %q: info index %d: %w", n.Name, n.InfoIndex, ErrIndexOutOfRange)
		}
	}
	if hr.err != nil {
		return nil, nil, fmt.Errorf("node hierarchy table: %w", hr.err)
	}

	// Range checks run over the whole table before any payload decode, so
	// a bad table never yields a half-decoded file.
	if err := checkRanges(f.Infos, int32(len(data)), infoOffset, int32(infoEnd), hierOffset, int32(hr.off)); err != nil {
		return nil, nil, err
	}

	var warnings []DecodeWarning
	for i := range f.Infos {
		ni := &f.Infos[i]
		payload := data[ni.Offset : ni.Offset+ni.Size]
		name := nodeNameFor(f.Nodes, int32(i+1), ni.Magic)

		block := NewBlock(ni.Magic)
		if block == nil {
			block = &RawBlock{RawMagic: ni.Magic, Name: name}
		}
		br := newReader(payload)
		err := block.decode(br)
		if err == nil && br.remaining() != 0 {
			err = fmt.Errorf("%w: %d bytes after payload", ErrTrailingData, br.remaining())
		}
		if err != nil {
			if !tolerant {
				return nil, nil, fmt.Errorf("block %s at offset %d: %w", name, ni.Offset, err)
			}
			warnings = append(warnings, DecodeWarning{TypeName: name, Offset: ni.Offset, Err: err})
			raw := &RawBlock{RawMagic: ni.Magic, Name: name}
			rr := newReader(payload)
			raw.decode(rr)
			block = raw
		}
		ni.Block = block
	}

	if a, ok := InferArchetype(f.typeNames()); ok {
		f.Archetype = a
	}
	return f, warnings, nil
}

// nodeNameFor finds the hierarchy name for an info slot, falling back to
// the registry name for the magic.
func nodeNameFor(nodes []HierNode, infoIndex int32, magic int32) string {
	for i := range nodes {
		if nodes[i].InfoIndex == infoIndex {
			return nodes[i].Name
		}
	}
	if name := TypeNameFor(magic); name != "" {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", magic)
}

// checkRanges verifies every payload range lies inside the file, outside
// the header and both node tables, and that no two payloads overlap.
func checkRanges(infos []NodeInfo, fileSize, infoStart, infoEnd, hierStart, hierEnd int32) error {
	type span struct {
		start, end int32
		name       string
	}
	spans := []span{
		{0, headerSize, "header"},
		{infoStart, infoEnd, "node information table"},
		{hierStart, hierEnd, "node hierarchy table"},
	}
	for i := range infos {
		ni := &infos[i]
		if ni.Size < 0 || ni.Offset < 0 || int64(ni.Offset)+int64(ni.Size) > int64(fileSize) {
			return fmt.Errorf("%s payload range [%d,%d): %w",
				ni.TypeName(), ni.Offset, ni.Offset+ni.Size, ErrIndexOutOfRange)
		}
		if ni.Size == 0 {
			continue
		}
		for _, s := range spans {
			if ni.Offset < s.end && s.start < ni.Offset+ni.Size {
				return fmt.Errorf("%s payload overlaps %s: %w", ni.TypeName(), s.name, ErrNodeTableOverlap)
			}
		}
		spans = append(spans, span{ni.Offset, ni.Offset + ni.Size, ni.TypeName()})
	}
	return nil
}

func (f *File) typeNames() []string {
	names := make([]string, 0, len(f.Infos))
	for i := range f.Infos {
		names = append(names, f.Infos[i].TypeName())
	}
	return names
}

// Encode serializes the container. Payloads are emitted in the archetype's
// write order when one is set (or can be inferred); otherwise they keep
// the relative order of their decoded offsets. Offsets and sizes in the
// node information table are recomputed from the encoded payloads.
func (f *File) Encode() ([]byte, error) {
	if len(f.Infos) == 0 {
		return nil, fmt.Errorf("container has no blocks: %w", ErrUnknownArchetype)
	}
	for i := range f.Infos {
		if f.Infos[i].Block == nil {
			return nil, fmt.Errorf("info slot %d has no block", i+1)
		}
	}

	// Encode payloads first so the header offsets are exact.
	payloads := make([][]byte, len(f.Infos))
	for i := range f.Infos {
		w := &writer{}
		f.Infos[i].Block.encode(w)
		payloads[i] = w.bytes()
	}

	order := f.payloadOrder()

	nodeCount := len(f.Infos) + 1
	cursor := int32(headerSize)
	for _, idx := range order {
		f.Infos[idx].Offset = cursor
		f.Infos[idx].Size = int32(len(payloads[idx]))
		cursor += f.Infos[idx].Size
	}
	infoOffset := cursor
	hierOffset := infoOffset + int32(nodeCount)*nodeInfoSize

	w := &writer{}
	w.i32(HeaderMagic)
	w.i32(f.ModelCount)
	w.i32(infoOffset)
	w.i32(hierOffset)
	w.u32(uint32(nodeCount))

	for _, idx := range order {
		w.bytesN(payloads[idx])
	}

	w.bytesN(f.RootInfo.Zeroes[:])
	w.i32(f.RootInfo.NegOne)
	w.i32(f.RootInfo.One)
	w.i32(int32(len(f.Infos)))
	w.i32(f.RootInfo.Zero)
	for i := range f.Infos {
		ni := &f.Infos[i]
		w.i32(ni.Magic)
		w.i32(ni.Identifier)
		w.i32(ni.Offset)
		w.i32(ni.Size)
		w.bytesN(ni.Spacer[:])
	}

	w.i32(f.Root.Identifier)
	w.i32(f.Root.Unknown)
	w.lenString(f.Root.Name)
	for i := range f.Nodes {
		n := &f.Nodes[i]
		w.i32(n.InfoIndex)
		w.lenString(n.Name)
		w.i32(n.Zero)
	}
	return w.bytes(), nil
}

// payloadOrder returns the info slice indices in emission order.
func (f *File) payloadOrder() []int {
	archetype := f.Archetype
	if archetype == "" {
		if a, ok := InferArchetype(f.typeNames()); ok {
			archetype = a
		}
	}
	byName := make(map[string]int, len(f.Infos))
	for i := range f.Infos {
		byName[f.Infos[i].TypeName()] = i
	}
	if names := WriteOrderFor(archetype); names != nil {
		order := make([]int, 0, len(f.Infos))
		seen := make(map[int]bool, len(f.Infos))
		for _, name := range names {
			if idx, ok := byName[name]; ok && !seen[idx] {
				order = append(order, idx)
				seen[idx] = true
			}
		}
		// blocks outside the template keep table order at the end
		for i := range f.Infos {
			if !seen[i] {
				order = append(order, i)
			}
		}
		return order
	}
	order := make([]int, len(f.Infos))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return f.Infos[order[a]].Offset < f.Infos[order[b]].Offset
	})
	return order
}

// NewFile builds an empty container for the given archetype, with one
// zero-valued block per template slot.
func NewFile(a Archetype) (*File, error) {
	layout, ok := archetypes[a]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, a)
	}
	names := make([]string, 0, len(layout.infoIndices))
	for name := range layout.infoIndices {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return layout.infoIndices[names[i]] < layout.infoIndices[names[j]]
	})

	f := &File{
		ModelCount: 1,
		RootInfo:   RootInfo{NegOne: -1, One: 1, Count: int32(len(names))},
		Root:       RootNode{Name: DefaultRootName},
		Infos:      make([]NodeInfo, len(names)),
		Nodes:      make([]HierNode, len(names)),
		Archetype:  a,
	}
	for _, name := range names {
		slot := layout.infoIndices[name]
		magic := MagicFor(name)
		f.Infos[slot-1] = NodeInfo{
			Magic:      magic,
			Identifier: int32(slot),
			Block:      NewBlock(magic),
		}
		f.Nodes[slot-1] = HierNode{InfoIndex: int32(slot), Name: name}
	}
	return f, nil
}

// BlockByMagic returns the decoded block stored under the given magic, or
// nil if the container has no such entry.
func (f *File) BlockByMagic(magic int32) Block {
	for i := range f.Infos {
		if f.Infos[i].Magic == magic {
			return f.Infos[i].Block
		}
	}
	return nil
}

// SetBlock replaces the payload stored under the block's magic. The entry
// must already exist in the node table.
func (f *File) SetBlock(b Block) error {
	for i := range f.Infos {
		if f.Infos[i].Magic == b.Magic() {
			f.Infos[i].Block = b
			return nil
		}
	}
	return fmt.Errorf("no node table entry for %s: %w", b.TypeName(), ErrIndexOutOfRange)
}

// Typed accessors. Each returns nil when the container has no such block
// or the entry decoded as a RawBlock.

func (f *File) GeoMesh() *CGeoMesh {
	b, _ := f.BlockByMagic(MagicCGeoMesh).(*CGeoMesh)
	return b
}

func (f *File) MeshFile() *CDspMeshFile {
	b, _ := f.BlockByMagic(MagicCDspMeshFile).(*CDspMeshFile)
	return b
}

func (f *File) Skeleton() *CSkSkeleton {
	b, _ := f.BlockByMagic(MagicCSkSkeleton).(*CSkSkeleton)
	return b
}

func (f *File) SkinInfo() *CSkSkinInfo {
	b, _ := f.BlockByMagic(MagicCSkSkinInfo).(*CSkSkinInfo)
	return b
}

func (f *File) JointMap() *CDspJointMap {
	b, _ := f.BlockByMagic(MagicCDspJointMap).(*CDspJointMap)
	return b
}

func (f *File) OBBTree() *CGeoOBBTree {
	b, _ := f.BlockByMagic(MagicCGeoOBBTree).(*CGeoOBBTree)
	return b
}

func (f *File) LocatorList() *CDrwLocatorList {
	b, _ := f.BlockByMagic(MagicCDrwLocatorList).(*CDrwLocatorList)
	return b
}

func (f *File) Collision() *CollisionShape {
	b, _ := f.BlockByMagic(MagicCollisionShape).(*CollisionShape)
	return b
}

func (f *File) AnimationSet() *AnimationSet {
	b, _ := f.BlockByMagic(MagicAnimationSet).(*AnimationSet)
	return b
}

func (f *File) AnimationTimings() *AnimationTimings {
	b, _ := f.BlockByMagic(MagicAnimationTimings).(*AnimationTimings)
	return b
}

func (f *File) EffectSet() *EffectSet {
	b, _ := f.BlockByMagic(MagicEffectSet).(*EffectSet)
	return b
}

func (f *File) ResourceMeta() *DrwResourceMeta {
	b, _ := f.BlockByMagic(MagicDrwResourceMeta).(*DrwResourceMeta)
	return b
}
