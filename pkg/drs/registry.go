package drs

// Block magic values as they appear in the node information table.
const (
	MagicCDspJointMap           int32 = -1340635850
	MagicCGeoMesh               int32 = 100449016
	MagicCGeoOBBTree            int32 = -933519637
	MagicCSkSkinInfo            int32 = -761174227
	MagicCDspMeshFile           int32 = -1900395636
	MagicDrwResourceMeta        int32 = -183033339
	MagicCollisionShape         int32 = 268607026
	MagicCGeoPrimitiveContainer int32 = 1396683476
	MagicCSkSkeleton            int32 = -2110567991
	MagicCDrwLocatorList        int32 = 735146985
	MagicAnimationSet           int32 = -475734043
	MagicAnimationTimings       int32 = -1403092629
	MagicEffectSet              int32 = 688490554
)

// Container header magic, first four bytes of every DRS/BMS/BMG file.
const HeaderMagic int32 = -981667554

// Internal payload signatures carried inside some block payloads.
const (
	meshFileSignature    int32 = 1314189598
	obbTreeSignature     int32 = 1845540702
	skeletonSignature    int32 = 1558308612
	locatorListSignature int32 = 281702437
	animTimingsSignature int32 = 1650881127
)

// Block is one typed, magic-tagged payload referenced by a node table entry.
type Block interface {
	// Magic returns the node-table magic identifying the block type.
	Magic() int32
	// TypeName returns the class name stored in the node hierarchy table.
	TypeName() string

	decode(r *reader) error
	encode(w *writer)
}

type blockType struct {
	name string
	new  func() Block
}

// blockTypes maps node magics to codecs. Magics not listed here decode as
// opaque RawBlocks so partial tooling can still round-trip the file.
var blockTypes = map[int32]blockType{
	MagicCDspJointMap:           {"CDspJointMap", func() Block { return &CDspJointMap{} }},
	MagicCGeoMesh:               {"CGeoMesh", func() Block { return &CGeoMesh{} }},
	MagicCGeoOBBTree:            {"CGeoOBBTree", func() Block { return &CGeoOBBTree{} }},
	MagicCSkSkinInfo:            {"CSkSkinInfo", func() Block { return &CSkSkinInfo{} }},
	MagicCDspMeshFile:           {"CDspMeshFile", func() Block { return &CDspMeshFile{} }},
	MagicDrwResourceMeta:        {"DrwResourceMeta", func() Block { return &DrwResourceMeta{} }},
	MagicCollisionShape:         {"collisionShape", func() Block { return &CollisionShape{} }},
	MagicCGeoPrimitiveContainer: {"CGeoPrimitiveContainer", func() Block { return &CGeoPrimitiveContainer{} }},
	MagicCSkSkeleton:            {"CSkSkeleton", func() Block { return &CSkSkeleton{} }},
	MagicCDrwLocatorList:        {"CDrwLocatorList", func() Block { return &CDrwLocatorList{} }},
	MagicAnimationSet:           {"AnimationSet", func() Block { return &AnimationSet{} }},
	MagicAnimationTimings:       {"AnimationTimings", func() Block { return &AnimationTimings{} }},
	MagicEffectSet:              {"EffectSet", func() Block { return &EffectSet{} }},
}

// NewBlock returns an empty block for the given magic, or nil if the magic
// is not a known block type.
func NewBlock(magic int32) Block {
	bt, ok := blockTypes[magic]
	if !ok {
		return nil
	}
	return bt.new()
}

// TypeNameFor returns the class name for a known magic, or "" otherwise.
func TypeNameFor(magic int32) string {
	return blockTypes[magic].name
}

// MagicFor returns the magic for a class name, or 0 if unknown.
func MagicFor(typeName string) int32 {
	for magic, bt := range blockTypes {
		if bt.name == typeName {
			return magic
		}
	}
	return 0
}

// Archetype names one of the fixed write-order templates a model conforms
// to. The archetype fixes both the info-table slot of every block type and
// the order block payloads appear in the encoded file.
type Archetype string

const (
	AnimatedUnit              Archetype = "AnimatedUnit"
	StaticObjectCollision     Archetype = "StaticObjectCollision"
	StaticObjectNoCollision   Archetype = "StaticObjectNoCollision"
	AnimatedObjectNoCollision Archetype = "AnimatedObjectNoCollision"
	AnimatedObjectCollision   Archetype = "AnimatedObjectCollision"
)

type archetypeLayout struct {
	// infoIndices maps class name to the slot its NodeInformation occupies
	// in the node information table (slot 0 is the root entry).
	infoIndices map[string]int
	// writeOrder lists class names in payload emission order.
	writeOrder []string
}

// Adding an archetype is a pure data addition here; the container codec
// never branches on the archetype beyond these tables.
var archetypes = map[Archetype]archetypeLayout{
	AnimatedUnit: {
		infoIndices: map[string]int{
			"CGeoMesh": 1, "EffectSet": 2, "CDrwLocatorList": 3, "CSkSkeleton": 4,
			"CDspMeshFile": 5, "AnimationTimings": 6, "CDspJointMap": 7, "CGeoOBBTree": 8,
			"CSkSkinInfo": 9, "AnimationSet": 10, "DrwResourceMeta": 11,
		},
		writeOrder: []string{
			"CDspJointMap", "CSkSkinInfo", "CSkSkeleton", "CDspMeshFile",
			"CDrwLocatorList", "DrwResourceMeta", "CGeoOBBTree", "CGeoMesh",
			"AnimationSet", "AnimationTimings", "EffectSet",
		},
	},
	StaticObjectCollision: {
		infoIndices: map[string]int{
			"CGeoMesh": 1, "CGeoPrimitiveContainer": 2, "CDspMeshFile": 3,
			"CDspJointMap": 4, "CGeoOBBTree": 5, "DrwResourceMeta": 6, "collisionShape": 7,
		},
		writeOrder: []string{
			"CDspJointMap", "CDspMeshFile", "DrwResourceMeta",
			"CGeoPrimitiveContainer", "CGeoOBBTree", "CGeoMesh", "collisionShape",
		},
	},
	StaticObjectNoCollision: {
		infoIndices: map[string]int{
			"CGeoMesh": 1, "CDspMeshFile": 2, "CDspJointMap": 3,
			"CGeoOBBTree": 4, "DrwResourceMeta": 5,
		},
		writeOrder: []string{
			"CDspJointMap", "CDspMeshFile", "DrwResourceMeta", "CGeoOBBTree", "CGeoMesh",
		},
	},
	AnimatedObjectNoCollision: {
		infoIndices: map[string]int{
			"CGeoMesh": 1, "CSkSkeleton": 2, "CDspMeshFile": 3, "AnimationTimings": 4,
			"CDspJointMap": 5, "CGeoOBBTree": 6, "CSkSkinInfo": 7, "AnimationSet": 8,
			"DrwResourceMeta": 9,
		},
		writeOrder: []string{
			"CDspJointMap", "CSkSkinInfo", "CSkSkeleton", "CDspMeshFile",
			"DrwResourceMeta", "CGeoOBBTree", "CGeoMesh", "AnimationSet", "AnimationTimings",
		},
	},
	AnimatedObjectCollision: {
		infoIndices: map[string]int{
			"CGeoMesh": 1, "CGeoPrimitiveContainer": 2, "CSkSkeleton": 3,
			"CDspMeshFile": 4, "AnimationTimings": 5, "CDspJointMap": 6, "CGeoOBBTree": 7,
			"CSkSkinInfo": 8, "AnimationSet": 9, "DrwResourceMeta": 10, "collisionShape": 11,
		},
		writeOrder: []string{
			"CDspJointMap", "CSkSkinInfo", "CSkSkeleton", "CDspMeshFile",
			"DrwResourceMeta", "CGeoPrimitiveContainer", "CGeoOBBTree", "CGeoMesh",
			"AnimationSet", "AnimationTimings", "collisionShape",
		},
	},
}

// WriteOrderFor returns the payload emission order for an archetype, or nil
// if the archetype is unknown.
func WriteOrderFor(a Archetype) []string {
	layout, ok := archetypes[a]
	if !ok {
		return nil
	}
	out := make([]string, len(layout.writeOrder))
	copy(out, layout.writeOrder)
	return out
}

// Archetypes lists all known archetype names.
func Archetypes() []Archetype {
	return []Archetype{
		AnimatedUnit, StaticObjectCollision, StaticObjectNoCollision,
		AnimatedObjectNoCollision, AnimatedObjectCollision,
	}
}

// InferArchetype matches a set of class names against the known archetype
// templates. It returns false when no template has exactly this block set.
func InferArchetype(typeNames []string) (Archetype, bool) {
	set := make(map[string]bool, len(typeNames))
	for _, n := range typeNames {
		set[n] = true
	}
	for _, a := range Archetypes() {
		layout := archetypes[a]
		if len(layout.infoIndices) != len(set) {
			continue
		}
		match := true
		for name := range layout.infoIndices {
			if !set[name] {
				match = false
				break
			}
		}
		if match {
			return a, true
		}
	}
	return "", false
}
