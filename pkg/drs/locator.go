package drs

import "fmt"

// LocatorClass is the semantic meaning of a locator attachment point.
// The enum is open: unknown ids decode fine and stringify as Unknown(n).
type LocatorClass int32

const (
	LocatorHealthBar             LocatorClass = 0
	LocatorDestructiblePart      LocatorClass = 1
	LocatorConstruction          LocatorClass = 2
	LocatorTurret                LocatorClass = 3
	LocatorFxbIdle               LocatorClass = 4
	LocatorWheel                 LocatorClass = 5
	LocatorStaticPerm            LocatorClass = 6
	LocatorDynamicPerm           LocatorClass = 8
	LocatorDamageFlameSmall      LocatorClass = 9
	LocatorDamageFlameSmallSmoke LocatorClass = 10
	LocatorDamageFlameLarge      LocatorClass = 11
	LocatorDamageSmokeOnly       LocatorClass = 12
	LocatorDamageFlameHuge       LocatorClass = 13
	LocatorSpellCast             LocatorClass = 14
	LocatorSpellHitAll           LocatorClass = 15
	LocatorHit                   LocatorClass = 16
	LocatorProjectileSpawn       LocatorClass = 29
)

var locatorClassNames = map[LocatorClass]string{
	LocatorHealthBar:             "HealthBar",
	LocatorDestructiblePart:      "DestructiblePart",
	LocatorConstruction:          "Construction",
	LocatorTurret:                "Turret",
	LocatorFxbIdle:               "FxbIdle",
	LocatorWheel:                 "Wheel",
	LocatorStaticPerm:            "StaticPerm",
	LocatorDynamicPerm:           "DynamicPerm",
	LocatorDamageFlameSmall:      "DamageFlameSmall",
	LocatorDamageFlameSmallSmoke: "DamageFlameSmallSmoke",
	LocatorDamageFlameLarge:      "DamageFlameLarge",
	LocatorDamageSmokeOnly:       "DamageSmokeOnly",
	LocatorDamageFlameHuge:       "DamageFlameHuge",
	LocatorSpellCast:             "SpellCast",
	LocatorSpellHitAll:           "SpellHitAll",
	LocatorHit:                   "Hit",
	LocatorProjectileSpawn:       "ProjectileSpawn",
}

// String returns a human-readable class name.
func (c LocatorClass) String() string {
	if name, ok := locatorClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int32(c))
}

// SLocator is one named attachment point: a transform, a semantic class, an
// optional bone attachment (-1 = model root), and an optional file path.
// The trailing Extra integer exists only when the owning list's version is 5.
type SLocator struct {
	CoordSystem CMatCoordinateSystem
	Class       LocatorClass
	BoneID      int32
	FileName    string
	Extra       int32
}

// CDrwLocatorList is the ordered locator collection for a model.
type CDrwLocatorList struct {
	Version  int32
	Locators []SLocator
}

func (*CDrwLocatorList) Magic() int32     { return MagicCDrwLocatorList }
func (*CDrwLocatorList) TypeName() string { return "CDrwLocatorList" }

func (l *CDrwLocatorList) decode(r *reader) error {
	sig := r.i32()
	if r.err != nil {
		return r.err
	}
	if sig != locatorListSignature {
		r.fail(fmt.Errorf("%w: locator list signature %d", ErrSignatureMismatch, sig))
		return r.err
	}
	l.Version = r.i32()
	count := r.i32()
	if r.err != nil {
		return r.err
	}
	if count < 0 || int(count)*60 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	l.Locators = make([]SLocator, count)
	for i := range l.Locators {
		loc := &l.Locators[i]
		loc.CoordSystem = r.coordSystem()
		loc.Class = LocatorClass(r.i32())
		loc.BoneID = r.i32()
		loc.FileName = r.lenString()
		if l.Version == 5 {
			loc.Extra = r.i32()
		}
	}
	return r.err
}

func (l *CDrwLocatorList) encode(w *writer) {
	w.i32(locatorListSignature)
	w.i32(l.Version)
	w.i32(int32(len(l.Locators)))
	for i := range l.Locators {
		loc := &l.Locators[i]
		w.coordSystem(loc.CoordSystem)
		w.i32(int32(loc.Class))
		w.i32(loc.BoneID)
		w.lenString(loc.FileName)
		if l.Version == 5 {
			w.i32(loc.Extra)
		}
	}
}
