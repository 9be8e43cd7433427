package drs

// CGeoAABox is an axis-aligned box given by two corners in the shape's
// local frame.
type CGeoAABox struct {
	LowerLeft  Vector3
	UpperRight Vector3
}

// BoxShape is an oriented collision box: a transform plus local AABB.
type BoxShape struct {
	CoordSystem CMatCoordinateSystem
	Box         CGeoAABox
}

// SphereShape is a collision sphere.
type SphereShape struct {
	CoordSystem CMatCoordinateSystem
	Radius      float32
	Center      Vector3
}

// CylinderShape is a collision cylinder.
type CylinderShape struct {
	CoordSystem CMatCoordinateSystem
	Center      Vector3
	Height      float32
	Radius      float32
}

// CollisionShape holds three independent counted arrays of primitive
// shapes. There is no shared discriminant; consumers branch on the array.
type CollisionShape struct {
	Version   uint8
	Boxes     []BoxShape
	Spheres   []SphereShape
	Cylinders []CylinderShape
}

func (*CollisionShape) Magic() int32     { return MagicCollisionShape }
func (*CollisionShape) TypeName() string { return "collisionShape" }

func (c *CollisionShape) decode(r *reader) error {
	c.Version = r.u8()

	boxCount := r.u32()
	if r.err != nil {
		return r.err
	}
	if int(boxCount)*72 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	c.Boxes = make([]BoxShape, boxCount)
	for i := range c.Boxes {
		c.Boxes[i].CoordSystem = r.coordSystem()
		c.Boxes[i].Box.LowerLeft = r.vec3()
		c.Boxes[i].Box.UpperRight = r.vec3()
	}

	sphereCount := r.u32()
	if r.err != nil {
		return r.err
	}
	if int(sphereCount)*64 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	c.Spheres = make([]SphereShape, sphereCount)
	for i := range c.Spheres {
		c.Spheres[i].CoordSystem = r.coordSystem()
		c.Spheres[i].Radius = r.f32()
		c.Spheres[i].Center = r.vec3()
	}

	cylinderCount := r.u32()
	if r.err != nil {
		return r.err
	}
	if int(cylinderCount)*68 > r.remaining() {
		r.fail(ErrTruncatedData)
		return r.err
	}
	c.Cylinders = make([]CylinderShape, cylinderCount)
	for i := range c.Cylinders {
		c.Cylinders[i].CoordSystem = r.coordSystem()
		c.Cylinders[i].Center = r.vec3()
		c.Cylinders[i].Height = r.f32()
		c.Cylinders[i].Radius = r.f32()
	}
	return r.err
}

func (c *CollisionShape) encode(w *writer) {
	w.u8(c.Version)
	w.u32(uint32(len(c.Boxes)))
	for i := range c.Boxes {
		w.coordSystem(c.Boxes[i].CoordSystem)
		w.vec3(c.Boxes[i].Box.LowerLeft)
		w.vec3(c.Boxes[i].Box.UpperRight)
	}
	w.u32(uint32(len(c.Spheres)))
	for i := range c.Spheres {
		w.coordSystem(c.Spheres[i].CoordSystem)
		w.f32(c.Spheres[i].Radius)
		w.vec3(c.Spheres[i].Center)
	}
	w.u32(uint32(len(c.Cylinders)))
	for i := range c.Cylinders {
		w.coordSystem(c.Cylinders[i].CoordSystem)
		w.vec3(c.Cylinders[i].Center)
		w.f32(c.Cylinders[i].Height)
		w.f32(c.Cylinders[i].Radius)
	}
}
