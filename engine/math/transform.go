package math

func NewPlacement(origin Vec2, rotation float32, xReflection bool) Placement {
	return Placement{
		Origin:      origin,
		Rotation:    rotation,
		XReflection: xReflection,
	}
}

// Matrix composes scale(1, ±1, 1), the Z rotation and the translation into
// one matrix, the same composition the viewer applies per instance.
func (p Placement) Matrix() Mat4 {
	scale := NewVec3One()
	if p.XReflection {
		scale.Y = -1
	}
	s := NewMat4Scale(scale)
	r := NewMat4EulerZ(p.Rotation)
	t := NewMat4Translation(NewVec3(p.Origin.X, p.Origin.Y, 0))
	return s.Mul(r).Mul(t)
}

// Apply maps a point of the child cell into the parent cell.
func (p Placement) Apply(point Vec2) Vec2 {
	v := NewVec3(point.X, point.Y, 0).Transform(p.Matrix())
	return Vec2{v.X, v.Y}
}
