package layout

import "math"

// affine is a 2x3 matrix mapping p to (a*x + c*y + tx, b*x + d*y + ty).
type affine struct {
	a, b, c, d, tx, ty float64
}

func identity() affine {
	return affine{a: 1, d: 1}
}

func translation(o Point) affine {
	return affine{a: 1, d: 1, tx: o.X, ty: o.Y}
}

func (m affine) apply(p Point) Point {
	return Point{
		X: m.a*p.X + m.c*p.Y + m.tx,
		Y: m.b*p.X + m.d*p.Y + m.ty,
	}
}

// then returns the transform that applies m first and next afterwards.
func (m affine) then(next affine) affine {
	return affine{
		a:  next.a*m.a + next.c*m.b,
		b:  next.b*m.a + next.d*m.b,
		c:  next.a*m.c + next.c*m.d,
		d:  next.b*m.c + next.d*m.d,
		tx: next.a*m.tx + next.c*m.ty + next.tx,
		ty: next.b*m.tx + next.d*m.ty + next.ty,
	}
}

// transform returns the reference's placement: x reflection, magnification,
// rotation and finally translation to origin+offset.
func (r *Reference) transform(offset Point) affine {
	mag := r.Magnification
	if mag == 0 {
		mag = 1
	}
	sy := mag
	if r.XReflection {
		sy = -mag
	}
	cos, sin := math.Cos(r.Rotation), math.Sin(r.Rotation)
	o := r.Origin.Add(offset)
	return affine{
		a:  cos * mag,
		b:  sin * mag,
		c:  -sin * sy,
		d:  cos * sy,
		tx: o.X,
		ty: o.Y,
	}
}

// instances returns one transform per copy of the reference.
func (r *Reference) instances() []affine {
	if r.Repetition.Type == RepetitionNone {
		return []affine{r.transform(Point{})}
	}
	offsets := r.Repetition.GetOffsets()
	out := make([]affine, len(offsets))
	for i, off := range offsets {
		out[i] = r.transform(off)
	}
	return out
}

func transformPoints(m affine, pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = m.apply(p)
	}
	return out
}
