package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Direction components smaller than this are treated as parallel to a slab.
const parallelEpsilon float32 = 1e-8

// AABBox is an axis-aligned bounding box. The zero-extent sentinel
// (Minimum = +Inf, Maximum = -Inf) marks an empty box.
type AABBox struct {
	Minimum mgl32.Vec3
	Maximum mgl32.Vec3
}

// NewAABBox returns a box spanning the two points in any order.
func NewAABBox(a, b mgl32.Vec3) AABBox {
	return AABBox{
		Minimum: mgl32.Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])},
		Maximum: mgl32.Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])},
	}
}

// EmptyAABBox returns the empty sentinel box.
func EmptyAABBox() AABBox {
	inf := math32.Inf(1)
	return AABBox{
		Minimum: mgl32.Vec3{inf, inf, inf},
		Maximum: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsValid reports whether every minimum component lies strictly below the
// matching maximum component.
func (b AABBox) IsValid() bool {
	return b.Minimum[0] < b.Maximum[0] && b.Minimum[1] < b.Maximum[1] && b.Minimum[2] < b.Maximum[2]
}

// IsEmpty reports whether the box contains no point at all.
func (b AABBox) IsEmpty() bool {
	return b.Maximum[0] < b.Minimum[0] || b.Maximum[1] < b.Minimum[1] || b.Maximum[2] < b.Minimum[2]
}

func (b AABBox) Diagonal() mgl32.Vec3 {
	return b.Maximum.Sub(b.Minimum)
}

// Centroid returns the center point of the box.
func (b AABBox) Centroid() mgl32.Vec3 {
	return b.Minimum.Add(b.Maximum).Mul(0.5)
}

// UnionPoint grows the box to include p.
func (b AABBox) UnionPoint(p mgl32.Vec3) AABBox {
	return AABBox{
		Minimum: mgl32.Vec3{math32.Min(b.Minimum[0], p[0]), math32.Min(b.Minimum[1], p[1]), math32.Min(b.Minimum[2], p[2])},
		Maximum: mgl32.Vec3{math32.Max(b.Maximum[0], p[0]), math32.Max(b.Maximum[1], p[1]), math32.Max(b.Maximum[2], p[2])},
	}
}

// Union returns the smallest box enclosing both boxes.
func (b AABBox) Union(o AABBox) AABBox {
	return AABBox{
		Minimum: mgl32.Vec3{math32.Min(b.Minimum[0], o.Minimum[0]), math32.Min(b.Minimum[1], o.Minimum[1]), math32.Min(b.Minimum[2], o.Minimum[2])},
		Maximum: mgl32.Vec3{math32.Max(b.Maximum[0], o.Maximum[0]), math32.Max(b.Maximum[1], o.Maximum[1]), math32.Max(b.Maximum[2], o.Maximum[2])},
	}
}

// Contains reports whether p lies inside or on the box.
func (b AABBox) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Minimum[0] && p[0] <= b.Maximum[0] &&
		p[1] >= b.Minimum[1] && p[1] <= b.Maximum[1] &&
		p[2] >= b.Minimum[2] && p[2] <= b.Maximum[2]
}

// Overlaps reports whether the two boxes share at least one point.
func (b AABBox) Overlaps(o AABBox) bool {
	return b.Minimum[0] <= o.Maximum[0] && b.Maximum[0] >= o.Minimum[0] &&
		b.Minimum[1] <= o.Maximum[1] && b.Maximum[1] >= o.Minimum[1] &&
		b.Minimum[2] <= o.Maximum[2] && b.Maximum[2] >= o.Minimum[2]
}

// MaxExtent returns the index of the longest axis.
func (b AABBox) MaxExtent() int {
	d := b.Diagonal()
	if d[0] > d[1] && d[0] > d[2] {
		return 0
	}
	if d[1] > d[2] {
		return 1
	}
	return 2
}

func (b AABBox) SurfaceArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	d := b.Diagonal()
	return 2 * (d[0]*d[1] + d[0]*d[2] + d[1]*d[2])
}

// Offset maps p into box-relative coordinates where Minimum is 0 and Maximum is 1.
// Degenerate axes map to 0.
func (b AABBox) Offset(p mgl32.Vec3) mgl32.Vec3 {
	o := p.Sub(b.Minimum)
	for i := 0; i < 3; i++ {
		if b.Maximum[i] > b.Minimum[i] {
			o[i] /= b.Maximum[i] - b.Minimum[i]
		} else {
			o[i] = 0
		}
	}
	return o
}

// Transform returns the world box enclosing all 8 corners of b under m.
func (b AABBox) Transform(m mgl32.Mat4) AABBox {
	if b.IsEmpty() {
		return b
	}
	minB, maxB := b.Minimum, b.Maximum
	corners := [8]mgl32.Vec3{
		{minB.X(), minB.Y(), minB.Z()},
		{maxB.X(), minB.Y(), minB.Z()},
		{minB.X(), maxB.Y(), minB.Z()},
		{maxB.X(), maxB.Y(), minB.Z()},
		{minB.X(), minB.Y(), maxB.Z()},
		{maxB.X(), minB.Y(), maxB.Z()},
		{minB.X(), maxB.Y(), maxB.Z()},
		{maxB.X(), maxB.Y(), maxB.Z()},
	}

	out := EmptyAABBox()
	for _, c := range corners {
		out = out.UnionPoint(m.Mul4x1(c.Vec4(1.0)).Vec3())
	}
	return out
}

// IntersectRay runs the slab test against r. It returns the parametric entry
// distance, which is negative when the origin is inside the box. Boxes lying
// entirely behind the origin or starting beyond r.TMax are misses.
func (b AABBox) IntersectRay(r Ray) (float32, bool) {
	if b.IsEmpty() {
		return 0, false
	}

	tmin := math32.Inf(-1)
	tmax := math32.Inf(1)

	for i := 0; i < 3; i++ {
		d := r.Direction[i]
		o := r.Origin[i]
		if math32.Abs(d) < parallelEpsilon {
			// Parallel: the infinite 1/d either admits the whole slab or nothing.
			if o < b.Minimum[i] || o > b.Maximum[i] {
				return 0, false
			}
			continue
		}

		inv := 1 / d
		t0 := (b.Minimum[i] - o) * inv
		t1 := (b.Maximum[i] - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		return 0, false
	}
	if tmin > r.Limit() {
		return 0, false
	}
	return tmin, true
}

// Intersects reports whether r hits the box.
func (b AABBox) Intersects(r Ray) bool {
	_, ok := b.IntersectRay(r)
	return ok
}
