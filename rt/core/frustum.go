package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane indices into Frustum.Planes.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Corner indices into Frustum.Corners.
const (
	NearTopLeft = iota
	NearTopRight
	NearBottomLeft
	NearBottomRight
	FarTopLeft
	FarTopRight
	FarBottomLeft
	FarBottomRight
)

// Frustum is a six-plane view volume. Planes are stored as Ax + By + Cz + D
// with unit normals pointing inside.
type Frustum struct {
	Planes  [6]mgl32.Vec4
	Corners [8]mgl32.Vec3

	Position mgl32.Vec3
	Front    mgl32.Vec3
	Right    mgl32.Vec3
	Up       mgl32.Vec3
}

// NewFrustum builds a perspective frustum from a camera basis.
// fovY is the vertical field of view in degrees.
func NewFrustum(position, front, up mgl32.Vec3, fovY, aspect, near, far float32) Frustum {
	front = front.Normalize()
	right := front.Cross(up).Normalize()
	up = right.Cross(front).Normalize()

	tanHalf := math32.Tan(mgl32.DegToRad(fovY) * 0.5)
	nearH, farH := tanHalf*near, tanHalf*far
	nearW, farW := nearH*aspect, farH*aspect

	nc := position.Add(front.Mul(near))
	fc := position.Add(front.Mul(far))

	f := Frustum{
		Position: position,
		Front:    front,
		Right:    right,
		Up:       up,
	}

	f.Corners[NearTopLeft] = nc.Add(up.Mul(nearH)).Sub(right.Mul(nearW))
	f.Corners[NearTopRight] = nc.Add(up.Mul(nearH)).Add(right.Mul(nearW))
	f.Corners[NearBottomLeft] = nc.Sub(up.Mul(nearH)).Sub(right.Mul(nearW))
	f.Corners[NearBottomRight] = nc.Sub(up.Mul(nearH)).Add(right.Mul(nearW))
	f.Corners[FarTopLeft] = fc.Add(up.Mul(farH)).Sub(right.Mul(farW))
	f.Corners[FarTopRight] = fc.Add(up.Mul(farH)).Add(right.Mul(farW))
	f.Corners[FarBottomLeft] = fc.Sub(up.Mul(farH)).Sub(right.Mul(farW))
	f.Corners[FarBottomRight] = fc.Sub(up.Mul(farH)).Add(right.Mul(farW))

	f.Planes[PlaneNear] = planeFromPoint(front, nc)
	f.Planes[PlaneFar] = planeFromPoint(front.Mul(-1), fc)

	toLeft := nc.Sub(right.Mul(nearW)).Sub(position).Normalize()
	f.Planes[PlaneLeft] = planeFromPoint(toLeft.Cross(up), position)

	toRight := nc.Add(right.Mul(nearW)).Sub(position).Normalize()
	f.Planes[PlaneRight] = planeFromPoint(up.Cross(toRight), position)

	toTop := nc.Add(up.Mul(nearH)).Sub(position).Normalize()
	f.Planes[PlaneTop] = planeFromPoint(toTop.Cross(right), position)

	toBottom := nc.Sub(up.Mul(nearH)).Sub(position).Normalize()
	f.Planes[PlaneBottom] = planeFromPoint(right.Cross(toBottom), position)

	return f
}

// FrustumFromMatrix extracts the 6 planes of the frustum from a view-projection matrix.
// Corners are recovered by unprojecting the clip-space cube.
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	var f Frustum

	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	f.Planes[PlaneLeft] = r3.Add(r0)
	f.Planes[PlaneRight] = r3.Sub(r0)
	f.Planes[PlaneBottom] = r3.Add(r1)
	f.Planes[PlaneTop] = r3.Sub(r1)
	// OpenGL-style -1..1 depth
	f.Planes[PlaneNear] = r3.Add(r2)
	f.Planes[PlaneFar] = r3.Sub(r2)

	for i := range f.Planes {
		f.Planes[i] = normalizePlane(f.Planes[i])
	}

	inv := vp.Inv()
	ndc := [8]mgl32.Vec3{
		NearTopLeft:     {-1, 1, -1},
		NearTopRight:    {1, 1, -1},
		NearBottomLeft:  {-1, -1, -1},
		NearBottomRight: {1, -1, -1},
		FarTopLeft:      {-1, 1, 1},
		FarTopRight:     {1, 1, 1},
		FarBottomLeft:   {-1, -1, 1},
		FarBottomRight:  {1, -1, 1},
	}
	for i, p := range ndc {
		w := inv.Mul4x1(p.Vec4(1))
		if w.W() != 0 {
			w = w.Mul(1 / w.W())
		}
		f.Corners[i] = w.Vec3()
	}

	f.Front = f.Planes[PlaneNear].Vec3()
	return f
}

func planeFromPoint(normal, point mgl32.Vec3) mgl32.Vec4 {
	n := normal.Normalize()
	return n.Vec4(-n.Dot(point))
}

func normalizePlane(p mgl32.Vec4) mgl32.Vec4 {
	length := p.Vec3().Len()
	if length > 0 {
		return p.Mul(1.0 / length)
	}
	return p
}

// SignedDistance returns the distance of p from plane i, positive inside.
func (f *Frustum) SignedDistance(i int, p mgl32.Vec3) float32 {
	pl := f.Planes[i]
	return pl[0]*p[0] + pl[1]*p[1] + pl[2]*p[2] + pl[3]
}

// ContainsPoint reports whether p is on the inner side of all six planes.
func (f *Frustum) ContainsPoint(p mgl32.Vec3) bool {
	for i := range f.Planes {
		if f.SignedDistance(i, p) < 0 {
			return false
		}
	}
	return true
}

// ContainsSphere reports whether any part of the sphere may be inside.
func (f *Frustum) ContainsSphere(center mgl32.Vec3, radius float32) bool {
	for i := range f.Planes {
		if f.SignedDistance(i, center) < -radius {
			return false
		}
	}
	return true
}

// ContainsAABB reports whether any part of the box may be inside.
func (f *Frustum) ContainsAABB(box AABBox) bool {
	if box.IsEmpty() {
		return false
	}
	return AABBInFrustum(box, f.Planes)
}

// ContainsFrustum reports whether all corners of o lie inside f.
func (f *Frustum) ContainsFrustum(o *Frustum) bool {
	for _, c := range o.Corners {
		if !f.ContainsPoint(c) {
			return false
		}
	}
	return true
}

// AABBInFrustum checks if an AABB is visible within the frustum defined by 6 planes.
// Planes are expected to be in Ax+By+Cz+D=0 form, with the normal pointing INSIDE.
func AABBInFrustum(box AABBox, planes [6]mgl32.Vec4) bool {
	for i := 0; i < 6; i++ {
		plane := planes[i]
		// The corner furthest along the normal; if it is outside, so is the box.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = box.Maximum[axis]
			} else {
				p[axis] = box.Minimum[axis]
			}
		}

		dist := plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3]
		if dist < 0 {
			return false
		}
	}
	return true
}
