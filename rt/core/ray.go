package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half-line starting at Origin. TMax bounds how far along Direction a
// query looks; zero or negative means unbounded.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
	TMax      float32
}

// NewRay returns an unbounded ray with a normalized direction.
func NewRay(origin, direction mgl32.Vec3) Ray {
	if direction.Len() > 0 {
		direction = direction.Normalize()
	}
	return Ray{
		Origin:    origin,
		Direction: direction,
		TMax:      math32.Inf(1),
	}
}

// Limit returns the effective query distance.
func (r Ray) Limit() float32 {
	if r.TMax <= 0 {
		return math32.Inf(1)
	}
	return r.TMax
}

// At returns the point at parameter t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ClosestPoint returns the point on r nearest to p, clamped to the origin.
func (r Ray) ClosestPoint(p mgl32.Vec3) (mgl32.Vec3, float32) {
	dd := r.Direction.Dot(r.Direction)
	if dd == 0 {
		return r.Origin, 0
	}
	t := math32.Max(0, p.Sub(r.Origin).Dot(r.Direction)/dd)
	return r.At(t), t
}

// RayClosestPoints holds the mutually closest points of two rays and their
// parameters along each ray.
type RayClosestPoints struct {
	S, T   float32
	PointA mgl32.Vec3
	PointB mgl32.Vec3
}

// Distance returns the gap between the two closest points.
func (c RayClosestPoints) Distance() float32 {
	return c.PointA.Sub(c.PointB).Len()
}

// ClosestPoints finds the points on a and b (both restricted to t >= 0) that
// are nearest to each other.
func ClosestPoints(a, b Ray) RayClosestPoints {
	w0 := a.Origin.Sub(b.Origin)
	aa := a.Direction.Dot(a.Direction)
	ab := a.Direction.Dot(b.Direction)
	bb := b.Direction.Dot(b.Direction)
	d := a.Direction.Dot(w0)
	e := b.Direction.Dot(w0)
	denom := aa*bb - ab*ab

	var s, t float32
	if denom < 1e-7 || aa == 0 || bb == 0 {
		// Parallel or degenerate: pin a at its origin.
		s = 0
		if bb > 0 {
			t = e / bb
		}
	} else {
		s = (ab*e - bb*d) / denom
		t = (aa*e - ab*d) / denom
	}

	if s < 0 {
		s = 0
		if bb > 0 {
			t = e / bb
		}
	}
	if t < 0 {
		t = 0
		if aa > 0 {
			s = math32.Max(0, -d/aa)
		}
	}

	return RayClosestPoints{
		S:      s,
		T:      t,
		PointA: a.At(s),
		PointB: b.At(t),
	}
}

// ClosestDistance returns the shortest distance between two rays.
func ClosestDistance(a, b Ray) float32 {
	return ClosestPoints(a, b).Distance()
}
