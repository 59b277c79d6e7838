package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera describes a perspective view. FOV is vertical, in degrees.
type Camera struct {
	Position mgl32.Vec3
	Front    mgl32.Vec3
	Up       mgl32.Vec3
	FOV      float32
	Aspect   float32
	Near     float32
	Far      float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 2, 20},
		Front:    mgl32.Vec3{0, 0, -1},
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      45,
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      1000,
	}
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() > 0 {
		c.Front = dir.Normalize()
	}
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect == 0 {
		aspect = 1.0
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return c.GetProjectionMatrix().Mul4(c.GetViewMatrix())
}

// Frustum returns the view volume for the current camera state.
func (c *Camera) Frustum() Frustum {
	aspect := c.Aspect
	if aspect == 0 {
		aspect = 1.0
	}
	return NewFrustum(c.Position, c.Front, c.Up, c.FOV, aspect, c.Near, c.Far)
}

// ScreenRay converts pixel coordinates to a world-space ray starting on the
// near plane. (0,0) is the top-left corner of a width x height viewport.
func (c *Camera) ScreenRay(x, y, width, height float32) Ray {
	ndcX := 2.0*x/width - 1.0
	ndcY := 1.0 - 2.0*y/height

	inv := c.GetViewProjection().Inv()
	unproject := func(z float32) mgl32.Vec3 {
		p := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, z, 1})
		if p.W() != 0 {
			p = p.Mul(1 / p.W())
		}
		return p.Vec3()
	}

	near := unproject(-1)
	far := unproject(1)
	r := NewRay(near, far.Sub(near))
	r.TMax = far.Sub(near).Len()
	return r
}
