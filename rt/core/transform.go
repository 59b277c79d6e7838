package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (t Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())

	// Conjugate is the inverse for a unit quaternion
	invRotate := t.Rotation.Conjugate().Mat4()

	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// TransformState is an immutable point-in-time view of an object's transform
// and everything derived from it. A new value is published on every change.
type TransformState struct {
	Local    Transform
	Previous Transform

	// Model is Local.ObjectToWorld(); World additionally applies the parent chain.
	Model mgl32.Mat4
	World mgl32.Mat4

	// Bounds is the world-space box of the graphics model, valid when HasBounds.
	Bounds    AABBox
	HasBounds bool

	// ParentVersion is the parent's Version that World was derived from.
	ParentVersion uint64
	Version       uint64
}

// NewTransformState derives model and world matrices for local under parentWorld.
func NewTransformState(local, previous Transform, parentWorld mgl32.Mat4) TransformState {
	local.Rotation = local.Rotation.Normalize()
	model := local.ObjectToWorld()
	return TransformState{
		Local:    local,
		Previous: previous,
		Model:    model,
		World:    parentWorld.Mul4(model),
	}
}

// WithBounds returns a copy whose Bounds is localBounds moved into world space.
func (s TransformState) WithBounds(localBounds AABBox) TransformState {
	s.Bounds = localBounds.Transform(s.World)
	s.HasBounds = !s.Bounds.IsEmpty()
	return s
}
