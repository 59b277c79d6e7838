package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestRayNormalizesDirection(t *testing.T) {
	r := NewRay(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, 10})
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, r.Direction)
	assert.Equal(t, mgl32.Vec3{1, 2, 8}, r.At(5))

	var zero Ray
	assert.Greater(t, zero.Limit(), float32(1e30), "zero TMax means unbounded")
}

func TestRayClosestPoint(t *testing.T) {
	r := NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0})

	p, tt := r.ClosestPoint(mgl32.Vec3{3, 4, 0})
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, p)
	assert.Equal(t, float32(3), tt)

	p, tt = r.ClosestPoint(mgl32.Vec3{-3, 4, 0})
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, p, "points behind clamp to the origin")
	assert.Equal(t, float32(0), tt)
}

func TestClosestPointsBetweenRays(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Ray
		distance float32
	}{
		{
			name:     "skew rays",
			a:        NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}),
			b:        NewRay(mgl32.Vec3{5, -5, 2}, mgl32.Vec3{0, 1, 0}),
			distance: 2,
		},
		{
			name:     "intersecting rays",
			a:        NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 0}),
			b:        NewRay(mgl32.Vec3{4, 0, 0}, mgl32.Vec3{-1, 1, 0}),
			distance: 0,
		},
		{
			name:     "parallel rays",
			a:        NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}),
			b:        NewRay(mgl32.Vec3{3, 0, 5}, mgl32.Vec3{0, 0, 1}),
			distance: 3,
		},
		{
			name:     "diverging rays clamp to origins",
			a:        NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{-1, 0, 0}),
			b:        NewRay(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 0, 0}),
			distance: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.distance, ClosestDistance(tc.a, tc.b), 1e-4)
			assert.InDelta(t, tc.distance, ClosestDistance(tc.b, tc.a), 1e-4, "distance is symmetric")
		})
	}

	cp := ClosestPoints(
		NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}),
		NewRay(mgl32.Vec3{5, -5, 2}, mgl32.Vec3{0, 1, 0}),
	)
	assert.InDelta(t, 5, cp.S, 1e-4)
	assert.InDelta(t, 5, cp.T, 1e-4)
	assert.True(t, cp.PointA.ApproxEqualThreshold(mgl32.Vec3{5, 0, 0}, 1e-4))
	assert.True(t, cp.PointB.ApproxEqualThreshold(mgl32.Vec3{5, 0, 2}, 1e-4))
}
