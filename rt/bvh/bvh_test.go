package bvh

import (
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenith3d/zenith/rt/core"
)

var allMethods = []SplitMethod{SplitSAH, SplitMiddle, SplitEqualCounts}

func box(minX, minY, minZ, maxX, maxY, maxZ float32) core.AABBox {
	return core.AABBox{Minimum: mgl32.Vec3{minX, minY, minZ}, Maximum: mgl32.Vec3{maxX, maxY, maxZ}}
}

func threeBoxes(t *testing.T, method SplitMethod) *BVH {
	t.Helper()
	opts := DefaultOptions()
	opts.SplitMethod = method
	opts.MaxNodePrimitives = 1
	b := New(opts)
	b.AddPrimitive(1, box(-1, -1, -1, 1, 1, 1))
	b.AddPrimitive(2, box(5, -1, -1, 7, 1, 1))
	b.AddPrimitive(3, box(10, -1, -1, 12, 1, 1))
	require.NoError(t, b.Build())
	return b
}

func TestIntersectFirstBoxAlongRay(t *testing.T) {
	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			b := threeBoxes(t, m)

			hit, ok := b.Intersect(core.NewRay(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}))
			require.True(t, ok)
			assert.Equal(t, Handle(1), hit.Handle)
			assert.InDelta(t, 4, hit.Distance, 1e-5)

			_, ok = b.Intersect(core.NewRay(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{0, 1, 0}))
			assert.False(t, ok)
		})
	}
}

func TestIntersectFromOppositeSide(t *testing.T) {
	for _, m := range allMethods {
		b := threeBoxes(t, m)
		hit, ok := b.Intersect(core.NewRay(mgl32.Vec3{20, 0, 0}, mgl32.Vec3{-1, 0, 0}))
		require.True(t, ok, m.String())
		assert.Equal(t, Handle(3), hit.Handle, m.String())
		assert.InDelta(t, 8, hit.Distance, 1e-5)
	}
}

func TestIntersectSkipsBoxContainingOrigin(t *testing.T) {
	b := threeBoxes(t, SplitSAH)
	hit, ok := b.Intersect(core.NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}))
	require.True(t, ok)
	assert.Equal(t, Handle(2), hit.Handle)
}

func TestIntersectRespectsTMax(t *testing.T) {
	b := threeBoxes(t, SplitSAH)
	r := core.NewRay(mgl32.Vec3{3, 0, 0}, mgl32.Vec3{1, 0, 0})
	r.TMax = 1
	_, ok := b.Intersect(r)
	assert.False(t, ok)

	r.TMax = 3
	hit, ok := b.Intersect(r)
	require.True(t, ok)
	assert.Equal(t, Handle(2), hit.Handle)
}

func TestEmptyBVH(t *testing.T) {
	b := New(DefaultOptions())
	require.NoError(t, b.Build())

	assert.Empty(t, b.Nodes())
	assert.True(t, b.Bounds().IsEmpty())
	_, ok := b.Intersect(core.NewRay(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}))
	assert.False(t, ok)
	assert.Empty(t, b.IntersectAll(core.NewRay(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})))
	assert.Empty(t, b.QueryAABB(box(-1, -1, -1, 1, 1, 1)))
}

func TestBuildSwapsPendingBuffer(t *testing.T) {
	b := threeBoxes(t, SplitSAH)
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 3, b.Len())

	b.AddPrimitive(9, box(100, 0, 0, 101, 1, 1))
	assert.Equal(t, 1, b.Pending())
	// The built tree is untouched until the next Build.
	assert.Equal(t, 3, b.Len())

	require.NoError(t, b.Build())
	assert.Equal(t, 1, b.Len())
	_, ok := b.Intersect(core.NewRay(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}))
	assert.False(t, ok)
}

func TestOverlappingBoxesNearestWins(t *testing.T) {
	b := New(DefaultOptions())
	b.AddPrimitive(10, box(0, -5, -5, 20, 5, 5))
	b.AddPrimitive(11, box(2, -1, -1, 3, 1, 1))
	b.AddPrimitive(12, box(-3, -1, -1, -2, 1, 1))
	require.NoError(t, b.Build())

	hit, ok := b.Intersect(core.NewRay(mgl32.Vec3{-10, 0, 0}, mgl32.Vec3{1, 0, 0}))
	require.True(t, ok)
	assert.Equal(t, Handle(12), hit.Handle)

	hit, ok = b.Intersect(core.NewRay(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{1, 0, 0}))
	require.True(t, ok)
	assert.Equal(t, Handle(10), hit.Handle)
	assert.InDelta(t, 1, hit.Distance, 1e-5)
}

func TestTiesResolveToSmallerHandle(t *testing.T) {
	for _, m := range allMethods {
		opts := DefaultOptions()
		opts.SplitMethod = m
		b := New(opts)
		b.AddPrimitive(7, box(0, 0, 0, 1, 1, 1))
		b.AddPrimitive(3, box(0, 1, 0, 1, 2, 1))
		b.AddPrimitive(5, box(0, -1, 0, 1, 0, 1))
		require.NoError(t, b.Build())

		hit, ok := b.Intersect(core.NewRay(mgl32.Vec3{-4, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}))
		require.True(t, ok)
		assert.Equal(t, Handle(7), hit.Handle, m.String())

		// Grazes the shared face of 7 and 3, entering both at the same distance.
		hit, ok = b.Intersect(core.NewRay(mgl32.Vec3{-4, 1, 0.5}, mgl32.Vec3{1, 0, 0}))
		require.True(t, ok)
		assert.Equal(t, Handle(3), hit.Handle, m.String())
	}
}

func TestCoincidentCentroidsFormLeaf(t *testing.T) {
	b := New(DefaultOptions())
	for i := 0; i < 6; i++ {
		s := float32(i + 1)
		b.AddPrimitive(Handle(i), box(-s, -s, -s, s, s, s))
	}
	require.NoError(t, b.Build())

	require.Len(t, b.Nodes(), 1)
	assert.True(t, b.Nodes()[0].IsLeaf())
	assert.Equal(t, uint16(6), b.Nodes()[0].PrimitiveCount)
}

func randomBoxes(rng *rand.Rand, n int) []core.AABBox {
	out := make([]core.AABBox, n)
	for i := range out {
		c := mgl32.Vec3{rng.Float32()*200 - 100, rng.Float32()*200 - 100, rng.Float32()*200 - 100}
		h := mgl32.Vec3{rng.Float32()*3 + 0.1, rng.Float32()*3 + 0.1, rng.Float32()*3 + 0.1}
		out[i] = core.AABBox{Minimum: c.Sub(h), Maximum: c.Add(h)}
	}
	return out
}

func buildRandom(t *testing.T, method SplitMethod, maxPrims int, boxes []core.AABBox) *BVH {
	t.Helper()
	opts := DefaultOptions()
	opts.SplitMethod = method
	opts.MaxNodePrimitives = maxPrims
	b := New(opts)
	for i, bx := range boxes {
		b.AddPrimitive(Handle(i), bx)
	}
	require.NoError(t, b.Build())
	return b
}

// checkTree walks the flattened tree and verifies containment and leaf ranges.
func checkTree(t *testing.T, b *BVH) {
	t.Helper()
	nodes := b.Nodes()
	seen := make([]bool, len(b.Primitives()))

	var walk func(i int, parent core.AABBox)
	walk = func(i int, parent core.AABBox) {
		require.Less(t, i, len(nodes))
		n := nodes[i]
		for a := 0; a < 3; a++ {
			assert.LessOrEqual(t, parent.Minimum[a], n.Bounds.Minimum[a])
			assert.GreaterOrEqual(t, parent.Maximum[a], n.Bounds.Maximum[a])
		}
		if n.IsLeaf() {
			for p := n.PrimitiveOffset(); p < n.PrimitiveOffset()+int(n.PrimitiveCount); p++ {
				require.False(t, seen[p], "primitive %d referenced twice", p)
				seen[p] = true
				pb := b.Primitives()[p].Bounds
				for a := 0; a < 3; a++ {
					assert.LessOrEqual(t, n.Bounds.Minimum[a], pb.Minimum[a])
					assert.GreaterOrEqual(t, n.Bounds.Maximum[a], pb.Maximum[a])
				}
			}
			return
		}
		walk(i+1, n.Bounds)
		walk(n.SecondChild(), n.Bounds)
	}
	walk(0, nodes[0].Bounds)

	for i, s := range seen {
		assert.True(t, s, "primitive %d unreachable", i)
	}
}

func TestTreeStructure(t *testing.T) {
	boxes := randomBoxes(rand.New(rand.NewSource(7)), 500)
	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			b := buildRandom(t, m, 4, boxes)
			checkTree(t, b)

			st := b.Stats()
			assert.Equal(t, 500, st.Primitives)
			assert.Equal(t, len(b.Nodes()), st.Nodes)
			assert.Equal(t, (st.Nodes+1)/2, st.Leaves)
			assert.LessOrEqual(t, st.Depth, DefaultMaxDepth)
		})
	}
}

func TestEqualCountsLeafSize(t *testing.T) {
	boxes := randomBoxes(rand.New(rand.NewSource(3)), 300)
	b := buildRandom(t, SplitEqualCounts, 4, boxes)
	for _, n := range b.Nodes() {
		if n.IsLeaf() {
			assert.LessOrEqual(t, int(n.PrimitiveCount), 4)
		}
	}
}

func TestSAHLeafSize(t *testing.T) {
	boxes := randomBoxes(rand.New(rand.NewSource(5)), 300)
	b := buildRandom(t, SplitSAH, 8, boxes)
	assert.LessOrEqual(t, b.Stats().MaxLeafPrimitives, 8)
}

func bruteForce(boxes []core.AABBox, r core.Ray) (HitResult, bool) {
	var best HitResult
	found := false
	for i, bx := range boxes {
		t, ok := bx.IntersectRay(r)
		if !ok || t <= 0 {
			continue
		}
		h := HitResult{Handle: Handle(i), Distance: t}
		if !found || h.closer(best) {
			best, found = h, true
		}
	}
	return best, found
}

func TestIntersectMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	boxes := randomBoxes(rng, 400)

	rays := make([]core.Ray, 300)
	for i := range rays {
		o := mgl32.Vec3{rng.Float32()*300 - 150, rng.Float32()*300 - 150, rng.Float32()*300 - 150}
		target := boxes[rng.Intn(len(boxes))].Centroid()
		if i%3 == 0 {
			target = mgl32.Vec3{rng.Float32()*300 - 150, rng.Float32()*300 - 150, rng.Float32()*300 - 150}
		}
		rays[i] = core.NewRay(o, target.Sub(o))
	}

	for _, m := range allMethods {
		for _, maxPrims := range []int{1, 4, 16} {
			b := buildRandom(t, m, maxPrims, boxes)
			for i, r := range rays {
				want, wantOK := bruteForce(boxes, r)
				got, gotOK := b.Intersect(r)
				require.Equal(t, wantOK, gotOK, "%s/%d ray %d", m, maxPrims, i)
				if wantOK {
					assert.Equal(t, want.Handle, got.Handle, "%s/%d ray %d", m, maxPrims, i)
					assert.Equal(t, want.Distance, got.Distance)
				}

				all := b.IntersectAll(r)
				if wantOK {
					require.NotEmpty(t, all)
					assert.Equal(t, want.Handle, all[0].Handle)
				} else {
					assert.Empty(t, all)
				}
			}
		}
	}
}

func TestQueryAABBMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	boxes := randomBoxes(rng, 250)
	b := buildRandom(t, SplitSAH, 4, boxes)

	for i := 0; i < 50; i++ {
		q := randomBoxes(rng, 1)[0]
		q.Minimum = q.Minimum.Sub(mgl32.Vec3{20, 20, 20})
		q.Maximum = q.Maximum.Add(mgl32.Vec3{20, 20, 20})

		want := map[Handle]bool{}
		for j, bx := range boxes {
			if bx.Overlaps(q) {
				want[Handle(j)] = true
			}
		}
		got := map[Handle]bool{}
		for _, h := range b.QueryAABB(q) {
			got[h] = true
		}
		assert.Equal(t, want, got)
	}
}

func TestDepthExceeded(t *testing.T) {
	opts := DefaultOptions()
	opts.SplitMethod = SplitEqualCounts
	opts.MaxDepth = 3
	b := New(opts)
	for i := 0; i < 64; i++ {
		x := float32(i * 4)
		b.AddPrimitive(Handle(i), box(x, 0, 0, x+1, 1, 1))
	}

	err := b.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDepthExceeded))
	assert.Empty(t, b.Nodes())
	assert.Equal(t, 0, b.Len())
}

func TestOptionsNormalized(t *testing.T) {
	b := New(Options{MaxNodePrimitives: 1000})
	assert.Equal(t, MaxNodePrimitivesLimit, b.Options().MaxNodePrimitives)
	assert.Equal(t, DefaultMaxDepth, b.Options().MaxDepth)

	b = New(Options{MaxNodePrimitives: -2})
	assert.Equal(t, 1, b.Options().MaxNodePrimitives)
}

func TestParseSplitMethod(t *testing.T) {
	for _, m := range allMethods {
		got, err := ParseSplitMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseSplitMethod("octree")
	assert.Error(t, err)
}

func TestNodeEncoding(t *testing.T) {
	b := threeBoxes(t, SplitEqualCounts)
	data := EncodeNodes(b.Nodes())
	require.Len(t, data, NodeSize*len(b.Nodes()))

	// Root encloses every box.
	rootMinX := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	rootMaxX := math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))
	assert.Equal(t, float32(-1), rootMinX)
	assert.Equal(t, float32(12), rootMaxX)

	// Root is interior: count 0, offset points at the second child.
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[28:30]))
	second := int32(binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, b.Nodes()[0].Offset, second)

	for i, n := range b.Nodes() {
		assert.Equal(t, n, NodeFromBytes(data[i*NodeSize:(i+1)*NodeSize]))
	}
}
