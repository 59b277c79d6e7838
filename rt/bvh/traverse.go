package bvh

import (
	"sort"

	"github.com/zenith3d/zenith/rt/core"
)

// HitResult is a primitive struck by a ray at parametric Distance.
type HitResult struct {
	Handle   Handle
	Distance float32
}

// closer orders hits by distance, breaking ties on the smaller handle.
func (h HitResult) closer(o HitResult) bool {
	if h.Distance != o.Distance {
		return h.Distance < o.Distance
	}
	return h.Handle < o.Handle
}

const initialStackSize = 64

// Intersect returns the nearest primitive whose box the ray enters in front of
// its origin. Primitives enclosing the origin are not reported.
func (b *BVH) Intersect(r core.Ray) (HitResult, bool) {
	var best HitResult
	found := false
	if len(b.nodes) == 0 {
		return best, false
	}

	dirIsNeg := [3]bool{r.Direction[0] < 0, r.Direction[1] < 0, r.Direction[2] < 0}
	stack := make([]int, 0, initialStackSize)
	current := 0

	for {
		node := &b.nodes[current]
		if _, ok := node.Bounds.IntersectRay(r); ok {
			if node.IsLeaf() {
				first := node.PrimitiveOffset()
				for i := first; i < first+int(node.PrimitiveCount); i++ {
					p := &b.primitives[i]
					t, ok := p.Bounds.IntersectRay(r)
					if !ok || t <= 0 {
						continue
					}
					hit := HitResult{Handle: p.Handle, Distance: t}
					if !found || hit.closer(best) {
						best = hit
						found = true
						// Nothing beyond the current hit can win.
						r.TMax = t
					}
				}
			} else {
				// Visit the near child first.
				if dirIsNeg[node.Axis] {
					stack = append(stack, current+1)
					current = node.SecondChild()
				} else {
					stack = append(stack, node.SecondChild())
					current = current + 1
				}
				continue
			}
		}

		if len(stack) == 0 {
			break
		}
		current = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}

	return best, found
}

// IntersectAll returns every primitive the ray enters in front of its origin,
// nearest first.
func (b *BVH) IntersectAll(r core.Ray) []HitResult {
	var hits []HitResult
	b.visit(func(n *LinearNode) bool { return n.Bounds.Intersects(r) }, func(p *Primitive) {
		if t, ok := p.Bounds.IntersectRay(r); ok && t > 0 {
			hits = append(hits, HitResult{Handle: p.Handle, Distance: t})
		}
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].closer(hits[j]) })
	return hits
}

// QueryAABB returns the handles of all primitives overlapping box.
func (b *BVH) QueryAABB(box core.AABBox) []Handle {
	var out []Handle
	if box.IsEmpty() {
		return out
	}
	b.visit(func(n *LinearNode) bool { return n.Bounds.Overlaps(box) }, func(p *Primitive) {
		if p.Bounds.Overlaps(box) {
			out = append(out, p.Handle)
		}
	})
	return out
}

func (b *BVH) visit(enter func(*LinearNode) bool, leaf func(*Primitive)) {
	if len(b.nodes) == 0 {
		return
	}
	stack := make([]int, 0, initialStackSize)
	stack = append(stack, 0)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &b.nodes[current]
		if !enter(node) {
			continue
		}
		if node.IsLeaf() {
			first := node.PrimitiveOffset()
			for i := first; i < first+int(node.PrimitiveCount); i++ {
				leaf(&b.primitives[i])
			}
			continue
		}
		stack = append(stack, node.SecondChild(), current+1)
	}
}
