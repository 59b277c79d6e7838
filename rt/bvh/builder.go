package bvh

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/zenith3d/zenith/rt/core"
)

// ErrDepthExceeded is returned by Build when the tree would be deeper than
// Options.MaxDepth. The BVH is left empty.
var ErrDepthExceeded = errors.New("bvh: maximum depth exceeded")

// Handle identifies the object a primitive belongs to.
type Handle uint64

// Primitive is a world-space box tagged with its owner.
type Primitive struct {
	Handle Handle
	Bounds core.AABBox
}

type Stats struct {
	Primitives        int
	Nodes             int
	Leaves            int
	Depth             int
	MaxLeafPrimitives int
	BuildTime         time.Duration
}

// BVH is a flattened bounding volume hierarchy over object bounds.
// Primitives are staged with AddPrimitive and become queryable on Build.
// A BVH is not safe for concurrent mutation; queries on a built tree may run
// concurrently.
type BVH struct {
	opts Options

	pending    []Primitive
	primitives []Primitive
	nodes      []LinearNode
	stats      Stats
}

func New(opts Options) *BVH {
	return &BVH{opts: opts.normalized()}
}

func (b *BVH) Options() Options { return b.opts }

// AddPrimitive stages a primitive for the next Build.
func (b *BVH) AddPrimitive(h Handle, bounds core.AABBox) {
	b.pending = append(b.pending, Primitive{Handle: h, Bounds: bounds})
}

// Pending is the number of primitives staged for the next Build.
func (b *BVH) Pending() int { return len(b.pending) }

func (b *BVH) Nodes() []LinearNode     { return b.nodes }
func (b *BVH) Primitives() []Primitive { return b.primitives }
func (b *BVH) Stats() Stats            { return b.stats }
func (b *BVH) Len() int                { return len(b.primitives) }

// Bounds of the whole tree; empty when nothing is built.
func (b *BVH) Bounds() core.AABBox {
	if len(b.nodes) == 0 {
		return core.EmptyAABBox()
	}
	return b.nodes[0].Bounds
}

type primitiveInfo struct {
	index    int
	bounds   core.AABBox
	centroid mgl32.Vec3
}

type buildNode struct {
	bounds      core.AABBox
	children    [2]*buildNode
	axis        int
	firstOffset int
	count       int
}

type buildState struct {
	opts       Options
	source     []Primitive
	ordered    []Primitive
	totalNodes int
	stats      Stats
}

// Build replaces the current tree with one over the staged primitives and
// clears the staging buffer.
func (b *BVH) Build() error {
	start := time.Now()

	source := b.pending
	b.pending = nil
	b.primitives = nil
	b.nodes = nil
	b.stats = Stats{}

	if len(source) == 0 {
		return nil
	}

	info := make([]primitiveInfo, len(source))
	for i, p := range source {
		info[i] = primitiveInfo{index: i, bounds: p.Bounds, centroid: p.Bounds.Centroid()}
	}

	st := &buildState{
		opts:    b.opts,
		source:  source,
		ordered: make([]Primitive, 0, len(source)),
	}
	root, err := st.recursiveBuild(info, 1)
	if err != nil {
		return err
	}

	b.primitives = st.ordered
	b.nodes = make([]LinearNode, st.totalNodes)
	offset := 0
	b.flatten(root, &offset)

	st.stats.Primitives = len(b.primitives)
	st.stats.Nodes = len(b.nodes)
	st.stats.BuildTime = time.Since(start)
	b.stats = st.stats

	if b.opts.Logger != nil {
		b.opts.Logger.Debugf("bvh: built %d primitives into %d nodes (%d leaves, depth %d, split %s) in %s",
			b.stats.Primitives, b.stats.Nodes, b.stats.Leaves, b.stats.Depth, b.opts.SplitMethod, b.stats.BuildTime)
	}
	return nil
}

func (st *buildState) recursiveBuild(info []primitiveInfo, depth int) (*buildNode, error) {
	if depth > st.opts.MaxDepth {
		return nil, fmt.Errorf("%w: depth %d > %d", ErrDepthExceeded, depth, st.opts.MaxDepth)
	}
	if depth > st.stats.Depth {
		st.stats.Depth = depth
	}
	st.totalNodes++

	bounds := core.EmptyAABBox()
	for i := range info {
		bounds = bounds.Union(info[i].bounds)
	}

	n := len(info)
	if n == 1 {
		return st.leaf(info, bounds), nil
	}

	centroidBounds := core.EmptyAABBox()
	for i := range info {
		centroidBounds = centroidBounds.UnionPoint(info[i].centroid)
	}
	dim := centroidBounds.MaxExtent()

	if centroidBounds.Maximum[dim] == centroidBounds.Minimum[dim] {
		if n <= math.MaxUint16 {
			return st.leaf(info, bounds), nil
		}
		// Too many coincident centroids for one leaf; split them in index order.
		return st.interior(info, n/2, dim, bounds, depth)
	}

	mid := -1
	switch st.opts.SplitMethod {
	case SplitMiddle:
		pmid := (centroidBounds.Minimum[dim] + centroidBounds.Maximum[dim]) / 2
		mid = partition(info, func(p *primitiveInfo) bool { return p.centroid[dim] < pmid })
		if mid == 0 || mid == n {
			mid = -1
		}
	case SplitSAH:
		if n > 2 {
			var makeLeaf bool
			mid, makeLeaf = st.splitSAH(info, bounds, centroidBounds, dim)
			if makeLeaf {
				return st.leaf(info, bounds), nil
			}
		}
	}

	if mid < 0 {
		mid = n / 2
		nthElement(info, mid, dim)
	}
	return st.interior(info, mid, dim, bounds, depth)
}

// splitSAH buckets centroids along dim and picks the cheapest split plane.
// It returns mid < 0 when the partition degenerates.
func (st *buildState) splitSAH(info []primitiveInfo, bounds, centroidBounds core.AABBox, dim int) (int, bool) {
	n := len(info)
	totalArea := bounds.SurfaceArea()
	if totalArea <= 0 {
		return -1, false
	}

	type bucket struct {
		count  int
		bounds core.AABBox
	}
	var buckets [sahBuckets]bucket
	for i := range buckets {
		buckets[i].bounds = core.EmptyAABBox()
	}

	bucketOf := func(p *primitiveInfo) int {
		b := int(sahBuckets * centroidBounds.Offset(p.centroid)[dim])
		if b >= sahBuckets {
			b = sahBuckets - 1
		}
		if b < 0 {
			b = 0
		}
		return b
	}

	for i := range info {
		b := bucketOf(&info[i])
		buckets[b].count++
		buckets[b].bounds = buckets[b].bounds.Union(info[i].bounds)
	}

	var cost [sahBuckets - 1]float32
	for i := 0; i < sahBuckets-1; i++ {
		b0, b1 := core.EmptyAABBox(), core.EmptyAABBox()
		count0, count1 := 0, 0
		for j := 0; j <= i; j++ {
			b0 = b0.Union(buckets[j].bounds)
			count0 += buckets[j].count
		}
		for j := i + 1; j < sahBuckets; j++ {
			b1 = b1.Union(buckets[j].bounds)
			count1 += buckets[j].count
		}
		cost[i] = 1 + (float32(count0)*b0.SurfaceArea()+float32(count1)*b1.SurfaceArea())/totalArea
	}

	minCost := cost[0]
	minBucket := 0
	for i := 1; i < len(cost); i++ {
		if cost[i] < minCost {
			minCost = cost[i]
			minBucket = i
		}
	}

	leafCost := float32(n)
	if n <= st.opts.MaxNodePrimitives && minCost >= leafCost {
		return -1, true
	}

	mid := partition(info, func(p *primitiveInfo) bool { return bucketOf(p) <= minBucket })
	if mid == 0 || mid == n {
		return -1, false
	}
	return mid, false
}

func (st *buildState) leaf(info []primitiveInfo, bounds core.AABBox) *buildNode {
	node := &buildNode{bounds: bounds, firstOffset: len(st.ordered), count: len(info)}
	for i := range info {
		st.ordered = append(st.ordered, st.source[info[i].index])
	}
	st.stats.Leaves++
	if node.count > st.stats.MaxLeafPrimitives {
		st.stats.MaxLeafPrimitives = node.count
	}
	return node
}

func (st *buildState) interior(info []primitiveInfo, mid, axis int, bounds core.AABBox, depth int) (*buildNode, error) {
	left, err := st.recursiveBuild(info[:mid], depth+1)
	if err != nil {
		return nil, err
	}
	right, err := st.recursiveBuild(info[mid:], depth+1)
	if err != nil {
		return nil, err
	}
	return &buildNode{bounds: bounds, children: [2]*buildNode{left, right}, axis: axis}, nil
}

// flatten writes the tree in depth-first order so the first child of every
// interior node is its immediate successor.
func (b *BVH) flatten(node *buildNode, offset *int) int {
	idx := *offset
	*offset++

	ln := &b.nodes[idx]
	ln.Bounds = node.bounds
	if node.count > 0 {
		ln.Offset = int32(node.firstOffset)
		ln.PrimitiveCount = uint16(node.count)
		return idx
	}

	ln.Axis = uint8(node.axis)
	b.flatten(node.children[0], offset)
	ln.Offset = int32(b.flatten(node.children[1], offset))
	return idx
}

// partition moves items satisfying pred to the front and returns their count.
func partition(items []primitiveInfo, pred func(*primitiveInfo) bool) int {
	store := 0
	for i := range items {
		if pred(&items[i]) {
			items[store], items[i] = items[i], items[store]
			store++
		}
	}
	return store
}

// nthElement reorders items so that items[k] holds the element that would be
// there if sorted by centroid on axis, with no larger element before it and
// no smaller element after it.
func nthElement(items []primitiveInfo, k, axis int) {
	lo, hi := 0, len(items)-1
	for lo < hi {
		lt, gt := partitionAround(items, lo, hi, axis)
		switch {
		case k < lt:
			hi = lt - 1
		case k > gt:
			lo = gt + 1
		default:
			return
		}
	}
}

// partitionAround splits items[lo:hi+1] three ways around the middle element's
// centroid: smaller, equal, larger. It returns the bounds [lt, gt] of the
// equal band, so runs of equal centroids are settled in one pass.
func partitionAround(items []primitiveInfo, lo, hi, axis int) (int, int) {
	pivot := items[lo+(hi-lo)/2].centroid[axis]

	lt, i, gt := lo, lo, hi
	for i <= gt {
		v := items[i].centroid[axis]
		switch {
		case v < pivot:
			items[lt], items[i] = items[i], items[lt]
			lt++
			i++
		case v > pivot:
			items[i], items[gt] = items[gt], items[i]
			gt--
		default:
			i++
		}
	}
	return lt, gt
}
