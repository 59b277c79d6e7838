package zenith

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/zenith3d/zenith/rt/bvh"
	"github.com/zenith3d/zenith/rt/core"
)

// IndexMode is the rebuild contract of a SpatialIndex.
type IndexMode uint8

const (
	// IndexStatic rebuilds only after structural scene changes or MarkDirty.
	// Moving an indexed object does not refresh its bounds.
	IndexStatic IndexMode = iota
	// IndexDynamic also rebuilds whenever an indexed object's transform changed.
	IndexDynamic
)

func (m IndexMode) String() string {
	if m == IndexDynamic {
		return "dynamic"
	}
	return "static"
}

func ParseIndexMode(s string) (IndexMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "":
		return IndexStatic, nil
	case "dynamic":
		return IndexDynamic, nil
	}
	return 0, fmt.Errorf("unknown index mode %q", s)
}

// RaycastHit is the first object a ray enters.
type RaycastHit struct {
	Object   GameObjectId
	Distance float32
	Point    mgl32.Vec3
}

// SpatialIndex answers ray and box queries over the world bounds of active
// objects with a graphics model, backed by a BVH. It is not safe for
// concurrent use; queries belong on the frame loop.
type SpatialIndex struct {
	scene  *Scene
	mode   IndexMode
	tree   *bvh.BVH
	logger Logger

	// built is set after any build attempt, failed or not, so a failing
	// scene is retried only once it changes.
	built           bool
	dirty           bool
	builtStructure  uint64
	builtTransforms map[GameObjectId]uint64
	rebuilds        int
	lastErr         error
}

func NewSpatialIndex(scene *Scene, opts bvh.Options, mode IndexMode, logger Logger) *SpatialIndex {
	logger = Scoped(logger, "spatial index")
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &SpatialIndex{
		scene:           scene,
		mode:            mode,
		tree:            bvh.New(opts),
		logger:          logger,
		builtTransforms: make(map[GameObjectId]uint64),
	}
}

func (s *SpatialIndex) Mode() IndexMode  { return s.mode }
func (s *SpatialIndex) BVH() *bvh.BVH    { return s.tree }
func (s *SpatialIndex) Stats() bvh.Stats { return s.tree.Stats() }

// Rebuilds counts completed builds.
func (s *SpatialIndex) Rebuilds() int { return s.rebuilds }

// Err is the error of the last build attempt, nil after a successful one.
// A failed build leaves the index empty.
func (s *SpatialIndex) Err() error { return s.lastErr }

// MarkDirty forces the next Refresh to rebuild.
func (s *SpatialIndex) MarkDirty() {
	s.dirty = true
}

// NeedsRebuild reports whether Refresh would rebuild under the index mode.
func (s *SpatialIndex) NeedsRebuild() bool {
	if !s.built || s.dirty || s.scene.StructureVersion() != s.builtStructure {
		return true
	}
	if s.mode != IndexDynamic {
		return false
	}

	changed := false
	s.eachIndexed(func(o *GameObject, st core.TransformState) {
		if v, ok := s.builtTransforms[o.Id()]; !ok || v != st.Version {
			changed = true
		}
	})
	return changed
}

// Refresh rebuilds when NeedsRebuild and reports whether it did.
func (s *SpatialIndex) Refresh() (bool, error) {
	if !s.NeedsRebuild() {
		return false, nil
	}
	return true, s.Rebuild()
}

// Rebuild indexes the current scene unconditionally.
func (s *SpatialIndex) Rebuild() error {
	structure := s.scene.StructureVersion()
	clear(s.builtTransforms)

	s.eachIndexed(func(o *GameObject, st core.TransformState) {
		s.tree.AddPrimitive(bvh.Handle(o.Id()), st.Bounds)
		s.builtTransforms[o.Id()] = st.Version
	})

	err := s.tree.Build()
	s.built = true
	s.dirty = false
	s.builtStructure = structure
	if err != nil {
		s.lastErr = fmt.Errorf("rebuild spatial index: %w", err)
		return s.lastErr
	}

	s.lastErr = nil
	s.rebuilds++
	s.logger.Debugf("indexed %d objects (%s)", s.tree.Len(), s.mode)
	return nil
}

func (s *SpatialIndex) eachIndexed(fn func(o *GameObject, st core.TransformState)) {
	s.scene.Walk(func(o *GameObject, _ int) bool {
		if !o.Active() {
			return false
		}
		if g := o.Graphics(); g == nil || g.Model == nil {
			return true
		}
		st := o.Transform()
		if st.HasBounds {
			fn(o, st)
		}
		return true
	})
}

func (s *SpatialIndex) alive(h bvh.Handle) bool {
	o, ok := s.scene.Get(GameObjectId(h))
	return ok && !o.IsDestroyed()
}

func toHit(r core.Ray, h bvh.HitResult) RaycastHit {
	return RaycastHit{Object: GameObjectId(h.Handle), Distance: h.Distance, Point: r.At(h.Distance)}
}

// Raycast returns the nearest indexed object the ray enters. Objects destroyed
// since the last rebuild are never reported.
func (s *SpatialIndex) Raycast(r core.Ray) (RaycastHit, bool) {
	h, ok := s.tree.Intersect(r)
	if !ok {
		return RaycastHit{}, false
	}
	if s.alive(h.Handle) {
		return toHit(r, h), true
	}
	for _, h := range s.tree.IntersectAll(r) {
		if s.alive(h.Handle) {
			return toHit(r, h), true
		}
	}
	return RaycastHit{}, false
}

// RaycastAll returns every indexed object the ray enters, nearest first.
func (s *SpatialIndex) RaycastAll(r core.Ray) []RaycastHit {
	var out []RaycastHit
	for _, h := range s.tree.IntersectAll(r) {
		if s.alive(h.Handle) {
			out = append(out, toHit(r, h))
		}
	}
	return out
}

// Pick casts a ray through pixel (x, y) of a width x height viewport.
func (s *SpatialIndex) Pick(camera *core.Camera, x, y, width, height float32) (RaycastHit, bool) {
	return s.Raycast(camera.ScreenRay(x, y, width, height))
}

// QueryAABB returns the indexed objects whose bounds overlap box.
func (s *SpatialIndex) QueryAABB(box core.AABBox) []GameObjectId {
	var out []GameObjectId
	for _, h := range s.tree.QueryAABB(box) {
		if s.alive(h) {
			out = append(out, GameObjectId(h))
		}
	}
	return out
}

type SpatialIndexModule struct {
	Options bvh.Options
	Mode    IndexMode
}

func (m SpatialIndexModule) Install(app *App, cmd *Commands) {
	opts := m.Options
	if opts.MaxNodePrimitives == 0 {
		opts.MaxNodePrimitives = bvh.DefaultMaxNodePrimitives
	}
	cmd.AddResources(NewSpatialIndex(app.Scene(), opts, m.Mode, app.Logger()))

	app.UseSystem(
		System(spatialIndexSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

// spatialIndexSystem runs after the transform hierarchy has settled. A failed
// build is reported once; the index stays empty until the scene changes.
func spatialIndexSystem(scene *Scene, index *SpatialIndex) {
	UpdateTransforms(scene)
	if _, err := index.Refresh(); err != nil {
		index.logger.Errorf("%v", err)
	}
}
