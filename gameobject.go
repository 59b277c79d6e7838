package zenith

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/zenith3d/zenith/rt/core"
)

type GameObjectId uint64

// NoObject is never assigned to a live object.
const NoObject GameObjectId = 0

func (id GameObjectId) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// GameObject is a node of the scene graph. Structural links are owned by the
// Scene; the transform is published as an immutable snapshot so readers on
// other goroutines always see a consistent local/model/world/bounds set.
type GameObject struct {
	id    GameObjectId
	name  string
	scene *Scene

	// Guarded by scene.mu for writes.
	parent   atomic.Pointer[GameObject]
	children []GameObjectId

	active    atomic.Bool
	destroyed atomic.Bool

	// mu serializes transform writers; readers load state without locking.
	mu    sync.Mutex
	state atomic.Pointer[core.TransformState]

	compMu     sync.RWMutex
	components map[ComponentKind]Component
}

func newGameObject(scene *Scene, id GameObjectId, name string) *GameObject {
	o := &GameObject{
		id:         id,
		name:       name,
		scene:      scene,
		components: make(map[ComponentKind]Component),
	}
	o.active.Store(true)
	local := core.NewTransform()
	st := core.NewTransformState(local, local, mgl32.Ident4())
	st.Version = 1
	o.state.Store(&st)
	return o
}

func (o *GameObject) Id() GameObjectId { return o.id }
func (o *GameObject) Name() string     { return o.name }
func (o *GameObject) Scene() *Scene    { return o.scene }

// Parent returns the parent id, or NoObject for roots.
func (o *GameObject) Parent() GameObjectId {
	if p := o.parent.Load(); p != nil {
		return p.id
	}
	return NoObject
}

func (o *GameObject) Children() []GameObjectId {
	return o.scene.Children(o.id)
}

func (o *GameObject) IsDestroyed() bool { return o.destroyed.Load() }

func (o *GameObject) Active() bool { return o.active.Load() }

// SetActive toggles the object; inactive objects and their subtrees are
// skipped by rendering and spatial queries.
func (o *GameObject) SetActive(active bool) {
	if o.active.Swap(active) != active {
		o.scene.bumpStructure()
	}
}

// ActiveInHierarchy reports whether the object and all its ancestors are active.
func (o *GameObject) ActiveInHierarchy() bool {
	for cur := o; cur != nil; cur = cur.parent.Load() {
		if !cur.active.Load() {
			return false
		}
	}
	return true
}

// Transform returns the current snapshot.
func (o *GameObject) Transform() core.TransformState {
	return *o.state.Load()
}

func (o *GameObject) Position() mgl32.Vec3    { return o.state.Load().Local.Position }
func (o *GameObject) Scale() mgl32.Vec3       { return o.state.Load().Local.Scale }
func (o *GameObject) Orientation() mgl32.Quat { return o.state.Load().Local.Rotation }

func (o *GameObject) PreviousPosition() mgl32.Vec3    { return o.state.Load().Previous.Position }
func (o *GameObject) PreviousScale() mgl32.Vec3       { return o.state.Load().Previous.Scale }
func (o *GameObject) PreviousOrientation() mgl32.Quat { return o.state.Load().Previous.Rotation }

// ModelMatrix is T*R*S of the local transform.
func (o *GameObject) ModelMatrix() mgl32.Mat4 { return o.state.Load().Model }

// WorldMatrix applies the parent chain to ModelMatrix.
func (o *GameObject) WorldMatrix() mgl32.Mat4 { return o.state.Load().World }

// AABB is the world box of the graphics model, if the object has one.
func (o *GameObject) AABB() (core.AABBox, bool) {
	st := o.state.Load()
	return st.Bounds, st.HasBounds
}

func (o *GameObject) SetPosition(p mgl32.Vec3) {
	o.update(func(local, prev *core.Transform) {
		prev.Position = local.Position
		local.Position = p
	})
}

func (o *GameObject) SetScale(s mgl32.Vec3) {
	o.update(func(local, prev *core.Transform) {
		prev.Scale = local.Scale
		local.Scale = s
	})
}

func (o *GameObject) SetOrientation(q mgl32.Quat) {
	o.update(func(local, prev *core.Transform) {
		prev.Rotation = local.Rotation
		local.Rotation = q
	})
}

// SetTransform replaces all three fields in one step.
func (o *GameObject) SetTransform(t core.Transform) {
	o.update(func(local, prev *core.Transform) {
		*prev = *local
		*local = t
	})
}

// CalculateDerivedData republishes the snapshot from the current local
// transform, the parent's world matrix and the graphics bounds.
func (o *GameObject) CalculateDerivedData() {
	o.update(func(local, prev *core.Transform) {})
}

func (o *GameObject) update(fn func(local, prev *core.Transform)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.state.Load()
	local, prev := cur.Local, cur.Previous
	fn(&local, &prev)
	o.publishLocked(local, prev, cur.Version)
}

// refresh recomputes the world matrix if the parent moved since the last
// publish. It reports whether a new snapshot was stored.
func (o *GameObject) refresh() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.state.Load()
	_, parentVersion := o.parentWorld()
	if parentVersion == cur.ParentVersion {
		return false
	}
	o.publishLocked(cur.Local, cur.Previous, cur.Version)
	return true
}

func (o *GameObject) publishLocked(local, prev core.Transform, version uint64) {
	parentWorld, parentVersion := o.parentWorld()
	next := core.NewTransformState(local, prev, parentWorld)
	if g := o.Graphics(); g != nil && g.Model != nil {
		next = next.WithBounds(g.Model.Bounds)
	}
	next.ParentVersion = parentVersion
	next.Version = version + 1
	o.state.Store(&next)
}

// parentWorld returns the parent's world matrix and snapshot version, or the
// identity with version 0 for roots.
func (o *GameObject) parentWorld() (mgl32.Mat4, uint64) {
	p := o.parent.Load()
	if p == nil {
		return mgl32.Ident4(), 0
	}
	st := p.state.Load()
	return st.World, st.Version
}
