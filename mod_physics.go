package zenith

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/zenith3d/zenith/rt/core"
)

// RigidBodyTransform is the pose of one body as reported by the physics engine.
type RigidBodyTransform struct {
	Object   GameObjectId
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// PhysicsResults is one step's worth of body poses.
type PhysicsResults struct {
	Step   uint64
	Bodies []RigidBodyTransform
}

// PhysicsBodyState is what the engine side needs to know about a body.
type PhysicsBodyState struct {
	Object   GameObjectId
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Bounds   core.AABBox
	Static   bool
	Mass     float32
}

type PhysicsSnapshot struct {
	Bodies []PhysicsBodyState
	Dt     float32
}

// PhysicsProxy is the lock-free mailbox between the frame loop and an
// external physics engine running on its own goroutine.
type PhysicsProxy struct {
	latestResults atomic.Pointer[PhysicsResults]
	pendingState  atomic.Pointer[PhysicsSnapshot]
}

// Publish is called by the physics engine after each step. Unconsumed results
// are replaced.
func (p *PhysicsProxy) Publish(results *PhysicsResults) {
	p.latestResults.Store(results)
}

// TakeResults returns the latest results once.
func (p *PhysicsProxy) TakeResults() *PhysicsResults {
	return p.latestResults.Swap(nil)
}

// TakeSnapshot is called by the physics engine to pick up the scene state.
func (p *PhysicsProxy) TakeSnapshot() *PhysicsSnapshot {
	return p.pendingState.Swap(nil)
}

type PhysicsModule struct{}

func (m PhysicsModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&PhysicsProxy{})

	app.UseSystem(
		System(PhysicsSyncSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

// PhysicsSyncSystem applies the latest body poses to non-static rigid bodies
// and publishes the current scene state back to the engine.
func PhysicsSyncSystem(scene *Scene, time *Time, proxy *PhysicsProxy) {
	ApplyPhysicsResults(scene, proxy.TakeResults())

	snap := &PhysicsSnapshot{Dt: time.DeltaSeconds()}
	scene.Walk(func(o *GameObject, _ int) bool {
		if !o.Active() {
			return false
		}
		rb := o.RigidBody()
		if rb == nil {
			return true
		}
		st := o.Transform()
		snap.Bodies = append(snap.Bodies, PhysicsBodyState{
			Object:   o.Id(),
			Position: st.Local.Position,
			Rotation: st.Local.Rotation,
			Bounds:   st.Bounds,
			Static:   rb.Static,
			Mass:     rb.Mass,
		})
		return true
	})
	proxy.pendingState.Store(snap)
}

// ApplyPhysicsResults writes body poses into the scene and returns how many
// objects moved. Unknown, destroyed and static bodies are ignored.
func ApplyPhysicsResults(scene *Scene, results *PhysicsResults) int {
	if results == nil {
		return 0
	}
	applied := 0
	for _, body := range results.Bodies {
		o, ok := scene.Get(body.Object)
		if !ok || o.IsDestroyed() {
			continue
		}
		rb := o.RigidBody()
		if rb == nil || rb.Static {
			continue
		}
		t := o.Transform().Local
		t.Position = body.Position
		t.Rotation = body.Rotation
		o.SetTransform(t)
		applied++
	}
	return applied
}

// PhysicsRaycast answers a segment query through the spatial index. The index
// is rebuilt in PostUpdate without locking, so call this from a frame-loop
// system, never from the physics goroutine. Results the engine needs go out
// through the snapshot.
func PhysicsRaycast(index *SpatialIndex, from, to mgl32.Vec3) (RaycastHit, bool) {
	d := to.Sub(from)
	length := d.Len()
	if length == 0 {
		return RaycastHit{}, false
	}
	r := core.NewRay(from, d)
	r.TMax = length
	return index.Raycast(r)
}

// PhysicsOverlaps is the broadphase query for a body's bounds. Frame loop
// only, like PhysicsRaycast.
func PhysicsOverlaps(index *SpatialIndex, box core.AABBox) []GameObjectId {
	return index.QueryAABB(box)
}
