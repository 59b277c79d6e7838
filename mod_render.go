package zenith

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/zenith3d/zenith/rt/core"
)

// DrawCall is one visible object handed to the renderer.
type DrawCall struct {
	Object GameObjectId
	Name   string
	Model  *ModelAsset
	World  mgl32.Mat4
	Bounds core.AABBox
	// Distance from the camera to the bounds center.
	Distance float32
}

// Renderer receives draw calls for one frame. The GPU backend lives behind it.
type Renderer interface {
	BeginFrame(camera *core.Camera)
	Draw(call DrawCall)
	EndFrame()
}

type RenderStats struct {
	Visited int
	Drawn   int
	Culled  int
	// Graphics present but not Visible.
	Hidden int
}

// RecordingRenderer keeps the draw calls of the last frame in memory.
type RecordingRenderer struct {
	mu     sync.Mutex
	frames int
	calls  []DrawCall
	last   []DrawCall
}

func (r *RecordingRenderer) BeginFrame(camera *core.Camera) {
	r.mu.Lock()
	r.calls = r.calls[:0]
	r.mu.Unlock()
}

func (r *RecordingRenderer) Draw(call DrawCall) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *RecordingRenderer) EndFrame() {
	r.mu.Lock()
	r.frames++
	r.last = append(r.last[:0], r.calls...)
	r.mu.Unlock()
}

// Calls returns a copy of the last completed frame.
func (r *RecordingRenderer) Calls() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DrawCall(nil), r.last...)
}

func (r *RecordingRenderer) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// SceneDriver updates transforms and submits visible objects each frame.
type SceneDriver struct {
	scene  *Scene
	logger Logger

	mu        sync.Mutex
	frame     uint64
	lastStats RenderStats
	destroyed int
}

func NewSceneDriver(scene *Scene, logger Logger) *SceneDriver {
	logger = Scoped(logger, "render")
	d := &SceneDriver{scene: scene, logger: logger}
	scene.OnObjectDestroyed(func(ev ObjectDestroyedEvent) {
		d.mu.Lock()
		d.destroyed++
		d.mu.Unlock()
		logger.Debugf("object %v (%s) destroyed", ev.Id, ev.Name)
	})
	return d
}

// UpdateTransforms propagates world matrices; see the package function.
func (d *SceneDriver) UpdateTransforms() int {
	return UpdateTransforms(d.scene)
}

// Render culls every active object with bounds against the camera frustum and
// submits the survivors. Siblings are visited last to first.
func (d *SceneDriver) Render(camera *core.Camera, r Renderer) RenderStats {
	var stats RenderStats
	frustum := camera.Frustum()

	r.BeginFrame(camera)
	d.scene.WalkReverse(func(o *GameObject, _ int) bool {
		if !o.Active() {
			return false
		}
		stats.Visited++

		g := o.Graphics()
		if g == nil || g.Model == nil {
			return true
		}
		if !g.Visible {
			stats.Hidden++
			return true
		}

		st := o.Transform()
		if !st.HasBounds || !frustum.ContainsAABB(st.Bounds) {
			stats.Culled++
			return true
		}

		stats.Drawn++
		r.Draw(DrawCall{
			Object:   o.Id(),
			Name:     o.Name(),
			Model:    g.Model,
			World:    st.World,
			Bounds:   st.Bounds,
			Distance: st.Bounds.Centroid().Sub(camera.Position).Len(),
		})
		return true
	})
	r.EndFrame()

	d.mu.Lock()
	d.frame++
	d.lastStats = stats
	d.mu.Unlock()
	return stats
}

func (d *SceneDriver) LastStats() RenderStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastStats
}

func (d *SceneDriver) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Destroyed counts objects removed from the scene since the driver was created.
func (d *SceneDriver) Destroyed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// RenderTarget holds the renderer used by the render system.
type RenderTarget struct {
	Renderer Renderer
}

// RenderModule installs the scene driver, a camera if none is present, and the
// systems updating transforms and rendering each frame.
type RenderModule struct {
	Renderer Renderer
	Camera   *core.Camera
}

func (m RenderModule) Install(app *App, cmd *Commands) {
	renderer := m.Renderer
	if renderer == nil {
		renderer = &RecordingRenderer{}
	}
	if _, ok := Resource[core.Camera](app); !ok {
		camera := m.Camera
		if camera == nil {
			camera = core.NewCamera()
		}
		cmd.AddResources(camera)
	}
	cmd.AddResources(
		NewSceneDriver(app.Scene(), app.Logger()),
		&RenderTarget{Renderer: renderer},
	)

	app.UseSystem(
		System(sceneTransformSystem).
			InStage(PreRender).
			RunAlways(),
	).UseSystem(
		System(renderSystem).
			InStage(Render).
			RunAlways(),
	)
}

func sceneTransformSystem(driver *SceneDriver) {
	driver.UpdateTransforms()
}

func renderSystem(driver *SceneDriver, camera *core.Camera, target *RenderTarget) {
	driver.Render(camera, target.Renderer)
}
