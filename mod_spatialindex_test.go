package zenith

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenith3d/zenith/rt/bvh"
	"github.com/zenith3d/zenith/rt/core"
)

// row spawns unit cubes centered at x = 0, 5, 10.
func row(t *testing.T, mode IndexMode) (*Scene, *SpatialIndex, []*GameObject) {
	t.Helper()
	scene := NewScene()
	assets := NewAssetServer()
	var objs []*GameObject
	for i, n := range []string{"first", "second", "third"} {
		objs = append(objs, cubeAt(scene, assets, n, mgl32.Vec3{float32(i) * 5, 0, 0}))
	}
	index := NewSpatialIndex(scene, bvh.DefaultOptions(), mode, nil)
	rebuilt, err := index.Refresh()
	require.NoError(t, err)
	require.True(t, rebuilt)
	return scene, index, objs
}

func alongX() core.Ray {
	return core.NewRay(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0})
}

func TestSpatialIndexRaycast(t *testing.T) {
	_, index, objs := row(t, IndexStatic)

	hit, ok := index.Raycast(alongX())
	require.True(t, ok)
	assert.Equal(t, objs[0].Id(), hit.Object)
	assert.InDelta(t, 4.5, hit.Distance, 1e-5)
	assert.InDelta(t, -0.5, hit.Point.X(), 1e-5)

	all := index.RaycastAll(alongX())
	require.Len(t, all, 3)
	for i, h := range all {
		assert.Equal(t, objs[i].Id(), h.Object)
	}

	_, ok = index.Raycast(core.NewRay(mgl32.Vec3{-5, 3, 0}, mgl32.Vec3{1, 0, 0}))
	assert.False(t, ok)

	short := alongX()
	short.TMax = 4
	_, ok = index.Raycast(short)
	assert.False(t, ok)
}

func TestSpatialIndexStaticIgnoresMoves(t *testing.T) {
	_, index, objs := row(t, IndexStatic)

	objs[0].SetPosition(mgl32.Vec3{0, 100, 0})
	assert.False(t, index.NeedsRebuild())
	rebuilt, err := index.Refresh()
	require.NoError(t, err)
	assert.False(t, rebuilt)

	// Still answers with the bounds captured at build time.
	hit, ok := index.Raycast(alongX())
	require.True(t, ok)
	assert.Equal(t, objs[0].Id(), hit.Object)

	index.MarkDirty()
	rebuilt, err = index.Refresh()
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 2, index.Rebuilds())

	hit, ok = index.Raycast(alongX())
	require.True(t, ok)
	assert.Equal(t, objs[1].Id(), hit.Object)
}

func TestSpatialIndexDynamicFollowsMoves(t *testing.T) {
	_, index, objs := row(t, IndexDynamic)

	rebuilt, err := index.Refresh()
	require.NoError(t, err)
	assert.False(t, rebuilt)

	objs[0].SetPosition(mgl32.Vec3{0, 100, 0})
	rebuilt, err = index.Refresh()
	require.NoError(t, err)
	assert.True(t, rebuilt)

	hit, ok := index.Raycast(alongX())
	require.True(t, ok)
	assert.Equal(t, objs[1].Id(), hit.Object)
	assert.InDelta(t, 9.5, hit.Distance, 1e-5)
}

func TestSpatialIndexStructureChangeRebuilds(t *testing.T) {
	scene, index, objs := row(t, IndexStatic)

	objs[1].SetActive(false)
	assert.True(t, index.NeedsRebuild())
	_, err := index.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 2, index.BVH().Len())

	extra := scene.NewGameObject("extra")
	extra.AddComponent(&GraphicsComponent{Model: NewAssetServer().CreateCubeModel(1, 1, 1)})
	assert.True(t, index.NeedsRebuild())
	_, err = index.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 3, index.BVH().Len())
}

func TestSpatialIndexSkipsDestroyed(t *testing.T) {
	scene, index, objs := row(t, IndexStatic)
	require.NoError(t, scene.Destroy(objs[0].Id()))

	// Not yet rebuilt, but the destroyed object is never reported.
	hit, ok := index.Raycast(alongX())
	require.True(t, ok)
	assert.Equal(t, objs[1].Id(), hit.Object)
	assert.Len(t, index.RaycastAll(alongX()), 2)
	assert.Empty(t, index.QueryAABB(core.NewAABBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})))
}

func TestSpatialIndexQueryAABB(t *testing.T) {
	_, index, objs := row(t, IndexStatic)

	got := index.QueryAABB(core.NewAABBox(mgl32.Vec3{4, -1, -1}, mgl32.Vec3{6, 1, 1}))
	assert.Equal(t, []GameObjectId{objs[1].Id()}, got)

	got = index.QueryAABB(core.NewAABBox(mgl32.Vec3{-10, -10, -10}, mgl32.Vec3{20, 10, 10}))
	assert.ElementsMatch(t, []GameObjectId{objs[0].Id(), objs[1].Id(), objs[2].Id()}, got)
}

func TestSpatialIndexPick(t *testing.T) {
	_, index, objs := row(t, IndexStatic)
	cam := lookingDownZ()

	hit, ok := index.Pick(cam, 50, 50, 100, 100)
	require.True(t, ok)
	assert.Equal(t, objs[0].Id(), hit.Object)
	assert.InDelta(t, 0.5, hit.Point.Z(), 1e-2)

	_, ok = index.Pick(cam, 0, 0, 100, 100)
	assert.False(t, ok)
}

func TestSpatialIndexModuleRefreshesEachFrame(t *testing.T) {
	app := NewAppBuilder().UseModule(
		AssetServerModule{},
		SpatialIndexModule{Mode: IndexDynamic},
	).Build()
	assets, _ := Resource[AssetServer](app)
	index, ok := Resource[SpatialIndex](app)
	require.True(t, ok)
	assert.Equal(t, IndexDynamic, index.Mode())

	obj := cubeAt(app.Scene(), assets, "target", mgl32.Vec3{0, 0, 0})
	app.RunFrames(1)
	assert.Equal(t, 1, index.Rebuilds())

	app.RunFrames(1)
	assert.Equal(t, 1, index.Rebuilds())

	obj.SetPosition(mgl32.Vec3{0, 0, 3})
	app.RunFrames(1)
	assert.Equal(t, 2, index.Rebuilds())

	hit, ok := index.Raycast(core.NewRay(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, -1}))
	require.True(t, ok)
	assert.InDelta(t, 6.5, hit.Distance, 1e-5)
}

func TestParseIndexMode(t *testing.T) {
	m, err := ParseIndexMode("Dynamic")
	require.NoError(t, err)
	assert.Equal(t, IndexDynamic, m)

	m, err = ParseIndexMode("")
	require.NoError(t, err)
	assert.Equal(t, IndexStatic, m)

	_, err = ParseIndexMode("sometimes")
	assert.Error(t, err)
}

// shallowOptions allows a single leaf of one primitive, so any two indexed
// objects exceed the depth limit.
func shallowOptions() bvh.Options {
	opts := bvh.DefaultOptions()
	opts.MaxNodePrimitives = 1
	opts.MaxDepth = 1
	return opts
}

func TestSpatialIndexFailedBuildWaitsForChange(t *testing.T) {
	scene := NewScene()
	assets := NewAssetServer()
	cubeAt(scene, assets, "left", mgl32.Vec3{-2, 0, 0})
	right := cubeAt(scene, assets, "right", mgl32.Vec3{2, 0, 0})
	index := NewSpatialIndex(scene, shallowOptions(), IndexStatic, nil)

	rebuilt, err := index.Refresh()
	assert.True(t, rebuilt)
	require.ErrorIs(t, err, bvh.ErrDepthExceeded)
	assert.ErrorIs(t, index.Err(), bvh.ErrDepthExceeded)
	assert.Equal(t, 0, index.Rebuilds())
	assert.Equal(t, 0, index.BVH().Len())

	// Nothing changed, so no retry.
	assert.False(t, index.NeedsRebuild())
	rebuilt, err = index.Refresh()
	assert.False(t, rebuilt)
	assert.NoError(t, err)

	index.MarkDirty()
	rebuilt, err = index.Refresh()
	assert.True(t, rebuilt)
	assert.ErrorIs(t, err, bvh.ErrDepthExceeded)

	// Dropping to one object makes the scene buildable again.
	right.SetActive(false)
	rebuilt, err = index.Refresh()
	assert.True(t, rebuilt)
	require.NoError(t, err)
	assert.NoError(t, index.Err())
	assert.Equal(t, 1, index.Rebuilds())
}

func TestSpatialIndexSystemLogsFailedBuildOnce(t *testing.T) {
	var out bytes.Buffer
	app := NewAppBuilder().UseModule(
		LoggingModule{Prefix: "test", Out: &out, ErrOut: &out},
		AssetServerModule{},
		SpatialIndexModule{Options: shallowOptions()},
	).Build()
	assets, _ := Resource[AssetServer](app)
	cubeAt(app.Scene(), assets, "left", mgl32.Vec3{-2, 0, 0})
	cubeAt(app.Scene(), assets, "right", mgl32.Vec3{2, 0, 0})

	app.RunFrames(5)
	const failure = "ERROR: spatial index: rebuild spatial index"
	assert.Equal(t, 1, strings.Count(out.String(), failure))

	cubeAt(app.Scene(), assets, "middle", mgl32.Vec3{0, 0, 0})
	app.RunFrames(2)
	assert.Equal(t, 2, strings.Count(out.String(), failure))
}
