package zenith

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/zenith3d/zenith/rt/core"
)

type AssetId string

type ModelShape uint8

const (
	ShapeBox ModelShape = iota
	ShapeSphere
)

// ModelAsset is a drawable model. Bounds is its local-space AABB.
type ModelAsset struct {
	Id     AssetId
	Name   string
	Shape  ModelShape
	Bounds core.AABBox
}

type AssetServer struct {
	mu     sync.RWMutex
	models map[AssetId]*ModelAsset
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewAssetServer())
}

func NewAssetServer() *AssetServer {
	return &AssetServer{models: make(map[AssetId]*ModelAsset)}
}

// CreateCubeModel registers a box of the given size centered on the origin.
func (server *AssetServer) CreateCubeModel(width, height, depth float32) *ModelAsset {
	half := mgl32.Vec3{width, height, depth}.Mul(0.5)
	return server.add("cube", ShapeBox, core.NewAABBox(half.Mul(-1), half))
}

// CreateSphereModel registers a sphere centered on the origin.
func (server *AssetServer) CreateSphereModel(radius float32) *ModelAsset {
	r := mgl32.Vec3{radius, radius, radius}
	return server.add("sphere", ShapeSphere, core.NewAABBox(r.Mul(-1), r))
}

// CreateBoxModel registers a box spanning the two corners.
func (server *AssetServer) CreateBoxModel(min, max mgl32.Vec3) *ModelAsset {
	return server.add("box", ShapeBox, core.NewAABBox(min, max))
}

func (server *AssetServer) Model(id AssetId) (*ModelAsset, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	m, ok := server.models[id]
	return m, ok
}

func (server *AssetServer) Len() int {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return len(server.models)
}

func (server *AssetServer) add(name string, shape ModelShape, bounds core.AABBox) *ModelAsset {
	m := &ModelAsset{
		Id:     makeAssetId(),
		Name:   name,
		Shape:  shape,
		Bounds: bounds,
	}
	server.mu.Lock()
	server.models[m.Id] = m
	server.mu.Unlock()
	return m
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
