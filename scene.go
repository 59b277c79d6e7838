package zenith

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// SceneDef defines the initial state of a scene.
type SceneDef struct {
	Name    string          `yaml:"name"`
	Objects []GameObjectDef `yaml:"objects"`
}

// GameObjectDef defines one object and its subtree.
type GameObjectDef struct {
	Name     string     `yaml:"name"`
	Position mgl32.Vec3 `yaml:"position"`
	// Zero means unit scale.
	Scale mgl32.Vec3 `yaml:"scale"`
	// Euler angles in degrees, applied in X, Y, Z order.
	Rotation mgl32.Vec3 `yaml:"rotation"`
	Inactive bool       `yaml:"inactive"`

	Model     *ModelDef     `yaml:"model"`
	Lifetime  float32       `yaml:"lifetime"`
	RigidBody *RigidBodyDef `yaml:"rigidbody"`

	Children []GameObjectDef `yaml:"children"`
}

type ModelDef struct {
	// "cube", "sphere" or "box"
	Type string `yaml:"type"`
	// cube: width height depth; sphere: radius; box: minX minY minZ maxX maxY maxZ
	Params []float32 `yaml:"params"`
	Hidden bool      `yaml:"hidden"`
}

type RigidBodyDef struct {
	Static bool    `yaml:"static"`
	Mass   float32 `yaml:"mass"`
}

func ParseSceneDef(data []byte) (*SceneDef, error) {
	var def SceneDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &def, nil
}

func LoadSceneFile(path string) (*SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	def, err := ParseSceneDef(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadScene iterates through the SceneDef and spawns objects. It returns the
// root ids in definition order.
func LoadScene(cmd *Commands, assets *AssetServer, def *SceneDef) ([]GameObjectId, error) {
	var roots []GameObjectId
	for i := range def.Objects {
		id, err := spawnObject(cmd, assets, &def.Objects[i], NoObject)
		if err != nil {
			return roots, err
		}
		roots = append(roots, id)
	}
	return roots, nil
}

func spawnObject(cmd *Commands, assets *AssetServer, def *GameObjectDef, parent GameObjectId) (GameObjectId, error) {
	var model *ModelAsset
	if def.Model != nil {
		m, err := createModel(assets, def.Model)
		if err != nil {
			return NoObject, fmt.Errorf("object %q: %w", def.Name, err)
		}
		model = m
	}

	var obj *GameObject
	if parent == NoObject {
		obj = cmd.Spawn(def.Name)
	} else {
		o, err := cmd.SpawnChild(parent, def.Name)
		if err != nil {
			return NoObject, fmt.Errorf("object %q: %w", def.Name, err)
		}
		obj = o
	}

	t := obj.Transform().Local
	t.Position = def.Position
	if def.Scale != (mgl32.Vec3{}) {
		t.Scale = def.Scale
	}
	t.Rotation = eulerDegrees(def.Rotation)
	obj.SetTransform(t)

	if model != nil {
		obj.AddComponent(&GraphicsComponent{Model: model, Visible: !def.Model.Hidden})
	}
	if def.Lifetime > 0 {
		obj.AddComponent(&LifetimeComponent{TimeLeft: def.Lifetime})
	}
	if def.RigidBody != nil {
		obj.AddComponent(&RigidBodyComponent{Static: def.RigidBody.Static, Mass: def.RigidBody.Mass})
	}
	if def.Inactive {
		obj.SetActive(false)
	}

	for i := range def.Children {
		if _, err := spawnObject(cmd, assets, &def.Children[i], obj.Id()); err != nil {
			return obj.Id(), err
		}
	}
	return obj.Id(), nil
}

func createModel(assets *AssetServer, def *ModelDef) (*ModelAsset, error) {
	p := def.Params
	switch def.Type {
	case "cube":
		switch len(p) {
		case 0:
			return assets.CreateCubeModel(1, 1, 1), nil
		case 1:
			return assets.CreateCubeModel(p[0], p[0], p[0]), nil
		case 3:
			return assets.CreateCubeModel(p[0], p[1], p[2]), nil
		}
	case "sphere":
		switch len(p) {
		case 0:
			return assets.CreateSphereModel(0.5), nil
		case 1:
			return assets.CreateSphereModel(p[0]), nil
		}
	case "box":
		if len(p) == 6 {
			return assets.CreateBoxModel(mgl32.Vec3{p[0], p[1], p[2]}, mgl32.Vec3{p[3], p[4], p[5]}), nil
		}
	default:
		return nil, fmt.Errorf("unknown model type %q", def.Type)
	}
	return nil, fmt.Errorf("model %q: unexpected %d params", def.Type, len(p))
}

func eulerDegrees(r mgl32.Vec3) mgl32.Quat {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(r.X()),
		mgl32.DegToRad(r.Y()),
		mgl32.DegToRad(r.Z()),
		mgl32.XYZ,
	)
}
