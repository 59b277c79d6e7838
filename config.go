package zenith

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/zenith3d/zenith/rt/bvh"
	"github.com/zenith3d/zenith/rt/core"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Logging LoggingConfig `toml:"logging"`
	BVH     BVHConfig     `toml:"bvh"`
	Camera  CameraConfig  `toml:"camera"`
}

type LoggingConfig struct {
	Prefix string `toml:"prefix"`
	Debug  bool   `toml:"debug"`
}

type BVHConfig struct {
	SplitMethod       string `toml:"split_method"`
	MaxNodePrimitives int    `toml:"max_node_primitives"`
	Mode              string `toml:"mode"`
	MaxDepth          int    `toml:"max_depth"`
}

type CameraConfig struct {
	FOVDegrees float32 `toml:"fov_degrees"`
	Near       float32 `toml:"near"`
	Far        float32 `toml:"far"`
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
}

func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Prefix: "zenith"},
		BVH: BVHConfig{
			SplitMethod:       bvh.SplitSAH.String(),
			MaxNodePrimitives: bvh.DefaultMaxNodePrimitives,
			Mode:              IndexStatic.String(),
			MaxDepth:          bvh.DefaultMaxDepth,
		},
		Camera: CameraConfig{
			FOVDegrees: 45,
			Near:       0.1,
			Far:        1000,
			Width:      1280,
			Height:     720,
		},
	}
}

// ParseConfig reads TOML over the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := bvh.ParseSplitMethod(c.BVH.SplitMethod); err != nil {
		return fmt.Errorf("%w: bvh.split_method: %v", ErrInvalidConfig, err)
	}
	if _, err := ParseIndexMode(c.BVH.Mode); err != nil {
		return fmt.Errorf("%w: bvh.mode: %v", ErrInvalidConfig, err)
	}
	if c.BVH.MaxNodePrimitives < 1 || c.BVH.MaxNodePrimitives > bvh.MaxNodePrimitivesLimit {
		return fmt.Errorf("%w: bvh.max_node_primitives must be in 1..%d, got %d",
			ErrInvalidConfig, bvh.MaxNodePrimitivesLimit, c.BVH.MaxNodePrimitives)
	}
	if c.BVH.MaxDepth < 1 {
		return fmt.Errorf("%w: bvh.max_depth must be positive, got %d", ErrInvalidConfig, c.BVH.MaxDepth)
	}
	if c.Camera.FOVDegrees <= 0 || c.Camera.FOVDegrees >= 180 {
		return fmt.Errorf("%w: camera.fov_degrees must be in (0, 180), got %v", ErrInvalidConfig, c.Camera.FOVDegrees)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: camera needs 0 < near < far, got %v/%v", ErrInvalidConfig, c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("%w: camera viewport must be positive, got %dx%d", ErrInvalidConfig, c.Camera.Width, c.Camera.Height)
	}
	return nil
}

// BVHOptions converts the [bvh] section. The config must be valid.
func (c Config) BVHOptions(logger bvh.Logger) bvh.Options {
	method, _ := bvh.ParseSplitMethod(c.BVH.SplitMethod)
	return bvh.Options{
		SplitMethod:       method,
		MaxNodePrimitives: c.BVH.MaxNodePrimitives,
		MaxDepth:          c.BVH.MaxDepth,
		Logger:            logger,
	}
}

func (c Config) IndexMode() IndexMode {
	mode, _ := ParseIndexMode(c.BVH.Mode)
	return mode
}

// NewCamera returns the default camera adjusted by the [camera] section.
func (c Config) NewCamera() *core.Camera {
	cam := core.NewCamera()
	cam.FOV = c.Camera.FOVDegrees
	cam.Near = c.Camera.Near
	cam.Far = c.Camera.Far
	cam.Aspect = float32(c.Camera.Width) / float32(c.Camera.Height)
	return cam
}

// Modules returns the engine modules configured by c, in install order.
func (c Config) Modules() []Module {
	return []Module{
		LoggingModule{Prefix: c.Logging.Prefix, Debug: c.Logging.Debug},
		AssetServerModule{},
		HierarchyModule{},
		SpatialIndexModule{Options: c.BVHOptions(nil), Mode: c.IndexMode()},
		RenderModule{Camera: c.NewCamera()},
	}
}
