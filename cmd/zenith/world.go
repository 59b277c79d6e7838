package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
	"github.com/zenith3d/zenith"
	"github.com/zenith3d/zenith/rt/core"
)

// world is an engine app with one scene file loaded into it.
type world struct {
	app    *zenith.App
	config zenith.Config
	logger zenith.Logger
	index  *zenith.SpatialIndex
}

func loadConfig(ctx *cli.Context) (zenith.Config, error) {
	cfg := zenith.DefaultConfig()
	if path := ctx.GlobalString("config"); path != "" {
		loaded, err := zenith.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if ctx.GlobalBool("v") {
		cfg.Logging.Debug = true
	}
	if ctx.IsSet("split") {
		cfg.BVH.SplitMethod = ctx.String("split")
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func loadWorld(ctx *cli.Context) (*world, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("expected exactly one scene file")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	app := zenith.NewAppBuilder().UseModule(cfg.Modules()...).Build()
	logger := app.Logger()

	sceneFile := ctx.Args().First()
	def, err := zenith.LoadSceneFile(sceneFile)
	if err != nil {
		return nil, err
	}
	assets, _ := zenith.Resource[zenith.AssetServer](app)
	roots, err := zenith.LoadScene(app.Commands(), assets, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sceneFile, err)
	}
	logger.Infof("loaded scene %q: %d roots, %d objects", def.Name, len(roots), app.Scene().Len())

	index, _ := zenith.Resource[zenith.SpatialIndex](app)
	return &world{app: app, config: cfg, logger: logger, index: index}, nil
}

// refreshIndex settles transforms and rebuilds the spatial index.
func (w *world) refreshIndex() error {
	zenith.UpdateTransforms(w.app.Scene())
	return w.index.Rebuild()
}

// camera positions the app's camera from the --eye and --target flags.
func (w *world) camera(ctx *cli.Context) (*core.Camera, error) {
	cam, ok := zenith.Resource[core.Camera](w.app)
	if !ok {
		return nil, errors.New("no camera installed")
	}
	eye, err := parseVec3(ctx.String("eye"))
	if err != nil {
		return nil, fmt.Errorf("--eye: %w", err)
	}
	target, err := parseVec3(ctx.String("target"))
	if err != nil {
		return nil, fmt.Errorf("--target: %w", err)
	}
	cam.Position = eye
	cam.LookAt(target)
	return cam, nil
}

func (w *world) objectName(id zenith.GameObjectId) string {
	if o, ok := w.app.Scene().Get(id); ok {
		return o.Name()
	}
	return "?"
}

func parseVec3(s string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return v, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseVec2(s string) (float32, float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want x,y, got %q", s)
	}
	var out [2]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return 0, 0, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out[0], out[1], nil
}
