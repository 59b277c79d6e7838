package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"github.com/zenith3d/zenith"
	"github.com/zenith3d/zenith/rt/bvh"
	"github.com/zenith3d/zenith/rt/core"
	"github.com/zenith3d/zenith/rt/debug"
)

// Build the spatial index for a scene and display its statistics.
func ShowBVH(ctx *cli.Context) error {
	w, err := loadWorld(ctx)
	if err != nil {
		return err
	}
	if err := w.refreshIndex(); err != nil {
		return err
	}

	w.logger.Infof("bvh statistics\n%s", bvhStatsTable(w.index.BVH()))
	return nil
}

func bvhStatsTable(b *bvh.BVH) string {
	stats := b.Stats()
	opts := b.Options()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Split method", opts.SplitMethod.String()})
	table.Append([]string{"Max leaf size", fmt.Sprintf("%d", opts.MaxNodePrimitives)})
	table.Append([]string{"Primitives", fmt.Sprintf("%d", stats.Primitives)})
	table.Append([]string{"Nodes", fmt.Sprintf("%d", stats.Nodes)})
	table.Append([]string{"Leaves", fmt.Sprintf("%d", stats.Leaves)})
	table.Append([]string{"Depth", fmt.Sprintf("%d", stats.Depth)})
	table.Append([]string{"Largest leaf", fmt.Sprintf("%d", stats.MaxLeafPrimitives)})
	table.Append([]string{"Node data", fmt.Sprintf("%d bytes", stats.Nodes*bvh.NodeSize)})
	table.SetFooter([]string{"Build time", stats.BuildTime.String()})
	table.Render()
	return buf.String()
}

// Cast a ray into a scene and list every object it enters.
func Pick(ctx *cli.Context) error {
	w, err := loadWorld(ctx)
	if err != nil {
		return err
	}
	if err := w.refreshIndex(); err != nil {
		return err
	}

	var ray core.Ray
	switch {
	case ctx.IsSet("pixel"):
		x, y, err := parseVec2(ctx.String("pixel"))
		if err != nil {
			return fmt.Errorf("--pixel: %w", err)
		}
		cam, err := w.camera(ctx)
		if err != nil {
			return err
		}
		ray = cam.ScreenRay(x, y, float32(w.config.Camera.Width), float32(w.config.Camera.Height))
	case ctx.IsSet("origin") && ctx.IsSet("dir"):
		origin, err := parseVec3(ctx.String("origin"))
		if err != nil {
			return fmt.Errorf("--origin: %w", err)
		}
		dir, err := parseVec3(ctx.String("dir"))
		if err != nil {
			return fmt.Errorf("--dir: %w", err)
		}
		if dir.Len() == 0 {
			return errors.New("--dir must not be zero")
		}
		ray = core.NewRay(origin, dir)
	default:
		return errors.New("either --pixel or both --origin and --dir are required")
	}

	hits := w.index.RaycastAll(ray)
	if len(hits) == 0 {
		w.logger.Infof("ray %v -> %v hit nothing", ray.Origin, ray.Direction)
		return nil
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Object", "Name", "Distance", "Point"})
	for _, h := range hits {
		table.Append([]string{
			h.Object.String(),
			w.objectName(h.Object),
			fmt.Sprintf("%.3f", h.Distance),
			fmt.Sprintf("%.3f, %.3f, %.3f", h.Point.X(), h.Point.Y(), h.Point.Z()),
		})
	}
	table.Render()
	w.logger.Infof("ray hits, nearest first\n%s", buf.String())
	return nil
}

// Run headless frames and display what the last one drew.
func RenderFrames(ctx *cli.Context) error {
	w, err := loadWorld(ctx)
	if err != nil {
		return err
	}
	if _, err := w.camera(ctx); err != nil {
		return err
	}

	frames := ctx.Int("frames")
	if frames < 1 {
		return errors.New("--frames must be positive")
	}
	ran := w.app.RunFrames(frames)

	driver, _ := zenith.Resource[zenith.SceneDriver](w.app)
	stats := driver.LastStats()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Object", "Name", "Distance"})
	if target, ok := zenith.Resource[zenith.RenderTarget](w.app); ok {
		if rec, ok := target.Renderer.(*zenith.RecordingRenderer); ok {
			for _, call := range rec.Calls() {
				table.Append([]string{call.Object.String(), call.Name, fmt.Sprintf("%.2f", call.Distance)})
			}
		}
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d frames", ran),
		fmt.Sprintf("visited %d, culled %d, hidden %d", stats.Visited, stats.Culled, stats.Hidden),
		fmt.Sprintf("drawn %d", stats.Drawn),
	})
	table.Render()
	w.logger.Infof("last frame\n%s", buf.String())
	return nil
}

// Draw the node bounds of the scene's BVH into a PNG file.
func WriteImage(ctx *cli.Context) error {
	w, err := loadWorld(ctx)
	if err != nil {
		return err
	}
	if err := w.refreshIndex(); err != nil {
		return err
	}

	opts := debug.DefaultImageOptions()
	opts.Width = ctx.Int("width")
	opts.Height = ctx.Int("height")
	opts.MaxDepth = ctx.Int("depth")
	switch strings.ToLower(ctx.String("projection")) {
	case "xz":
		opts.Projection = debug.ProjectXZ
	case "xy":
		opts.Projection = debug.ProjectXY
	case "zy":
		opts.Projection = debug.ProjectZY
	default:
		return fmt.Errorf("unknown projection %q", ctx.String("projection"))
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.New("image size must be positive")
	}

	img := debug.RenderBVH(w.index.BVH(), opts)

	out := ctx.String("out")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := debug.WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.logger.Infof("wrote %dx%d bvh image to %s", opts.Width, opts.Height, out)
	return nil
}
