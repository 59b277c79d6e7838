package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "zenith"
	app.Usage = "inspect scenes with the zenith engine core"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML engine config; defaults apply when omitted",
		},
	}

	cameraFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "eye",
			Value: "0,2,20",
			Usage: "camera position as x,y,z",
		},
		cli.StringFlag{
			Name:  "target",
			Value: "0,0,0",
			Usage: "point the camera looks at as x,y,z",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "bvh",
			Usage: "build the spatial index for a scene and print its statistics",
			Description: `
Load a YAML scene definition, propagate transforms and build a BVH over the
world bounds of every active object with a model.`,
			ArgsUsage: "scene.yaml",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "split",
					Usage: "override the split method (sah, middle, equal_counts)",
				},
			},
			Action: ShowBVH,
		},
		{
			Name:      "pick",
			Usage:     "cast a ray into a scene and list the objects it enters",
			ArgsUsage: "scene.yaml",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "origin",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir",
					Usage: "ray direction as x,y,z",
				},
				cli.StringFlag{
					Name:  "pixel",
					Usage: "cast through viewport pixel x,y instead of origin/dir",
				},
			}, cameraFlags...),
			Action: Pick,
		},
		{
			Name:      "render",
			Usage:     "run headless frames and print culling statistics",
			ArgsUsage: "scene.yaml",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "frames, n",
					Value: 1,
					Usage: "number of frames to run",
				},
			}, cameraFlags...),
			Action: RenderFrames,
		},
		{
			Name:      "image",
			Usage:     "draw the BVH node bounds of a scene to a PNG file",
			ArgsUsage: "scene.yaml",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "bvh.png",
					Usage: "image filename",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "image width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "image height",
				},
				cli.StringFlag{
					Name:  "projection, p",
					Value: "xz",
					Usage: "axis plane to project onto (xz, xy, zy)",
				},
				cli.IntFlag{
					Name:  "depth",
					Usage: "outline only the first levels of the tree; 0 draws all",
				},
			},
			Action: WriteImage,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "zenith: %v\n", err)
		os.Exit(1)
	}
}
