package main

import (
	"os"
	"runtime"

	"github.com/Algorhythm-sxv/culet/cmd"
	"github.com/urfave/cli"
)

func init() {
	// glfw event handling for the interactive renderer must run on the
	// main OS thread.
	runtime.LockOSThread()
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "culet"
	app.Usage = "render faceted gemstones using recursive ray tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}

	renderFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 512,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 512,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "spp",
			Value: 16,
			Usage: "samples per pixel",
		},
		cli.IntFlag{
			Name:  "bounces",
			Value: 8,
			Usage: "max interior ray bounces (1-16)",
		},
		cli.StringFlag{
			Name:  "light-model",
			Value: "cosine",
			Usage: "lighting model for escaping rays (cosine or isometric)",
		},
		cli.Float64Flag{
			Name:  "light-intensity",
			Value: 1.0,
			Usage: "intensity of the camera-aligned light",
		},
		cli.Float64Flag{
			Name:  "gamma",
			Value: 2.2,
			Usage: "output gamma",
		},
		cli.StringFlag{
			Name:  "background",
			Value: "0,0,0",
			Usage: "background color as comma separated rgb values in [0,1]",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "number of render workers; defaults to one per logical cpu",
		},
		cli.IntFlag{
			Name:  "seed",
			Usage: "seed for the per-pixel sample jitter",
		},
		cli.StringFlag{
			Name:  "settings",
			Usage: "yaml file with render settings; flags win over file values",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj or stl file, build a BVH tree to
optimize ray intersection tests and package scene elements in a GPU-friendly
format.

The optimized scene data is then written to a zip archive which can be supplied
as an argument to the render and info commands.`,
			ArgsUsage: "scene_file1.obj scene_file2.stl ...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "archive filename; defaults to the scene filename with a zip extension",
				},
			},
			Action: cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display compiled scene statistics or the host worker table",
			ArgsUsage: "[scene file]",
			Action:    cmd.ShowInfo,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a single frame and save it as a png image.`,
					ArgsUsage:   "scene file",
					Flags: append(renderFlags,
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						}),
					Action: cmd.RenderFrame,
				},
				{
					Name:        "orbit",
					Usage:       "render turntable animation",
					Description: `Orbit the camera once around its target and save the frames as an animated gif.`,
					ArgsUsage:   "scene file",
					Flags: append(renderFlags,
						cli.IntFlag{
							Name:  "frames",
							Value: 60,
							Usage: "number of animation frames for a full turn",
						},
						cli.IntFlag{
							Name:  "delay",
							Value: 4,
							Usage: "per frame delay in 10ms units",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "orbit.gif",
							Usage: "image filename for the animation",
						}),
					Action: cmd.RenderOrbit,
				},
				{
					Name:        "interactive",
					Usage:       "render interactive view of the scene",
					Description: `Open an opengl window that progressively refines the frame while the camera can be orbited, panned and dollied with the mouse.`,
					ArgsUsage:   "scene file",
					Flags:       renderFlags,
					Action:      cmd.RenderInteractive,
				},
			},
		},
	}

	app.Run(os.Args)
}
