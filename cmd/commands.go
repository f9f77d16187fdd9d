package cmd

import "github.com/urfave/cli"

// Flags accepted by all commands.
var GlobalFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "v",
		Usage: "enable verbose logging",
	},
	cli.BoolFlag{
		Name:  "vv",
		Usage: "enable even more verbose logging",
	},
	cli.StringFlag{
		Name:   "log-level",
		Usage:  "log level: debug, info, notice, warning or error",
		EnvVar: "POLARIS_LOG_LEVEL",
	},
}

// Get the application commands.
func Commands() []cli.Command {
	return []cli.Command{
		{
			Name:  "build",
			Usage: "build an acceleration structure and display its statistics",
			Description: `
Load one or more wavefront obj files (or generate a random triangle soup with
--random), register every mesh with the selected acceleration structure and
build it. Settings are read from the optional --config JSON file and can be
overridden with flags or environment variables.`,
			ArgsUsage: "mesh_file1.obj mesh_file2.obj ...",
			Flags:     append(append([]cli.Flag{}, AccelFlags...), SceneFlags...),
			Action:    BuildAccel,
		},
		{
			Name:  "bench",
			Usage: "compare all acceleration structures against the brute force index",
			Description: `
Build every supported acceleration structure over the same scene, cast a set of
seeded random rays and report build time, query time and the number of
ray-triangle tests per ray. The command fails if any structure disagrees with
the brute force index.`,
			ArgsUsage: "mesh_file1.obj mesh_file2.obj ...",
			Flags: append(append(append([]cli.Flag{}, AccelFlags...), SceneFlags...),
				cli.IntFlag{
					Name:  "rays",
					Value: 10000,
					Usage: "number of random rays",
				},
				cli.Int64Flag{
					Name:  "ray-seed",
					Value: 1,
					Usage: "seed for the random ray generator",
				},
			),
			Action: Bench,
		},
	}
}
