package cmd

import (
	"github.com/achilleasa/polaris-accel/accel"
	"github.com/urfave/cli"
)

// Flags shared by all commands that construct acceleration structures.
var AccelFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "load acceleration structure settings from a JSON file or URL",
		EnvVar: "POLARIS_ACCEL_CONFIG",
	},
	cli.StringFlag{
		Name:   "accel, a",
		Value:  accel.BVH.String(),
		Usage:  "acceleration structure: brute, bvh, hlbvh or octree",
		EnvVar: "POLARIS_ACCEL",
	},
	cli.IntFlag{
		Name:   "leaf-size",
		Usage:  "leaf threshold for bvh and hlbvh; 0 selects the default",
		EnvVar: "POLARIS_LEAF_SIZE",
	},
	cli.StringFlag{
		Name:   "split",
		Value:  "sah",
		Usage:  "bvh split method: sah or center",
		EnvVar: "POLARIS_SPLIT",
	},
	cli.IntFlag{
		Name:   "max-depth",
		Usage:  "octree max depth; 0 selects the default",
		EnvVar: "POLARIS_MAX_DEPTH",
	},
	cli.IntFlag{
		Name:   "max-prims",
		Usage:  "octree leaf split threshold; 0 selects the default",
		EnvVar: "POLARIS_MAX_PRIMS",
	},
	cli.BoolFlag{
		Name:  "single-mesh",
		Usage: "reject scenes with more than one mesh (brute force only)",
	},
}

// Assemble the accel configuration. Explicitly set flags override the
// values loaded from the config file which in turn override the defaults.
func accelConfig(ctx *cli.Context) (accel.Config, error) {
	cfg := accel.DefaultConfig()
	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = accel.LoadConfig(path); err != nil {
			return cfg, err
		}
		logger.Infof("loaded accel settings from %s", path)
	}

	if ctx.IsSet("accel") || ctx.String("config") == "" {
		kind, err := accel.ParseKind(ctx.String("accel"))
		if err != nil {
			return cfg, err
		}
		cfg.Kind = kind
	}
	if ctx.IsSet("leaf-size") {
		cfg.LeafSize = ctx.Int("leaf-size")
	}
	if ctx.IsSet("split") {
		cfg.SplitMethod = ctx.String("split")
	}
	if ctx.IsSet("max-depth") {
		cfg.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("max-prims") {
		cfg.MaxPrimitives = ctx.Int("max-prims")
	}
	if ctx.IsSet("single-mesh") {
		cfg.SingleMesh = ctx.Bool("single-mesh")
	}

	return cfg, cfg.Validate()
}
