package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/achilleasa/polaris-accel/asset/reader"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
	"github.com/urfave/cli"
)

// Flags that select the meshes to index.
var SceneFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "random",
		Usage: "generate this many random triangles instead of loading mesh files",
	},
	cli.IntFlag{
		Name:  "random-meshes",
		Value: 1,
		Usage: "number of meshes to spread the random triangles over",
	},
	cli.Float64Flag{
		Name:  "random-size",
		Value: 1.0,
		Usage: "edge length of random triangles",
	},
	cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "seed for the random triangle generator",
	},
	cli.Float64Flag{
		Name:  "scale",
		Value: 1.0,
		Usage: "uniform scale applied to loaded meshes",
	},
	cli.StringFlag{
		Name:  "rotate",
		Usage: "yaw,pitch,roll rotation in degrees applied to loaded meshes",
	},
	cli.StringFlag{
		Name:  "translate",
		Usage: "x,y,z translation applied to loaded meshes",
	},
}

// Bounds of the procedural scene.
var randomSceneBounds = geometry.BBoxOf(types.Vec3{-50, -50, -50}, types.Vec3{50, 50, 50})

// Load meshes from the wavefront files passed as arguments or generate a
// random scene.
func loadMeshes(ctx *cli.Context) ([]*scene.Mesh, error) {
	if count := ctx.Int("random"); count > 0 {
		meshCount := ctx.Int("random-meshes")
		if meshCount < 1 {
			meshCount = 1
		}
		seed := ctx.Int64("seed")
		size := float32(ctx.Float64("random-size"))

		meshes := make([]*scene.Mesh, 0, meshCount)
		for i := 0; i < meshCount; i++ {
			triCount := count / meshCount
			if i < count%meshCount {
				triCount++
			}
			meshes = append(meshes, scene.RandomMesh(triCount, randomSceneBounds, size, seed+int64(i)))
		}
		logger.Noticef("generated %d random triangles in %d meshes", count, meshCount)
		return meshes, nil
	}

	if ctx.NArg() == 0 {
		return nil, errors.New("missing mesh file arguments; use --random to generate a scene")
	}

	xform, err := meshTransform(ctx)
	if err != nil {
		return nil, err
	}

	var meshes []*scene.Mesh
	for idx := 0; idx < ctx.NArg(); idx++ {
		fileMeshes, err := reader.ReadMeshes(ctx.Args().Get(idx), xform)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, fileMeshes...)
	}
	return meshes, nil
}

// Build the to-world transform from the scale, rotate and translate flags.
// Returns nil if none is set.
func meshTransform(ctx *cli.Context) (*reader.Transform, error) {
	if !ctx.IsSet("scale") && !ctx.IsSet("rotate") && !ctx.IsSet("translate") {
		return nil, nil
	}

	xform := reader.IdentityTransform()
	scale := float32(ctx.Float64("scale"))
	xform.Scale = types.Vec3{scale, scale, scale}

	if ctx.IsSet("rotate") {
		angles, err := parseVec3Flag(ctx.String("rotate"))
		if err != nil {
			return nil, fmt.Errorf("invalid --rotate value: %w", err)
		}
		xform.Rotation = types.QuatFromEuler(angles[0], angles[1], angles[2])
	}

	if ctx.IsSet("translate") {
		offset, err := parseVec3Flag(ctx.String("translate"))
		if err != nil {
			return nil, fmt.Errorf("invalid --translate value: %w", err)
		}
		xform.Translation = offset
	}
	return &xform, nil
}

// Parse a comma separated triplet.
func parseVec3Flag(value string) (types.Vec3, error) {
	tokens := strings.Split(value, ",")
	if len(tokens) != 3 {
		return types.Vec3{}, fmt.Errorf("expected 3 comma separated values; got %d", len(tokens))
	}

	var v types.Vec3
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(strings.TrimSpace(tok), 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
