package cmd

import (
	"github.com/achilleasa/polaris-accel/accel"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/urfave/cli"
)

// Build an acceleration structure and display its statistics.
func BuildAccel(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	cfg, err := accelConfig(ctx)
	if err != nil {
		return err
	}

	meshes, err := loadMeshes(ctx)
	if err != nil {
		return err
	}

	acc, err := buildAccel(cfg, meshes)
	if err != nil {
		return err
	}

	logger.Noticef("scene bounds: %s", acc.BBox())
	logger.Noticef("acceleration structure statistics\n%s", accel.StatsTable([]string{cfg.Kind.String()}, []accel.Accel{acc}))
	return nil
}

// Create and build an acceleration structure over meshes.
func buildAccel(cfg accel.Config, meshes []*scene.Mesh) (accel.Accel, error) {
	acc, err := accel.New(cfg)
	if err != nil {
		return nil, err
	}

	for _, mesh := range meshes {
		if err := acc.AddMesh(mesh); err != nil {
			return nil, err
		}
	}

	logger.Infof("building %s over %d meshes", cfg.Kind, len(meshes))
	if err := acc.Build(); err != nil {
		return nil, err
	}
	return acc, nil
}
