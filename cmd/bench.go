package cmd

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/achilleasa/polaris-accel/accel"
	"github.com/achilleasa/polaris-accel/accel/parallel"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/chewxy/math32"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

const (
	// Hit distances reported by different structures may differ by this much.
	benchHitTolerance = 1e-3

	benchGrainSize = 256
)

// The outcome of a single ray query.
type queryResult struct {
	hit bool
	t   float32
}

// Statistics for one benchmarked acceleration structure.
type benchStats struct {
	Name       string
	BuildTime  time.Duration
	QueryTime  time.Duration
	Hits       int
	Mismatches int
	Tests      uint64
	Rays       int
}

// Build every acceleration structure over the same scene and compare their
// query results against the brute force index.
func Bench(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	baseCfg, err := accelConfig(ctx)
	if err != nil {
		return err
	}

	meshes, err := loadMeshes(ctx)
	if err != nil {
		return err
	}

	var (
		rays     []geometry.Ray
		expected []queryResult
		results  []benchStats
	)
	for _, kind := range accel.Kinds {
		cfg := baseCfg
		cfg.Kind = kind
		cfg.SingleMesh = false

		acc, err := buildAccel(cfg, meshes)
		if err != nil {
			return err
		}

		if rays == nil {
			if !acc.BBox().Valid() {
				return fmt.Errorf("bench: the scene contains no triangles")
			}
			rays = scene.RandomRays(acc.BBox(), ctx.Int("rays"), ctx.Int64("ray-seed"))
		}

		stats, found := runQueries(acc, rays)
		stats.Name = kind.String()
		stats.BuildTime = acc.Stats().BuildTime

		// The brute force index runs first and provides the reference results.
		if expected == nil {
			expected = found
		}
		for i, res := range found {
			exp := expected[i]
			if res.hit != exp.hit || (res.hit && math32.Abs(res.t-exp.t) > benchHitTolerance) {
				stats.Mismatches++
				logger.Debugf("%s: ray %d: expected hit %t at %f; got hit %t at %f", kind, i, exp.hit, exp.t, res.hit, res.t)
			}
		}
		results = append(results, stats)
	}

	logger.Noticef("benchmark results\n%s", benchTable(results))

	var mismatches int
	for _, stats := range results {
		mismatches += stats.Mismatches
	}
	if mismatches > 0 {
		return fmt.Errorf("bench: %d query results differ from the brute force index", mismatches)
	}
	return nil
}

// Cast all rays in parallel and count the ray-triangle tests.
func runQueries(acc accel.Accel, rays []geometry.Ray) (benchStats, []queryResult) {
	var tests atomic.Uint64
	acc.SetIntersectHook(func(uint32, float32) {
		tests.Add(1)
	})
	defer acc.SetIntersectHook(nil)

	found := make([]queryResult, len(rays))
	start := time.Now()
	parallel.For(len(rays), benchGrainSize, func(_, lo, hi int) {
		var its scene.Intersection
		for i := lo; i < hi; i++ {
			if acc.RayIntersect(rays[i], &its, false) {
				found[i] = queryResult{hit: true, t: its.T}
			}
		}
	})

	stats := benchStats{
		QueryTime: time.Since(start),
		Tests:     tests.Load(),
		Rays:      len(rays),
	}
	for _, res := range found {
		if res.hit {
			stats.Hits++
		}
	}
	return stats, found
}

func benchTable(results []benchStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Accel", "Build time", "Query time", "Mrays/sec", "Hits", "Mismatches", "Tests/ray"})
	for _, stats := range results {
		var raysPerSec, testsPerRay float64
		if secs := stats.QueryTime.Seconds(); secs > 0 {
			raysPerSec = float64(stats.Rays) / secs / 1e6
		}
		if stats.Rays > 0 {
			testsPerRay = float64(stats.Tests) / float64(stats.Rays)
		}

		table.Append([]string{
			stats.Name,
			fmt.Sprintf("%.2f ms", float64(stats.BuildTime.Nanoseconds())/1e6),
			fmt.Sprintf("%.2f ms", float64(stats.QueryTime.Nanoseconds())/1e6),
			fmt.Sprintf("%.3f", raysPerSec),
			fmt.Sprintf("%d", stats.Hits),
			fmt.Sprintf("%d", stats.Mismatches),
			fmt.Sprintf("%.1f", testsPerRay),
		})
	}

	table.Render()
	return buf.String()
}
