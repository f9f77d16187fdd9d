package accel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Build a tabular representation of the statistics of one or more built
// acceleration structures.
func StatsTable(names []string, accels []Accel) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Accel", "Meshes", "Primitives", "Nodes", "Leaves", "Max depth", "Prim. refs", "SAH cost", "Node mem", "Prim. mem", "Build time"})

	var totalBuild time.Duration
	for i, acc := range accels {
		stats := acc.Stats()
		totalBuild += stats.BuildTime
		table.Append([]string{
			names[i],
			fmt.Sprintf("%d", stats.Meshes),
			fmt.Sprintf("%d", stats.Primitives),
			fmt.Sprintf("%d", stats.Nodes),
			fmt.Sprintf("%d", stats.Leaves),
			fmt.Sprintf("%d", stats.MaxDepth),
			fmt.Sprintf("%d", stats.LeafPrimitives),
			fmt.Sprintf("%.2f", stats.SAHCost),
			fmtSize(stats.NodeBytes),
			fmtSize(stats.PrimitiveBytes),
			fmtDuration(stats.BuildTime),
		})
	}
	if len(accels) > 1 {
		table.SetFooter([]string{"", "", "", "", "", "", "", "", "", "Total", fmtDuration(totalBuild)})
	}

	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes uint64) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float64(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float64(totalBytes)/1e6)
}

// Format a duration in milliseconds.
func fmtDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d.Nanoseconds())/1e6)
}
